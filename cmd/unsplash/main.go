// Command unsplash drives the PluginUnsplash engine from a terminal: it
// resolves the plugin configuration from a Halo host or a local file,
// searches photos and inserts or attaches them the way the media picker does.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// A missing .env is fine, the environment may already be set.
	_ = godotenv.Load()

	if err := newRootCommand(defaultOptions()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "unsplash",
		Short:         "Search Unsplash photos and attach them to a Halo site.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.bindFlags(root)

	root.AddCommand(newConfigCommand(opts))
	root.AddCommand(newSearchCommand(opts))
	root.AddCommand(newPickCommand(opts))
	root.AddCommand(newDefinitionCommand())

	return root
}
