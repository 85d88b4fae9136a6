package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	unsplash "github.com/halo-sigs/plugin-unsplash"
	"github.com/halo-sigs/plugin-unsplash/config"
	"github.com/halo-sigs/plugin-unsplash/interfaces"
	"github.com/halo-sigs/plugin-unsplash/selector"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newConfigCommand(opts *options) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the resolved plugin configuration",
		Long:  "Fetch the plugin's basic settings and print the values the media picker derives from them.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			printSnapshot(cmd.OutOrStdout(), a.resolver.Resolve(ctx))
			if !watch {
				return nil
			}
			if a.source == nil {
				return fmt.Errorf("--watch needs --config-file")
			}

			updates := a.resolver.Subscribe()
			defer a.resolver.Unsubscribe(updates)
			go func() {
				for snapshot := range updates {
					fmt.Fprintln(cmd.OutOrStdout(), "---")
					printSnapshot(cmd.OutOrStdout(), snapshot)
				}
			}()

			err = a.source.Watch(ctx, a.resolver, a.logger)
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep running and print the configuration whenever the config file changes")
	return cmd
}

func printSnapshot(out io.Writer, snapshot config.Snapshot) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "state\t%s\n", snapshot.State())
	if err := snapshot.Err(); err != nil {
		fmt.Fprintf(w, "error\t%v\n", err)
	}
	fmt.Fprintf(w, "access key\t%s\n", maskKey(snapshot.AccessKey()))
	fmt.Fprintf(w, "download mode\t%t\n", snapshot.IsDownloadMode())
	fmt.Fprintf(w, "url type\t%s\n", snapshot.URLType())
	fmt.Fprintf(w, "policy\t%s\n", lo.Ternary(snapshot.PolicyName() == "", "-", snapshot.PolicyName()))
	fmt.Fprintf(w, "group\t%s\n", lo.FromPtrOr(snapshot.GroupName(), "-"))
	w.Flush()
}

func newSearchCommand(opts *options) *cobra.Command {
	var page, perPage int

	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Search photos, or list the latest photos when no query is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			sel, err := a.mount(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer sel.Close()
			sel.SetPerPage(perPage)

			if _, err := sel.Search(cmd.Context(), strings.Join(args, " "), page); err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), sel.View())
			return nil
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "result page")
	cmd.Flags().IntVarP(&perPage, "per-page", "n", interfaces.DefaultPerPage, "results per page (max 30)")
	return cmd
}

func printResults(out io.Writer, view selector.View) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSIZE\tAUTHOR\tDESCRIPTION")
	for _, photo := range view.Results {
		fmt.Fprintf(w, "%s\t%dx%d\t%s\t%s\n",
			photo.ID,
			photo.Width, photo.Height,
			lo.Ternary(photo.User.Username == "", "-", photo.User.Username),
			lo.Ellipsis(photo.DisplayName(), 60),
		)
	}
	w.Flush()
	if view.TotalPages > 0 {
		fmt.Fprintf(out, "page %d of %d\n", view.Page, view.TotalPages)
	} else {
		fmt.Fprintf(out, "page %d\n", view.Page)
	}
}

func newPickCommand(opts *options) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "pick <query> <photo-id>...",
		Short: "Insert or attach photos from a search",
		Long: "Search for query, then select the given photos. In direct mode the photo URL is printed; " +
			"in download mode each photo is uploaded to the configured storage policy and the attachment permalink is printed.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			sel, err := a.mount(cmd.Context(), func(selected interfaces.SelectedAttachment) {
				if selected.Attachment != nil {
					fmt.Fprintf(out, "%s\tattached\t%s\t%s\n", selected.Photo.ID, selected.Attachment.Metadata.Name, selected.URL)
					return
				}
				fmt.Fprintf(out, "%s\tinserted\t%s\n", selected.Photo.ID, selected.URL)
			})
			if err != nil {
				return err
			}
			defer sel.Close()

			if _, err := sel.Search(cmd.Context(), args[0], page); err != nil {
				return err
			}

			_, failures := sel.SelectMany(cmd.Context(), args[1:])
			for id, err := range failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s\tfailed\t%v\n", id, err)
			}
			if len(failures) > 0 {
				return fmt.Errorf("%d of %d photos failed", len(failures), len(lo.Uniq(args[1:])))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "result page the photos are on")
	return cmd
}

// definitionView is the JSON form of a plugin definition.
type definitionView struct {
	Name            string                            `json:"name"`
	Routes          []interfaces.Route                `json:"routes"`
	Menus           []interfaces.MenuGroup            `json:"menus"`
	ExtensionPoints []interfaces.ExtensionPointName   `json:"extensionPoints"`
	Providers       []interfaces.ProviderRegistration `json:"providers,omitempty"`
}

func describeDefinition(def interfaces.PluginDefinition) definitionView {
	view := definitionView{
		Name:            def.Name,
		Routes:          def.Routes,
		Menus:           def.Menus,
		ExtensionPoints: lo.Ternary(def.ExtensionPoints.Names() == nil, []interfaces.ExtensionPointName{}, def.ExtensionPoints.Names()),
	}
	if ext := def.ExtensionPoints.AttachmentSelector; ext != nil {
		state := &interfaces.AttachmentSelectorPublicState{}
		ext(state)
		view.Providers = state.Providers
	}
	return view
}

func newDefinitionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "definition",
		Short: "Print the console and admin plugin definitions as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			defs := map[string]definitionView{
				"console": describeDefinition(unsplash.ConsolePlugin(selector.NewComponent(nil, nil, nil))),
				"admin":   describeDefinition(unsplash.AdminPlugin()),
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(defs)
		},
	}
}
