package selector

import (
	"context"

	"github.com/halo-sigs/plugin-unsplash/interfaces"
)

// Component is the selector provider registered in the media picker. Each
// Mount creates an independent Selector sharing the engine and resolver.
type Component struct {
	service PhotoService
	configs ConfigSource
	logger  interfaces.Logger
}

// NewComponent creates a Component.
func NewComponent(service PhotoService, configs ConfigSource, logger interfaces.Logger) *Component {
	return &Component{service: service, configs: configs, logger: logger}
}

// Mount implements interfaces.SelectorComponent. Configuration is resolved
// eagerly so the first render knows whether to prompt for an access key.
func (c *Component) Mount(ctx context.Context, onSelect interfaces.SelectHandler) (interfaces.SelectorInstance, error) {
	sel := New(c.service, c.configs, onSelect, c.logger)

	snapshot := c.configs.Resolve(ctx)
	sel.mu.Lock()
	sel.view.Configured = snapshot.Configured()
	sel.view.DownloadMode = snapshot.IsDownloadMode()
	sel.mu.Unlock()

	return sel, nil
}
