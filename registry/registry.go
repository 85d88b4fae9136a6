// Package registry models the host's plugin registry: installed plugin
// definitions, their activation state, and the contributions active plugins
// make to routes, menus and extension points.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/halo-sigs/plugin-unsplash/interfaces"
	"github.com/samber/lo"
)

var (
	ErrAlreadyInstalled = errors.New("plugin already installed")
	ErrNotInstalled     = errors.New("plugin not installed")
)

type entry struct {
	definition interfaces.PluginDefinition
	active     bool
}

// Registry keeps plugins in install order.
type Registry struct {
	mu      sync.RWMutex
	entries []*entry
	logger  interfaces.Logger
}

func New(logger interfaces.Logger) *Registry {
	return &Registry{logger: logger}
}

// Install adds def in the inactive state.
func (r *Registry) Install(def interfaces.PluginDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.findLocked(def.Name); ok {
		return fmt.Errorf("%w: %s", ErrAlreadyInstalled, def.Name)
	}
	r.entries = append(r.entries, &entry{definition: def})
	return nil
}

// Uninstall deactivates and removes the plugin.
func (r *Registry) Uninstall(name string) error {
	if err := r.Deactivate(name); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = lo.Reject(r.entries, func(e *entry, _ int) bool { return e.definition.Name == name })
	return nil
}

// Activate enables the plugin's contributions and runs its Activated hook.
// Activating an active plugin is a no-op.
func (r *Registry) Activate(name string) error {
	r.mu.Lock()
	e, ok := r.findLocked(name)
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotInstalled, name)
	}
	if e.active {
		r.mu.Unlock()
		return nil
	}
	e.active = true
	hook := e.definition.Activated
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	r.debug(fmt.Sprintf("plugin %s activated", name))
	return nil
}

// Deactivate withdraws the plugin's contributions and runs its Deactivated hook.
func (r *Registry) Deactivate(name string) error {
	r.mu.Lock()
	e, ok := r.findLocked(name)
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotInstalled, name)
	}
	if !e.active {
		r.mu.Unlock()
		return nil
	}
	e.active = false
	hook := e.definition.Deactivated
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	r.debug(fmt.Sprintf("plugin %s deactivated", name))
	return nil
}

// IsActive reports whether the named plugin is installed and active.
func (r *Registry) IsActive(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.findLocked(name)
	return ok && e.active
}

// Plugins lists installed plugin names in install order.
func (r *Registry) Plugins() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Map(r.entries, func(e *entry, _ int) string { return e.definition.Name })
}

// AttachmentSelectorProviders builds the media picker provider list by
// applying every active plugin's ATTACHMENT_SELECTOR contribution in install
// order to a fresh state.
func (r *Registry) AttachmentSelectorProviders() []interfaces.ProviderRegistration {
	state := &interfaces.AttachmentSelectorPublicState{}
	for _, def := range r.activeDefinitions() {
		if ext := def.ExtensionPoints.AttachmentSelector; ext != nil {
			ext(state)
		}
	}
	return state.Providers
}

// Provider returns the active provider registered under id.
func (r *Registry) Provider(id string) (interfaces.ProviderRegistration, bool) {
	return lo.Find(r.AttachmentSelectorProviders(), func(p interfaces.ProviderRegistration) bool {
		return p.ID == id
	})
}

// Routes returns the routes of active plugins.
func (r *Registry) Routes() []interfaces.Route {
	return lo.FlatMap(r.activeDefinitions(), func(def interfaces.PluginDefinition, _ int) []interfaces.Route {
		return def.Routes
	})
}

// Menus returns the menu groups of active plugins. Groups with the same name
// are merged, keeping first-seen order.
func (r *Registry) Menus() []interfaces.MenuGroup {
	groups := lo.FlatMap(r.activeDefinitions(), func(def interfaces.PluginDefinition, _ int) []interfaces.MenuGroup {
		return def.Menus
	})

	var merged []interfaces.MenuGroup
	index := make(map[string]int)
	for _, group := range groups {
		if i, ok := index[group.Name]; ok {
			merged[i].Items = append(merged[i].Items, group.Items...)
			continue
		}
		index[group.Name] = len(merged)
		merged = append(merged, interfaces.MenuGroup{
			Name:  group.Name,
			Items: append([]interfaces.MenuItem(nil), group.Items...),
		})
	}
	return merged
}

func (r *Registry) activeDefinitions() []interfaces.PluginDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.FilterMap(r.entries, func(e *entry, _ int) (interfaces.PluginDefinition, bool) {
		return e.definition, e.active
	})
}

func (r *Registry) findLocked(name string) (*entry, bool) {
	return lo.Find(r.entries, func(e *entry) bool { return e.definition.Name == name })
}

func (r *Registry) debug(msg string) {
	if r.logger != nil {
		r.logger.Debug(msg)
	}
}
