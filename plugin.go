package unsplash

import (
	"github.com/halo-sigs/plugin-unsplash/interfaces"
)

const (
	// ProviderID identifies the Unsplash entry of the media picker.
	ProviderID = "unsplash"
	// ProviderLabel is the tab label shown in the media picker.
	ProviderLabel = "Unsplash"
)

// Admin UI constants.
const (
	HelloWorldPath      = "/hello-world"
	HelloWorldRouteName = "HelloWorld"
	BasicLayout         = "BasicLayout"
	DefaultView         = "DefaultView"
	AdminMenuGroup      = "From PluginUnsplash"
	AdminMenuIcon       = "IconGrid"
)

// PluginOption customizes a plugin definition.
type PluginOption func(def *interfaces.PluginDefinition)

// OnActivated extends the activation hook.
func OnActivated(fn func()) PluginOption {
	return func(def *interfaces.PluginDefinition) {
		def.Activated = chain(def.Activated, fn)
	}
}

// OnDeactivated extends the deactivation hook.
func OnDeactivated(fn func()) PluginOption {
	return func(def *interfaces.PluginDefinition) {
		def.Deactivated = chain(def.Deactivated, fn)
	}
}

func chain(first, next func()) func() {
	if next == nil {
		return first
	}
	if first == nil {
		return next
	}
	return func() {
		first()
		next()
	}
}

// ConsolePlugin is the console-side definition. It contributes exactly one
// provider to ATTACHMENT_SELECTOR and declares no routes or menus.
func ConsolePlugin(component interfaces.SelectorComponent, opts ...PluginOption) interfaces.PluginDefinition {
	def := interfaces.PluginDefinition{
		Name:       interfaces.PluginName,
		Components: []string{},
		Routes:     []interfaces.Route{},
		Menus:      []interfaces.MenuGroup{},
		ExtensionPoints: interfaces.ExtensionPoints{
			AttachmentSelector: func(state *interfaces.AttachmentSelectorPublicState) {
				state.Providers = append(state.Providers, interfaces.ProviderRegistration{
					ID:        ProviderID,
					Label:     ProviderLabel,
					Component: component,
				})
			},
		},
		Activated:   func() {},
		Deactivated: func() {},
	}
	for _, opt := range opts {
		opt(&def)
	}
	return def
}

// AdminPlugin is the admin-side definition: one demo route under the basic
// layout and its menu entry.
func AdminPlugin(opts ...PluginOption) interfaces.PluginDefinition {
	def := interfaces.PluginDefinition{
		Name:       interfaces.PluginName,
		Components: []string{},
		Routes: []interfaces.Route{
			{
				Path:      HelloWorldPath,
				Component: BasicLayout,
				Children: []interfaces.Route{
					{Path: "", Name: HelloWorldRouteName, Component: DefaultView},
				},
			},
		},
		Menus: []interfaces.MenuGroup{
			{
				Name: AdminMenuGroup,
				Items: []interfaces.MenuItem{
					{Name: HelloWorldRouteName, Path: HelloWorldPath, Icon: AdminMenuIcon},
				},
			},
		},
		Activated:   func() {},
		Deactivated: func() {},
	}
	for _, opt := range opts {
		opt(&def)
	}
	return def
}
