package interfaces

import "context"

// ExtensionPointName names a host extension point.
type ExtensionPointName string

// AttachmentSelectorExtensionPoint is the host's media picker extension point.
const AttachmentSelectorExtensionPoint ExtensionPointName = "ATTACHMENT_SELECTOR"

// SelectorState is a state of the attachment selector provider.
type SelectorState string

const (
	StateIdle            SelectorState = "idle"
	StateSearching       SelectorState = "searching"
	StateResults         SelectorState = "results"
	StateSelecting       SelectorState = "selecting"
	StateInserted        SelectorState = "inserted"
	StateDownloadPending SelectorState = "download_pending"
	StateAttached        SelectorState = "attached"
	StateError           SelectorState = "error"
)

// Terminal reports whether no further transition happens without user input.
func (s SelectorState) Terminal() bool {
	return s == StateInserted || s == StateAttached
}

// SelectedAttachment is what the selector hands back to the host. Direct mode
// fills URL only; download mode also carries the created Attachment.
type SelectedAttachment struct {
	Photo      Photo       `json:"photo"`
	URL        string      `json:"url"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// SelectHandler is the host's insertion callback.
type SelectHandler func(selected SelectedAttachment)

// SelectorInstance is a mounted attachment selector provider.
type SelectorInstance interface {
	Search(ctx context.Context, query string, page int) (*SearchResponse, error)
	Select(ctx context.Context, photoID string) (*SelectedAttachment, error)
	Retry(ctx context.Context) error
	State() SelectorState
	Close()
}

// SelectorComponent is the renderer the plugin contributes to the media picker.
// The host mounts one instance every time the picker opens.
type SelectorComponent interface {
	Mount(ctx context.Context, onSelect SelectHandler) (SelectorInstance, error)
}

// ProviderRegistration is one entry of the attachment selector provider list.
type ProviderRegistration struct {
	ID        string            `json:"id"`
	Label     string            `json:"label"`
	Component SelectorComponent `json:"-"`
}

// AttachmentSelectorPublicState is the mutable state handed to
// ATTACHMENT_SELECTOR contributors.
type AttachmentSelectorPublicState struct {
	Providers []ProviderRegistration
}

// AttachmentSelectorExtension contributes providers to the media picker.
type AttachmentSelectorExtension func(state *AttachmentSelectorPublicState)

// ExtensionPoints lists the extension points a plugin contributes to.
type ExtensionPoints struct {
	AttachmentSelector AttachmentSelectorExtension
}

// Names returns the extension points that are set.
func (e ExtensionPoints) Names() []ExtensionPointName {
	var names []ExtensionPointName
	if e.AttachmentSelector != nil {
		names = append(names, AttachmentSelectorExtensionPoint)
	}
	return names
}

// Route is a console or admin route declared by a plugin.
type Route struct {
	Path      string  `json:"path"`
	Name      string  `json:"name,omitempty"`
	Component string  `json:"component,omitempty"`
	Children  []Route `json:"children,omitempty"`
}

type MenuItem struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Icon string `json:"icon,omitempty"`
}

type MenuGroup struct {
	Name  string     `json:"name"`
	Items []MenuItem `json:"items"`
}

// PluginDefinition is what a plugin hands the host registry.
// Activated and Deactivated may be nil.
type PluginDefinition struct {
	Name            string          `json:"name"`
	Components      []string        `json:"components"`
	Routes          []Route         `json:"routes"`
	Menus           []MenuGroup     `json:"menus"`
	ExtensionPoints ExtensionPoints `json:"-"`
	Activated       func()          `json:"-"`
	Deactivated     func()          `json:"-"`
}
