package interfaces

import "context"

// RequestType identifies what an engine request does.
type RequestType string

const (
	SearchPhotosRequest      RequestType = "search_photos"
	ListPhotosRequest        RequestType = "list_photos"
	UploadFromURLRequestType RequestType = "upload_from_url"
)

// PhotoRequest is the unit of work flowing through the engine and its hooks.
type PhotoRequest struct {
	Type     RequestType
	Provider SupportedPhotoProvider
	Search   *SearchParams
	Photo    *Photo
	Target   *UploadTarget
}

// PhotoResponse is the result of a PhotoRequest. Exactly one of the fields is set.
type PhotoResponse struct {
	Search     *SearchResponse
	Attachment *Attachment
}

// Hook intercepts engine requests. PreHooks run in registration order before a
// request is queued, PostHooks run in reverse order on the successful result.
type Hook interface {
	PreHook(ctx *context.Context, req *PhotoRequest) (*PhotoRequest, error)
	PostHook(ctx *context.Context, res *PhotoResponse) (*PhotoResponse, error)
}

// ErrorHook is implemented by hooks that also observe failed requests.
// OnError runs in reverse order for every hook whose PreHook succeeded.
type ErrorHook interface {
	OnError(ctx *context.Context, err *PluginError)
}

// EngineConfig is handed to the engine at Init.
type EngineConfig struct {
	Account        Account
	Host           AttachmentUploader
	PhotoProvider  PhotoProvider
	ProviderConfig *ProviderConfig
	Hooks          []Hook
	Logger         Logger
}
