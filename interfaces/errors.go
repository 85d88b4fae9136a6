package interfaces

import "errors"

// Pre-defined errors shared across packages.
var (
	ErrMissingAccessKey = errors.New("unsplash access key is not configured, set it in the plugin settings")
	ErrSuperseded       = errors.New("search superseded by a newer query")
	ErrPhotoNotFound    = errors.New("photo is not part of the current results")
	ErrNothingToRetry   = errors.New("no failed operation to retry")
	ErrEngineClosed     = errors.New("engine is shut down")
	ErrConfigLoading    = errors.New("plugin configuration is still loading")
)

// Error messages used when wrapping local failures into a PluginError.
const (
	ErrRequestMarshal            = "error marshaling request body"
	ErrProviderRequest           = "error making request to upstream"
	ErrProviderResponseUnmarshal = "error unmarshaling upstream error response"
	ErrProviderDecodeStructured  = "error decoding structured upstream response"
	ErrProviderDecodeRaw         = "error decoding raw upstream response"
)

// ErrorField carries the details of a PluginError.
type ErrorField struct {
	Type    *string `json:"type,omitempty"`
	Code    *string `json:"code,omitempty"`
	Message string  `json:"message"`
	Error   error   `json:"-"`
}

// PluginError is returned by providers and the engine.
// IsPluginError is true when the failure happened locally (marshal, decode,
// validation); those are never retried. Remote and network failures leave it
// false and carry the upstream status code when there is one.
type PluginError struct {
	IsPluginError bool       `json:"is_plugin_error"`
	StatusCode    *int       `json:"status_code,omitempty"`
	Error         ErrorField `json:"error"`
}

// Err converts the PluginError into a plain error value.
func (e *PluginError) Err() error {
	if e == nil {
		return nil
	}
	if e.Error.Error != nil {
		if e.Error.Message == "" || e.Error.Message == e.Error.Error.Error() {
			return e.Error.Error
		}
		return &wrappedError{msg: e.Error.Message, err: e.Error.Error}
	}
	return errors.New(e.Error.Message)
}

type wrappedError struct {
	msg string
	err error
}

func (w *wrappedError) Error() string { return w.msg + ": " + w.err.Error() }
func (w *wrappedError) Unwrap() error { return w.err }

// NewPluginError builds a local PluginError from an error value.
func NewPluginError(message string, err error) *PluginError {
	if message == "" && err != nil {
		message = err.Error()
	}
	return &PluginError{
		IsPluginError: true,
		Error: ErrorField{
			Message: message,
			Error:   err,
		},
	}
}
