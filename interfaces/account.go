package interfaces

import "context"

// Account hands the engine the photo API credentials for each request.
// The configuration resolver is the production implementation; the key is
// read per request so a refreshed configuration takes effect immediately.
type Account interface {
	GetAccessKey(ctx context.Context) (string, error)
}
