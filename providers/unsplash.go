package providers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/halo-sigs/plugin-unsplash/interfaces"
	"github.com/valyala/fasthttp"
)

// Pre-defined errors to reduce allocations in error paths
var (
	ErrUnsplashMissingKey = fmt.Errorf("unsplash access key is empty")
	ErrUnsplashEmptyQuery = fmt.Errorf("search query is empty")
	ErrUnsplashResponse   = fmt.Errorf("unsplash error response")
)

// UnsplashSearchResponse is the body of GET /search/photos.
type UnsplashSearchResponse struct {
	Total      int                `json:"total"`
	TotalPages int                `json:"total_pages"`
	Results    []interfaces.Photo `json:"results"`
}

// UnsplashPhotoList is the body of GET /photos.
type UnsplashPhotoList []interfaces.Photo

// UnsplashError is the error body of the photo API.
type UnsplashError struct {
	Errors []string `json:"errors"`
}

// UnsplashProvider implements the PhotoProvider interface for Unsplash
type UnsplashProvider struct {
	logger        interfaces.Logger
	client        *fasthttp.Client
	networkConfig interfaces.NetworkConfig
}

// NewUnsplashProvider creates a new Unsplash provider instance
func NewUnsplashProvider(config *interfaces.ProviderConfig, logger interfaces.Logger) *UnsplashProvider {
	cfg := config.WithDefaults(interfaces.DefaultPhotoAPIBaseURL)

	prewarmPools(cfg.ConcurrencyAndBufferSize.Concurrency)

	return &UnsplashProvider{
		logger:        logger,
		client:        newClient(&cfg, logger),
		networkConfig: cfg.NetworkConfig,
	}
}

func (provider *UnsplashProvider) GetProviderKey() interfaces.SupportedPhotoProvider {
	return interfaces.Unsplash
}

func (provider *UnsplashProvider) timeout() time.Duration {
	return time.Second * time.Duration(provider.networkConfig.DefaultRequestTimeoutInSeconds)
}

// prepareRequest sets the method, URI and photo API headers on req.
func (provider *UnsplashProvider) prepareRequest(req *fasthttp.Request, uri, key string) {
	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Version", "v1")
	req.Header.Set("Authorization", "Client-ID "+key)
}

// get performs an authenticated GET and returns a copy of the body on success.
func (provider *UnsplashProvider) get(ctx context.Context, uri, key string, args map[string]string) ([]byte, *interfaces.PluginError) {
	if key == "" {
		return nil, interfaces.NewPluginError(ErrUnsplashMissingKey.Error(), ErrUnsplashMissingKey)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	provider.prepareRequest(req, uri, key)
	for k, v := range args {
		req.URI().QueryArgs().Add(k, v)
	}

	if pluginErr := doRequest(ctx, provider.client, req, resp, provider.timeout()); pluginErr != nil {
		return nil, pluginErr
	}

	if !isSuccess(resp.StatusCode()) {
		provider.logger.Debug(fmt.Sprintf("error from unsplash provider: %s", string(resp.Body())))

		var errorResp UnsplashError
		pluginErr := handleProviderAPIError(resp, &errorResp)
		if pluginErr.Error.Message == "" {
			pluginErr.Error.Message = strings.Join(errorResp.Errors, "; ")
			if pluginErr.Error.Message == "" {
				pluginErr.Error.Message = fmt.Sprintf("%s: status %d", ErrUnsplashResponse, resp.StatusCode())
			}
			pluginErr.Error.Error = ErrUnsplashResponse
		}
		return nil, pluginErr
	}

	// resp is released on return, the body must be copied.
	return append([]byte(nil), resp.Body()...), nil
}

// SearchPhotos performs GET /search/photos
func (provider *UnsplashProvider) SearchPhotos(ctx context.Context, key string, params interfaces.SearchParams) (*interfaces.SearchResponse, *interfaces.PluginError) {
	query := strings.TrimSpace(params.Query)
	if query == "" {
		return nil, interfaces.NewPluginError(ErrUnsplashEmptyQuery.Error(), ErrUnsplashEmptyQuery)
	}

	page, perPage := normalizePaging(params.Page, params.PerPage)
	args := map[string]string{
		"query":    query,
		"page":     strconv.Itoa(page),
		"per_page": strconv.Itoa(perPage),
	}
	if params.Orientation != "" {
		args["orientation"] = string(params.Orientation)
	}
	if params.Color != "" {
		args["color"] = params.Color
	}

	body, pluginErr := provider.get(ctx, joinURL(provider.networkConfig.BaseURL, "/search/photos"), key, args)
	if pluginErr != nil {
		return nil, pluginErr
	}

	response := acquireUnsplashSearchResponse()
	defer releaseUnsplashSearchResponse(response)

	rawResponse, pluginErr := handleProviderResponse(body, response)
	if pluginErr != nil {
		return nil, pluginErr
	}

	return &interfaces.SearchResponse{
		Total:       response.Total,
		TotalPages:  response.TotalPages,
		Results:     append([]interfaces.Photo(nil), response.Results...),
		Provider:    interfaces.Unsplash,
		Page:        page,
		RawResponse: rawResponse,
	}, nil
}

// ListPhotos performs GET /photos, the editorial feed shown before any query.
// The endpoint does not report totals, so Total is the page length and
// TotalPages is left zero.
func (provider *UnsplashProvider) ListPhotos(ctx context.Context, key string, page, perPage int) (*interfaces.SearchResponse, *interfaces.PluginError) {
	page, perPage = normalizePaging(page, perPage)
	args := map[string]string{
		"page":     strconv.Itoa(page),
		"per_page": strconv.Itoa(perPage),
	}

	body, pluginErr := provider.get(ctx, joinURL(provider.networkConfig.BaseURL, "/photos"), key, args)
	if pluginErr != nil {
		return nil, pluginErr
	}

	list := acquireUnsplashPhotoList()
	defer releaseUnsplashPhotoList(list)

	rawResponse, pluginErr := handleProviderResponse(body, list)
	if pluginErr != nil {
		return nil, pluginErr
	}

	return &interfaces.SearchResponse{
		Total:       len(*list),
		Results:     append([]interfaces.Photo(nil), (*list)...),
		Provider:    interfaces.Unsplash,
		Page:        page,
		RawResponse: rawResponse,
	}, nil
}

// TrackDownload notifies the photo API that a photo was downloaded, as its
// usage guidelines require whenever a copy is stored. Photos without a
// download location are skipped.
func (provider *UnsplashProvider) TrackDownload(ctx context.Context, key string, photo interfaces.Photo) *interfaces.PluginError {
	if photo.Links.DownloadLocation == "" {
		return nil
	}
	_, pluginErr := provider.get(ctx, photo.Links.DownloadLocation, key, nil)
	return pluginErr
}

// normalizePaging clamps page to >= 1 and perPage to the API range 1..30.
func normalizePaging(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = interfaces.DefaultPerPage
	}
	if perPage > 30 {
		perPage = 30
	}
	return page, perPage
}
