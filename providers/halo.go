package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/halo-sigs/plugin-unsplash/interfaces"
	"github.com/valyala/fasthttp"
)

const (
	haloConsoleAPI      = "/apis/api.console.halo.run/v1alpha1"
	haloUploadFromURL   = haloConsoleAPI + "/attachments/-/upload-from-url"
	haloPluginConfigFmt = haloConsoleAPI + "/plugins/%s/config"
)

var (
	ErrHaloMissingBaseURL = fmt.Errorf("halo base url is empty")
	ErrHaloMissingPolicy  = fmt.Errorf("upload policy name is empty")
	ErrHaloResponse       = fmt.Errorf("halo error response")
)

// HaloProblem is the RFC 7807 problem detail body returned by the host.
type HaloProblem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

// HaloClient talks to the host console API. It implements interfaces.Host.
type HaloClient struct {
	logger        interfaces.Logger
	client        *fasthttp.Client
	networkConfig interfaces.NetworkConfig
	authorization string
}

// NewHaloClient creates a host client. The base URL must be set in config.
func NewHaloClient(config *interfaces.ProviderConfig, credentials interfaces.HostCredentials, logger interfaces.Logger) (*HaloClient, error) {
	if config == nil || config.NetworkConfig.BaseURL == "" {
		return nil, ErrHaloMissingBaseURL
	}
	cfg := config.WithDefaults(config.NetworkConfig.BaseURL)

	return &HaloClient{
		logger:        logger,
		client:        newClient(&cfg, logger),
		networkConfig: cfg.NetworkConfig,
		authorization: authorizationHeader(credentials),
	}, nil
}

// authorizationHeader prefers a personal access token over basic auth.
func authorizationHeader(credentials interfaces.HostCredentials) string {
	if credentials.Token != "" {
		return "Bearer " + credentials.Token
	}
	if credentials.Username != "" {
		raw := credentials.Username + ":" + credentials.Password
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
	}
	return ""
}

func (client *HaloClient) timeout() time.Duration {
	return time.Second * time.Duration(client.networkConfig.DefaultRequestTimeoutInSeconds)
}

// do sends a request to the host and returns a copy of a successful body.
func (client *HaloClient) do(ctx context.Context, method, path string, body []byte) ([]byte, *interfaces.PluginError) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(joinURL(client.networkConfig.BaseURL, path))
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	if client.authorization != "" {
		req.Header.Set("Authorization", client.authorization)
	}
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	if pluginErr := doRequest(ctx, client.client, req, resp, client.timeout()); pluginErr != nil {
		return nil, pluginErr
	}

	if !isSuccess(resp.StatusCode()) {
		client.logger.Debug(fmt.Sprintf("error from halo: %s", string(resp.Body())))

		var problem HaloProblem
		pluginErr := handleProviderAPIError(resp, &problem)
		if pluginErr.Error.Message == "" {
			pluginErr.Error.Message = problem.Detail
			if pluginErr.Error.Message == "" {
				pluginErr.Error.Message = problem.Title
			}
			if pluginErr.Error.Message == "" {
				pluginErr.Error.Message = fmt.Sprintf("%s: status %d", ErrHaloResponse, resp.StatusCode())
			}
			if problem.Type != "" {
				pluginErr.Error.Type = &problem.Type
			}
			pluginErr.Error.Error = ErrHaloResponse
		}
		return nil, pluginErr
	}

	return append([]byte(nil), resp.Body()...), nil
}

// FetchPluginConfig reads the plugin's config map.
func (client *HaloClient) FetchPluginConfig(ctx context.Context, name string) (*interfaces.ConfigMap, error) {
	body, pluginErr := client.do(ctx, fasthttp.MethodGet, fmt.Sprintf(haloPluginConfigFmt, url.PathEscape(name)), nil)
	if pluginErr != nil {
		return nil, pluginErr.Err()
	}

	var configMap interfaces.ConfigMap
	if _, pluginErr := handleProviderResponse(body, &configMap); pluginErr != nil {
		return nil, pluginErr.Err()
	}
	return &configMap, nil
}

// UploadFromURL asks the host to download req.URL into the given policy and group.
func (client *HaloClient) UploadFromURL(ctx context.Context, req interfaces.UploadFromURLRequest) (*interfaces.Attachment, *interfaces.PluginError) {
	if req.PolicyName == "" {
		return nil, interfaces.NewPluginError(ErrHaloMissingPolicy.Error(), ErrHaloMissingPolicy)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, interfaces.NewPluginError(interfaces.ErrRequestMarshal, err)
	}

	respBody, pluginErr := client.do(ctx, fasthttp.MethodPost, haloUploadFromURL, body)
	if pluginErr != nil {
		return nil, pluginErr
	}

	var attachment interfaces.Attachment
	if _, pluginErr := handleProviderResponse(respBody, &attachment); pluginErr != nil {
		return nil, pluginErr
	}
	return &attachment, nil
}
