// Package providers implements the HTTP clients for the photo-search API and
// the host console API.
// This file contains common utility functions used across the clients.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/halo-sigs/plugin-unsplash/interfaces"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpproxy"
)

// newClient builds a fasthttp client from the network and proxy settings.
func newClient(config *interfaces.ProviderConfig, logger interfaces.Logger) *fasthttp.Client {
	timeout := time.Second * time.Duration(config.NetworkConfig.DefaultRequestTimeoutInSeconds)
	client := &fasthttp.Client{
		ReadTimeout:     timeout,
		WriteTimeout:    timeout,
		MaxConnsPerHost: config.ConcurrencyAndBufferSize.BufferSize,
	}

	return configureProxy(client, config.ProxyConfig, logger)
}

// configureProxy sets up a proxy for the fasthttp client based on the provided configuration.
// It supports HTTP, SOCKS5, and environment-based proxy configurations.
// Returns the configured client or the original client if proxy configuration is invalid.
func configureProxy(client *fasthttp.Client, proxyConfig *interfaces.ProxyConfig, logger interfaces.Logger) *fasthttp.Client {
	if proxyConfig == nil {
		return client
	}

	var dialFunc fasthttp.DialFunc

	switch proxyConfig.Type {
	case interfaces.NoProxy, "":
		return client
	case interfaces.HttpProxy:
		if proxyConfig.URL == "" {
			logger.Warn("HTTP proxy URL is required for setting up proxy")
			return client
		}
		proxyURL := proxyConfig.URL
		if proxyConfig.Username != "" && proxyConfig.Password != "" {
			// FasthttpHTTPDialer takes credentials in user:pass@host form
			proxyURL = proxyConfig.Username + ":" + proxyConfig.Password + "@" + strings.TrimPrefix(strings.TrimPrefix(proxyURL, "http://"), "https://")
		}
		dialFunc = fasthttpproxy.FasthttpHTTPDialer(proxyURL)
	case interfaces.Socks5Proxy:
		if proxyConfig.URL == "" {
			logger.Warn("SOCKS5 proxy URL is required for setting up proxy")
			return client
		}
		proxyURL := proxyConfig.URL
		if proxyConfig.Username != "" && proxyConfig.Password != "" {
			parsedURL, err := url.Parse(proxyConfig.URL)
			if err != nil {
				logger.Warn("invalid proxy configuration: invalid SOCKS5 proxy URL")
				return client
			}
			parsedURL.User = url.UserPassword(proxyConfig.Username, proxyConfig.Password)
			proxyURL = parsedURL.String()
		}
		dialFunc = fasthttpproxy.FasthttpSocksDialer(proxyURL)
	case interfaces.EnvProxy:
		dialFunc = fasthttpproxy.FasthttpProxyHTTPDialer()
	default:
		logger.Warn(fmt.Sprintf("invalid proxy configuration: unsupported proxy type: %s", proxyConfig.Type))
		return client
	}

	client.Dial = dialFunc
	return client
}

// doRequest runs req honouring both the client timeout and the context deadline.
func doRequest(ctx context.Context, client *fasthttp.Client, req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) *interfaces.PluginError {
	if err := ctx.Err(); err != nil {
		return &interfaces.PluginError{
			IsPluginError: true,
			Error: interfaces.ErrorField{
				Message: err.Error(),
				Error:   err,
			},
		}
	}

	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := client.DoDeadline(req, resp, deadline); err != nil {
		return &interfaces.PluginError{
			IsPluginError: false,
			Error: interfaces.ErrorField{
				Message: interfaces.ErrProviderRequest,
				Error:   err,
			},
		}
	}

	// A caller that went away must not observe a late success.
	if err := ctx.Err(); err != nil {
		return &interfaces.PluginError{
			IsPluginError: true,
			Error: interfaces.ErrorField{
				Message: err.Error(),
				Error:   err,
			},
		}
	}

	return nil
}

// handleProviderAPIError processes error responses from upstream APIs.
// It attempts to unmarshal the error response into errorResp and returns a
// PluginError carrying the upstream status code.
func handleProviderAPIError(resp *fasthttp.Response, errorResp any) *interfaces.PluginError {
	statusCode := resp.StatusCode()

	if err := json.Unmarshal(resp.Body(), errorResp); err != nil {
		return &interfaces.PluginError{
			IsPluginError: false,
			StatusCode:    &statusCode,
			Error: interfaces.ErrorField{
				Message: fmt.Sprintf("%s (status %d)", interfaces.ErrProviderResponseUnmarshal, statusCode),
				Error:   err,
			},
		}
	}

	return &interfaces.PluginError{
		IsPluginError: false,
		StatusCode:    &statusCode,
		Error:         interfaces.ErrorField{},
	}
}

// handleProviderResponse handles common response parsing logic for upstream responses.
// It parses the body into the structured response and a raw map concurrently
// and returns the raw form or a PluginError if parsing fails.
func handleProviderResponse[T any](responseBody []byte, response *T) (interface{}, *interfaces.PluginError) {
	var rawResponse interface{}

	var wg sync.WaitGroup
	var structuredErr, rawErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		structuredErr = json.Unmarshal(responseBody, response)
	}()
	go func() {
		defer wg.Done()
		rawErr = json.Unmarshal(responseBody, &rawResponse)
	}()
	wg.Wait()

	if structuredErr != nil {
		return nil, &interfaces.PluginError{
			IsPluginError: true,
			Error: interfaces.ErrorField{
				Message: interfaces.ErrProviderDecodeStructured,
				Error:   structuredErr,
			},
		}
	}

	if rawErr != nil {
		return nil, &interfaces.PluginError{
			IsPluginError: true,
			Error: interfaces.ErrorField{
				Message: interfaces.ErrProviderDecodeRaw,
				Error:   rawErr,
			},
		}
	}

	return rawResponse, nil
}

// isSuccess reports whether the status code is 2xx.
func isSuccess(statusCode int) bool {
	return statusCode >= fasthttp.StatusOK && statusCode < fasthttp.StatusMultipleChoices
}

// joinURL appends path to base without doubling slashes.
func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
