// Package maxim traces photo engine requests with Maxim's logger.
//
// Register the Plugin as an engine hook; each request becomes one trace
// whose input is the request and whose output is the response.
package maxim

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/halo-sigs/plugin-unsplash/interfaces"

	"github.com/maximhq/maxim-go"
	"github.com/maximhq/maxim-go/logging"
)

// contextKey is a custom type for context keys to prevent key collisions in the context.
type contextKey string

// traceIDKey is the context key used to store and retrieve trace IDs.
const traceIDKey contextKey = "traceID"

// TraceName names every trace created by the plugin.
const TraceName = "plugin-unsplash"

// Config holds the Maxim credentials.
type Config struct {
	APIKey   string
	LoggerID string
}

// traceSink is the part of the Maxim logger the plugin writes to.
type traceSink interface {
	StartTrace(id, name, input string)
	EndTrace(id, output string)
}

type maximSink struct {
	logger *logging.Logger
}

func (s maximSink) StartTrace(id, name, input string) {
	trace := s.logger.Trace(&logging.TraceConfig{
		Id:   id,
		Name: maxim.StrPtr(name),
	})
	trace.SetInput(input)
}

func (s maximSink) EndTrace(id, output string) {
	s.logger.SetTraceOutput(id, output)
}

// Plugin implements interfaces.Hook and interfaces.ErrorHook.
type Plugin struct {
	sink   traceSink
	logger interfaces.Logger
	seq    atomic.Uint64
}

// Init connects to Maxim and returns the tracing hook.
func Init(config Config, logger interfaces.Logger) (*Plugin, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("maxim api key is required")
	}
	if config.LoggerID == "" {
		return nil, fmt.Errorf("maxim logger id is required")
	}

	mx := maxim.Init(&maxim.MaximSDKConfig{ApiKey: config.APIKey})

	mxLogger, err := mx.GetLogger(&logging.LoggerConfig{Id: config.LoggerID})
	if err != nil {
		return nil, fmt.Errorf("failed to create maxim logger: %w", err)
	}

	return newPlugin(maximSink{logger: mxLogger}, logger), nil
}

func newPlugin(sink traceSink, logger interfaces.Logger) *Plugin {
	return &Plugin{sink: sink, logger: logger}
}

// PreHook opens a trace for req and stores its id in the context.
// The id is "YYYYMMDD_HHmmssSSS" followed by a per-plugin sequence number.
func (plugin *Plugin) PreHook(ctx *context.Context, req *interfaces.PhotoRequest) (*interfaces.PhotoRequest, error) {
	traceID := fmt.Sprintf("%s_%d", time.Now().Format("20060102_150405000"), plugin.seq.Add(1))

	plugin.sink.StartTrace(traceID, TraceName, describeRequest(req))

	if ctx != nil {
		*ctx = context.WithValue(*ctx, traceIDKey, traceID)
	}

	return req, nil
}

// PostHook closes the trace opened by PreHook. A missing trace id is logged
// and the response passes through unchanged.
func (plugin *Plugin) PostHook(ctxRef *context.Context, res *interfaces.PhotoResponse) (*interfaces.PhotoResponse, error) {
	if ctxRef == nil {
		return res, nil
	}

	traceID, ok := TraceID(*ctxRef)
	if !ok {
		if plugin.logger != nil {
			plugin.logger.Warn("maxim: trace id not found in context")
		}
		return res, nil
	}

	plugin.sink.EndTrace(traceID, describeResponse(res))
	return res, nil
}

// OnError closes the trace of a failed request; PostHook only sees successes.
func (plugin *Plugin) OnError(ctxRef *context.Context, pluginErr *interfaces.PluginError) {
	if ctxRef == nil {
		return
	}
	traceID, ok := TraceID(*ctxRef)
	if !ok {
		return
	}
	message := "unknown error"
	if pluginErr != nil && pluginErr.Error.Message != "" {
		message = pluginErr.Error.Message
	}
	plugin.sink.EndTrace(traceID, "error: "+message)
}

// TraceID returns the trace id PreHook stored in ctx.
func TraceID(ctx context.Context) (string, bool) {
	traceID, ok := ctx.Value(traceIDKey).(string)
	return traceID, ok
}

func describeRequest(req *interfaces.PhotoRequest) string {
	if req == nil {
		return "request: <nil>"
	}
	switch req.Type {
	case interfaces.SearchPhotosRequest, interfaces.ListPhotosRequest:
		if req.Search != nil {
			return fmt.Sprintf("%s query=%q page=%d per_page=%d", req.Type, req.Search.Query, req.Search.Page, req.Search.PerPage)
		}
	case interfaces.UploadFromURLRequestType:
		if req.Photo != nil && req.Target != nil {
			return fmt.Sprintf("%s photo=%s policy=%s url_type=%s", req.Type, req.Photo.ID, req.Target.PolicyName, req.Target.URLType)
		}
	}
	return string(req.Type)
}

func describeResponse(res *interfaces.PhotoResponse) string {
	switch {
	case res == nil:
		return "response: <nil>"
	case res.Search != nil:
		return fmt.Sprintf("results=%d total=%d page=%d", len(res.Search.Results), res.Search.Total, res.Search.Page)
	case res.Attachment != nil:
		return fmt.Sprintf("attachment=%s permalink=%s", res.Attachment.Metadata.Name, res.Attachment.Status.Permalink)
	default:
		return "response: empty"
	}
}
