package maxim

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/halo-sigs/plugin-unsplash/interfaces"
)

var (
	_ interfaces.Hook      = (*Plugin)(nil)
	_ interfaces.ErrorHook = (*Plugin)(nil)
)

type recordedTrace struct {
	name   string
	input  string
	output string
}

type fakeSink struct {
	mu     sync.Mutex
	traces map[string]*recordedTrace
}

func (s *fakeSink) StartTrace(id, name, input string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.traces == nil {
		s.traces = make(map[string]*recordedTrace)
	}
	s.traces[id] = &recordedTrace{name: name, input: input}
}

func (s *fakeSink) EndTrace(id, output string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if trace, ok := s.traces[id]; ok {
		trace.output = output
	}
}

func TestInitRequiresCredentials(t *testing.T) {
	if _, err := Init(Config{LoggerID: "repo"}, nil); err == nil {
		t.Error("expected error without api key")
	}
	if _, err := Init(Config{APIKey: "key"}, nil); err == nil {
		t.Error("expected error without logger id")
	}
}

func TestTraceLifecycle(t *testing.T) {
	sink := &fakeSink{}
	plugin := newPlugin(sink, nil)

	ctx := context.Background()
	req := &interfaces.PhotoRequest{
		Type:   interfaces.SearchPhotosRequest,
		Search: &interfaces.SearchParams{Query: "mountains", Page: 1, PerPage: 20},
	}
	if got, err := plugin.PreHook(&ctx, req); err != nil || got != req {
		t.Fatalf("PreHook() = %v, %v", got, err)
	}

	traceID, ok := TraceID(ctx)
	if !ok {
		t.Fatal("trace id not stored in context")
	}

	res := &interfaces.PhotoResponse{Search: &interfaces.SearchResponse{Total: 3, Page: 1, Results: make([]interfaces.Photo, 3)}}
	if got, err := plugin.PostHook(&ctx, res); err != nil || got != res {
		t.Fatalf("PostHook() = %v, %v", got, err)
	}

	trace := sink.traces[traceID]
	if trace == nil {
		t.Fatalf("no trace recorded for %s", traceID)
	}
	if trace.name != TraceName || !strings.Contains(trace.input, `query="mountains"`) {
		t.Errorf("unexpected trace start %+v", trace)
	}
	if trace.output != "results=3 total=3 page=1" {
		t.Errorf("trace output = %q", trace.output)
	}
}

func TestTraceIDsAreUnique(t *testing.T) {
	plugin := newPlugin(&fakeSink{}, nil)
	seen := make(map[string]bool)
	for range 50 {
		ctx := context.Background()
		plugin.PreHook(&ctx, &interfaces.PhotoRequest{Type: interfaces.ListPhotosRequest})
		id, _ := TraceID(ctx)
		if seen[id] {
			t.Fatalf("duplicate trace id %s", id)
		}
		seen[id] = true
	}
}

func TestPostHookWithoutTrace(t *testing.T) {
	plugin := newPlugin(&fakeSink{}, nil)
	ctx := context.Background()
	res := &interfaces.PhotoResponse{}
	if got, err := plugin.PostHook(&ctx, res); err != nil || got != res {
		t.Errorf("PostHook() = %v, %v", got, err)
	}
}

func TestFailedRequestClosesTrace(t *testing.T) {
	sink := &fakeSink{}
	plugin := newPlugin(sink, nil)

	ctx := context.Background()
	plugin.PreHook(&ctx, &interfaces.PhotoRequest{Type: interfaces.UploadFromURLRequestType})
	traceID, _ := TraceID(ctx)

	plugin.OnError(&ctx, interfaces.NewPluginError("upload policy name is empty", nil))

	if got := sink.traces[traceID].output; got != "error: upload policy name is empty" {
		t.Errorf("trace output = %q", got)
	}
}
