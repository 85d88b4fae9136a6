package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/halo-sigs/plugin-unsplash/interfaces"
	"github.com/maximhq/maxim-go"
)

type nopLogger struct{}

func (nopLogger) Debug(string) {}
func (nopLogger) Info(string)  {}
func (nopLogger) Warn(string)  {}
func (nopLogger) Error(error)  {}

// fakeFetcher serves configMap (or err) and counts calls. When gate is set
// every fetch blocks until it is closed.
type fakeFetcher struct {
	mu        sync.Mutex
	configMap *interfaces.ConfigMap
	err       error
	gate      chan struct{}
	calls     atomic.Int32
}

func (f *fakeFetcher) set(basic string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configMap = &interfaces.ConfigMap{Data: map[string]string{interfaces.BasicConfigGroup: basic}}
	f.err = nil
}

func (f *fakeFetcher) FetchPluginConfig(ctx context.Context, name string) (*interfaces.ConfigMap, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if name != interfaces.PluginName {
		return nil, errors.New("unexpected plugin name " + name)
	}
	return f.configMap, f.err
}

func TestParseBasicNeverFails(t *testing.T) {
	inputs := []string{"", "   ", "null", "{}", "not json", "{", `{"accessKey": 42}`, `[]`, `{"downloadMode": "yes"}`}
	for _, raw := range inputs {
		basic, _ := ParseBasic(raw)
		snapshot := NewSnapshot(basic)
		if snapshot.AccessKey() != "" || snapshot.IsDownloadMode() {
			t.Errorf("ParseBasic(%q) produced configured defaults: %+v", raw, basic)
		}
		if snapshot.URLType() != interfaces.URLTypeRaw {
			t.Errorf("ParseBasic(%q) URLType = %q", raw, snapshot.URLType())
		}
	}
}

func TestParseBasicFull(t *testing.T) {
	basic, err := ParseBasic(`{"accessKey":"k","downloadMode":{"enable":true,"policyName":"p","groupName":"g","urlType":"small"}}`)
	if err != nil {
		t.Fatalf("ParseBasic() error = %v", err)
	}
	want := interfaces.BasicConfig{
		AccessKey: maxim.StrPtr("k"),
		DownloadMode: &interfaces.DownloadMode{
			Enable:     boolPtr(true),
			PolicyName: maxim.StrPtr("p"),
			GroupName:  maxim.StrPtr("g"),
			URLType:    interfaces.URLTypeSmall,
		},
	}
	if diff := cmp.Diff(want, basic); diff != "" {
		t.Errorf("ParseBasic() mismatch (-want +got):\n%s", diff)
	}
}

func boolPtr(b bool) *bool { return &b }

func TestIsDownloadMode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{name: "empty", raw: `{}`, want: false},
		{name: "no download mode", raw: `{"accessKey":"k"}`, want: false},
		{name: "enabled without policy", raw: `{"downloadMode":{"enable":true}}`, want: false},
		{name: "enabled with empty policy", raw: `{"downloadMode":{"enable":true,"policyName":""}}`, want: false},
		{name: "disabled with policy", raw: `{"downloadMode":{"enable":false,"policyName":"p"}}`, want: false},
		{name: "enable unset with policy", raw: `{"downloadMode":{"policyName":"p"}}`, want: false},
		{name: "enabled with policy", raw: `{"downloadMode":{"enable":true,"policyName":"p"}}`, want: true},
		{name: "full", raw: `{"downloadMode":{"enable":true,"policyName":"p","groupName":"g","urlType":"small"}}`, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			basic, err := ParseBasic(tt.raw)
			if err != nil {
				t.Fatalf("ParseBasic() error = %v", err)
			}
			if got := NewSnapshot(basic).IsDownloadMode(); got != tt.want {
				t.Errorf("IsDownloadMode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSnapshotDerivedValues(t *testing.T) {
	basic, _ := ParseBasic(`{"downloadMode":{"enable":true,"policyName":"p","groupName":"g","urlType":"small"}}`)
	snapshot := NewSnapshot(basic)

	if snapshot.AccessKey() != "" {
		t.Errorf("AccessKey() = %q, want empty", snapshot.AccessKey())
	}
	want := &interfaces.UploadTarget{PolicyName: "p", GroupName: maxim.StrPtr("g"), URLType: interfaces.URLTypeSmall}
	if diff := cmp.Diff(want, snapshot.UploadTarget()); diff != "" {
		t.Errorf("UploadTarget() mismatch (-want +got):\n%s", diff)
	}

	unknown, _ := ParseBasic(`{"downloadMode":{"urlType":"huge","groupName":""}}`)
	if got := NewSnapshot(unknown).URLType(); got != interfaces.URLTypeRaw {
		t.Errorf("unknown URLType resolved to %q, want raw", got)
	}
	if NewSnapshot(unknown).GroupName() != nil {
		t.Error("empty group name must resolve to nil")
	}
	if NewSnapshot(unknown).UploadTarget() != nil {
		t.Error("UploadTarget() outside download mode must be nil")
	}
}

func TestResolverMemoizes(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set(`{"accessKey":"k"}`)
	resolver := NewResolver(fetcher, nopLogger{})

	if !resolver.IsLoading() {
		t.Error("IsLoading() before the first fetch = false")
	}

	for range 3 {
		snapshot := resolver.Resolve(context.Background())
		if snapshot.AccessKey() != "k" || snapshot.State() != StateLoaded {
			t.Fatalf("unexpected snapshot %+v", snapshot)
		}
	}
	if got := fetcher.calls.Load(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
	if resolver.IsLoading() || resolver.IsFetching() {
		t.Error("resolver still loading after fetch")
	}

	fetcher.set(`{"accessKey":"k2"}`)
	if got := resolver.Refresh(context.Background()).AccessKey(); got != "k2" {
		t.Errorf("Refresh() AccessKey = %q, want k2", got)
	}
	if got := fetcher.calls.Load(); got != 2 {
		t.Errorf("fetch calls after refresh = %d, want 2", got)
	}
}

func TestResolverSharesInflightFetch(t *testing.T) {
	fetcher := &fakeFetcher{gate: make(chan struct{})}
	fetcher.set(`{"accessKey":"k"}`)
	resolver := NewResolver(fetcher, nopLogger{})

	var wg sync.WaitGroup
	results := make([]Snapshot, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = resolver.Resolve(context.Background())
		}(i)
	}

	deadline := time.Now().Add(time.Second)
	for !resolver.IsFetching() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if resolver.Current().State() != StateLoading {
		t.Errorf("Current().State() during first fetch = %q", resolver.Current().State())
	}
	close(fetcher.gate)
	wg.Wait()

	for i, snapshot := range results {
		if snapshot.AccessKey() != "k" {
			t.Errorf("result %d AccessKey = %q", i, snapshot.AccessKey())
		}
	}
	if got := fetcher.calls.Load(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
}

func TestResolverDegradesOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		fetcher interfaces.ConfigFetcher
	}{
		{name: "fetch error", fetcher: &fakeFetcher{err: errors.New("connection refused")}},
		{name: "malformed basic", fetcher: func() *fakeFetcher { f := &fakeFetcher{}; f.set("{oops"); return f }()},
		{name: "nil config map", fetcher: &fakeFetcher{}},
		{name: "no fetcher", fetcher: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := NewResolver(tt.fetcher, nopLogger{})
			snapshot := resolver.Resolve(context.Background())
			if snapshot.AccessKey() != "" || snapshot.IsDownloadMode() || snapshot.Configured() {
				t.Errorf("expected unconfigured snapshot, got %+v", snapshot)
			}
			if _, err := resolver.GetAccessKey(context.Background()); !errors.Is(err, interfaces.ErrMissingAccessKey) {
				t.Errorf("GetAccessKey() err = %v", err)
			}
		})
	}
}

func TestResolverErrorState(t *testing.T) {
	resolver := NewResolver(&fakeFetcher{err: errors.New("boom")}, nopLogger{})
	snapshot := resolver.Resolve(context.Background())
	if snapshot.State() != StateError || snapshot.Err() == nil {
		t.Errorf("State() = %q, Err() = %v", snapshot.State(), snapshot.Err())
	}
}

func TestResolverSubscribe(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set(`{"accessKey":"a"}`)
	resolver := NewResolver(fetcher, nopLogger{})

	updates := resolver.Subscribe()
	resolver.Resolve(context.Background())
	fetcher.set(`{"accessKey":"b"}`)
	resolver.Refresh(context.Background())

	select {
	case snapshot := <-updates:
		if snapshot.AccessKey() != "b" {
			t.Errorf("latest snapshot AccessKey = %q, want b", snapshot.AccessKey())
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	resolver.Unsubscribe(updates)
	if _, ok := <-updates; ok {
		t.Error("channel not closed after Unsubscribe")
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()

	full := filepath.Join(dir, "full.json")
	writeFile(t, full, `{"metadata":{"name":"cm"},"data":{"basic":"{\"accessKey\":\"k1\"}"}}`)
	bare := filepath.Join(dir, "bare.json")
	writeFile(t, bare, `{"basic":"{\"accessKey\":\"k2\"}"}`)

	for path, want := range map[string]string{full: "k1", bare: "k2"} {
		resolver := NewResolver(NewFileSource(path), nopLogger{})
		if got := resolver.Resolve(context.Background()).AccessKey(); got != want {
			t.Errorf("%s: AccessKey = %q, want %q", filepath.Base(path), got, want)
		}
	}

	missing := NewResolver(NewFileSource(filepath.Join(dir, "missing.json")), nopLogger{})
	if missing.Resolve(context.Background()).State() != StateError {
		t.Error("missing file must resolve to the error state")
	}
}

func TestFileSourceWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{"basic":"{\"accessKey\":\"before\"}"}`)

	source := NewFileSource(path)
	resolver := NewResolver(source, nopLogger{})
	resolver.Resolve(context.Background())
	updates := resolver.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- source.Watch(ctx, resolver, nopLogger{}) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give the watcher a moment to register before writing.
	time.Sleep(50 * time.Millisecond)
	writeFile(t, path, `{"basic":"{\"accessKey\":\"after\"}"}`)

	timeout := time.After(5 * time.Second)
	for {
		select {
		case snapshot := <-updates:
			if snapshot.AccessKey() == "after" {
				return
			}
		case <-timeout:
			t.Fatalf("watch did not refresh, current AccessKey = %q", resolver.Current().AccessKey())
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// sourceFetcher reads its value when a fetch starts; the first fetch then
// blocks until release is closed, like a read racing a file write.
type sourceFetcher struct {
	mu      sync.Mutex
	basic   string
	calls   int
	started chan struct{}
	release chan struct{}
}

func (f *sourceFetcher) write(basic string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.basic = basic
}

func (f *sourceFetcher) FetchPluginConfig(ctx context.Context, name string) (*interfaces.ConfigMap, error) {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	basic := f.basic
	f.mu.Unlock()

	if first {
		close(f.started)
		<-f.release
	}
	return &interfaces.ConfigMap{Data: map[string]string{interfaces.BasicConfigGroup: basic}}, nil
}

func TestRefreshDuringFetchSeesLatestSource(t *testing.T) {
	fetcher := &sourceFetcher{basic: `{"accessKey":"old"}`, started: make(chan struct{}), release: make(chan struct{})}
	resolver := NewResolver(fetcher, nopLogger{})

	first := make(chan Snapshot, 1)
	go func() { first <- resolver.Resolve(context.Background()) }()
	<-fetcher.started

	fetcher.write(`{"accessKey":"new"}`)
	refreshed := make(chan Snapshot, 1)
	go func() { refreshed <- resolver.Refresh(context.Background()) }()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		resolver.mu.Lock()
		queued := resolver.pending != nil
		resolver.mu.Unlock()
		if queued {
			break
		}
		time.Sleep(time.Millisecond)
	}
	close(fetcher.release)

	if got := (<-first).AccessKey(); got != "old" {
		t.Errorf("first Resolve AccessKey = %q, want old", got)
	}
	select {
	case snapshot := <-refreshed:
		if snapshot.AccessKey() != "new" {
			t.Errorf("Refresh AccessKey = %q, want new", snapshot.AccessKey())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Refresh never returned")
	}
	if got := resolver.Current().AccessKey(); got != "new" {
		t.Errorf("Current AccessKey = %q, want new", got)
	}
	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	if fetcher.calls != 2 {
		t.Errorf("fetch calls = %d, want 2", fetcher.calls)
	}
}
