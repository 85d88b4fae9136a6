package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/halo-sigs/plugin-unsplash/interfaces"
)

// FileSource serves a config map stored as a JSON document on disk. It lets
// the CLI run against an exported config map without a live host.
// The document is either a full config map or a bare {"basic": "..."} map.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Path() string { return f.path }

// FetchPluginConfig implements interfaces.ConfigFetcher. The name is ignored,
// the file holds a single plugin's config map.
func (f *FileSource) FetchPluginConfig(ctx context.Context, name string) (*interfaces.ConfigMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var configMap interfaces.ConfigMap
	if err := json.Unmarshal(raw, &configMap); err == nil && configMap.Data != nil {
		return &configMap, nil
	}

	var data map[string]string
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", f.path, err)
	}
	configMap = interfaces.ConfigMap{Metadata: interfaces.Metadata{Name: name}, Data: data}
	return &configMap, nil
}

// watchDebounce coalesces the burst of events editors emit on save.
const watchDebounce = 100 * time.Millisecond

// Watch refreshes resolver whenever the file changes, until ctx is done.
// The parent directory is watched so atomic rename-on-save is seen too.
func (f *FileSource) Watch(ctx context.Context, resolver *Resolver, logger interfaces.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(f.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				if logger != nil {
					logger.Debug(fmt.Sprintf("config file %s changed, refreshing", target))
				}
				resolver.Refresh(ctx)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				resolver.Refresh(ctx)
				continue
			}
			if logger != nil {
				logger.Error(fmt.Errorf("config watcher: %w", err))
			}
		}
	}
}
