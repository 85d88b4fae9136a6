// Package selector implements the attachment selector provider mounted in
// the host's media picker.
//
// A Selector moves through Idle, Searching, Results, then either Selecting
// and Inserted (direct mode) or DownloadPending and Attached (download
// mode). Error is reachable from Searching and DownloadPending and Retry
// re-issues the failed operation.
package selector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/halo-sigs/plugin-unsplash/config"
	"github.com/halo-sigs/plugin-unsplash/interfaces"
	"github.com/samber/lo"
)

// PhotoService is the engine surface the selector needs.
type PhotoService interface {
	SearchPhotos(ctx context.Context, params interfaces.SearchParams) (*interfaces.SearchResponse, *interfaces.PluginError)
	UploadPhoto(ctx context.Context, photo interfaces.Photo, target interfaces.UploadTarget) (*interfaces.Attachment, *interfaces.PluginError)
}

// ConfigSource yields the resolved plugin configuration.
type ConfigSource interface {
	Resolve(ctx context.Context) config.Snapshot
}

// operation is the last user action, kept so Retry can repeat it.
type operation int

const (
	opNone operation = iota
	opSearch
	opUpload
)

// View is an immutable copy of the selector state for rendering.
type View struct {
	State      interfaces.SelectorState
	Query      string
	Page       int
	TotalPages int
	Results    []interfaces.Photo
	Selected   *interfaces.SelectedAttachment
	Err        error
	// Configured is false when no access key is set; the UI shows a
	// configuration prompt instead of the search box.
	Configured bool
	// DownloadMode mirrors the resolved configuration.
	DownloadMode bool
}

// Selector is one mounted selector provider.
type Selector struct {
	service  PhotoService
	configs  ConfigSource
	onSelect interfaces.SelectHandler
	logger   interfaces.Logger
	perPage  int

	mu           sync.Mutex
	view         View
	generation   uint64
	cancelSearch context.CancelFunc
	lastOp       operation
	lastPhoto    *interfaces.Photo
	listeners    []func(View)
	closed       bool
}

// New creates a Selector in the Idle state.
func New(service PhotoService, configs ConfigSource, onSelect interfaces.SelectHandler, logger interfaces.Logger) *Selector {
	return &Selector{
		service:  service,
		configs:  configs,
		onSelect: onSelect,
		logger:   logger,
		perPage:  interfaces.DefaultPerPage,
		view:     View{State: interfaces.StateIdle},
	}
}

// SetPerPage sets the page size of subsequent searches.
func (s *Selector) SetPerPage(perPage int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if perPage > 0 {
		s.perPage = perPage
	}
}

// View returns the current view.
func (s *Selector) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyViewLocked()
}

// State implements interfaces.SelectorInstance.
func (s *Selector) State() interfaces.SelectorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.State
}

// Subscribe registers fn to be called with the new view after each transition.
func (s *Selector) Subscribe(fn func(View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Close cancels any in-flight search and drops listeners.
func (s *Selector) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelSearch != nil {
		s.cancelSearch()
		s.cancelSearch = nil
	}
	s.listeners = nil
	s.closed = true
}

// Search issues a search for query. An empty query lists the latest photos.
// The most recent call wins: it cancels the previous in-flight search and a
// superseded call returns ErrSuperseded without touching the view.
func (s *Selector) Search(ctx context.Context, query string, page int) (*interfaces.SearchResponse, error) {
	snapshot, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, context.Canceled
	}
	if s.cancelSearch != nil {
		s.cancelSearch()
	}
	s.generation++
	generation := s.generation
	searchCtx, cancel := context.WithCancel(ctx)
	s.cancelSearch = cancel

	s.lastOp = opSearch
	s.view.Query = query
	s.view.Page = max(page, 1)
	s.view.Configured = snapshot.Configured()
	s.view.DownloadMode = snapshot.IsDownloadMode()
	s.view.Err = nil

	if !snapshot.Configured() {
		s.view.State = interfaces.StateError
		s.view.Err = interfaces.ErrMissingAccessKey
		s.cancelSearch = nil
		s.mu.Unlock()
		cancel()
		s.notify()
		return nil, interfaces.ErrMissingAccessKey
	}

	s.view.State = interfaces.StateSearching
	params := interfaces.SearchParams{Query: query, Page: s.view.Page, PerPage: s.perPage}
	s.mu.Unlock()
	s.notify()

	resp, pluginErr := s.service.SearchPhotos(searchCtx, params)

	s.mu.Lock()
	if generation != s.generation || s.closed {
		s.mu.Unlock()
		cancel()
		return nil, interfaces.ErrSuperseded
	}
	s.cancelSearch = nil
	cancel()

	if pluginErr != nil {
		err := pluginErr.Err()
		s.view.State = interfaces.StateError
		s.view.Err = err
		s.mu.Unlock()
		if s.logger != nil {
			s.logger.Warn(fmt.Sprintf("photo search %q failed: %v", query, err))
		}
		s.notify()
		return nil, err
	}

	s.view.State = interfaces.StateResults
	s.view.Results = resp.Results
	s.view.TotalPages = resp.TotalPages
	s.view.Selected = nil
	s.mu.Unlock()
	s.notify()

	return resp, nil
}

// Select picks a photo from the current results.
func (s *Selector) Select(ctx context.Context, photoID string) (*interfaces.SelectedAttachment, error) {
	s.mu.Lock()
	photo, ok := lo.Find(s.view.Results, func(p interfaces.Photo) bool { return p.ID == photoID })
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrPhotoNotFound, photoID)
	}
	return s.selectPhoto(ctx, photo)
}

// SelectMany attaches several photos. Each photo is handled independently;
// a failure is reported for that photo and does not undo the others.
func (s *Selector) SelectMany(ctx context.Context, photoIDs []string) ([]interfaces.SelectedAttachment, map[string]error) {
	var selected []interfaces.SelectedAttachment
	failures := make(map[string]error)

	for _, id := range lo.Uniq(photoIDs) {
		item, err := s.Select(ctx, id)
		if err != nil {
			failures[id] = err
			continue
		}
		selected = append(selected, *item)
	}
	return selected, failures
}

// Retry re-issues the last failed operation: the same query, or the same
// photo upload.
func (s *Selector) Retry(ctx context.Context) error {
	s.mu.Lock()
	if s.view.State != interfaces.StateError {
		s.mu.Unlock()
		return interfaces.ErrNothingToRetry
	}
	op, query, page, photo := s.lastOp, s.view.Query, s.view.Page, s.lastPhoto
	s.mu.Unlock()

	switch op {
	case opSearch:
		_, err := s.Search(ctx, query, page)
		return err
	case opUpload:
		if photo == nil {
			return interfaces.ErrNothingToRetry
		}
		_, err := s.selectPhoto(ctx, *photo)
		return err
	default:
		return interfaces.ErrNothingToRetry
	}
}

func (s *Selector) selectPhoto(ctx context.Context, photo interfaces.Photo) (*interfaces.SelectedAttachment, error) {
	snapshot, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}

	if !snapshot.IsDownloadMode() {
		selected := interfaces.SelectedAttachment{
			Photo: photo,
			URL:   photo.URLs.AssetURL(snapshot.URLType()),
		}
		s.transition(interfaces.StateSelecting, nil, nil)
		s.deliver(selected)
		s.transition(interfaces.StateInserted, &selected, nil)
		return &selected, nil
	}

	target := snapshot.UploadTarget()

	s.mu.Lock()
	s.lastOp = opUpload
	s.lastPhoto = &photo
	s.mu.Unlock()
	s.transition(interfaces.StateDownloadPending, nil, nil)

	attachment, pluginErr := s.service.UploadPhoto(ctx, photo, *target)
	if pluginErr != nil {
		err := fmt.Errorf("attach photo %s: %w", photo.ID, pluginErr.Err())
		if s.logger != nil {
			s.logger.Warn(err.Error())
		}
		s.transition(interfaces.StateError, nil, err)
		return nil, err
	}

	selected := interfaces.SelectedAttachment{
		Photo:      photo,
		URL:        attachment.Status.Permalink,
		Attachment: attachment,
	}
	s.deliver(selected)
	s.transition(interfaces.StateAttached, &selected, nil)
	return &selected, nil
}

// resolve returns the configuration, or an error when ctx ended before the
// first fetch completed. A missing key is only reported for a loaded config.
func (s *Selector) resolve(ctx context.Context) (config.Snapshot, error) {
	snapshot := s.configs.Resolve(ctx)
	if err := ctx.Err(); err != nil {
		return snapshot, err
	}
	if snapshot.State() == config.StateLoading {
		return snapshot, interfaces.ErrConfigLoading
	}
	return snapshot, nil
}

func (s *Selector) deliver(selected interfaces.SelectedAttachment) {
	if s.onSelect != nil {
		s.onSelect(selected)
	}
}

func (s *Selector) transition(state interfaces.SelectorState, selected *interfaces.SelectedAttachment, err error) {
	s.mu.Lock()
	s.view.State = state
	s.view.Err = err
	if selected != nil {
		s.view.Selected = selected
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Selector) copyViewLocked() View {
	view := s.view
	view.Results = append([]interfaces.Photo(nil), s.view.Results...)
	return view
}

func (s *Selector) notify() {
	s.mu.Lock()
	view := s.copyViewLocked()
	listeners := append([]func(View){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(view)
	}
}

// IsSuperseded reports whether err came from a search replaced by a newer one.
func IsSuperseded(err error) bool {
	return errors.Is(err, interfaces.ErrSuperseded)
}
