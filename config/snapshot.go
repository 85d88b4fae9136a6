package config

import (
	"time"

	"github.com/halo-sigs/plugin-unsplash/interfaces"
)

// FetchState is the state of the configuration fetch.
type FetchState string

const (
	StateIdle    FetchState = "idle"
	StateLoading FetchState = "loading"
	StateLoaded  FetchState = "loaded"
	StateError   FetchState = "error"
)

// Snapshot is an immutable view of one fetched configuration.
// The zero value is the unconfigured state.
type Snapshot struct {
	basic     interfaces.BasicConfig
	state     FetchState
	err       error
	fetchedAt time.Time
}

// NewSnapshot wraps an already parsed configuration.
func NewSnapshot(basic interfaces.BasicConfig) Snapshot {
	return Snapshot{basic: basic, state: StateLoaded, fetchedAt: time.Now()}
}

func (s Snapshot) Basic() interfaces.BasicConfig { return s.basic }
func (s Snapshot) State() FetchState             { return s.state }
func (s Snapshot) Err() error                    { return s.err }
func (s Snapshot) FetchedAt() time.Time          { return s.fetchedAt }

// AccessKey is the photo API access key, empty when unset.
func (s Snapshot) AccessKey() string {
	if s.basic.AccessKey == nil {
		return ""
	}
	return *s.basic.AccessKey
}

// Configured reports whether searching is possible.
func (s Snapshot) Configured() bool {
	return s.AccessKey() != ""
}

// IsDownloadMode is true only when download mode is enabled and a storage
// policy is named. Enabled without a policy falls back to direct URLs.
func (s Snapshot) IsDownloadMode() bool {
	mode := s.basic.DownloadMode
	if mode == nil || mode.Enable == nil || !*mode.Enable {
		return false
	}
	return mode.PolicyName != nil && *mode.PolicyName != ""
}

// URLType is the configured rendition, raw when unset or unknown.
func (s Snapshot) URLType() interfaces.URLType {
	if s.basic.DownloadMode == nil || !s.basic.DownloadMode.URLType.Valid() {
		return interfaces.URLTypeRaw
	}
	return s.basic.DownloadMode.URLType
}

func (s Snapshot) PolicyName() string {
	if s.basic.DownloadMode == nil || s.basic.DownloadMode.PolicyName == nil {
		return ""
	}
	return *s.basic.DownloadMode.PolicyName
}

// GroupName is nil when no attachment group is configured.
func (s Snapshot) GroupName() *string {
	if s.basic.DownloadMode == nil || s.basic.DownloadMode.GroupName == nil || *s.basic.DownloadMode.GroupName == "" {
		return nil
	}
	group := *s.basic.DownloadMode.GroupName
	return &group
}

// UploadTarget returns the download mode target, nil outside download mode.
func (s Snapshot) UploadTarget() *interfaces.UploadTarget {
	if !s.IsDownloadMode() {
		return nil
	}
	return &interfaces.UploadTarget{
		PolicyName: s.PolicyName(),
		GroupName:  s.GroupName(),
		URLType:    s.URLType(),
	}
}
