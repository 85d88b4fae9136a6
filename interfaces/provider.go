package interfaces

import (
	"context"
	"strings"
)

type SupportedPhotoProvider string

const (
	Unsplash SupportedPhotoProvider = "unsplash"
)

//* Request Structs

// Orientation filters search results by photo orientation.
type Orientation string

const (
	OrientationLandscape Orientation = "landscape"
	OrientationPortrait  Orientation = "portrait"
	OrientationSquarish  Orientation = "squarish"
)

// SearchParams are the query parameters of a photo search.
type SearchParams struct {
	Query       string      `json:"query"`
	Page        int         `json:"page,omitempty"`
	PerPage     int         `json:"per_page,omitempty"`
	Orientation Orientation `json:"orientation,omitempty"`
	Color       string      `json:"color,omitempty"`
}

// UploadTarget is where download mode stores a copy of a photo.
type UploadTarget struct {
	PolicyName string  `json:"policyName"`
	GroupName  *string `json:"groupName,omitempty"`
	URLType    URLType `json:"urlType"`
}

//* Response Structs

type PhotoURLs struct {
	Raw     string `json:"raw"`
	Full    string `json:"full"`
	Regular string `json:"regular"`
	Small   string `json:"small"`
	Thumb   string `json:"thumb"`
}

// ByType returns the rendition for t, falling back to Raw when t is unknown
// or the rendition is missing.
func (urls PhotoURLs) ByType(t URLType) string {
	var u string
	switch t {
	case URLTypeFull:
		u = urls.Full
	case URLTypeRegular:
		u = urls.Regular
	case URLTypeSmall:
		u = urls.Small
	}
	if u == "" {
		return urls.Raw
	}
	return u
}

// AssetURL returns the rendition for t as a fully-qualified https URL.
func (urls PhotoURLs) AssetURL(t URLType) string {
	return absoluteURL(urls.ByType(t))
}

func absoluteURL(u string) string {
	switch {
	case u == "":
		return ""
	case strings.HasPrefix(u, "https://"), strings.HasPrefix(u, "http://"):
		return u
	case strings.HasPrefix(u, "//"):
		return "https:" + u
	default:
		return "https://" + strings.TrimLeft(u, "/")
	}
}

type PhotoLinks struct {
	Self             string `json:"self"`
	HTML             string `json:"html"`
	Download         string `json:"download"`
	DownloadLocation string `json:"download_location"`
}

type UserLinks struct {
	HTML string `json:"html"`
}

// PhotoUser is the photographer attribution of a photo.
type PhotoUser struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	Links    UserLinks `json:"links"`
}

// Photo is a single search result of the photo API.
type Photo struct {
	ID             string     `json:"id"`
	Width          int        `json:"width"`
	Height         int        `json:"height"`
	Color          string     `json:"color,omitempty"`
	BlurHash       string     `json:"blur_hash,omitempty"`
	Description    *string    `json:"description,omitempty"`
	AltDescription *string    `json:"alt_description,omitempty"`
	URLs           PhotoURLs  `json:"urls"`
	Links          PhotoLinks `json:"links"`
	User           PhotoUser  `json:"user"`
}

// DisplayName is the best human readable label for the photo.
func (p Photo) DisplayName() string {
	if p.Description != nil && *p.Description != "" {
		return *p.Description
	}
	if p.AltDescription != nil && *p.AltDescription != "" {
		return *p.AltDescription
	}
	return p.ID
}

// SearchResponse is one page of photos.
type SearchResponse struct {
	Total      int     `json:"total"`
	TotalPages int     `json:"total_pages"`
	Results    []Photo `json:"results"`

	Provider    SupportedPhotoProvider `json:"provider"`
	Page        int                    `json:"page"`
	RawResponse interface{}            `json:"raw_response,omitempty"`
}

// PhotoProvider is an external photo-search service.
type PhotoProvider interface {
	GetProviderKey() SupportedPhotoProvider
	SearchPhotos(ctx context.Context, key string, params SearchParams) (*SearchResponse, *PluginError)
	ListPhotos(ctx context.Context, key string, page, perPage int) (*SearchResponse, *PluginError)
	TrackDownload(ctx context.Context, key string, photo Photo) *PluginError
}
