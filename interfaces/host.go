package interfaces

import "context"

// UploadFromURLRequest asks the host to download a remote file into one of
// its storage policies.
type UploadFromURLRequest struct {
	URL        string  `json:"url"`
	PolicyName string  `json:"policyName"`
	GroupName  *string `json:"groupName,omitempty"`
	Filename   *string `json:"filename,omitempty"`
}

type AttachmentSpec struct {
	DisplayName string  `json:"displayName"`
	PolicyName  string  `json:"policyName"`
	GroupName   *string `json:"groupName,omitempty"`
	MediaType   string  `json:"mediaType,omitempty"`
	Size        int64   `json:"size,omitempty"`
}

type AttachmentStatus struct {
	Permalink string `json:"permalink,omitempty"`
}

// Attachment is a host-managed media asset.
type Attachment struct {
	Metadata Metadata         `json:"metadata"`
	Spec     AttachmentSpec   `json:"spec"`
	Status   AttachmentStatus `json:"status"`
}

// ConfigFetcher reads the plugin's config map from the host.
type ConfigFetcher interface {
	FetchPluginConfig(ctx context.Context, name string) (*ConfigMap, error)
}

// AttachmentUploader creates host attachments from remote URLs.
type AttachmentUploader interface {
	UploadFromURL(ctx context.Context, req UploadFromURLRequest) (*Attachment, *PluginError)
}

// Host is the subset of the host console API this plugin talks to.
type Host interface {
	ConfigFetcher
	AttachmentUploader
}
