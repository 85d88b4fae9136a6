package interfaces

import "time"

// PluginName is the name the host registers this plugin under.
const PluginName = "PluginUnsplash"

// BasicConfigGroup is the config map key holding the JSON encoded BasicConfig.
const BasicConfigGroup = "basic"

// URLType selects which photo rendition is inserted or uploaded.
type URLType string

const (
	URLTypeRaw     URLType = "raw"
	URLTypeFull    URLType = "full"
	URLTypeRegular URLType = "regular"
	URLTypeSmall   URLType = "small"
)

// Valid reports whether the URL type is one of the known renditions.
func (t URLType) Valid() bool {
	switch t {
	case URLTypeRaw, URLTypeFull, URLTypeRegular, URLTypeSmall:
		return true
	}
	return false
}

// DownloadMode is the "download then attach" policy of the basic config.
type DownloadMode struct {
	Enable     *bool   `json:"enable,omitempty"`
	PolicyName *string `json:"policyName,omitempty"`
	GroupName  *string `json:"groupName,omitempty"`
	URLType    URLType `json:"urlType,omitempty"`
}

// BasicConfig is the plugin configuration stored by the host under the
// "basic" group. Every field is optional.
type BasicConfig struct {
	AccessKey    *string       `json:"accessKey,omitempty"`
	DownloadMode *DownloadMode `json:"downloadMode,omitempty"`
}

// ConfigMap is the host's key/value configuration document for a plugin.
type ConfigMap struct {
	Metadata Metadata          `json:"metadata"`
	Data     map[string]string `json:"data,omitempty"`
}

// Metadata is the host's resource metadata.
type Metadata struct {
	Name              string            `json:"name"`
	Annotations       map[string]string `json:"annotations,omitempty"`
	CreationTimestamp *time.Time        `json:"creationTimestamp,omitempty"`
	Version           *int64            `json:"version,omitempty"`
}

// NetworkConfig holds the HTTP settings shared by the photo and host clients.
type NetworkConfig struct {
	BaseURL                        string        `json:"base_url"`
	DefaultRequestTimeoutInSeconds int           `json:"default_request_timeout_in_seconds"`
	MaxRetries                     int           `json:"max_retries"`
	RetryBackoffInitial            time.Duration `json:"retry_backoff_initial"`
	RetryBackoffMax                time.Duration `json:"retry_backoff_max"`
}

// ProxyType is the kind of proxy the fasthttp clients dial through.
type ProxyType string

const (
	NoProxy     ProxyType = "none"
	HttpProxy   ProxyType = "http"
	Socks5Proxy ProxyType = "socks5"
	EnvProxy    ProxyType = "environment"
)

// ProxyConfig configures an outbound proxy.
type ProxyConfig struct {
	Type     ProxyType `json:"type"`
	URL      string    `json:"url"`
	Username string    `json:"username"`
	Password string    `json:"password"`
}

// ConcurrencyAndBufferSize sizes the engine's worker pool and request queue.
type ConcurrencyAndBufferSize struct {
	Concurrency int `json:"concurrency"`
	BufferSize  int `json:"buffer_size"`
}

// ProviderConfig configures a single upstream client.
type ProviderConfig struct {
	NetworkConfig            NetworkConfig            `json:"network_config"`
	ProxyConfig              *ProxyConfig             `json:"proxy_config,omitempty"`
	ConcurrencyAndBufferSize ConcurrencyAndBufferSize `json:"concurrency_and_buffer_size"`
}

// HostCredentials authenticate requests to the host console API.
// Token wins over Username/Password when both are set.
type HostCredentials struct {
	Token    string `json:"token,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Defaults applied by the engine and providers when a field is left zero.
const (
	DefaultPhotoAPIBaseURL       = "https://api.unsplash.com"
	DefaultRequestTimeoutSeconds = 30
	DefaultMaxRetries            = 2
	DefaultRetryBackoffInitial   = 200 * time.Millisecond
	DefaultRetryBackoffMax       = 2 * time.Second
	DefaultConcurrency           = 4
	DefaultBufferSize            = 16
	DefaultPerPage               = 20
)

// DefaultProviderConfig returns a ProviderConfig with every default filled in.
func DefaultProviderConfig(baseURL string) ProviderConfig {
	return ProviderConfig{
		NetworkConfig: NetworkConfig{
			BaseURL:                        baseURL,
			DefaultRequestTimeoutInSeconds: DefaultRequestTimeoutSeconds,
			MaxRetries:                     DefaultMaxRetries,
			RetryBackoffInitial:            DefaultRetryBackoffInitial,
			RetryBackoffMax:                DefaultRetryBackoffMax,
		},
		ConcurrencyAndBufferSize: ConcurrencyAndBufferSize{
			Concurrency: DefaultConcurrency,
			BufferSize:  DefaultBufferSize,
		},
	}
}

// WithDefaults fills the zero fields of config from DefaultProviderConfig.
func (config ProviderConfig) WithDefaults(baseURL string) ProviderConfig {
	def := DefaultProviderConfig(baseURL)
	if config.NetworkConfig.BaseURL == "" {
		config.NetworkConfig.BaseURL = def.NetworkConfig.BaseURL
	}
	if config.NetworkConfig.DefaultRequestTimeoutInSeconds <= 0 {
		config.NetworkConfig.DefaultRequestTimeoutInSeconds = def.NetworkConfig.DefaultRequestTimeoutInSeconds
	}
	if config.NetworkConfig.MaxRetries < 0 {
		config.NetworkConfig.MaxRetries = 0
	}
	if config.NetworkConfig.RetryBackoffInitial <= 0 {
		config.NetworkConfig.RetryBackoffInitial = def.NetworkConfig.RetryBackoffInitial
	}
	if config.NetworkConfig.RetryBackoffMax <= 0 {
		config.NetworkConfig.RetryBackoffMax = def.NetworkConfig.RetryBackoffMax
	}
	if config.ConcurrencyAndBufferSize.Concurrency <= 0 {
		config.ConcurrencyAndBufferSize.Concurrency = def.ConcurrencyAndBufferSize.Concurrency
	}
	if config.ConcurrencyAndBufferSize.BufferSize <= 0 {
		config.ConcurrencyAndBufferSize.BufferSize = def.ConcurrencyAndBufferSize.BufferSize
	}
	return config
}
