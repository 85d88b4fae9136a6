package main

import (
	"os"
	"strings"

	"github.com/halo-sigs/plugin-unsplash/interfaces"
	"github.com/spf13/cobra"
)

// Environment variables read after .env is loaded.
const (
	envHaloURL      = "HALO_URL"
	envHaloToken    = "HALO_TOKEN"
	envHaloUsername = "HALO_USERNAME"
	envHaloPassword = "HALO_PASSWORD"
	envConfigFile   = "UNSPLASH_CONFIG_FILE"
	envProxyURL     = "UNSPLASH_PROXY_URL"
	envLogLevel     = "UNSPLASH_LOG_LEVEL"
	envMaximAPIKey  = "MAXIM_API_KEY"
	envMaximLogger  = "MAXIM_LOGGER_ID"
)

type options struct {
	haloURL     string
	credentials interfaces.HostCredentials
	configFile  string
	proxyURL    string
	logLevel    string
	apiBaseURL  string
	maxRetries  int
	maximAPIKey string
	maximLogger string
}

func defaultOptions() *options {
	return &options{
		haloURL: os.Getenv(envHaloURL),
		credentials: interfaces.HostCredentials{
			Token:    os.Getenv(envHaloToken),
			Username: os.Getenv(envHaloUsername),
			Password: os.Getenv(envHaloPassword),
		},
		configFile:  os.Getenv(envConfigFile),
		proxyURL:    os.Getenv(envProxyURL),
		logLevel:    envOr(envLogLevel, string(interfaces.LogLevelWarn)),
		apiBaseURL:  interfaces.DefaultPhotoAPIBaseURL,
		maxRetries:  interfaces.DefaultMaxRetries,
		maximAPIKey: os.Getenv(envMaximAPIKey),
		maximLogger: os.Getenv(envMaximLogger),
	}
}

func (o *options) bindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&o.haloURL, "halo-url", o.haloURL, "Halo site URL (env "+envHaloURL+")")
	flags.StringVar(&o.configFile, "config-file", o.configFile, "read the plugin config map from a JSON file instead of the host (env "+envConfigFile+")")
	flags.StringVar(&o.proxyURL, "proxy", o.proxyURL, "http://, socks5:// or \"env\" proxy for outbound requests (env "+envProxyURL+")")
	flags.StringVar(&o.logLevel, "log-level", o.logLevel, "debug, info, warn or error (env "+envLogLevel+")")
	flags.StringVar(&o.apiBaseURL, "api-url", o.apiBaseURL, "photo API base URL")
	flags.IntVar(&o.maxRetries, "max-retries", o.maxRetries, "retries for failed photo API and host requests")
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// proxyConfig maps a proxy URL to the fasthttp proxy settings. Credentials
// embedded in the URL are moved to the Username and Password fields.
func proxyConfig(raw string) *interfaces.ProxyConfig {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return nil
	case strings.EqualFold(raw, "env"), strings.EqualFold(raw, string(interfaces.EnvProxy)):
		return &interfaces.ProxyConfig{Type: interfaces.EnvProxy}
	case strings.HasPrefix(raw, "socks5://"):
		return &interfaces.ProxyConfig{Type: interfaces.Socks5Proxy, URL: raw}
	}

	address := strings.TrimPrefix(strings.TrimPrefix(raw, "http://"), "https://")
	config := &interfaces.ProxyConfig{Type: interfaces.HttpProxy, URL: address}
	if at := strings.LastIndex(address, "@"); at >= 0 {
		user, pass, _ := strings.Cut(address[:at], ":")
		config.Username, config.Password, config.URL = user, pass, address[at+1:]
	}
	return config
}

// maskKey hides all but the last four characters of an access key.
func maskKey(key string) string {
	if key == "" {
		return "<unset>"
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
