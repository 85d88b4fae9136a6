package main

import (
	"context"
	"fmt"

	unsplash "github.com/halo-sigs/plugin-unsplash"
	"github.com/halo-sigs/plugin-unsplash/config"
	"github.com/halo-sigs/plugin-unsplash/interfaces"
	"github.com/halo-sigs/plugin-unsplash/plugins/maxim"
	"github.com/halo-sigs/plugin-unsplash/providers"
	"github.com/halo-sigs/plugin-unsplash/registry"
	"github.com/halo-sigs/plugin-unsplash/selector"
)

// app is the console side of the plugin assembled for one CLI invocation.
type app struct {
	logger   *unsplash.DefaultLogger
	source   *config.FileSource
	resolver *config.Resolver
	engine   *unsplash.Unsplash
	registry *registry.Registry
}

func newApp(opts *options) (*app, error) {
	logger := unsplash.NewDefaultLogger(interfaces.ParseLogLevel(opts.logLevel))
	proxy := proxyConfig(opts.proxyURL)

	var host *providers.HaloClient
	if opts.haloURL != "" {
		hostConfig := interfaces.DefaultProviderConfig(opts.haloURL)
		hostConfig.NetworkConfig.MaxRetries = opts.maxRetries
		hostConfig.ProxyConfig = proxy

		var err error
		host, err = providers.NewHaloClient(&hostConfig, opts.credentials, logger)
		if err != nil {
			return nil, err
		}
	}

	var (
		fetcher interfaces.ConfigFetcher
		source  *config.FileSource
	)
	switch {
	case opts.configFile != "":
		source = config.NewFileSource(opts.configFile)
		fetcher = source
	case host != nil:
		fetcher = host
	default:
		return nil, fmt.Errorf("no configuration source: set --halo-url or --config-file")
	}

	resolver := config.NewResolver(fetcher, logger)

	var hooks []interfaces.Hook
	if opts.maximAPIKey != "" && opts.maximLogger != "" {
		plugin, err := maxim.Init(maxim.Config{APIKey: opts.maximAPIKey, LoggerID: opts.maximLogger}, logger)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, plugin)
	}

	providerConfig := interfaces.DefaultProviderConfig(opts.apiBaseURL)
	providerConfig.NetworkConfig.MaxRetries = opts.maxRetries
	providerConfig.ProxyConfig = proxy

	engineConfig := interfaces.EngineConfig{
		Account:        resolver,
		ProviderConfig: &providerConfig,
		Hooks:          hooks,
		Logger:         logger,
	}
	// A nil *HaloClient must not become a non-nil interface.
	if host != nil {
		engineConfig.Host = host
	}

	engine, err := unsplash.Init(engineConfig)
	if err != nil {
		return nil, err
	}

	reg := registry.New(logger)
	component := selector.NewComponent(engine, resolver, logger)
	if err := reg.Install(unsplash.ConsolePlugin(component)); err != nil {
		engine.Shutdown()
		return nil, err
	}
	if err := reg.Activate(interfaces.PluginName); err != nil {
		engine.Shutdown()
		return nil, err
	}

	return &app{
		logger:   logger,
		source:   source,
		resolver: resolver,
		engine:   engine,
		registry: reg,
	}, nil
}

// mount opens the Unsplash tab of the media picker.
func (a *app) mount(ctx context.Context, onSelect interfaces.SelectHandler) (*selector.Selector, error) {
	provider, ok := a.registry.Provider(unsplash.ProviderID)
	if !ok {
		return nil, fmt.Errorf("provider %q is not registered", unsplash.ProviderID)
	}
	instance, err := provider.Component.Mount(ctx, onSelect)
	if err != nil {
		return nil, err
	}
	sel, ok := instance.(*selector.Selector)
	if !ok {
		instance.Close()
		return nil, fmt.Errorf("unexpected selector instance %T", instance)
	}
	return sel, nil
}

func (a *app) Close() {
	a.engine.Shutdown()
}
