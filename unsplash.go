// Package unsplash wires the photo-search provider and the host attachment
// API behind a queued request engine, and declares the console and admin
// plugin definitions contributed to the host.
package unsplash

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/halo-sigs/plugin-unsplash/interfaces"
	"github.com/halo-sigs/plugin-unsplash/providers"
)

// Metrics to track timing
type RequestMetrics struct {
	TotalTime      time.Duration `json:"total_time"`
	QueueWaitTime  time.Duration `json:"queue_wait_time"`
	KeyLookupTime  time.Duration `json:"key_lookup_time"`
	ProviderTime   time.Duration `json:"provider_time"`
	PluginPreTime  time.Duration `json:"plugin_pre_time"`
	PluginPostTime time.Duration `json:"plugin_post_time"`
	RequestCount   int64         `json:"request_count"`
	ErrorCount     int64         `json:"error_count"`
}

type ChannelMessage struct {
	interfaces.PhotoRequest
	Context   context.Context
	Response  chan *interfaces.PhotoResponse
	Err       chan interfaces.PluginError
	Timestamp time.Time
}

// Unsplash owns the request queue and the workers serving photo API and
// host upload requests.
type Unsplash struct {
	account             interfaces.Account
	provider            interfaces.PhotoProvider
	host                interfaces.AttachmentUploader
	hooks               []interfaces.Hook
	config              interfaces.ProviderConfig
	requestQueue        chan *ChannelMessage
	waitGroup           sync.WaitGroup
	queueMutex          sync.RWMutex
	closed              bool
	channelMessagePool  sync.Pool // Pool for ChannelMessage objects
	responseChannelPool sync.Pool // Pool for response channels
	errorChannelPool    sync.Pool // Pool for error channels
	logger              interfaces.Logger
	metrics             RequestMetrics
	metricsMutex        sync.RWMutex

	// Pool usage counters
	channelMessageGets       atomic.Int64
	channelMessagePuts       atomic.Int64
	channelMessageCreations  atomic.Int64
	responseChannelGets      atomic.Int64
	responseChannelPuts      atomic.Int64
	responseChannelCreations atomic.Int64
	errorChannelGets         atomic.Int64
	errorChannelPuts         atomic.Int64
	errorChannelCreations    atomic.Int64
}

// Init initializes a new engine and starts its workers.
func Init(config interfaces.EngineConfig) (*Unsplash, error) {
	if config.Account == nil {
		return nil, fmt.Errorf("account is required to initialize the engine")
	}

	if config.Logger == nil {
		config.Logger = NewDefaultLogger(interfaces.LogLevelInfo)
	}

	providerConfig := interfaces.DefaultProviderConfig(interfaces.DefaultPhotoAPIBaseURL)
	if config.ProviderConfig != nil {
		providerConfig = config.ProviderConfig.WithDefaults(interfaces.DefaultPhotoAPIBaseURL)
	}

	if config.PhotoProvider == nil {
		config.PhotoProvider = providers.NewUnsplashProvider(&providerConfig, config.Logger)
	}

	engine := &Unsplash{
		account:      config.Account,
		provider:     config.PhotoProvider,
		host:         config.Host,
		hooks:        config.Hooks,
		config:       providerConfig,
		logger:       config.Logger,
		requestQueue: make(chan *ChannelMessage, providerConfig.ConcurrencyAndBufferSize.BufferSize),
	}

	// Initialize object pools
	engine.channelMessagePool = sync.Pool{
		New: func() interface{} {
			engine.channelMessageCreations.Add(1)
			return &ChannelMessage{}
		},
	}
	engine.responseChannelPool = sync.Pool{
		New: func() interface{} {
			engine.responseChannelCreations.Add(1)
			return make(chan *interfaces.PhotoResponse, 1)
		},
	}
	engine.errorChannelPool = sync.Pool{
		New: func() interface{} {
			engine.errorChannelCreations.Add(1)
			return make(chan interfaces.PluginError, 1)
		},
	}

	// Prewarm pools to the queue size
	for range providerConfig.ConcurrencyAndBufferSize.BufferSize {
		engine.channelMessagePool.Put(&ChannelMessage{})
		engine.responseChannelPool.Put(make(chan *interfaces.PhotoResponse, 1))
		engine.errorChannelPool.Put(make(chan interfaces.PluginError, 1))
	}

	for range providerConfig.ConcurrencyAndBufferSize.Concurrency {
		engine.waitGroup.Add(1)
		go engine.processRequests()
	}

	engine.logger.Debug(fmt.Sprintf("started %d workers for provider %s",
		providerConfig.ConcurrencyAndBufferSize.Concurrency, engine.provider.GetProviderKey()))

	return engine, nil
}

// getChannelMessage gets a ChannelMessage from the pool
func (engine *Unsplash) getChannelMessage(ctx context.Context, req interfaces.PhotoRequest) *ChannelMessage {
	engine.responseChannelGets.Add(1)
	responseChan := engine.responseChannelPool.Get().(chan *interfaces.PhotoResponse)

	engine.errorChannelGets.Add(1)
	errorChan := engine.errorChannelPool.Get().(chan interfaces.PluginError)

	// Clear any previous values to avoid leaking between requests
	select {
	case <-responseChan:
	default:
	}
	select {
	case <-errorChan:
	default:
	}

	engine.channelMessageGets.Add(1)
	msg := engine.channelMessagePool.Get().(*ChannelMessage)
	msg.PhotoRequest = req
	msg.Context = ctx
	msg.Response = responseChan
	msg.Err = errorChan
	msg.Timestamp = time.Now()

	return msg
}

// releaseChannelMessage returns a ChannelMessage and its channels to the pool
func (engine *Unsplash) releaseChannelMessage(msg *ChannelMessage) {
	engine.responseChannelPuts.Add(1)
	engine.responseChannelPool.Put(msg.Response)

	engine.errorChannelPuts.Add(1)
	engine.errorChannelPool.Put(msg.Err)

	// Clear references and return to pool
	msg.Response = nil
	msg.Err = nil
	msg.Context = nil
	engine.channelMessagePuts.Add(1)
	engine.channelMessagePool.Put(msg)
}

// calculateBackoff implements exponential backoff with jitter
func (engine *Unsplash) calculateBackoff(attempt int) time.Duration {
	network := engine.config.NetworkConfig

	// Calculate an exponential backoff: initial * 2^attempt
	backoff := network.RetryBackoffInitial * time.Duration(1<<uint(attempt))
	if backoff > network.RetryBackoffMax {
		backoff = network.RetryBackoffMax
	}

	// Add jitter (±20%)
	jitter := float64(backoff) * (0.8 + 0.4*rand.Float64())

	return time.Duration(jitter)
}

// shouldRetry reports whether a failed attempt is worth repeating. Local
// failures and client errors other than rate limiting are final.
func shouldRetry(pluginErr *interfaces.PluginError) bool {
	if pluginErr == nil || pluginErr.IsPluginError {
		return false
	}
	if pluginErr.StatusCode == nil {
		return true
	}
	status := *pluginErr.StatusCode
	return status == 429 || status >= 500
}

func (engine *Unsplash) processRequests() {
	defer engine.waitGroup.Done()

	for req := range engine.requestQueue {
		startTime := time.Now()
		queueWaitTime := startTime.Sub(req.Timestamp)
		ctx := req.Context

		if err := ctx.Err(); err != nil {
			engine.recordMetrics(queueWaitTime, 0, 0, 0, 0, time.Since(startTime), false)
			req.Err <- *interfaces.NewPluginError(err.Error(), err)
			continue
		}

		keyLookupStart := time.Now()
		key, err := engine.account.GetAccessKey(ctx)
		keyLookupTime := time.Since(keyLookupStart)

		// Uploads only need the key to report the download to the photo API.
		if err != nil && req.Type != interfaces.UploadFromURLRequestType {
			engine.recordMetrics(queueWaitTime, keyLookupTime, 0, 0, 0, time.Since(startTime), false)
			req.Err <- *interfaces.NewPluginError(err.Error(), err)
			continue
		}

		var result *interfaces.PhotoResponse
		var pluginErr *interfaces.PluginError

		// Track attempts
		var attempts int
		maxRetries := engine.config.NetworkConfig.MaxRetries
		if req.Type == interfaces.UploadFromURLRequestType {
			// The host may have stored the file before the failure surfaced;
			// repeating the upload would create a second attachment.
			maxRetries = 0
		}

		providerStart := time.Now()

		for attempts = 0; attempts <= maxRetries; attempts++ {
			if attempts > 0 {
				engine.logger.Info(fmt.Sprintf(
					"retrying %s request (attempt %d/%d): %s",
					req.Type, attempts, maxRetries, pluginErr.Error.Message,
				))

				select {
				case <-time.After(engine.calculateBackoff(attempts - 1)):
				case <-ctx.Done():
					pluginErr = interfaces.NewPluginError(ctx.Err().Error(), ctx.Err())
				}
				if ctx.Err() != nil {
					break
				}
			}

			result, pluginErr = engine.execute(ctx, key, &req.PhotoRequest)

			if !shouldRetry(pluginErr) {
				break
			}
		}

		providerTime := time.Since(providerStart)
		engine.recordMetrics(queueWaitTime, keyLookupTime, providerTime, 0, 0, time.Since(startTime), pluginErr == nil)

		if pluginErr != nil {
			if attempts > 0 {
				engine.logger.Warn(fmt.Sprintf("%s request failed after %d %s",
					req.Type, attempts,
					map[bool]string{true: "retries", false: "retry"}[attempts > 1]))
			}
			req.Err <- *pluginErr
		} else {
			req.Response <- result
		}
	}

	engine.logger.Debug(fmt.Sprintf("worker for provider %s exiting...", engine.provider.GetProviderKey()))
}

// execute performs one attempt of req.
func (engine *Unsplash) execute(ctx context.Context, key string, req *interfaces.PhotoRequest) (*interfaces.PhotoResponse, *interfaces.PluginError) {
	switch req.Type {
	case interfaces.SearchPhotosRequest:
		if req.Search == nil {
			return nil, interfaces.NewPluginError("search parameters not provided for search request", nil)
		}
		resp, pluginErr := engine.provider.SearchPhotos(ctx, key, *req.Search)
		if pluginErr != nil {
			return nil, pluginErr
		}
		return &interfaces.PhotoResponse{Search: resp}, nil

	case interfaces.ListPhotosRequest:
		page, perPage := 1, interfaces.DefaultPerPage
		if req.Search != nil {
			page, perPage = req.Search.Page, req.Search.PerPage
		}
		resp, pluginErr := engine.provider.ListPhotos(ctx, key, page, perPage)
		if pluginErr != nil {
			return nil, pluginErr
		}
		return &interfaces.PhotoResponse{Search: resp}, nil

	case interfaces.UploadFromURLRequestType:
		if req.Photo == nil || req.Target == nil {
			return nil, interfaces.NewPluginError("photo and target not provided for upload request", nil)
		}
		attachment, pluginErr := engine.upload(ctx, key, *req.Photo, *req.Target)
		if pluginErr != nil {
			return nil, pluginErr
		}
		return &interfaces.PhotoResponse{Attachment: attachment}, nil

	default:
		return nil, interfaces.NewPluginError(fmt.Sprintf("unsupported request type: %s", req.Type), nil)
	}
}

// upload copies photo into host storage. Download tracking is best effort.
func (engine *Unsplash) upload(ctx context.Context, key string, photo interfaces.Photo, target interfaces.UploadTarget) (*interfaces.Attachment, *interfaces.PluginError) {
	if engine.host == nil {
		return nil, interfaces.NewPluginError("download mode requires a host attachment client", nil)
	}

	sourceURL := photo.URLs.AssetURL(target.URLType)
	if sourceURL == "" {
		return nil, interfaces.NewPluginError(fmt.Sprintf("photo %s has no %s url", photo.ID, target.URLType), nil)
	}

	if key != "" {
		if pluginErr := engine.provider.TrackDownload(ctx, key, photo); pluginErr != nil {
			engine.logger.Warn(fmt.Sprintf("failed to track download of photo %s: %s", photo.ID, pluginErr.Error.Message))
		}
	}

	filename := AttachmentFilename(photo)
	return engine.host.UploadFromURL(ctx, interfaces.UploadFromURLRequest{
		URL:        sourceURL,
		PolicyName: target.PolicyName,
		GroupName:  target.GroupName,
		Filename:   &filename,
	})
}

// AttachmentFilename is the file name a photo is stored under in download mode.
func AttachmentFilename(photo interfaces.Photo) string {
	return fmt.Sprintf("unsplash-%s.jpg", photo.ID)
}

func (engine *Unsplash) recordMetrics(queueWaitTime, keyLookupTime, providerTime, pluginPreTime, pluginPostTime, totalTime time.Duration, success bool) {
	engine.metricsMutex.Lock()
	defer engine.metricsMutex.Unlock()

	engine.metrics.RequestCount++
	if !success {
		engine.metrics.ErrorCount++
	}

	n := time.Duration(engine.metrics.RequestCount)
	engine.metrics.QueueWaitTime = (engine.metrics.QueueWaitTime*(n-1) + queueWaitTime) / n
	engine.metrics.KeyLookupTime = (engine.metrics.KeyLookupTime*(n-1) + keyLookupTime) / n
	engine.metrics.ProviderTime = (engine.metrics.ProviderTime*(n-1) + providerTime) / n
	engine.metrics.PluginPreTime = (engine.metrics.PluginPreTime*(n-1) + pluginPreTime) / n
	engine.metrics.PluginPostTime = (engine.metrics.PluginPostTime*(n-1) + pluginPostTime) / n
	engine.metrics.TotalTime = (engine.metrics.TotalTime*(n-1) + totalTime) / n
}

// recordHookMetrics folds hook timings into the averages of the request the
// worker already counted.
func (engine *Unsplash) recordHookMetrics(pluginPreTime, pluginPostTime time.Duration) {
	engine.metricsMutex.Lock()
	defer engine.metricsMutex.Unlock()

	n := time.Duration(max(engine.metrics.RequestCount, 1))
	engine.metrics.PluginPreTime = (engine.metrics.PluginPreTime*(n-1) + pluginPreTime) / n
	engine.metrics.PluginPostTime = (engine.metrics.PluginPostTime*(n-1) + pluginPostTime) / n
	engine.metrics.TotalTime += (pluginPreTime + pluginPostTime) / n
}

func (engine *Unsplash) GetMetrics() RequestMetrics {
	engine.metricsMutex.RLock()
	defer engine.metricsMutex.RUnlock()
	return engine.metrics
}

// handleRequest runs the hooks around one queued request.
func (engine *Unsplash) handleRequest(ctx context.Context, req *interfaces.PhotoRequest) (*interfaces.PhotoResponse, *interfaces.PluginError) {
	if req == nil {
		return nil, interfaces.NewPluginError("photo request cannot be nil", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// Track plugin pre-hook time
	var err error
	pluginPreStart := time.Now()
	for i, hook := range engine.hooks {
		req, err = hook.PreHook(&ctx, req)
		if err != nil {
			pluginErr := interfaces.NewPluginError(err.Error(), err)
			engine.runErrorHooks(&ctx, i, pluginErr)
			return nil, pluginErr
		}
	}
	pluginPreTime := time.Since(pluginPreStart)

	if req == nil {
		pluginErr := interfaces.NewPluginError("photo request after hooks cannot be nil", nil)
		engine.runErrorHooks(&ctx, len(engine.hooks), pluginErr)
		return nil, pluginErr
	}

	msg := engine.getChannelMessage(ctx, *req)
	if pluginErr := engine.enqueue(ctx, msg); pluginErr != nil {
		engine.releaseChannelMessage(msg)
		engine.runErrorHooks(&ctx, len(engine.hooks), pluginErr)
		return nil, pluginErr
	}

	var result *interfaces.PhotoResponse
	select {
	case result = <-msg.Response:
		// Track plugin post-hook time
		pluginPostStart := time.Now()
		for i := len(engine.hooks) - 1; i >= 0; i-- {
			result, err = engine.hooks[i].PostHook(&ctx, result)
			if err != nil {
				engine.releaseChannelMessage(msg)
				pluginErr := interfaces.NewPluginError(err.Error(), err)
				engine.runErrorHooks(&ctx, i, pluginErr)
				return nil, pluginErr
			}
		}
		engine.recordHookMetrics(pluginPreTime, time.Since(pluginPostStart))

	case workerErr := <-msg.Err:
		engine.releaseChannelMessage(msg)
		pluginErr := &workerErr
		engine.runErrorHooks(&ctx, len(engine.hooks), pluginErr)
		return nil, pluginErr

	case <-ctx.Done():
		// The worker still owns msg and will write to its buffered channels;
		// it is left to the garbage collector instead of the pool.
		pluginErr := interfaces.NewPluginError(ctx.Err().Error(), ctx.Err())
		engine.runErrorHooks(&ctx, len(engine.hooks), pluginErr)
		return nil, pluginErr
	}

	engine.releaseChannelMessage(msg)
	return result, nil
}

// runErrorHooks reports pluginErr, in reverse order, to the first count hooks
// that implement interfaces.ErrorHook.
func (engine *Unsplash) runErrorHooks(ctx *context.Context, count int, pluginErr *interfaces.PluginError) {
	for i := count - 1; i >= 0; i-- {
		if hook, ok := engine.hooks[i].(interfaces.ErrorHook); ok {
			hook.OnError(ctx, pluginErr)
		}
	}
}

// enqueue hands msg to the workers unless the engine is shut down or ctx ends first.
func (engine *Unsplash) enqueue(ctx context.Context, msg *ChannelMessage) *interfaces.PluginError {
	engine.queueMutex.RLock()
	defer engine.queueMutex.RUnlock()

	if engine.closed {
		return interfaces.NewPluginError(interfaces.ErrEngineClosed.Error(), interfaces.ErrEngineClosed)
	}

	select {
	case engine.requestQueue <- msg:
		return nil
	case <-ctx.Done():
		return interfaces.NewPluginError(ctx.Err().Error(), ctx.Err())
	}
}

// SearchPhotos searches the photo API. An empty query lists the latest photos.
func (engine *Unsplash) SearchPhotos(ctx context.Context, params interfaces.SearchParams) (*interfaces.SearchResponse, *interfaces.PluginError) {
	params.Query = strings.TrimSpace(params.Query)
	reqType := interfaces.SearchPhotosRequest
	if params.Query == "" {
		reqType = interfaces.ListPhotosRequest
	}

	resp, pluginErr := engine.handleRequest(ctx, &interfaces.PhotoRequest{
		Type:     reqType,
		Provider: engine.provider.GetProviderKey(),
		Search:   &params,
	})
	if pluginErr != nil {
		return nil, pluginErr
	}
	if resp == nil || resp.Search == nil {
		return nil, interfaces.NewPluginError("empty search response", nil)
	}
	return resp.Search, nil
}

// ListPhotos lists the latest photos of the photo API.
func (engine *Unsplash) ListPhotos(ctx context.Context, page, perPage int) (*interfaces.SearchResponse, *interfaces.PluginError) {
	return engine.SearchPhotos(ctx, interfaces.SearchParams{Page: page, PerPage: perPage})
}

// UploadPhoto stores a copy of photo in the host storage described by target.
func (engine *Unsplash) UploadPhoto(ctx context.Context, photo interfaces.Photo, target interfaces.UploadTarget) (*interfaces.Attachment, *interfaces.PluginError) {
	resp, pluginErr := engine.handleRequest(ctx, &interfaces.PhotoRequest{
		Type:     interfaces.UploadFromURLRequestType,
		Provider: engine.provider.GetProviderKey(),
		Photo:    &photo,
		Target:   &target,
	})
	if pluginErr != nil {
		return nil, pluginErr
	}
	if resp == nil || resp.Attachment == nil {
		return nil, interfaces.NewPluginError("empty upload response", nil)
	}
	return resp.Attachment, nil
}

// GetAllStats returns all statistics including request metrics and pool usage
func (engine *Unsplash) GetAllStats() map[string]interface{} {
	stats := make(map[string]interface{})

	metrics := engine.GetMetrics()
	errorRate := 0.0
	if metrics.RequestCount > 0 {
		errorRate = float64(metrics.ErrorCount) / float64(metrics.RequestCount) * 100
	}
	stats["request_metrics"] = map[string]interface{}{
		"total_time":       metrics.TotalTime.String(),
		"queue_wait_time":  metrics.QueueWaitTime.String(),
		"key_lookup_time":  metrics.KeyLookupTime.String(),
		"provider_time":    metrics.ProviderTime.String(),
		"plugin_pre_time":  metrics.PluginPreTime.String(),
		"plugin_post_time": metrics.PluginPostTime.String(),
		"request_count":    metrics.RequestCount,
		"error_count":      metrics.ErrorCount,
		"error_rate":       fmt.Sprintf("%.2f%%", errorRate),
	}

	stats["pool_stats"] = engine.GetPoolStats()

	return stats
}

// GetPoolStats returns statistics about object pool usage
func (engine *Unsplash) GetPoolStats() map[string]interface{} {
	stats := make(map[string]interface{})

	stats["channel_message_pool"] = map[string]int64{
		"gets":      engine.channelMessageGets.Load(),
		"puts":      engine.channelMessagePuts.Load(),
		"creations": engine.channelMessageCreations.Load(),
	}

	stats["response_channel_pool"] = map[string]int64{
		"gets":      engine.responseChannelGets.Load(),
		"puts":      engine.responseChannelPuts.Load(),
		"creations": engine.responseChannelCreations.Load(),
	}

	stats["error_channel_pool"] = map[string]int64{
		"gets":      engine.errorChannelGets.Load(),
		"puts":      engine.errorChannelPuts.Load(),
		"creations": engine.errorChannelCreations.Load(),
	}

	for k, v := range providers.GetPoolStats() {
		stats[k] = v
	}

	return stats
}

// Shutdown gracefully stops all workers. It is safe to call more than once.
func (engine *Unsplash) Shutdown() {
	engine.queueMutex.Lock()
	if engine.closed {
		engine.queueMutex.Unlock()
		return
	}
	engine.closed = true
	close(engine.requestQueue)
	engine.queueMutex.Unlock()

	engine.logger.Info("[UNSPLASH] Graceful Shutdown Initiated - Closing request queue...")

	stats := engine.GetAllStats()
	statsJSON, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		engine.logger.Info(fmt.Sprintf("[UNSPLASH] Stats collection failed: %v", err))
	} else {
		engine.logger.Debug(fmt.Sprintf("[UNSPLASH] Statistics:\n%s", statsJSON))
	}

	engine.waitGroup.Wait()
}

// Cleanup handles SIGINT (Ctrl+C) to exit cleanly
func (engine *Unsplash) Cleanup() {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	<-signalChan      // Wait for interrupt signal
	engine.Shutdown() // Gracefully shut down
}
