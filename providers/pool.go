package providers

import (
	"sync"
	"sync/atomic"
)

// Pool usage counters, reported through GetPoolStats.
var (
	searchResponseGets      atomic.Int64
	searchResponsePuts      atomic.Int64
	searchResponseCreations atomic.Int64
	photoListGets           atomic.Int64
	photoListPuts           atomic.Int64
	photoListCreations      atomic.Int64
)

// unsplashSearchResponsePool provides a pool for decoded search responses
var unsplashSearchResponsePool = sync.Pool{
	New: func() interface{} {
		searchResponseCreations.Add(1)
		return &UnsplashSearchResponse{}
	},
}

// unsplashPhotoListPool provides a pool for decoded photo list responses
var unsplashPhotoListPool = sync.Pool{
	New: func() interface{} {
		photoListCreations.Add(1)
		return &UnsplashPhotoList{}
	},
}

// acquireUnsplashSearchResponse gets a search response from the pool
func acquireUnsplashSearchResponse() *UnsplashSearchResponse {
	searchResponseGets.Add(1)
	resp := unsplashSearchResponsePool.Get().(*UnsplashSearchResponse)
	*resp = UnsplashSearchResponse{} // Reset the struct
	return resp
}

// releaseUnsplashSearchResponse returns a search response to the pool
func releaseUnsplashSearchResponse(resp *UnsplashSearchResponse) {
	if resp != nil {
		searchResponsePuts.Add(1)
		unsplashSearchResponsePool.Put(resp)
	}
}

// acquireUnsplashPhotoList gets a photo list from the pool
func acquireUnsplashPhotoList() *UnsplashPhotoList {
	photoListGets.Add(1)
	list := unsplashPhotoListPool.Get().(*UnsplashPhotoList)
	resetPhotoList(list)
	return list
}

// resetPhotoList empties list and zeroes its backing array; json decodes into
// existing elements without clearing fields the new body omits.
func resetPhotoList(list *UnsplashPhotoList) {
	clear((*list)[:cap(*list)])
	*list = (*list)[:0]
}

// releaseUnsplashPhotoList returns a photo list to the pool
func releaseUnsplashPhotoList(list *UnsplashPhotoList) {
	if list != nil {
		photoListPuts.Add(1)
		unsplashPhotoListPool.Put(list)
	}
}

// prewarmPools puts n fresh objects into each pool.
func prewarmPools(n int) {
	for range n {
		unsplashSearchResponsePool.Put(&UnsplashSearchResponse{})
		unsplashPhotoListPool.Put(&UnsplashPhotoList{})
	}
}

// GetPoolStats returns statistics about the provider object pools
func GetPoolStats() map[string]interface{} {
	return map[string]interface{}{
		"unsplash_search_response_pool": map[string]int64{
			"gets":      searchResponseGets.Load(),
			"puts":      searchResponsePuts.Load(),
			"creations": searchResponseCreations.Load(),
		},
		"unsplash_photo_list_pool": map[string]int64{
			"gets":      photoListGets.Load(),
			"puts":      photoListPuts.Load(),
			"creations": photoListCreations.Load(),
		},
	}
}
