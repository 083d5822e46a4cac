package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/brgy-records-api/pkg/middleware/requestid"
)

const (
	metaKey  = "response_meta"
	startKey = "response_meta_start"
)

// Meta keys shared by handlers.
const (
	MetaCacheHit       = "cache_hit"
	MetaProcessingTime = "processing_time_ms"
	MetaRequestID      = "request_id"
)

// ResponseMeta collects envelope metadata while a request runs.
type ResponseMeta map[string]interface{}

// WithResponseMeta gives every request a fresh ResponseMeta and stamps the
// request id onto it.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := ResponseMeta{}
		if id := requestid.Value(c); id != "" {
			meta[MetaRequestID] = id
		}
		c.Set(metaKey, meta)
		c.Set(startKey, time.Now())
		c.Next()
	}
}

// SetMeta records one metadata value for the current response.
func SetMeta(c *gin.Context, key string, value interface{}) {
	metaFor(c)[key] = value
}

// SetCacheHit marks whether the payload came from the cache.
func SetCacheHit(c *gin.Context, hit bool) {
	SetMeta(c, MetaCacheHit, hit)
}

// Meta returns a copy of the collected metadata with the elapsed time filled
// in, ready to be written into the envelope.
func Meta(c *gin.Context) map[string]interface{} {
	out := make(map[string]interface{}, 4)
	for k, v := range metaFor(c) {
		out[k] = v
	}
	if _, ok := out[MetaProcessingTime]; !ok {
		if start, ok := c.Get(startKey); ok {
			out[MetaProcessingTime] = time.Since(start.(time.Time)).Milliseconds()
		}
	}
	return out
}

func metaFor(c *gin.Context) ResponseMeta {
	if v, ok := c.Get(metaKey); ok {
		if meta, ok := v.(ResponseMeta); ok {
			return meta
		}
	}
	meta := ResponseMeta{}
	c.Set(metaKey, meta)
	return meta
}
