package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/raveone/lms-api/pkg/middleware/requestid"
)

const responseMetaKey = "response_meta"

// Keys written into the response envelope's meta object.
const (
	MetaRequestID = "request_id"
	MetaCacheHit  = "cache_hit"
	MetaEndpoint  = "endpoint"
	MetaTerm      = "term"
	MetaWeek      = "week"
)

// WithResponseMeta seeds the per-request meta map. It must run after the
// request ID middleware so the ID can be echoed back to callers.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := map[string]interface{}{}
		if id := requestid.Value(c); id != "" {
			meta[MetaRequestID] = id
		}
		c.Set(responseMetaKey, meta)
		c.Next()
	}
}

// SetMeta stores a single meta entry for the current response.
func SetMeta(c *gin.Context, key string, value interface{}) {
	ensureMeta(c)[key] = value
}

// SetCacheHit records whether the payload was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	SetMeta(c, MetaCacheHit, hit)
}

// ExtractMeta returns the metadata map stored on the context, or nil.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	return nil
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	meta := make(map[string]interface{})
	if c != nil {
		c.Set(responseMetaKey, meta)
	}
	return meta
}
