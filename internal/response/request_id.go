package response

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextKeyRequestID is where the middleware parks the request ID so the
// envelope builder can echo it back in metadata.
const ContextKeyRequestID = "request_id"

// RequestIDMiddleware tags every request with an ID for log correlation.
// A client-supplied X-Request-ID is honored so the exam UI can stitch its
// own traces to server logs; otherwise one is generated.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Set(ContextKeyRequestID, reqID)
		c.Header("X-Request-ID", reqID)
		c.Next()
	}
}
