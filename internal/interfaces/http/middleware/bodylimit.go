package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maisgenetica/backend/internal/interfaces/http/dto"
)

// PayloadTooLargeMessage is shown when a submission exceeds the body limit
const PayloadTooLargeMessage = "O envio excede o tamanho máximo permitido"

// BodyLimit caps request bodies at maxBytes. A declared Content-Length over
// the limit is refused before the handler runs; chunked bodies are cut off
// by http.MaxBytesReader and the handler reports *http.MaxBytesError.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			c.Header("Connection", "close")
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodePayloadTooLarge, PayloadTooLargeMessage, GetRequestID(c)))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
