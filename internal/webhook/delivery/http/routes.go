package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes maps the webhook endpoints under rg (/api/webhook).
// Extra middleware, such as the IP allow-list, guards the receive route only.
func RegisterRoutes(rg *gin.RouterGroup, h Handler, receiveMiddleware ...gin.HandlerFunc) {
	receive := append(append([]gin.HandlerFunc{}, receiveMiddleware...), h.Receive)
	rg.POST("/gitlab", receive...)

	rg.GET("/health", h.Health)
	rg.GET("/event-kinds", h.EventKinds)
	rg.GET("/breakers", h.Breakers)
}
