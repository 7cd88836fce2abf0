package http

import "github.com/gin-gonic/gin"

// Register registers the circuit classification routes.
func (h *Handler) Register(rg *gin.RouterGroup, classifyLimit ...gin.HandlerFunc) {
	classify := append(append([]gin.HandlerFunc{}, classifyLimit...), h.Classify)
	rg.POST("/circuits/classify", classify...)
	rg.POST("/circuits/features", h.Features)
	rg.GET("/models", h.ListModels)
	rg.GET("/models/current", h.CurrentModel)
	rg.GET("/models/:name/decisions", h.ModelDecisions)
	rg.GET("/decisions/:id", h.GetDecision)
}
