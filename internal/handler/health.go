package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health godoc
// @Summary      Health check
// @Description  Returns "healthy", or "degraded" when an optional dependency is down, with the state of each dependency
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	body := gin.H{"status": "healthy"}
	for _, dep := range h.dependencies {
		state := "up"
		if !dep.Up() {
			state = "down"
			body["status"] = "degraded"
		}
		body[dep.Name] = state
	}
	c.JSON(http.StatusOK, body)
}
