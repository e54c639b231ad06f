package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports liveness along with the model versions currently served.
func Health(service string, served func() map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"status": "UP", "service": service}
		if served != nil {
			body["models"] = served()
		}
		c.JSON(http.StatusOK, body)
	}
}
