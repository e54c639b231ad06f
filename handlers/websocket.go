package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/usazehan/healthcare-admin-dashboard/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type liveMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// LiveWebSocket relays every accepted prediction event to the client. The
// token query parameter is checked only when auth is configured.
func LiveWebSocket(cache *services.CacheService, authService *services.AuthService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authService.Enabled() {
			tokenStr := c.Query("token")
			if tokenStr == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token query parameter"})
				return
			}
			if _, err := authService.ValidateToken(tokenStr); err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
				return
			}
		}
		if !cache.Available() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live updates require redis"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		// read pump detects client disconnect
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		pubsub := cache.Subscribe(ctx, services.PredictionsChannel)
		defer pubsub.Close()
		ch := pubsub.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				err := conn.WriteJSON(liveMessage{Type: "prediction", Data: json.RawMessage(msg.Payload)})
				if err != nil {
					log.Debug("websocket write failed", zap.Error(err))
					return
				}
			}
		}
	}
}
