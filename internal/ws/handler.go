package ws

import (
	"net/http"

	"twopc_backend/internal/domain"
	"twopc_backend/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// HandleWS upgrades /ws/earnings?wallet= to a feed of that wallet's new
// commission entries.
func HandleWS(hub *Hub, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	return func(c *gin.Context) {
		wallet, err := domain.NormalizeAddress(c.Query("wallet"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "valid wallet required", "code": domain.CodeOf(err)})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade error", "error", err)
			return
		}

		client := NewClient(wallet, conn, hub)
		go client.Run()
	}
}
