package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/realtime"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// PaymentEventsHandler -> WebSocket endpoint streaming payment events to
// dashboard clients
func PaymentEventsHandler(c *gin.Context) {
	roleInterface, exists := c.Get("role")
	if !exists {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	role := roleInterface.(string)

	if role != "admin" && role != "operator" {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	realtime.RegisterClient(ws, role)

	// Drain client messages until disconnect
	for {
		_, _, err := ws.ReadMessage()
		if err != nil {
			break
		}
	}

	realtime.UnregisterClient(ws)
}
