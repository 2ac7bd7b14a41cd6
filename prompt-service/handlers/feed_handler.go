package handlers

import (
	"github.com/gin-gonic/gin"

	"promptmaker-backend/prompt-service/services"
)

// FeedHandler serves the live feed websocket
// @Summary Live feed
// @Description Websocket stream of prompt, vote and comment events. Send {"type":"ping"} to receive a pong.
// @Tags feed
// @Router /ws/feed [get]
func FeedHandler(hub *services.FeedHub) gin.HandlerFunc {
	return hub.HandleConnection
}
