package services

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"promptmaker-backend/shared/logger"
	"promptmaker-backend/shared/utils/metrics"
)

// Feed event types
const (
	EventConnection     = "connection"
	EventPong           = "pong"
	EventPromptCreated  = "prompt.created"
	EventPromptUpdated  = "prompt.updated"
	EventPromptDeleted  = "prompt.deleted"
	EventVoteCast       = "vote.cast"
	EventCommentCreated = "comment.created"
	EventCommentDeleted = "comment.deleted"
)

const (
	writeWait      = 10 * time.Second
	clientQueueLen = 32
)

// FeedEvent is one message pushed to live feed subscribers
type FeedEvent struct {
	Type      string      `json:"type"`
	PromptID  string      `json:"prompt_id,omitempty"`
	ActorID   string      `json:"actor_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewFeedEvent stamps an event with the current time
func NewFeedEvent(eventType string, promptID, actorID uuid.UUID, data interface{}) FeedEvent {
	ev := FeedEvent{Type: eventType, Data: data, Timestamp: time.Now().UTC()}
	if promptID != uuid.Nil {
		ev.PromptID = promptID.String()
	}
	if actorID != uuid.Nil {
		ev.ActorID = actorID.String()
	}
	return ev
}

type feedClient struct {
	id   string
	conn *websocket.Conn
	send chan FeedEvent
}

type directMessage struct {
	client *feedClient
	event  FeedEvent
}

// FeedHub fans prompt, vote and comment events out to websocket subscribers.
// Only the Run goroutine touches a client's send channel. done is closed when
// Run returns so connection goroutines stop waiting on the hub.
type FeedHub struct {
	clients    map[string]*feedClient
	mutex      sync.RWMutex
	upgrader   websocket.Upgrader
	register   chan *feedClient
	unregister chan *feedClient
	broadcast  chan FeedEvent
	direct     chan directMessage
	done       chan struct{}
}

// NewFeedHub creates a hub accepting browser connections from allowedOrigin.
// Requests without an Origin header (non-browser clients) are accepted.
func NewFeedHub(allowedOrigin string) *FeedHub {
	return &FeedHub{
		clients: make(map[string]*feedClient),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || origin == allowedOrigin {
					return true
				}
				logger.Log.Warn("feed connection rejected", zap.String("origin", origin))
				return false
			},
		},
		register:   make(chan *feedClient, 100),
		unregister: make(chan *feedClient, 100),
		broadcast:  make(chan FeedEvent, 1000),
		direct:     make(chan directMessage, 100),
		done:       make(chan struct{}),
	}
}

// Run is the hub event loop. It returns when ctx is cancelled, closing every client.
func (h *FeedHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)

		case msg := <-h.direct:
			h.mutex.RLock()
			_, connected := h.clients[msg.client.id]
			h.mutex.RUnlock()
			if connected {
				h.enqueue(msg.client, msg.event)
			}
		}
	}
}

func (h *FeedHub) registerClient(client *feedClient) {
	h.mutex.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.mutex.Unlock()

	metrics.FeedConnections.Inc()
	logger.Log.Debug("feed client connected", zap.String("client_id", client.id), zap.Int("total", total))

	h.enqueue(client, NewFeedEvent(EventConnection, uuid.Nil, uuid.Nil, gin.H{"client_id": client.id}))
}

func (h *FeedHub) unregisterClient(client *feedClient) {
	h.mutex.Lock()
	_, exists := h.clients[client.id]
	if exists {
		delete(h.clients, client.id)
	}
	total := len(h.clients)
	h.mutex.Unlock()

	if !exists {
		return
	}

	close(client.send)
	metrics.FeedConnections.Dec()
	logger.Log.Debug("feed client disconnected", zap.String("client_id", client.id), zap.Int("total", total))
}

// enqueue drops clients whose queue is full; a stalled reader must not block the feed
func (h *FeedHub) enqueue(client *feedClient, event FeedEvent) {
	select {
	case client.send <- event:
	default:
		logger.Log.Warn("feed client too slow, disconnecting", zap.String("client_id", client.id))
		h.unregisterClient(client)
	}
}

func (h *FeedHub) broadcastEvent(event FeedEvent) {
	h.mutex.RLock()
	targets := make([]*feedClient, 0, len(h.clients))
	for _, client := range h.clients {
		targets = append(targets, client)
	}
	h.mutex.RUnlock()

	for _, client := range targets {
		h.enqueue(client, event)
	}
}

func (h *FeedHub) closeAll() {
	h.mutex.RLock()
	targets := make([]*feedClient, 0, len(h.clients))
	for _, client := range h.clients {
		targets = append(targets, client)
	}
	h.mutex.RUnlock()

	for _, client := range targets {
		h.unregisterClient(client)
	}
}

// Publish queues event for every subscriber. Safe on a nil hub.
func (h *FeedHub) Publish(event FeedEvent) {
	if h == nil {
		return
	}
	select {
	case h.broadcast <- event:
	default:
		logger.Log.Warn("feed broadcast queue full, dropping event", zap.String("type", event.Type))
	}
}

// ClientCount returns the number of connected subscribers
func (h *FeedHub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// HandleConnection upgrades the request and serves the subscriber until it disconnects
func (h *FeedHub) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Warn("failed to upgrade feed connection", zap.Error(err))
		return
	}

	client := &feedClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan FeedEvent, clientQueueLen),
	}

	go h.writePump(client)
	select {
	case h.register <- client:
	case <-h.done:
		return
	}

	defer func() {
		select {
		case h.unregister <- client:
		case <-h.done:
		}
	}()

	for {
		var message map[string]interface{}
		if err := conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Debug("feed read error", zap.String("client_id", client.id), zap.Error(err))
			}
			return
		}

		if msgType, ok := message["type"].(string); ok && msgType == "ping" {
			select {
			case h.direct <- directMessage{client: client, event: NewFeedEvent(EventPong, uuid.Nil, uuid.Nil, nil)}:
			case <-h.done:
				return
			}
		}
	}
}

func (h *FeedHub) writePump(client *feedClient) {
	defer client.conn.Close()

	for {
		select {
		case event, ok := <-client.send:
			if !ok {
				client.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteJSON(event); err != nil {
				logger.Log.Debug("feed write failed", zap.String("client_id", client.id), zap.Error(err))
				return
			}

		// a client that never made it into the hub has no one to close its queue
		case <-h.done:
			return
		}
	}
}
