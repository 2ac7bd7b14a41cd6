package services

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAvatar(t *testing.T) {
	assert.NoError(t, ValidateAvatar("image/png", 1024, 2048))
	assert.ErrorIs(t, ValidateAvatar("application/pdf", 1024, 2048), ErrAvatarType)
	assert.ErrorIs(t, ValidateAvatar("image/jpeg", 4096, 2048), ErrAvatarTooLarge)
	assert.ErrorIs(t, ValidateAvatar("image/jpeg", 0, 2048), ErrAvatarTooLarge)
}

func TestAvatarObjectKey(t *testing.T) {
	id := uuid.MustParse("7f1d6d52-3f0e-4c4c-9a61-1f6f35b2a6a1")
	now := time.Unix(0, 42)

	assert.Equal(t, "avatars/7f1d6d52-3f0e-4c4c-9a61-1f6f35b2a6a1/42.webp", AvatarObjectKey(id, "image/webp", now))
}

func TestAvatarURLRoundTrip(t *testing.T) {
	s := &AvatarService{baseURL: "http://localhost:9000", bucketName: "avatars"}

	url := s.objectURL("avatars/u/1.png")
	assert.Equal(t, "http://localhost:9000/avatars/avatars/u/1.png", url)

	key, ok := s.objectKeyFromURL(url)
	assert.True(t, ok)
	assert.Equal(t, "avatars/u/1.png", key)

	_, ok = s.objectKeyFromURL("https://gravatar.com/avatar/abc")
	assert.False(t, ok)
}

func TestNilAvatarService(t *testing.T) {
	var s *AvatarService
	_, err := s.Upload(context.Background(), uuid.New(), strings.NewReader("x"), "image/png", 1)
	assert.ErrorIs(t, err, ErrStorageNotAvailable)
	assert.NoError(t, s.Remove(context.Background(), "http://x/y/z"))
}

func TestPublishOnNilHub(t *testing.T) {
	var h *FeedHub
	assert.NotPanics(t, func() { h.Publish(FeedEvent{Type: EventPromptCreated}) })
}

func TestFeedHubBroadcast(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewFeedHub("http://localhost:3000")
	go hub.Run(ctx)

	router := gin.New()
	router.GET("/ws/feed", hub.HandleConnection)
	server := httptest.NewServer(router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/feed"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var welcome FeedEvent
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, EventConnection, welcome.Type)
	assert.Equal(t, 1, hub.ClientCount())

	promptID := uuid.New()
	hub.Publish(NewFeedEvent(EventPromptCreated, promptID, uuid.Nil, nil))

	var event FeedEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, EventPromptCreated, event.Type)
	assert.Equal(t, promptID.String(), event.PromptID)
	assert.Empty(t, event.ActorID)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	var pong FeedEvent
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, EventPong, pong.Type)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestFeedHubRejectsForeignOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewFeedHub("http://localhost:3000")
	go hub.Run(ctx)

	router := gin.New()
	router.GET("/ws/feed", hub.HandleConnection)
	server := httptest.NewServer(router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/feed"
	header := map[string][]string{"Origin": {"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestFeedHubReleasesConnectionsAfterShutdown(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewFeedHub("http://localhost:3000")
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	returned := make(chan struct{}, 2)
	router := gin.New()
	router.GET("/ws/feed", func(c *gin.Context) {
		hub.HandleConnection(c)
		returned <- struct{}{}
	})
	server := httptest.NewServer(router)
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/feed"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var welcome FeedEvent
	require.NoError(t, conn.ReadJSON(&welcome))

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	for i := 0; i < 200; i++ {
		if conn.WriteJSON(map[string]string{"type": "ping"}) != nil {
			break
		}
	}

	late, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer late.Close()

	for i := 0; i < 2; i++ {
		select {
		case <-returned:
		case <-time.After(2 * time.Second):
			t.Fatal("connection handler still blocked after hub shutdown")
		}
	}
	assert.Equal(t, 0, hub.ClientCount())
}
