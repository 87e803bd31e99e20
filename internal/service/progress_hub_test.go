package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressHub_DeliversToStudentConnections(t *testing.T) {
	hub := NewProgressHub(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, hub.ServeWS(w, r, 7))
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// 注册与首次推送之间没有先后保证，重复推送直到收到
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				hub.Publish(8, WSMessage{Type: "progress", Data: "other student"})
				hub.Publish(7, WSMessage{Type: "progress", Data: "mine"})
			}
		}
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg WSMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "progress", msg.Type)
	assert.Equal(t, "mine", msg.Data)
}

func TestProgressHub_RejectsForeignOrigin(t *testing.T) {
	hub := NewProgressHub(nil, []string{"http://allowed.example"})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r, 1)
	}))
	t.Cleanup(srv.Close)

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestProgressHub_PublishAfterStopDoesNotBlock(t *testing.T) {
	hub := NewProgressHub(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(finished)
	}()
	cancel()
	<-finished

	for i := 0; i < 300; i++ {
		hub.Publish(1, WSMessage{Type: "progress"})
	}
}

func TestEncodePubSub(t *testing.T) {
	data, err := encodePubSub(3, []byte(`{"type":"progress","data":null}`))
	require.NoError(t, err)

	var msg pubSubMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, uint(3), msg.StudentID)
	assert.JSONEq(t, `{"type":"progress","data":null}`, string(msg.Payload))

	_, err = encodePubSub(3, []byte(`{"type":`))
	assert.Error(t, err)
}
