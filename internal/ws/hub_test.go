package ws

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub() *Hub {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewHub(logger)
}

// dialPair spins up a websocket echo endpoint and returns the server
// side and client side of one connection.
func dialPair(t *testing.T) (*websocket.Conn, *websocket.Conn) {
	t.Helper()

	serverSide := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		conn, err := up.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverSide <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	server := <-serverSide
	t.Cleanup(func() { server.Close() })
	return server, client
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func TestBroadcastReachesTopicSubscribers(t *testing.T) {
	hub := newTestHub()
	topic := ChatTopic(uuid.New())

	serverA, clientA := dialPair(t)
	serverB, clientB := dialPair(t)
	hub.Subscribe(topic, serverA)
	hub.Subscribe(topic, serverB)

	hub.Broadcast(topic, map[string]string{"content": "hi"})

	for _, client := range []*websocket.Conn{clientA, clientB} {
		env := readEnvelope(t, client)
		assert.Equal(t, topic, env.Topic)
		assert.Empty(t, env.Queue)
	}
}

func TestBroadcastSkipsOtherTopics(t *testing.T) {
	hub := newTestHub()
	topicA := ChatTopic(uuid.New())
	topicB := ChatTopic(uuid.New())

	server, client := dialPair(t)
	hub.Subscribe(topicA, server)

	hub.Broadcast(topicB, "payload")

	require.NoError(t, client.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := client.ReadMessage()
	assert.Error(t, err)
}

func TestSendToUserTargetsOneUser(t *testing.T) {
	hub := newTestHub()

	serverBob, clientBob := dialPair(t)
	serverEve, clientEve := dialPair(t)
	hub.RegisterUser("bob", serverBob)
	hub.RegisterUser("eve", serverEve)

	hub.SendToUser("bob", QueueNewChat, map[string]string{"chat": "x"})

	env := readEnvelope(t, clientBob)
	assert.Equal(t, QueueNewChat, env.Queue)
	assert.Empty(t, env.Topic)

	require.NoError(t, clientEve.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := clientEve.ReadMessage()
	assert.Error(t, err)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := newTestHub()
	topic := ChatMembersTopic(uuid.New())

	server, client := dialPair(t)
	hub.Subscribe(topic, server)
	hub.Unsubscribe(topic, server)

	hub.Broadcast(topic, "payload")

	require.NoError(t, client.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := client.ReadMessage()
	assert.Error(t, err)
}

func TestBroadcastDropsDeadConnections(t *testing.T) {
	hub := newTestHub()
	topic := ChatTopic(uuid.New())

	server, client := dialPair(t)
	hub.Subscribe(topic, server)
	client.Close()
	server.Close()

	hub.Broadcast(topic, "payload")

	hub.mu.RLock()
	_, exists := hub.topics[topic]
	hub.mu.RUnlock()
	assert.False(t, exists)
}

func TestTopicBuilders(t *testing.T) {
	id := uuid.MustParse("a8098c1a-f86e-11da-bd1a-00112444be1e")
	assert.Equal(t, "chat/a8098c1a-f86e-11da-bd1a-00112444be1e", ChatTopic(id))
	assert.Equal(t, "chat/a8098c1a-f86e-11da-bd1a-00112444be1e/members", ChatMembersTopic(id))
	assert.Equal(t, "chat/a8098c1a-f86e-11da-bd1a-00112444be1e/updates", ChatUpdatesTopic(id))
}
