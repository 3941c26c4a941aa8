package chat

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestGatewayServer 启动一个回显网关测试服务器
// 收到的出站消息进 outbound 通道；inbound 通道里的帧推给客户端
func startTestGatewayServer(t *testing.T) (*httptest.Server, chan InboundMessage, chan OutboundMessage) {
	inbound := make(chan InboundMessage, 16)
	outbound := make(chan OutboundMessage, 16)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		go func() {
			for msg := range inbound {
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
			}
		}()

		for {
			var msg OutboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			outbound <- msg
		}
	}))

	return server, inbound, outbound
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestGatewayStartFailsOnBadURL(t *testing.T) {
	gateway := NewGateway("ws://127.0.0.1:1/gateway", 2000)
	err := gateway.Start()
	assert.Error(t, err)
}

func TestGatewayReceivesInbound(t *testing.T) {
	server, inbound, _ := startTestGatewayServer(t)
	defer server.Close()

	gateway := NewGateway(wsURL(server), 2000)
	require.NoError(t, gateway.Start())
	defer gateway.Close()

	inbound <- InboundMessage{
		ChannelID:   "ch1",
		UserID:      "u1",
		Username:    "alice",
		Content:     "hey mitch",
		MentionsBot: true,
	}

	select {
	case msg := <-gateway.Events():
		assert.Equal(t, "ch1", msg.ChannelID)
		assert.Equal(t, "alice", msg.Username)
		assert.Equal(t, "hey mitch", msg.Content)
		assert.True(t, msg.MentionsBot)
	case <-time.After(2 * time.Second):
		t.Fatal("等待入站消息超时")
	}
}

func TestGatewaySendsOutbound(t *testing.T) {
	server, _, outbound := startTestGatewayServer(t)
	defer server.Close()

	gateway := NewGateway(wsURL(server), 2000)
	require.NoError(t, gateway.Start())
	defer gateway.Close()

	require.NoError(t, gateway.Send("ch1", "how about Codenames?"))

	select {
	case msg := <-outbound:
		assert.Equal(t, "ch1", msg.ChannelID)
		assert.Equal(t, "how about Codenames?", msg.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("等待出站消息超时")
	}
}

func TestGatewaySplitsLongOutbound(t *testing.T) {
	server, _, outbound := startTestGatewayServer(t)
	defer server.Close()

	gateway := NewGateway(wsURL(server), 50)
	require.NoError(t, gateway.Start())
	defer gateway.Close()

	long := strings.Repeat("many words here ", 10) // 160字符
	require.NoError(t, gateway.Send("ch1", long))

	var parts []string
	for len(parts) < 4 {
		select {
		case msg := <-outbound:
			assert.LessOrEqual(t, len(msg.Content), 50)
			parts = append(parts, msg.Content)
		case <-time.After(2 * time.Second):
			t.Fatalf("只收到 %d 段", len(parts))
		}
	}
	assert.Equal(t, strings.Fields(long), strings.Fields(strings.Join(parts, " ")))
}

func TestGatewayIgnoresMalformedFrames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		conn.WriteJSON(InboundMessage{ChannelID: "ch1", Content: "valid"})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	gateway := NewGateway(wsURL(server), 2000)
	require.NoError(t, gateway.Start())
	defer gateway.Close()

	// 坏帧被丢弃，后面的好帧正常送达
	select {
	case msg := <-gateway.Events():
		assert.Equal(t, "valid", msg.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("等待入站消息超时")
	}
}

func TestGatewaySendAfterClose(t *testing.T) {
	server, _, _ := startTestGatewayServer(t)
	defer server.Close()

	gateway := NewGateway(wsURL(server), 2000)
	require.NoError(t, gateway.Start())

	require.NoError(t, gateway.Close())
	assert.ErrorIs(t, gateway.Send("ch1", "too late"), ErrClosed)
	// Close 幂等
	assert.NoError(t, gateway.Close())
}
