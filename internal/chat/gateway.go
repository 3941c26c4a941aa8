package chat

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wfunc/game-buddy/internal/logger"
	"go.uber.org/zap"
)

// 错误定义
var (
	ErrSendBufferFull = errors.New("发送缓冲区已满")
	ErrClosed         = errors.New("传输已关闭")
)

// WebSocket配置
const (
	// 写超时
	writeWait = 10 * time.Second

	// 读取pong超时
	pongWait = 60 * time.Second

	// ping发送周期（必须小于pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 入站帧大小上限
	maxFrameSize = 64 * 1024

	// 重连退避上限
	maxBackoff = 30 * time.Second
)

// Gateway 连接聊天平台网关的 websocket 客户端适配
// 断线后指数退避自动重连，期间 Send 返回错误
type Gateway struct {
	url            string
	maxMessageSize int

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	events chan InboundMessage
	send   chan OutboundMessage
	done   chan struct{}
	log    *zap.Logger
}

// NewGateway 创建网关适配器
// maxMessageSize 是平台的单条消息长度上限，超长回复在发送前分片
func NewGateway(url string, maxMessageSize int) *Gateway {
	if maxMessageSize <= 0 {
		maxMessageSize = 2000
	}
	return &Gateway{
		url:            url,
		maxMessageSize: maxMessageSize,
		events:         make(chan InboundMessage, 64),
		send:           make(chan OutboundMessage, 64),
		done:           make(chan struct{}),
		log:            logger.GetLogger().With(zap.String("component", "chat_gateway")),
	}
}

// Start 建立连接并启动收发循环
// 首次连接失败直接返回错误；之后的断线在后台自动重连
func (g *Gateway) Start() error {
	conn, err := g.dial()
	if err != nil {
		return err
	}
	g.setConn(conn)

	go g.run(conn)
	return nil
}

// Events 返回入站消息通道
func (g *Gateway) Events() <-chan InboundMessage {
	return g.events
}

// Send 发送回复，超长文本按词边界分片成多条
func (g *Gateway) Send(channelID, content string) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	g.mu.Unlock()

	for _, part := range SplitMessage(content, g.maxMessageSize) {
		select {
		case g.send <- OutboundMessage{ChannelID: channelID, Content: part}:
		default:
			return ErrSendBufferFull
		}
	}
	return nil
}

// Close 关闭传输，幂等
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true
	close(g.done)
	if g.conn != nil {
		g.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		g.conn.Close()
	}
	return nil
}

func (g *Gateway) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(g.url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (g *Gateway) setConn(conn *websocket.Conn) {
	g.mu.Lock()
	g.conn = conn
	g.mu.Unlock()
}

func (g *Gateway) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// run 收发循环加断线重连
func (g *Gateway) run(conn *websocket.Conn) {
	defer close(g.events)

	backoff := time.Second
	for {
		writeDone := make(chan struct{})
		go g.writePump(conn, writeDone)
		g.readPump(conn)
		close(writeDone)
		conn.Close()

		if g.isClosed() {
			return
		}

		// 指数退避重连
		for {
			g.log.Warn("网关连接断开，准备重连", zap.Duration("backoff", backoff))
			select {
			case <-g.done:
				return
			case <-time.After(backoff):
			}

			next, err := g.dial()
			if err != nil {
				g.log.Error("重连失败", zap.Error(err))
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				continue
			}

			conn = next
			g.setConn(conn)
			backoff = time.Second
			g.log.Info("网关重连成功")
			break
		}
	}
}

// readPump 读取入站帧并解码投递
func (g *Gateway) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.log.Error("网关读取错误", zap.Error(err))
			}
			return
		}

		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// 坏帧只记日志，不中断连接
			g.log.Warn("丢弃无法解析的入站帧", zap.Error(err))
			continue
		}

		select {
		case g.events <- msg:
		case <-g.done:
			return
		}
	}
}

// writePump 发送出站消息并维持心跳
func (g *Gateway) writePump(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-g.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				g.log.Error("网关写入错误", zap.Error(err))
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return

		case <-g.done:
			return
		}
	}
}
