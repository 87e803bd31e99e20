package service

import (
	"context"
	"encoding/json"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxMessageSize  = 512
	clientSendQueue = 16

	progressChannel = "progress_channel"
)

// WSMessage 推送给前端的消息
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// pubSubMessage 多实例部署时经 Redis 转发的消息
type pubSubMessage struct {
	StudentID uint            `json:"studentId"`
	Payload   json.RawMessage `json:"payload"`
}

type delivery struct {
	studentID uint
	payload   []byte
}

type Client struct {
	Hub       *ProgressHub
	Conn      *websocket.Conn
	Send      chan []byte
	StudentID uint
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		// 只推不收，读循环用来感知断开
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warn("WebSocket unexpected close", zap.Error(err), zap.Uint("studentId", c.StudentID))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ProgressHub 按学生维护 websocket 连接并推送进度更新
// 客户端表只在 Run 的 goroutine 中读写
type ProgressHub struct {
	clients    map[uint]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	deliver    chan delivery
	Redis      *redis.Client
	upgrader   websocket.Upgrader
	done       chan struct{}
}

func NewProgressHub(rdb *redis.Client, allowedOrigins []string) *ProgressHub {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &ProgressHub{
		clients:    make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 256),
		Redis:      rdb,
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins["*"] || origins[origin]
			},
		},
	}
}

// Run 事件循环，ctx 取消时关闭所有连接
func (h *ProgressHub) Run(ctx context.Context) {
	defer close(h.done)

	if h.Redis != nil {
		pubsub := h.Redis.Subscribe(ctx, progressChannel)
		defer pubsub.Close()
		go h.consume(ctx, pubsub.Channel())
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			set, ok := h.clients[client.StudentID]
			if !ok {
				set = make(map[*Client]bool)
				h.clients[client.StudentID] = set
			}
			set[client] = true
			monitoring.WSConnections.Inc()

		case client := <-h.unregister:
			h.remove(client)

		case d := <-h.deliver:
			for client := range h.clients[d.studentID] {
				select {
				case client.Send <- d.payload:
				default:
					// 消费太慢的连接直接断开
					logger.Log.Warn("Dropping slow websocket client", zap.Uint("studentId", d.studentID))
					h.remove(client)
				}
			}
		}
	}
}

func (h *ProgressHub) consume(ctx context.Context, ch <-chan *redis.Message) {
	for msg := range ch {
		var ps pubSubMessage
		if err := json.Unmarshal([]byte(msg.Payload), &ps); err != nil {
			logger.Log.Error("PubSub unmarshal error", zap.Error(err))
			continue
		}
		select {
		case h.deliver <- delivery{studentID: ps.StudentID, payload: ps.Payload}:
		case <-ctx.Done():
			return
		}
	}
}

func (h *ProgressHub) remove(client *Client) {
	set, ok := h.clients[client.StudentID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.StudentID)
	}
	close(client.Send)
	monitoring.WSConnections.Dec()
}

func (h *ProgressHub) closeAll() {
	count := 0
	for studentID, set := range h.clients {
		for client := range set {
			close(client.Send)
			count++
		}
		delete(h.clients, studentID)
	}
	monitoring.WSConnections.Set(0)
	logger.Log.Info("ProgressHub stopped", zap.Int("closedConnections", count))
}

// Publish 推送给某个学生的全部连接；配置了 Redis 时经频道广播到所有实例
func (h *ProgressHub) Publish(studentID uint, msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Log.Error("Marshal websocket message failed", zap.Error(err))
		return
	}

	if h.Redis != nil {
		data, err := encodePubSub(studentID, payload)
		if err != nil {
			logger.Log.Error("Marshal pubsub message failed", zap.Uint("studentId", studentID), zap.Error(err))
			return
		}
		err = h.Redis.Publish(context.Background(), progressChannel, data).Err()
		if err == nil {
			return
		}
		logger.Log.Warn("Redis publish failed, delivering locally", zap.Error(err))
	}

	select {
	case h.deliver <- delivery{studentID: studentID, payload: payload}:
	case <-h.done:
	default:
		logger.Log.Warn("Progress hub queue full, update not pushed", zap.Uint("studentId", studentID))
	}
}

func encodePubSub(studentID uint, payload []byte) ([]byte, error) {
	return json.Marshal(pubSubMessage{StudentID: studentID, Payload: payload})
}

// ServeWS 升级连接并注册到 hub
func (h *ProgressHub) ServeWS(w http.ResponseWriter, r *http.Request, studentID uint) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{Hub: h, Conn: conn, Send: make(chan []byte, clientSendQueue), StudentID: studentID}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()
	return nil
}
