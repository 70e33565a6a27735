// Package ws is a channel based websocket fan-out hub. Clients subscribe to
// channels when connecting (?channels=a,b) or through OnConnect; servers push
// Messages to a channel or to everyone. The hub never reads application data
// from clients.
package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultSendBuffer   = 64
	pongWait            = 60 * time.Second
	pingPeriod          = pongWait * 9 / 10
)

var (
	ErrSlowConsumer = errors.New("ws: send buffer full")
	ErrClosed       = errors.New("ws: connection closed")
)

type Message struct {
	Method  string `json:"method"`
	Payload any    `json:"payload,omitempty"`
}

type Connectioner interface {
	SendMessage(message []byte) error
	Close() error
}

type Huber interface {
	http.Handler
	JoinChannel(channel string, conn *Connection)
	LeaveChannel(channel string, conn *Connection)
	ConnectionsInChannel(channel string) []*Connection
	Broadcast(channel string, msg Message) error
	BroadcastAll(msg Message) error
}

type HubOptions struct {
	Logger       *logrus.Logger
	CheckOrigin  func(r *http.Request) bool
	OnConnect    func(r *http.Request, hub *Hub, conn *Connection) error
	OnDisconnect func(conn *Connection)
	WriteTimeout time.Duration
	SendBuffer   int
}

type Hub struct {
	upgrader     websocket.Upgrader
	log          *logrus.Entry
	onConnect    func(r *http.Request, hub *Hub, conn *Connection) error
	onDisconnect func(conn *Connection)
	writeTimeout time.Duration
	sendBuffer   int

	mu          sync.RWMutex
	connections map[*Connection]struct{}
	channels    map[string]map[*Connection]struct{}
}

func NewHub(opts *HubOptions) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     opts.CheckOrigin,
		},
		log:          logger.WithField("component", "ws"),
		onConnect:    opts.OnConnect,
		onDisconnect: opts.OnDisconnect,
		writeTimeout: opts.WriteTimeout,
		sendBuffer:   opts.SendBuffer,
		connections:  make(map[*Connection]struct{}),
		channels:     make(map[string]map[*Connection]struct{}),
	}
	if h.writeTimeout <= 0 {
		h.writeTimeout = defaultWriteTimeout
	}
	if h.sendBuffer <= 0 {
		h.sendBuffer = defaultSendBuffer
	}
	return h
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("upgrade failed")
		return
	}
	conn := &Connection{
		id:     uuid.NewString(),
		socket: socket,
		send:   make(chan []byte, h.sendBuffer),
		done:   make(chan struct{}),
		hub:    h,
	}

	h.mu.Lock()
	h.connections[conn] = struct{}{}
	h.mu.Unlock()

	for _, channel := range strings.Split(r.URL.Query().Get("channels"), ",") {
		if channel = strings.TrimSpace(channel); channel != "" {
			h.JoinChannel(channel, conn)
		}
	}
	if h.onConnect != nil {
		if err := h.onConnect(r, h, conn); err != nil {
			h.log.WithError(err).Warn("connection rejected")
			_ = conn.Close()
			return
		}
	}

	go conn.writePump(h.writeTimeout)
	go conn.readPump()
}

func (h *Hub) JoinChannel(channel string, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.channels[channel]
	if !ok {
		members = make(map[*Connection]struct{})
		h.channels[channel] = members
	}
	members[conn] = struct{}{}
}

func (h *Hub) LeaveChannel(channel string, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(channel, conn)
}

func (h *Hub) leaveLocked(channel string, conn *Connection) {
	members, ok := h.channels[channel]
	if !ok {
		return
	}
	delete(members, conn)
	if len(members) == 0 {
		delete(h.channels, channel)
	}
}

func (h *Hub) ConnectionsInChannel(channel string) []*Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Connection, 0, len(h.channels[channel]))
	for conn := range h.channels[channel] {
		out = append(out, conn)
	}
	return out
}

func (h *Hub) ConnectionsCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Broadcast sends msg to every connection in channel. Slow connections are
// dropped rather than allowed to block the sender.
func (h *Hub) Broadcast(channel string, msg Message) error {
	return h.fanOut(h.ConnectionsInChannel(channel), msg)
}

func (h *Hub) BroadcastAll(msg Message) error {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.connections))
	for conn := range h.connections {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()
	return h.fanOut(conns, msg)
}

func (h *Hub) fanOut(conns []*Connection, msg Message) error {
	if len(conns) == 0 {
		return nil
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	for _, conn := range conns {
		if err := conn.SendMessage(data); err != nil {
			h.log.WithError(err).WithField("connection", conn.id).Debug("dropping connection")
		}
	}
	return nil
}

func (h *Hub) remove(conn *Connection) {
	h.mu.Lock()
	delete(h.connections, conn)
	for channel := range h.channels {
		h.leaveLocked(channel, conn)
	}
	h.mu.Unlock()
	if h.onDisconnect != nil {
		h.onDisconnect(conn)
	}
}

type Connection struct {
	id     string
	socket *websocket.Conn
	send   chan []byte
	done   chan struct{}
	hub    *Hub

	closeOnce sync.Once
}

func (c *Connection) ID() string {
	return c.id
}

// SendMessage queues message for delivery. A full queue closes the connection.
func (c *Connection) SendMessage(message []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- message:
		return nil
	default:
		_ = c.Close()
		return ErrSlowConsumer
	}
}

func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.socket.Close()
		c.hub.remove(c)
	})
	return err
}

func (c *Connection) writePump(timeout time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()
	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(timeout))
			if err := c.socket.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(timeout))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only services control frames and notices the peer going away.
func (c *Connection) readPump() {
	defer func() {
		_ = c.Close()
	}()
	c.socket.SetReadLimit(512)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.socket.ReadMessage(); err != nil {
			return
		}
	}
}
