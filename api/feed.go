package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/coverlane/coverlane/pkg/models"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = 54 * time.Second
	feedSendBuffer = 16
)

// AlertFeed broadcasts newly created exploit alerts to websocket subscribers.
// It implements alerts.Publisher.
type AlertFeed struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*feedClient]struct{}
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewAlertFeed creates an alert feed hub.
func NewAlertFeed(logger *zap.Logger) *AlertFeed {
	return &AlertFeed{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*feedClient]struct{}),
	}
}

// PublishAlert fans the alert out to every connected subscriber. Slow
// subscribers are dropped rather than blocking the publishing transaction's
// caller.
func (f *AlertFeed) PublishAlert(alert *models.ExploitAlert) {
	payload, err := json.Marshal(alert)
	if err != nil {
		f.logger.Error("failed to encode alert", zap.Error(err))
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for client := range f.clients {
		select {
		case client.send <- payload:
		default:
			go f.remove(client)
		}
	}
}

// ServeWS upgrades the request and subscribes the connection to the feed.
func (f *AlertFeed) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &feedClient{conn: conn, send: make(chan []byte, feedSendBuffer)}
	f.mu.Lock()
	f.clients[client] = struct{}{}
	f.mu.Unlock()

	go f.writePump(client)
	go f.readPump(client)
}

func (f *AlertFeed) remove(client *feedClient) {
	f.mu.Lock()
	if _, ok := f.clients[client]; ok {
		delete(f.clients, client)
		close(client.send)
	}
	f.mu.Unlock()
	client.conn.Close()
}

func (f *AlertFeed) writePump(client *feedClient) {
	ticker := time.NewTicker(feedPingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection so control frames are processed and closes
// the subscription when the peer goes away.
func (f *AlertFeed) readPump(client *feedClient) {
	defer f.remove(client)
	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(feedPongWait))
		return nil
	})
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}
