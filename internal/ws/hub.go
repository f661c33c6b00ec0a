// Package ws is the live-delivery connection registry: a hub keyed by user
// id that fans encrypted message events out to every open socket a user
// has. It stays out of business logic; services reach it only through the
// service.Notifier interface.
package ws

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/monmlabs/monm-server/internal/model"
	"github.com/monmlabs/monm-server/internal/service"
	"golang.org/x/net/websocket"
)

// Client is one open socket for one user.
type Client struct {
	userID string
	conn   *websocket.Conn
	sendCh chan []byte
}

type notification struct {
	userIDs []string
	payload []byte
}

// Hub owns the user->sockets map from a single goroutine; all access goes
// through channels.
type Hub struct {
	registerCh   chan *Client
	unregisterCh chan *Client
	notifyCh     chan notification
	stopCh       chan struct{}
	doneCh       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		registerCh:   make(chan *Client, 16),
		unregisterCh: make(chan *Client, 16),
		notifyCh:     make(chan notification, 256),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start begins the hub's event loop.
func (h *Hub) Start() {
	go h.run()
}

// Stop shuts down the hub and closes every connection.
func (h *Hub) Stop() {
	close(h.stopCh)
	<-h.doneCh
}

func (h *Hub) run() {
	defer close(h.doneCh)

	clients := make(map[string]map[*Client]struct{})

	for {
		select {
		case c := <-h.registerCh:
			if clients[c.userID] == nil {
				clients[c.userID] = make(map[*Client]struct{})
			}
			clients[c.userID][c] = struct{}{}

		case c := <-h.unregisterCh:
			set := clients[c.userID]
			if _, ok := set[c]; ok {
				delete(set, c)
				close(c.sendCh)
				if len(set) == 0 {
					delete(clients, c.userID)
				}
			}

		case n := <-h.notifyCh:
			for _, userID := range n.userIDs {
				for c := range clients[userID] {
					select {
					case c.sendCh <- n.payload:
					default:
						// Slow client; drop rather than block the hub
					}
				}
			}

		case <-h.stopCh:
			for _, set := range clients {
				for c := range set {
					close(c.sendCh)
					if c.conn != nil {
						_ = c.conn.Close()
					}
				}
			}
			return
		}
	}
}

// messageEvent mirrors the wire shape the client expects: binary columns
// travel base64 encoded.
type messageEvent struct {
	Type    string `json:"type"`
	Message struct {
		ID               string    `json:"id"`
		ConversationID   string    `json:"conversation_id"`
		SenderID         string    `json:"sender_id"`
		PayloadEncrypted string    `json:"payload_encrypted"`
		IV               string    `json:"iv"`
		AuthTag          string    `json:"auth_tag"`
		CreatedAt        time.Time `json:"created_at"`
	} `json:"message"`
}

// NewMessage implements service.Notifier.
func (h *Hub) NewMessage(msg *model.Message, recipientIDs []string) {
	if len(recipientIDs) == 0 {
		return
	}

	ev := messageEvent{Type: "message:new"}
	ev.Message.ID = msg.ID
	ev.Message.ConversationID = msg.ConversationID
	ev.Message.SenderID = msg.SenderID
	ev.Message.PayloadEncrypted = base64.StdEncoding.EncodeToString(msg.PayloadEncrypted)
	ev.Message.IV = base64.StdEncoding.EncodeToString(msg.IV)
	ev.Message.AuthTag = base64.StdEncoding.EncodeToString(msg.AuthTag)
	ev.Message.CreatedAt = msg.CreatedAt

	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Error("failed to marshal ws event", "error", err)
		return
	}

	select {
	case h.notifyCh <- notification{userIDs: recipientIDs, payload: payload}:
	case <-h.stopCh:
	}
}

// Handler upgrades authenticated requests. The token travels as a query
// parameter because browser WebSocket clients cannot set headers.
func (h *Hub) Handler(authService *service.AuthService) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := authService.VerifyJWT(r.URL.Query().Get("token"))
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		userID, ok := claims["user_id"].(string)
		if !ok || userID == "" {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		websocket.Handler(func(conn *websocket.Conn) {
			h.serve(userID, conn)
		}).ServeHTTP(w, r)
	})
}

func (h *Hub) serve(userID string, conn *websocket.Conn) {
	c := &Client{
		userID: userID,
		conn:   conn,
		sendCh: make(chan []byte, 32),
	}

	if !h.register(c) {
		_ = conn.Close()
		return
	}
	go c.writePump()

	// Read loop exists only to notice the peer going away.
	for {
		var discard string
		err := websocket.Message.Receive(conn, &discard)
		if err != nil {
			break
		}
	}

	h.unregister(c)
}

// register hands the client to the hub loop. It must not block forever
// once the hub has stopped; false means the hub is gone.
func (h *Hub) register(c *Client) bool {
	select {
	case h.registerCh <- c:
		return true
	case <-h.stopCh:
		return false
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.unregisterCh <- c:
	case <-h.stopCh:
	}
}

func (c *Client) writePump() {
	for payload := range c.sendCh {
		err := websocket.Message.Send(c.conn, string(payload))
		if err != nil {
			_ = c.conn.Close()
			return
		}
	}
	_ = c.conn.Close()
}
