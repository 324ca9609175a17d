package ws

import (
	"encoding/json"
	"time"

	"twopc_backend/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
	sendBuffer = 64
)

// Client is one dashboard connection following a wallet's earnings
type Client struct {
	Wallet string
	Conn   *websocket.Conn
	Send   chan []byte
	Hub    *Hub
	Done   chan struct{}
}

func NewClient(wallet string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		Wallet: wallet,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		Hub:    hub,
		Done:   make(chan struct{}),
	}
}

// Run registers the client and serves it until the connection drops
func (c *Client) Run() {
	c.Hub.Register(c)
	go c.writePump()

	// explicit ready handshake so clients know the subscription is live
	c.queue(Envelope{Type: MsgReady, Data: map[string]string{"wallet": c.Wallet}})

	c.readPump()
}

func (c *Client) queue(env Envelope) {
	msg, err := json.Marshal(env)
	if err != nil {
		return
	}
	select {
	case c.Send <- msg:
	case <-time.After(500 * time.Millisecond):
		logger.Warn("ws timeout queuing message", "wallet", c.Wallet, "type", env.Type)
	}
}

//read
func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		_ = c.Conn.Close()
		close(c.Done)
	}()

	c.Conn.SetReadLimit(1024)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws read error", "wallet", c.Wallet, "error", err)
			}
			return
		}

		var in struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &in); err != nil {
			c.queue(Envelope{Type: MsgError, Data: ErrorPayload{Message: "invalid message"}})
			continue
		}
		if in.Type == MsgPing {
			c.queue(Envelope{Type: MsgPong})
		}
	}
}

//write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("ws write error", "wallet", c.Wallet, "error", err)
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
