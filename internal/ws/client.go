package ws

import (
	"strings"

	"github.com/gofiber/websocket/v2"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/notify"
)

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	// statuses limits verification events to these outcomes; empty means all.
	statuses map[domain.VerifyStatus]bool
	send     chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn, statusFilter string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		statuses: parseStatusFilter(statusFilter),
		send:     make(chan []byte, 256),
	}
}

// parseStatusFilter reads a comma separated list such as
// "matched,spoof_suspected".
func parseStatusFilter(raw string) map[domain.VerifyStatus]bool {
	statuses := make(map[domain.VerifyStatus]bool)
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			statuses[domain.VerifyStatus(s)] = true
		}
	}
	return statuses
}

func (c *Client) accepts(event notify.Event) bool {
	if len(c.statuses) == 0 || event.Status == "" {
		return true
	}
	return c.statuses[event.Status]
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}
