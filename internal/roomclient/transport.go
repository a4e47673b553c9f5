package roomclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/avvvet/gatortots-services/internal/comm"
	"github.com/gorilla/websocket"
)

// WSTransport is a Transport over a gorilla websocket.
type WSTransport struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Dial connects to the socket service. The token travels in the jwt query
// parameter, the way browsers send it.
func Dial(ctx context.Context, socketURL, token string) (*WSTransport, error) {
	u, err := url.Parse(socketURL)
	if err != nil {
		return nil, fmt.Errorf("parse socket url: %w", err)
	}
	if token != "" {
		q := u.Query()
		q.Set("jwt", token)
		u.RawQuery = q.Encode()
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return nil, fmt.Errorf("dial %s: %s: %w", socketURL, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", socketURL, err)
	}
	return &WSTransport{conn: conn}, nil
}

func (t *WSTransport) Send(msg comm.WSMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteJSON(msg)
}

func (t *WSTransport) Receive() (comm.WSMessage, error) {
	var msg comm.WSMessage
	err := t.conn.ReadJSON(&msg)
	return msg, err
}

func (t *WSTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return t.conn.Close()
}
