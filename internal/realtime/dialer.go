package realtime

import (
	"context"
	"fmt"
	"net/url"

	"campusmart/client/internal/config"

	"github.com/gorilla/websocket"
)

// Dialer opens the socket for one identity.
type Dialer interface {
	Dial(ctx context.Context, identityID string) (*websocket.Conn, error)
}

// WSDialer dials <URL>?userId=<id>. http(s) URLs are rewritten to ws(s).
type WSDialer struct {
	URL    string
	Dialer *websocket.Dialer
}

func NewWSDialer(socketURL string) *WSDialer {
	return &WSDialer{
		URL: socketURL,
		Dialer: &websocket.Dialer{
			HandshakeTimeout: config.RequestTimeout,
		},
	}
}

func (d *WSDialer) Dial(ctx context.Context, identityID string) (*websocket.Conn, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, fmt.Errorf("parse socket url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	q := u.Query()
	q.Set("userId", identityID)
	u.RawQuery = q.Encode()

	conn, resp, err := d.Dialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}
	return conn, nil
}
