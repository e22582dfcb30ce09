package dump

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hervehildenbrand/bgp-conflicts/pkg/models"
)

const (
	// Connection settings
	connectionTimeout = 60 * time.Second
	readTimeout       = 60 * time.Second
	writeTimeout      = 10 * time.Second
)

// WebSocketOpener reads a dump replayed over a WebSocket: one record per text
// message, ending when the server closes the connection.
type WebSocketOpener struct {
	// Subscribe, when set, is sent as JSON right after connecting.
	Subscribe interface{}

	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
}

// NewWebSocketOpener creates an opener with the default timeouts.
func NewWebSocketOpener() *WebSocketOpener {
	return &WebSocketOpener{
		HandshakeTimeout: connectionTimeout,
		ReadTimeout:      readTimeout,
	}
}

func (o *WebSocketOpener) Open(ctx context.Context, src models.Source) (io.ReadCloser, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: o.HandshakeTimeout,
	}

	log.Printf("[%s] Connecting to dump replay...", src.Name)
	conn, _, err := dialer.DialContext(ctx, src.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	if o.Subscribe != nil {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(o.Subscribe); err != nil {
			conn.Close()
			return nil, fmt.Errorf("subscribe failed: %w", err)
		}
	}

	return &wsReader{conn: conn, readTimeout: o.ReadTimeout}, nil
}

// wsReader presents text messages as newline terminated lines.
type wsReader struct {
	conn        *websocket.Conn
	readTimeout time.Duration
	buf         []byte
	eof         bool
}

func (r *wsReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.eof {
			return 0, io.EOF
		}
		if r.readTimeout > 0 {
			r.conn.SetReadDeadline(time.Now().Add(r.readTimeout))
		}
		messageType, message, err := r.conn.ReadMessage()
		if err != nil {
			// Normal close - end of dump
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				r.eof = true
				return 0, io.EOF
			}
			return 0, fmt.Errorf("read failed: %w", err)
		}

		// Only process text messages
		if messageType != websocket.TextMessage {
			continue
		}
		r.buf = append(message, '\n')
	}

	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

func (r *wsReader) Close() error {
	return r.conn.Close()
}
