// Package stream follows the live job log feed the server publishes over a
// WebSocket next to its REST API.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// ErrTransport wraps read failures that are not close frames, such as
// protocol errors.
var ErrTransport = errors.New("log stream transport failure")

const logsPath = "/logs/docker"

// URL derives the log stream endpoint from the REST base URL: http becomes
// ws, https becomes wss and a trailing /api/v1 is replaced by /logs/docker.
func URL(apiURL, token string) (string, error) {
	u, err := url.Parse(strings.TrimRight(apiURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported api url scheme %q", u.Scheme)
	}
	if strings.HasSuffix(u.Path, "/api/v1") {
		u.Path = strings.TrimSuffix(u.Path, "/api/v1") + logsPath
	} else {
		u.Path += logsPath
	}
	u.RawPath = ""
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Outcome says how a stream ended without a transport failure.
type Outcome int

const (
	// ClosedGracefully is a normal close from the server.
	ClosedGracefully Outcome = iota
	// ClosedByServer is any other close frame.
	ClosedByServer
	// Stopped means the caller's context ended the stream.
	Stopped
)

type Result struct {
	Outcome Outcome
	Code    int
	Reason  string
	Frames  int
}

type Conn struct {
	ws     *websocket.Conn
	logger *slog.Logger
}

// Dial opens the stream. The token travels in the query string, so only
// the host is logged.
func Dial(ctx context.Context, streamURL string, logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, streamURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("connect to log stream: %w (HTTP %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("connect to log stream: %w", err)
	}
	logger.Debug("log stream connected", "host", ws.RemoteAddr().String())
	return &Conn{ws: ws, logger: logger}, nil
}

// Receive prints every frame as "| <frame>" until the server closes the
// connection or ctx is done. A close frame of any code is a Result; only a
// connection lost without one is an error.
func (c *Conn) Receive(ctx context.Context, w io.Writer) (Result, error) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client stopped"),
				time.Now().Add(time.Second))
			_ = c.ws.Close()
		case <-done:
		}
	}()

	var res Result
	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			_ = c.ws.Close()
			if ctx.Err() != nil {
				res.Outcome = Stopped
				return res, nil
			}
			// A connection dropped without a close frame arrives here too, as
			// code 1006 (CloseAbnormalClosure), and is reported as a server close.
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				res.Code, res.Reason = ce.Code, ce.Text
				if ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway {
					res.Outcome = ClosedGracefully
				} else {
					res.Outcome = ClosedByServer
				}
				c.logger.Debug("log stream closed", "code", ce.Code, "frames", res.Frames)
				return res, nil
			}
			return res, fmt.Errorf("%w: %v", ErrTransport, err)
		}
		res.Frames++
		if _, err := fmt.Fprintf(w, "| %s\n", strings.TrimRight(string(msg), "\n")); err != nil {
			_ = c.ws.Close()
			return res, err
		}
	}
}
