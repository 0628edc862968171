// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/term"

	"brickctl/internal/util"
	"brickctl/pkg/ipcon"
)

// WebSocketTransport adapts a WebSocket connection to the byte-stream
// interface the protocol layer reads packets from. Binary messages are
// buffered and drained; non-binary frames are skipped.
type WebSocketTransport struct {
	conn      *websocket.Conn
	buf       []byte
	bufOffset int
	closed    bool
}

func (w *WebSocketTransport) Read(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("websocket connection closed")
	}

	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			return 0, err
		}

		if messageType != websocket.BinaryMessage {
			continue
		}

		w.buf = data
		w.bufOffset = 0
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil
	}
}

func (w *WebSocketTransport) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketTransport) Close() error {
	return w.conn.Close()
}

// openWebSocketTransport dials a ws:// or wss:// gateway endpoint.
func openWebSocketTransport(rawURL string, skipSSLVerify bool) (*WebSocketTransport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		// OK
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		Subprotocols:     []string{"tfp"},
	}

	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %v", err)
	}

	return &WebSocketTransport{conn: conn}, nil
}

// GetSecret retrieves the authentication secret from the environment or
// prompts the user without echo.
func GetSecret() (string, error) {
	if secret := os.Getenv("BRICKCTL_SECRET"); secret != "" {
		return secret, nil
	}

	fmt.Fprint(os.Stderr, "Secret: ")

	secretBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		secret, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read secret: %v", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(secret), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(secretBytes), nil
}

// openConnection establishes the gateway connection per the global flags,
// authenticating when --auth was given. The second return value describes
// the endpoint for log output.
func openConnection(opts ...ipcon.Option) (*ipcon.Connection, string, error) {
	opts = append(opts, ipcon.WithLogger(util.Leveled{}))

	var (
		conn *ipcon.Connection
		desc string
	)

	if wsURL != "" {
		transport, err := openWebSocketTransport(wsURL, wsNoSSLVerify)
		if err != nil {
			return nil, "", err
		}
		conn = ipcon.NewConnection(transport, opts...)
		desc = fmt.Sprintf("WebSocket: %s", wsURL)
	} else {
		addr := fmt.Sprintf("%s:%d", host, port)
		var err error
		conn, err = ipcon.Dial(addr, opts...)
		if err != nil {
			return nil, "", err
		}
		desc = fmt.Sprintf("TCP: %s", addr)
	}

	if authenticate {
		secret, err := GetSecret()
		if err != nil {
			conn.Close()
			return nil, "", err
		}
		if err := conn.Authenticate(secret); err != nil {
			conn.Close()
			return nil, "", fmt.Errorf("authentication failed: %w", err)
		}
		util.LogDebug("Authenticated against gateway daemon")
	}

	return conn, desc, nil
}
