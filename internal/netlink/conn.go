// Package netlink carries match events between peers: a websocket
// connection, the msgpack frame codec, a Link that feeds a match's tick loop,
// a Client that redials a dropped Link and a relay Hub that echoes every
// frame to all members.
package netlink

//go:generate go tool mockgen -destination=./mocks/conn_mock.go -package=mocks . Conn

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// ErrClosed is returned by reads and writes on a closed connection.
var ErrClosed = errors.New("netlink: connection closed")

// maxFrameBytes bounds one frame; a reconnect-sync carries the whole impact
// log and roster.
const maxFrameBytes = 1 << 20

// Conn is one framed, bidirectional connection.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close(code int, reason string) error
}

type wsConn struct {
	conn *websocket.Conn
}

// Dial connects to a relay hub at url.
func Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	conn.SetReadLimit(maxFrameBytes)
	return &wsConn{conn: conn}, nil
}

// Accept upgrades an HTTP request to a Conn.
func Accept(w http.ResponseWriter, r *http.Request) (Conn, error) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("accept: %w", err)
	}
	conn.SetReadLimit(maxFrameBytes)
	return &wsConn{conn: conn}, nil
}

func (c *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			return nil, ErrClosed
		}
		return nil, err
	}
	return data, nil
}

func (c *wsConn) Write(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageBinary, data)
}

func (c *wsConn) Close(code int, reason string) error {
	return c.conn.Close(websocket.StatusCode(code), reason)
}

// Pipe returns the two ends of an in-memory connection.
func Pipe() (Conn, Conn) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	done := make(chan struct{})
	once := new(sync.Once)
	return &pipeConn{in: ba, out: ab, done: done, once: once},
		&pipeConn{in: ab, out: ba, done: done, once: once}
}

type pipeConn struct {
	in   <-chan []byte
	out  chan<- []byte
	done chan struct{}
	once *sync.Once
}

func (p *pipeConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-p.in:
		return data, nil
	case <-p.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeConn) Write(ctx context.Context, data []byte) error {
	buf := append([]byte(nil), data...)
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	select {
	case p.out <- buf:
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeConn) Close(int, string) error {
	p.once.Do(func() { close(p.done) })
	return nil
}
