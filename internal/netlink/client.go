package netlink

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Garsondee/Crater-Duel/internal/game"
)

// Dialer opens a fresh connection to a relay.
type Dialer func(ctx context.Context) (Conn, error)

// URLDialer dials a relay hub at url.
func URLDialer(url string) Dialer {
	return func(ctx context.Context) (Conn, error) { return Dial(ctx, url) }
}

// Client holds the current Link to a relay and replaces it on Redial, so a
// match keeps one outbox across reconnects. It implements game.Outbox. Call
// it from the tick goroutine only.
type Client struct {
	ctx  context.Context
	dial Dialer
	log  *slog.Logger
	link *Link
}

// NewClient dials once and fails if that first connection cannot be made.
func NewClient(ctx context.Context, dial Dialer, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := dial(ctx)
	if err != nil {
		return nil, err
	}
	return &Client{ctx: ctx, dial: dial, log: logger, link: NewLink(ctx, conn, logger)}, nil
}

func (c *Client) Send(ev game.Event) error { return c.link.Send(ev) }

// Poll drains the current link.
func (c *Client) Poll() []game.Event { return c.link.Poll() }

// Err is non-nil once the current link has stopped.
func (c *Client) Err() error { return c.link.Err() }

// Redial closes the current link and connects a new one. On failure the
// dead link stays in place and Err keeps reporting it.
func (c *Client) Redial() error {
	_ = c.link.Close()
	conn, err := c.dial(c.ctx)
	if err != nil {
		return fmt.Errorf("redial: %w", err)
	}
	c.link = NewLink(c.ctx, conn, c.log)
	c.log.Info("relay link replaced")
	return nil
}

func (c *Client) Close() error { return c.link.Close() }
