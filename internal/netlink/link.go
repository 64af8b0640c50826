package netlink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sasha-s/go-deadlock"

	"github.com/Garsondee/Crater-Duel/internal/game"
)

const defaultWriteTimeout = 5 * time.Second

// Link is a match's side of a connection. It implements game.Outbox; a
// reader goroutine decodes inbound frames into an inbox that the tick loop
// drains with Poll.
type Link struct {
	conn         Conn
	log          *slog.Logger
	writeTimeout time.Duration

	mu    deadlock.Mutex
	inbox []game.Event
	err   error

	writeMu deadlock.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

// NewLink starts reading from conn until ctx ends, the connection fails or
// Close is called.
func NewLink(ctx context.Context, conn Conn, logger *slog.Logger) *Link {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	l := &Link{
		conn:         conn,
		log:          logger,
		writeTimeout: defaultWriteTimeout,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	go l.readLoop(ctx)
	return l
}

func (l *Link) readLoop(ctx context.Context) {
	defer close(l.done)
	for {
		data, err := l.conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				err = ErrClosed
			}
			l.mu.Lock()
			l.err = err
			l.mu.Unlock()
			if !errors.Is(err, ErrClosed) {
				l.log.Warn("link read failed", "err", err)
			}
			return
		}
		ev, err := Decode(data)
		if err != nil {
			l.log.Warn("dropping malformed frame", "err", err)
			continue
		}
		l.mu.Lock()
		l.inbox = append(l.inbox, ev)
		l.mu.Unlock()
	}
}

// Send encodes ev and writes it to the connection.
func (l *Link) Send(ev game.Event) error {
	if err := l.Err(); err != nil {
		return fmt.Errorf("send %s: %w", ev.Kind, game.ErrDisconnected)
	}
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.writeTimeout)
	defer cancel()

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if err := l.conn.Write(ctx, data); err != nil {
		return fmt.Errorf("send %s: %w", ev.Kind, err)
	}
	l.log.Debug("sent", "kind", ev.Kind, "entity", ev.EntityID, "bytes", len(data))
	return nil
}

// Poll returns and clears the events received since the last call.
func (l *Link) Poll() []game.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	q := l.inbox
	l.inbox = nil
	return q
}

// Err reports why the reader stopped, or nil while it runs.
func (l *Link) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Done is closed when the reader stops.
func (l *Link) Done() <-chan struct{} { return l.done }

// Close stops the reader and closes the connection.
func (l *Link) Close() error {
	l.cancel()
	err := l.conn.Close(1000, "bye")
	<-l.done
	if err != nil && !errors.Is(err, ErrClosed) {
		return fmt.Errorf("close link: %w", err)
	}
	return nil
}
