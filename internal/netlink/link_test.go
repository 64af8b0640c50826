package netlink_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/Garsondee/Crater-Duel/internal/game"
	"github.com/Garsondee/Crater-Duel/internal/netlink"
	"github.com/Garsondee/Crater-Duel/internal/netlink/mocks"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func blockUntilDone(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// --- Codec ---

func TestCodec_VolleySurvivesTheWire(t *testing.T) {
	v := &game.Volley{ID: "v1", OwnerID: "p1", Trident: true, Bombs: []*game.Bomb{
		{ID: "b1", OwnerID: "p1", Damage: 25, DamageRadius: 50, Target: game.Point{X: 10, Y: 20}},
	}}
	data, err := netlink.Encode(game.Event{Kind: game.KindVolleySync, EntityID: "p1", Volley: v, Trident: true})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	ev, err := netlink.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Volley == nil || len(ev.Volley.Bombs) != 1 || ev.Volley.Bombs[0].Target != v.Bombs[0].Target {
		t.Fatalf("volley = %+v", ev.Volley)
	}
	if ev.Volley == v {
		t.Fatal("decoded volley shares memory with the original")
	}
}

func TestCodec_RejectsFramesWithoutKind(t *testing.T) {
	if _, err := netlink.Encode(game.Event{EntityID: "p1"}); err == nil {
		t.Fatal("encode accepted an event without kind")
	}
	if _, err := netlink.Decode([]byte{0xc1}); err == nil {
		t.Fatal("decode accepted garbage")
	}
	empty, err := netlink.Encode(game.Event{Kind: game.KindTurnAdvance})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := netlink.Decode(empty); err != nil {
		t.Fatalf("turn-advance without fields: %v", err)
	}
}

// --- Link ---

func TestLink_PollDeliversDecodedFrames(t *testing.T) {
	ctrl := gomock.NewController(t)
	conn := mocks.NewMockConn(ctrl)

	frame, err := netlink.Encode(game.Event{Kind: game.KindEntityMove, EntityID: "p1", Direction: game.Left})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	gomock.InOrder(
		conn.EXPECT().Read(gomock.Any()).Return([]byte("not msgpack"), nil),
		conn.EXPECT().Read(gomock.Any()).Return(frame, nil),
		conn.EXPECT().Read(gomock.Any()).DoAndReturn(blockUntilDone),
	)
	conn.EXPECT().Close(1000, gomock.Any()).Return(nil)

	l := netlink.NewLink(context.Background(), conn, quietLogger())
	var got []game.Event
	waitFor(t, "the move frame", func() bool {
		got = append(got, l.Poll()...)
		return len(got) > 0
	})
	if len(got) != 1 || got[0].Kind != game.KindEntityMove || got[0].Direction != game.Left {
		t.Fatalf("polled %+v", got)
	}
	if len(l.Poll()) != 0 {
		t.Fatal("poll should clear the inbox")
	}
	if err := l.Err(); err != nil {
		t.Fatalf("a malformed frame must not stop the link: %v", err)
	}

	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !errors.Is(l.Err(), netlink.ErrClosed) {
		t.Fatalf("err after close = %v", l.Err())
	}
}

func TestLink_SendWritesFrames(t *testing.T) {
	ctrl := gomock.NewController(t)
	conn := mocks.NewMockConn(ctrl)
	conn.EXPECT().Read(gomock.Any()).DoAndReturn(blockUntilDone)
	conn.EXPECT().Close(gomock.Any(), gomock.Any()).Return(nil)

	var written []byte
	conn.EXPECT().Write(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, data []byte) error {
		written = data
		return nil
	})

	l := netlink.NewLink(context.Background(), conn, quietLogger())
	defer l.Close()

	if err := l.Send(game.Event{Kind: game.KindTurnAdvance, ActiveID: "p2"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	ev, err := netlink.Decode(written)
	if err != nil {
		t.Fatalf("decode written frame: %v", err)
	}
	if ev.Kind != game.KindTurnAdvance || ev.ActiveID != "p2" {
		t.Fatalf("wrote %+v", ev)
	}
}

func TestLink_ReadFailureDisconnects(t *testing.T) {
	ctrl := gomock.NewController(t)
	conn := mocks.NewMockConn(ctrl)
	conn.EXPECT().Read(gomock.Any()).Return(nil, io.ErrUnexpectedEOF)
	conn.EXPECT().Close(gomock.Any(), gomock.Any()).Return(nil)

	l := netlink.NewLink(context.Background(), conn, quietLogger())
	<-l.Done()
	if !errors.Is(l.Err(), io.ErrUnexpectedEOF) {
		t.Fatalf("err = %v", l.Err())
	}
	if err := l.Send(game.Event{Kind: game.KindTurnAdvance}); !errors.Is(err, game.ErrDisconnected) {
		t.Fatalf("send on a dead link err = %v", err)
	}
	_ = l.Close()
}
