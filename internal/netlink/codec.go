package netlink

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/Garsondee/Crater-Duel/internal/game"
)

// Encode packs one event into a frame.
func Encode(ev game.Event) ([]byte, error) {
	if ev.Kind == "" {
		return nil, errors.New("encode: event without kind")
	}
	data, err := msgpack.Marshal(&ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Kind, err)
	}
	return data, nil
}

// Decode unpacks a frame. Frames without a kind are rejected.
func Decode(data []byte) (game.Event, error) {
	var ev game.Event
	if err := msgpack.Unmarshal(data, &ev); err != nil {
		return game.Event{}, fmt.Errorf("decode %d bytes: %w", len(data), err)
	}
	if ev.Kind == "" {
		return game.Event{}, errors.New("decode: frame without kind")
	}
	return ev, nil
}
