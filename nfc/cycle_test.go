package nfc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCycle(t *testing.T) {
	s := newTestSession(t)
	events, cancelEvents := s.Subscribe(64)
	defer cancelEvents()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Cycle(ctx, s, "CARD001", time.Millisecond, time.Millisecond) }()

	inserted, removed := 0, 0
	timeout := time.After(2 * time.Second)
	for inserted < 2 || removed < 2 {
		select {
		case e := <-events:
			switch e.Kind {
			case CardInsertedEvent:
				inserted++
				assert.Equal(t, "CARD001", e.Card.ID)
			case CardRemovedEvent:
				removed++
			}
		case <-timeout:
			t.Fatalf("only saw %v insertions and %v removals", inserted, removed)
		}
	}

	cancel()
	err := <-done
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestCycleUnknownCard(t *testing.T) {
	s := newTestSession(t)

	err := Cycle(context.Background(), s, "NOPE", time.Millisecond, time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, Connected, s.Status())
}
