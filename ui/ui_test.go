package ui

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/callebjorkell/ic-card-reader/nfc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLed struct {
	mu     sync.Mutex
	colors []string
}

func (r *recordingLed) set(c string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.colors = append(r.colors, c)
}

func (r *recordingLed) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.colors...)
}

func (r *recordingLed) Purple() { r.set("purple") }
func (r *recordingLed) Yellow() { r.set("yellow") }
func (r *recordingLed) Cyan()   { r.set("cyan") }
func (r *recordingLed) Red()    { r.set("red") }
func (r *recordingLed) Green()  { r.set("green") }
func (r *recordingLed) Blue()   { r.set("blue") }
func (r *recordingLed) Off()    { r.set("off") }

func TestShowState(t *testing.T) {
	tests := []struct {
		state nfc.ReaderState
		color string
	}{
		{nfc.NotConnected, "off"},
		{nfc.Connected, "blue"},
		{nfc.CardInserted, "green"},
		{nfc.CardRemoved, "yellow"},
		{nfc.Error, "red"},
	}
	for _, tc := range tests {
		t.Run(tc.state.String(), func(t *testing.T) {
			led := &recordingLed{}
			ShowState(led, tc.state)
			assert.Equal(t, []string{tc.color}, led.seen())
		})
	}
}

func TestFollow(t *testing.T) {
	ctx := context.Background()
	s := nfc.NewSession(nfc.DefaultCatalog(time.Now()), nfc.WithDelay(nfc.NoDelay))
	defer s.Close()

	led := &recordingLed{}
	done := Follow(led, s)
	require.NoError(t, s.Connect(ctx))
	_, err := s.InsertCard(ctx, "MYNUMBER001")
	require.NoError(t, err)

	want := []string{"off", "blue", "green", "purple", "green"}
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual(want, led.seen())
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Disconnect(ctx))
	require.NoError(t, s.Close())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("LED kept following a closed reader")
	}
	assert.Equal(t, append(want, "off"), led.seen())
}

func TestFollowExpiredCard(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	catalog := nfc.MustCatalog(nfc.Card{
		ID:         "OLD",
		Type:       nfc.FeliCa,
		IssueDate:  now.AddDate(-10, 0, 0),
		ExpiryDate: now.AddDate(0, 0, -1),
	})
	s := nfc.NewSession(catalog, nfc.WithDelay(nfc.NoDelay), nfc.WithClock(func() time.Time { return now }))

	led := &recordingLed{}
	done := Follow(led, s)
	require.NoError(t, s.Connect(ctx))
	_, err := s.InsertCard(ctx, "OLD")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	<-done

	assert.Equal(t, []string{"off", "blue", "green", "cyan", "green"}, led.seen())
}
