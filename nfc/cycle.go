package nfc

import (
	"context"
	"time"
)

// Cycle keeps inserting and removing the card with the given id, leaving it in
// the reader for present and out of it for absent, until ctx ends. The reader
// is connected first if needed.
func Cycle(ctx context.Context, s *Session, id string, present, absent time.Duration) error {
	if s.Status() == NotConnected {
		if err := s.Connect(ctx); err != nil {
			return err
		}
	}
	for {
		if _, err := s.InsertCard(ctx, id); err != nil {
			return err
		}
		if err := sleep(ctx, present); err != nil {
			return err
		}
		if err := s.RemoveCard(ctx); err != nil {
			return err
		}
		if err := s.WaitFor(ctx, Connected); err != nil {
			return err
		}
		if err := sleep(ctx, absent); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
