package main

import (
	"context"
	"errors"
	"time"

	"github.com/callebjorkell/ic-card-reader/nfc"
	"github.com/callebjorkell/ic-card-reader/server"
	"github.com/callebjorkell/ic-card-reader/ui"
	log "github.com/sirupsen/logrus"
)

func startServer(ctx context.Context) error {
	reader, err := newSession()
	if err != nil {
		return err
	}
	defer reader.Close()

	if *serveLed {
		ui.Follow(ui.GetColorLED(), reader)
	}

	s := server.New(server.Config{
		Reader:   reader,
		Addr:     *serveAddr,
		Announce: *serveAnnounce,
	})

	if *serveCycle != "" {
		go func() {
			err := nfc.Cycle(ctx, reader, *serveCycle, 30*time.Second, 10*time.Second)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Errorf("Stopped cycling card %v: %v", *serveCycle, err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return s.Start()
}
