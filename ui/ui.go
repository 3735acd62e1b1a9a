package ui

import (
	"github.com/callebjorkell/ic-card-reader/nfc"
)

type ColorLed interface {
	Purple()
	Yellow()
	Cyan()
	Red()
	Green()
	Blue()
	Off()
}

// ShowState sets the LED colour for a reader state.
func ShowState(led ColorLed, state nfc.ReaderState) {
	switch state {
	case nfc.Connected:
		led.Blue()
	case nfc.CardInserted:
		led.Green()
	case nfc.CardRemoved:
		led.Yellow()
	case nfc.Error:
		led.Red()
	default:
		led.Off()
	}
}

// Follow keeps the LED in sync with the reader until its event stream is
// closed. The returned channel is closed once that has happened.
func Follow(led ColorLed, reader nfc.CardReader) <-chan struct{} {
	events := reader.Events()
	ShowState(led, reader.Status())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range events {
			switch e.Kind {
			case nfc.StatusChanged:
				ShowState(led, e.State)
			case nfc.CardInsertedEvent:
				if e.Card == nil {
					continue
				}
				// expired cards and national ID cards get a blink of their own
				switch {
				case e.Card.Expired(e.Timestamp):
					led.Cyan()
				case e.Card.Type == nfc.MyNumber:
					led.Purple()
				default:
					continue
				}
				ShowState(led, e.State)
			}
		}
	}()
	return done
}
