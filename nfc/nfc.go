package nfc

import (
	"fmt"
	"io"
	"time"
)

// ReaderState is the single active state of a simulated reader.
type ReaderState int

const (
	NotConnected ReaderState = iota
	Connected
	CardInserted
	CardRemoved
	Error
)

func (s ReaderState) String() string {
	switch s {
	case NotConnected:
		return "NotConnected"
	case Connected:
		return "Connected"
	case CardInserted:
		return "CardInserted"
	case CardRemoved:
		return "CardRemoved"
	case Error:
		return "Error"
	}
	return "Unknown"
}

func (s ReaderState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ReaderState) UnmarshalText(text []byte) error {
	for st := NotConnected; st <= Error; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown reader state %q", text)
}

type EventKind int

const (
	StatusChanged EventKind = iota
	CardInsertedEvent
	CardRemovedEvent
)

func (k EventKind) String() string {
	switch k {
	case StatusChanged:
		return "statusChanged"
	case CardInsertedEvent:
		return "cardInserted"
	case CardRemovedEvent:
		return "cardRemoved"
	}
	return "unknown"
}

func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is emitted for every state transition. Card is only set for
// insertion and removal events and is a snapshot, never the live card.
type Event struct {
	Kind      EventKind   `json:"kind"`
	State     ReaderState `json:"state"`
	Card      *Card       `json:"card,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// CardReader is the part of a reader that a host needs to follow what happens on it.
type CardReader interface {
	io.Closer
	Events() <-chan Event
	Status() ReaderState
}
