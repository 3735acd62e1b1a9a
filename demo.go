package main

import (
	"context"
	"fmt"
	"time"

	"github.com/callebjorkell/ic-card-reader/nfc"
	log "github.com/sirupsen/logrus"
)

func printEvents(reader *nfc.Session) func() {
	return reader.AddListener(func(e nfc.Event) {
		switch e.Kind {
		case nfc.StatusChanged:
			fmt.Printf("[%v] Status changed: %v\n", e.Timestamp.Format("15:04:05"), e.State)
		case nfc.CardInsertedEvent:
			fmt.Printf("Card inserted: %v (%v)\n", e.Card.ID, orDefault(e.Card.Property(nfc.PropName), "unknown"))
		case nfc.CardRemovedEvent:
			fmt.Printf("Card removed: %v\n", e.Card.ID)
		}
	})
}

func runDemo(ctx context.Context, cardId string) error {
	reader, err := newSession()
	if err != nil {
		return err
	}
	stop := printEvents(reader)
	defer func() {
		// closing delivers the events still queued
		reader.Close()
		stop()
	}()

	fmt.Println("Connecting to the reader...")
	if err := reader.Connect(ctx); err != nil {
		return err
	}

	fmt.Println("Available cards:")
	for _, id := range reader.AvailableCards() {
		fmt.Printf("  - %v\n", id)
	}

	fmt.Printf("\nInserting %v...\n", cardId)
	card, err := reader.InsertCard(ctx, cardId)
	if err != nil {
		return err
	}
	printCard(card)

	fmt.Println("\nAuthenticating:")
	ok, err := reader.Authenticate(ctx, firstPin())
	if err != nil {
		return err
	}
	fmt.Printf("Authentication: %v\n", result(ok))

	fmt.Println("\nWriting to the card:")
	if err := reader.WriteProperty(ctx, "LastAccess", time.Now().Format(time.RFC3339)); err != nil {
		return err
	}
	card, err = reader.ReadCard(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("LastAccess: %v\n", orDefault(card.Property("LastAccess"), "none"))

	fmt.Println("\nRemoving the card...")
	if err := reader.RemoveCard(ctx); err != nil {
		return err
	}
	if err := reader.WaitFor(ctx, nfc.Connected); err != nil {
		return err
	}

	fmt.Println("\nDisconnecting from the reader...")
	if err := reader.Disconnect(ctx); err != nil {
		return err
	}
	log.Debugln("Demo finished")
	return nil
}

func printCard(c *nfc.Card) {
	fmt.Println("\nCard information:")
	fmt.Printf("  ID:          %v\n", c.ID)
	fmt.Printf("  Type:        %v\n", c.Type)
	fmt.Printf("  Issued:      %v\n", c.IssueDate.Format(nfc.DateFormat))
	fmt.Printf("  Expires:     %v\n", c.ExpiryDate.Format(nfc.DateFormat))
	fmt.Println("  Properties:")
	for _, k := range sortedKeys(c.Properties) {
		fmt.Printf("    %v: %v\n", k, c.Properties[k])
	}
}

func firstPin() string {
	if len(*pins) > 0 {
		return (*pins)[0]
	}
	return ""
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failed"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
