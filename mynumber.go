package main

import (
	"context"
	"fmt"

	"github.com/callebjorkell/ic-card-reader/nfc"
)

func runMyNumber(ctx context.Context, cardId, pin string) error {
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

	fmt.Println("Connecting to the virtual reader...")
	if err := reader.Connect(ctx); err != nil {
		return err
	}

	fmt.Printf("\nInserting MyNumber card %v...\n", cardId)
	if _, err := reader.InsertCard(ctx, cardId); err != nil {
		return err
	}

	fmt.Println("\nPIN verification:")
	ok, err := reader.VerifyMyNumberPIN(ctx, pin)
	if err != nil {
		return err
	}
	fmt.Printf("PIN verification: %v\n", result(ok))
	if !ok {
		return nil
	}

	record, err := reader.ReadMyNumber(ctx)
	if err != nil {
		return err
	}
	fmt.Println("\nMyNumber card information:")
	fmt.Printf("  Name:        %v\n", record.Name)
	fmt.Printf("  MyNumber:    %v\n", record.MyNumber)
	fmt.Printf("  Address:     %v\n", record.Address)
	fmt.Printf("  Birth date:  %v\n", record.BirthDate)
	fmt.Printf("  Issued:      %v\n", record.IssueDate.Format(nfc.DateFormat))
	fmt.Printf("  Expires:     %v\n", record.ExpiryDate.Format(nfc.DateFormat))

	fmt.Println("\nReading the certificate...")
	cert, err := reader.Certificate(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Certificate length: %v bytes\n", len(cert))

	if err := reader.RemoveCard(ctx); err != nil {
		return err
	}
	return reader.Disconnect(ctx)
}
