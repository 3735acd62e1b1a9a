package nfc

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"
)

// MyNumberRecord is the identity data of a national ID card.
type MyNumberRecord struct {
	CardID          string    `json:"cardId"`
	Name            string    `json:"name"`
	MyNumber        string    `json:"myNumber"`
	Address         string    `json:"address"`
	BirthDate       string    `json:"birthDate"`
	CertificateData string    `json:"certificateData"`
	IssueDate       time.Time `json:"issueDate"`
	ExpiryDate      time.Time `json:"expiryDate"`
}

func myNumberRecord(c *Card) *MyNumberRecord {
	return &MyNumberRecord{
		CardID:          c.ID,
		Name:            c.Property(PropName),
		MyNumber:        c.Property(PropMyNumber),
		Address:         c.Property(PropAddress),
		BirthDate:       c.Property(PropBirthDate),
		CertificateData: c.Property(PropCertificateData),
		IssueDate:       c.IssueDate,
		ExpiryDate:      c.ExpiryDate,
	}
}

func (s *Session) ReadMyNumber(ctx context.Context) (*MyNumberRecord, error) {
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	defer s.end()

	if err := s.requireMyNumber("read my number"); err != nil {
		return nil, err
	}
	if err := s.delay.Wait(ctx, OpReadMyNumber); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return myNumberRecord(s.card), nil
}

// VerifyMyNumberPIN only accepts the PIN stored on the card.
func (s *Session) VerifyMyNumberPIN(ctx context.Context, pin string) (bool, error) {
	if err := s.begin(ctx); err != nil {
		return false, err
	}
	defer s.end()

	if err := s.requireMyNumber("verify pin"); err != nil {
		return false, err
	}
	if err := s.delay.Wait(ctx, OpVerifyPIN); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.card.Property(PropPIN)
	return stored != "" && stored == pin, nil
}

// Certificate returns the decoded certificate stored on the card.
func (s *Session) Certificate(ctx context.Context) ([]byte, error) {
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	defer s.end()

	if err := s.requireMyNumber("certificate"); err != nil {
		return nil, err
	}
	if err := s.delay.Wait(ctx, OpCertificate); err != nil {
		return nil, err
	}

	s.mu.RLock()
	encoded := s.card.Property(PropCertificateData)
	id := s.card.ID
	s.mu.RUnlock()

	cert, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("certificate of %v: %v: %w", id, err, ErrCorruptData)
	}
	return cert, nil
}

func (s *Session) requireMyNumber(op string) error {
	if err := s.requireCard(op); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.card.Type != MyNumber {
		return fmt.Errorf("%v: card %v is %v, not %v: %w", op, s.card.ID, s.card.Type, MyNumber, ErrTypeMismatch)
	}
	return nil
}
