package nfc

import (
	"encoding/json"
	"fmt"
	"time"
)

type CardType string

const (
	FeliCa   CardType = "FeliCa"
	MIFARE   CardType = "MIFARE"
	MyNumber CardType = "MyNumber"
)

// Well known property names.
const (
	PropName            = "Name"
	PropPIN             = "PIN"
	PropCertificateData = "CertificateData"
	PropMyNumber        = "MyNumber"
	PropAddress         = "Address"
	PropBirthDate       = "BirthDate"
)

const DateFormat = "2006/01/02"

type Card struct {
	// ID is the unique catalog key of the card.
	ID   string   `json:"id"`
	Type CardType `json:"type"`
	// IssueDate and ExpiryDate only carry a calendar date, the time of day is irrelevant.
	IssueDate  time.Time `json:"issueDate"`
	ExpiryDate time.Time `json:"expiryDate"`
	// Properties is the data stored on the card. It is the only part of a card that can change.
	Properties map[string]string `json:"properties"`
}

// Clone returns a deep copy so that callers never share the property map.
func (c Card) Clone() *Card {
	props := make(map[string]string, len(c.Properties))
	for k, v := range c.Properties {
		props[k] = v
	}
	c.Properties = props
	return &c
}

// Property returns the named property, or the empty string if the card does not have it.
func (c Card) Property(key string) string {
	return c.Properties[key]
}

func (c Card) Expired(at time.Time) bool {
	return !c.ExpiryDate.IsZero() && at.After(c.ExpiryDate)
}

func (c Card) String() string {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("ID: %v, type: %v", c.ID, c.Type)
	}
	return string(b)
}
