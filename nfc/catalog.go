package nfc

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// Catalog is the fixed set of cards a session can insert. It is built once
// and never changes afterwards; lookups hand out copies.
type Catalog struct {
	cards map[string]Card
}

func NewCatalog(cards ...Card) (Catalog, error) {
	c := Catalog{cards: make(map[string]Card, len(cards))}
	for _, card := range cards {
		if card.ID == "" {
			return Catalog{}, fmt.Errorf("catalog card without id (type %v)", card.Type)
		}
		if _, ok := c.cards[card.ID]; ok {
			return Catalog{}, fmt.Errorf("duplicate catalog card %v", card.ID)
		}
		c.cards[card.ID] = *card.Clone()
	}
	return c, nil
}

// MustCatalog is like NewCatalog but panics on invalid input. Meant for fixtures.
func MustCatalog(cards ...Card) Catalog {
	c, err := NewCatalog(cards...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Catalog) Lookup(id string) (*Card, bool) {
	card, ok := c.cards[id]
	if !ok {
		return nil, false
	}
	return card.Clone(), true
}

// IDs returns the card identifiers in lexical order.
func (c Catalog) IDs() []string {
	ids := make([]string, 0, len(c.cards))
	for id := range c.cards {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c Catalog) Cards() []Card {
	cards := make([]Card, 0, len(c.cards))
	for _, id := range c.IDs() {
		cards = append(cards, *c.cards[id].Clone())
	}
	return cards
}

func (c Catalog) Len() int {
	return len(c.cards)
}

// ReadCatalog decodes a JSON array of cards.
func ReadCatalog(r io.Reader) (Catalog, error) {
	var cards []Card
	if err := json.NewDecoder(r).Decode(&cards); err != nil {
		return Catalog{}, fmt.Errorf("could not decode catalog: %w", err)
	}
	return NewCatalog(cards...)
}

// DefaultCards returns the stock demo cards with dates relative to now.
func DefaultCards(now time.Time) []Card {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return []Card{
		{
			ID:         "CARD001",
			Type:       FeliCa,
			IssueDate:  day.AddDate(-2, 0, 0),
			ExpiryDate: day.AddDate(8, 0, 0),
			Properties: map[string]string{
				PropName:     "Taro Yamada",
				"Company":    "Sample Corporation",
				"Department": "IT",
				"EmployeeId": "EMP001",
			},
		},
		{
			ID:         "CARD002",
			Type:       MIFARE,
			IssueDate:  day.AddDate(-1, 0, 0),
			ExpiryDate: day.AddDate(4, 0, 0),
			Properties: map[string]string{
				PropName:     "Hanako Sato",
				"Company":    "Test Co., Ltd.",
				"Department": "Sales",
				"EmployeeId": "EMP002",
			},
		},
		{
			ID:         "MYNUMBER001",
			Type:       MyNumber,
			IssueDate:  day.AddDate(-2, 0, 0),
			ExpiryDate: day.AddDate(8, 0, 0),
			Properties: map[string]string{
				PropName:            "Taro Yamada",
				PropMyNumber:        "123456789012",
				PropAddress:         "Chiyoda, Tokyo",
				PropBirthDate:       "1990/01/01",
				PropCertificateData: "MIIBIjANBgkqhkiG9w0BAQEFAAOCAQ8AMIIBCgKCAQEA",
				PropPIN:             "1234",
			},
		},
	}
}

func DefaultCatalog(now time.Time) Catalog {
	return MustCatalog(DefaultCards(now)...)
}
