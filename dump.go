package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/callebjorkell/ic-card-reader/nfc"
)

func listCards() error {
	c, err := db.ReadAll()
	if err != nil {
		return err
	}

	if len(c) > 0 {
		fmt.Println("            ID │ Type     │ Expires    │   │ Name")
		fmt.Println("───────────────┼──────────┼────────────┼───┼─────────────────────────────────────────")
	} else {
		fmt.Println("No cards found in the catalog...")
	}
	now := time.Now()
	for _, card := range c {
		name := card.Property(nfc.PropName)
		if len(name) > 40 {
			name = fmt.Sprintf("%.39v…", name)
		}
		expired := " "
		if card.Expired(now) {
			expired = "✗"
		}
		fmt.Printf("%14v │ %-8v │ %10v │ %v │ %v\n", card.ID, card.Type, card.ExpiryDate.Format(nfc.DateFormat), expired, name)
	}
	return nil
}

func dumpCard(cardId string) error {
	c, err := db.ReadCard(cardId)
	if err != nil {
		return err
	}
	fmt.Println(c)
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
