package nfc

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/buntdb"
)

const cardKeyPrefix = "card:"

// DB keeps the card catalog. It is only the source a Catalog is built from,
// a running session never writes back to it.
type DB struct {
	instance *buntdb.DB
}

// OpenDB opens the catalog database at path. ":memory:" keeps it in memory.
func OpenDB(path string) (*DB, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open catalog database %v: %w", path, err)
	}
	return &DB{instance: db}, nil
}

func (db *DB) Close() error {
	return db.instance.Close()
}

func (db *DB) StoreCard(c Card) error {
	if c.ID == "" {
		return errors.New("card id is required")
	}
	return db.instance.Update(func(tx *buntdb.Tx) error {
		return setCard(tx, c)
	})
}

func (db *DB) ReadCard(id string) (Card, error) {
	var c Card
	err := db.instance.View(func(tx *buntdb.Tx) error {
		s, err := tx.Get(getCardKey(id))
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(s), &c)
	})
	if err == buntdb.ErrNotFound {
		return c, fmt.Errorf("card %v: %w", id, ErrNotFound)
	}
	return c, err
}

func (db *DB) DeleteCard(id string) error {
	err := db.instance.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(getCardKey(id))
		return err
	})
	if err == buntdb.ErrNotFound {
		return fmt.Errorf("card %v: %w", id, ErrNotFound)
	}
	return err
}

// ReadAll returns all stored cards ordered by id.
func (db *DB) ReadAll() ([]Card, error) {
	var cards []Card
	err := db.instance.View(func(tx *buntdb.Tx) error {
		var decodeErr error
		err := tx.Ascend("", func(key, value string) bool {
			if !strings.HasPrefix(key, cardKeyPrefix) {
				return true
			}
			var c Card
			if decodeErr = json.Unmarshal([]byte(value), &c); decodeErr != nil {
				decodeErr = fmt.Errorf("could not decode %v: %w", key, decodeErr)
				return false
			}
			cards = append(cards, c)
			return true
		})
		if err != nil {
			return err
		}
		return decodeErr
	})
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return cards, err
}

// Seed stores the cards that are not in the database yet and returns how many were added.
func (db *DB) Seed(cards ...Card) (int, error) {
	added := 0
	err := db.instance.Update(func(tx *buntdb.Tx) error {
		for _, c := range cards {
			_, err := tx.Get(getCardKey(c.ID))
			if err == nil {
				continue
			}
			if err != buntdb.ErrNotFound {
				return err
			}
			if err := setCard(tx, c); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// Import stores all cards of the catalog, replacing existing cards with the same id.
func (db *DB) Import(c Catalog) error {
	return db.instance.Update(func(tx *buntdb.Tx) error {
		for _, card := range c.Cards() {
			if err := setCard(tx, card); err != nil {
				return err
			}
		}
		return nil
	})
}

// Catalog snapshots the database into an immutable catalog.
func (db *DB) Catalog() (Catalog, error) {
	cards, err := db.ReadAll()
	if err != nil {
		return Catalog{}, err
	}
	return NewCatalog(cards...)
}

func setCard(tx *buntdb.Tx, c Card) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if _, _, err := tx.Set(getCardKey(c.ID), string(data), nil); err != nil {
		return err
	}
	return nil
}

func getCardKey(id string) string {
	return fmt.Sprintf("%v%v", cardKeyPrefix, id)
}
