package nfc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestReadWriteCard(t *testing.T) {
	db := openTestDB(t)

	c := Card{
		ID:         "CARD042",
		Type:       FeliCa,
		IssueDate:  testDate,
		ExpiryDate: testDate.AddDate(5, 0, 0),
		Properties: map[string]string{PropName: "Alice", "EmployeeId": "EMP042"},
	}
	require.NoError(t, db.StoreCard(c))

	b, err := db.ReadCard(c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, b)

	require.NoError(t, db.DeleteCard(c.ID))
	_, err = db.ReadCard(c.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(db.DeleteCard(c.ID), ErrNotFound))
}

func TestStoreCardWithoutID(t *testing.T) {
	db := openTestDB(t)
	assert.Error(t, db.StoreCard(Card{Type: MIFARE}))
}

func TestSeedKeepsExistingCards(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.StoreCard(Card{ID: "CARD001", Type: MIFARE}))

	added, err := db.Seed(DefaultCards(testDate)...)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = db.Seed(DefaultCards(testDate)...)
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	c, err := db.Catalog()
	require.NoError(t, err)
	assert.Equal(t, []string{"CARD001", "CARD002", "MYNUMBER001"}, c.IDs())
	card, _ := c.Lookup("CARD001")
	assert.Equal(t, MIFARE, card.Type)
}

func TestImportReplacesCards(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.StoreCard(Card{ID: "A", Type: MIFARE}))
	require.NoError(t, db.Import(MustCatalog(Card{ID: "A", Type: FeliCa}, Card{ID: "B", Type: MyNumber})))

	all, err := db.ReadAll()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "A", all[0].ID)
	assert.Equal(t, FeliCa, all[0].Type)
	assert.Equal(t, MyNumber, all[1].Type)
}
