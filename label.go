package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/callebjorkell/ic-card-reader/label"
	log "github.com/sirupsen/logrus"
)

func createLabels(cardIds []string) error {
	for _, id := range cardIds {
		if err := generateLabel(id); err != nil {
			return err
		}
	}
	return nil
}

func generateLabel(cardId string) error {
	card, err := db.ReadCard(cardId)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := label.CreateLabel(card, *labelFont, &buf); err != nil {
		return err
	}

	file := filepath.Join(*labelDir, fmt.Sprintf("%v.png", cardId))
	log.Infof("Writing label for %v into %v", cardId, file)
	return os.WriteFile(file, buf.Bytes(), 0644)
}
