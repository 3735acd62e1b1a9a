package main

import (
	"os"

	"github.com/callebjorkell/ic-card-reader/nfc"
	log "github.com/sirupsen/logrus"
)

func importCards(file string) error {
	return importInto(db, file)
}

func importInto(d *nfc.DB, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	c, err := nfc.ReadCatalog(f)
	if err != nil {
		return err
	}
	if err := d.Import(c); err != nil {
		return err
	}
	log.Infof("Imported %v cards from %v", c.Len(), file)
	return nil
}
