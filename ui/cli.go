package ui

import (
	"github.com/sirupsen/logrus"
)

// GetColorLED returns an LED that only logs its colour.
func GetColorLED() ColorLed {
	return cliLed{log: logrus.WithField("led", "console")}
}

type cliLed struct {
	log logrus.FieldLogger
}

func (l cliLed) show(color string) {
	l.log.WithField("color", color).Info("LED changed")
}

func (l cliLed) Purple() { l.show("purple") }
func (l cliLed) Yellow() { l.show("yellow") }
func (l cliLed) Cyan()   { l.show("cyan") }
func (l cliLed) Red()    { l.show("red") }
func (l cliLed) Green()  { l.show("green") }
func (l cliLed) Blue()   { l.show("blue") }
func (l cliLed) Off()    { l.show("off") }
