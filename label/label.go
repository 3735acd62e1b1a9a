package label

import (
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/callebjorkell/ic-card-reader/nfc"
	"github.com/fogleman/gg"
	"github.com/nfnt/resize"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/font/basicfont"
)

// ID-1 card format (85.60 × 53.98 mm) at 300 DPI
const (
	Width  = 1011
	Height = 638

	// without a TrueType font the card is drawn this many times smaller with the
	// built in bitmap font and scaled up afterwards
	bitmapScale = 3
)

var typeColors = map[nfc.CardType]string{
	nfc.FeliCa:   "#0048BA",
	nfc.MIFARE:   "#D3212D",
	nfc.MyNumber: "#32CD32",
}

const (
	defaultColor = "#8A2BE2"
	chipColor    = "#D4AF37"
)

// CreateLabel renders a card face for c as a PNG. fontFile may be empty.
func CreateLabel(c nfc.Card, fontFile string, out io.Writer) error {
	img, err := Render(c, fontFile)
	if err != nil {
		return err
	}
	logrus.Debugf("Rendering label for %v to a PNG", c.ID)
	if err := gg.NewContextForImage(img).EncodePNG(out); err != nil {
		return fmt.Errorf("could not render PNG: %v", err.Error())
	}
	return nil
}

func Render(c nfc.Card, fontFile string) (image.Image, error) {
	if fontFile != "" {
		l := gg.NewContext(Width, Height)
		if err := draw(l, c, 1, func(size float64) error {
			if err := l.LoadFontFace(fontFile, size); err != nil {
				return fmt.Errorf("could not load the font: %v", err.Error())
			}
			return nil
		}); err != nil {
			return nil, err
		}
		return l.Image(), nil
	}

	l := gg.NewContext(Width/bitmapScale, Height/bitmapScale)
	if err := draw(l, c, 1.0/bitmapScale, func(float64) error {
		l.SetFontFace(basicfont.Face7x13)
		return nil
	}); err != nil {
		return nil, err
	}
	return resize.Resize(Width, Height, l.Image(), resize.NearestNeighbor), nil
}

func draw(l *gg.Context, c nfc.Card, scale float64, font func(size float64) error) error {
	logrus.Debugf("Generating label for %v (%v)", c.ID, c.Type)
	w := float64(l.Width())
	h := float64(l.Height())
	margin := 48 * scale

	l.SetRGB(1, 1, 1)
	l.Clear()

	col, ok := typeColors[c.Type]
	if !ok {
		col = defaultColor
	}
	l.SetHexColor(col)
	l.DrawRectangle(0, 0, w, h*0.22)
	l.Fill()

	l.SetHexColor(chipColor)
	l.DrawRoundedRectangle(margin, h*0.32, 150*scale, 115*scale, 12*scale)
	l.Fill()

	l.SetRGB(1, 1, 1)
	if err := font(64 * scale); err != nil {
		return err
	}
	l.DrawStringAnchored(strings.ToUpper(string(c.Type)), margin, h*0.11, 0, 0.5)

	l.SetRGB(0.2, 0.2, 0.2)
	if err := font(56 * scale); err != nil {
		return err
	}
	textX := margin + 190*scale
	lines := l.WordWrap(c.Property(nfc.PropName), w-textX-margin)
	for i, line := range lines {
		l.DrawStringAnchored(line, textX, h*0.36+float64(i)*56*scale*1.2, 0, 0.5)
	}

	if err := font(40 * scale); err != nil {
		return err
	}
	l.SetRGB(0.4, 0.4, 0.4)
	l.DrawStringAnchored(c.ID, textX, h*0.62, 0, 0.5)
	if number := c.Property(nfc.PropMyNumber); c.Type == nfc.MyNumber && number != "" {
		l.DrawStringAnchored(maskNumber(number), textX, h*0.72, 0, 0.5)
	}
	l.DrawStringAnchored(validity(c), margin, h-margin, 0, 0)
	return nil
}

func validity(c nfc.Card) string {
	from, until := "-", "-"
	if !c.IssueDate.IsZero() {
		from = c.IssueDate.Format(nfc.DateFormat)
	}
	if !c.ExpiryDate.IsZero() {
		until = c.ExpiryDate.Format(nfc.DateFormat)
	}
	return fmt.Sprintf("VALID %v - %v", from, until)
}

// maskNumber hides all but the last four digits of an identification number.
func maskNumber(n string) string {
	if len(n) <= 4 {
		return n
	}
	masked := []byte(strings.Repeat("*", len(n)-4) + n[len(n)-4:])
	var b strings.Builder
	for i, ch := range masked {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(ch)
	}
	return b.String()
}
