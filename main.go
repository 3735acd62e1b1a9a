package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/callebjorkell/ic-card-reader/nfc"
	log "github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"
)

var db *nfc.DB

var (
	app         = kingpin.New("ic-reader", "A virtual IC card reader that simulates generic and MyNumber cards, with a network host so other programs can drive it.")
	debug       = app.Flag("debug", "Enable debug logging.").Envar("ICREADER_DEBUG").Bool()
	dbPath      = app.Flag("db", "Path of the card catalog database. :memory: keeps it in memory.").Default(":memory:").Envar("ICREADER_DB").String()
	catalogFile = app.Flag("catalog", "JSON file with cards to import into the catalog at start-up.").Envar("ICREADER_CATALOG").ExistingFile()
	readerName  = app.Flag("name", "Name the reader is logged and announced under.").Default("Virtual IC Card Reader").Envar("ICREADER_NAME").String()
	fast        = app.Flag("fast", "Skip the simulated reader latency.").Bool()
	pins        = app.Flag("pin", "PIN accepted for every card. Can be repeated.").Default(nfc.DefaultPINs...).Strings()

	demo       = app.Command("demo", "Connect, insert a card, read, authenticate, write and remove it again.")
	demoCardId = demo.Flag("card", "The card that should be inserted.").Default("CARD001").String()

	myNumber       = app.Command("mynumber", "Verify the PIN of a MyNumber card and read its identity data and certificate.")
	myNumberCardId = myNumber.Flag("card", "The MyNumber card that should be inserted.").Default("MYNUMBER001").String()
	myNumberPin    = myNumber.Flag("card-pin", "The PIN to verify.").Default("1234").String()

	cards           = app.Command("cards", "Manage the card catalog.")
	cardsList       = cards.Command("list", "Show a short list of all the cards in the catalog.")
	cardsDump       = cards.Command("dump", "Dump all the available information of a card onto standard out.")
	cardsDumpId     = cardsDump.Arg("id", "The id of the card.").Required().String()
	cardsImport     = cards.Command("import", "Import cards from a JSON file, replacing cards with the same id.")
	cardsImportFile = cardsImport.Arg("file", "The JSON file with an array of cards.").Required().ExistingFile()
	cardsRemove     = cards.Command("remove", "Remove a card from the catalog.")
	cardsRemoveId   = cardsRemove.Arg("id", "The id of the card.").Required().String()

	labelCmd     = app.Command("label", "Create a PNG label of the card face.")
	labelCardIds = labelCmd.Arg("id", "The cards that labels should be created for.").Required().Strings()
	labelFont    = labelCmd.Flag("font", "TrueType font to render the text with. Uses a built in bitmap font if empty.").String()
	labelDir     = labelCmd.Flag("out", "Directory the labels are written to.").Default(".").ExistingDir()

	serve         = app.Command("serve", "Serve the reader over HTTP and WebSocket and announce it on the local network.")
	serveAddr     = serve.Flag("addr", "Address to listen on.").Default(":18080").Envar("ICREADER_ADDR").String()
	serveAnnounce = serve.Flag("announce", "Announce the reader over mDNS.").Default("true").Bool()
	serveCycle    = serve.Flag("cycle", "Keep inserting and removing this card.").String()
	serveLed      = serve.Flag("led", "Log an LED colour for every reader state.").Bool()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalChan
		log.Infoln("Shutdown signal received")
		cancel()
	}()

	var err error
	db, err = openCatalog(*dbPath, *catalogFile)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	switch command {
	case demo.FullCommand():
		err = runDemo(ctx, *demoCardId)
	case myNumber.FullCommand():
		err = runMyNumber(ctx, *myNumberCardId, *myNumberPin)
	case cardsList.FullCommand():
		err = listCards()
	case cardsDump.FullCommand():
		err = dumpCard(*cardsDumpId)
	case cardsImport.FullCommand():
		err = importCards(*cardsImportFile)
	case cardsRemove.FullCommand():
		removeCard(*cardsRemoveId)
	case labelCmd.FullCommand():
		err = createLabels(*labelCardIds)
	case serve.FullCommand():
		err = startServer(ctx)
	default:
		kingpin.FatalUsage("Unrecognized command")
	}
	if err != nil {
		log.Fatal(err)
	}
}

// openCatalog opens the catalog database, seeds it with the stock cards and
// imports the optional catalog file on top.
func openCatalog(path, file string) (*nfc.DB, error) {
	d, err := nfc.OpenDB(path)
	if err != nil {
		return nil, err
	}
	added, err := d.Seed(nfc.DefaultCards(time.Now())...)
	if err != nil {
		d.Close()
		return nil, err
	}
	log.Debugf("Seeded %v stock cards", added)

	if file != "" {
		if err := importInto(d, file); err != nil {
			d.Close()
			return nil, err
		}
	}
	return d, nil
}

func newSession() (*nfc.Session, error) {
	catalog, err := db.Catalog()
	if err != nil {
		return nil, err
	}
	logger := log.WithField("reader", *readerName)
	var delay nfc.Delay = nfc.DefaultLatency()
	if *fast {
		delay = nfc.NoDelay
	}
	if *debug {
		delay = traced(delay, logger)
	}
	return nfc.NewSession(catalog,
		nfc.WithName(*readerName),
		nfc.WithDelay(delay),
		nfc.WithAcceptedPINs(*pins...),
		nfc.WithLogger(logger),
	), nil
}

// traced logs how long every simulated operation took.
func traced(d nfc.Delay, logger log.FieldLogger) nfc.Delay {
	return nfc.DelayFunc(func(ctx context.Context, op nfc.Operation) error {
		start := time.Now()
		err := d.Wait(ctx, op)
		logger.WithField("took", time.Since(start)).Debugf("Simulated %v", op)
		return err
	})
}
