package nfc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const eventBuffer = 16

// DefaultPINs are accepted by Authenticate for any card.
var DefaultPINs = []string{"1234", "0000"}

type Option func(*Session)

func WithDelay(d Delay) Option {
	return func(s *Session) {
		if d != nil {
			s.delay = d
		}
	}
}

// WithAcceptedPINs replaces the universal PINs. Passing none leaves only the
// PIN stored on the card itself.
func WithAcceptedPINs(pins ...string) Option {
	return func(s *Session) {
		s.accepted = make(map[string]struct{}, len(pins))
		for _, p := range pins {
			s.accepted[p] = struct{}{}
		}
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

func WithName(name string) Option {
	return func(s *Session) {
		s.name = name
	}
}

// Session simulates one reader and the card that is currently in it.
//
// Operations are serialized: a call issued while another one is in flight
// waits for it to finish, or for its context to end. Status, AvailableCards and CurrentCard never wait.
type Session struct {
	name     string
	catalog  Catalog
	delay    Delay
	accepted map[string]struct{}
	now      func() time.Time
	log      logrus.FieldLogger

	// sem holds one token while an operation is in flight.
	sem chan struct{}

	mu     sync.RWMutex
	state  ReaderState
	card   *Card
	gen    uint64
	closed bool

	notify     *notifier
	eventsOnce sync.Once
	events     <-chan Event

	ctx      context.Context
	cancel   context.CancelFunc
	settling sync.WaitGroup
}

var _ CardReader = (*Session)(nil)

func NewSession(catalog Catalog, opts ...Option) *Session {
	s := &Session{
		name:    "Virtual IC Card Reader",
		catalog: catalog,
		delay:   DefaultLatency(),
		now:     time.Now,
		state:   NotConnected,
		sem:     make(chan struct{}, 1),
	}
	WithAcceptedPINs(DefaultPINs...)(s)
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logrus.StandardLogger().WithField("reader", s.name)
	}
	s.notify = newNotifier(s.log)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

func (s *Session) Name() string {
	return s.name
}

func (s *Session) Catalog() Catalog {
	return s.catalog
}

func (s *Session) Status() ReaderState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) AvailableCards() []string {
	return s.catalog.IDs()
}

// CurrentCard returns a snapshot of the inserted card without any simulated delay.
func (s *Session) CurrentCard() (*Card, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.card == nil {
		return nil, false
	}
	return s.card.Clone(), true
}

// AddListener registers fn for all future events. The returned function unregisters it.
func (s *Session) AddListener(fn Listener) func() {
	return s.notify.add(fn)
}

// Subscribe returns a channel receiving all future events. Events are dropped
// when the buffer is full. The channel is closed by cancel or by Close.
func (s *Session) Subscribe(buffer int) (<-chan Event, func()) {
	return s.notify.subscribe(buffer)
}

// Events returns a shared subscription, created on first use.
func (s *Session) Events() <-chan Event {
	s.eventsOnce.Do(func() {
		s.events, _ = s.notify.subscribe(eventBuffer)
	})
	return s.events
}

func (s *Session) Connect(ctx context.Context) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	defer s.end()

	if st := s.Status(); st == Error {
		return fmt.Errorf("connect: reader is in %v state: %w", st, ErrInvalidState)
	}
	if err := s.delay.Wait(ctx, OpConnect); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.transition(Connected, nil)
	return nil
}

func (s *Session) Disconnect(ctx context.Context) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	defer s.end()

	if err := s.delay.Wait(ctx, OpDisconnect); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.transition(NotConnected, nil)
	return nil
}

// InsertCard puts the catalog card with the given id into the reader and returns a snapshot of it.
func (s *Session) InsertCard(ctx context.Context, id string) (*Card, error) {
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	defer s.end()

	if st := s.Status(); st != Connected {
		return nil, fmt.Errorf("insert %v: reader is %v: %w", id, st, ErrInvalidState)
	}
	card, ok := s.catalog.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("insert %v: %w", id, ErrNotFound)
	}
	if err := s.delay.Wait(ctx, OpInsert); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.transition(CardInserted, card)
	s.emitCard(CardInsertedEvent, card)
	return card.Clone(), nil
}

// RemoveCard takes the current card out of the reader. The reader reports
// CardRemoved right away and returns to Connected on its own once the settle
// delay has passed. Without a card this is a no-op.
func (s *Session) RemoveCard(ctx context.Context) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	defer s.end()

	if _, ok := s.CurrentCard(); !ok {
		return nil
	}
	if err := s.delay.Wait(ctx, OpRemove); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.card
	s.transition(CardRemoved, nil)
	s.emitCard(CardRemovedEvent, removed)
	s.settle(s.gen)
	return nil
}

func (s *Session) ReadCard(ctx context.Context) (*Card, error) {
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	defer s.end()

	if err := s.requireCard("read"); err != nil {
		return nil, err
	}
	if err := s.delay.Wait(ctx, OpRead); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.card.Clone(), nil
}

// WriteProperty stores value under key on the inserted card, replacing any previous value.
func (s *Session) WriteProperty(ctx context.Context, key, value string) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	defer s.end()

	if err := s.requireCard("write " + key); err != nil {
		return err
	}
	if err := s.delay.Wait(ctx, OpWrite); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.card.Properties == nil {
		s.card.Properties = make(map[string]string)
	}
	s.card.Properties[key] = value
	s.log.WithField("card", s.card.ID).Debugf("Wrote property %v", key)
	return nil
}

// Authenticate reports whether pin matches the PIN stored on the card or one
// of the universally accepted PINs. A wrong PIN is not an error.
func (s *Session) Authenticate(ctx context.Context, pin string) (bool, error) {
	if err := s.begin(ctx); err != nil {
		return false, err
	}
	defer s.end()

	if err := s.requireCard("authenticate"); err != nil {
		return false, err
	}
	if err := s.delay.Wait(ctx, OpAuthenticate); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if stored := s.card.Property(PropPIN); stored != "" && stored == pin {
		return true, nil
	}
	_, ok := s.accepted[pin]
	return ok, nil
}

// Fault puts the reader into the Error state, dropping any inserted card.
// Only Disconnect leads out of it.
func (s *Session) Fault(reason error) error {
	if err := s.begin(s.ctx); err != nil {
		return err
	}
	defer s.end()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.WithError(reason).Warn("Reader fault")
	s.transition(Error, nil)
	return nil
}

// WaitFor blocks until the reader reaches state or ctx ends.
func (s *Session) WaitFor(ctx context.Context, state ReaderState) error {
	reached := make(chan struct{}, 1)
	remove := s.AddListener(func(e Event) {
		if e.Kind == StatusChanged && e.State == state {
			select {
			case reached <- struct{}{}:
			default:
			}
		}
	})
	defer remove()

	for {
		if s.Status() == state {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-reached:
		}
	}
}

// Close stops background work and closes all event subscriptions.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.settling.Wait()
	s.notify.close()
	return nil
}

// begin waits for the operation slot. Every successful call must be paired with end.
func (s *Session) begin(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrClosed
	}
	if s.isClosed() {
		s.end()
		return ErrClosed
	}
	return nil
}

func (s *Session) end() {
	<-s.sem
}

func (s *Session) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Session) requireCard(op string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != CardInserted {
		return fmt.Errorf("%v: reader is %v: %w", op, s.state, ErrInvalidState)
	}
	return nil
}

// transition must be called with mu held.
func (s *Session) transition(to ReaderState, card *Card) {
	from := s.state
	s.state = to
	s.card = card
	s.gen++
	s.log.WithFields(logrus.Fields{"from": from, "to": to}).Debug("Reader state changed")
	s.notify.emit(Event{Kind: StatusChanged, State: to, Timestamp: s.now()})
}

// emitCard must be called with mu held.
func (s *Session) emitCard(kind EventKind, card *Card) {
	s.notify.emit(Event{Kind: kind, State: s.state, Card: card.Clone(), Timestamp: s.now()})
}

// settle returns the reader to Connected after a removal, unless something
// else changed the state in the meantime. Must be called with mu held.
func (s *Session) settle(gen uint64) {
	if s.closed {
		return
	}
	s.settling.Add(1)
	go func() {
		defer s.settling.Done()
		if err := s.delay.Wait(s.ctx, OpSettle); err != nil {
			return
		}

		select {
		case s.sem <- struct{}{}:
		case <-s.ctx.Done():
			return
		}
		defer s.end()
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || s.gen != gen || s.state != CardRemoved {
			return
		}
		s.transition(Connected, nil)
	}()
}
