package nfc

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Listener receives reader events. Listeners run on a dedicated goroutine,
// one event at a time and in emission order.
type Listener func(Event)

type listenerEntry struct {
	id int
	fn Listener
}

// notifier queues events and delivers them without ever blocking the emitter.
type notifier struct {
	log logrus.FieldLogger

	mu        sync.Mutex
	cond      *sync.Cond
	queue     []Event
	listeners []listenerEntry
	subs      map[*subscription]struct{}
	nextID    int
	closed    bool
	done      chan struct{}
}

func newNotifier(log logrus.FieldLogger) *notifier {
	n := &notifier{
		log:  log,
		subs: make(map[*subscription]struct{}),
		done: make(chan struct{}),
	}
	n.cond = sync.NewCond(&n.mu)
	go n.run()
	return n
}

func (n *notifier) emit(e Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.queue = append(n.queue, e)
	n.cond.Signal()
}

func (n *notifier) add(fn Listener) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	id := n.nextID
	n.listeners = append(n.listeners, listenerEntry{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			for i, l := range n.listeners {
				if l.id == id {
					n.listeners = append(n.listeners[:i:i], n.listeners[i+1:]...)
					break
				}
			}
		})
	}
}

func (n *notifier) subscribe(buffer int) (<-chan Event, func()) {
	sub := &subscription{ch: make(chan Event, buffer), log: n.log}
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	n.subs[sub] = struct{}{}
	n.mu.Unlock()

	remove := n.add(sub.send)
	return sub.ch, func() {
		remove()
		n.mu.Lock()
		delete(n.subs, sub)
		n.mu.Unlock()
		sub.close()
	}
}

func (n *notifier) run() {
	defer close(n.done)
	for {
		n.mu.Lock()
		for len(n.queue) == 0 && !n.closed {
			n.cond.Wait()
		}
		if len(n.queue) == 0 {
			n.mu.Unlock()
			return
		}
		e := n.queue[0]
		n.queue[0] = Event{}
		n.queue = n.queue[1:]
		listeners := make([]listenerEntry, len(n.listeners))
		copy(listeners, n.listeners)
		n.mu.Unlock()

		for _, l := range listeners {
			n.deliver(l.fn, e)
		}
	}
}

func (n *notifier) deliver(fn Listener, e Event) {
	defer func() {
		if r := recover(); r != nil {
			n.log.Warnf("Listener panicked while handling %v event: %v", e.Kind, r)
		}
	}()
	if e.Card != nil {
		e.Card = e.Card.Clone()
	}
	fn(e)
}

// close delivers what is still queued, then closes all subscription channels.
func (n *notifier) close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		<-n.done
		return
	}
	n.closed = true
	n.cond.Broadcast()
	n.mu.Unlock()

	<-n.done

	n.mu.Lock()
	subs := n.subs
	n.subs = make(map[*subscription]struct{})
	n.mu.Unlock()
	for sub := range subs {
		sub.close()
	}
}

type subscription struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
	log    logrus.FieldLogger
}

func (s *subscription) send(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- e:
	default:
		s.log.Warnf("Subscriber is not keeping up, dropping %v event", e.Kind)
	}
}

func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
