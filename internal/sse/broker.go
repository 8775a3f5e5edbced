// Package sse implements a Server-Sent Events broker that tells open pages
// when recipes or layouts change.
package sse

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Event types.
const (
	EventRecipesScanned = "recipes.scanned"
	EventLayoutSaved    = "layout.saved"
	EventLayoutReset    = "layout.reset"
	// EventSiteUpdated is a throttled hint that rendered pages are stale.
	EventSiteUpdated = "site.updated"
)

// staleTypes are the events after which rendered pages no longer match.
var staleTypes = map[string]bool{
	EventRecipesScanned: true,
	EventLayoutSaved:    true,
	EventLayoutReset:    true,
}

const (
	clientBuffer = 64
	retryMillis  = 3000
	keepAlive    = 30 * time.Second
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Broker fans events out to connected pages.
//
// The loop goroutine owns the client set, the event sequence and the
// site.updated throttle; every public method reaches it over a channel.
type Broker struct {
	siteEvery time.Duration

	join   chan chan []byte
	leave  chan chan []byte
	events chan Event
	count  chan chan int

	stop    chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits site.updated at most once per
// siteThrottle.
func NewBroker(siteThrottle time.Duration) *Broker {
	if siteThrottle <= 0 {
		siteThrottle = 2 * time.Second
	}
	b := &Broker{
		siteEvery: siteThrottle,
		join:      make(chan chan []byte),
		leave:     make(chan chan []byte),
		events:    make(chan Event, 256),
		count:     make(chan chan int),
		stop:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go b.loop()
	return b
}

// hub is the state owned by the loop goroutine.
type hub struct {
	clients  map[chan []byte]struct{}
	seq      uint64
	lastSite time.Time
}

func (h *hub) deliver(e Event) {
	h.seq++
	msg, err := frame(h.seq, e)
	if err != nil {
		return
	}
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
			// slow client, drop
		}
	}
}

// announce delivers e and, for events that make pages stale, a site.updated
// hint unless one went out within every.
func (h *hub) announce(e Event, every time.Duration) {
	h.deliver(e)
	if !staleTypes[e.Type] {
		return
	}
	if now := time.Now(); now.Sub(h.lastSite) >= every {
		h.lastSite = now
		h.deliver(Event{Type: EventSiteUpdated, Data: map[string]string{}})
	}
}

func (b *Broker) loop() {
	defer close(b.stopped)

	h := &hub{clients: make(map[chan []byte]struct{})}
	for {
		select {
		case <-b.stop:
			for ch := range h.clients {
				close(ch)
			}
			return
		case ch := <-b.join:
			h.clients[ch] = struct{}{}
		case ch := <-b.leave:
			if _, ok := h.clients[ch]; ok {
				delete(h.clients, ch)
				close(ch)
			}
		case e := <-b.events:
			h.announce(e, b.siteEvery)
		case resp := <-b.count:
			resp <- len(h.clients)
		}
	}
}

// frame encodes one event in text/event-stream form.
func frame(id uint64, e Event) ([]byte, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("id: ")
	buf.WriteString(strconv.FormatUint(id, 10))
	buf.WriteString("\nevent: ")
	buf.WriteString(e.Type)
	buf.WriteString("\ndata: ")
	buf.Write(data)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

// send hands v to the loop; it reports false once the broker is closed.
func send[T any](b *Broker, ch chan<- T, v T) bool {
	if b.closed.Load() {
		return false
	}
	select {
	case ch <- v:
		return true
	case <-b.stopped:
		return false
	}
}

// Close stops the loop and closes every client channel. It is safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stop)
	}
	<-b.stopped
}

// Subscribe registers a client. The returned channel is closed by
// Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if !send(b, b.join, ch) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	send(b, b.leave, ch)
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	resp := make(chan int, 1)
	if !send(b, b.count, resp) {
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish broadcasts e. Recipe and layout events are followed by a
// throttled site.updated.
func (b *Broker) Publish(e Event) {
	send(b, b.events, e)
}

// RecipesScanned announces a finished scan.
func (b *Broker) RecipesScanned(indexed, failed int) {
	b.Publish(Event{Type: EventRecipesScanned, Data: map[string]int{"indexed": indexed, "failed": failed}})
}

// LayoutChanged announces a saved (or, with reset, removed) override.
func (b *Broker) LayoutChanged(slot string, reset bool) {
	typ := EventLayoutSaved
	if reset {
		typ = EventLayoutReset
	}
	b.Publish(Event{Type: typ, Data: map[string]string{"slot": slot}})
}

// ServeHTTP streams events to one client (GET /api/events). A comment line
// is written every keepAlive so idle proxies keep the connection open.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("retry: " + strconv.Itoa(retryMillis) + "\n\n"))
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
