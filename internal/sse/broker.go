// Package sse streams live course library changes to browsers as
// Server-Sent Events.
package sse

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Event is a typed payload to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Course event kinds as reported by the library watcher.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// Event types sent to clients.
const (
	TypeCourseCreated  = "course.created"
	TypeCourseUpdated  = "course.updated"
	TypeCourseDeleted  = "course.deleted"
	TypeCatalogUpdated = "catalog.updated"
)

var courseEventTypes = map[string]string{
	KindCreated: TypeCourseCreated,
	KindUpdated: TypeCourseUpdated,
	KindDeleted: TypeCourseDeleted,
}

const clientBuffer = 64

// Filter selects what a client receives.
type Filter struct {
	// Prefix limits course events to paths under it. Catalog and plain
	// events are always delivered.
	Prefix string
	// After replays retained frames with a larger id on subscribe. Zero
	// means no replay.
	After uint64
}

func (f Filter) matches(fr frame) bool {
	return fr.path == "" || strings.HasPrefix(fr.path, f.Prefix)
}

// Client is one subscription. C is closed on Unsubscribe or broker Close.
type Client struct {
	C      <-chan []byte
	ch     chan []byte
	filter Filter
}

// frame is an encoded event together with what the filter needs.
type frame struct {
	id   uint64
	path string
	raw  []byte
}

// Broker fans events out to SSE clients.
//
// A single loop goroutine owns the client set, the replay history and the
// catalog throttle. Public methods talk to it over channels.
type Broker struct {
	catalogMin time.Duration
	heartbeat  time.Duration
	historyLen int

	subscribeCh   chan *Client
	unsubscribeCh chan *Client
	publishCh     chan publishReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

type publishReq struct {
	event Event
	path  string
	// course marks watcher changes, which also feed the catalog throttle.
	course bool
}

// Option configures a Broker.
type Option func(*Broker)

// WithCatalogThrottle sets the minimum gap between catalog.updated events.
func WithCatalogThrottle(d time.Duration) Option {
	return func(b *Broker) { b.catalogMin = d }
}

// WithHeartbeat sets the interval of keep-alive comments on open streams.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) { b.heartbeat = d }
}

// WithHistory sets how many frames are kept for Last-Event-ID replay.
func WithHistory(n int) Option {
	return func(b *Broker) { b.historyLen = n }
}

// NewBroker starts a broker loop.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		catalogMin: 2 * time.Second,
		heartbeat:  15 * time.Second,
		historyLen: 128,
	}
	for _, o := range opts {
		o(b)
	}
	if b.catalogMin <= 0 {
		b.catalogMin = 2 * time.Second
	}
	if b.historyLen < 0 {
		b.historyLen = 0
	}
	b.subscribeCh = make(chan *Client)
	b.unsubscribeCh = make(chan *Client)
	b.publishCh = make(chan publishReq, 256)
	b.countReqCh = make(chan chan int)
	b.stopCh = make(chan struct{})
	b.stopped = make(chan struct{})

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[*Client]struct{})
	history := make([]frame, 0, b.historyLen)
	var nextID uint64
	var lastCatalog time.Time

	deliver := func(c *Client, fr frame) {
		if !c.filter.matches(fr) {
			return
		}
		select {
		case c.ch <- fr.raw:
		default:
			// Slow client; drop rather than stall every other stream.
		}
	}

	broadcast := func(ev Event, path string) {
		payload, err := json.Marshal(ev.Data)
		if err != nil {
			return
		}
		nextID++
		fr := frame{id: nextID, path: path, raw: encodeFrame(nextID, ev.Type, payload)}
		if b.historyLen > 0 {
			if len(history) == b.historyLen {
				history = append(history[:0], history[1:]...)
			}
			history = append(history, fr)
		}
		for c := range clients {
			deliver(c, fr)
		}
	}

	for {
		select {
		case <-b.stopCh:
			for c := range clients {
				close(c.ch)
			}
			return

		case c := <-b.subscribeCh:
			if c.filter.After > 0 {
				for _, fr := range history {
					if fr.id > c.filter.After {
						deliver(c, fr)
					}
				}
			}
			clients[c] = struct{}{}

		case c := <-b.unsubscribeCh:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.ch)
			}

		case req := <-b.publishCh:
			broadcast(req.event, req.path)
			if !req.course {
				continue
			}
			if now := time.Now(); now.Sub(lastCatalog) >= b.catalogMin {
				lastCatalog = now
				broadcast(Event{Type: TypeCatalogUpdated, Data: map[string]string{}}, "")
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// encodeFrame renders one event in text/event-stream format.
func encodeFrame(id uint64, typ string, payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("id: ")
	buf.WriteString(strconv.FormatUint(id, 10))
	buf.WriteString("\nevent: ")
	buf.WriteString(typ)
	buf.WriteString("\ndata: ")
	buf.Write(payload)
	buf.WriteString("\n\n")
	return buf.Bytes()
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. After Close the returned channel is
// already closed.
func (b *Broker) Subscribe(f Filter) *Client {
	ch := make(chan []byte, clientBuffer)
	c := &Client{C: ch, ch: ch, filter: f}
	if b.closed.Load() {
		close(ch)
		return c
	}
	select {
	case b.subscribeCh <- c:
	case <-b.stopped:
		close(ch)
	}
	return c
}

// Unsubscribe removes c and closes its channel.
func (b *Broker) Unsubscribe(c *Client) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- c:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

func (b *Broker) publish(req publishReq) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- req:
	case <-b.stopped:
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	b.publish(publishReq{event: event})
}

// PublishCourseEvent publishes a course change followed by a throttled
// catalog.updated event. Unknown kinds are dropped.
func (b *Broker) PublishCourseEvent(kind, path string) {
	typ, ok := courseEventTypes[kind]
	if !ok {
		return
	}
	b.publish(publishReq{
		event:  Event{Type: typ, Data: map[string]string{"path": path}},
		path:   path,
		course: true,
	})
}

// ServeHTTP streams events (GET /api/events). The optional "prefix" query
// parameter scopes course events to a library folder; a Last-Event-ID
// header resumes from retained history.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	f := Filter{Prefix: r.URL.Query().Get("prefix")}
	if last := r.Header.Get("Last-Event-ID"); last != "" {
		if id, err := strconv.ParseUint(last, 10, 64); err == nil {
			f.After = id
		}
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("retry: 3000\n\n"))
	flusher.Flush()

	c := b.Subscribe(f)
	defer b.Unsubscribe(c)

	var beat <-chan time.Time
	if b.heartbeat > 0 {
		t := time.NewTicker(b.heartbeat)
		defer t.Stop()
		beat = t.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-beat:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-c.C:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
