package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// drain collects what is buffered on c after a short settle.
func drain(t *testing.T, c *Client) []string {
	t.Helper()
	time.Sleep(50 * time.Millisecond)
	var out []string
	for {
		select {
		case msg, ok := <-c.C:
			if !ok {
				return out
			}
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func countContaining(msgs []string, sub string) int {
	n := 0
	for _, m := range msgs {
		if strings.Contains(m, sub) {
			n++
		}
	}
	return n
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	if n := b.ClientCount(); n != 0 {
		t.Fatalf("clients = %d, want 0", n)
	}
	c := b.Subscribe(Filter{})
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("clients = %d, want 1", n)
	}
	b.Unsubscribe(c)
	if n := b.ClientCount(); n != 0 {
		t.Fatalf("clients after unsubscribe = %d, want 0", n)
	}
	if _, ok := <-c.C; ok {
		t.Error("channel should be closed after unsubscribe")
	}
}

func TestPublishFrameFormat(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	c := b.Subscribe(Filter{})
	defer b.Unsubscribe(c)

	b.Publish(Event{Type: TypeCourseCreated, Data: map[string]string{"path": "a.json"}})

	select {
	case msg := <-c.C:
		want := "id: 1\nevent: course.created\ndata: {\"path\":\"a.json\"}\n\n"
		if string(msg) != want {
			t.Errorf("frame = %q, want %q", msg, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishCourseEvent_CatalogThrottle(t *testing.T) {
	b := NewBroker(WithCatalogThrottle(500 * time.Millisecond))
	defer b.Close()
	c := b.Subscribe(Filter{})
	defer b.Unsubscribe(c)

	b.PublishCourseEvent(KindCreated, "a.json")
	b.PublishCourseEvent(KindUpdated, "b.json")
	b.PublishCourseEvent("renamed", "c.json")

	msgs := drain(t, c)
	if n := countContaining(msgs, "event: course."); n != 2 {
		t.Errorf("course events = %d, want 2", n)
	}
	if n := countContaining(msgs, "event: catalog.updated"); n != 1 {
		t.Errorf("catalog events = %d, want 1", n)
	}
}

func TestPlainPublishSkipsCatalog(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	c := b.Subscribe(Filter{})
	defer b.Unsubscribe(c)

	b.Publish(Event{Type: "notice", Data: "hi"})

	msgs := drain(t, c)
	if len(msgs) != 1 || countContaining(msgs, "catalog.updated") != 0 {
		t.Errorf("messages = %q, want only the notice", msgs)
	}
}

func TestPrefixFilter(t *testing.T) {
	b := NewBroker(WithCatalogThrottle(time.Hour))
	defer b.Close()
	c := b.Subscribe(Filter{Prefix: "korean/"})
	defer b.Unsubscribe(c)

	b.PublishCourseEvent(KindUpdated, "english/a.json")
	b.PublishCourseEvent(KindUpdated, "korean/b.json")

	msgs := drain(t, c)
	if countContaining(msgs, "english/a.json") != 0 {
		t.Errorf("filtered path delivered: %q", msgs)
	}
	if countContaining(msgs, "korean/b.json") != 1 {
		t.Errorf("matching path missing: %q", msgs)
	}
	// The catalog event has no path and passes every filter.
	if countContaining(msgs, "catalog.updated") != 1 {
		t.Errorf("catalog event missing: %q", msgs)
	}
}

func TestReplayAfterID(t *testing.T) {
	b := NewBroker(WithHistory(2))
	defer b.Close()

	for _, typ := range []string{"one", "two", "three"} {
		b.Publish(Event{Type: typ, Data: typ})
	}
	time.Sleep(50 * time.Millisecond)

	c := b.Subscribe(Filter{After: 1})
	defer b.Unsubscribe(c)

	msgs := drain(t, c)
	if len(msgs) != 2 {
		t.Fatalf("replayed %d frames, want 2: %q", len(msgs), msgs)
	}
	if !strings.HasPrefix(msgs[0], "id: 2\nevent: two") || !strings.HasPrefix(msgs[1], "id: 3\nevent: three") {
		t.Errorf("replay = %q", msgs)
	}
}

func TestNoReplayWithoutLastID(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	b.Publish(Event{Type: "old", Data: 1})
	time.Sleep(50 * time.Millisecond)

	c := b.Subscribe(Filter{})
	defer b.Unsubscribe(c)
	if msgs := drain(t, c); len(msgs) != 0 {
		t.Errorf("fresh client received %q", msgs)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(WithHeartbeat(20 * time.Millisecond))
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events?prefix=x", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("clients = %d, want 1", n)
	}

	b.PublishCourseEvent(KindUpdated, "x.json")
	b.PublishCourseEvent(KindUpdated, "y.json")
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "retry: 3000\n\n") {
		t.Errorf("stream should open with a retry hint: %q", body)
	}
	if !strings.Contains(body, "event: course.updated") || !strings.Contains(body, "x.json") {
		t.Errorf("handler output missing event: %q", body)
	}
	if strings.Contains(body, "y.json") {
		t.Errorf("prefix filter ignored: %q", body)
	}
	if !strings.Contains(body, ": ping") {
		t.Errorf("expected a heartbeat comment: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if n := b.ClientCount(); n != 0 {
		t.Errorf("clients after disconnect = %d, want 0", n)
	}
}

func TestSSEHandlerResumesFromLastEventID(t *testing.T) {
	b := NewBroker(WithCatalogThrottle(time.Hour))
	defer b.Close()

	b.PublishCourseEvent(KindCreated, "a.json") // id 1, catalog id 2
	b.PublishCourseEvent(KindDeleted, "a.json") // id 3
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	req.Header.Set("Last-Event-ID", "2")
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	if strings.Contains(body, "course.created") {
		t.Errorf("frame before Last-Event-ID replayed: %q", body)
	}
	if !strings.Contains(body, "id: 3\nevent: course.deleted") {
		t.Errorf("missing replayed frame: %q", body)
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	c := b.Subscribe(Filter{})
	defer b.Unsubscribe(c)

	for i := 0; i < clientBuffer+10; i++ {
		b.Publish(Event{Type: "test", Data: i})
	}
	time.Sleep(50 * time.Millisecond)
	if n := b.ClientCount(); n != 1 {
		t.Errorf("clients = %d, want 1", n)
	}
	if got := len(c.C); got != clientBuffer {
		t.Errorf("buffered = %d, want %d", got, clientBuffer)
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker()
	c := b.Subscribe(Filter{})

	b.Close()

	select {
	case _, ok := <-c.C:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}
	if n := b.ClientCount(); n != 0 {
		t.Fatalf("clients after close = %d, want 0", n)
	}

	// No-ops after close.
	b.Publish(Event{Type: TypeCourseUpdated, Data: map[string]string{"path": "x.json"}})
	b.PublishCourseEvent(KindUpdated, "x.json")
	late := b.Subscribe(Filter{})
	if _, ok := <-late.C; ok {
		t.Error("subscribe after close should return a closed channel")
	}
	b.Close()
}
