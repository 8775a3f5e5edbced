package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: EventLayoutSaved, Data: map[string]string{"slot": "home"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: layout.saved") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"slot":"home"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublish_SiteThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First change triggers site.updated; the second, immediately after, does not.
	b.RecipesScanned(3, 1)
	b.LayoutChanged("recipe", false)

	time.Sleep(50 * time.Millisecond)
	siteCount := 0
	var changes []string
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			switch {
			case strings.Contains(s, "event: site.updated"):
				siteCount++
			case strings.Contains(s, "event: recipes.scanned"):
				changes = append(changes, "scanned")
				if !strings.Contains(s, `"indexed":3`) || !strings.Contains(s, `"failed":1`) {
					t.Errorf("scan payload = %q", s)
				}
			case strings.Contains(s, "event: layout.saved"):
				changes = append(changes, "saved")
			}
		default:
			break loop
		}
	}

	if strings.Join(changes, ",") != "scanned,saved" {
		t.Errorf("change events = %v", changes)
	}
	if siteCount != 1 {
		t.Errorf("site events = %d, want 1 (throttled)", siteCount)
	}
}

func TestLayoutChanged_Reset(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.LayoutChanged("home", true)
	select {
	case msg := <-ch:
		if !strings.Contains(string(msg), "event: layout.reset") {
			t.Errorf("msg = %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: EventRecipesScanned, Data: map[string]int{"indexed": 1}})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.HasPrefix(body, "retry: 3000\n\n") {
		t.Errorf("handler output should open with a retry hint: %q", body)
	}
	if !strings.Contains(body, "event: recipes.scanned") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: EventLayoutSaved, Data: map[string]string{"slot": "home"}})
	b.RecipesScanned(0, 0)
}

func TestPublish_OnlyStaleEventsTriggerSiteUpdate(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "custom", Data: map[string]string{}})
	b.LayoutChanged("home", false)

	var got []string
	for range 3 {
		select {
		case msg := <-ch:
			for _, line := range strings.Split(string(msg), "\n") {
				if strings.HasPrefix(line, "id: ") || strings.HasPrefix(line, "event: ") {
					got = append(got, line)
				}
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout, got %v", got)
		}
	}
	want := []string{"id: 1", "event: custom", "id: 2", "event: layout.saved", "id: 3", "event: site.updated"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("frames = %v, want %v", got, want)
	}
	select {
	case msg := <-ch:
		t.Errorf("unexpected frame %q", msg)
	case <-time.After(20 * time.Millisecond):
	}
}
