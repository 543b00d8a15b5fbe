package sse

import (
	"strings"
	"testing"
	"time"
)

func recvMessage(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("channel closed while waiting for message")
		}
		return string(msg)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return ""
	}
}

func waitForClients(t *testing.T, b *Broker, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if b.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count never reached %d (got %d)", want, b.ClientCount())
}

func TestBroker_SubscribeUnsubscribe(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ch := b.Subscribe()
	waitForClients(t, b, 1)

	b.Unsubscribe(ch)
	waitForClients(t, b, 0)

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
}

func TestBroker_Publish(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ch := b.Subscribe()
	waitForClients(t, b, 1)

	b.Publish(Event{Type: "ping", Data: map[string]string{"hello": "world"}})

	msg := recvMessage(t, ch)
	if !strings.Contains(msg, "event: ping") {
		t.Errorf("missing event type: %q", msg)
	}
	if !strings.Contains(msg, `"hello":"world"`) {
		t.Errorf("missing payload: %q", msg)
	}
	if !strings.HasSuffix(msg, "\n\n") {
		t.Errorf("message not terminated by blank line: %q", msg)
	}
}

func TestBroker_DocumentEvents(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ch := b.Subscribe()
	waitForClients(t, b, 1)

	b.PublishDocumentEvent("uploaded", "doc-1")
	msg := recvMessage(t, ch)
	if !strings.Contains(msg, "event: document.uploaded") {
		t.Errorf("msg = %q", msg)
	}
	if !strings.Contains(msg, `"id":"doc-1"`) {
		t.Errorf("msg = %q", msg)
	}

	b.PublishDocumentEvent("deleted", "doc-1")
	msg = recvMessage(t, ch)
	if !strings.Contains(msg, "event: document.deleted") {
		t.Errorf("msg = %q", msg)
	}
}

func TestBroker_NoteEvents(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ch := b.Subscribe()
	waitForClients(t, b, 1)

	b.PublishNoteEvent("created", "doc-1", 42)
	msg := recvMessage(t, ch)
	if !strings.Contains(msg, "event: note.created") {
		t.Errorf("msg = %q", msg)
	}
	if !strings.Contains(msg, `"document_id":"doc-1"`) || !strings.Contains(msg, `"id":42`) {
		t.Errorf("msg = %q", msg)
	}

	// Note deletes carry no document id.
	b.PublishNoteEvent("deleted", "", 42)
	msg = recvMessage(t, ch)
	if !strings.Contains(msg, "event: note.deleted") {
		t.Errorf("msg = %q", msg)
	}
	if strings.Contains(msg, "document_id") {
		t.Errorf("delete event should omit document_id: %q", msg)
	}
}

func TestBroker_MultipleSubscribers(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ch1 := b.Subscribe()
	ch2 := b.Subscribe()
	waitForClients(t, b, 2)

	b.PublishDocumentEvent("uploaded", "doc-1")

	for _, ch := range []chan []byte{ch1, ch2} {
		msg := recvMessage(t, ch)
		if !strings.Contains(msg, "document.uploaded") {
			t.Errorf("msg = %q", msg)
		}
	}
}

func TestBroker_CloseClosesClients(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()
	waitForClients(t, b, 1)

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			// Drain any buffered message, the close must still arrive.
			for range ch {
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("client channel not closed after broker Close")
	}

	// Publishing after close must not panic or block.
	b.Publish(Event{Type: "late"})
	b.PublishDocumentEvent("uploaded", "x")
	if n := b.ClientCount(); n != 0 {
		t.Errorf("count after close = %d", n)
	}
}

func TestBroker_SubscribeAfterClose(t *testing.T) {
	b := NewBroker()
	b.Close()

	ch := b.Subscribe()
	if _, ok := <-ch; ok {
		t.Error("subscribe after close should return a closed channel")
	}
}
