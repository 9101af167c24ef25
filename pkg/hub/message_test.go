package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestStatusEventShape(t *testing.T) {
	ev := StatusEvent("arrived at (1.0, 1.0)")
	payload, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["kind"] != KindStatus {
		t.Errorf("Expected kind %q, got %v", KindStatus, decoded["kind"])
	}
	if decoded["text"] != "arrived at (1.0, 1.0)" {
		t.Errorf("Expected text preserved, got %v", decoded["text"])
	}
	if _, ok := decoded["data"]; ok {
		t.Error("Expected data omitted for status events")
	}
}

func TestStateEventCarriesRawJSON(t *testing.T) {
	ev := StateEvent([]byte(`{"mode":"wander"}`))
	payload, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		Kind string          `json:"kind"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Kind != KindState {
		t.Errorf("Expected kind %q, got %q", KindState, decoded.Kind)
	}
	if string(decoded.Data) != `{"mode":"wander"}` {
		t.Errorf("Expected raw state passthrough, got %s", decoded.Data)
	}
}

func TestHubRunStopsOnContextCancel(t *testing.T) {
	h := New("test")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	// Broadcasting with no clients must not block.
	h.BroadcastStatus("hello")
	if h.ClientCount() != 0 {
		t.Errorf("Expected no clients, got %d", h.ClientCount())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected hub loop to stop on cancel")
	}
}
