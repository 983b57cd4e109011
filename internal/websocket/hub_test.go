package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"reading-reports-backend/internal/models"
)

func TestBroadcastNilHub(t *testing.T) {
	var h *Hub
	// Must not panic
	h.BroadcastAnomalyEvent("anomaly_created", map[string]string{"id": "a-1"})
}

func TestDeliverFiltersByRole(t *testing.T) {
	h := NewHub()

	supervisor := &Client{StaffID: "sup-1", Role: models.RoleSupervisor, send: make(chan []byte, 4)}
	engineer := &Client{StaffID: "eng-1", Role: models.RoleEngineer, send: make(chan []byte, 4)}
	reader := &Client{StaffID: "rdr-1", Role: models.RoleReader, send: make(chan []byte, 4)}

	h.clients[supervisor.StaffID] = supervisor
	h.clients[engineer.StaffID] = engineer
	h.clients[reader.StaffID] = reader

	h.deliver(&Event{Type: "anomaly_created", Anomaly: map[string]string{"id": "a-1"}})

	for _, c := range []*Client{supervisor, engineer} {
		select {
		case data := <-c.send:
			var event Event
			if err := json.Unmarshal(data, &event); err != nil {
				t.Fatalf("invalid event payload for %s: %v", c.StaffID, err)
			}
			if event.Type != "anomaly_created" {
				t.Errorf("event type = %q for %s", event.Type, c.StaffID)
			}
		default:
			t.Errorf("client %s did not receive the event", c.StaffID)
		}
	}

	select {
	case <-reader.send:
		t.Error("reader client should not receive anomaly events")
	default:
	}
}

func TestDeliverSkipsFullBuffers(t *testing.T) {
	h := NewHub()
	blocked := &Client{StaffID: "sup-1", Role: models.RoleSupervisor, send: make(chan []byte)}
	h.clients[blocked.StaffID] = blocked

	done := make(chan struct{})
	go func() {
		h.deliver(&Event{Type: "anomaly_updated"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deliver blocked on a full client buffer")
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	h := NewHub()
	go h.Run()

	client := &Client{StaffID: "sup-1", Role: models.RoleSupervisor, hub: h, send: make(chan []byte, 4)}

	h.register <- client
	waitFor(t, func() bool { return h.IsStaffConnected("sup-1") })
	if h.GetClientCount() != 1 {
		t.Errorf("client count = %d, want 1", h.GetClientCount())
	}

	h.unregister <- client
	waitFor(t, func() bool { return !h.IsStaffConnected("sup-1") })
	if h.GetClientCount() != 0 {
		t.Errorf("client count = %d, want 0", h.GetClientCount())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}
