package tap

import "testing"

func TestStateMachineTransitions(t *testing.T) {
	m := NewStateMachine()
	if m.State() != Stopped {
		t.Fatalf("initial state = %v, want Stopped", m.State())
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if m.State() != Running {
		t.Fatalf("state = %v, want Running", m.State())
	}
	if err := m.Start(); err == nil {
		t.Error("expected error starting an already-running tap")
	}
	if err := m.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if m.State() != Stopped {
		t.Fatalf("state = %v, want Stopped", m.State())
	}
	if err := m.Stop(); err == nil {
		t.Error("expected error stopping an already-stopped tap")
	}
}
