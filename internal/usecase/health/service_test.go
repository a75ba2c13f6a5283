package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(
		Component{Name: "redis", Pinger: &mockPinger{}},
		Component{Name: "mongo", Pinger: &mockPinger{}},
		Component{Name: "solr", Pinger: &mockPinger{}},
	)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, name := range []string{"redis", "mongo", "solr"} {
		if r.Checks[name] != CheckOK {
			t.Errorf("expected %s %q, got %q", name, CheckOK, r.Checks[name])
		}
	}
}

func TestCheck_OneFailing(t *testing.T) {
	svc := New(
		Component{Name: "redis", Pinger: &mockPinger{}},
		Component{Name: "solr", Pinger: &mockPinger{err: errors.New("connection refused")}},
	)
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["solr"] != CheckError {
		t.Errorf("expected solr %q, got %q", CheckError, r.Checks["solr"])
	}
	if r.Checks["redis"] != CheckOK {
		t.Errorf("expected redis %q, got %q", CheckOK, r.Checks["redis"])
	}
}

func TestCheck_NilPingerSkipped(t *testing.T) {
	svc := New(Component{Name: "redis", Pinger: &mockPinger{}}, Component{Name: "mongo"})
	r := svc.Check(context.Background())

	if _, ok := r.Checks["mongo"]; ok {
		t.Error("nil pinger should not be checked")
	}
	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
}
