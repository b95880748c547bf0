package world

import (
	"sync"
	"testing"
)

func TestOpResult_String(t *testing.T) {
	tests := []struct {
		r    OpResult
		want string
	}{
		{Failed, "failed"},
		{NotSupported, "not-supported"},
		{Success, "success"},
		{OpResult(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.r.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestRefResult_String(t *testing.T) {
	tests := []struct {
		r    RefResult
		want string
	}{
		{RefError, "error"},
		{Copied, "copied"},
		{Referenced, "referenced"},
	}
	for _, tt := range tests {
		if got := tt.r.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestDiag_Count(t *testing.T) {
	var d Diag

	if got := d.Count("warn"); got != 1 {
		t.Errorf("first Count = %d, want 1", got)
	}
	if got := d.Count("warn"); got != 2 {
		t.Errorf("second Count = %d, want 2", got)
	}
	if got := d.Count("other"); got != 1 {
		t.Errorf("independent event Count = %d, want 1", got)
	}

	snap := d.Snapshot()
	if snap["warn"] != 2 || snap["other"] != 1 {
		t.Errorf("Snapshot = %v", snap)
	}

	// The snapshot is a copy.
	snap["warn"] = 99
	if d.Snapshot()["warn"] != 2 {
		t.Error("Snapshot must not alias internal state")
	}
}

func TestDiag_Concurrent(t *testing.T) {
	var d Diag
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				d.Count("event")
			}
		}()
	}
	wg.Wait()
	if got := d.Snapshot()["event"]; got != 800 {
		t.Errorf("count = %d, want 800", got)
	}
}
