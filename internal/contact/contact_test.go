package contact

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestContactInfo_Validate(t *testing.T) {
	empty := &ContactInfo{ModelA: "a", ModelB: "b"}
	if err := empty.Validate(); err == nil {
		t.Error("pair with no contact points must fail validation")
	}

	ok := &ContactInfo{
		ModelA:   "a",
		ModelB:   "b",
		Contacts: []Contact{{Depth: 0.1}},
	}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestContactInfo_Matches(t *testing.T) {
	ci := &ContactInfo{ModelA: "box", ModelB: "cylinder"}

	tests := []struct {
		m1, m2 string
		want   bool
	}{
		{"box", "cylinder", true},
		{"cylinder", "box", true},
		{"box", "", true},
		{"cylinder", "", true},
		{"sphere", "", false},
		{"box", "sphere", false},
		{"sphere", "cylinder", false},
	}

	for _, tt := range tests {
		if got := ci.Matches(tt.m1, tt.m2); got != tt.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tt.m1, tt.m2, got, tt.want)
		}
	}
}

func TestContactInfo_MaxDepth(t *testing.T) {
	ci := &ContactInfo{
		Contacts: []Contact{
			{Depth: 0.05},
			{Depth: 0.3},
			{Depth: 0.1},
		},
	}
	if got := ci.MaxDepth(); got != 0.3 {
		t.Errorf("MaxDepth() = %v, want 0.3", got)
	}

	none := &ContactInfo{}
	if got := none.MaxDepth(); got != 0 {
		t.Errorf("MaxDepth() of empty pair = %v, want 0", got)
	}
}

func TestFilter(t *testing.T) {
	infos := []*ContactInfo{
		{ModelA: "a", ModelB: "b", Contacts: []Contact{{}}},
		{ModelA: "b", ModelB: "c", Contacts: []Contact{{}}},
		{ModelA: "c", ModelB: "a", Contacts: []Contact{{}}},
	}

	got := Filter(infos, "a", "")
	if len(got) != 2 {
		t.Fatalf("Filter(a) returned %d pairs, want 2", len(got))
	}

	got = Filter(infos, "b", "a")
	if len(got) != 1 || got[0] != infos[0] {
		t.Fatalf("Filter(b, a) = %v, want the a/b pair", got)
	}

	// Every filtered pair is one of the originals.
	all := map[*ContactInfo]bool{}
	for _, ci := range infos {
		all[ci] = true
	}
	for _, ci := range Filter(infos, "c", "") {
		if !all[ci] {
			t.Error("Filter invented a pair")
		}
	}

	if got := Filter(infos, "x", "y"); len(got) != 0 {
		t.Errorf("Filter(x, y) = %v, want none", got)
	}
}

func TestContactValueSemantics(t *testing.T) {
	c := Contact{
		Position: mgl64.Vec3{1, 2, 3},
		Normal:   mgl64.Vec3{0, 0, 1},
		Depth:    0.2,
	}
	c2 := c
	c2.Position[0] = 9
	if c.Position[0] != 1 {
		t.Error("Contact must copy by value")
	}
}
