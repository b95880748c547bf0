package builtin

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/collidebench/internal/scenario"
	"github.com/san-kum/collidebench/internal/shape"
	"github.com/san-kum/collidebench/internal/state"
	"github.com/san-kum/collidebench/internal/world"
)

func boxModel(name string, size, pos mgl64.Vec3) scenario.Model {
	return scenario.Model{
		Name:     name,
		Pose:     shape.Pose{Position: pos},
		Geometry: shape.Geometry{Box: &shape.BoxGeom{Size: size}},
		Static:   true,
	}
}

func sphereModel(name string, r float64, pos mgl64.Vec3) scenario.Model {
	return scenario.Model{
		Name:     name,
		Pose:     shape.Pose{Position: pos},
		Geometry: shape.Geometry{Sphere: &shape.SphereGeom{Radius: r}},
		Static:   true,
	}
}

func cylModel(name string, r, l float64, pos mgl64.Vec3) scenario.Model {
	return scenario.Model{
		Name:     name,
		Pose:     shape.Pose{Position: pos},
		Geometry: shape.Geometry{Cylinder: &shape.CylinderGeom{Radius: r, Length: l}},
		Static:   true,
	}
}

func loadWorld(t *testing.T, c Collider, models ...scenario.Model) *World {
	t.Helper()
	w := New(c)
	sc := &scenario.World{Name: "test", Models: models}
	res, err := w.LoadFromScenario(sc, "")
	if err != nil || res != world.Success {
		t.Fatalf("LoadFromScenario = %v, %v", res, err)
	}
	return w
}

func backends() map[string]func() Collider {
	return map[string]func() Collider{
		"analytic": func() Collider { return NewAnalyticCollider() },
		"sampled":  func() Collider { return NewSampledCollider(32) },
	}
}

func TestWorld_LoadPausedAndNamed(t *testing.T) {
	w := loadWorld(t, NewAnalyticCollider(), boxModel("a", mgl64.Vec3{1, 1, 1}, mgl64.Vec3{}))
	if !w.IsLoaded() {
		t.Fatal("world not loaded")
	}
	if !w.IsPaused() {
		t.Error("world should come up paused")
	}
	if w.GetName() != "test" {
		t.Errorf("name = %q, want test", w.GetName())
	}
}

func TestWorld_StateRoundTrip(t *testing.T) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			src := loadWorld(t, mk(),
				boxModel("box", mgl64.Vec3{2, 2, 2}, mgl64.Vec3{0.5, 0, 0}),
				cylModel("cyl", 1, 3, mgl64.Vec3{}))
			s, err := src.GetWorldState()
			if err != nil {
				t.Fatal(err)
			}

			dst := loadWorld(t, mk())
			res, err := dst.SetWorldState(s, false)
			if err != nil || res != world.Success {
				t.Fatalf("SetWorldState = %v, %v", res, err)
			}
			got, err := dst.GetWorldState()
			if err != nil {
				t.Fatal(err)
			}
			if !got.EqualTol(s, state.Tolerances{}) {
				t.Errorf("round-tripped state differs:\n got  %+v\n want %+v", got, s)
			}
		})
	}
}

func TestWorld_DiffApply(t *testing.T) {
	mkPair := func() (*World, *World) {
		a := loadWorld(t, NewAnalyticCollider(),
			boxModel("box", mgl64.Vec3{2, 2, 2}, mgl64.Vec3{0.5, 0, 0}),
			sphereModel("ball", 1, mgl64.Vec3{5, 0, 0}))
		b := loadWorld(t, NewAnalyticCollider(),
			boxModel("box", mgl64.Vec3{2, 2, 2}, mgl64.Vec3{0.5, 0, 0}),
			sphereModel("ball", 1, mgl64.Vec3{5, 0, 0}))
		return a, b
	}

	a, b := mkPair()
	if _, err := a.SetBasicModelState("ball", state.PositionState(mgl64.Vec3{1, 2, 3})); err != nil {
		t.Fatal(err)
	}
	target, err := a.GetWorldState()
	if err != nil {
		t.Fatal(err)
	}
	bState, err := b.GetWorldState()
	if err != nil {
		t.Fatal(err)
	}
	// Diff that carries b from its current state to a's.
	diff, err := a.GetWorldStateDiff(bState)
	if err != nil {
		t.Fatal(err)
	}
	res, err := b.SetWorldState(diff, true)
	if err != nil || res != world.Success {
		t.Fatalf("apply diff = %v, %v", res, err)
	}
	got, err := b.GetWorldState()
	if err != nil {
		t.Fatal(err)
	}
	if !got.EqualTol(target, state.Tolerances{}) {
		t.Error("diff application did not reach the target state")
	}
}

func TestWorld_DiffUnknownModel(t *testing.T) {
	w := loadWorld(t, NewAnalyticCollider(), boxModel("a", mgl64.Vec3{1, 1, 1}, mgl64.Vec3{}))
	diff := &state.WorldState{
		Name: "test",
		Models: []state.ModelState{
			{Name: "ghost", State: state.PositionState(mgl64.Vec3{1, 0, 0})},
		},
	}
	res, err := w.SetWorldState(diff, true)
	if res != world.NotSupported {
		t.Errorf("result = %v, want NotSupported", res)
	}
	if !errors.Is(err, state.ErrIncompatible) {
		t.Errorf("err = %v, want ErrIncompatible", err)
	}
}

func TestWorld_EmptyBasicStateNoOp(t *testing.T) {
	w := loadWorld(t, NewAnalyticCollider(), sphereModel("ball", 1, mgl64.Vec3{1, 2, 3}))
	before, err := w.GetBasicModelState("ball")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.SetBasicModelState("ball", state.BasicState{}); err != nil {
		t.Fatal(err)
	}
	after, err := w.GetBasicModelState("ball")
	if err != nil {
		t.Fatal(err)
	}
	if !after.EqualTol(before, state.Tolerances{}) {
		t.Error("all-disabled state write changed the model pose")
	}
}

func TestWorld_ContactsOverlap(t *testing.T) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			w := loadWorld(t, mk(),
				boxModel("box", mgl64.Vec3{2, 2, 2}, mgl64.Vec3{0.5, 0, 0}),
				cylModel("cyl", 1, 3, mgl64.Vec3{}))
			infos, err := w.GetContactInfo()
			if err != nil {
				t.Fatal(err)
			}
			if len(infos) == 0 {
				t.Fatal("overlapping pair reported no contacts")
			}
			for _, ci := range infos {
				if len(ci.Contacts) == 0 {
					t.Errorf("pair %s/%s has an empty contact list", ci.ModelA, ci.ModelB)
				}
				if d := ci.MaxDepth(); d <= 0 {
					t.Errorf("pair %s/%s max depth = %v, want > 0", ci.ModelA, ci.ModelB, d)
				}
			}
		})
	}
}

func TestWorld_ContactsSeparated(t *testing.T) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			w := loadWorld(t, mk(),
				boxModel("box", mgl64.Vec3{2, 2, 2}, mgl64.Vec3{10, 0, 0}),
				cylModel("cyl", 1, 3, mgl64.Vec3{}))
			infos, err := w.GetContactInfo()
			if err != nil {
				t.Fatal(err)
			}
			if len(infos) != 0 {
				t.Errorf("separated pair reported %d contact infos", len(infos))
			}
		})
	}
}

func TestWorld_ContactInfoBetween(t *testing.T) {
	w := loadWorld(t, NewAnalyticCollider(),
		boxModel("box", mgl64.Vec3{2, 2, 2}, mgl64.Vec3{0.5, 0, 0}),
		cylModel("cyl", 1, 3, mgl64.Vec3{}),
		sphereModel("ball", 1.2, mgl64.Vec3{0, 0.5, 0}))
	infos, err := w.GetContactInfoBetween("box", "cyl")
	if err != nil {
		t.Fatal(err)
	}
	for _, ci := range infos {
		if !ci.Matches("box", "cyl") {
			t.Errorf("filtered info for wrong pair %s/%s", ci.ModelA, ci.ModelB)
		}
	}
	if len(infos) == 0 {
		t.Error("no contacts between overlapping box and cylinder")
	}
}

func TestWorld_RemoveModel(t *testing.T) {
	w := loadWorld(t, NewSampledCollider(16),
		boxModel("a", mgl64.Vec3{1, 1, 1}, mgl64.Vec3{}),
		sphereModel("b", 1, mgl64.Vec3{3, 0, 0}))
	if !w.RemoveModel("a") {
		t.Fatal("first removal returned false")
	}
	if w.RemoveModel("a") {
		t.Error("second removal returned true")
	}
	ids := w.GetAllModelIDs()
	if len(ids) != 1 || ids[0] != "b" {
		t.Errorf("remaining models = %v, want [b]", ids)
	}
}

func TestWorld_UpdateAccounting(t *testing.T) {
	w := loadWorld(t, NewAnalyticCollider(), boxModel("a", mgl64.Vec3{1, 1, 1}, mgl64.Vec3{}))

	// Paused and not forced: nothing moves.
	if err := w.Update(5, false); err != nil {
		t.Fatal(err)
	}
	s, _ := w.GetWorldState()
	if s.SimTime != 0 || s.Iterations != 0 {
		t.Errorf("paused update advanced time: %v / %d", s.SimTime, s.Iterations)
	}

	if err := w.Update(5, true); err != nil {
		t.Fatal(err)
	}
	s, _ = w.GetWorldState()
	if s.Iterations != 5 {
		t.Errorf("iterations = %d, want 5", s.Iterations)
	}
	want := 5 * defaultStepSize
	if diff := s.SimTime - want; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("sim time = %v, want %v", s.SimTime, want)
	}

	// An unpaused world is re-frozen by Update.
	w.SetPaused(false)
	if err := w.Update(1, false); err != nil {
		t.Fatal(err)
	}
	if !w.IsPaused() {
		t.Error("Update left the world unpaused")
	}
}

func TestWorld_NotLoaded(t *testing.T) {
	w := New(NewAnalyticCollider())
	if _, err := w.GetWorldState(); !errors.Is(err, world.ErrNotLoaded) {
		t.Errorf("GetWorldState err = %v", err)
	}
	if err := w.Update(1, true); !errors.Is(err, world.ErrNotLoaded) {
		t.Errorf("Update err = %v", err)
	}
	if _, err := w.GetContactInfo(); !errors.Is(err, world.ErrNotLoaded) {
		t.Errorf("GetContactInfo err = %v", err)
	}
	if res, _ := w.SetWorldState(&state.WorldState{}, false); res != world.Failed {
		t.Errorf("SetWorldState result = %v, want Failed", res)
	}
}

func TestWorld_AddModel(t *testing.T) {
	w := loadWorld(t, NewAnalyticCollider(), boxModel("a", mgl64.Vec3{1, 1, 1}, mgl64.Vec3{}))
	m := sphereModel("b", 1, mgl64.Vec3{3, 0, 0})
	res := w.AddModelFromScenario(&m, "")
	if res.Result != world.Success || res.ModelID != "b" {
		t.Fatalf("AddModelFromScenario = %+v", res)
	}
	// Same name again must be refused.
	if res := w.AddModelFromScenario(&m, ""); res.Result != world.Failed {
		t.Errorf("duplicate add = %v, want Failed", res.Result)
	}
	// A rename takes effect before the duplicate check.
	if res := w.AddModelFromScenario(&m, "c"); res.Result != world.Success || res.ModelID != "c" {
		t.Errorf("renamed add = %+v", res)
	}
}

func TestWorld_SampledRejectsPlane(t *testing.T) {
	plane := scenario.Model{
		Name:     "ground",
		Geometry: shape.Geometry{Plane: &shape.PlaneGeom{Normal: mgl64.Vec3{0, 0, 1}}},
		Static:   true,
	}
	w := New(NewSampledCollider(16))
	sc := &scenario.World{Name: "test", Models: []scenario.Model{plane}}
	res, err := w.LoadFromScenario(sc, "")
	if res != world.NotSupported {
		t.Errorf("result = %v, want NotSupported", res)
	}
	if err == nil {
		t.Error("expected an error naming the unsupported geometry")
	}
	if w.IsLoaded() {
		t.Error("failed load left the world loaded")
	}
}

func TestWorld_SetWorldCopies(t *testing.T) {
	src := loadWorld(t, NewAnalyticCollider(),
		boxModel("box", mgl64.Vec3{2, 2, 2}, mgl64.Vec3{0.5, 0, 0}))
	dst := New(NewAnalyticCollider())
	ref, err := dst.SetWorld(src)
	if err != nil || ref != world.Copied {
		t.Fatalf("SetWorld = %v, %v", ref, err)
	}

	// Mutating the source must not leak into the copy.
	if _, err := src.SetBasicModelState("box", state.PositionState(mgl64.Vec3{9, 9, 9})); err != nil {
		t.Fatal(err)
	}
	got, err := dst.GetBasicModelState("box")
	if err != nil {
		t.Fatal(err)
	}
	if got.Position != (mgl64.Vec3{0.5, 0, 0}) {
		t.Errorf("copy tracked the source: position = %v", got.Position)
	}

	if ref, _ := dst.SetWorld("not a world"); ref != world.RefError {
		t.Errorf("foreign handle accepted: %v", ref)
	}
}

func TestWorld_NativeContacts(t *testing.T) {
	w := loadWorld(t, NewAnalyticCollider(),
		boxModel("box", mgl64.Vec3{2, 2, 2}, mgl64.Vec3{0.5, 0, 0}),
		cylModel("cyl", 1, 3, mgl64.Vec3{}),
		sphereModel("far", 1, mgl64.Vec3{20, 0, 0}))
	all, err := w.GetNativeContacts()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) == 0 {
		t.Fatal("no native contacts for overlapping pair")
	}
	for _, h := range all {
		nc, ok := h.(*NativeContact)
		if !ok {
			t.Fatalf("native handle has type %T", h)
		}
		if nc.Depth <= 0 {
			t.Errorf("contact %s/%s depth = %v", nc.BodyA, nc.BodyB, nc.Depth)
		}
	}

	between, err := w.GetNativeContactsBetween("cyl", "box")
	if err != nil {
		t.Fatal(err)
	}
	if len(between) != len(all) {
		t.Errorf("between = %d contacts, want %d (far sphere touches nothing)", len(between), len(all))
	}
	none, err := w.GetNativeContactsBetween("box", "far")
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("box/far = %d contacts, want 0", len(none))
	}
}

func TestWorld_IsAdaptor(t *testing.T) {
	w := New(NewAnalyticCollider())
	if w.IsAdaptor() {
		t.Error("builtin world claims to be an adaptor")
	}
	if !w.SupportsContacts() || !w.SupportsShapes() {
		t.Error("builtin world must support contacts and shapes")
	}
}
