package planar

import (
	"errors"
	"math"
	"testing"

	"github.com/ByteArena/box2d"
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

func cylModel(name string, r, l float64, pos mgl64.Vec3) scenario.Model {
	return scenario.Model{
		Name:     name,
		Pose:     shape.Pose{Position: pos},
		Geometry: shape.Geometry{Cylinder: &shape.CylinderGeom{Radius: r, Length: l}},
		Static:   true,
	}
}

func loadWorld(t *testing.T, models ...scenario.Model) *World {
	t.Helper()
	w := New()
	sc := &scenario.World{Name: "planar-test", Models: models}
	res, err := w.LoadFromScenario(sc, "")
	if err != nil || res != world.Success {
		t.Fatalf("LoadFromScenario = %v, %v", res, err)
	}
	return w
}

func TestWorld_LoadAndState(t *testing.T) {
	w := loadWorld(t,
		boxModel("box", mgl64.Vec3{2, 2, 2}, mgl64.Vec3{0.5, 0, 0.25}),
		cylModel("cyl", 1, 3, mgl64.Vec3{}))
	if !w.IsPaused() {
		t.Error("world should come up paused")
	}
	s, err := w.GetWorldState()
	if err != nil {
		t.Fatal(err)
	}
	ms := s.ModelState("box")
	if ms == nil {
		t.Fatal("box missing from world state")
	}
	// The z coordinate rides along even though the engine is planar.
	if got := ms.State.Position; got != (mgl64.Vec3{0.5, 0, 0.25}) {
		t.Errorf("box position = %v", got)
	}
	if len(s.Insertions) != 2 {
		t.Errorf("state carries %d insertions, want 2", len(s.Insertions))
	}
}

func TestWorld_SetBasicModelState(t *testing.T) {
	w := loadWorld(t, cylModel("cyl", 1, 3, mgl64.Vec3{}))
	res, err := w.SetBasicModelState("cyl", state.PositionState(mgl64.Vec3{2, -1, 0.5}))
	if err != nil || res != world.Success {
		t.Fatalf("SetBasicModelState = %v, %v", res, err)
	}
	got, err := w.GetBasicModelState("cyl")
	if err != nil {
		t.Fatal(err)
	}
	if got.Position.Sub(mgl64.Vec3{2, -1, 0.5}).Len() > 1e-9 {
		t.Errorf("position = %v", got.Position)
	}
	if _, err := w.GetBasicModelState("nope"); err == nil {
		t.Error("unknown model accepted")
	}
}

func TestWorld_Unrepresentable(t *testing.T) {
	mesh := scenario.Model{
		Name: "wedge",
		Geometry: shape.Geometry{Mesh: &shape.MeshGeom{
			Vertices: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
			Faces:    [][3]int{{0, 1, 2}},
		}},
	}
	tilted := boxModel("tilted", mgl64.Vec3{1, 1, 1}, mgl64.Vec3{})
	tilted.Pose.RPY = mgl64.Vec3{0.3, 0, 0}

	for _, m := range []scenario.Model{mesh, tilted} {
		w := New()
		sc := &scenario.World{Name: "t", Models: []scenario.Model{m}}
		res, err := w.LoadFromScenario(sc, "")
		if res != world.NotSupported {
			t.Errorf("model %q: result = %v, want NotSupported", m.Name, res)
		}
		if err == nil {
			t.Errorf("model %q: expected an error", m.Name)
		}
	}

	// Yaw alone is fine.
	yawed := boxModel("yawed", mgl64.Vec3{1, 1, 1}, mgl64.Vec3{})
	yawed.Pose.RPY = mgl64.Vec3{0, 0, math.Pi / 4}
	loadWorld(t, yawed)
}

func TestWorld_ContactsOverlap(t *testing.T) {
	w := loadWorld(t,
		boxModel("box", mgl64.Vec3{2, 2, 2}, mgl64.Vec3{0.5, 0, 0}),
		cylModel("cyl", 1, 3, mgl64.Vec3{}))
	// Manifolds only exist after a step has run.
	if err := w.Update(1, true); err != nil {
		t.Fatal(err)
	}
	infos, err := w.GetContactInfo()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) == 0 {
		t.Fatal("overlapping pair produced no contacts")
	}
	for _, ci := range infos {
		if err := ci.Validate(); err != nil {
			t.Errorf("contact info invalid: %v", err)
		}
		if !ci.Matches("box", "cyl") {
			t.Errorf("unexpected pair %s/%s", ci.ModelA, ci.ModelB)
		}
	}

	between, err := w.GetContactInfoBetween("cyl", "box")
	if err != nil {
		t.Fatal(err)
	}
	if len(between) != len(infos) {
		t.Errorf("filter dropped contacts: %d != %d", len(between), len(infos))
	}
}

func TestWorld_ContactsSeparated(t *testing.T) {
	w := loadWorld(t,
		boxModel("box", mgl64.Vec3{2, 2, 2}, mgl64.Vec3{10, 0, 0}),
		cylModel("cyl", 1, 3, mgl64.Vec3{}))
	if err := w.Update(1, true); err != nil {
		t.Fatal(err)
	}
	infos, err := w.GetContactInfo()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 0 {
		t.Errorf("separated pair produced %d contact infos", len(infos))
	}
}

func TestWorld_PosesHeldWithoutDynamics(t *testing.T) {
	w := loadWorld(t,
		boxModel("box", mgl64.Vec3{2, 2, 2}, mgl64.Vec3{0.5, 0, 0}),
		cylModel("cyl", 1, 3, mgl64.Vec3{}))
	if w.DynamicsEnabled() {
		t.Fatal("dynamics on without a physics scenario")
	}
	if err := w.Update(10, true); err != nil {
		t.Fatal(err)
	}
	// Deeply overlapping bodies would be pushed apart by the solver;
	// held poses must survive the steps exactly.
	got, err := w.GetBasicModelState("box")
	if err != nil {
		t.Fatal(err)
	}
	if got.Position.Sub(mgl64.Vec3{0.5, 0, 0}).Len() > 1e-9 {
		t.Errorf("held body drifted to %v", got.Position)
	}
}

func TestWorld_UpdateAccounting(t *testing.T) {
	w := loadWorld(t, cylModel("cyl", 1, 3, mgl64.Vec3{}))
	if err := w.Update(3, false); err != nil {
		t.Fatal(err)
	}
	s, _ := w.GetWorldState()
	if s.Iterations != 0 {
		t.Error("paused update stepped the world")
	}
	if err := w.Update(3, true); err != nil {
		t.Fatal(err)
	}
	s, _ = w.GetWorldState()
	if s.Iterations != 3 {
		t.Errorf("iterations = %d, want 3", s.Iterations)
	}
}

func TestWorld_RemoveModel(t *testing.T) {
	w := loadWorld(t,
		boxModel("a", mgl64.Vec3{1, 1, 1}, mgl64.Vec3{}),
		cylModel("b", 1, 1, mgl64.Vec3{5, 0, 0}))
	if !w.RemoveModel("a") {
		t.Fatal("first removal returned false")
	}
	if w.RemoveModel("a") {
		t.Error("second removal returned true")
	}
	ids := w.GetAllModelIDs()
	if len(ids) != 1 || ids[0] != "b" {
		t.Errorf("remaining models = %v", ids)
	}
}

func TestWorld_GetAABB(t *testing.T) {
	w := loadWorld(t, boxModel("box", mgl64.Vec3{2, 4, 6}, mgl64.Vec3{1, 0, 0}))
	min, max, err := w.GetAABB("box")
	if err != nil {
		t.Fatal(err)
	}
	wantMin := mgl64.Vec3{0, -2, -3}
	wantMax := mgl64.Vec3{2, 2, 3}
	if min.Sub(wantMin).Len() > 1e-9 || max.Sub(wantMax).Len() > 1e-9 {
		t.Errorf("aabb = %v..%v, want %v..%v", min, max, wantMin, wantMax)
	}
}

func TestWorld_SetWorldReferences(t *testing.T) {
	src := loadWorld(t,
		boxModel("box", mgl64.Vec3{2, 2, 2}, mgl64.Vec3{0.5, 0, 0}),
		cylModel("cyl", 1, 3, mgl64.Vec3{}))

	dst := New()
	ref, err := dst.SetWorld(src.GetWorld())
	if err != nil || ref != world.Referenced {
		t.Fatalf("SetWorld = %v, %v", ref, err)
	}
	ids := dst.GetAllModelIDs()
	if len(ids) != 2 {
		t.Fatalf("adopted %d models, want 2", len(ids))
	}

	// The adaptor sees changes made through the original owner.
	if _, err := src.SetBasicModelState("box", state.PositionState(mgl64.Vec3{7, 0, 0})); err != nil {
		t.Fatal(err)
	}
	got, err := dst.GetBasicModelState("box")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got.Position[0]-7) > 1e-9 {
		t.Errorf("referenced world did not track the source: %v", got.Position)
	}

	if ref, _ := New().SetWorld(42); ref != world.RefError {
		t.Errorf("foreign handle accepted: %v", ref)
	}
}

// TestWorld_ClearOwnership checks that Clear tears down bodies the
// world created itself but leaves a referenced world's bodies to
// their original owner.
func TestWorld_ClearOwnership(t *testing.T) {
	w := loadWorld(t,
		boxModel("box", mgl64.Vec3{2, 2, 2}, mgl64.Vec3{0.5, 0, 0}),
		cylModel("cyl", 1, 3, mgl64.Vec3{}))
	native := w.GetWorld().(*box2d.B2World)
	if got := native.GetBodyCount(); got != 2 {
		t.Fatalf("body count before Clear = %d, want 2", got)
	}
	w.Clear()
	if got := native.GetBodyCount(); got != 0 {
		t.Errorf("owned bodies survived Clear: %d left", got)
	}

	src := loadWorld(t,
		boxModel("box", mgl64.Vec3{2, 2, 2}, mgl64.Vec3{0.5, 0, 0}),
		cylModel("cyl", 1, 3, mgl64.Vec3{}))
	dst := New()
	if ref, err := dst.SetWorld(src.GetWorld()); err != nil || ref != world.Referenced {
		t.Fatalf("SetWorld = %v, %v", ref, err)
	}
	dst.Clear()
	if got := src.GetWorld().(*box2d.B2World).GetBodyCount(); got != 2 {
		t.Errorf("referenced bodies destroyed by Clear: %d left", got)
	}
	if _, err := src.GetBasicModelState("box"); err != nil {
		t.Errorf("source world broken after adaptor Clear: %v", err)
	}
}

func TestWorld_NotLoaded(t *testing.T) {
	w := New()
	if _, err := w.GetWorldState(); !errors.Is(err, world.ErrNotLoaded) {
		t.Errorf("GetWorldState err = %v", err)
	}
	if err := w.Update(1, true); !errors.Is(err, world.ErrNotLoaded) {
		t.Errorf("Update err = %v", err)
	}
	if _, err := w.GetNativeContacts(); !errors.Is(err, world.ErrNotLoaded) {
		t.Errorf("GetNativeContacts err = %v", err)
	}
}

func TestWorld_IsAdaptor(t *testing.T) {
	if !New().IsAdaptor() {
		t.Error("planar world must report itself as an adaptor")
	}
}
