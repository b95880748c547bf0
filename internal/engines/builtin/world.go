// Package builtin provides a self-contained physics world used as a
// comparison lane: it maintains model poses and computes contact
// points, but has no dynamics engine. Two collision backends are
// available, one analytic and one sampling-based, so that two builtin
// worlds already form a meaningful cross-check.
package builtin

import (
	"errors"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/collidebench/internal/contact"
	"github.com/san-kum/collidebench/internal/logging"
	"github.com/san-kum/collidebench/internal/scenario"
	"github.com/san-kum/collidebench/internal/shape"
	"github.com/san-kum/collidebench/internal/state"
	"github.com/san-kum/collidebench/internal/world"
)

const defaultStepSize = 1e-3

// Body is one model instance in a builtin world.
type Body struct {
	Name  string
	Geom  *shape.Geometry
	Pos   mgl64.Vec3
	Rot   mgl64.Quat
	Scale mgl64.Vec3
	Def   scenario.Model
}

// Collider is the pluggable collision backend of a builtin world.
type Collider interface {
	Name() string
	Supports(g *shape.Geometry) bool
	AABB(b *Body) (min, max mgl64.Vec3)
	// Contacts returns the contact points between two bodies and
	// whether the pair is considered colliding at all.
	Contacts(a, b *Body) ([]contact.Contact, bool)
}

// NativeContact is the builtin engine's own contact representation.
// Pointers handed out by GetNativeContacts refer into a buffer that
// is reused on the next Update.
type NativeContact struct {
	BodyA, BodyB string
	Point        mgl64.Vec3
	Normal       mgl64.Vec3
	Depth        float64
}

// World implements the full physics world contract on top of a
// Collider. It owns its state outright and is not an adaptor.
type World struct {
	collider Collider
	log      *log.Logger

	name       string
	loaded     bool
	paused     bool
	stepSize   float64
	simTime    float64
	iterations uint64

	bodies    map[string]*Body
	nativeBuf []NativeContact
	diag      world.Diag
}

var _ world.EngineWorld = (*World)(nil)

func New(c Collider) *World {
	return &World{
		collider: c,
		log:      logging.For("builtin/" + c.Name()),
		stepSize: defaultStepSize,
		paused:   true,
	}
}

// SetStepSize changes the simulated time accrued per step.
func (w *World) SetStepSize(dt float64) {
	if dt > 0 {
		w.stepSize = dt
	}
}

func (w *World) GetName() string { return w.name }

func (w *World) IsLoaded() bool { return w.loaded }

func (w *World) LoadFromFile(path, worldname string) (world.OpResult, error) {
	sc, err := scenario.Load(path)
	if err != nil {
		return world.Failed, fmt.Errorf("load %s: %w", path, err)
	}
	return w.LoadFromScenario(sc, worldname)
}

func (w *World) LoadFromString(text, worldname string) (world.OpResult, error) {
	sc, err := scenario.Parse([]byte(text))
	if err != nil {
		return world.Failed, err
	}
	return w.LoadFromScenario(sc, worldname)
}

func (w *World) LoadFromScenario(sc *scenario.World, worldname string) (world.OpResult, error) {
	for i := range sc.Models {
		if !w.collider.Supports(sc.Models[i].CollisionGeometry()) {
			return world.NotSupported, fmt.Errorf("model %q: geometry kind %s not supported by %s backend",
				sc.Models[i].Name, sc.Models[i].CollisionGeometry().Kind(), w.collider.Name())
		}
	}

	w.Clear()
	w.name = sc.Name
	if worldname != "" {
		w.name = worldname
	}
	w.bodies = make(map[string]*Body, len(sc.Models))
	for i := range sc.Models {
		w.addBody(&sc.Models[i])
	}
	if sc.Physics {
		if w.diag.Count("dynamics-requested") == 1 {
			w.log.Warn("scenario requests dynamics; this backend is static, poses will hold",
				"world", w.name)
		}
	}
	w.loaded = true
	// Worlds come up frozen; stepping is always explicit.
	w.paused = true
	return world.Success, nil
}

func (w *World) addBody(m *scenario.Model) *Body {
	b := &Body{
		Name:  m.Name,
		Geom:  m.CollisionGeometry(),
		Pos:   m.Pose.Position,
		Rot:   m.Pose.Quat(),
		Scale: mgl64.Vec3{1, 1, 1},
		Def:   *m,
	}
	w.bodies[b.Name] = b
	return b
}

func (w *World) Clear() {
	for _, b := range w.bodies {
		w.forget(b)
	}
	w.bodies = nil
	w.loaded = false
	w.paused = true
	w.simTime = 0
	w.iterations = 0
	w.nativeBuf = w.nativeBuf[:0]
	w.name = ""
}

func (w *World) forget(b *Body) {
	if f, ok := w.collider.(interface{ Forget(*Body) }); ok {
		f.Forget(b)
	}
}

func (w *World) GetWorldState() (*state.WorldState, error) {
	if !w.loaded {
		return nil, world.ErrNotLoaded
	}
	s := &state.WorldState{
		Name:       w.name,
		SimTime:    w.simTime,
		Iterations: w.iterations,
		Dynamics:   false,
	}
	for _, b := range w.bodies {
		s.Models = append(s.Models, state.ModelState{
			Name:  b.Name,
			State: state.FullBasicState(b.Pos, b.Rot, b.Scale),
		})
		s.Insertions = append(s.Insertions, b.Def)
	}
	s.Sort()
	return s, nil
}

func (w *World) GetWorldStateDiff(other *state.WorldState) (*state.WorldState, error) {
	cur, err := w.GetWorldState()
	if err != nil {
		return nil, err
	}
	return cur.Diff(other, state.Tolerances{}), nil
}

func (w *World) SetWorldState(s *state.WorldState, isDiff bool) (world.OpResult, error) {
	if !w.loaded {
		return world.Failed, world.ErrNotLoaded
	}
	cur, err := w.GetWorldState()
	if err != nil {
		return world.Failed, err
	}
	plan, err := state.PlanApply(cur, s, isDiff)
	if err != nil {
		if errors.Is(err, state.ErrIncompatible) {
			return world.NotSupported, err
		}
		return world.Failed, err
	}
	for _, ins := range plan.Add {
		if !w.collider.Supports(ins.CollisionGeometry()) {
			return world.NotSupported, fmt.Errorf("model %q: geometry not supported", ins.Name)
		}
	}

	for _, name := range plan.Remove {
		if b, ok := w.bodies[name]; ok {
			w.forget(b)
			delete(w.bodies, name)
		}
	}
	for i := range plan.Add {
		ins := plan.Add[i]
		w.addBody(&ins)
	}
	for _, upd := range plan.Update {
		b := w.bodies[upd.Name]
		if b == nil {
			return world.Failed, fmt.Errorf("planned update for missing model %q", upd.Name)
		}
		applyBasic(b, upd.State)
	}
	return world.Success, nil
}

func applyBasic(b *Body, s state.BasicState) {
	if s.PosEnabled {
		b.Pos = s.Position
	}
	if s.RotEnabled {
		b.Rot = s.Rotation
	}
	if s.ScaleEnabled {
		b.Scale = s.Scale
	}
}

func (w *World) Update(steps int, force bool) error {
	if !w.loaded {
		return world.ErrNotLoaded
	}
	if steps < 0 {
		return fmt.Errorf("negative step count %d", steps)
	}
	if w.paused && !force {
		w.log.Debug("update skipped, world paused", "world", w.name, "steps", steps)
		return nil
	}
	if !w.paused {
		// The step count contract requires driving a frozen world.
		if w.diag.Count("unpaused-at-update") == 1 {
			w.log.Warn("world was not paused at Update; pausing", "world", w.name)
		}
		w.paused = true
	}

	// Contacts from the previous step become invalid here: the
	// native buffer gets reused.
	w.nativeBuf = w.nativeBuf[:0]

	w.simTime += float64(steps) * w.stepSize
	w.iterations += uint64(steps)
	return nil
}

func (w *World) SetPaused(flag bool) { w.paused = flag }

func (w *World) IsPaused() bool { return w.paused }

func (w *World) SetDynamicsEnabled(flag bool) {
	if flag && w.diag.Count("dynamics-requested") == 1 {
		w.log.Warn("dynamics requested on static backend; ignored", "world", w.name)
	}
}

func (w *World) DynamicsEnabled() bool { return false }

func (w *World) Diagnostics() map[string]int { return w.diag.Snapshot() }

func (w *World) AddModelFromFile(path, modelname string) world.ModelLoadResult {
	m, err := scenario.LoadModel(path)
	if err != nil {
		w.log.Error("add model failed", "path", path, "err", err)
		return world.ModelLoadResult{Result: world.Failed}
	}
	return w.AddModelFromScenario(m, modelname)
}

func (w *World) AddModelFromString(text, modelname string) world.ModelLoadResult {
	m, err := scenario.ParseModel([]byte(text))
	if err != nil {
		w.log.Error("add model failed", "err", err)
		return world.ModelLoadResult{Result: world.Failed}
	}
	return w.AddModelFromScenario(m, modelname)
}

func (w *World) AddModelFromScenario(m *scenario.Model, modelname string) world.ModelLoadResult {
	if !w.loaded {
		return world.ModelLoadResult{Result: world.Failed}
	}
	def := *m
	if modelname != "" {
		def.Name = modelname
	}
	if _, exists := w.bodies[def.Name]; exists {
		w.log.Error("model already exists", "model", def.Name)
		return world.ModelLoadResult{Result: world.Failed}
	}
	if !w.collider.Supports(def.CollisionGeometry()) {
		return world.ModelLoadResult{Result: world.NotSupported}
	}
	w.addBody(&def)
	return world.ModelLoadResult{Result: world.Success, ModelID: world.ModelID(def.Name)}
}

func (w *World) SupportsShapes() bool { return true }

func (w *World) AddModelFromShape(modelname string, s shape.Shape, collShape shape.Shape) world.ModelLoadResult {
	m, err := scenario.FromShape(modelname, s, collShape)
	if err != nil {
		w.log.Error("shape conversion failed", "model", modelname, "err", err)
		return world.ModelLoadResult{Result: world.Failed}
	}
	return w.AddModelFromScenario(m, "")
}

func (w *World) GetAllModelIDs() []world.ModelID {
	ids := make([]world.ModelID, 0, len(w.bodies))
	for name := range w.bodies {
		ids = append(ids, world.ModelID(name))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (w *World) RemoveModel(id world.ModelID) bool {
	b, ok := w.bodies[string(id)]
	if !ok {
		return false
	}
	w.forget(b)
	delete(w.bodies, string(id))
	return true
}

func (w *World) SetBasicModelState(id world.ModelID, s state.BasicState) (world.OpResult, error) {
	if !w.loaded {
		return world.Failed, world.ErrNotLoaded
	}
	b, ok := w.bodies[string(id)]
	if !ok {
		return world.Failed, fmt.Errorf("unknown model %q", id)
	}
	applyBasic(b, s)
	return world.Success, nil
}

func (w *World) GetBasicModelState(id world.ModelID) (state.BasicState, error) {
	if !w.loaded {
		return state.BasicState{}, world.ErrNotLoaded
	}
	b, ok := w.bodies[string(id)]
	if !ok {
		return state.BasicState{}, fmt.Errorf("unknown model %q", id)
	}
	return state.FullBasicState(b.Pos, b.Rot, b.Scale), nil
}

func (w *World) GetAABB(id world.ModelID) (mgl64.Vec3, mgl64.Vec3, error) {
	if !w.loaded {
		return mgl64.Vec3{}, mgl64.Vec3{}, world.ErrNotLoaded
	}
	b, ok := w.bodies[string(id)]
	if !ok {
		return mgl64.Vec3{}, mgl64.Vec3{}, fmt.Errorf("unknown model %q", id)
	}
	min, max := w.collider.AABB(b)
	return min, max, nil
}

func (w *World) SupportsContacts() bool { return true }

// sortedBodies returns the bodies in name order so contact pairs come
// out deterministically.
func (w *World) sortedBodies() []*Body {
	bs := make([]*Body, 0, len(w.bodies))
	for _, b := range w.bodies {
		bs = append(bs, b)
	}
	sort.Slice(bs, func(i, j int) bool { return bs[i].Name < bs[j].Name })
	return bs
}

func (w *World) GetContactInfo() ([]*contact.ContactInfo, error) {
	if !w.loaded {
		return nil, world.ErrNotLoaded
	}
	bs := w.sortedBodies()
	var infos []*contact.ContactInfo
	for i := 0; i < len(bs); i++ {
		for j := i + 1; j < len(bs); j++ {
			cs, hit := w.collider.Contacts(bs[i], bs[j])
			if !hit {
				continue
			}
			ci := &contact.ContactInfo{
				ModelA: bs[i].Name, PartA: "link",
				ModelB: bs[j].Name, PartB: "link",
				Contacts: cs,
			}
			if err := ci.Validate(); err != nil {
				w.diag.Count("empty-contact-pair")
				return nil, fmt.Errorf("collision backend inconsistency: %w", err)
			}
			infos = append(infos, ci)
		}
	}
	return infos, nil
}

func (w *World) GetContactInfoBetween(m1, m2 world.ModelID) ([]*contact.ContactInfo, error) {
	infos, err := w.GetContactInfo()
	if err != nil {
		return nil, err
	}
	return contact.Filter(infos, string(m1), string(m2)), nil
}

func (w *World) IsAdaptor() bool { return false }

// SetWorld copies the state of another builtin world into this one.
// A self-contained world never references foreign state, so the
// result is always Copied.
func (w *World) SetWorld(native any) (world.RefResult, error) {
	src, ok := native.(*World)
	if !ok {
		return world.RefError, fmt.Errorf("cannot take over world of type %T", native)
	}
	s, err := src.GetWorldState()
	if err != nil {
		return world.RefError, err
	}
	w.Clear()
	w.bodies = make(map[string]*Body)
	w.loaded = true
	w.name = src.name
	w.simTime = src.simTime
	w.iterations = src.iterations
	if res, err := w.SetWorldState(s, false); res != world.Success {
		w.Clear()
		return world.RefError, err
	}
	return world.Copied, nil
}

func (w *World) GetWorld() any { return w }

func (w *World) GetNativeContacts() ([]any, error) {
	if !w.loaded {
		return nil, world.ErrNotLoaded
	}
	bs := w.sortedBodies()
	w.nativeBuf = w.nativeBuf[:0]
	for i := 0; i < len(bs); i++ {
		for j := i + 1; j < len(bs); j++ {
			cs, hit := w.collider.Contacts(bs[i], bs[j])
			if !hit {
				continue
			}
			for _, c := range cs {
				w.nativeBuf = append(w.nativeBuf, NativeContact{
					BodyA: bs[i].Name, BodyB: bs[j].Name,
					Point: c.Position, Normal: c.Normal, Depth: c.Depth,
				})
			}
		}
	}
	out := make([]any, len(w.nativeBuf))
	for i := range w.nativeBuf {
		out[i] = &w.nativeBuf[i]
	}
	return out, nil
}

func (w *World) GetNativeContactsBetween(m1, m2 world.ModelID) ([]any, error) {
	all, err := w.GetNativeContacts()
	if err != nil {
		return nil, err
	}
	var out []any
	for _, h := range all {
		nc := h.(*NativeContact)
		if (nc.BodyA == string(m1) && nc.BodyB == string(m2)) ||
			(nc.BodyA == string(m2) && nc.BodyB == string(m1)) {
			out = append(out, nc)
		}
	}
	return out, nil
}
