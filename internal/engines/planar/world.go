// Package planar adapts the Box2D engine as a comparison lane. The
// scene is projected onto the XY plane: boxes become polygons,
// spheres and z-axis cylinders become circles, and the z coordinate
// is carried through unchanged as a shadow value. Meshes, planes and
// off-z-axis rotations are outside what this adaptor can represent
// and come back as NotSupported.
package planar

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ByteArena/box2d"
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/collidebench/internal/contact"
	"github.com/san-kum/collidebench/internal/logging"
	"github.com/san-kum/collidebench/internal/scenario"
	"github.com/san-kum/collidebench/internal/shape"
	"github.com/san-kum/collidebench/internal/state"
	"github.com/san-kum/collidebench/internal/world"
)

const (
	defaultStepSize    = 1e-3
	velocityIterations = 8
	positionIterations = 3
)

type bodyRec struct {
	def   scenario.Model
	body  *box2d.B2Body
	z     float64
	halfZ float64
}

// World drives a Box2D world through the physics world contract.
type World struct {
	log *log.Logger

	name       string
	loaded     bool
	paused     bool
	dynamics   bool
	owned      bool
	stepSize   float64
	simTime    float64
	iterations uint64

	b2     *box2d.B2World
	bodies map[string]*bodyRec
	diag   world.Diag
}

var _ world.EngineWorld = (*World)(nil)

func New() *World {
	return &World{
		log:      logging.For("planar"),
		stepSize: defaultStepSize,
		paused:   true,
	}
}

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
		if err := representable(&sc.Models[i]); err != nil {
			return world.NotSupported, err
		}
	}

	w.Clear()
	b2 := box2d.MakeB2World(box2d.MakeB2Vec2(sc.Gravity[0], sc.Gravity[1]))
	w.b2 = &b2
	w.owned = true
	w.bodies = make(map[string]*bodyRec, len(sc.Models))
	w.name = sc.Name
	if worldname != "" {
		w.name = worldname
	}
	w.dynamics = sc.Physics
	for i := range sc.Models {
		if err := w.addBody(&sc.Models[i]); err != nil {
			w.Clear()
			return world.Failed, err
		}
	}
	w.loaded = true
	w.paused = true
	return world.Success, nil
}

// representable rejects scene elements the planar projection cannot
// express.
func representable(m *scenario.Model) error {
	g := m.CollisionGeometry()
	switch g.Kind() {
	case shape.KindBox, shape.KindSphere, shape.KindCylinder:
	default:
		return fmt.Errorf("model %q: %s geometry has no planar representation",
			m.Name, g.Kind())
	}
	if m.Pose.RPY[0] != 0 || m.Pose.RPY[1] != 0 {
		return fmt.Errorf("model %q: rotation off the z axis has no planar representation", m.Name)
	}
	return nil
}

func (w *World) addBody(m *scenario.Model) error {
	g := m.CollisionGeometry()

	bd := box2d.MakeB2BodyDef()
	bd.Position = box2d.MakeB2Vec2(m.Pose.Position[0], m.Pose.Position[1])
	bd.Angle = m.Pose.RPY[2]
	bd.UserData = m.Name
	if w.dynamics && !m.Static {
		bd.Type = box2d.B2BodyType.B2_dynamicBody
	} else {
		// Contacts in Box2D only form against dynamic bodies, so even
		// held models are dynamic; Update restores their poses.
		bd.Type = box2d.B2BodyType.B2_dynamicBody
		bd.GravityScale = 0
	}
	body := w.b2.CreateBody(&bd)

	rec := &bodyRec{def: *m, body: body, z: m.Pose.Position[2]}
	switch g.Kind() {
	case shape.KindBox:
		ps := box2d.MakeB2PolygonShape()
		ps.SetAsBox(g.Box.Size[0]/2, g.Box.Size[1]/2)
		body.CreateFixture(&ps, 1.0)
		rec.halfZ = g.Box.Size[2] / 2
	case shape.KindSphere:
		cs := box2d.MakeB2CircleShape()
		cs.M_radius = g.Sphere.Radius
		body.CreateFixture(&cs, 1.0)
		rec.halfZ = g.Sphere.Radius
	case shape.KindCylinder:
		cs := box2d.MakeB2CircleShape()
		cs.M_radius = g.Cylinder.Radius
		body.CreateFixture(&cs, 1.0)
		rec.halfZ = g.Cylinder.Length / 2
	default:
		return fmt.Errorf("unreachable geometry kind %s", g.Kind())
	}
	w.bodies[m.Name] = rec
	return nil
}

func (w *World) Clear() {
	// Bodies in a referenced world belong to whoever built it; only
	// tear down what this instance created.
	if w.b2 != nil && w.owned {
		for b := w.b2.GetBodyList(); b != nil; {
			next := b.GetNext()
			w.b2.DestroyBody(b)
			b = next
		}
	}
	w.b2 = nil
	w.bodies = nil
	w.loaded = false
	w.owned = false
	w.paused = true
	w.simTime = 0
	w.iterations = 0
	w.name = ""
}

func yawOf(q mgl64.Quat) float64 {
	return math.Atan2(2*(q.W*q.V[2]+q.V[0]*q.V[1]), 1-2*(q.V[1]*q.V[1]+q.V[2]*q.V[2]))
}

func (w *World) GetWorldState() (*state.WorldState, error) {
	if !w.loaded {
		return nil, world.ErrNotLoaded
	}
	s := &state.WorldState{
		Name:       w.name,
		SimTime:    w.simTime,
		Iterations: w.iterations,
		Dynamics:   w.dynamics,
	}
	for _, rec := range w.bodies {
		p := rec.body.GetPosition()
		rot := mgl64.QuatRotate(rec.body.GetAngle(), mgl64.Vec3{0, 0, 1})
		s.Models = append(s.Models, state.ModelState{
			Name: rec.def.Name,
			State: state.FullBasicState(
				mgl64.Vec3{p.X, p.Y, rec.z}, rot, mgl64.Vec3{1, 1, 1}),
		})
		s.Insertions = append(s.Insertions, rec.def)
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
	for i := range plan.Add {
		if err := representable(&plan.Add[i]); err != nil {
			return world.NotSupported, err
		}
	}

	for _, name := range plan.Remove {
		if rec, ok := w.bodies[name]; ok {
			w.b2.DestroyBody(rec.body)
			delete(w.bodies, name)
		}
	}
	for i := range plan.Add {
		ins := plan.Add[i]
		if err := w.addBody(&ins); err != nil {
			return world.Failed, err
		}
	}
	for _, upd := range plan.Update {
		rec := w.bodies[upd.Name]
		if rec == nil {
			return world.Failed, fmt.Errorf("planned update for missing model %q", upd.Name)
		}
		w.applyBasic(rec, upd.State)
	}
	return world.Success, nil
}

func (w *World) applyBasic(rec *bodyRec, s state.BasicState) {
	p := rec.body.GetPosition()
	angle := rec.body.GetAngle()
	if s.PosEnabled {
		p = box2d.MakeB2Vec2(s.Position[0], s.Position[1])
		rec.z = s.Position[2]
	}
	if s.RotEnabled {
		angle = yawOf(s.Rotation)
	}
	if s.ScaleEnabled {
		// Box2D fixtures cannot be rescaled in place.
		if w.diag.Count("scale-ignored") == 1 {
			w.log.Warn("scale updates not representable; ignored", "model", rec.def.Name)
		}
	}
	rec.body.SetTransform(p, angle)
	rec.body.SetAwake(true)
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
		if w.diag.Count("unpaused-at-update") == 1 {
			w.log.Warn("world was not paused at Update; pausing", "world", w.name)
		}
		w.paused = true
	}

	type held struct {
		rec   *bodyRec
		pos   box2d.B2Vec2
		angle float64
	}
	var holds []held
	if !w.dynamics {
		for _, rec := range w.bodies {
			holds = append(holds, held{rec, rec.body.GetPosition(), rec.body.GetAngle()})
		}
	}

	for i := 0; i < steps; i++ {
		w.b2.Step(w.stepSize, velocityIterations, positionIterations)
	}

	// With dynamics off the step only refreshes the contact manifolds;
	// poses are pinned back afterwards.
	for _, h := range holds {
		h.rec.body.SetTransform(h.pos, h.angle)
		h.rec.body.SetLinearVelocity(box2d.MakeB2Vec2(0, 0))
		h.rec.body.SetAngularVelocity(0)
	}

	w.simTime += float64(steps) * w.stepSize
	w.iterations += uint64(steps)
	return nil
}

func (w *World) SetPaused(flag bool) { w.paused = flag }

func (w *World) IsPaused() bool { return w.paused }

func (w *World) SetDynamicsEnabled(flag bool) { w.dynamics = flag }

func (w *World) DynamicsEnabled() bool { return w.dynamics }

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
	if err := representable(&def); err != nil {
		return world.ModelLoadResult{Result: world.NotSupported}
	}
	if err := w.addBody(&def); err != nil {
		return world.ModelLoadResult{Result: world.Failed}
	}
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
	rec, ok := w.bodies[string(id)]
	if !ok {
		return false
	}
	w.b2.DestroyBody(rec.body)
	delete(w.bodies, string(id))
	return true
}

func (w *World) SetBasicModelState(id world.ModelID, s state.BasicState) (world.OpResult, error) {
	if !w.loaded {
		return world.Failed, world.ErrNotLoaded
	}
	rec, ok := w.bodies[string(id)]
	if !ok {
		return world.Failed, fmt.Errorf("unknown model %q", id)
	}
	w.applyBasic(rec, s)
	return world.Success, nil
}

func (w *World) GetBasicModelState(id world.ModelID) (state.BasicState, error) {
	if !w.loaded {
		return state.BasicState{}, world.ErrNotLoaded
	}
	rec, ok := w.bodies[string(id)]
	if !ok {
		return state.BasicState{}, fmt.Errorf("unknown model %q", id)
	}
	p := rec.body.GetPosition()
	rot := mgl64.QuatRotate(rec.body.GetAngle(), mgl64.Vec3{0, 0, 1})
	return state.FullBasicState(mgl64.Vec3{p.X, p.Y, rec.z}, rot, mgl64.Vec3{1, 1, 1}), nil
}

func (w *World) GetAABB(id world.ModelID) (mgl64.Vec3, mgl64.Vec3, error) {
	if !w.loaded {
		return mgl64.Vec3{}, mgl64.Vec3{}, world.ErrNotLoaded
	}
	rec, ok := w.bodies[string(id)]
	if !ok {
		return mgl64.Vec3{}, mgl64.Vec3{}, fmt.Errorf("unknown model %q", id)
	}
	p := rec.body.GetPosition()
	g := rec.def.CollisionGeometry()
	var ex, ey float64
	switch g.Kind() {
	case shape.KindBox:
		c := math.Abs(math.Cos(rec.body.GetAngle()))
		s := math.Abs(math.Sin(rec.body.GetAngle()))
		ex = c*g.Box.Size[0]/2 + s*g.Box.Size[1]/2
		ey = s*g.Box.Size[0]/2 + c*g.Box.Size[1]/2
	case shape.KindSphere:
		ex, ey = g.Sphere.Radius, g.Sphere.Radius
	case shape.KindCylinder:
		ex, ey = g.Cylinder.Radius, g.Cylinder.Radius
	}
	min := mgl64.Vec3{p.X - ex, p.Y - ey, rec.z - rec.halfZ}
	max := mgl64.Vec3{p.X + ex, p.Y + ey, rec.z + rec.halfZ}
	return min, max, nil
}

func (w *World) SupportsContacts() bool { return true }

func (w *World) GetContactInfo() ([]*contact.ContactInfo, error) {
	if !w.loaded {
		return nil, world.ErrNotLoaded
	}
	var infos []*contact.ContactInfo
	for c := w.b2.GetContactList(); c != nil; c = c.GetNext() {
		if !c.IsTouching() {
			continue
		}
		nameA, okA := c.GetFixtureA().GetBody().GetUserData().(string)
		nameB, okB := c.GetFixtureB().GetBody().GetUserData().(string)
		if !okA || !okB {
			continue
		}
		manifold := c.GetManifold()
		if manifold.PointCount == 0 {
			// A touching contact must carry manifold points.
			w.diag.Count("empty-contact-pair")
			return nil, fmt.Errorf("engine inconsistency: touching pair %s/%s has no manifold points",
				nameA, nameB)
		}
		var wm box2d.B2WorldManifold
		c.GetWorldManifold(&wm)

		recA := w.bodies[nameA]
		ci := &contact.ContactInfo{
			ModelA: nameA, PartA: "body",
			ModelB: nameB, PartB: "body",
		}
		for i := 0; i < manifold.PointCount; i++ {
			depth := -wm.Separations[i]
			if depth < 0 {
				depth = 0
			}
			z := 0.0
			if recA != nil {
				z = recA.z
			}
			ci.Contacts = append(ci.Contacts, contact.Contact{
				Position: mgl64.Vec3{wm.Points[i].X, wm.Points[i].Y, z},
				Normal:   mgl64.Vec3{wm.Normal.X, wm.Normal.Y, 0},
				Depth:    depth,
			})
		}
		infos = append(infos, ci)
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].ModelA != infos[j].ModelA {
			return infos[i].ModelA < infos[j].ModelA
		}
		return infos[i].ModelB < infos[j].ModelB
	})
	return infos, nil
}

func (w *World) GetContactInfoBetween(m1, m2 world.ModelID) ([]*contact.ContactInfo, error) {
	infos, err := w.GetContactInfo()
	if err != nil {
		return nil, err
	}
	return contact.Filter(infos, string(m1), string(m2)), nil
}

func (w *World) IsAdaptor() bool { return true }

// SetWorld takes a live reference to an externally-owned Box2D world.
// Later changes to that world are visible through this adaptor, which
// is why the result is Referenced rather than Copied.
func (w *World) SetWorld(native any) (world.RefResult, error) {
	b2, ok := native.(*box2d.B2World)
	if !ok {
		return world.RefError, fmt.Errorf("cannot adapt world of type %T", native)
	}
	w.Clear()
	w.b2 = b2
	w.owned = false
	w.loaded = true
	w.bodies = make(map[string]*bodyRec)
	// Adopt bodies that carry a model name as user data.
	for b := b2.GetBodyList(); b != nil; b = b.GetNext() {
		name, ok := b.GetUserData().(string)
		if !ok {
			continue
		}
		w.bodies[name] = &bodyRec{
			def:  scenario.Model{Name: name},
			body: b,
		}
	}
	return world.Referenced, nil
}

func (w *World) GetWorld() any { return w.b2 }

// GetNativeContacts returns the live Box2D contact handles. They
// point into engine memory that the next Step reuses; copy anything
// needed into canonical contacts before updating again.
func (w *World) GetNativeContacts() ([]any, error) {
	if !w.loaded {
		return nil, world.ErrNotLoaded
	}
	var out []any
	for c := w.b2.GetContactList(); c != nil; c = c.GetNext() {
		if c.IsTouching() {
			out = append(out, c)
		}
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
		c := h.(box2d.B2ContactInterface)
		nameA, _ := c.GetFixtureA().GetBody().GetUserData().(string)
		nameB, _ := c.GetFixtureB().GetBody().GetUserData().(string)
		if (nameA == string(m1) && nameB == string(m2)) ||
			(nameA == string(m2) && nameB == string(m1)) {
			out = append(out, h)
		}
	}
	return out, nil
}
