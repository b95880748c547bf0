package engines

import (
	"fmt"
	"sort"

	"github.com/san-kum/collidebench/internal/engines/builtin"
	"github.com/san-kum/collidebench/internal/engines/planar"
	"github.com/san-kum/collidebench/internal/world"
)

type Registry struct {
	factories map[string]func() world.PhysicsWorld
}

func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]func() world.PhysicsWorld),
	}

	r.factories["analytic"] = func() world.PhysicsWorld {
		return builtin.New(&builtin.AnalyticCollider{})
	}
	r.factories["sampled"] = func() world.PhysicsWorld {
		return builtin.New(builtin.NewSampledCollider(32))
	}
	r.factories["planar"] = func() world.PhysicsWorld {
		return planar.New()
	}

	return r
}

func (r *Registry) Get(name string) (world.PhysicsWorld, error) {
	fn, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown engine: %s", name)
	}
	return fn(), nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
