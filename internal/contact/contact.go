package contact

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Wrench is the reaction force and torque reported for a contact.
type Wrench struct {
	Force  mgl64.Vec3
	Torque mgl64.Vec3
}

// Contact is one contact point between two entities, in the canonical
// engine-independent representation. It is an immutable value: worlds
// copy engine-native contact data into Contacts before the next step,
// so holding one across steps is always safe.
type Contact struct {
	Position mgl64.Vec3
	Normal   mgl64.Vec3
	Wrench   Wrench
	Depth    float64
}

// ContactInfo aggregates the contact points between one pair of
// entities, identified by model and model-part name on each side.
type ContactInfo struct {
	ModelA string
	PartA  string
	ModelB string
	PartB  string

	Contacts []Contact
}

// Validate checks the internal consistency rule: a reported colliding
// pair must carry at least one contact point. A violation indicates a
// bug in the reporting world, not a normal runtime condition.
func (ci *ContactInfo) Validate() error {
	if len(ci.Contacts) == 0 {
		return fmt.Errorf("contact pair %s/%s has no contact points", ci.ModelA, ci.ModelB)
	}
	return nil
}

// Matches reports whether this pair involves both m1 and m2,
// regardless of which side each is on. With m2 empty it matches any
// pair involving m1.
func (ci *ContactInfo) Matches(m1, m2 string) bool {
	if m2 == "" {
		return ci.ModelA == m1 || ci.ModelB == m1
	}
	return (ci.ModelA == m1 && ci.ModelB == m2) ||
		(ci.ModelA == m2 && ci.ModelB == m1)
}

// MaxDepth returns the largest penetration depth over the pair's
// contact points, or 0 if there are none.
func (ci *ContactInfo) MaxDepth() float64 {
	max := 0.0
	for _, c := range ci.Contacts {
		if c.Depth > max {
			max = c.Depth
		}
	}
	return max
}

// Filter returns the subset of infos matching the model pair (either
// order), per Matches.
func Filter(infos []*ContactInfo, m1, m2 string) []*ContactInfo {
	var out []*ContactInfo
	for _, ci := range infos {
		if ci.Matches(m1, m2) {
			out = append(out, ci)
		}
	}
	return out
}
