package state

// Tolerances holds the per-field thresholds under which two measured
// quantities count as equal. Tolerance configuration is always an
// explicit input; nothing is inferred from engine defaults.
type Tolerances struct {
	// Position is the maximum Euclidean distance between positions.
	Position float64 `yaml:"position"`
	// Rotation is the maximum rotation angle, in radians, between
	// orientations.
	Rotation float64 `yaml:"rotation"`
	// Scale is the maximum Euclidean distance between scale vectors.
	Scale float64 `yaml:"scale"`
	// Dynamics bounds dynamics-derived quantities such as simulated
	// time. It is consulted only when both compared worlds have
	// dynamics enabled.
	Dynamics float64 `yaml:"dynamics"`
}

func DefaultTolerances() Tolerances {
	return Tolerances{
		Position: 1e-5,
		Rotation: 1e-5,
		Scale:    1e-5,
		Dynamics: 1e-3,
	}
}
