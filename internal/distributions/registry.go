package distributions

import (
	"fmt"
	"math/rand"
)

// RandSource adapts *rand.Rand to the Source interface this package
// depends on, keeping the dependency on math/rand confined to callers
// that actually construct an engine RNG.
type RandSource struct{ *rand.Rand }

// NotFoundError is returned when a strategy parameter file names a
// distribution outside the recognised registry (spec §6).
type NotFoundError struct{ Name string }

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("distribution %q not found", e.Name)
}

// Builder constructs a Distribution from the decoded "params" map of a
// strategy-parameter dist node.
type Builder func(params map[string]float64) Distribution

// Registry is the name -> constructor table used to resolve strategy
// parameter file "dist" nodes. Names mirror the recognised set in spec §6.
var Registry = map[string]Builder{
	"mock": func(map[string]float64) Distribution { return NewMock() },
	"uniform": func(p map[string]float64) Distribution {
		return NewUniform(p["lower"], p["upper"])
	},
	"normal": func(p map[string]float64) Distribution {
		return NewNormal(p["mean"], p["std"])
	},
	"truncated_normal": func(p map[string]float64) Distribution {
		return NewTruncatedNormal(p["lower"], p["upper"], p["mean"], p["std"])
	},
	"truncated_inverse_normal": func(p map[string]float64) Distribution {
		return NewTruncatedInverseNormal(p["lower"], p["upper"], p["mean"], p["std"])
	},
	"lognormal": func(p map[string]float64) Distribution {
		return NewLogNormal(p["mean"], p["std"], p["base"])
	},
	"truncated_lognormal": func(p map[string]float64) Distribution {
		return NewTruncatedLogNormal(p["lower"], p["upper"], p["mean"], p["std"], p["base"])
	},
	"triangular": func(p map[string]float64) Distribution {
		return NewTriangular(p["lower"], p["upper"])
	},
	"parabolic": func(p map[string]float64) Distribution {
		return NewParabolic(p["lower"], p["upper"])
	},
}

// Build resolves a distribution by name, returning NotFoundError for an
// unrecognised one.
func Build(name string, params map[string]float64) (Distribution, error) {
	ctor, ok := Registry[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return ctor(params), nil
}
