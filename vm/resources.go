package vm

import "maps"

const (
	PedersenBuiltin   = "pedersen"
	RangeCheckBuiltin = "range_check"
)

// ExecutionResources counts the work done by one or more runs.
type ExecutionResources struct {
	Steps    uint64
	Builtins map[string]uint64
}

func NewExecutionResources() ExecutionResources {
	return ExecutionResources{Builtins: make(map[string]uint64)}
}

// Add accumulates other into r
func (r *ExecutionResources) Add(other ExecutionResources) {
	if r.Builtins == nil {
		r.Builtins = make(map[string]uint64, len(other.Builtins))
	}
	r.Steps += other.Steps
	for name, count := range other.Builtins {
		r.Builtins[name] += count
	}
}

func (r ExecutionResources) Clone() ExecutionResources {
	return ExecutionResources{Steps: r.Steps, Builtins: maps.Clone(r.Builtins)}
}
