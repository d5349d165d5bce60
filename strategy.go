package multidraw

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/multidraw/glcore"
)

// Strategy selects how a multi-draw batch is executed.
//
// The numeric values are stable: they are the values accepted by the
// multidraw_mode setting.
type Strategy int

const (
	// StrategyAuto defers the choice to [ResolveAuto]. An Emulator that is
	// handed an unresolved StrategyAuto binds to StrategyDrawElements.
	StrategyAuto Strategy = iota

	// StrategyPreferIndirect issues one indirect draw per batch entry from
	// a command buffer of indirect draw records.
	StrategyPreferIndirect

	// StrategyPreferBaseVertex issues one native base-vertex draw per entry.
	StrategyPreferBaseVertex

	// StrategyPreferMultiDrawIndirect issues a single multi-draw-indirect
	// call covering every entry.
	StrategyPreferMultiDrawIndirect

	// StrategyDrawElements issues one plain indexed draw per entry. It is
	// always correct and is the fallback of every other strategy.
	StrategyDrawElements

	// StrategyCompute flattens all entries into one index buffer with a
	// compute pass and issues a single draw.
	StrategyCompute
)

// Strategies lists the concrete strategies in numeric order.
var Strategies = []Strategy{
	StrategyPreferIndirect,
	StrategyPreferBaseVertex,
	StrategyPreferMultiDrawIndirect,
	StrategyDrawElements,
	StrategyCompute,
}

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyAuto:
		return "Auto"
	case StrategyPreferIndirect:
		return "PreferIndirect"
	case StrategyPreferBaseVertex:
		return "PreferBaseVertex"
	case StrategyPreferMultiDrawIndirect:
		return "PreferMultiDrawIndirect"
	case StrategyDrawElements:
		return "DrawElements"
	case StrategyCompute:
		return "Compute"
	default:
		return "Unknown"
	}
}

// Valid reports whether s is Auto or one of the five concrete strategies.
func (s Strategy) Valid() bool {
	return s >= StrategyAuto && s <= StrategyCompute
}

// ParseStrategy parses a strategy name (case-insensitive, with or without
// the "Prefer" prefix) or its numeric value.
func ParseStrategy(s string) (Strategy, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		st := Strategy(n)
		if !st.Valid() {
			return StrategyAuto, fmt.Errorf("multidraw: strategy %d out of range", n)
		}
		return st, nil
	}
	switch strings.TrimPrefix(strings.ToLower(s), "prefer") {
	case "auto", "":
		return StrategyAuto, nil
	case "indirect":
		return StrategyPreferIndirect, nil
	case "basevertex", "base_vertex":
		return StrategyPreferBaseVertex, nil
	case "multidrawindirect", "multidraw_indirect", "mdi":
		return StrategyPreferMultiDrawIndirect, nil
	case "drawelements", "draw_elements":
		return StrategyDrawElements, nil
	case "compute":
		return StrategyCompute, nil
	default:
		return StrategyAuto, fmt.Errorf("multidraw: unknown strategy %q", s)
	}
}

// ResolveAuto picks the strategy for StrategyAuto from device capabilities.
//
// Order of preference:
//   - multi-draw indirect: one submission for the whole batch
//   - base vertex: no intermediate buffers
//   - indirect: per-entry submission from GPU-resident records
//   - draw elements: always available
//
// Compute is never chosen automatically; its preconditions depend on each
// batch and it must be requested explicitly.
func ResolveAuto(caps glcore.Capabilities) Strategy {
	switch {
	case caps.MultiDrawIndirect:
		return StrategyPreferMultiDrawIndirect
	case caps.BaseVertex:
		return StrategyPreferBaseVertex
	case caps.Indirect:
		return StrategyPreferIndirect
	default:
		return StrategyDrawElements
	}
}
