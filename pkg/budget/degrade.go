package budget

// Band is a remaining-ratio band of the degradation ladder.
type Band int

const (
	// BandFull means ratio ≥ 0.5: no degradation.
	BandFull Band = iota
	// BandModerate means 0.3 ≤ ratio < 0.5.
	BandModerate
	// BandAggressive means ratio < 0.3.
	BandAggressive
)

// BandFor maps a remaining ratio to its degradation band.
func BandFor(ratio float64) Band {
	switch {
	case ratio >= 0.5:
		return BandFull
	case ratio >= 0.3:
		return BandModerate
	default:
		return BandAggressive
	}
}

// Plan is the set of degraded parameters a command runs with. Zero
// values mean "leave the param as requested"; the pipeline overlays a
// plan on the command's params.
type Plan struct {
	Band Band

	// /ask
	Depth         int
	DropSelfCheck bool

	// retrieval
	DisableRerank bool
	KFinal        int

	// formatting
	MaxOverlapRows int

	// /graph
	HopLimit int
	MaxNodes int
	MaxEdges int

	// /events
	SkipAlternatives bool

	// /memory
	RecallOnly bool

	// Warning tags the caller pushes on the ledger when applying the plan.
	Warnings []string
}

// DegradePlan returns the deterministic degradation table entry for the
// command at the ledger's current remaining ratio.
func (l *Ledger) DegradePlan(command string) Plan {
	band := BandFor(l.RemainingRatio())
	plan := Plan{Band: band}
	if band == BandFull {
		return plan
	}

	switch command {
	case "ask":
		if band == BandModerate {
			plan.Depth = 2
			plan.DropSelfCheck = true
			plan.Warnings = []string{"degradation_depth_reduced", "degradation_self_check_dropped"}
		} else {
			plan.Depth = 1
			plan.DropSelfCheck = true
			plan.DisableRerank = true
			plan.Warnings = []string{"degradation_depth_reduced", "degradation_self_check_dropped", "degradation_rerank_disabled"}
		}
	case "graph":
		if band == BandModerate {
			plan.HopLimit = 2
			plan.MaxNodes = 120
			plan.Warnings = []string{"degradation_graph_limited"}
		} else {
			plan.HopLimit = 1
			plan.MaxNodes = 60
			plan.MaxEdges = 180
			plan.Warnings = []string{"degradation_graph_limited"}
		}
	case "events":
		if band == BandAggressive {
			plan.KFinal = 5
			plan.SkipAlternatives = true
			plan.Warnings = []string{"degradation_events_limited"}
		}
	case "memory":
		if band == BandAggressive {
			plan.RecallOnly = true
			plan.Warnings = []string{"degradation_memory_recall_only"}
		}
	default:
		if band == BandAggressive {
			plan.DisableRerank = true
			plan.MaxOverlapRows = 5
			plan.Warnings = []string{"degradation_rerank_disabled"}
		}
	}
	return plan
}
