package selector

// Decision stages recorded in the audit trail.
const (
	StageLatestDate     = "latest_date"
	StagePrecedence     = "precedence"
	StageVenueSnippet   = "venue_snippet"
	StageURLOrder       = "url_order"
	StageNearTie        = "near_tie_correction"
	StageNoCandidates   = "no_candidates"
	StageNoValidDates   = "no_valid_dates"
	StageNoMetroMatches = "no_candidates_for_metro"
	StageAllCanceled    = "all_canceled"
)

// Trail is the append-only ordered log of decision stages the selector
// actually applied. It becomes the audit's decisionPath.
type Trail struct {
	stages []string
}

// Mark appends a stage to the trail.
func (t *Trail) Mark(stage string) {
	t.stages = append(t.stages, stage)
}

// Path returns the recorded stages in order. Never nil, so the audit
// always serializes as a JSON array.
func (t *Trail) Path() []string {
	if t.stages == nil {
		return []string{}
	}
	return t.stages
}

// Audit records how a selection was decided.
type Audit struct {
	DecisionPath         []string `json:"decisionPath"`
	CandidatesConsidered int      `json:"candidatesConsidered"`
}
