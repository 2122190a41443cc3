package sqlmodel

// Label buckets a confidence score for human consumption.
type Label string

const (
	LabelHigh    Label = "high"
	LabelMedium  Label = "medium"
	LabelPartial Label = "partial"
	LabelLow     Label = "low"
)

// CandidateBlock is a text-search hit expanded with a bounded context window.
type CandidateBlock struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Text      string `json:"text"`
	// Patterns that selected this block, for scoring bonuses.
	MatchedPatterns []SearchPattern `json:"-"`
}

// MatchResult scores one candidate block against a query. The rationale
// fields are mandatory output: a caller must be able to tell a partial match
// from an exact one without reading the number.
type MatchResult struct {
	File       string   `json:"file"`
	Line       int      `json:"line"`
	Snippet    string   `json:"snippet"`
	Matched    []string `json:"matched"`
	Missing    []string `json:"missing,omitempty"`
	Extra      []string `json:"extra,omitempty"`
	Confidence float64  `json:"confidence"`
	Label      Label    `json:"label"`
	Suppressed bool     `json:"suppressed,omitempty"`
}

// Statement is one entry of a parsed transaction log.
type Statement struct {
	Query      *Query `json:"query,omitempty"`
	Raw        string `json:"raw"`
	LineStart  int    `json:"lineStart"`
	LineEnd    int    `json:"lineEnd"`
	Timestamp  string `json:"timestamp,omitempty"`
	Controller string `json:"controller,omitempty"` // from inline comment hints, unverified
	Action     string `json:"action,omitempty"`
}

// TransactionFlow is an ordered multi-statement log parsed into queries.
type TransactionFlow struct {
	Statements []Statement `json:"statements"`
	Raw        string      `json:"-"`
}

// Tables returns the distinct primary tables touched by the flow's
// INSERT and UPDATE statements, in first-seen order.
func (f *TransactionFlow) Tables() []string {
	seen := make(map[string]bool)
	var out []string
	for _, st := range f.Statements {
		if st.Query == nil {
			continue
		}
		if st.Query.Intent != IntentInsert && st.Query.Intent != IntentUpdate {
			continue
		}
		t := st.Query.PrimaryTable
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// CallbackSuggestion names a model lifecycle callback that may explain
// writes observed in a transaction flow. Verified means the declaration
// line itself was located; unverified suggestions are inferred only and
// must never be presented as verified.
type CallbackSuggestion struct {
	Model    string `json:"model"`
	Callback string `json:"callback"` // e.g. after_save
	Method   string `json:"method"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Verified bool   `json:"verified"`
	Reason   string `json:"reason"`
}
