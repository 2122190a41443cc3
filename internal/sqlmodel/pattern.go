package sqlmodel

// ClauseType tags a search pattern with the query clause it evidences.
// Patterns sharing a clause type are alternatives (mutually exclusive ways
// of expressing the same clause); patterns of different clause types are
// complements and may be AND-combined during refinement.
type ClauseType string

const (
	ClauseLimit       ClauseType = "limit"
	ClauseOffset      ClauseType = "offset"
	ClauseOrder       ClauseType = "order"
	ClauseScope       ClauseType = "scope"
	ClauseConstant    ClauseType = "constant"
	ClauseAssociation ClauseType = "association"
	ClauseCreation    ClauseType = "creation"
	ClauseExistence   ClauseType = "existence"
	ClauseCount       ClauseType = "count"
	ClauseAccessor    ClauseType = "accessor"
)

// SearchPattern is one candidate source-code idiom derived from a Query.
type SearchPattern struct {
	Text            string     `json:"text"`
	Regex           bool       `json:"regex,omitempty"`
	Distinctiveness float64    `json:"distinctiveness"`
	Clause          ClauseType `json:"clause"`
	Optional        bool       `json:"optional,omitempty"` // contributes score, never filters
	Description     string     `json:"description,omitempty"`
}
