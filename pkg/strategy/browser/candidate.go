package browser

import "fmt"

// Role is what a selector candidate is used for.
type Role string

const (
	RoleInput  Role = "input"
	RoleOutput Role = "output"
)

// Candidate is one CSS selector to probe for a Role. Lists are ordered and the first
// selector that matches an element wins; several matches are not ranked.
type Candidate struct {
	Role     Role   `mapstructure:"role"`
	Selector string `mapstructure:"selector"`
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s:%s", c.Role, c.Selector)
}

// DefaultInputSelectors are every input selector observed on the table pages.
var DefaultInputSelectors = []string{
	"textarea",
	`input[type="text"]`,
	`input[type="textarea"]`,
	".input",
	"#input",
	`[contenteditable="true"]`,
	"pre",
	"code",
}

// DefaultOutputSelectors locate the rendered table.
var DefaultOutputSelectors = []string{
	"#output img",
	"#result img",
	"img",
	"canvas",
	"svg",
	".result",
	".table",
	"#output",
	"#result",
}

// DefaultCandidates builds the candidate list from the default selectors.
func DefaultCandidates() []Candidate {
	out := make([]Candidate, 0, len(DefaultInputSelectors)+len(DefaultOutputSelectors))
	for _, s := range DefaultInputSelectors {
		out = append(out, Candidate{Role: RoleInput, Selector: s})
	}
	for _, s := range DefaultOutputSelectors {
		out = append(out, Candidate{Role: RoleOutput, Selector: s})
	}
	return out
}

// selectors returns the selectors for role, in list order.
func selectors(cands []Candidate, role Role) []string {
	var out []string
	for _, c := range cands {
		if c.Role == role {
			out = append(out, c.Selector)
		}
	}
	return out
}
