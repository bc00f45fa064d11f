package strategy

import (
	"sort"
)

// javascriptFirst ranks JavaScript-rendering providers ahead of the
// rest, ordering each group by reliability score. Used when the request
// implies dynamic content, e.g. a required selector that only exists
// after scripts run.
type javascriptFirst struct{}

// NewJavaScriptFirst creates the javascript-first strategy.
func NewJavaScriptFirst() Strategy {
	return javascriptFirst{}
}

// Name returns the strategy name.
func (javascriptFirst) Name() string {
	return JavaScriptFirst
}

// Rank places JS-capable candidates first, then non-JS candidates, both
// groups ordered by descending reliability score; ties keep registration
// order.
func (javascriptFirst) Rank(candidates []Candidate) []Candidate {
	out := ranked(candidates)
	sort.SliceStable(out, func(i, j int) bool {
		ji, jj := out[i].Capabilities.JavaScript, out[j].Capabilities.JavaScript
		if ji != jj {
			return ji
		}
		return Score(out[i]) > Score(out[j])
	})
	return out
}
