package heuristic

// FxRequest remembers the last currency conversion so a correction prompt
// can replay it.
type FxRequest struct {
	Base   string
	Target string
	Amount float64
}

// Session is the engine's per-conversation memory. The correction rule and
// the search summarizer read and update it; the zero value is a fresh
// conversation.
type Session struct {
	LastAsset   string
	LastPriceVs []string

	LastSearchQuery   string
	LastSearchBase    string
	LastSearchFilters []string
	LastSearchURLs    []string
	LastSearchLimit   int

	LastFx *FxRequest

	HelpUsage    bool
	HelpExamples bool
}
