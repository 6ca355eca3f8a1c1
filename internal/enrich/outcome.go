package enrich

import (
	"encoding/json"
	"time"
)

// Status is the terminal state of one event in a run.
type Status int

const (
	// StatusEnriched means links were found and stored.
	StatusEnriched Status = iota
	// StatusEmpty means the page had no usable links; the event stays pending.
	StatusEmpty
	// StatusFailed means the page could not be processed.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusEnriched:
		return "enriched"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Outcome records what happened to one event.
type Outcome struct {
	URL      string        `json:"url"`
	Status   Status        `json:"status"`
	Links    int           `json:"links,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Failure is an event that could not be enriched.
type Failure struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// Report summarizes an enrichment run.
type Report struct {
	RunID    string        `json:"run_id"`
	Workers  int           `json:"workers"`
	Total    int           `json:"total"`
	Enriched int           `json:"enriched"`
	Empty    int           `json:"empty"`
	Failed   []Failure     `json:"failed"`
	Duration time.Duration `json:"duration"`
}

func (r *Report) add(o Outcome) {
	switch o.Status {
	case StatusEnriched:
		r.Enriched++
	case StatusEmpty:
		r.Empty++
	default:
		r.Failed = append(r.Failed, Failure{URL: o.URL, Reason: o.Reason})
	}
}
