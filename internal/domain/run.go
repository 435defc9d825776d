package domain

import "time"

// Phase names the pipeline stage a failure happened in.
type Phase string

const (
	PhaseHeadlines Phase = "headlines"
	PhaseSelection Phase = "selection"
	PhaseDetails   Phase = "details"
	PhaseSummary   Phase = "summary"
	PhaseDelivery  Phase = "delivery"
)

// Failure is one isolated unit of work that did not complete.
type Failure struct {
	Phase    Phase  `json:"phase"`
	SourceID string `json:"source_id,omitempty"`
	Category string `json:"category,omitempty"`
	URL      string `json:"url,omitempty"`
	Reason   string `json:"reason"`
}

// RunStatus enumerates digest run outcomes.
type RunStatus string

const (
	RunDelivered RunStatus = "delivered"
	RunEmpty     RunStatus = "empty"
	RunFailed    RunStatus = "failed"
)

// RunReport summarizes one digest run. It never contains articles.
type RunReport struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     RunStatus `json:"status"`
	Headlines  int       `json:"headlines"`
	Selected   int       `json:"selected"`
	Delivered  int       `json:"delivered"` // notifiers that accepted the digest
	Failures   []Failure `json:"failures,omitempty"`
}

// FailedSources lists distinct source ids that recorded a failure, in first-seen order.
func (r RunReport) FailedSources() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, f := range r.Failures {
		if f.SourceID == "" {
			continue
		}
		if _, ok := seen[f.SourceID]; ok {
			continue
		}
		seen[f.SourceID] = struct{}{}
		out = append(out, f.SourceID)
	}
	return out
}
