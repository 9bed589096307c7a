// Package domain holds the lead pipeline rules: the legal status graph,
// transition validation and stage aggregation.
package domain

// Lead statuses, ordered by pipeline position.
const (
	StatusNew              = "new"
	StatusContacted        = "contacted"
	StatusQualified        = "qualified"
	StatusInterested       = "interested"
	StatusViewingScheduled = "viewing_scheduled"
	StatusNegotiating      = "negotiating"
	StatusClosedWon        = "closed_won"
	StatusClosedLost       = "closed_lost"
)

// Lead sources.
const (
	SourceWhatsApp       = "whatsapp"
	SourceWebsite        = "website"
	SourceBayut          = "bayut"
	SourcePropertyFinder = "property_finder"
	SourceReferral       = "referral"
)

// stagePosition orders the funnel. closed_won and closed_lost are alternative
// terminals and share the final position.
var stagePosition = map[string]int{
	StatusNew:              0,
	StatusContacted:        1,
	StatusQualified:        2,
	StatusInterested:       3,
	StatusViewingScheduled: 4,
	StatusNegotiating:      5,
	StatusClosedWon:        6,
	StatusClosedLost:       6,
}

// PipelineOrder lists every stage in funnel order, for snapshots and seeding.
var PipelineOrder = []string{
	StatusNew,
	StatusContacted,
	StatusQualified,
	StatusInterested,
	StatusViewingScheduled,
	StatusNegotiating,
	StatusClosedWon,
	StatusClosedLost,
}

var knownSources = map[string]struct{}{
	SourceWhatsApp:       {},
	SourceWebsite:        {},
	SourceBayut:          {},
	SourcePropertyFinder: {},
	SourceReferral:       {},
}

// IsKnownStatus reports whether the status is part of the pipeline graph.
func IsKnownStatus(status string) bool {
	_, ok := stagePosition[status]
	return ok
}

// IsKnownSource reports whether the source is a recognized lead channel.
func IsKnownSource(source string) bool {
	_, ok := knownSources[source]
	return ok
}

// IsTerminal reports whether the status closes the lead. Terminal leads are
// retained, never deleted.
func IsTerminal(status string) bool {
	return status == StatusClosedWon || status == StatusClosedLost
}

// CanTransition validates a pipeline move. The funnel is forward-only:
// skipping stages forward is permitted, moving backward (or sideways between
// the two terminals) requires the explicit correction flag. A transition to
// the current status is never legal.
func CanTransition(from, to string, correction bool) bool {
	fromPos, ok := stagePosition[from]
	if !ok {
		return false
	}
	toPos, ok := stagePosition[to]
	if !ok {
		return false
	}
	if from == to {
		return false
	}
	if toPos > fromPos {
		return true
	}
	return correction
}
