package models

import "time"

// ContributionKind labels the activity being counted.
type ContributionKind string

const (
	ContributionWrite   ContributionKind = "WRITE"
	ContributionEdit    ContributionKind = "EDIT"
	ContributionPodcast ContributionKind = "PODCAST"
	ContributionReview  ContributionKind = "REVIEW"
	ContributionReport  ContributionKind = "REPORT"
)

// Contribution is one additive counter row per (actor, day, kind). Increments
// add to Count; rows are never overwritten, so ranges roll up by summation.
type Contribution struct {
	ActorID string           `db:"actor_id" json:"actor_id"`
	Day     time.Time        `db:"day" json:"day"`
	Month   int              `db:"month" json:"month"`
	Year    int              `db:"year" json:"year"`
	Kind    ContributionKind `db:"kind" json:"kind"`
	Count   int              `db:"count" json:"count"`
}

// ContributionSummary aggregates counts over a requested range.
type ContributionSummary struct {
	ActorID string                   `json:"actor_id"`
	From    time.Time                `json:"from"`
	To      time.Time                `json:"to"`
	Totals  map[ContributionKind]int `json:"totals"`
	Rows    []Contribution           `json:"rows"`
}
