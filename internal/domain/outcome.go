package domain

import "time"

// CollectionOutcome reports one collection run. Invalid records are also counted in Skipped.
type CollectionOutcome struct {
	RunID         string
	Collected     int
	Skipped       int
	Invalid       int
	Attempted     int
	FailedQueries int
	Elapsed       time.Duration
	Message       string
}

// CurationBatchOutcome reports one batch curation run.
type CurationBatchOutcome struct {
	RunID     string
	Succeeded int
	Failed    int
	Total     int
	Elapsed   time.Duration
	Message   string
}
