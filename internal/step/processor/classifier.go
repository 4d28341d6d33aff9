// Package processor splits fetched executions by what the harvester does with them next.
package processor

import "github.com/tigerroll/querymetrics/internal/domain/model"

// Classify partitions records into terminal ones (SUCCEEDED, CANCELLED), which are
// written, and in-flight ones (QUEUED, RUNNING), which go to the retry queue.
// FAILED and unrecognized statuses appear in neither. Input order is kept in both outputs.
func Classify(records []model.QueryExecutionRecord) (terminal, nonTerminal []model.QueryExecutionRecord) {
	for _, r := range records {
		switch {
		case r.Status.IsTerminal():
			terminal = append(terminal, r)
		case r.Status.IsInFlight():
			nonTerminal = append(nonTerminal, r)
		}
	}
	return terminal, nonTerminal
}

// IDs returns the ids of records in order.
func IDs(records []model.QueryExecutionRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
