// Package numbering derives human-readable document numbers from creation
// order. Numbers are never persisted: they are recomputed from the full
// sibling collection on every read, so a number can shift when a sibling's
// creation timestamp is corrected or a sibling is deleted. That is an
// accepted property of the scheme, not a defect.
package numbering

import (
	"fmt"
	"sort"
	"time"
)

// Ref is the minimal view of a document the numberer needs.
type Ref struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Assign computes the display number for every document in the collection.
// Documents are ranked by ascending CreatedAt with a lexicographic ID
// tie-break, so two documents created at the identical instant always resolve
// to the same relative order. The rank is global across years; the year label
// comes from each document's own creation timestamp, so a collection spanning
// a year boundary keeps one continuous sequence.
func Assign(docs []Ref, prefix string) map[string]string {
	sorted := make([]Ref, len(docs))
	copy(sorted, docs)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	numbers := make(map[string]string, len(sorted))
	for i, doc := range sorted {
		numbers[doc.ID] = Format(prefix, doc.CreatedAt.Year(), i+1)
	}
	return numbers
}

// Format renders a display number from its parts.
func Format(prefix string, year, rank int) string {
	return fmt.Sprintf("%s-%d-%03d", prefix, year, rank)
}

// Fallback produces a degraded, index-based number for when the sibling
// collection cannot be loaded. Display numbers are informational, not
// authoritative keys, so a placeholder beats failing the caller.
func Fallback(prefix string, index int) string {
	return fmt.Sprintf("%s-%03d", prefix, index+1)
}
