package loot

import "project-hunter/server/internal/items"

// Result is one generated drop.
type Result struct {
	Item       *items.Item `json:"item"`
	Quantity   int         `json:"quantity"`
	EntryIndex int         `json:"entryIndex"`
	Corrupted  bool        `json:"corrupted"`
}

// Batch is the output of one generation.
type Batch struct {
	Results        []Result `json:"results"`
	TotalQuantity  int      `json:"totalQuantity"`
	CorruptedCount int      `json:"corruptedCount"`
	Currency       int      `json:"currency"`
	Category       string   `json:"category,omitempty"`
	SourceID       string   `json:"sourceId,omitempty"`
	Seed           uint64   `json:"seed"`
	// Skipped counts selected entries whose item could not be initialised.
	Skipped int `json:"skipped,omitempty"`
}

// Len reports the number of item results.
func (b Batch) Len() int { return len(b.Results) }

// Empty reports whether the batch carries neither items nor currency.
func (b Batch) Empty() bool { return len(b.Results) == 0 && b.Currency == 0 }

// EntryIndices lists the source entry of each result in order.
func (b Batch) EntryIndices() []int {
	out := make([]int, len(b.Results))
	for i, r := range b.Results {
		out[i] = r.EntryIndex
	}
	return out
}

func (b *Batch) add(result Result) {
	b.Results = append(b.Results, result)
	b.TotalQuantity += result.Quantity
	if result.Corrupted {
		b.CorruptedCount++
	}
}
