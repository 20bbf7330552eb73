// Package loot samples loot tables into item batches. Every draw in one
// generation comes from a single seeded stream, so the same table, settings
// and seed always produce the same batch.
package loot

import (
	"math"

	"project-hunter/server/internal/items"
)

const (
	minItemLevel = 1
	maxItemLevel = 100
)

// Sampler turns a table into a batch using the host's item initializer.
type Sampler struct {
	init items.Initializer
}

// NewSampler binds a sampler to an item initializer.
func NewSampler(init items.Initializer) *Sampler {
	return &Sampler{init: init}
}

// Sample runs one generation. Empty tables, a non-positive drop count and a
// zero total weight all yield an empty batch.
func (s *Sampler) Sample(table *Table, settings DropSettings, seed uint64) Batch {
	seed = NonZero(seed)
	batch := Batch{Seed: seed}
	if s == nil || table == nil {
		return batch
	}
	stream := NewStream(seed)

	candidates := filterEntries(table.Entries, settings)
	if len(candidates) == 0 {
		return batch
	}

	var selected []int
	switch table.Policy {
	case PolicySequential, PolicyAll:
		selected = sequential(stream, table.Entries, candidates, settings)
	case PolicyGuaranteedOne:
		picked := weighted(stream, table.Entries, candidates, 1, false)
		selected = append(selected, picked...)
		rest := without(candidates, picked)
		selected = append(selected, sequential(stream, table.Entries, rest, settings)...)
	default:
		count := dropCount(stream, table, settings)
		if count <= 0 {
			return batch
		}
		selected = weighted(stream, table.Entries, candidates, count, table.AllowDuplicates)
	}

	for _, idx := range selected {
		entry := table.Entries[idx]
		result, ok := s.roll(stream, entry, idx, settings)
		if !ok {
			batch.Skipped++
			continue
		}
		batch.add(result)
	}

	if settings.Currency.Max > 0 {
		amount := stream.IntRange(max(settings.Currency.Min, 0), settings.Currency.Max)
		batch.Currency = int(math.Floor(float64(amount) * settings.quantityFactor()))
		if batch.Currency < 0 {
			batch.Currency = 0
		}
	}
	return batch
}

// filterEntries returns the indices of sampleable entries in table order.
func filterEntries(entries []Entry, settings DropSettings) []int {
	out := make([]int, 0, len(entries))
	for i, entry := range entries {
		if !entry.Valid() {
			continue
		}
		if settings.OnlyCorrupted && !entry.IsCorrupted {
			continue
		}
		if settings.ExcludeCorrupted && entry.IsCorrupted {
			continue
		}
		out = append(out, i)
	}
	return out
}

func dropCount(stream *Stream, table *Table, settings DropSettings) int {
	lo, hi := settings.MinDrops, settings.MaxDrops
	if table.Selections != nil {
		lo, hi = table.Selections.Min, table.Selections.Max
	}
	hi = int(math.Floor(float64(hi) * settings.magicFindFactor()))
	if hi < lo {
		hi = lo
	}
	return stream.IntRange(lo, hi)
}

// weighted draws count picks against effective weights. Without duplicates a
// picked entry's weight leaves the pool.
func weighted(stream *Stream, entries []Entry, candidates []int, count int, allowDuplicates bool) []int {
	weights := make([]float64, len(candidates))
	total := 0.0
	for i, idx := range candidates {
		weights[i] = entries[idx].EffectiveWeight()
		total += weights[i]
	}
	if total <= 0 {
		return nil
	}

	picked := make([]int, 0, count)
	used := make([]bool, len(candidates))
	remaining := len(candidates)
	for n := 0; n < count; n++ {
		if total <= 0 || remaining == 0 {
			break
		}
		target := stream.Float64() * total
		choice := -1
		cumulative := 0.0
		for i := range candidates {
			if used[i] || weights[i] <= 0 {
				continue
			}
			cumulative += weights[i]
			choice = i
			if target < cumulative {
				break
			}
		}
		if choice < 0 {
			break
		}
		picked = append(picked, candidates[choice])
		if !allowDuplicates {
			used[choice] = true
			total -= weights[choice]
			remaining--
		}
	}
	return picked
}

// sequential rolls every candidate independently against its scaled chance.
func sequential(stream *Stream, entries []Entry, candidates []int, settings DropSettings) []int {
	out := make([]int, 0, len(candidates))
	for _, idx := range candidates {
		if stream.Chance(entries[idx].DropChance * settings.DropChanceMultiplier) {
			out = append(out, idx)
		}
	}
	return out
}

func without(candidates, picked []int) []int {
	if len(picked) == 0 {
		return candidates
	}
	skip := make(map[int]struct{}, len(picked))
	for _, idx := range picked {
		skip[idx] = struct{}{}
	}
	out := make([]int, 0, len(candidates))
	for _, idx := range candidates {
		if _, ok := skip[idx]; !ok {
			out = append(out, idx)
		}
	}
	return out
}

func (s *Sampler) roll(stream *Stream, entry Entry, idx int, settings DropSettings) (Result, bool) {
	quantity := stream.IntRange(entry.MinQuantity, entry.MaxQuantity)
	quantity = max(int(math.Floor(float64(quantity)*settings.quantityFactor())), 1)

	var level int
	if entry.Level != nil {
		level = stream.IntRange(entry.Level.Min, entry.Level.Max)
	} else {
		level = stream.IntRange(settings.SourceLevel-settings.LevelVariance, settings.SourceLevel+settings.LevelVariance)
	}
	level = min(max(level, minItemLevel), maxItemLevel)

	var rarity items.Rarity
	switch {
	case entry.OverrideRarity != nil:
		rarity = *entry.OverrideRarity
	case settings.MinimumRarity != nil:
		rarity = *settings.MinimumRarity
	default:
		rarity = settings.SourceRarity.BaseTier()
		if stream.Float64() < settings.UpgradeChance() {
			rarity = rarity.Upgrade()
		}
	}

	var corrupted bool
	switch {
	case entry.IsCorrupted:
		corrupted = true
	case !entry.CanBeCorrupted:
		corrupted = false
	default:
		corrupted = stream.Float64() < settings.CorruptionChance
	}

	item := items.New()
	item.SetSeed(stream.Uint64())
	if s.init == nil {
		return Result{}, false
	}
	if err := s.init.Init(item, entry.Ref(), level, rarity, entry.GenerateAffixes); err != nil {
		return Result{}, false
	}
	if corrupted {
		item.Corrupted = true
		item.CorruptionType = entry.CorruptionType
	}
	if quantity > 1 && item.IsStackable() {
		item.SetStack(quantity)
	}
	return Result{Item: item, Quantity: item.Stack, EntryIndex: idx, Corrupted: corrupted}, true
}
