package orders

import (
	"slices"
	"sort"
)

// stockDelta is the change to apply to one product's stock.
type stockDelta struct {
	ProductID int64
	Delta     int
}

// stockDeltas diffs an order's quantities before and after an edit. For every
// product on either side the delta is original - updated, with a missing side
// counting as zero; products whose quantity did not change are omitted.
// Results are ordered by product id.
func stockDeltas(original, updated map[int64]int) []stockDelta {
	ids := make(map[int64]struct{}, len(original)+len(updated))
	for id := range original {
		ids[id] = struct{}{}
	}
	for id := range updated {
		ids[id] = struct{}{}
	}

	deltas := make([]stockDelta, 0, len(ids))
	for id := range ids {
		if delta := original[id] - updated[id]; delta != 0 {
			deltas = append(deltas, stockDelta{ProductID: id, Delta: delta})
		}
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].ProductID < deltas[j].ProductID })
	return deltas
}

// removedProducts returns the products present in original but absent from
// updated, in ascending order.
func removedProducts(original, updated map[int64]int) []int64 {
	var removed []int64
	for id := range original {
		if _, ok := updated[id]; !ok {
			removed = append(removed, id)
		}
	}
	slices.Sort(removed)
	return removed
}
