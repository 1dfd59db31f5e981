package orders

import (
	"reflect"
	"testing"
)

func TestStockDeltas(t *testing.T) {
	tests := []struct {
		name     string
		original map[int64]int
		updated  map[int64]int
		want     []stockDelta
	}{
		{
			name:     "unchanged order moves nothing",
			original: map[int64]int{1: 2, 2: 5},
			updated:  map[int64]int{1: 2, 2: 5},
			want:     []stockDelta{},
		},
		{
			name:     "increasing a quantity takes more stock",
			original: map[int64]int{1: 2},
			updated:  map[int64]int{1: 5},
			want:     []stockDelta{{ProductID: 1, Delta: -3}},
		},
		{
			name:     "decreasing a quantity returns stock",
			original: map[int64]int{1: 5},
			updated:  map[int64]int{1: 1},
			want:     []stockDelta{{ProductID: 1, Delta: 4}},
		},
		{
			name:     "removing a line returns its full quantity",
			original: map[int64]int{1: 2, 2: 3},
			updated:  map[int64]int{1: 2},
			want:     []stockDelta{{ProductID: 2, Delta: 3}},
		},
		{
			name:     "adding a line takes its quantity",
			original: map[int64]int{1: 2},
			updated:  map[int64]int{1: 2, 3: 4},
			want:     []stockDelta{{ProductID: 3, Delta: -4}},
		},
		{
			name:     "mixed changes ordered by product",
			original: map[int64]int{9: 1, 4: 4},
			updated:  map[int64]int{4: 6, 7: 2},
			want: []stockDelta{
				{ProductID: 4, Delta: -2},
				{ProductID: 7, Delta: -2},
				{ProductID: 9, Delta: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stockDeltas(tt.original, tt.updated)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRemovedProducts(t *testing.T) {
	got := removedProducts(map[int64]int{3: 1, 1: 1, 2: 1}, map[int64]int{2: 4})
	if want := []int64{1, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if got := removedProducts(map[int64]int{1: 1}, map[int64]int{1: 2}); got != nil {
		t.Errorf("expected nothing removed, got %v", got)
	}
}
