package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewListOptions(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		perPage    int
		wantOffset int
		wantLimit  int
	}{
		{name: "defaults", page: 0, perPage: 0, wantOffset: 0, wantLimit: 20},
		{name: "second page", page: 2, perPage: 25, wantOffset: 25, wantLimit: 25},
		{name: "per page capped", page: 1, perPage: 500, wantOffset: 0, wantLimit: 100},
		{name: "negative page clamped", page: -3, perPage: 10, wantOffset: 0, wantLimit: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewListOptions(tt.page, tt.perPage)
			assert.Equal(t, tt.wantOffset, opts.Offset)
			assert.Equal(t, tt.wantLimit, opts.Limit)
			assert.Equal(t, "created_at", opts.OrderBy)
			assert.Equal(t, "desc", opts.Order)
		})
	}
}
