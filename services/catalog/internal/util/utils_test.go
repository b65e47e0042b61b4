package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                 string
		page, size           int
		wantOffset, wantSize int
	}{
		{name: "first page", page: 1, size: 10, wantOffset: 0, wantSize: 10},
		{name: "third page", page: 3, size: 6, wantOffset: 12, wantSize: 6},
		{name: "page below one", page: 0, size: 5, wantOffset: 0, wantSize: 5},
		{name: "size defaulted", page: 2, size: 0, wantOffset: DefaultPageSize, wantSize: DefaultPageSize},
		{name: "size capped", page: 1, size: 1000, wantOffset: 0, wantSize: DefaultPageSize},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			offset, limit := Calculate(tt.page, tt.size)
			assert.Equal(t, tt.wantOffset, offset)
			assert.Equal(t, tt.wantSize, limit)
		})
	}
}

func TestParseIntDefault(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 7, ParseIntDefault("", 7))
	assert.Equal(t, 7, ParseIntDefault("x", 7))
	assert.Equal(t, 3, ParseIntDefault("3", 7))
}
