package store

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerceFavour(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   int
		wantOK bool
	}{
		{"int", 5, 5, true},
		{"negative int64", int64(-30), -30, true},
		{"integral float", 12.0, 12, true},
		{"fractional float", 12.5, 0, false},
		{"nan", math.NaN(), 0, false},
		{"numeric string", " -7 ", -7, true},
		{"float string", "3.0", 3, true},
		{"json number", json.Number("150"), 150, true},
		{"word", "notanumber", 0, false},
		{"nil", nil, 0, false},
		{"bool", true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CoerceFavour(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
