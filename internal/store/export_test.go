package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/favourpro/internal/model"
)

func TestDecodeEntries(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []model.Entry
	}{
		{
			name: "export array",
			data: `[{"key":"b","record":{"favour":3,"attitude":"calm","relationship":"peer"}},
			        {"key":"a","record":{"favour":-1,"attitude":"cool","relationship":"rival"}}]`,
			want: []model.Entry{
				{Key: "b", Record: model.Record{Favour: 3, Attitude: "calm", Relationship: "peer"}},
				{Key: "a", Record: model.Record{Favour: -1, Attitude: "cool", Relationship: "rival"}},
			},
		},
		{
			name: "state file keeps document order",
			data: `{"z":{"favour":"12","attitude":"fond","relationship":"friend"},
			        "m":{"favour":4.0,"attitude":"ok","relationship":"peer"}}`,
			want: []model.Entry{
				{Key: "z", Record: model.Record{Favour: 12, Attitude: "fond", Relationship: "friend"}},
				{Key: "m", Record: model.Record{Favour: 4, Attitude: "ok", Relationship: "peer"}},
			},
		},
		{
			name: "unusable favour left at zero",
			data: `{"u":{"favour":"lots","attitude":"?"}}`,
			want: []model.Entry{{Key: "u", Record: model.Record{Attitude: "?"}}},
		},
		{
			name: "empty array",
			data: `[]`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeEntries([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeEntriesRejects(t *testing.T) {
	for _, data := range []string{`{"a":`, `42`, `"text"`} {
		_, err := DecodeEntries([]byte(data))
		assert.ErrorIs(t, err, ErrBadImport, data)
	}
}
