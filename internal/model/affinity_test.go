package model

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityKey(t *testing.T) {
	tests := []struct {
		name    string
		id      Identity
		scoped  bool
		want    Key
		wantErr bool
	}{
		{"global", Identity{UserID: "42"}, false, "42", false},
		{"global ignores session", Identity{UserID: "42", SessionID: "grp"}, false, "42", false},
		{"scoped", Identity{UserID: "42", SessionID: "grp"}, true, Key("grp\x1f42"), false},
		{"scoped without session", Identity{UserID: "42"}, true, "42", false},
		{"empty user", Identity{}, false, "", true},
		{"separator in user", Identity{UserID: "a\x1fb"}, false, "", true},
		{"separator in session", Identity{UserID: "a", SessionID: "s\x1f"}, true, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.id.Key(tt.scoped)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidIdentity))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeysNeverCollide(t *testing.T) {
	// "grp_42" in global mode must not equal session "grp" + user "42".
	global, err := Identity{UserID: "grp_42"}.Key(false)
	require.NoError(t, err)
	scoped, err := Identity{UserID: "42", SessionID: "grp"}.Key(true)
	require.NoError(t, err)
	assert.NotEqual(t, global, scoped)
}

func TestKeySplit(t *testing.T) {
	s, u := Key("grp\x1f42").Split()
	assert.Equal(t, "grp", s)
	assert.Equal(t, "42", u)

	s, u = Key("42").Split()
	assert.Empty(t, s)
	assert.Equal(t, "42", u)
}

func TestRecordFill(t *testing.T) {
	got := Record{Favour: 7}.Fill(DefaultRecord)
	assert.Equal(t, Record{Favour: 7, Attitude: "neutral", Relationship: "stranger"}, got)

	kept := Record{Favour: -2, Attitude: "wary", Relationship: "rival"}.Fill(DefaultRecord)
	assert.Equal(t, "wary", kept.Attitude)
	assert.Equal(t, "rival", kept.Relationship)
}
