package marker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/favourpro/internal/model"
)

func intp(n int) *int { return &n }

func TestLocate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		contents []string
		closed   []bool
	}{
		{
			name:     "canonical",
			text:     "Sure!\n[Favour: -3, Attitude: curious, Relationship: acquaintance]",
			contents: []string{"Favour: -3, Attitude: curious, Relationship: acquaintance"},
			closed:   []bool{true},
		},
		{
			name: "no brackets",
			text: "Just a plain answer.",
		},
		{
			name: "brackets without labels",
			text: "See [1] and [docs] for details.",
		},
		{
			name:     "skips unlabelled brackets before the marker",
			text:     "Use arr[0].\n[relationship: friend]",
			contents: []string{"relationship: friend"},
			closed:   []bool{true},
		},
		{
			name:     "nested brackets stay inside",
			text:     "ok [Relationship: friend [nickname: Bo]] done",
			contents: []string{"Relationship: friend [nickname: Bo]"},
			closed:   []bool{true},
		},
		{
			name:     "missing closing bracket",
			text:     "Fine.\n[Favour: 4, Attitude: amused",
			contents: []string{"Favour: 4, Attitude: amused"},
			closed:   []bool{false},
		},
		{
			name: "unclosed bracket without leading label is not a block",
			text: "x = a[i + attitude: 3",
		},
		{
			name:     "full-width colon",
			text:     "好的[Favour：2]",
			contents: []string{"Favour：2"},
			closed:   []bool{true},
		},
		{
			name:     "closing bracket inside a value",
			text:     "Ha :) [Favour: 6, Attitude: amused :], Relationship: pal] bye",
			contents: []string{"Favour: 6, Attitude: amused :], Relationship: pal"},
			closed:   []bool{true},
		},
		{
			name:     "closing bracket inside a value, label runs to end of line",
			text:     "Ha [Attitude: sly :], Relationship: pal\nnext line",
			contents: []string{"Attitude: sly :], Relationship: pal"},
			closed:   []bool{false},
		},
		{
			name:     "marker nested in an outer bracket",
			text:     "[OOC [Favour: -3, Relationship: acquaintance]]",
			contents: []string{"OOC [Favour: -3, Relationship: acquaintance]"},
			closed:   []bool{true},
		},
		{
			name:     "multiple blocks",
			text:     "[Favour: 1] middle [Attitude: calm] end",
			contents: []string{"Favour: 1", "Attitude: calm"},
			closed:   []bool{true, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := Locate(tt.text)
			require.Len(t, blocks, len(tt.contents))
			for i, b := range blocks {
				assert.Equal(t, tt.contents[i], b.Content)
				assert.Equal(t, tt.closed[i], b.Closed)
				assert.Equal(t, '[', rune(tt.text[b.Start]))
			}
		})
	}
}

func TestParseFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Fields
	}{
		{
			name:    "all fields",
			content: "Favour: -3, Attitude: curious, Relationship: acquaintance",
			want:    Fields{Favour: intp(-3), Attitude: "curious", Relationship: "acquaintance"},
		},
		{
			name:    "any order and case",
			content: "relationship: old friend, FAVOR: +12, attitude: warm but wary",
			want:    Fields{Favour: intp(12), Attitude: "warm but wary", Relationship: "old friend"},
		},
		{
			name:    "relationship only",
			content: "Relationship: friend",
			want:    Fields{Relationship: "friend"},
		},
		{
			name:    "malformed favour",
			content: "Favour: notanumber",
			want:    Fields{FavourMalformed: true},
		},
		{
			name:    "fractional favour is malformed",
			content: "Favour: 12.5, Attitude: fine",
			want:    Fields{Attitude: "fine", FavourMalformed: true},
		},
		{
			name:    "favour with trailing full stop",
			content: "Favour: 50.",
			want:    Fields{Favour: intp(50)},
		},
		{
			name:    "favour with trailing note",
			content: "Favour: 7 (up from 5)",
			want:    Fields{Favour: intp(7)},
		},
		{
			name:    "empty values are absent",
			content: "Favour: 2, Attitude: , Relationship:",
			want:    Fields{Favour: intp(2)},
		},
		{
			name:    "relationship keeps sub-text",
			content: "Relationship: friend (nickname: Bo), Favour: 40",
			want:    Fields{Favour: intp(40), Relationship: "friend (nickname: Bo)"},
		},
		{
			name:    "duplicate labels use the first usable value",
			content: "Attitude: , Attitude: shy, Attitude: bold, Favour: x, Favour: 9",
			want:    Fields{Favour: intp(9), Attitude: "shy"},
		},
		{
			name:    "chinese separators",
			content: "Favour: 5，Attitude: 友好；Relationship: 朋友",
			want:    Fields{Favour: intp(5), Attitude: "友好", Relationship: "朋友"},
		},
		{
			name:    "full-width minus",
			content: "Favour: －8",
			want:    Fields{Favour: intp(-8)},
		},
		{
			name:    "no labels",
			content: "nothing here",
			want:    Fields{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFields(tt.content))
		})
	}
}

func TestExtract(t *testing.T) {
	prior := model.Record{Favour: 5, Attitude: "neutral", Relationship: "stranger"}

	t.Run("full update", func(t *testing.T) {
		ex := Extract("Nice to meet you!\n[Favour: -3, Attitude: curious, Relationship: acquaintance]")
		require.True(t, ex.Found())
		assert.Equal(t, "Nice to meet you!", ex.Text)
		assert.Equal(t, model.Record{Favour: -3, Attitude: "curious", Relationship: "acquaintance"}, ex.Fields.Apply(prior))
	})

	t.Run("partial update", func(t *testing.T) {
		ex := Extract("Hi.\n[Relationship: friend]")
		got := ex.Fields.Apply(prior)
		assert.Equal(t, model.Record{Favour: 5, Attitude: "neutral", Relationship: "friend"}, got)
		assert.Equal(t, []string{FieldRelationship}, ex.Fields.Names())
	})

	t.Run("malformed favour still stripped", func(t *testing.T) {
		ex := Extract("Hmm.\n[Favour: notanumber]")
		require.True(t, ex.Found())
		assert.Equal(t, "Hmm.", ex.Text)
		assert.True(t, ex.Fields.Empty())
		assert.True(t, ex.Fields.FavourMalformed)
		assert.Equal(t, prior, ex.Fields.Apply(prior))
	})

	t.Run("no block", func(t *testing.T) {
		text := "  Plain reply with [a link]  "
		ex := Extract(text)
		assert.False(t, ex.Found())
		assert.Equal(t, text, ex.Text)
		assert.True(t, ex.Fields.Empty())
	})

	t.Run("only first block applies but all are stripped", func(t *testing.T) {
		ex := Extract("A [Favour: 1] B\n[Favour: 99, Attitude: smug]")
		require.Len(t, ex.Blocks, 2)
		assert.Equal(t, "A B", ex.Text)
		assert.Equal(t, Fields{Favour: intp(1)}, ex.Fields)
	})

	t.Run("emoticon in a value does not leak", func(t *testing.T) {
		ex := Extract("Ha :) [Favour: 6, Attitude: amused :], Relationship: pal]")
		assert.Equal(t, "Ha :)", ex.Text)
		assert.Equal(t, Fields{Favour: intp(6), Attitude: "amused :]", Relationship: "pal"}, ex.Fields)
	})

	t.Run("nested marker parses its own bracket", func(t *testing.T) {
		ex := Extract("Sure.\n[OOC [Favour: -3, Attitude: curious, Relationship: acquaintance]]")
		assert.Equal(t, "Sure.", ex.Text)
		assert.Equal(t, Fields{Favour: intp(-3), Attitude: "curious", Relationship: "acquaintance"}, ex.Fields)
	})

	t.Run("many unclosed brackets", func(t *testing.T) {
		text := strings.Repeat("[", 50000) + " no marker"
		ex := Extract(text)
		assert.False(t, ex.Found())
		assert.Equal(t, text, ex.Text)
	})

	t.Run("unclosed block stripped to end", func(t *testing.T) {
		ex := Extract("Okay then.\n\n[Attitude: tired, Favour: -2")
		assert.Equal(t, "Okay then.", ex.Text)
		assert.Equal(t, Fields{Favour: intp(-2), Attitude: "tired"}, ex.Fields)
	})
}

func TestStripTrimsWhitespace(t *testing.T) {
	text := "  Hello  [Favour: 1]  \n"
	assert.Equal(t, "Hello", Strip(text, Locate(text)))
}
