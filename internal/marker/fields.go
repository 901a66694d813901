package marker

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/rcliao/favourpro/internal/model"
)

// Field names as reported by Fields.Names.
const (
	FieldFavour       = "favour"
	FieldAttitude     = "attitude"
	FieldRelationship = "relationship"
)

// Fields holds whatever a marker block carried. Nil or empty means the
// field was not provided.
type Fields struct {
	Favour       *int   `json:"favour,omitempty" yaml:"favour,omitempty"`
	Attitude     string `json:"attitude,omitempty" yaml:"attitude,omitempty"`
	Relationship string `json:"relationship,omitempty" yaml:"relationship,omitempty"`
	// FavourMalformed is set when the favour label was present but no
	// integer followed it.
	FavourMalformed bool `json:"favour_malformed,omitempty" yaml:"favour_malformed,omitempty"`
}

// Empty reports whether no field was parsed.
func (f Fields) Empty() bool {
	return f.Favour == nil && f.Attitude == "" && f.Relationship == ""
}

// Names lists the parsed fields in canonical order.
func (f Fields) Names() []string {
	var names []string
	if f.Favour != nil {
		names = append(names, FieldFavour)
	}
	if f.Attitude != "" {
		names = append(names, FieldAttitude)
	}
	if f.Relationship != "" {
		names = append(names, FieldRelationship)
	}
	return names
}

// Apply overwrites the parsed fields of rec and leaves the rest untouched.
func (f Fields) Apply(rec model.Record) model.Record {
	if f.Favour != nil {
		rec.Favour = *f.Favour
	}
	if f.Attitude != "" {
		rec.Attitude = f.Attitude
	}
	if f.Relationship != "" {
		rec.Relationship = f.Relationship
	}
	return rec
}

// favourValue matches a signed integer at the start of a value.
var favourValue = regexp.MustCompile(`^([+\-−－]?)\s*(\d+)`)

// fractional rejects integers that run into a fraction or a word, like
// "12.5" or "7x". A trailing full stop is fine.
var fractional = regexp.MustCompile(`^(?:\.\d|\w)`)

const separators = ",，;；|、"

func trimValue(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(separators, r)
	})
}

type labelSpan struct {
	name       string
	valueStart int
	valueEnd   int
}

// spans finds every label in content. A value runs from its label to the
// next label or the end of the content, so fields may come in any order.
func spans(content string) []labelSpan {
	locs := labelPattern.FindAllStringSubmatchIndex(content, -1)
	out := make([]labelSpan, 0, len(locs))
	for i, loc := range locs {
		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		out = append(out, labelSpan{
			name:       canonical(content[loc[2]:loc[3]]),
			valueStart: loc[1],
			valueEnd:   end,
		})
	}
	return out
}

func canonical(label string) string {
	switch l := strings.ToLower(label); l {
	case "favor":
		return FieldFavour
	default:
		return l
	}
}

// ParseFields extracts each field from a block's content. A label that
// appears more than once contributes its first usable value.
func ParseFields(content string) Fields {
	var f Fields
	for _, sp := range spans(content) {
		value := trimValue(content[sp.valueStart:sp.valueEnd])
		switch sp.name {
		case FieldFavour:
			if f.Favour != nil {
				continue
			}
			if n, ok := parseFavour(value); ok {
				f.Favour = &n
				f.FavourMalformed = false
			} else {
				f.FavourMalformed = true
			}
		case FieldAttitude:
			if f.Attitude == "" {
				f.Attitude = value
			}
		case FieldRelationship:
			if f.Relationship == "" {
				f.Relationship = value
			}
		}
	}
	return f
}

func parseFavour(value string) (int, bool) {
	m := favourValue.FindStringSubmatch(value)
	if m == nil || fractional.MatchString(value[len(m[0]):]) {
		return 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	if m[1] != "" && m[1] != "+" {
		n = -n
	}
	return n, true
}
