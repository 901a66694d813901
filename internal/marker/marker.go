// Package marker finds state-update markers in generated text and parses
// the affinity fields they carry.
//
// Parsing runs in two stages. Locate is a cheap, permissive pass that finds
// every bracketed block mentioning at least one field label, so malformed
// blocks are still stripped from what the user sees. ParseFields then pulls
// each field out of the first block independently of the others.
package marker

import (
	"regexp"
	"strings"
)

// Block is one candidate marker. Text[Start:End] is the whole span,
// brackets included.
type Block struct {
	Start   int
	End     int
	Content string
	// Closed is false when the block ran to the end of the text without a
	// closing bracket.
	Closed bool
}

// labelPattern matches a field label followed by a separator. Both ASCII and
// full-width colons are accepted.
var labelPattern = regexp.MustCompile(`(?i)\b(favou?r|attitude|relationship)\s*[:：=]`)

// leadingLabel matches content that starts with a field label.
var leadingLabel = regexp.MustCompile(`(?i)^\s*(favou?r|attitude|relationship)\s*[:：=]`)

// leadsWithLabel reports whether s starts with a label. Only a short prefix
// is inspected so text full of unclosed brackets stays linear.
func leadsWithLabel(s string) bool {
	const maxLead = 256
	if len(s) > maxLead {
		s = s[:maxLead]
	}
	return leadingLabel.MatchString(s)
}

// HasLabel reports whether s mentions at least one field label.
func HasLabel(s string) bool {
	return labelPattern.MatchString(s)
}

// Locate returns every candidate block in text, in order. Brackets nest, so a
// relationship such as "friend [nickname: Bo]" stays inside its block. An
// opening bracket that never closes forms a block to the end of the text
// only when the label comes right after it.
//
// A "]" inside a value, such as the emoticon in "Attitude: amused :]", closes
// the block early. When the rest of the line up to the next "]" still
// carries a label, the block is extended over it.
func Locate(text string) []Block {
	closes := pairBrackets(text)
	var blocks []Block
	for i := 0; i < len(text); {
		open := strings.IndexByte(text[i:], '[')
		if open < 0 {
			break
		}
		open += i

		if end, ok := closes[open]; ok {
			if !HasLabel(text[open+1 : end]) {
				i = end + 1
				continue
			}
			blk := Block{Start: open, Closed: true}
			for {
				next, closed, ok := continuation(text, end+1)
				if !ok {
					break
				}
				end, blk.Closed = next, closed
				if !closed {
					break
				}
			}
			blk.Content = text[open+1 : end]
			blk.End = end
			if blk.Closed {
				blk.End = end + 1
			}
			blocks = append(blocks, blk)
			i = blk.End
			continue
		}

		if leadsWithLabel(text[open+1:]) {
			blocks = append(blocks, Block{Start: open, End: len(text), Content: text[open+1:]})
			break
		}
		i = open + 1
	}
	return blocks
}

// continuation looks at the text after a block closed at from-1. If the
// same line carries a label before the next "[", it returns the index of
// the next "]" (closed) or of the end of the line.
func continuation(text string, from int) (end int, closed, ok bool) {
	rest := text[from:]
	stop := strings.IndexAny(rest, "[]\n")
	switch {
	case stop < 0:
		stop = len(rest)
	case rest[stop] == '[':
		return 0, false, false
	}
	if !HasLabel(rest[:stop]) {
		return 0, false, false
	}
	return from + stop, stop < len(rest) && rest[stop] == ']', true
}

// pairBrackets matches every "[" with the "]" that closes it in a single
// pass. Unclosed brackets have no entry.
func pairBrackets(text string) map[int]int {
	pairs := map[int]int{}
	var stack []int
	for j := 0; j < len(text); j++ {
		switch text[j] {
		case '[':
			stack = append(stack, j)
		case ']':
			if n := len(stack); n > 0 {
				pairs[stack[n-1]] = j
				stack = stack[:n-1]
			}
		}
	}
	return pairs
}

// fieldSpan narrows content to the innermost bracket holding the first
// label, so "OOC [Favour: 1]" parses as "Favour: 1".
func fieldSpan(content string) string {
	loc := labelPattern.FindStringIndex(content)
	if loc == nil {
		return content
	}
	closes := pairBrackets(content)
	for open := loc[0] - 1; open >= 0; open-- {
		if content[open] != '[' {
			continue
		}
		end, ok := closes[open]
		if !ok {
			return content[open+1:]
		}
		if end > loc[0] {
			return content[open+1 : end]
		}
	}
	return content
}

// Strip removes blocks from text and trims the surrounding whitespace.
// blocks must be ordered and non-overlapping, as returned by Locate.
func Strip(text string, blocks []Block) string {
	if len(blocks) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	prev := 0
	for _, blk := range blocks {
		b.WriteString(strings.TrimRight(text[prev:blk.Start], " \t"))
		prev = blk.End
	}
	b.WriteString(text[prev:])
	return strings.TrimSpace(b.String())
}

// Extraction is the outcome of scanning one generated reply.
type Extraction struct {
	// Text is the reply with every candidate block removed.
	Text string
	// Blocks holds all candidates. Only the first one is parsed.
	Blocks []Block
	Fields Fields
}

// Found reports whether any candidate block was located.
func (e Extraction) Found() bool {
	return len(e.Blocks) > 0
}

// Extract locates candidate blocks, strips all of them and parses the first.
// A label nested in an outer bracket is parsed from its own bracket.
func Extract(text string) Extraction {
	blocks := Locate(text)
	if len(blocks) == 0 {
		return Extraction{Text: text}
	}
	return Extraction{
		Text:   Strip(text, blocks),
		Blocks: blocks,
		Fields: ParseFields(fieldSpan(blocks[0].Content)),
	}
}
