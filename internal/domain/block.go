package domain

import (
	"regexp"
	"strings"
)

// Fence opens and closes a declarative block
const Fence = "```"

// IDKey is the required property correlating a block with its rendered instance
const IDKey = "id"

var propertyKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// BlockLine is one line of a block body. Key is empty for lines that are not properties.
type BlockLine struct {
	Raw   string
	Key   string
	Value string
}

// Block is a parsed declarative configuration block
type Block struct {
	Kind  string
	Lines []BlockLine
}

// Property is an ordered key with one or more values
type Property struct {
	Key    string
	Values []string
}

// ParseBlockBody parses the text between the opening and closing fences
func ParseBlockBody(kind, body string) Block {
	if body == "" {
		return Block{Kind: kind}
	}
	return parseBlockLines(kind, strings.Split(body, "\n"))
}

func parseBlockLines(kind string, raws []string) Block {
	b := Block{Kind: kind}
	for _, raw := range raws {
		line := BlockLine{Raw: raw}
		if key, value, ok := ParsePropertyLine(raw); ok {
			line.Key, line.Value = key, value
		}
		b.Lines = append(b.Lines, line)
	}
	return b
}

// ParsePropertyLine splits a "key: value" line
func ParsePropertyLine(line string) (string, string, bool) {
	line = strings.TrimRight(line, "\r")
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", "", false
	}
	key := strings.TrimSpace(line[:idx])
	if !propertyKeyPattern.MatchString(key) {
		return "", "", false
	}
	return key, strings.TrimSpace(line[idx+1:]), true
}

// ID returns the block's id, empty when missing
func (b Block) ID() string {
	v, _ := b.Value(IDKey)
	return v
}

// Value returns the first value of a key
func (b Block) Value(key string) (string, bool) {
	for _, l := range b.Lines {
		if l.Key == key {
			return l.Value, true
		}
	}
	return "", false
}

// Values returns every value of a key in document order
func (b Block) Values(key string) []string {
	var out []string
	for _, l := range b.Lines {
		if l.Key == key {
			out = append(out, l.Value)
		}
	}
	return out
}

// Properties returns the distinct keys with their accumulated values, in first-seen order
func (b Block) Properties() []Property {
	var props []Property
	index := make(map[string]int)
	for _, l := range b.Lines {
		if l.Key == "" {
			continue
		}
		i, ok := index[l.Key]
		if !ok {
			i = len(props)
			index[l.Key] = i
			props = append(props, Property{Key: l.Key})
		}
		props[i].Values = append(props[i].Values, l.Value)
	}
	return props
}

// Body renders the lines between the fences
func (b Block) Body() string {
	raws := make([]string, len(b.Lines))
	for i, l := range b.Lines {
		raws[i] = l.Raw
	}
	return strings.Join(raws, "\n")
}

// String renders the complete fenced block
func (b Block) String() string {
	var sb strings.Builder
	sb.WriteString(Fence + b.Kind + "\n")
	if len(b.Lines) > 0 {
		sb.WriteString(b.Body())
		sb.WriteString("\n")
	}
	sb.WriteString(Fence)
	return sb.String()
}

// Set replaces every line for key with freshly formatted lines at the first
// existing position, or appends them when the key is absent
func (b *Block) Set(key string, values ...string) {
	b.Lines = replaceProperty(b.Lines, key, values, "")
}

// FormatProperty renders one "key: value" line per value
func FormatProperty(key string, values []string) []string {
	lines := make([]string, 0, len(values))
	for _, v := range values {
		lines = append(lines, key+": "+v)
	}
	return lines
}

// FormatBlock renders a block from an ordered property set
func FormatBlock(kind string, props []Property) string {
	var lines []string
	for _, p := range props {
		lines = append(lines, FormatProperty(p.Key, p.Values)...)
	}
	b := ParseBlockBody(kind, strings.Join(lines, "\n"))
	return b.String()
}

func replaceProperty(lines []BlockLine, key string, values []string, eol string) []BlockLine {
	insertAt := -1
	kept := make([]BlockLine, 0, len(lines)+len(values))
	for _, l := range lines {
		if l.Key == key {
			if insertAt < 0 {
				insertAt = len(kept)
			}
			continue
		}
		kept = append(kept, l)
	}
	if insertAt < 0 {
		insertAt = len(kept)
	}

	fresh := make([]BlockLine, 0, len(values))
	for _, raw := range FormatProperty(key, values) {
		k, v, _ := ParsePropertyLine(raw)
		fresh = append(fresh, BlockLine{Raw: raw + eol, Key: k, Value: v})
	}

	out := make([]BlockLine, 0, len(kept)+len(fresh))
	out = append(out, kept[:insertAt]...)
	out = append(out, fresh...)
	out = append(out, kept[insertAt:]...)
	return out
}

// BlockRef locates a fenced block inside a text by line index
type BlockRef struct {
	Kind  string
	ID    string
	Start int // Line of the opening fence
	End   int // Line of the closing fence
	Block Block
}

// FindBlocks lists every terminated fenced block in the text. Unterminated
// fences are ignored.
func FindBlocks(text string) []BlockRef {
	lines := strings.Split(text, "\n")
	var refs []BlockRef
	for i := 0; i < len(lines); i++ {
		kind, ok := openingFence(lines[i])
		if !ok {
			continue
		}
		end := -1
		for j := i + 1; j < len(lines); j++ {
			if isClosingFence(lines[j]) {
				end = j
				break
			}
		}
		if end < 0 {
			break
		}
		block := parseBlockLines(kind, lines[i+1:end])
		refs = append(refs, BlockRef{
			Kind:  kind,
			ID:    block.ID(),
			Start: i,
			End:   end,
			Block: block,
		})
		i = end
	}
	return refs
}

func openingFence(line string) (string, bool) {
	t := strings.TrimSpace(line)
	if !strings.HasPrefix(t, Fence) {
		return "", false
	}
	kind := strings.TrimSpace(strings.TrimPrefix(t, Fence))
	if kind == "" || strings.Contains(kind, Fence) {
		return "", false
	}
	return kind, true
}

func isClosingFence(line string) bool {
	return strings.TrimSpace(line) == Fence
}
