package domain

import (
	"strings"
)

// LocateBlocks returns every block of the kind whose id matches, in document order.
// Position is never used to disambiguate; only the id is.
func LocateBlocks(text, kind, id string) []BlockRef {
	var matches []BlockRef
	for _, ref := range FindBlocks(text) {
		if ref.Kind == kind && ref.ID == id && id != "" {
			matches = append(matches, ref)
		}
	}
	return matches
}

// PatchProperty rewrites key inside every matching block. All existing lines for the
// key are removed and the new values are inserted once at the first removed line, or
// just before the closing fence when the key was absent. Lines outside the blocks are
// left untouched. Returns the new text and the number of blocks patched.
func PatchProperty(text, kind, id, key string, values []string) (string, int) {
	refs := LocateBlocks(text, kind, id)
	if len(refs) == 0 {
		return text, 0
	}

	lines := strings.Split(text, "\n")
	// Walk backwards so earlier line indexes stay valid
	for i := len(refs) - 1; i >= 0; i-- {
		ref := refs[i]
		eol := ""
		if strings.HasSuffix(lines[ref.Start], "\r") {
			eol = "\r"
		}

		patched := replaceProperty(ref.Block.Lines, key, values, eol)
		inner := make([]string, len(patched))
		for j, l := range patched {
			inner[j] = l.Raw
		}

		out := make([]string, 0, len(lines)-len(ref.Block.Lines)+len(inner))
		out = append(out, lines[:ref.Start+1]...)
		out = append(out, inner...)
		out = append(out, lines[ref.End:]...)
		lines = out
	}
	return strings.Join(lines, "\n"), len(refs)
}

// InsertBlock appends a rendered block to the end of a text, separated by a blank line
func InsertBlock(text string, cfg Config) string {
	block := FormatBlock(string(cfg.Kind()), cfg.Properties())
	switch {
	case text == "":
		return block + "\n"
	case strings.HasSuffix(text, "\n\n"):
		return text + block + "\n"
	case strings.HasSuffix(text, "\n"):
		return text + "\n" + block + "\n"
	default:
		return text + "\n\n" + block + "\n"
	}
}
