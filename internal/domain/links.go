package domain

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Wiki links: [[Target]], [[Target|alias]], [[Target#heading]], ![[embed]]
var wikiLinkPattern = regexp.MustCompile(`\[\[([^\]|#^]*)(?:[#^][^\]|]*)?(?:\|[^\]]*)?\]\]`)

// Markdown links to vault files: [label](Folder/Note.md)
var markdownLinkPattern = regexp.MustCompile(`\[[^\]]*\]\(([^)\s]+)\)`)

// NormalizeTarget turns a raw link target into its index key
func NormalizeTarget(target string) string {
	t := strings.TrimSpace(toSlash(target))
	t = strings.TrimPrefix(t, "./")
	t = strings.TrimPrefix(t, "/")
	if i := strings.IndexAny(t, "#^"); i >= 0 {
		t = t[:i]
	}
	ext := strings.ToLower(path.Ext(t))
	if ext == ".md" || ext == ".canvas" {
		t = t[:len(t)-len(ext)]
	}
	return strings.ToLower(strings.TrimSpace(t))
}

// TargetKeys returns the keys under which a document can be linked:
// its full vault path and its bare name, both without extension
func TargetKeys(docPath string) []string {
	full := NormalizeTarget(docPath)
	base := path.Base(full)
	if base == full {
		return []string{full}
	}
	return []string{full, base}
}

// ExtractLinks counts link occurrences per normalized target in a document text
func ExtractLinks(text string) map[string]int {
	counts := make(map[string]int)
	for _, m := range wikiLinkPattern.FindAllStringSubmatch(text, -1) {
		if key := NormalizeTarget(m[1]); key != "" {
			counts[key]++
		}
	}
	for _, m := range markdownLinkPattern.FindAllStringSubmatch(text, -1) {
		raw := m[1]
		if strings.Contains(raw, "://") || strings.HasPrefix(raw, "mailto:") {
			continue
		}
		if decoded, err := url.PathUnescape(raw); err == nil {
			raw = decoded
		}
		if key := NormalizeTarget(raw); key != "" {
			counts[key]++
		}
	}
	return counts
}

// ReferencingLines returns the lines of text that link to the document
func ReferencingLines(text, docPath string) []string {
	keys := TargetKeys(docPath)
	var out []string
	for _, line := range strings.Split(text, "\n") {
		links := ExtractLinks(line)
		for _, k := range keys {
			if links[k] > 0 {
				out = append(out, strings.TrimSpace(line))
				break
			}
		}
	}
	return out
}

// DocumentKindOf classifies a vault path by extension
func DocumentKindOf(docPath string) DocumentKind {
	switch strings.ToLower(path.Ext(toSlash(docPath))) {
	case ".md":
		return DocumentMarkdown
	case ".canvas":
		return DocumentCanvas
	default:
		return DocumentUnknown
	}
}

// DocumentName returns the base name of a path without extension
func DocumentName(docPath string) string {
	base := path.Base(toSlash(docPath))
	return strings.TrimSuffix(base, path.Ext(base))
}
