package domain

import "time"

// DocumentKind distinguishes linear text documents from graph documents
type DocumentKind int

const (
	DocumentUnknown DocumentKind = iota
	DocumentMarkdown
	DocumentCanvas
)

func (k DocumentKind) String() string {
	switch k {
	case DocumentMarkdown:
		return "markdown"
	case DocumentCanvas:
		return "canvas"
	default:
		return "unknown"
	}
}

// ParseDocumentKind is the inverse of DocumentKind.String
func ParseDocumentKind(s string) DocumentKind {
	switch s {
	case "markdown":
		return DocumentMarkdown
	case "canvas":
		return DocumentCanvas
	default:
		return DocumentUnknown
	}
}

// Document is a handle to a vault document
type Document struct {
	Path    string // Relative to the vault root, forward slashes
	Name    string // Base name without extension
	Kind    DocumentKind
	Size    int64
	ModTime time.Time
}

// IndexNode represents an indexed vault document
type IndexNode struct {
	Path  string // Relative path from vault root (primary key)
	Name  string // Lowercased base name without extension, used for link resolution
	Kind  DocumentKind
	Mtime int64 // Unix timestamp for incremental sync
}

// Edge is a link from a source document to a link target, with its repeat count
type Edge struct {
	SourcePath  string // File containing the link
	Target      string // Normalized link target (lowercase, no extension)
	Occurrences int    // Times the target is referenced in the source
}

// SyncStats holds statistics from a sync operation
type SyncStats struct {
	NodesAdded   int
	NodesUpdated int
	NodesDeleted int
	EdgesAdded   int
	FilesScanned int
	Duration     time.Duration
}
