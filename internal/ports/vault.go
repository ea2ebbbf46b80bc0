package ports

import (
	"context"

	"linkcal/internal/domain"
)

// LinkGraph exposes the vault's incoming-link snapshot
type LinkGraph interface {
	// LinksTo returns source path -> occurrence count for every document linking to path
	LinksTo(ctx context.Context, path string) (map[string]int, error)

	// OnLinksResolved registers fn to run whenever the vault-wide link index is recomputed.
	// The returned func removes the subscription.
	OnLinksResolved(fn func()) (unsubscribe func())
}

// DocumentStore reads and writes carrier documents
type DocumentStore interface {
	ReadDocument(ctx context.Context, path string) (string, error)
	WriteDocument(ctx context.Context, path, text string) error

	// LookupDocument returns nil and no error when the document does not exist
	LookupDocument(ctx context.Context, path string) (*domain.Document, error)
}

// Workspace tracks what the user currently has open
type Workspace interface {
	// ActiveGraphDocument returns the focused graph document, if any
	ActiveGraphDocument() (string, bool)
}

// Host bundles every capability the core consumes from the vault
type Host interface {
	LinkGraph
	DocumentStore
	Workspace
}

// Notifier shows brief, non-blocking notices to the user
type Notifier interface {
	Notify(msg string)
}

// LinkSource lists what a document links to
type LinkSource interface {
	LinksFrom(ctx context.Context, path string) ([]domain.Edge, error)
}
