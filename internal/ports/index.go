package ports

import "linkcal/internal/domain"

// LinkIndex caches the vault's documents and link graph.
// Queries are served from database indexes, never by re-reading the vault.
type LinkIndex interface {
	// Lifecycle
	Open(vaultPath string) error
	Close() error

	// Sync operations
	NeedsFullRebuild() bool
	SyncIncremental() (*domain.SyncStats, error)
	SyncFull() (*domain.SyncStats, error)
	SyncFile(relPath string) error
	RemoveFile(relPath string) error

	// Node queries
	GetNode(path string) (*domain.IndexNode, error)

	// Edge queries (link graph)
	LinksTo(path string) ([]domain.Edge, error)
	LinksFrom(sourcePath string) ([]domain.Edge, error)

	// Batch updates
	BeginTx() (IndexTx, error)
}

// IndexTx represents a transaction for atomic cache updates
type IndexTx interface {
	// Node operations
	UpsertNode(node *domain.IndexNode) error
	DeleteNode(path string) error

	// Edge operations
	DeleteEdgesFromFile(sourcePath string) error
	InsertEdge(edge *domain.Edge) error

	// Transaction control
	Commit() error
	Rollback() error
}
