package sqlite

import (
	"database/sql"

	"linkcal/internal/domain"
	"linkcal/internal/ports"
)

// indexTx implements ports.IndexTx
type indexTx struct {
	tx *sql.Tx
}

// Ensure indexTx implements IndexTx
var _ ports.IndexTx = (*indexTx)(nil)

// UpsertNode inserts or updates a node
func (t *indexTx) UpsertNode(node *domain.IndexNode) error {
	_, err := t.tx.Exec(`
		INSERT OR REPLACE INTO nodes (path, name, kind, mtime)
		VALUES (?, ?, ?, ?)
	`, node.Path, node.Name, node.Kind.String(), node.Mtime)
	return err
}

// DeleteNode removes a node by path
func (t *indexTx) DeleteNode(path string) error {
	_, err := t.tx.Exec(`DELETE FROM nodes WHERE path = ?`, path)
	return err
}

// DeleteEdgesFromFile removes all edges from a source file
func (t *indexTx) DeleteEdgesFromFile(sourcePath string) error {
	_, err := t.tx.Exec(`DELETE FROM edges WHERE source_path = ?`, sourcePath)
	return err
}

// InsertEdge adds a new edge
func (t *indexTx) InsertEdge(edge *domain.Edge) error {
	_, err := t.tx.Exec(`
		INSERT OR REPLACE INTO edges (source_path, target, occurrences)
		VALUES (?, ?, ?)
	`, edge.SourcePath, edge.Target, edge.Occurrences)
	return err
}

// Commit commits the transaction
func (t *indexTx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction
func (t *indexTx) Rollback() error {
	return t.tx.Rollback()
}
