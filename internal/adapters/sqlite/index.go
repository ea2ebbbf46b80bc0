package sqlite

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"linkcal/internal/adapters/filesystem"
	"linkcal/internal/domain"
	"linkcal/internal/ports"

	_ "modernc.org/sqlite"
)

const schemaVersion = "1"

// Index implements ports.LinkIndex using SQLite
type Index struct {
	db        *sql.DB
	vaultPath string
	dbPath    string
}

// Ensure Index implements LinkIndex
var _ ports.LinkIndex = (*Index)(nil)

// NewIndex creates a new SQLite index
func NewIndex() *Index {
	return &Index{}
}

// Open initializes the index for the given vault path
func (idx *Index) Open(vaultPath string) error {
	vaultPath = filesystem.ExpandHome(vaultPath)

	idx.vaultPath = vaultPath
	idx.dbPath = databasePath(vaultPath)

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(idx.dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", idx.dbPath+"?_journal_mode=WAL")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	idx.db = db

	// Performance pragmas + schema in single batch (reduces round-trips)
	_, err = db.Exec(`
		PRAGMA synchronous = NORMAL;
		PRAGMA cache_size = -64000;
		PRAGMA temp_store = MEMORY;
		PRAGMA busy_timeout = 5000;

		CREATE TABLE IF NOT EXISTS nodes (
			path TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			mtime INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS edges (
			source_path TEXT NOT NULL,
			target TEXT NOT NULL,
			occurrences INTEGER NOT NULL,
			PRIMARY KEY (source_path, target)
		);
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_nodes_name ON nodes(name);
		CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target);
		CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_path);
	`)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to setup database: %w", err)
	}

	if err := idx.updateMeta(); err != nil {
		db.Close()
		return fmt.Errorf("failed to update metadata: %w", err)
	}

	return nil
}

// Close closes the database connection
func (idx *Index) Close() error {
	if idx.db != nil {
		return idx.db.Close()
	}
	return nil
}

// VaultPath returns the indexed vault root
func (idx *Index) VaultPath() string {
	return idx.vaultPath
}

// NeedsFullRebuild returns true if the index should be fully rebuilt
func (idx *Index) NeedsFullRebuild() bool {
	var version, vaultHash, lastSync string

	idx.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&version)
	idx.db.QueryRow("SELECT value FROM meta WHERE key = 'vault_path_hash'").Scan(&vaultHash)
	idx.db.QueryRow("SELECT value FROM meta WHERE key = 'last_sync_time'").Scan(&lastSync)

	return version != schemaVersion || vaultHash != hashVaultPath(idx.vaultPath) || lastSync == ""
}

// databasePath returns the path for the SQLite database
func databasePath(vaultPath string) string {
	// XDG data directory
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}

	return filepath.Join(dataHome, "linkcal", hashVaultPath(vaultPath)+".db")
}

// hashVaultPath returns a short hash of the vault path
func hashVaultPath(vaultPath string) string {
	h := sha256.Sum256([]byte(vaultPath))
	return hex.EncodeToString(h[:8]) // First 8 bytes = 16 hex chars
}

// updateMeta records the schema version and vault path hash
func (idx *Index) updateMeta() error {
	_, err := idx.db.Exec(`
		INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?);
		INSERT OR REPLACE INTO meta (key, value) VALUES ('vault_path_hash', ?);
	`, schemaVersion, hashVaultPath(idx.vaultPath))
	return err
}

// GetNode retrieves a node by path
func (idx *Index) GetNode(path string) (*domain.IndexNode, error) {
	var node domain.IndexNode
	var kind string

	err := idx.db.QueryRow(`
		SELECT path, name, kind, mtime
		FROM nodes WHERE path = ?
	`, path).Scan(&node.Path, &node.Name, &kind, &node.Mtime)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	node.Kind = domain.ParseDocumentKind(kind)
	return &node, nil
}

// LinksTo returns every edge whose target resolves to the document, either by
// its full vault path or by its bare name
func (idx *Index) LinksTo(path string) ([]domain.Edge, error) {
	keys := domain.TargetKeys(path)
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	rows, err := idx.db.Query(`
		SELECT source_path, target, occurrences
		FROM edges WHERE target IN (`+placeholders+`)
		ORDER BY source_path
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEdges(rows)
}

// LinksFrom returns all edges from a source file
func (idx *Index) LinksFrom(sourcePath string) ([]domain.Edge, error) {
	rows, err := idx.db.Query(`
		SELECT source_path, target, occurrences
		FROM edges WHERE source_path = ?
		ORDER BY target
	`, sourcePath)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEdges(rows)
}

func scanEdges(rows *sql.Rows) ([]domain.Edge, error) {
	var edges []domain.Edge
	for rows.Next() {
		var e domain.Edge
		if err := rows.Scan(&e.SourcePath, &e.Target, &e.Occurrences); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// BeginTx starts a new transaction
func (idx *Index) BeginTx() (ports.IndexTx, error) {
	tx, err := idx.db.Begin()
	if err != nil {
		return nil, err
	}
	return &indexTx{tx: tx}, nil
}
