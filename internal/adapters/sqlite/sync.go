package sqlite

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"linkcal/internal/domain"
	"linkcal/internal/ports"
)

// SyncFull performs a complete rebuild of the index
func (idx *Index) SyncFull() (*domain.SyncStats, error) {
	start := time.Now()
	stats := &domain.SyncStats{}

	// Clear existing data
	if _, err := idx.db.Exec(`DELETE FROM edges; DELETE FROM nodes;`); err != nil {
		return nil, err
	}

	tx, err := idx.BeginTx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	err = idx.walk(func(relPath string, info fs.FileInfo) {
		stats.FilesScanned++
		added, err := indexFile(tx, idx.vaultPath, relPath, info)
		if err != nil {
			return // Continue on error
		}
		stats.NodesAdded++
		stats.EdgesAdded += added
	})
	if err != nil {
		return stats, err
	}
	if err := tx.Commit(); err != nil {
		return stats, err
	}

	idx.markSynced()
	stats.Duration = time.Since(start)
	return stats, nil
}

// SyncIncremental updates only files that changed since last sync
func (idx *Index) SyncIncremental() (*domain.SyncStats, error) {
	start := time.Now()
	stats := &domain.SyncStats{}

	// Track existing paths to detect deletions
	existing := make(map[string]int64)
	rows, err := idx.db.Query(`SELECT path, mtime FROM nodes`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var path string
		var mtime int64
		if err := rows.Scan(&path, &mtime); err == nil {
			existing[path] = mtime
		}
	}
	rows.Close()

	tx, err := idx.BeginTx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	seen := make(map[string]bool)
	err = idx.walk(func(relPath string, info fs.FileInfo) {
		seen[relPath] = true
		stats.FilesScanned++

		mtime, known := existing[relPath]
		if known && info.ModTime().Unix() <= mtime {
			return
		}
		added, err := indexFile(tx, idx.vaultPath, relPath, info)
		if err != nil {
			return
		}
		if known {
			stats.NodesUpdated++
		} else {
			stats.NodesAdded++
		}
		stats.EdgesAdded += added
	})
	if err != nil {
		return stats, err
	}

	// Delete nodes that no longer exist
	for path := range existing {
		if !seen[path] {
			if err := removeFile(tx, path); err == nil {
				stats.NodesDeleted++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, err
	}

	idx.markSynced()
	stats.Duration = time.Since(start)
	return stats, nil
}

// SyncFile re-indexes a single document, or removes it when it no longer exists
func (idx *Index) SyncFile(relPath string) error {
	relPath = filepath.ToSlash(relPath)
	info, err := os.Stat(filepath.Join(idx.vaultPath, filepath.FromSlash(relPath)))
	if errors.Is(err, fs.ErrNotExist) {
		return idx.RemoveFile(relPath)
	}
	if err != nil {
		return err
	}
	if domain.DocumentKindOf(relPath) == domain.DocumentUnknown || info.IsDir() {
		return nil
	}

	tx, err := idx.BeginTx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := indexFile(tx, idx.vaultPath, relPath, info); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveFile drops a document and its outgoing links
func (idx *Index) RemoveFile(relPath string) error {
	tx, err := idx.BeginTx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := removeFile(tx, filepath.ToSlash(relPath)); err != nil {
		return err
	}
	return tx.Commit()
}

// walk visits every markdown and canvas document, skipping hidden directories
func (idx *Index) walk(visit func(relPath string, info fs.FileInfo)) error {
	return filepath.Walk(idx.vaultPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}

		// Skip hidden directories
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != idx.vaultPath {
				return filepath.SkipDir
			}
			return nil
		}
		if domain.DocumentKindOf(info.Name()) == domain.DocumentUnknown {
			return nil
		}

		relPath, err := filepath.Rel(idx.vaultPath, path)
		if err != nil {
			return nil
		}
		visit(filepath.ToSlash(relPath), info)
		return nil
	})
}

func (idx *Index) markSynced() {
	idx.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('last_sync_time', ?)`,
		time.Now().Unix())
}

// indexFile replaces the node and outgoing edges of one document
func indexFile(tx ports.IndexTx, vaultPath, relPath string, info fs.FileInfo) (int, error) {
	edges, err := parseLinksInFile(filepath.Join(vaultPath, filepath.FromSlash(relPath)), relPath)
	if err != nil {
		return 0, err
	}

	node := &domain.IndexNode{
		Path:  relPath,
		Name:  strings.ToLower(domain.DocumentName(relPath)),
		Kind:  domain.DocumentKindOf(relPath),
		Mtime: info.ModTime().Unix(),
	}
	if err := tx.UpsertNode(node); err != nil {
		return 0, err
	}
	if err := tx.DeleteEdgesFromFile(relPath); err != nil {
		return 0, err
	}
	for i := range edges {
		if err := tx.InsertEdge(&edges[i]); err != nil {
			return 0, err
		}
	}
	return len(edges), nil
}

func removeFile(tx ports.IndexTx, relPath string) error {
	if err := tx.DeleteEdgesFromFile(relPath); err != nil {
		return err
	}
	return tx.DeleteNode(relPath)
}

// parseLinksInFile extracts link occurrences from a markdown document or from
// the text nodes of a canvas
func parseLinksInFile(fullPath, relPath string) ([]domain.Edge, error) {
	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, err
	}

	text := string(content)
	if domain.DocumentKindOf(relPath) == domain.DocumentCanvas {
		doc, err := domain.ParseGraphDocument(content)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", relPath, err)
		}
		var texts []string
		for i := range doc.Nodes {
			if t, ok := doc.NodeText(i); ok {
				texts = append(texts, t)
			}
		}
		text = strings.Join(texts, "\n")
	}

	self := make(map[string]bool)
	for _, k := range domain.TargetKeys(relPath) {
		self[k] = true
	}
	var edges []domain.Edge
	for target, n := range domain.ExtractLinks(text) {
		if self[target] {
			continue
		}
		edges = append(edges, domain.Edge{
			SourcePath:  relPath,
			Target:      target,
			Occurrences: n,
		})
	}
	return edges, nil
}
