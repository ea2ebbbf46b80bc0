package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"linkcal/internal/application"
	"linkcal/internal/domain"
)

// ErrPathEscape is returned for paths that resolve outside the vault
var ErrPathEscape = errors.New("path escapes the vault")

// Repository implements ports.DocumentStore on a vault directory
type Repository struct {
	vaultPath string
}

// NewRepository creates a new filesystem repository
func NewRepository(vaultPath string) *Repository {
	return &Repository{vaultPath: ExpandHome(vaultPath)}
}

// ExpandHome expands a leading ~ to the home directory
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// VaultPath returns the vault root
func (r *Repository) VaultPath() string {
	return r.vaultPath
}

// ReadDocument returns the text of a vault document
func (r *Repository) ReadDocument(_ context.Context, relPath string) (string, error) {
	abs, err := r.AbsPath(relPath)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return "", &application.NotFoundError{What: "document", ID: relPath}
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", relPath, err)
	}
	return string(data), nil
}

// WriteDocument replaces the full content of a document. The write goes to a
// temporary file first so readers never observe a partial document.
func (r *Repository) WriteDocument(_ context.Context, relPath, text string) error {
	abs, err := r.AbsPath(relPath)
	if err != nil {
		return err
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(abs); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(abs), "."+filepath.Base(abs)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", relPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", relPath, err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", relPath, err)
	}
	return os.Rename(tmpName, abs)
}

// LookupDocument returns nil when the document does not exist
func (r *Repository) LookupDocument(_ context.Context, relPath string) (*domain.Document, error) {
	abs, err := r.AbsPath(relPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, nil
	}
	return r.document(relPath, info), nil
}

// ListDocuments returns every markdown and canvas document, sorted by path.
// Hidden directories (.obsidian, .git, ...) are skipped.
func (r *Repository) ListDocuments() ([]domain.Document, error) {
	var docs []domain.Document
	err := filepath.WalkDir(r.vaultPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != r.vaultPath {
				return filepath.SkipDir
			}
			return nil
		}
		if domain.DocumentKindOf(d.Name()) == domain.DocumentUnknown {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(r.vaultPath, path)
		if err != nil {
			return nil
		}
		docs = append(docs, *r.document(filepath.ToSlash(rel), info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read vault: %w", err)
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Path < docs[j].Path
	})
	return docs, nil
}

// AbsPath resolves a vault-relative path and rejects paths outside the vault
func (r *Repository) AbsPath(relPath string) (string, error) {
	if strings.TrimSpace(relPath) == "" {
		return "", &application.ValidationError{Field: "path", Message: "path is required"}
	}
	abs, err := filepath.Abs(filepath.Join(r.vaultPath, filepath.FromSlash(relPath)))
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	root, err := filepath.Abs(r.vaultPath)
	if err != nil {
		return "", fmt.Errorf("resolve vault path: %w", err)
	}
	if !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, relPath)
	}
	return abs, nil
}

// RelPath converts a path inside the vault to a vault-relative one
func (r *Repository) RelPath(path string) (string, error) {
	root, err := filepath.Abs(r.vaultPath)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, path)
	}
	return filepath.ToSlash(rel), nil
}

func (r *Repository) document(relPath string, info fs.FileInfo) *domain.Document {
	relPath = filepath.ToSlash(relPath)
	return &domain.Document{
		Path:    relPath,
		Name:    domain.DocumentName(relPath),
		Kind:    domain.DocumentKindOf(relPath),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}
