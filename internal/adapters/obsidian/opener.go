package obsidian

import (
	"fmt"
	"net/url"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Opener implements ports.ObsidianOpener
type Opener struct {
	vaultPath string
	vaultName string
	run       func(name string, args ...string) error
}

// NewOpener creates a new Obsidian opener for the given vault path
func NewOpener(vaultPath string) *Opener {
	return &Opener{
		vaultPath: vaultPath,
		vaultName: filepath.Base(vaultPath),
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// OpenFile opens a document in Obsidian using the obsidian:// URI scheme
func (o *Opener) OpenFile(path string) error {
	uri, err := o.BuildURI(path)
	if err != nil {
		return err
	}
	name, args, err := launcher(runtime.GOOS, uri)
	if err != nil {
		return err
	}
	return o.run(name, args...)
}

// BuildURI constructs the obsidian:// URI for a vault-relative or absolute path
func (o *Opener) BuildURI(path string) (string, error) {
	rel := path
	if filepath.IsAbs(path) {
		r, err := filepath.Rel(o.vaultPath, path)
		if err != nil {
			return "", fmt.Errorf("failed to get relative path: %w", err)
		}
		rel = r
	}
	rel = filepath.ToSlash(filepath.Clean(rel))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("document is outside the vault: %s", path)
	}

	// Obsidian resolves notes without their .md extension
	rel = strings.TrimSuffix(rel, ".md")

	return fmt.Sprintf("obsidian://open?vault=%s&file=%s", escape(o.vaultName), escape(rel)), nil
}

// escape percent-encodes like QueryEscape but keeps spaces as %20
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func launcher(goos, uri string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", []string{uri}, nil
	case "linux", "freebsd", "openbsd":
		return "xdg-open", []string{uri}, nil
	case "windows":
		return "cmd", []string{"/c", "start", "", uri}, nil
	default:
		return "", nil, fmt.Errorf("unsupported operating system: %s", goos)
	}
}
