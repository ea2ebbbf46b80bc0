package ports

import "os/exec"

// EditorOpener opens carrier documents in an external editor
type EditorOpener interface {
	// OpenFile opens the document at a 1-based line; line 0 opens at the top
	OpenFile(path string, line int) error

	// Command returns the editor process without starting it, for tea.ExecProcess
	Command(path string, line int) (*exec.Cmd, error)
}
