package editor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Editors that understand a leading +LINE argument
var lineAware = map[string]bool{
	"vi": true, "vim": true, "nvim": true, "nano": true, "emacs": true, "kak": true,
}

// Opener implements ports.EditorOpener
type Opener struct {
	lookupEnv func(string) string
	lookPath  func(string) (string, error)
}

// NewOpener creates a new editor opener
func NewOpener() *Opener {
	return &Opener{lookupEnv: os.Getenv, lookPath: exec.LookPath}
}

// OpenFile opens a document in the user's preferred editor and waits for it
func (o *Opener) OpenFile(path string, line int) error {
	cmd, err := o.Command(path, line)
	if err != nil {
		return err
	}
	return cmd.Run()
}

// Command returns an exec.Cmd for opening a document, positioned at line when
// the editor supports it
func (o *Opener) Command(path string, line int) (*exec.Cmd, error) {
	argv := o.editorArgs()
	if len(argv) == 0 {
		return nil, fmt.Errorf("no editor found: set $VISUAL or $EDITOR")
	}

	args := append([]string{}, argv[1:]...)
	args = append(args, positionArgs(argv[0], path, line)...)

	cmd := exec.Command(argv[0], args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd, nil
}

// editorArgs returns the editor and its fixed arguments, e.g. "code --wait"
func (o *Opener) editorArgs() []string {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if fields := strings.Fields(o.lookupEnv(env)); len(fields) > 0 {
			return fields
		}
	}
	for _, name := range []string{"nvim", "vim", "vi", "nano"} {
		if p, err := o.lookPath(name); err == nil {
			return []string{p}
		}
	}
	return nil
}

func positionArgs(editor, path string, line int) []string {
	if line <= 0 {
		return []string{path}
	}
	name := strings.TrimSuffix(filepath.Base(editor), ".exe")
	switch {
	case lineAware[name]:
		return []string{"+" + strconv.Itoa(line), path}
	case name == "code" || name == "codium":
		return []string{"--goto", path + ":" + strconv.Itoa(line)}
	case name == "hx" || name == "subl":
		return []string{path + ":" + strconv.Itoa(line)}
	default:
		return []string{path}
	}
}
