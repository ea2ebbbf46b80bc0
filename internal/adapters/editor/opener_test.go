package editor

import (
	"errors"
	"reflect"
	"testing"
)

func newTestOpener(env map[string]string, installed ...string) *Opener {
	return &Opener{
		lookupEnv: func(k string) string { return env[k] },
		lookPath: func(name string) (string, error) {
			for _, n := range installed {
				if n == name {
					return "/usr/bin/" + name, nil
				}
			}
			return "", errors.New("not found")
		},
	}
}

func TestCommand_Arguments(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		installed []string
		line      int
		wantArgs  []string
	}{
		{
			name:     "vim with line",
			env:      map[string]string{"EDITOR": "vim"},
			line:     12,
			wantArgs: []string{"vim", "+12", "Journal.md"},
		},
		{
			name:     "visual wins over editor",
			env:      map[string]string{"VISUAL": "nano", "EDITOR": "vim"},
			wantArgs: []string{"nano", "Journal.md"},
		},
		{
			name:     "editor with flags",
			env:      map[string]string{"EDITOR": "code --wait"},
			line:     3,
			wantArgs: []string{"code", "--wait", "--goto", "Journal.md:3"},
		},
		{
			name:     "unknown editor ignores line",
			env:      map[string]string{"EDITOR": "ed"},
			line:     3,
			wantArgs: []string{"ed", "Journal.md"},
		},
		{
			name:      "fallback to installed editor",
			installed: []string{"vi"},
			line:      7,
			wantArgs:  []string{"/usr/bin/vi", "+7", "Journal.md"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := newTestOpener(tt.env, tt.installed...).Command("Journal.md", tt.line)
			if err != nil {
				t.Fatalf("Command failed: %v", err)
			}
			if !reflect.DeepEqual(cmd.Args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", cmd.Args, tt.wantArgs)
			}
		})
	}
}

func TestCommand_NoEditor(t *testing.T) {
	if _, err := newTestOpener(nil).Command("Journal.md", 0); err == nil {
		t.Error("expected error when no editor is available")
	}
}
