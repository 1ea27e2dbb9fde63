//go:build darwin

package loginitem

import (
	"os"
	"path/filepath"
)

// Default returns a LaunchAgent in ~/Library/LaunchAgents running program
// (the current executable when empty).
func Default(label, program string) Manager {
	if program == "" {
		if exe, err := os.Executable(); err == nil {
			program = exe
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return Unsupported{}
	}
	return &LaunchAgent{
		Label:   label,
		Program: []string{program},
		Dir:     filepath.Join(home, "Library", "LaunchAgents"),
	}
}
