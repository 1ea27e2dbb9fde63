package loginitem

import (
	"fmt"
	"os"
	"path/filepath"

	"howett.net/plist"
)

// LaunchAgent manages a per-user launchd agent plist. The agent counts as
// enabled when its plist exists; launchd loads it at next login.
type LaunchAgent struct {
	Label   string
	Program []string
	Dir     string
}

type agentPlist struct {
	Label            string   `plist:"Label"`
	ProgramArguments []string `plist:"ProgramArguments"`
	RunAtLoad        bool     `plist:"RunAtLoad"`
	KeepAlive        bool     `plist:"KeepAlive"`
}

// PlistPath returns the agent file location.
func (a *LaunchAgent) PlistPath() string {
	return filepath.Join(a.Dir, a.Label+".plist")
}

func (a *LaunchAgent) IsEnabled() bool {
	_, err := os.Stat(a.PlistPath())
	return err == nil
}

func (a *LaunchAgent) Enable() error {
	if len(a.Program) == 0 {
		return fmt.Errorf("login item: no program configured")
	}
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return classifyFSError("create launch agents dir", err)
	}

	data, err := plist.MarshalIndent(agentPlist{
		Label:            a.Label,
		ProgramArguments: a.Program,
		RunAtLoad:        true,
		KeepAlive:        false,
	}, plist.XMLFormat, "\t")
	if err != nil {
		return fmt.Errorf("login item: encode plist: %w", err)
	}

	tmp, err := os.CreateTemp(a.Dir, "."+a.Label+"-*.plist")
	if err != nil {
		return classifyFSError("write plist", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return classifyFSError("write plist", err)
	}
	if err := tmp.Close(); err != nil {
		return classifyFSError("write plist", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return classifyFSError("write plist", err)
	}
	if err := os.Rename(tmp.Name(), a.PlistPath()); err != nil {
		return classifyFSError("write plist", err)
	}
	return nil
}

func (a *LaunchAgent) Disable() error {
	err := os.Remove(a.PlistPath())
	if err == nil || os.IsNotExist(err) {
		return nil
	}
	return classifyFSError("remove plist", err)
}

func classifyFSError(op string, err error) error {
	if os.IsPermission(err) {
		return fmt.Errorf("%w: %s: %v", ErrNotPermitted, op, err)
	}
	return fmt.Errorf("login item: %s: %w", op, err)
}
