// Package loginitem registers the process to start at user login.
//
// Callers must treat every mutation as fallible and re-read IsEnabled
// afterwards: the OS may refuse or defer the change.
package loginitem

import (
	"errors"
	"log"
)

var (
	ErrNotPermitted        = errors.New("login item: not permitted")
	ErrUnsupportedPlatform = errors.New("login item: unsupported platform")
)

// Manager is the login-item capability.
type Manager interface {
	IsEnabled() bool
	Enable() error
	Disable() error
}

// Set applies the requested state and returns the state the OS actually reports.
func Set(m Manager, enabled bool) (bool, error) {
	var err error
	if enabled {
		err = m.Enable()
	} else {
		err = m.Disable()
	}
	actual := m.IsEnabled()
	if err != nil {
		log.Printf("[WARN] login item set enabled=%v failed: %v (actual=%v)", enabled, err, actual)
	} else if actual != enabled {
		log.Printf("[WARN] login item requested enabled=%v but OS reports %v", enabled, actual)
	}
	return actual, err
}

// Unsupported is used on platforms without a login-item mechanism.
type Unsupported struct{}

func (Unsupported) IsEnabled() bool { return false }
func (Unsupported) Enable() error   { return ErrUnsupportedPlatform }
func (Unsupported) Disable() error  { return ErrUnsupportedPlatform }
