//go:build !darwin

package loginitem

// Default returns the Unsupported manager on non-macOS platforms.
func Default(_, _ string) Manager {
	return Unsupported{}
}
