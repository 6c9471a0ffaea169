//go:build !windows

package binaries

import "os"

const executableMode = 0o755

// grantExecute is a variable so tests can make it fail.
var grantExecute = func(path string) error {
	return os.Chmod(path, executableMode)
}
