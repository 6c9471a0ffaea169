//go:build windows

package binaries

// grantExecute is a no-op: Windows decides executability by extension.
var grantExecute = func(string) error {
	return nil
}
