// Package process runs external programs and captures their exit status and
// output.
package process
