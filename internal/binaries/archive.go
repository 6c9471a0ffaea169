package binaries

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"strings"
)

// openArchive parses an in-memory ZIP.
func openArchive(tool Tool, data []byte) (*zip.Reader, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, acquisitionErr(tool, KindArchive, "open zip", err)
	}
	return reader, nil
}

// findEntry returns the first entry, in stored order, whose name ends with
// binary. The tool may sit at any depth inside the archive.
func findEntry(reader *zip.Reader, binary string) (*zip.File, bool) {
	for _, f := range reader.File {
		if strings.HasSuffix(f.Name, binary) {
			return f, true
		}
	}
	return nil, false
}

// extractEntry installs the decompressed entry at dest.
func extractEntry(tool Tool, f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return acquisitionErr(tool, KindArchive, "open entry "+f.Name, err)
	}
	defer rc.Close()
	return installFrom(tool, archiveReader{rc: rc, tool: tool, name: f.Name}, dest)
}

// archiveReader tags read errors as archive errors so a corrupt entry is not
// reported as a network failure.
type archiveReader struct {
	rc   io.Reader
	tool Tool
	name string
}

func (a archiveReader) Read(p []byte) (int, error) {
	n, err := a.rc.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, acquisitionErr(a.tool, KindArchive, "read entry "+a.name, err)
	}
	return n, err
}
