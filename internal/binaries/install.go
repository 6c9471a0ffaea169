package binaries

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	tempPattern = ".%s-*.part"

	// staleTempAge is how old a leftover temp file must be before a new
	// attempt removes it. Younger ones may belong to another process.
	staleTempAge = DefaultTimeout
)

// maxArchiveSize bounds the in-memory archive download.
var maxArchiveSize int64 = 512 << 20

// fetch issues a GET and returns the open response on a 2xx status.
func (r *Resolver) fetch(ctx context.Context, tool Tool, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, acquisitionErr(tool, KindNetwork, "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, acquisitionErr(tool, KindNetwork, "get "+url, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_ = resp.Body.Close()
		return nil, acquisitionErr(tool, KindNetwork, "get "+url, fmt.Errorf("unexpected status: %s", resp.Status))
	}
	return resp, nil
}

// installFrom streams src into dest. The bytes land in a temp file in the same
// directory, get the execute bit, and are renamed onto dest only when all of
// that succeeded. On any failure nothing is left at dest.
func installFrom(tool Tool, src io.Reader, dest string) error {
	dir := filepath.Dir(dest)
	removeStaleTemps(dir, filepath.Base(dest), time.Now())

	file, err := os.CreateTemp(dir, fmt.Sprintf(tempPattern, filepath.Base(dest)))
	if err != nil {
		return acquisitionErr(tool, KindFilesystem, "create temp file", err)
	}
	tmpPath := file.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := io.CopyBuffer(file, src, make([]byte, 32*1024)); err != nil {
		_ = file.Close()
		var acqErr *AcquisitionError
		if errors.As(err, &acqErr) {
			return err
		}
		return acquisitionErr(tool, KindNetwork, "write body", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return acquisitionErr(tool, KindFilesystem, "sync", err)
	}
	if err := file.Close(); err != nil {
		return acquisitionErr(tool, KindFilesystem, "close", err)
	}

	if err := grantExecute(tmpPath); err != nil {
		return acquisitionErr(tool, KindPermission, "chmod", err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return acquisitionErr(tool, KindFilesystem, "rename", err)
	}
	committed = true
	return nil
}

// removeStaleTemps deletes temp files an interrupted earlier run left behind.
func removeStaleTemps(dir, base string, now time.Time) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	prefix := "." + base + "-"
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".part") {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) < staleTempAge {
			continue
		}
		_ = os.Remove(filepath.Join(dir, name))
	}
}

// readArchive reads the whole body, refusing anything over maxArchiveSize.
func readArchive(tool Tool, body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxArchiveSize+1))
	if err != nil {
		return nil, acquisitionErr(tool, KindNetwork, "read body", err)
	}
	if int64(len(data)) > maxArchiveSize {
		return nil, acquisitionErr(tool, KindArchive, "read body", fmt.Errorf("archive too large: over %d bytes", maxArchiveSize))
	}
	return data, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
