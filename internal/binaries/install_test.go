package binaries

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failGrantExecute makes the next failures calls to grantExecute fail.
func failGrantExecute(t *testing.T, failures int32) *atomic.Int32 {
	t.Helper()
	orig := grantExecute
	var calls atomic.Int32
	grantExecute = func(path string) error {
		if calls.Add(1) <= failures {
			return os.ErrPermission
		}
		return orig(path)
	}
	t.Cleanup(func() { grantExecute = orig })
	return &calls
}

func ffmpegArchive(t *testing.T) []byte {
	t.Helper()
	return buildZip(t, []zipEntry{{name: "bin/" + Transcoder.BinaryName(), body: "ffmpeg build"}})
}

func TestExtractor_PermissionFailureIsNotCached(t *testing.T) {
	calls := failGrantExecute(t, 1)
	dir := t.TempDir()
	srv := newCountingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("#!/bin/sh\n"))
	})
	r := newTestResolver(t, dir, srv.URL, srv.URL)
	dest := filepath.Join(dir, Extractor.BinaryName())

	path, err := r.Extractor(context.Background())
	require.Error(t, err)
	assert.Empty(t, path)
	assert.ErrorIs(t, err, ErrPermissionGrant)
	assert.Equal(t, Failed, r.State(Extractor))
	assert.NoFileExists(t, dest)
	assertNoLeftovers(t, dir)

	path, err = r.Extractor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dest, path)
	assert.FileExists(t, dest)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int32(2), srv.hits.Load())
}

func TestTranscoder_PermissionFailureIsNotCached(t *testing.T) {
	failGrantExecute(t, 1)
	dir := t.TempDir()
	archive := ffmpegArchive(t)
	srv := newCountingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	})
	r := newTestResolver(t, dir, srv.URL, srv.URL)
	dest := filepath.Join(dir, Transcoder.BinaryName())

	path, ok, err := r.Transcoder(context.Background())
	require.Error(t, err)
	assert.False(t, ok)
	assert.Empty(t, path)
	assert.ErrorIs(t, err, ErrPermissionGrant)
	assert.NotErrorIs(t, err, ErrToolAbsent)
	assert.Equal(t, Failed, r.State(Transcoder))
	assert.NoFileExists(t, dest)
	assertNoLeftovers(t, dir)

	path, ok, err = r.Transcoder(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, dest, path)
	assert.Equal(t, int32(2), srv.hits.Load())
}

func TestExtractor_MissingInstallDirIsFilesystemError(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	srv := newCountingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("#!/bin/sh\n"))
	})
	r := newTestResolver(t, dir, srv.URL, srv.URL)

	_, err := r.Extractor(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFilesystem)
	assert.Equal(t, Failed, r.State(Extractor))
	assert.NoDirExists(t, dir)

	require.NoError(t, os.MkdirAll(dir, 0o755))
	path, err := r.Extractor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, Extractor.BinaryName()), path)
	assertNoLeftovers(t, dir)
}

func TestTranscoder_MissingInstallDirIsRetryable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	archive := ffmpegArchive(t)
	srv := newCountingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	})
	r := newTestResolver(t, dir, srv.URL, srv.URL)

	_, ok, err := r.Transcoder(context.Background())
	require.Error(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrFilesystem)
	assert.Equal(t, Failed, r.State(Transcoder))

	require.NoError(t, os.MkdirAll(dir, 0o755))
	path, ok, err := r.Transcoder(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, Transcoder.BinaryName()), path)
}

func TestTranscoder_CorruptEntryIsArchiveError(t *testing.T) {
	const body = "aaaaaaaaaaaaaaaaffmpeg payload"

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "bin/" + Transcoder.BinaryName(), Method: zip.Store})
	require.NoError(t, err)
	_, err = w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	archive := buf.Bytes()
	at := bytes.Index(archive, []byte(body))
	require.GreaterOrEqual(t, at, 0)
	archive[at] = 'b'

	dir := t.TempDir()
	srv := newCountingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	})
	r := newTestResolver(t, dir, srv.URL, srv.URL)

	_, ok, err := r.Transcoder(context.Background())
	require.Error(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrArchive)
	assert.Equal(t, Failed, r.State(Transcoder))
	assert.NoFileExists(t, filepath.Join(dir, Transcoder.BinaryName()))
	assertNoLeftovers(t, dir)
}

func TestTranscoder_OversizedArchiveIsRejected(t *testing.T) {
	orig := maxArchiveSize
	maxArchiveSize = 64
	t.Cleanup(func() { maxArchiveSize = orig })

	dir := t.TempDir()
	srv := newCountingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte{'z'}, 65))
	})
	r := newTestResolver(t, dir, srv.URL, srv.URL)

	_, ok, err := r.Transcoder(context.Background())
	require.Error(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrArchive)
	assert.Contains(t, err.Error(), "archive too large")
	assert.Equal(t, Failed, r.State(Transcoder))
}

func TestReadArchive_AcceptsExactLimit(t *testing.T) {
	orig := maxArchiveSize
	maxArchiveSize = 8
	t.Cleanup(func() { maxArchiveSize = orig })

	data, err := readArchive(Transcoder, strings.NewReader("12345678"))
	require.NoError(t, err)
	assert.Equal(t, "12345678", string(data))
}

func TestInstall_RemovesStaleTempFiles(t *testing.T) {
	if Extractor.BinaryName() != "yt-dlp" {
		t.Skip("temp names below assume the POSIX binary name")
	}
	dir := t.TempDir()
	old := time.Now().Add(-2 * staleTempAge)

	stale := filepath.Join(dir, ".yt-dlp-111.part")
	fresh := filepath.Join(dir, ".yt-dlp-222.part")
	otherTool := filepath.Join(dir, ".ffmpeg-333.part")
	for _, p := range []string{stale, fresh, otherTool} {
		require.NoError(t, os.WriteFile(p, []byte("partial"), 0o644))
	}
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(otherTool, old, old))

	srv := newCountingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("#!/bin/sh\n"))
	})
	r := New(Options{
		InstallDir:   dir,
		ExtractorURL: srv.URL,
		Timeout:      10 * time.Second,
	})
	_, err := r.Extractor(context.Background())
	require.NoError(t, err)

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh, "a recent temp file may belong to another process")
	assert.FileExists(t, otherTool, "only the installed tool's temp files are touched")
}
