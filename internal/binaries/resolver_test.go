package binaries

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newCountingServer(t *testing.T, handler http.HandlerFunc) *countingServer {
	t.Helper()
	cs := &countingServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(cs.Close)
	return cs
}

func newTestResolver(t *testing.T, dir string, extractorURL, transcoderURL string) *Resolver {
	t.Helper()
	return New(Options{
		InstallDir:    dir,
		ExtractorURL:  extractorURL,
		TranscoderURL: transcoderURL,
		Timeout:       10 * time.Second,
	})
}

func buildZip(t *testing.T, entries []zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(e.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type zipEntry struct {
	name string
	body string
}

func assertNoLeftovers(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".part"), "temp file left behind: %s", e.Name())
	}
}

func TestExtractor_AlreadyInstalledSkipsNetwork(t *testing.T) {
	dir := t.TempDir()
	srv := newCountingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("should not be fetched"))
	})

	existing := filepath.Join(dir, Extractor.BinaryName())
	require.NoError(t, os.WriteFile(existing, []byte("old build"), 0o644))

	r := newTestResolver(t, dir, srv.URL, srv.URL)
	for i := 0; i < 3; i++ {
		path, err := r.Extractor(context.Background())
		require.NoError(t, err)
		assert.Equal(t, existing, path)
	}

	assert.Equal(t, int32(0), srv.hits.Load())
	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "old build", string(data))
	assert.Equal(t, Resolved, r.State(Extractor))
}

func TestExtractor_ConcurrentCallersShareOneFetch(t *testing.T) {
	dir := t.TempDir()
	srv := newCountingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte("#!/bin/sh\necho yt-dlp\n"))
	})
	r := newTestResolver(t, dir, srv.URL, srv.URL)

	const callers = 16
	var wg sync.WaitGroup
	paths := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], errs[i] = r.Extractor(context.Background())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), srv.hits.Load())
	want := filepath.Join(dir, Extractor.BinaryName())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, want, paths[i])
	}
}

func TestExtractor_ConcurrentCallersShareFailure(t *testing.T) {
	dir := t.TempDir()
	srv := newCountingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(50 * time.Millisecond)
		http.Error(w, "boom", http.StatusBadGateway)
	})
	r := newTestResolver(t, dir, srv.URL, srv.URL)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Extractor(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, ErrNetwork)
	}
	// Late arrivals may start a second attempt after the first one failed,
	// but never more than one attempt runs at a time.
	assert.LessOrEqual(t, srv.hits.Load(), int32(callers))
	assert.GreaterOrEqual(t, srv.hits.Load(), int32(1))
}

func TestExtractor_NetworkFailureLeavesNoFileAndRetries(t *testing.T) {
	dir := t.TempDir()
	var healthy atomic.Bool
	srv := newCountingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if !healthy.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("binary"))
	})
	r := newTestResolver(t, dir, srv.URL, srv.URL)
	dest := filepath.Join(dir, Extractor.BinaryName())

	path, err := r.Extractor(context.Background())
	require.Error(t, err)
	assert.Empty(t, path)
	assert.ErrorIs(t, err, ErrNetwork)
	var acqErr *AcquisitionError
	require.True(t, errors.As(err, &acqErr))
	assert.Equal(t, Extractor, acqErr.Tool)
	assert.Equal(t, KindNetwork, acqErr.Kind)
	assert.Contains(t, err.Error(), "503")

	assert.NoFileExists(t, dest)
	assertNoLeftovers(t, dir)
	assert.Equal(t, Failed, r.State(Extractor))

	healthy.Store(true)
	path, err = r.Extractor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dest, path)
	assert.Equal(t, int32(2), srv.hits.Load())
}

func TestExtractor_TruncatedBodyLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	srv := newCountingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "4096")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("partial"))
	})
	r := newTestResolver(t, dir, srv.URL, srv.URL)

	_, err := r.Extractor(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.NoFileExists(t, filepath.Join(dir, Extractor.BinaryName()))
	assertNoLeftovers(t, dir)
}

func TestExtractor_InstalledFileIsExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("execute bit is a POSIX concept")
	}
	dir := t.TempDir()
	srv := newCountingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("#!/bin/sh\n"))
	})
	r := newTestResolver(t, dir, srv.URL, srv.URL)

	path, err := r.Extractor(context.Background())
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o100, "owner execute bit not set: %v", info.Mode())
}

func TestExtractor_CanceledWaiterDoesNotAbortAcquisition(t *testing.T) {
	dir := t.TempDir()
	release := make(chan struct{})
	srv := newCountingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		<-release
		_, _ = w.Write([]byte("binary"))
	})
	r := newTestResolver(t, dir, srv.URL, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := r.Extractor(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool { return srv.hits.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(release)
	path, err := r.Extractor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, Extractor.BinaryName()), path)
	assert.Equal(t, int32(1), srv.hits.Load())
}

func TestTranscoder_SelectsFirstEntryEndingWithBinaryName(t *testing.T) {
	dir := t.TempDir()
	name := Transcoder.BinaryName()
	archive := buildZip(t, []zipEntry{
		{name: "docs/readme", body: "read me"},
		{name: "bin/sub/" + name, body: "the real ffmpeg"},
		{name: name + ".1", body: "man page"},
	})
	srv := newCountingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	})
	r := newTestResolver(t, dir, srv.URL, srv.URL)

	path, ok, err := r.Transcoder(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, name), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "the real ffmpeg", string(data))
	assertNoLeftovers(t, dir)
}

func TestTranscoder_FirstOfSeveralMatchesWins(t *testing.T) {
	dir := t.TempDir()
	name := Transcoder.BinaryName()
	archive := buildZip(t, []zipEntry{
		{name: "a/" + name, body: "first"},
		{name: "b/" + name, body: "second"},
	})
	srv := newCountingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	})
	r := newTestResolver(t, dir, srv.URL, srv.URL)

	path, ok, err := r.Transcoder(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestTranscoder_AbsentFromArchiveIsUnavailable(t *testing.T) {
	dir := t.TempDir()
	archive := buildZip(t, []zipEntry{
		{name: "README.txt", body: "nothing here"},
		{name: "ffprobe.txt", body: "nope"},
	})
	transcoderSrv := newCountingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	})
	extractorSrv := newCountingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("yt-dlp"))
	})
	r := newTestResolver(t, dir, extractorSrv.URL, transcoderSrv.URL)

	for i := 0; i < 3; i++ {
		path, ok, err := r.Transcoder(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, path)
	}
	assert.Equal(t, int32(1), transcoderSrv.hits.Load(), "unavailable must be memoized")
	assert.Equal(t, Resolved, r.State(Transcoder))
	assert.NoFileExists(t, filepath.Join(dir, Transcoder.BinaryName()))

	path, err := r.Extractor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, Extractor.BinaryName()), path)
}

func TestTranscoder_InvalidArchiveIsRetryable(t *testing.T) {
	dir := t.TempDir()
	srv := newCountingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("definitely not a zip"))
	})
	r := newTestResolver(t, dir, srv.URL, srv.URL)

	_, ok, err := r.Transcoder(context.Background())
	require.Error(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrArchive)
	assert.Equal(t, Failed, r.State(Transcoder))

	_, _, err = r.Transcoder(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(2), srv.hits.Load())
	assert.NoFileExists(t, filepath.Join(dir, Transcoder.BinaryName()))
}

func TestTranscoder_NetworkFailureIsError(t *testing.T) {
	dir := t.TempDir()
	srv := newCountingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	})
	r := newTestResolver(t, dir, srv.URL, srv.URL)

	_, ok, err := r.Transcoder(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.NotErrorIs(t, err, ErrToolAbsent)
}

func TestTranscoder_AlreadyInstalledSkipsNetwork(t *testing.T) {
	dir := t.TempDir()
	srv := newCountingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unreachable", http.StatusInternalServerError)
	})
	existing := filepath.Join(dir, Transcoder.BinaryName())
	require.NoError(t, os.WriteFile(existing, []byte("ffmpeg"), 0o755))

	r := newTestResolver(t, dir, srv.URL, srv.URL)
	path, ok, err := r.Transcoder(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, existing, path)
	assert.Equal(t, int32(0), srv.hits.Load())
}

func TestResolver_RecordsMetrics(t *testing.T) {
	dir := t.TempDir()
	srv := newCountingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("binary"))
	})
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)
	r := New(Options{
		InstallDir:    dir,
		ExtractorURL:  srv.URL,
		TranscoderURL: srv.URL,
		Metrics:       metrics,
	})

	_, err := r.Extractor(context.Background())
	require.NoError(t, err)

	second := New(Options{InstallDir: dir, ExtractorURL: srv.URL, Metrics: metrics})
	_, err = second.Extractor(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.acquisitions.WithLabelValues("yt-dlp", OutcomeInstalled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.acquisitions.WithLabelValues("yt-dlp", OutcomeCached)))
}

func TestNew_Defaults(t *testing.T) {
	r := New(Options{})
	assert.Equal(t, defaultExtractorURL(runtime.GOOS), r.extractorURL)
	assert.Equal(t, DefaultTranscoderURL, r.transcoderURL)
	assert.Equal(t, DefaultTimeout, r.timeout)
	assert.NotNil(t, r.client)

	dir, err := r.InstallDir()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(dir))
}
