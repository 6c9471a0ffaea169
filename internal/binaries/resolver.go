package binaries

import (
	"context"
	"net/http"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/beonanotherplanet/tiskofy/internal/platform"
)

const (
	// DefaultTimeout bounds one acquisition attempt.
	DefaultTimeout = 15 * time.Minute

	userAgent = "tiskofy"
)

// Options configures a Resolver. The zero value resolves into the directory
// of the running executable using the built-in source URLs.
type Options struct {
	// InstallDir overrides the install directory.
	InstallDir    string
	ExtractorURL  string
	TranscoderURL string
	Client        *http.Client
	Logger        *zap.Logger
	Metrics       Metrics
	Timeout       time.Duration
}

// optionalPath is the transcoder slot value. ok=false is a valid, final
// answer: the tool is not available and will not be looked for again.
type optionalPath struct {
	path string
	ok   bool
}

// Resolver hands out paths to the external tools, installing them next to
// the application on first use.
type Resolver struct {
	logger        *zap.Logger
	client        *http.Client
	metrics       Metrics
	timeout       time.Duration
	installDir    string
	extractorURL  string
	transcoderURL string

	extractor  Slot[string]
	transcoder Slot[optionalPath]
}

// New creates a Resolver. Nothing is fetched until a tool is asked for.
func New(opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	extractorURL := opts.ExtractorURL
	if extractorURL == "" {
		extractorURL = defaultExtractorURL(runtime.GOOS)
	}
	transcoderURL := opts.TranscoderURL
	if transcoderURL == "" {
		transcoderURL = DefaultTranscoderURL
	}

	return &Resolver{
		logger:        logger.Named("binaries"),
		client:        client,
		metrics:       metrics,
		timeout:       timeout,
		installDir:    opts.InstallDir,
		extractorURL:  extractorURL,
		transcoderURL: transcoderURL,
	}
}

// InstallDir returns the directory both tools are installed into.
func (r *Resolver) InstallDir() (string, error) {
	if r.installDir != "" {
		return r.installDir, nil
	}
	dir, err := platform.ExecutableDir()
	if err != nil {
		return "", err
	}
	return dir, nil
}

// State reports the slot state for tool.
func (r *Resolver) State(tool Tool) SlotState {
	switch tool {
	case Extractor:
		return r.extractor.State()
	case Transcoder:
		return r.transcoder.State()
	default:
		return Unresolved
	}
}

// Extractor returns the path to yt-dlp, downloading it on first use.
func (r *Resolver) Extractor(ctx context.Context) (string, error) {
	return r.extractor.Resolve(ctx, r.acquireExtractor)
}

// Transcoder returns the path to ffmpeg. ok is false when the download
// source does not contain ffmpeg; that answer is kept for the life of the
// Resolver. Errors are not kept and the next call tries again.
func (r *Resolver) Transcoder(ctx context.Context) (string, bool, error) {
	v, err := r.transcoder.Resolve(ctx, r.acquireTranscoder)
	if err != nil {
		return "", false, err
	}
	return v.path, v.ok, nil
}

func (r *Resolver) destination(tool Tool) (string, error) {
	dir, err := r.InstallDir()
	if err != nil {
		return "", acquisitionErr(tool, KindDirectory, "locate executable", err)
	}
	return filepath.Join(dir, tool.BinaryName()), nil
}

func (r *Resolver) acquireExtractor(ctx context.Context) (path string, err error) {
	const tool = Extractor
	started := time.Now()
	outcome := OutcomeFailed
	defer func() { r.observe(tool, outcome, started, path, err) }()

	dest, err := r.destination(tool)
	if err != nil {
		return "", err
	}
	if fileExists(dest) {
		outcome = OutcomeCached
		return dest, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.logger.Info("downloading tool", zap.String("tool", tool.String()), zap.String("url", r.extractorURL))
	resp, err := r.fetch(ctx, tool, r.extractorURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := installFrom(tool, resp.Body, dest); err != nil {
		return "", err
	}
	outcome = OutcomeInstalled
	return dest, nil
}

func (r *Resolver) acquireTranscoder(ctx context.Context) (v optionalPath, err error) {
	const tool = Transcoder
	started := time.Now()
	outcome := OutcomeFailed
	defer func() { r.observe(tool, outcome, started, v.path, err) }()

	dest, err := r.destination(tool)
	if err != nil {
		return optionalPath{}, err
	}
	if fileExists(dest) {
		outcome = OutcomeCached
		return optionalPath{path: dest, ok: true}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.logger.Info("downloading tool archive", zap.String("tool", tool.String()), zap.String("url", r.transcoderURL))
	resp, err := r.fetch(ctx, tool, r.transcoderURL)
	if err != nil {
		return optionalPath{}, err
	}
	defer resp.Body.Close()

	data, err := readArchive(tool, resp.Body)
	if err != nil {
		return optionalPath{}, err
	}

	archive, err := openArchive(tool, data)
	if err != nil {
		return optionalPath{}, err
	}

	entry, found := findEntry(archive, tool.BinaryName())
	if !found {
		outcome = OutcomeUnavailable
		r.logger.Info("tool not present in archive, continuing without it",
			zap.String("tool", tool.String()),
			zap.Error(acquisitionErr(tool, KindToolAbsent, "scan archive", nil)),
		)
		return optionalPath{}, nil
	}

	if err := extractEntry(tool, entry, dest); err != nil {
		return optionalPath{}, err
	}
	outcome = OutcomeInstalled
	return optionalPath{path: dest, ok: true}, nil
}

func (r *Resolver) observe(tool Tool, outcome string, started time.Time, path string, err error) {
	elapsed := time.Since(started)
	r.metrics.ObserveAcquisition(tool, outcome, elapsed)

	fields := []zap.Field{
		zap.String("tool", tool.String()),
		zap.String("outcome", outcome),
		zap.Duration("elapsed", elapsed),
	}
	if err != nil {
		r.logger.Warn("tool acquisition failed", append(fields, zap.Error(err))...)
		return
	}
	if path != "" {
		fields = append(fields, zap.String("path", path))
	}
	r.logger.Debug("tool resolved", fields...)
}
