package download

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/beonanotherplanet/tiskofy/internal/model"
	"github.com/beonanotherplanet/tiskofy/internal/platform"
	"github.com/beonanotherplanet/tiskofy/internal/process"
)

// Defaults used when Options leaves a field empty
const (
	DefaultMaxParallel = 2
	DefaultAudioFormat = "mp3"
	TaskIDPrefix       = "task-"
)

// Prefixes of the user-visible failure messages
const (
	extractorErrorPrefix = "yt-dlp error: "
	titleErrorPrefix     = "yt-dlp title error: "
	extractFailedPrefix  = "yt-dlp failed: "
)

// Options configures a Service
type Options struct {
	Tools       ToolResolver
	Runner      process.Runner
	Playlists   platform.PlaylistExpander
	Recorder    Recorder
	Logger      *zap.Logger
	DownloadDir string // used when AddTask gets an empty directory
	AudioFormat string
	MaxParallel int
}

// Service handles download operations
type Service struct {
	tools     ToolResolver
	runner    process.Runner
	playlists platform.PlaylistExpander
	recorder  Recorder
	logger    *zap.Logger

	tasks       map[string]*model.DownloadTask
	tasksMutex  sync.RWMutex
	pending     []string
	cancels     map[string]context.CancelFunc
	maxParallel int
	activeCount int
	downloadDir string
	audioFormat string
	onUpdate    func(*model.DownloadTask) // callback for UI updates
	closed      bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a new download service
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	runner := opts.Runner
	if runner == nil {
		runner = process.NewExecRunner(logger)
	}
	maxParallel := opts.MaxParallel
	if maxParallel < 1 {
		maxParallel = DefaultMaxParallel
	}
	format := strings.TrimSpace(opts.AudioFormat)
	if format == "" {
		format = DefaultAudioFormat
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		tools:       opts.Tools,
		runner:      runner,
		playlists:   opts.Playlists,
		recorder:    opts.Recorder,
		logger:      logger.Named("download"),
		tasks:       make(map[string]*model.DownloadTask),
		cancels:     make(map[string]context.CancelFunc),
		maxParallel: maxParallel,
		downloadDir: opts.DownloadDir,
		audioFormat: format,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetUpdateCallback sets the callback function for task updates.
// The callback receives a copy of the task and runs outside the service lock.
func (s *Service) SetUpdateCallback(callback func(*model.DownloadTask)) {
	s.tasksMutex.Lock()
	s.onUpdate = callback
	s.tasksMutex.Unlock()
}

// SetAudioFormat sets the format for tasks started from now on
func (s *Service) SetAudioFormat(format string) {
	format = strings.TrimSpace(format)
	if format == "" {
		format = DefaultAudioFormat
	}
	s.tasksMutex.Lock()
	s.audioFormat = format
	s.tasksMutex.Unlock()
}

// SetMaxParallelDownloads sets the maximum number of parallel downloads
func (s *Service) SetMaxParallelDownloads(max int) {
	if max < 1 {
		max = 1
	}
	s.tasksMutex.Lock()
	s.maxParallel = max
	s.tasksMutex.Unlock()

	s.startPendingTasks()
}

// SetDownloadDirectory sets the directory used when AddTask gets none
func (s *Service) SetDownloadDirectory(dir string) {
	s.tasksMutex.Lock()
	s.downloadDir = dir
	s.tasksMutex.Unlock()
}

// AddTask validates url and queues it for download into outputDir
func (s *Service) AddTask(url, outputDir string) (*model.DownloadTask, error) {
	url = strings.TrimSpace(url)
	source, ok := platform.MatchURL(url)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, url)
	}
	if platform.IsPlaylistURL(url) {
		return nil, fmt.Errorf("%w: %s", ErrPlaylistURL, url)
	}
	return s.addTask(url, source, outputDir)
}

// AddPlaylist expands a YouTube playlist or SoundCloud set and queues every
// entry. Entries that cannot be queued are logged and skipped.
func (s *Service) AddPlaylist(ctx context.Context, url, outputDir string) ([]*model.DownloadTask, error) {
	if s.playlists == nil {
		return nil, ErrNoPlaylists
	}
	url = strings.TrimSpace(url)
	if !platform.IsPlaylistURL(url) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, url)
	}

	playlist, err := s.playlists.Expand(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("expand playlist: %w", err)
	}

	tasks := make([]*model.DownloadTask, 0, playlist.Len())
	for _, entry := range playlist.Entries {
		task, err := s.addTask(entry.URL, playlist.Source, outputDir)
		if err != nil {
			s.logger.Warn("skipping playlist entry",
				zap.String("playlist", url),
				zap.String("entry", entry.URL),
				zap.Error(err),
			)
			if errors.Is(err, ErrServiceClosed) {
				return tasks, err
			}
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (s *Service) addTask(url string, source model.Source, outputDir string) (*model.DownloadTask, error) {
	s.tasksMutex.Lock()

	if s.closed {
		s.tasksMutex.Unlock()
		return nil, ErrServiceClosed
	}
	if outputDir == "" {
		outputDir = s.downloadDir
	}
	if outputDir == "" {
		s.tasksMutex.Unlock()
		return nil, ErrNoOutputDir
	}

	for _, task := range s.tasks {
		if task.URL == url && !task.Status.IsFinished() {
			s.tasksMutex.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTask, url)
		}
	}

	task := &model.DownloadTask{
		ID:          generateTaskID(),
		URL:         url,
		Source:      source,
		OutputDir:   outputDir,
		AudioFormat: s.audioFormat,
		Status:      model.TaskStatusPending,
	}
	s.tasks[task.ID] = task
	s.pending = append(s.pending, task.ID)
	s.wg.Add(1)
	snapshot := task.Clone()
	s.tasksMutex.Unlock()

	s.logger.Info("task queued",
		zap.String("task", task.ID),
		zap.String("url", url),
		zap.Stringer("source", source),
	)
	s.notifyUpdate(snapshot)
	s.startPendingTasks()
	return snapshot, nil
}

// GetTask returns a copy of the task with the given ID
func (s *Service) GetTask(id string) (*model.DownloadTask, bool) {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()
	task, exists := s.tasks[id]
	if !exists {
		return nil, false
	}
	return task.Clone(), true
}

// GetAllTasks returns copies of all tasks, oldest first
func (s *Service) GetAllTasks() []*model.DownloadTask {
	s.tasksMutex.RLock()
	tasks := make([]*model.DownloadTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task.Clone())
	}
	s.tasksMutex.RUnlock()

	// v7 ids sort by creation time
	slices.SortFunc(tasks, func(a, b *model.DownloadTask) int {
		return strings.Compare(a.ID, b.ID)
	})
	return tasks
}

// StopTask cancels a queued or running task. It ends in TaskStatusStopped.
func (s *Service) StopTask(id string) error {
	s.tasksMutex.Lock()

	task, exists := s.tasks[id]
	if !exists {
		s.tasksMutex.Unlock()
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	switch {
	case task.Status == model.TaskStatusPending:
		s.pending = slices.DeleteFunc(s.pending, func(p string) bool { return p == id })
		task.Status = model.TaskStatusStopped
		task.FinishedAt = time.Now()
		snapshot := task.Clone()
		s.tasksMutex.Unlock()

		s.logger.Info("queued task canceled", zap.String("task", id))
		s.notifyUpdate(snapshot)
		s.record(snapshot)
		s.wg.Done()
		return nil

	case task.Status.IsActive():
		if task.Status == model.TaskStatusStopping {
			s.tasksMutex.Unlock()
			return nil
		}
		task.Status = model.TaskStatusStopping
		cancel := s.cancels[id]
		snapshot := task.Clone()
		s.tasksMutex.Unlock()

		s.logger.Info("stopping task", zap.String("task", id))
		s.notifyUpdate(snapshot)
		if cancel != nil {
			cancel()
		}
		return nil

	default:
		status := task.Status
		s.tasksMutex.Unlock()
		return fmt.Errorf("%w: %s", ErrTaskNotActive, status)
	}
}

// RemoveTask forgets a finished task
func (s *Service) RemoveTask(id string) error {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	task, exists := s.tasks[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if !task.Status.IsFinished() {
		return fmt.Errorf("%w: %s", ErrTaskActive, task.Status)
	}
	delete(s.tasks, id)
	return nil
}

// Wait blocks until every queued and running task has finished. It must not
// race with AddTask on an otherwise idle service.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close cancels all queued and running tasks and waits for them to finish.
func (s *Service) Close() {
	s.tasksMutex.Lock()
	if s.closed {
		s.tasksMutex.Unlock()
		s.wg.Wait()
		return
	}
	s.closed = true
	pending := slices.Clone(s.pending)
	s.tasksMutex.Unlock()

	for _, id := range pending {
		_ = s.StopTask(id)
	}
	s.cancel()
	s.wg.Wait()
}

// startPendingTasks starts queued tasks while there is capacity
func (s *Service) startPendingTasks() {
	for {
		s.tasksMutex.Lock()
		if s.activeCount >= s.maxParallel || len(s.pending) == 0 {
			s.tasksMutex.Unlock()
			return
		}
		id := s.pending[0]
		s.pending = s.pending[1:]
		task := s.tasks[id]

		ctx, cancel := context.WithCancel(s.ctx)
		s.cancels[id] = cancel
		s.activeCount++
		task.Status = model.TaskStatusStarting
		task.StartedAt = time.Now()
		snapshot := task.Clone()
		s.tasksMutex.Unlock()

		s.notifyUpdate(snapshot)
		go s.runTask(ctx, snapshot)
	}
}

// runTask drives one task through the pipeline and records its end state
func (s *Service) runTask(ctx context.Context, task *model.DownloadTask) {
	logger := s.logger.With(zap.String("task", task.ID), zap.String("url", task.URL))

	outputPath, err := s.execute(ctx, task, logger)
	switch {
	case ctx.Err() != nil:
		logger.Info("task stopped")
		s.finish(task.ID, model.TaskStatusStopped, "", "")
	case err != nil:
		logger.Warn("task failed", zap.Error(err))
		s.finish(task.ID, model.TaskStatusError, "", err.Error())
	default:
		logger.Info("task completed", zap.String("output", outputPath))
		s.finish(task.ID, model.TaskStatusCompleted, outputPath, "")
	}
}

// execute resolves the tools, probes the title and extracts the audio.
// The returned error text is what the user sees.
func (s *Service) execute(ctx context.Context, task *model.DownloadTask, logger *zap.Logger) (string, error) {
	if s.tools == nil {
		return "", errors.New(extractorErrorPrefix + "no tool resolver configured")
	}

	ytdlpPath, err := s.tools.Extractor(ctx)
	if err != nil {
		return "", errors.New(extractorErrorPrefix + err.Error())
	}

	ffmpegPath, hasFFmpeg, err := s.tools.Transcoder(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logger.Warn("ffmpeg unavailable, continuing without it", zap.Error(err))
		hasFFmpeg = false
	}

	res, err := s.runner.Run(ctx, ytdlpPath, "--print", "title", task.URL)
	if err != nil {
		return "", errors.New(titleErrorPrefix + err.Error())
	}
	if !res.Success() {
		return "", errors.New(titleErrorPrefix + res.StderrString())
	}
	title := firstLine(res.StdoutString())

	outputPath := filepath.Join(task.OutputDir, outputName(title, task.ID)+"."+task.AudioFormat)
	s.update(task.ID, func(t *model.DownloadTask) {
		t.Title = title
		t.OutputPath = outputPath
		if t.Status == model.TaskStatusStarting {
			t.Status = model.TaskStatusDownloading
		}
	})

	if err := platform.CreateDirectoryIfNotExists(task.OutputDir); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	args := []string{"-x", "--audio-format", task.AudioFormat, "-o", outputPath, task.URL}
	if hasFFmpeg {
		args = append(args, "--ffmpeg-location", ffmpegPath)
	}
	res, err = s.runner.Run(ctx, ytdlpPath, args...)
	if err != nil {
		return "", errors.New(extractFailedPrefix + err.Error())
	}
	if !res.Success() {
		return "", errors.New(extractFailedPrefix + res.StderrString())
	}
	return outputPath, nil
}

// update applies fn to the stored task and notifies listeners
func (s *Service) update(id string, fn func(*model.DownloadTask)) {
	s.tasksMutex.Lock()
	task, ok := s.tasks[id]
	if !ok {
		s.tasksMutex.Unlock()
		return
	}
	fn(task)
	snapshot := task.Clone()
	s.tasksMutex.Unlock()

	s.notifyUpdate(snapshot)
}

func (s *Service) finish(id string, status model.TaskStatus, outputPath, lastError string) {
	s.tasksMutex.Lock()
	if cancel, ok := s.cancels[id]; ok {
		cancel()
		delete(s.cancels, id)
	}
	s.activeCount--

	var snapshot *model.DownloadTask
	if task, ok := s.tasks[id]; ok {
		task.Status = status
		task.LastError = lastError
		if outputPath != "" {
			task.OutputPath = outputPath
		}
		if status != model.TaskStatusCompleted {
			task.OutputPath = ""
		}
		task.FinishedAt = time.Now()
		snapshot = task.Clone()
	}
	s.tasksMutex.Unlock()

	if snapshot != nil {
		s.notifyUpdate(snapshot)
		s.record(snapshot)
	}
	s.wg.Done()
	s.startPendingTasks()
}

func (s *Service) record(task *model.DownloadTask) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(task); err != nil {
		s.logger.Warn("failed to record history", zap.String("task", task.ID), zap.Error(err))
	}
}

// notifyUpdate calls the update callback if set
func (s *Service) notifyUpdate(task *model.DownloadTask) {
	s.tasksMutex.RLock()
	callback := s.onUpdate
	s.tasksMutex.RUnlock()

	if callback != nil {
		callback(task)
	}
}

// outputName turns a title into a file name, falling back to the task id
func outputName(title, taskID string) string {
	name := strings.TrimSpace(platform.SanitizeFilename(title))
	if name == "" {
		return strings.TrimPrefix(taskID, TaskIDPrefix)
	}
	return name
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// generateTaskID generates a unique, time-ordered task ID
func generateTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("%s%d", TaskIDPrefix, time.Now().UnixNano())
	}
	return TaskIDPrefix + id.String()
}
