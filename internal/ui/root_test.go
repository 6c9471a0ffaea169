package ui

import (
	"context"
	"errors"
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beonanotherplanet/tiskofy/internal/download"
	"github.com/beonanotherplanet/tiskofy/internal/model"
)

type fakeDownloader struct {
	addErr   error
	added    []string
	dirs     []string
	stopped  []string
	tasks    map[string]*model.DownloadTask
	format   string
	parallel int
}

func newFakeDownloader() *fakeDownloader {
	return &fakeDownloader{tasks: make(map[string]*model.DownloadTask)}
}

func (f *fakeDownloader) SetUpdateCallback(func(*model.DownloadTask)) {}

func (f *fakeDownloader) AddTask(url, dir string) (*model.DownloadTask, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	f.added = append(f.added, url)
	f.dirs = append(f.dirs, dir)
	task := &model.DownloadTask{ID: "task-" + url, URL: url, OutputDir: dir, Status: model.TaskStatusStarting}
	f.tasks[task.ID] = task
	return task.Clone(), nil
}

func (f *fakeDownloader) AddPlaylist(context.Context, string, string) ([]*model.DownloadTask, error) {
	return nil, errors.New("not used")
}

func (f *fakeDownloader) GetTask(id string) (*model.DownloadTask, bool) {
	task, ok := f.tasks[id]
	if !ok {
		return nil, false
	}
	return task.Clone(), true
}

func (f *fakeDownloader) GetAllTasks() []*model.DownloadTask { return nil }

func (f *fakeDownloader) StopTask(id string) error {
	f.stopped = append(f.stopped, id)
	return nil
}

func (f *fakeDownloader) RemoveTask(string) error { return nil }

func (f *fakeDownloader) SetAudioFormat(format string) { f.format = format }

func (f *fakeDownloader) SetMaxParallelDownloads(n int) { f.parallel = n }

const videoURL = "https://youtu.be/dQw4w9WgXcQ"

func newTestUI(t *testing.T, svc *fakeDownloader) *RootUI {
	t.Helper()
	app := test.NewApp()
	t.Cleanup(app.Quit)
	w := app.NewWindow("test")

	app.Preferences().SetString("app_language", "en")
	ui := NewRootUI(w, app, svc, nil)
	ui.settings.SetAskForFolder(false)
	ui.settings.SetDownloadDirectory("/music")
	ui.reveal = func(string) error { return nil }
	return ui
}

func finished(task *model.DownloadTask, status model.TaskStatus) *model.DownloadTask {
	c := task.Clone()
	c.Status = status
	return c
}

func TestRootUI_InitialState(t *testing.T) {
	ui := newTestUI(t, newFakeDownloader())

	assert.Equal(t, model.OutcomeNone, ui.outcome)
	assert.Equal(t, "status: none", ui.statusLabel.Text)
	assert.Equal(t, "Download", ui.downloadBtn.Text)
}

func TestRootUI_InvalidURL(t *testing.T) {
	svc := newFakeDownloader()
	ui := newTestUI(t, svc)

	for _, input := range []string{"", "   ", "https://vimeo.com/1"} {
		ui.urlEntry.SetText(input)
		test.Tap(ui.downloadBtn)

		assert.Equal(t, model.OutcomeInvalidURL, ui.outcome, input)
		assert.Equal(t, ui.localization.OutcomeMessage(model.OutcomeInvalidURL), ui.outcomeLabel.Text)
	}
	assert.Empty(t, svc.added)
	assert.False(t, ui.busy)
}

func TestRootUI_DownloadCompletes(t *testing.T) {
	svc := newFakeDownloader()
	ui := newTestUI(t, svc)

	var revealed string
	ui.settings.SetRevealOnComplete(true)
	ui.reveal = func(path string) error {
		revealed = path
		return nil
	}

	ui.urlEntry.SetText(videoURL)
	test.Tap(ui.downloadBtn)

	require.Equal(t, []string{videoURL}, svc.added)
	assert.Equal(t, []string{"/music"}, svc.dirs)
	assert.True(t, ui.busy)
	assert.Equal(t, "Cancel", ui.downloadBtn.Text)
	assert.Equal(t, model.OutcomeProcessing, ui.outcome)

	task := svc.tasks["task-"+videoURL]
	done := finished(task, model.TaskStatusCompleted)
	done.OutputPath = "/music/Song.mp3"
	ui.applyUpdate(done)

	assert.False(t, ui.busy)
	assert.Equal(t, "Download", ui.downloadBtn.Text)
	assert.Equal(t, model.OutcomeCompleted, ui.outcome)
	assert.Equal(t, "/music/Song.mp3", revealed)
	require.Len(t, ui.tasks, 1)
}

func TestRootUI_DownloadFails(t *testing.T) {
	svc := newFakeDownloader()
	ui := newTestUI(t, svc)

	ui.urlEntry.SetText(videoURL)
	test.Tap(ui.downloadBtn)

	failed := finished(svc.tasks["task-"+videoURL], model.TaskStatusError)
	failed.LastError = "yt-dlp failed: ERROR: Video unavailable"
	ui.applyUpdate(failed)

	assert.Equal(t, model.OutcomeUnknown, ui.outcome)
	assert.Equal(t, failed.LastError, ui.detailLabel.Text)
	assert.True(t, ui.detailLabel.Visible())
}

func TestRootUI_ButtonCancelsWhileBusy(t *testing.T) {
	svc := newFakeDownloader()
	ui := newTestUI(t, svc)

	ui.urlEntry.SetText(videoURL)
	test.Tap(ui.downloadBtn)
	require.True(t, ui.busy)

	test.Tap(ui.downloadBtn)

	assert.Equal(t, []string{"task-" + videoURL}, svc.stopped)
	assert.False(t, ui.busy)
	assert.Equal(t, model.OutcomeCanceled, ui.outcome)

	// The late Stopped update does not change the settled outcome.
	ui.applyUpdate(finished(svc.tasks["task-"+videoURL], model.TaskStatusStopped))
	assert.Equal(t, model.OutcomeCanceled, ui.outcome)
}

func TestRootUI_FolderPickerCanceled(t *testing.T) {
	svc := newFakeDownloader()
	ui := newTestUI(t, svc)
	ui.settings.SetAskForFolder(true)
	ui.pickFolder = func(done func(string, bool)) { done("", false) }

	ui.urlEntry.SetText(videoURL)
	test.Tap(ui.downloadBtn)

	assert.Empty(t, svc.added)
	assert.Equal(t, model.OutcomeCanceled, ui.outcome)
	assert.False(t, ui.busy)
}

func TestRootUI_FolderPickerChoosesDirectory(t *testing.T) {
	svc := newFakeDownloader()
	ui := newTestUI(t, svc)
	ui.settings.SetAskForFolder(true)
	ui.pickFolder = func(done func(string, bool)) { done("/picked", true) }

	ui.urlEntry.SetText(videoURL)
	test.Tap(ui.downloadBtn)

	assert.Equal(t, []string{"/picked"}, svc.dirs)
}

func TestRootUI_AddTaskRejected(t *testing.T) {
	svc := newFakeDownloader()
	ui := newTestUI(t, svc)

	svc.addErr = download.ErrDuplicateTask
	ui.urlEntry.SetText(videoURL)
	test.Tap(ui.downloadBtn)
	assert.False(t, ui.busy)
	assert.Equal(t, "Already in queue", ui.detailLabel.Text)

	svc.addErr = errors.New("disk full")
	test.Tap(ui.downloadBtn)
	assert.Equal(t, model.OutcomeUnknown, ui.outcome)
	assert.Equal(t, "disk full", ui.detailLabel.Text)
}

func TestRootUI_ApplySettings(t *testing.T) {
	svc := newFakeDownloader()
	ui := newTestUI(t, svc)

	ui.settings.SetAudioFormat("opus")
	ui.settings.SetMaxParallelDownloads(4)
	ui.settings.SetLanguage("ko")
	ui.applySettings()

	assert.Equal(t, "opus", svc.format)
	assert.Equal(t, 4, svc.parallel)
	assert.Equal(t, "다운로드", ui.downloadBtn.Text)
	assert.Equal(t, "ko", ui.localization.GetCurrentLanguage())
}

func TestTaskLine(t *testing.T) {
	task := &model.DownloadTask{Title: "Song", Status: model.TaskStatusError, LastError: "boom"}
	assert.Equal(t, "Error · Song · boom", taskLine(task))
}
