package ui

import (
	"context"
	"errors"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/beonanotherplanet/tiskofy/internal/config"
	"github.com/beonanotherplanet/tiskofy/internal/download"
	"github.com/beonanotherplanet/tiskofy/internal/model"
	"github.com/beonanotherplanet/tiskofy/internal/platform"
)

// RootUI represents the main UI structure.
// All fields below are only touched on the fyne main goroutine.
type RootUI struct {
	window       fyne.Window
	headingLabel *widget.Label
	urlEntry     *widget.Entry
	downloadBtn  *widget.Button
	spinner      *widget.ProgressBarInfinite
	outcomeLabel *widget.Label
	statusLabel  *widget.Label
	detailLabel  *widget.Label
	taskList     *widget.List

	downloadSvc  download.Downloader
	settings     *config.Settings
	localization *Localization
	logger       *zap.Logger

	// pickFolder asks the user for an output folder; ok is false on cancel
	pickFolder func(done func(dir string, ok bool))
	reveal     func(path string) error

	tasks   []*model.DownloadTask // newest first
	batch   map[string]*model.DownloadTask
	request int // bumped on every start and cancel
	busy    bool
	outcome model.Outcome
}

// NewRootUI creates and initializes the main UI
func NewRootUI(window fyne.Window, app fyne.App, downloadSvc download.Downloader, logger *zap.Logger) *RootUI {
	if logger == nil {
		logger = zap.NewNop()
	}
	settings := config.NewSettings(app)

	localization := NewLocalization()
	localization.SetLanguage(settings.GetLanguage())

	ui := &RootUI{
		window:       window,
		downloadSvc:  downloadSvc,
		settings:     settings,
		localization: localization,
		logger:       logger.Named("ui"),
		reveal:       platform.OpenFileInManager,
		batch:        make(map[string]*model.DownloadTask),
		outcome:      model.OutcomeNone,
	}
	ui.pickFolder = ui.showFolderDialog

	window.SetTitle(localization.GetText(KeyAppTitle))
	downloadSvc.SetUpdateCallback(ui.onTaskUpdate)

	ui.setupUI()
	return ui
}

// setupUI creates and arranges all UI components
func (ui *RootUI) setupUI() {
	ui.createMenu()
	t := ui.localization.GetText

	ui.headingLabel = widget.NewLabelWithStyle(t(KeyHeading), fyne.TextAlignCenter, fyne.TextStyle{Bold: true})

	ui.urlEntry = widget.NewEntry()
	ui.urlEntry.SetPlaceHolder(t(KeyEnterURL))
	ui.urlEntry.OnSubmitted = func(string) {
		ui.onDownloadClick()
	}

	ui.downloadBtn = widget.NewButton(t(KeyDownload), ui.onDownloadClick)
	ui.downloadBtn.Importance = widget.HighImportance

	settingsBtn := widget.NewButton(IconSettings, ui.onShowSettings)
	settingsBtn.Importance = widget.LowImportance

	left := container.NewHBox(settingsBtn)
	if logo, err := LoadLogoResource(); err == nil {
		img := canvas.NewImageFromResource(logo)
		img.SetMinSize(fyne.NewSize(LogoSize, LogoSize))
		img.FillMode = canvas.ImageFillContain
		left = container.NewHBox(img, settingsBtn)
	}
	urlRow := container.NewBorder(nil, nil, left, ui.downloadBtn, ui.urlEntry)

	ui.spinner = widget.NewProgressBarInfinite()
	ui.spinner.Hide()

	ui.outcomeLabel = widget.NewLabel("")
	ui.outcomeLabel.Wrapping = fyne.TextWrapWord
	ui.statusLabel = widget.NewLabel("")
	ui.detailLabel = widget.NewLabel("")
	ui.detailLabel.Wrapping = fyne.TextWrapWord
	ui.detailLabel.Hide()

	ui.taskList = widget.NewList(
		func() int { return len(ui.tasks) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id < len(ui.tasks) {
				obj.(*widget.Label).SetText(taskLine(ui.tasks[id]))
			}
		},
	)
	ui.taskList.OnSelected = func(id widget.ListItemID) {
		ui.taskList.Unselect(id)
		if id < len(ui.tasks) {
			ui.revealTask(ui.tasks[id])
		}
	}

	top := container.NewVBox(ui.headingLabel, urlRow, ui.spinner, ui.outcomeLabel, ui.statusLabel, ui.detailLabel)
	ui.window.SetContent(container.NewBorder(top, nil, nil, nil, ui.taskList))

	ui.setOutcome(model.OutcomeNone)
}

// createMenu creates the application menu
func (ui *RootUI) createMenu() {
	settingsItem := fyne.NewMenuItem(ui.localization.GetText(KeySettings), ui.onShowSettings)

	languageMenu := fyne.NewMenu(ui.localization.GetText(KeyLanguage))
	for code, name := range ui.localization.GetAvailableLanguages() {
		langCode := code
		item := fyne.NewMenuItem(name, func() {
			ui.onLanguageChange(langCode)
		})
		item.Checked = ui.localization.GetCurrentLanguage() == code
		languageMenu.Items = append(languageMenu.Items, item)
	}

	ui.window.SetMainMenu(fyne.NewMainMenu(
		fyne.NewMenu(ui.localization.GetText(KeyFile), settingsItem),
		languageMenu,
	))
}

func (ui *RootUI) onLanguageChange(code string) {
	ui.localization.SetLanguage(code)
	ui.settings.SetLanguage(code)
	ui.refreshUITexts()
	ui.createMenu()
}

// refreshUITexts updates all UI texts with current language
func (ui *RootUI) refreshUITexts() {
	t := ui.localization.GetText
	ui.window.SetTitle(t(KeyAppTitle))
	ui.headingLabel.SetText(t(KeyHeading))
	ui.urlEntry.SetPlaceHolder(t(KeyEnterURL))
	ui.setBusy(ui.busy)
	ui.setOutcome(ui.outcome)
}

// onDownloadClick starts a download, or cancels the running one
func (ui *RootUI) onDownloadClick() {
	if ui.busy {
		ui.cancelBatch()
		return
	}

	url := strings.TrimSpace(ui.urlEntry.Text)
	if _, ok := platform.MatchURL(url); !ok {
		ui.setDetail("")
		ui.setOutcome(model.OutcomeInvalidURL)
		return
	}

	ui.chooseFolder(func(dir string, ok bool) {
		if !ok {
			ui.setOutcome(model.OutcomeCanceled)
			return
		}
		ui.start(url, dir)
	})
}

func (ui *RootUI) chooseFolder(done func(dir string, ok bool)) {
	if !ui.settings.GetAskForFolder() {
		done(ui.settings.GetDownloadDirectory(), true)
		return
	}
	ui.pickFolder(done)
}

func (ui *RootUI) showFolderDialog(done func(dir string, ok bool)) {
	d := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			done("", false)
			return
		}
		done(uri.Path(), true)
	}, ui.window)
	d.Show()
}

func (ui *RootUI) start(url, dir string) {
	ui.setDetail("")
	ui.setBusy(true)
	ui.setOutcome(model.OutcomeProcessing)
	ui.request++
	request := ui.request

	if platform.IsPlaylistURL(url) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), PlaylistExpandTimeout)
			defer cancel()
			tasks, err := ui.downloadSvc.AddPlaylist(ctx, url, dir)
			fyne.Do(func() {
				if request != ui.request {
					// canceled while the playlist was expanding
					ui.stopTasks(tasks)
					return
				}
				if err != nil && len(tasks) == 0 {
					ui.fail(err)
					return
				}
				ui.registerBatch(tasks)
			})
		}()
		return
	}

	task, err := ui.downloadSvc.AddTask(url, dir)
	if err != nil {
		ui.fail(err)
		return
	}
	ui.registerBatch([]*model.DownloadTask{task})
}

// registerBatch tracks the tasks started by one button press
func (ui *RootUI) registerBatch(tasks []*model.DownloadTask) {
	if len(tasks) == 0 {
		ui.setBusy(false)
		ui.setOutcome(model.OutcomeUnknown)
		return
	}
	for _, task := range tasks {
		current := task
		if fresh, ok := ui.downloadSvc.GetTask(task.ID); ok {
			current = fresh
		}
		ui.batch[task.ID] = current
		ui.upsertTask(current)
	}
	ui.taskList.Refresh()
	ui.checkBatchDone()
}

func (ui *RootUI) fail(err error) {
	ui.setBusy(false)
	ui.logger.Warn("download request rejected", zap.Error(err))
	switch {
	case errors.Is(err, download.ErrInvalidURL):
		ui.setOutcome(model.OutcomeInvalidURL)
	case errors.Is(err, download.ErrDuplicateTask):
		ui.setDetail(ui.localization.GetText(KeyAlreadyInQueue))
		ui.setOutcome(model.OutcomeNone)
	default:
		ui.setDetail(err.Error())
		ui.setOutcome(model.OutcomeUnknown)
	}
}

func (ui *RootUI) cancelBatch() {
	for id, task := range ui.batch {
		if task.Status.IsFinished() {
			continue
		}
		if err := ui.downloadSvc.StopTask(id); err != nil && !errors.Is(err, download.ErrTaskNotActive) {
			ui.logger.Warn("failed to stop task", zap.String("task", id), zap.Error(err))
		}
	}
	clear(ui.batch)
	ui.request++
	ui.setBusy(false)
	ui.setOutcome(model.OutcomeCanceled)
}

func (ui *RootUI) stopTasks(tasks []*model.DownloadTask) {
	for _, task := range tasks {
		if err := ui.downloadSvc.StopTask(task.ID); err != nil && !errors.Is(err, download.ErrTaskNotActive) {
			ui.logger.Warn("failed to stop task", zap.String("task", task.ID), zap.Error(err))
		}
	}
}

// onTaskUpdate is the download service callback; it may run on any goroutine
func (ui *RootUI) onTaskUpdate(task *model.DownloadTask) {
	fyne.Do(func() {
		ui.applyUpdate(task)
	})
}

func (ui *RootUI) applyUpdate(task *model.DownloadTask) {
	ui.upsertTask(task)
	ui.taskList.Refresh()

	if _, tracked := ui.batch[task.ID]; tracked {
		ui.batch[task.ID] = task
		ui.checkBatchDone()
	}
}

// checkBatchDone settles the outcome once every tracked task has finished
func (ui *RootUI) checkBatchDone() {
	if len(ui.batch) == 0 {
		return
	}
	var failed, stopped *model.DownloadTask
	for _, task := range ui.batch {
		switch {
		case !task.Status.IsFinished():
			return
		case task.Status == model.TaskStatusError:
			failed = task
		case task.Status == model.TaskStatusStopped:
			stopped = task
		}
	}

	finished := make([]*model.DownloadTask, 0, len(ui.batch))
	for _, task := range ui.batch {
		finished = append(finished, task)
	}
	clear(ui.batch)
	ui.setBusy(false)

	switch {
	case failed != nil:
		ui.setDetail(failed.LastError)
		ui.setOutcome(model.OutcomeUnknown)
	case stopped != nil:
		ui.setOutcome(model.OutcomeCanceled)
	default:
		ui.setOutcome(model.OutcomeCompleted)
		if len(finished) == 1 && ui.settings.GetRevealOnComplete() {
			ui.revealTask(finished[0])
		}
	}
}

func (ui *RootUI) upsertTask(task *model.DownloadTask) {
	for i, existing := range ui.tasks {
		if existing.ID == task.ID {
			ui.tasks[i] = task
			return
		}
	}
	ui.tasks = append([]*model.DownloadTask{task}, ui.tasks...)
}

func (ui *RootUI) revealTask(task *model.DownloadTask) {
	if task.Status != model.TaskStatusCompleted || task.OutputPath == "" {
		return
	}
	if err := ui.reveal(task.OutputPath); err != nil {
		ui.logger.Warn("failed to reveal file", zap.String("path", task.OutputPath), zap.Error(err))
		ui.setDetail(ui.localization.GetText(KeyErrorOpeningFile) + ": " + err.Error())
	}
}

func (ui *RootUI) setBusy(busy bool) {
	ui.busy = busy
	if busy {
		ui.downloadBtn.SetText(ui.localization.GetText(KeyCancel))
		ui.spinner.Show()
		return
	}
	ui.downloadBtn.SetText(ui.localization.GetText(KeyDownload))
	ui.spinner.Hide()
}

func (ui *RootUI) setOutcome(o model.Outcome) {
	ui.outcome = o
	ui.outcomeLabel.SetText(ui.localization.OutcomeMessage(o))
	ui.statusLabel.SetText(StatusPrefix + string(o))
}

func (ui *RootUI) setDetail(text string) {
	ui.detailLabel.SetText(text)
	if text == "" {
		ui.detailLabel.Hide()
		return
	}
	ui.detailLabel.Show()
}

// onShowSettings shows the settings dialog and applies the result
func (ui *RootUI) onShowSettings() {
	ShowSettingsDialog(ui.window, ui.settings, ui.localization, ui.applySettings)
}

func (ui *RootUI) applySettings() {
	ui.downloadSvc.SetAudioFormat(ui.settings.GetAudioFormat().String())
	ui.downloadSvc.SetMaxParallelDownloads(ui.settings.GetMaxParallelDownloads())
	ui.localization.SetLanguage(ui.settings.GetLanguage())
	ui.refreshUITexts()
	ui.createMenu()
}

func taskLine(task *model.DownloadTask) string {
	line := task.Status.String() + MiddleDotSeparator + task.GetDisplayTitle()
	if task.LastError != "" {
		line += MiddleDotSeparator + task.LastError
	}
	return line
}
