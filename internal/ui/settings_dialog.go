package ui

import (
	"sort"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/beonanotherplanet/tiskofy/internal/config"
)

// SettingsDialog represents the settings configuration dialog
type SettingsDialog struct {
	settings     *config.Settings
	localization *Localization
	window       fyne.Window
	dialog       *dialog.ConfirmDialog
	onSaved      func()

	downloadDirEntry *widget.Entry
	maxParallelEntry *widget.Entry
	formatSelect     *widget.Select
	languageSelect   *widget.Select
	askCheck         *widget.Check
	revealCheck      *widget.Check
}

// NewSettingsDialog creates a new settings dialog; onSaved runs after a save
func NewSettingsDialog(settings *config.Settings, localization *Localization, window fyne.Window, onSaved func()) *SettingsDialog {
	sd := &SettingsDialog{
		settings:     settings,
		localization: localization,
		window:       window,
		onSaved:      onSaved,
	}

	sd.createUI()
	return sd
}

// ShowSettingsDialog creates and shows the dialog in one step
func ShowSettingsDialog(window fyne.Window, settings *config.Settings, localization *Localization, onSaved func()) {
	NewSettingsDialog(settings, localization, window, onSaved).Show()
}

// Show displays the settings dialog
func (sd *SettingsDialog) Show() {
	sd.loadCurrentSettings()
	sd.dialog.Show()
}

func (sd *SettingsDialog) createUI() {
	t := sd.localization.GetText

	sd.downloadDirEntry = widget.NewEntry()
	browseDirBtn := widget.NewButton(t(KeyBrowse), sd.onBrowseDirectory)
	downloadDirRow := container.NewBorder(nil, nil, nil, browseDirBtn, sd.downloadDirEntry)

	sd.maxParallelEntry = widget.NewEntry()
	sd.maxParallelEntry.SetPlaceHolder(strconv.Itoa(config.MinParallel) + "-" + strconv.Itoa(config.MaxParallel))

	formats := make([]string, 0, len(config.AudioFormats))
	for _, f := range config.AudioFormats {
		formats = append(formats, f.String())
	}
	sd.formatSelect = widget.NewSelect(formats, nil)

	languageOptions := []string{}
	for code := range sd.settings.GetLanguageOptions() {
		languageOptions = append(languageOptions, code)
	}
	sort.Strings(languageOptions)
	sd.languageSelect = widget.NewSelect(languageOptions, nil)

	sd.askCheck = widget.NewCheck(t(KeyAskForFolder), nil)
	sd.revealCheck = widget.NewCheck(t(KeyRevealOnComplete), nil)

	form := container.NewVBox(
		widget.NewLabel(t(KeyDownloadDirectory)),
		downloadDirRow,
		sd.askCheck,
		widget.NewSeparator(),

		widget.NewLabel(t(KeyAudioFormat)),
		sd.formatSelect,

		widget.NewLabel(t(KeyMaxParallel)),
		sd.maxParallelEntry,
		sd.revealCheck,
		widget.NewSeparator(),

		widget.NewLabel(t(KeyLanguage)),
		sd.languageSelect,
	)

	sd.dialog = dialog.NewCustomConfirm(
		t(KeySettings),
		t(KeySave),
		t(KeyCancel),
		form,
		sd.onSave,
		sd.window,
	)

	sd.dialog.Resize(fyne.NewSize(460, 420))
}

func (sd *SettingsDialog) loadCurrentSettings() {
	sd.downloadDirEntry.SetText(sd.settings.GetDownloadDirectory())
	sd.maxParallelEntry.SetText(strconv.Itoa(sd.settings.GetMaxParallelDownloads()))
	sd.formatSelect.SetSelected(sd.settings.GetAudioFormat().String())
	sd.languageSelect.SetSelected(sd.settings.GetLanguage())
	sd.askCheck.SetChecked(sd.settings.GetAskForFolder())
	sd.revealCheck.SetChecked(sd.settings.GetRevealOnComplete())
}

func (sd *SettingsDialog) onBrowseDirectory() {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			return
		}
		sd.downloadDirEntry.SetText(uri.Path())
	}, sd.window)
}

func (sd *SettingsDialog) onSave(confirmed bool) {
	if !confirmed {
		return
	}
	sd.apply()

	if sd.onSaved != nil {
		sd.onSaved()
	}
}

// apply writes the widget values back to settings
func (sd *SettingsDialog) apply() {
	if dir := sd.downloadDirEntry.Text; dir != "" {
		sd.settings.SetDownloadDirectory(dir)
	}

	if n, err := strconv.Atoi(sd.maxParallelEntry.Text); err == nil {
		sd.settings.SetMaxParallelDownloads(n)
	}

	if sd.formatSelect.Selected != "" {
		sd.settings.SetAudioFormat(config.AudioFormat(sd.formatSelect.Selected))
	}

	if sd.languageSelect.Selected != "" {
		sd.settings.SetLanguage(sd.languageSelect.Selected)
	}

	sd.settings.SetAskForFolder(sd.askCheck.Checked)
	sd.settings.SetRevealOnComplete(sd.revealCheck.Checked)
}
