package ui

// Package ui contains the Fyne desktop shell: a URL entry, a Download button
// that turns into Cancel while busy, a folder picker, the localized outcome
// line, a list of this session's tasks and a settings dialog.
