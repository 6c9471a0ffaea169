package ui

import (
	"strings"

	"fyne.io/fyne/v2/lang"

	"github.com/beonanotherplanet/tiskofy/internal/model"
)

// Localization manages UI text translations
type Localization struct {
	currentLanguage string
	texts           map[string]map[string]string
}

// Text keys for localization
const (
	KeyAppTitle          = "app_title"
	KeyHeading           = "heading"
	KeyDownload          = "download"
	KeyCancel            = "cancel"
	KeySettings          = "settings"
	KeyFile              = "file"
	KeyLanguage          = "language"
	KeyDownloadDirectory = "download_directory"
	KeyMaxParallel       = "max_parallel"
	KeyAudioFormat       = "audio_format"
	KeyAskForFolder      = "ask_for_folder"
	KeyRevealOnComplete  = "reveal_on_complete"
	KeySave              = "save"
	KeyBrowse            = "browse"
	KeyEnterURL          = "enter_url"
	KeySettingsSaved     = "settings_saved"
	KeyAlreadyInQueue    = "already_in_queue"
	KeyErrorOpeningFile  = "error_opening_file"
)

// outcomeKey maps an outcome to its message key
func outcomeKey(o model.Outcome) string {
	return "outcome_" + string(o)
}

// NewLocalization creates a new localization manager
func NewLocalization() *Localization {
	l := &Localization{
		currentLanguage: "en",
		texts:           make(map[string]map[string]string),
	}

	l.initializeTexts()
	return l
}

// SetLanguage sets the current language. "system" follows the OS locale.
func (l *Localization) SetLanguage(code string) {
	if code == "system" {
		code = "en"
		if strings.HasPrefix(strings.ToLower(lang.SystemLocale().LanguageString()), "ko") {
			code = "ko"
		}
	}

	if _, exists := l.texts[code]; exists {
		l.currentLanguage = code
	}
}

// GetText returns localized text for the given key
func (l *Localization) GetText(key string) string {
	if texts, exists := l.texts[l.currentLanguage]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	if texts, exists := l.texts["en"]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	return key
}

// OutcomeMessage returns the status line shown for an outcome
func (l *Localization) OutcomeMessage(o model.Outcome) string {
	return l.GetText(outcomeKey(o))
}

// GetCurrentLanguage returns the current language code
func (l *Localization) GetCurrentLanguage() string {
	return l.currentLanguage
}

// GetAvailableLanguages returns map of available languages with their display names
func (l *Localization) GetAvailableLanguages() map[string]string {
	return map[string]string{
		"en": "English",
		"ko": "한국어",
	}
}

func (l *Localization) initializeTexts() {
	l.texts["en"] = map[string]string{
		KeyAppTitle:          "Tiskofy",
		KeyHeading:           "Get the audio file from a YouTube or SoundCloud URL",
		KeyDownload:          "Download",
		KeyCancel:            "Cancel",
		KeySettings:          "Settings",
		KeyFile:              "File",
		KeyLanguage:          "Language",
		KeyDownloadDirectory: "Download Directory",
		KeyMaxParallel:       "Max Parallel Downloads",
		KeyAudioFormat:       "Audio Format",
		KeyAskForFolder:      "Ask where to save each download",
		KeyRevealOnComplete:  "Show the file when the download finishes",
		KeySave:              "Save",
		KeyBrowse:            "Browse",
		KeyEnterURL:          "Copy & Paste the YouTube or SoundCloud URL...",
		KeySettingsSaved:     "Settings saved",
		KeyAlreadyInQueue:    "Already in queue",
		KeyErrorOpeningFile:  "Error opening file",

		outcomeKey(model.OutcomeCompleted):  "✅ The download is complete.",
		outcomeKey(model.OutcomeInvalidURL): "❓ The URL is wrong. Please check the YouTube or SoundCloud URL.",
		outcomeKey(model.OutcomeUnknown):    "❌ An unexpected error has occurred.",
		outcomeKey(model.OutcomeProcessing): "📁 Busy extracting the audio from the clip...",
		outcomeKey(model.OutcomeCanceled):   "🥺 Oh, you canceled! That's okay. Just press the Download button again to continue.",
		outcomeKey(model.OutcomeNone):       "...",
	}

	l.texts["ko"] = map[string]string{
		KeyAppTitle:          "Tiskofy",
		KeyHeading:           "YouTube 또는 SoundCloud URL에서 오디오 파일 받기",
		KeyDownload:          "다운로드",
		KeyCancel:            "취소",
		KeySettings:          "설정",
		KeyFile:              "파일",
		KeyLanguage:          "언어",
		KeyDownloadDirectory: "저장 폴더",
		KeyMaxParallel:       "동시 다운로드 수",
		KeyAudioFormat:       "오디오 형식",
		KeyAskForFolder:      "다운로드할 때마다 저장 위치 묻기",
		KeyRevealOnComplete:  "다운로드가 끝나면 파일 보여주기",
		KeySave:              "저장",
		KeyBrowse:            "찾아보기",
		KeyEnterURL:          "YouTube 또는 SoundCloud URL을 붙여넣으세요...",
		KeySettingsSaved:     "설정이 저장되었습니다",
		KeyAlreadyInQueue:    "이미 대기열에 있습니다",
		KeyErrorOpeningFile:  "파일을 열 수 없습니다",

		outcomeKey(model.OutcomeCompleted):  "✅ 다운로드가 완료되었습니다.",
		outcomeKey(model.OutcomeInvalidURL): "❓ URL이 올바르지 않습니다. YouTube 또는 SoundCloud URL을 확인해 주세요.",
		outcomeKey(model.OutcomeUnknown):    "❌ 예기치 않은 오류가 발생했습니다.",
		outcomeKey(model.OutcomeProcessing): "📁 오디오를 추출하는 중입니다...",
		outcomeKey(model.OutcomeCanceled):   "🥺 취소되었습니다. 다운로드 버튼을 다시 누르면 이어서 받을 수 있어요.",
		outcomeKey(model.OutcomeNone):       "...",
	}
}
