package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// MonoTheme is a near-monochrome theme with slightly tighter spacing
type MonoTheme struct{}

// NewMonoTheme creates the application theme
func NewMonoTheme() fyne.Theme {
	return &MonoTheme{}
}

// Color returns the palette color for name
func (t *MonoTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	dark := variant == theme.VariantDark
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameButton:
		if dark {
			return color.NRGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
		}
		return color.NRGBA{R: 0x11, G: 0x11, B: 0x11, A: 0xff}
	case theme.ColorNameForegroundOnPrimary:
		if dark {
			return color.NRGBA{R: 0x11, G: 0x11, B: 0x11, A: 0xff}
		}
		return color.White
	case theme.ColorNameBackground:
		if dark {
			return color.NRGBA{R: 0x12, G: 0x12, B: 0x12, A: 0xff}
		}
		return color.White
	case theme.ColorNameInputBorder:
		return color.NRGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}
	case theme.ColorNamePlaceHolder, theme.ColorNameDisabled:
		return color.NRGBA{R: 0xaa, G: 0xaa, B: 0xaa, A: 0xff}
	case theme.ColorNameSuccess:
		return color.NRGBA{R: 46, G: 160, B: 67, A: 255}
	case theme.ColorNameError:
		return color.NRGBA{R: 183, G: 28, B: 28, A: 255}
	}
	return theme.DefaultTheme().Color(name, variant)
}

// Font returns the default font
func (t *MonoTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

// Icon returns the default icon
func (t *MonoTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

// Size returns tighter paddings, default for the rest
func (t *MonoTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNamePadding:
		return 3
	case theme.SizeNameInnerPadding:
		return 6
	case theme.SizeNameInputRadius:
		return 6
	case theme.SizeNameHeadingText:
		return 20
	}
	return theme.DefaultTheme().Size(name)
}
