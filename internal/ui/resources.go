package ui

import (
	"fyne.io/fyne/v2"
)

// AppIcon is looked up next to the working directory at startup
const AppIcon = "tiskofy.png"

// LoadLogoResource loads the logo from file path
func LoadLogoResource() (fyne.Resource, error) {
	return fyne.LoadResourceFromPath(AppIcon)
}
