// Package model defines the data passed between the download service, the UI
// and the CLI: download tasks, their status, the outcome shown to the user,
// and expanded playlists.
package model
