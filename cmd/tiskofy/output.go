package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/beonanotherplanet/tiskofy/internal/history"
	"github.com/beonanotherplanet/tiskofy/internal/model"
)

func writeJSON(out io.Writer, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func taskView(task *model.DownloadTask) map[string]any {
	view := map[string]any{
		"id":      task.ID,
		"url":     task.URL,
		"source":  task.Source.String(),
		"title":   task.GetDisplayTitle(),
		"status":  task.Status.String(),
		"outcome": string(model.OutcomeOf(task)),
	}
	if task.OutputPath != "" {
		view["output"] = task.OutputPath
	}
	if task.LastError != "" {
		view["error"] = task.LastError
	}
	return view
}

func taskLine(task *model.DownloadTask) string {
	parts := []string{string(model.OutcomeOf(task)), task.GetDisplayTitle()}
	switch {
	case task.OutputPath != "":
		parts = append(parts, task.OutputPath)
	case task.LastError != "":
		parts = append(parts, task.LastError)
	}
	return strings.Join(parts, "\t")
}

func entryLine(entry history.Entry) string {
	title := entry.Title
	if title == "" {
		title = entry.URL
	}
	detail := entry.OutputPath
	if entry.Error != "" {
		detail = entry.Error
	}
	return strings.Join([]string{
		entry.FinishedAt.Local().Format(time.DateTime),
		string(entry.Outcome()),
		title,
		detail,
	}, "\t")
}
