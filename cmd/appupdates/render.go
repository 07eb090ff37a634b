package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	appErrors "appupdates/internal/errors"
	"appupdates/internal/update"
)

var (
	primaryColor = lipgloss.Color("#7D56F4")
	dimColor     = lipgloss.Color("#6272A4")
	errorColor   = lipgloss.Color("#FF5555")
	successColor = lipgloss.Color("#50FA7B")

	styleLabel   = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	styleDim     = lipgloss.NewStyle().Foreground(dimColor)
	styleError   = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
	styleSuccess = lipgloss.NewStyle().Bold(true).Foreground(successColor)
)

// knownFields are printed first, in this order.
var knownFields = []string{"apk", "version", "versionStr", "changelog"}

func printManifest(w io.Writer, m *update.Manifest, renderMarkdown func(string) string) {
	row := func(label, value string) {
		_, _ = fmt.Fprintf(w, "%s %s\n", styleLabel.Render(fmt.Sprintf("%-11s", label+":")), value)
	}

	apk := m.APK
	if !m.HasAPK() {
		apk = styleDim.Render("(missing)")
	}
	row("apk", apk)
	if _, ok := m.Field("version"); ok {
		row("version", fmt.Sprintf("%d", m.Version))
	}
	if _, ok := m.Field("versionStr"); ok {
		row("versionStr", m.VersionStr)
	}

	var extra []string
	for _, k := range m.Keys() {
		if !isKnownField(k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		raw, _ := m.Field(k)
		row(k, string(raw))
	}

	if text := strings.TrimSpace(m.ChangelogText()); text != "" {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, styleLabel.Render("changelog:"))
		_, _ = fmt.Fprintln(w, renderMarkdown(text))
	}
}

func isKnownField(key string) bool {
	for _, k := range knownFields {
		if k == key {
			return true
		}
	}
	return false
}

func printError(w io.Writer, err error) {
	msg := err.Error()
	if code := appErrors.CodeOf(err); code != appErrors.CodeUnknown {
		msg = fmt.Sprintf("%s %s", msg, styleDim.Render("["+string(code)+"]"))
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", styleError.Render("Error:"), msg)
}

func buildMarkdownRenderer(format string, width int) func(string) string {
	if width <= 0 {
		width = 80
	}
	fallback := func(input string) string {
		return wordwrap.String(input, width)
	}

	style := strings.ToLower(strings.TrimSpace(format))
	if style == "" || style == "rich" || style == "dark" {
		style = "dark"
	}
	if style == "plain" {
		return fallback
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fallback
	}
	return func(input string) string {
		out, err := renderer.Render(input)
		if err != nil {
			return fallback(input)
		}
		return strings.TrimSpace(out)
	}
}
