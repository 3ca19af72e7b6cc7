package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-yaml"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	colorA   = lipgloss.Color("#00ff9f")
	colorB   = lipgloss.Color("#58a6ff")
	colorDim = lipgloss.Color("#6e7681")
	colorErr = lipgloss.Color("#ff7b72")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorA)
	dimStyle   = lipgloss.NewStyle().Foreground(colorDim)
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorErr)
	labelA     = lipgloss.NewStyle().Bold(true).Foreground(colorA)
	labelB     = lipgloss.NewStyle().Bold(true).Foreground(colorB)
)

// participantLabel renders "A" or "B" in the participant's color.
func participantLabel(p int) string {
	if p == 2 {
		return labelB.Render("B")
	}
	return labelA.Render("A")
}

// writeStructured writes v to w as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func validateFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (want text, json or yaml)", format)
	}
}

// printSuccess prints a success line with a checkmark.
func printSuccess(format string, args ...any) {
	fmt.Fprintln(os.Stdout, titleStyle.Render("✓")+" "+fmt.Sprintf(format, args...))
}
