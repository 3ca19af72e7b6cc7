package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MiniPandi/LLMC/pkg/ollama"
)

const barWidth = 30

var pullURL string

var pullCmd = &cobra.Command{
	Use:   "pull <model>...",
	Short: "Download models into the local Ollama",
	Long: `Download one or more models into the Ollama server.

Examples:
  llmc pull llama3.2
  llmc pull llama3.2 qwen2.5 --ollama-url http://gpu-box:11434`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var client *ollama.Client
		var err error
		if pullURL != "" {
			client, err = ollama.NewClient(normalizeOllamaURL(pullURL))
		} else {
			client, err = ollama.FromEnvironment()
		}
		if err != nil {
			return err
		}

		for _, model := range args {
			fmt.Println(titleStyle.Render("pulling " + model))
			p := &progressPrinter{}
			err := client.Pull(cmd.Context(), model, p.print)
			p.finish()
			if err != nil {
				fmt.Println(errStyle.Render("✗ " + model))
				return err
			}
			printSuccess("%s", model)
		}
		return nil
	},
}

// progressPrinter prints one line per status change. Download lines with
// a known size are redrawn in place when stdout is a terminal, and printed
// on change of whole percent otherwise.
type progressPrinter struct {
	status  string
	percent int
	open    bool
}

func (p *progressPrinter) print(pr ollama.Progress) {
	pct := pr.Percent()
	if pct < 0 {
		if pr.Status == p.status {
			return
		}
		p.finish()
		p.status = pr.Status
		fmt.Println(dimStyle.Render("  " + pr.Status))
		return
	}

	whole := int(pct)
	if pr.Status == p.status && whole == p.percent {
		return
	}
	if pr.Status != p.status {
		p.finish()
	}
	p.status, p.percent = pr.Status, whole

	filled := whole * barWidth / 100
	bar := labelA.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", barWidth-filled))
	fmt.Printf("\r  %s %3d%% %s", bar, whole, dimStyle.Render(shortStatus(pr.Status)))
	p.open = true
}

// finish ends a redrawn line.
func (p *progressPrinter) finish() {
	if p.open {
		fmt.Println()
		p.open = false
	}
}

// shortStatus trims the digest Ollama puts in download statuses.
func shortStatus(s string) string {
	if i := strings.Index(s, "sha256:"); i >= 0 && len(s) > i+19 {
		return s[:i+19]
	}
	return s
}

func init() {
	pullCmd.Flags().StringVar(&pullURL, "ollama-url", "", "Ollama base URL (default $OLLAMA_HOST or "+ollama.DefaultBaseURL+")")
	rootCmd.AddCommand(pullCmd)
}
