package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MiniPandi/LLMC/pkg/transcript"
)

var (
	transcriptsDir    string
	transcriptsFormat string
)

var transcriptsCmd = &cobra.Command{
	Use:     "transcripts",
	Aliases: []string{"tr"},
	Short:   "Browse archived conversations",
	Long: `Browse conversations archived by 'llmc serve --archive badger'.

The archive cannot be opened while a server is using it.

Examples:
  llmc transcripts list
  llmc transcripts show 0b6f0c9e-3f53-4c0e-9a0c-3f2d1f1f7a10
  llmc transcripts show <run-id> --format yaml`,
}

var transcriptsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List archived runs",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(transcriptsFormat); err != nil {
			return err
		}
		store, err := openTranscripts()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		runs, err := store.Runs(ctx)
		if err != nil {
			return err
		}
		if transcriptsFormat != formatText {
			return writeStructured(os.Stdout, transcriptsFormat, runs)
		}
		if len(runs) == 0 {
			fmt.Println("No transcripts.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tSTARTED\tTURNS\tMODEL A\tMODEL B")
		for _, r := range runs {
			recs, err := store.Records(ctx, r.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), len(recs), r.ModelA, r.ModelB)
		}
		return w.Flush()
	},
}

// transcriptDump is the structured form of 'transcripts show'.
type transcriptDump struct {
	Run   transcript.Run      `json:"run" yaml:"run"`
	Turns []transcript.Record `json:"turns" yaml:"turns"`
}

var transcriptsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print one archived conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(transcriptsFormat); err != nil {
			return err
		}
		store, err := openTranscripts()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		recs, err := store.Records(ctx, args[0])
		if errors.Is(err, transcript.ErrNotFound) {
			return fmt.Errorf("run %q not found", args[0])
		}
		if err != nil {
			return err
		}
		var run transcript.Run
		runs, err := store.Runs(ctx)
		if err != nil {
			return err
		}
		for _, r := range runs {
			if r.ID == args[0] {
				run = r
			}
		}

		if transcriptsFormat != formatText {
			return writeStructured(os.Stdout, transcriptsFormat, transcriptDump{Run: run, Turns: recs})
		}

		fmt.Println(titleStyle.Render("run " + run.ID))
		fmt.Println(dimStyle.Render(fmt.Sprintf("started %s  A=%s  B=%s",
			run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.ModelA, run.ModelB)))
		if run.Opener != "" {
			fmt.Println(dimStyle.Render("opener: " + run.Opener))
		}
		for _, r := range recs {
			fmt.Println()
			fmt.Printf("%s %s %s\n", participantLabel(r.Participant),
				dimStyle.Render(fmt.Sprintf("#%d", r.Turn)), dimStyle.Render(r.Model))
			fmt.Println(r.Content)
		}
		return nil
	},
}

// openTranscripts opens the badger archive read by the transcripts commands.
func openTranscripts() (transcript.Store, error) {
	dir, err := archiveDir(transcriptsDir)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("no archive at %s", dir)
	}
	store, err := transcript.Open("badger://" + dir)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", dir, err)
	}
	return store, nil
}

func init() {
	transcriptsCmd.PersistentFlags().StringVar(&transcriptsDir, "archive-dir", "", "badger archive directory (default <config dir>/transcripts)")
	transcriptsCmd.PersistentFlags().StringVar(&transcriptsFormat, "format", formatText, "output format (text, json, yaml)")

	transcriptsCmd.AddCommand(transcriptsListCmd)
	transcriptsCmd.AddCommand(transcriptsShowCmd)
	rootCmd.AddCommand(transcriptsCmd)
}
