package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MiniPandi/LLMC/cmd/llmc/internal/build"
)

var versionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(versionFormat); err != nil {
			return err
		}
		if versionFormat != formatText {
			return writeStructured(os.Stdout, versionFormat, build.Get())
		}

		fmt.Println(build.String())
		if IsVerbose() {
			fmt.Printf("  go:     %s\n", build.Get().Go)
			if cfg, err := GetConfig(); err == nil {
				fmt.Printf("  config: %s\n", cfg.Dir)
			} else {
				fmt.Printf("  config: (unavailable: %v)\n", err)
			}
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", formatText, "output format (text, json, yaml)")
	rootCmd.AddCommand(versionCmd)
}
