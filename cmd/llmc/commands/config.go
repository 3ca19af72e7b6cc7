package commands

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MiniPandi/LLMC/cmd/llmc/internal/config"
)

// serveKeys lists the keys of llmc.yaml; the value reports whether the key
// holds a boolean.
var serveKeys = map[string]bool{
	"addr":            false,
	"model_a":         false,
	"model_b":         false,
	"system":          false,
	"opener":          false,
	"pacing":          false,
	"autostart_delay": false,
	"no_pull":         true,
	"transport":       false,
	"ollama_url":      false,
	"archive":         false,
	"archive_dir":     false,
}

func knownKeys() string {
	keys := make([]string, 0, len(serveKeys))
	for k := range serveKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage contexts.

A context is a named directory holding an llmc.yaml with serve settings.
Flags given to 'llmc serve' override the context; the PORT environment
variable overrides the context's addr.

Keys: ` + knownKeys() + `

Examples:
  llmc config add-context local
  llmc config use-context local
  llmc config get-contexts
  llmc config set local model_a llama3.2
  llmc config get local model_a`,
}

var configGetContextsCmd = &cobra.Command{
	Use:     "get-contexts",
	Aliases: []string{"list-contexts", "ls"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		names, err := cfg.ListContexts()
		if err != nil {
			return err
		}

		if len(names) == 0 {
			fmt.Println("No contexts configured.")
			fmt.Println("Create one with: llmc config add-context <name>")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tSERVICES")
		for _, name := range names {
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			services, _ := config.ListServices(cfg.ContextDir(name))
			fmt.Fprintf(w, "%s\t%s\t%s\n", current, name, strings.Join(services, ", "))
		}
		return w.Flush()
	},
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Create a new context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.AddContext(args[0]); err != nil {
			return err
		}
		fmt.Printf("Context %q created.\n", args[0])
		fmt.Printf("Configure it with: llmc config set %s <key> <value>\n", args[0])
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context and its settings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.DeleteContext(args[0]); err != nil {
			return err
		}
		fmt.Printf("Context %q deleted.\n", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		fmt.Printf("Switched to context %q.\n", args[0])
		return nil
	},
}

var configCurrentContextCmd = &cobra.Command{
	Use:   "current-context",
	Short: "Display the current context name",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if cfg.CurrentContext == "" {
			fmt.Println("No current context set.")
			return nil
		}
		fmt.Println(cfg.CurrentContext)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <context> <key> <value>",
	Short: "Set a serve setting in a context",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		ctxName, key, raw := args[0], args[1], args[2]
		contextDir, err := cfg.ResolveContext(ctxName)
		if err != nil {
			return err
		}
		isBool, ok := serveKeys[key]
		if !ok {
			return fmt.Errorf("unknown key %q (known: %s)", key, knownKeys())
		}
		var value any = raw
		if isBool {
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return fmt.Errorf("%s: %q is not a boolean", key, raw)
			}
			value = b
		}

		m, err := loadServeMap(contextDir)
		if err != nil {
			return err
		}
		m[key] = value

		if err := config.SaveService(contextDir, config.ServiceName, &m); err != nil {
			return err
		}
		if _, err := config.LoadServe(contextDir); err != nil {
			return fmt.Errorf("saved config does not load: %w", err)
		}
		fmt.Printf("Set %s = %v (context: %s)\n", key, value, ctxName)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <context> [key]",
	Short: "Get one or all serve settings of a context",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		contextDir, err := cfg.ResolveContext(args[0])
		if err != nil {
			return err
		}
		m, err := loadServeMap(contextDir)
		if err != nil {
			return err
		}

		if len(args) == 1 {
			if len(m) == 0 {
				fmt.Println("No settings.")
				return nil
			}
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			for _, k := range keys {
				fmt.Printf("%s: %v\n", k, m[k])
			}
			return nil
		}

		val, ok := m[args[1]]
		if !ok {
			return fmt.Errorf("key %q not set in context %q", args[1], args[0])
		}
		fmt.Println(val)
		return nil
	},
}

// loadServeMap reads llmc.yaml as a generic map, empty if the file is
// missing or empty.
func loadServeMap(contextDir string) (map[string]any, error) {
	existing, err := config.LoadService[map[string]any](contextDir, config.ServiceName)
	if err != nil {
		if errors.Is(err, config.ErrServiceNotFound) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("cannot read existing config: %w", err)
	}
	if *existing == nil {
		return map[string]any{}, nil
	}
	return *existing, nil
}

func init() {
	configCmd.AddCommand(configGetContextsCmd)
	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configCurrentContextCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)

	rootCmd.AddCommand(configCmd)
}
