package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/services"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/ui"
)

// Output formats of the run command.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

func (c *command) runCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Query every configured account once and send the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			output = strings.ToLower(output)
			switch output {
			case OutputText, OutputJSON, OutputYAML:
			default:
				return fmt.Errorf("unknown output format %q (want text, json or yaml)", output)
			}

			// Structured output owns stdout; console notifications go to stderr.
			notifyOut := c.stdout
			if output != OutputText {
				notifyOut = c.stderr
			}

			a, err := newApp(cmd.Context(), c.cfg, notifyOut)
			if err != nil {
				return err
			}
			defer a.Close()

			creds, err := a.credentials()
			if err != nil {
				return err
			}

			result := a.manager.Run(cmd.Context(), creds)
			return c.writeResult(c.stdout, output, result)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", OutputText, "output format (text, json, yaml)")
	return cmd
}

func (c *command) writeResult(w io.Writer, format string, result *services.RunResult) error {
	switch format {
	case OutputJSON:
		b, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result to JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to marshal result to YAML: %w", err)
		}
		return enc.Close()
	default:
		return ui.NewConsole(w, !c.flags.noColor).Print(ui.RenderOutcomes(result.Outcomes))
	}
}
