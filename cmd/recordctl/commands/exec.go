package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Script is a YAML list of operations run in a single session.
type Script struct {
	Steps []Op `yaml:"steps"`
}

// loadScript reads a script from path, or stdin when path is "-". Both a
// bare list and a {steps: [...]} document are accepted.
func loadScript(path string, stdin io.Reader) (*Script, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse script YAML: %w", err)
	}

	script := &Script{}
	if len(node.Content) == 0 {
		return script, nil
	}
	if node.Content[0].Kind == yaml.SequenceNode {
		err = node.Content[0].Decode(&script.Steps)
	} else {
		err = node.Decode(script)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode script: %w", err)
	}
	return script, nil
}

func newExecCommand(opts *globalOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Run a script of operations in one session",
		Long: `Run a YAML list of operations against a single store handle.

Each step has an op (insert, get, update, delete, list, count), an id, and,
where needed, a value or limit/offset. Execution stops at the first failing
step. Because the store stays open for the whole script, this also works
with the in-memory database.`,
		Example: `  # script.yaml
  - {op: insert, id: 1, value: test_value}
  - {op: update, id: 1, value: updated_value}
  - {op: get, id: 1}
  - {op: delete, id: 1}
  - {op: get, id: 1}

  recordctl exec -f script.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := loadScript(file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			return opts.withSession(cmd, func(ctx context.Context, s *session) error {
				results := make([]*Result, 0, len(script.Steps))
				for i, step := range script.Steps {
					res, err := apply(ctx, s.store, step)
					if err != nil {
						return fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
					}
					s.logger.WithField("step", i+1).WithField("op", res.Op).Debug("script step completed")
					if opts.jsonOutput {
						results = append(results, res)
						continue
					}
					if err := printResult(cmd.OutOrStdout(), res, false); err != nil {
						return err
					}
				}
				if opts.jsonOutput {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(results)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "script file (- for stdin)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
