package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openfroyo/recordstore/pkg/config"
)

const shellHelp = `commands:
  insert <id> <value>
  get <id>
  update <id> <value>
  delete <id>
  list [limit [offset]]
  count
  exit`

func newShellCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session against one store handle",
		Long: `Read operations from stdin, one per line, and run them against a single
open store. Errors are printed and the session continues.

With --config, edits to the log level in the config file take effect
without restarting the session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(ctx context.Context, s *session) error {
				if opts.configPath != "" {
					err := config.Watch(ctx, opts.configPath, s.logger, func(cfg *config.Config) {
						if err := s.tel.Logger.SetLevel(cfg.Telemetry.Logging.Level); err != nil {
							s.logger.WithError(err).Warn("failed to apply log level")
						}
					})
					if err != nil {
						return err
					}
				}
				return runShell(ctx, s, cmd.InOrStdin(), cmd.OutOrStdout(), opts.jsonOutput)
			})
		},
	}
}

// runShell executes lines from in until EOF, "exit", or ctx is done.
func runShell(ctx context.Context, s *session, in io.Reader, out io.Writer, asJSON bool) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch line {
		case "exit", "quit":
			return nil
		case "help":
			fmt.Fprintln(out, shellHelp)
			continue
		}

		op, err := parseShellLine(line)
		if err == nil {
			var res *Result
			res, err = apply(ctx, s.store, op)
			if err == nil {
				err = printResult(out, res, asJSON)
			}
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
	return scanner.Err()
}

// parseShellLine turns "update 3 some value" into an Op. Everything after
// the id is the value, so values may contain spaces.
func parseShellLine(line string) (Op, error) {
	fields := strings.Fields(line)
	op := Op{Op: strings.ToLower(fields[0])}

	switch op.Op {
	case OpInsert, OpUpdate:
		if len(fields) < 2 {
			return op, fmt.Errorf("usage: %s <id> <value>", op.Op)
		}
		id, err := parseID(fields[1])
		if err != nil {
			return op, err
		}
		op.ID = id
		op.Value = strings.Join(fields[2:], " ")

	case OpRead, "read", OpDelete:
		if len(fields) != 2 {
			return op, fmt.Errorf("usage: %s <id>", op.Op)
		}
		id, err := parseID(fields[1])
		if err != nil {
			return op, err
		}
		op.ID = id

	case OpList:
		if len(fields) > 3 {
			return op, fmt.Errorf("usage: list [limit [offset]]")
		}
		nums := make([]int, 2)
		for i, f := range fields[1:] {
			n, err := strconv.Atoi(f)
			if err != nil {
				return op, fmt.Errorf("invalid number %q", f)
			}
			nums[i] = n
		}
		op.Limit, op.Offset = nums[0], nums[1]

	case OpCount:
		if len(fields) != 1 {
			return op, fmt.Errorf("usage: count")
		}

	default:
		return op, fmt.Errorf("unknown command %q (try help)", fields[0])
	}

	return op, nil
}
