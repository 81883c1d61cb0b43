package commands

import (
	"github.com/spf13/cobra"
)

func newInsertCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "insert <id> <value>",
		Short: "Create a record",
		Long: `Create a record with the given id and value.

Fails if a record with the same id already exists; the stored value is left
untouched.`,
		Example: `  recordctl --driver bolt --path records.bolt insert 1 hello`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.runOp(cmd, Op{Op: OpInsert, ID: id, Value: args[1]})
		},
	}
}

func newGetCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "get <id>",
		Aliases: []string{"read"},
		Short:   "Print the value of a record",
		Long: `Print the value stored for id.

A missing record prints "absent" (or {"found":false} with --json) and is not
an error. An empty value prints an empty line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.runOp(cmd, Op{Op: OpRead, ID: id})
		},
	}
}

func newUpdateCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <value>",
		Short: "Replace the value of an existing record",
		Long: `Replace the value stored for id.

Updating a missing record changes nothing and reports "no record <id>".`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.runOp(cmd, Op{Op: OpUpdate, ID: id, Value: args[1]})
		},
	}
}

func newDeleteCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a record",
		Long:  `Remove the record for id. Deleting a missing record is a no-op.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.runOp(cmd, Op{Op: OpDelete, ID: id})
		},
	}
}

func newListCommand(opts *globalOptions) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records in id order",
		Example: `  # First page of 20 records
  recordctl --path records.db list --limit 20

  # Second page
  recordctl --path records.db list --limit 20 --offset 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runOp(cmd, Op{Op: OpList, Limit: limit, Offset: offset})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum records to print (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "records to skip")

	return cmd
}

func newCountCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runOp(cmd, Op{Op: OpCount})
		},
	}
}
