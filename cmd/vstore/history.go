package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	serrors "github.com/vango-dev/vstore/internal/errors"
	"github.com/vango-dev/vstore/pkg/value"
)

// requireHistory turns a missing history section into an S002 error. The
// store itself only logs in that case; on the command line it is a usage
// error.
func requireHistory(a *app) error {
	if a.store.HistoryEnabled() {
		return nil
	}
	return serrors.New("S002").
		WithSuggestion("Add a history section with the tracked keys to the definition file")
}

func warnVolatileHistory(cmd *cobra.Command, a *app) {
	if a.cfg.History != nil && !a.cfg.History.UseStorage {
		warn(cmd, "history.useStorage is off; history does not outlive this command")
	}
}

func saveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Save a history snapshot of the tracked fields",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			if err := requireHistory(a); err != nil {
				return err
			}
			warnVolatileHistory(cmd, a)
			if err := a.store.SaveHistory(); err != nil {
				return err
			}
			return printPosition(cmd, a, "Saved snapshot")
		}),
	}
}

func undoCmd(flags *globalFlags) *cobra.Command {
	return stepCmd(flags, "undo", "Restore the previous snapshot")
}

func redoCmd(flags *globalFlags) *cobra.Command {
	return stepCmd(flags, "redo", "Restore the next snapshot")
}

func stepCmd(flags *globalFlags, op, short string) *cobra.Command {
	return &cobra.Command{
		Use:   op,
		Short: short,
		Long: short + `.

Restored values are not written to the field storage keys; with
history.useStorage they are restored from the history record the
next time the store is opened.`,
		Args: cobra.NoArgs,
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			if err := requireHistory(a); err != nil {
				return err
			}
			warnVolatileHistory(cmd, a)

			can := a.store.CanUndo
			do := a.store.Undo
			if op == "redo" {
				can, do = a.store.CanRedo, a.store.Redo
			}
			if !can() {
				warn(cmd, "Nothing to %s", op)
				return nil
			}
			if err := do(); err != nil {
				return err
			}
			return printPosition(cmd, a, fmt.Sprintf("%s done", op))
		}),
	}
}

func printPosition(cmd *cobra.Command, a *app, msg string) error {
	rec, err := a.store.History()
	if err != nil {
		return err
	}
	success(cmd, "%s (position %d of %d)", msg, rec.Position+1, rec.Len())
	return nil
}

func historyCmd(flags *globalFlags) *cobra.Command {
	var (
		asJSON   bool
		clearAll bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the history record",
		Long: `Show the snapshots in the history record. The current
position is marked with '>'.

Examples:
  vstore history
  vstore history --json
  vstore history --clear`,
		Args: cobra.NoArgs,
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			if err := requireHistory(a); err != nil {
				return err
			}
			if clearAll {
				if err := a.store.ClearHistory(); err != nil {
					return err
				}
				success(cmd, "Cleared history")
			}

			rec, err := a.store.History()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}

			fmt.Fprintf(out, "tracked: %v\n", a.store.HistoryKeys())
			for i, snap := range rec.States {
				marker := " "
				if i == rec.Position {
					marker = ">"
				}
				encoded, err := value.Encode(snap)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %3d  %s\n", marker, i, encoded)
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw record")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Keep only the current snapshot")
	return cmd
}
