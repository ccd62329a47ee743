package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	serrors "github.com/vango-dev/vstore/internal/errors"
	"github.com/vango-dev/vstore/pkg/storage"
	"github.com/vango-dev/vstore/pkg/value"
)

func fieldsCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "fields",
		Short: "List the declared fields",
		Long: `List every declared field with its kind and the features
that apply to it.

Examples:
  vstore fields
  vstore fields --json`,
		Args: cobra.NoArgs,
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			infos := a.store.Describe()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FIELD\tKIND\tPERSISTED\tTRACKED\tSTORAGE KEY")
			for _, fi := range infos {
				kind := fi.KindName
				if fi.Computed {
					kind = "computed"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					fi.Name, kind, yesNo(fi.Persisted), yesNo(fi.Tracked), fi.StorageKey)
			}
			return tw.Flush()
		}),
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}

func getCmd(flags *globalFlags) *cobra.Command {
	var (
		path   string
		output string
	)

	cmd := &cobra.Command{
		Use:   "get <field>",
		Short: "Print a field value",
		Long: `Print the current value of a field, or of a value nested
inside it. Computed fields are evaluated.

Examples:
  vstore get theme
  vstore get layout --path panels.0.title
  vstore get layout -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, args []string) error {
			ref, err := a.store.State().Get(args[0])
			if err != nil {
				return err
			}
			v := ref.At(value.ParsePath(path)).Resolve()
			return printValue(cmd, v, output)
		}),
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "Dotted path below the field")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format: json or yaml")
	return cmd
}

func printValue(cmd *cobra.Command, v value.Value, format string) error {
	codec, err := storage.CodecByName(format)
	if err != nil {
		return serrors.New("S030").Wrap(err)
	}
	text, err := codec.Encode(v)
	if err != nil {
		return err
	}
	if codec == storage.JSON {
		text += "\n"
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), text)
	return err
}

func setCmd(flags *globalFlags) *cobra.Command {
	var (
		path     string
		raw      bool
		snapshot bool
	)

	cmd := &cobra.Command{
		Use:   "set <field> <json>",
		Short: "Write a field value",
		Long: `Write a field value given as JSON. With --path the value is
written below the field root through a copy-on-write reference.

Top-level writes of persisted fields are stored; nested writes are
stored only when persistence.deep is set.

Examples:
  vstore set theme '"dark"'
  vstore set theme dark --string
  vstore set layout '"tree"' --path panels.0
  vstore set layout '{"cols":3}' --save`,
		Args: cobra.ExactArgs(2),
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, args []string) error {
			name := args[0]

			var v value.Value = value.String(args[1])
			if !raw {
				decoded, err := value.Decode([]byte(args[1]))
				if err != nil {
					return serrors.New("S030").
						WithDetail(fmt.Sprintf("%q is not a JSON value.", args[1])).
						WithSuggestion("Quote strings ('\"dark\"') or pass --string").
						Wrap(err)
				}
				v = decoded
			}

			if path == "" {
				if err := a.store.State().Set(name, v); err != nil {
					return err
				}
			} else {
				ref, err := a.store.State().Get(name)
				if err != nil {
					return err
				}
				if err := ref.SetAt(value.ParsePath(path), v); err != nil {
					return err
				}
			}

			if snapshot {
				if err := a.store.SaveHistory(); err != nil {
					return err
				}
			}

			fi, err := a.store.Info(name)
			if err != nil {
				return err
			}
			if fi.Computed {
				warn(cmd, "%s is computed; the write was ignored", name)
				return nil
			}
			success(cmd, "Set %s", name)
			if path != "" && fi.Persisted && !(a.cfg.Persistence != nil && a.cfg.Persistence.Deep) {
				info(cmd, "nested writes are not persisted unless persistence.deep is set")
			}
			return nil
		}),
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "Dotted path below the field")
	cmd.Flags().BoolVar(&raw, "string", false, "Treat the value as a plain string")
	cmd.Flags().BoolVar(&snapshot, "save", false, "Save a history snapshot after writing")
	return cmd
}
