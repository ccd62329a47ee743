package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	serrors "github.com/vango-dev/vstore/internal/errors"
	"github.com/vango-dev/vstore/pkg/history"
	"github.com/vango-dev/vstore/pkg/storage"
	"github.com/vango-dev/vstore/pkg/storage/filestore"
)

func watchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print changes made to the file store by other processes",
		Long: `Watch the file driver's directory and print every persisted
field or history record that changes on disk.

Only the file driver supports watching.`,
		Args: cobra.NoArgs,
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			fs, ok := a.backend.(*filestore.Store)
			if !ok {
				return serrors.New("S031").
					WithDetail("watch needs the file driver, not " + a.cfg.Storage.Driver + ".")
			}

			codec, err := storage.CodecByName(a.cfg.Storage.Codec)
			if err != nil {
				return err
			}

			byKey := make(map[string]string)
			for _, fi := range a.store.Describe() {
				if fi.Persisted {
					byKey[fi.StorageKey] = fi.Name
				}
			}
			historyKey := ""
			if h := a.cfg.History; h != nil && h.UseStorage {
				historyKey = h.StorageKey
				if historyKey == "" {
					historyKey = history.DefaultStorageKey
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			info(cmd, "Watching %s", fs.Dir())
			return fs.Watch(ctx, func(c filestore.Change) {
				if c.Key == historyKey && historyKey != "" {
					info(cmd, "history record changed")
					return
				}
				name, ok := byKey[c.Key]
				if !ok {
					return
				}
				if c.Removed {
					warn(cmd, "%s removed", name)
					return
				}

				raw, found, err := fs.GetItem(ctx, c.Key)
				if err != nil || !found {
					return
				}
				v, err := codec.Decode(raw)
				if err != nil {
					warn(cmd, "%s changed but does not decode: %v", name, err)
					return
				}
				text, _ := storage.JSON.Encode(v)
				success(cmd, "%s = %s", name, text)
			})
		}),
	}
}
