package main

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/plus3/keepsake/slot"
	"github.com/plus3/keepsake/snapshot"
	"github.com/spf13/cobra"
)

func inspectCmd() *cobra.Command {
	var codecName string
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Summarize the entities and globals of a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := snapshot.ByName(pick(codecName, cfg.Snapshot.CodecName()))
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			snap, err := codec.Decode(data)
			if err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			return summarize(cmd.OutOrStdout(), snap)
		},
	}
	cmd.Flags().StringVar(&codecName, "codec", "", "codec of the file (json, yaml, json+gzip, yaml+gzip)")
	return cmd
}

func summarize(w io.Writer, snap *snapshot.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "entities\t%d\n", snap.Len())
	fmt.Fprintf(tw, "globals\t%d\n", len(snap.Globals))
	for _, key := range snap.Globals.Keys() {
		fmt.Fprintf(tw, "  global\t%s\n", key)
	}

	counts := snap.CountByKey()
	for _, key := range slices.Sorted(maps.Keys(counts)) {
		fmt.Fprintf(tw, "  component\t%s\t%d\n", key, counts[key])
	}
	return tw.Flush()
}

func convertCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Re-encode a snapshot file with another codec",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := snapshot.ByName(pick(from, cfg.Snapshot.CodecName()))
			if err != nil {
				return err
			}
			out, err := snapshot.ByName(to)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			snap, err := in.Decode(data)
			if err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			if data, err = out.Encode(snap); err != nil {
				return fmt.Errorf("encode %s: %w", args[1], err)
			}
			if err := os.WriteFile(args[1], data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d entities to %s (%s)\n", snap.Len(), args[1], out.Name())
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "codec of the input file")
	cmd.Flags().StringVar(&to, "to", "yaml", "codec of the output file")
	return cmd
}

func slotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Manage named save slots",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored slots",
		Args:  cobra.NoArgs,
		RunE: withSlots(func(cmd *cobra.Command, store *slot.Store, args []string) error {
			infos, err := store.List()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSIZE\tCODEC\tSAVED")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", info.Name, info.Size, info.Codec, info.SavedAt.Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		}),
	}

	export := &cobra.Command{
		Use:   "export <slot> <file>",
		Short: "Write a slot to a file",
		Args:  cobra.ExactArgs(2),
		RunE: withSlots(func(cmd *cobra.Command, store *slot.Store, args []string) error {
			data, err := store.Get(args[0])
			if err != nil {
				return err
			}
			return os.WriteFile(args[1], data, 0o644)
		}),
	}

	var importCodec string
	imp := &cobra.Command{
		Use:   "import <file> <slot>",
		Short: "Store a snapshot file in a slot",
		Args:  cobra.ExactArgs(2),
		RunE: withSlots(func(cmd *cobra.Command, store *slot.Store, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return store.WithCodec(pick(importCodec, cfg.Snapshot.CodecName())).Put(args[1], data)
		}),
	}
	imp.Flags().StringVar(&importCodec, "codec", "", "codec recorded for the slot")

	remove := &cobra.Command{
		Use:   "delete <slot>",
		Short: "Delete a slot",
		Args:  cobra.ExactArgs(1),
		RunE: withSlots(func(cmd *cobra.Command, store *slot.Store, args []string) error {
			return store.Delete(args[0])
		}),
	}

	cmd.AddCommand(list, export, imp, remove)
	return cmd
}

func withSlots(run func(cmd *cobra.Command, store *slot.Store, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		store, err := openSlots()
		if err != nil {
			return err
		}
		defer store.Close()
		return run(cmd, store, args)
	}
}

func openSlots() (*slot.Store, error) {
	return slot.Open(slot.Config{
		Path:       cfg.Slots.Path,
		InMemory:   cfg.Slots.InMemory,
		SyncWrites: cfg.Slots.SyncWrites,
		Logger:     logger.Named("badger"),
	})
}

func pick(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}
