package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tripmark/internal/i18n"
	"tripmark/internal/imaging"
	"tripmark/internal/place"
	"tripmark/internal/slot"
	"tripmark/internal/store"
)

type opener func(ctx context.Context) (slot.Slot, func() error, error)

func newRootCmd(open opener, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "tripmark-admin",
		Short:        "Manage saved TripMark places",
		SilenceUsage: true,
	}
	root.SetOut(out)

	// withStore：打开槽位并在命令结束后关闭
	withStore := func(fn func(ctx context.Context, s slot.Slot, st *store.RecordStore) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			s, closeFn, err := open(ctx)
			if err != nil {
				return err
			}
			defer closeFn()
			return fn(ctx, s, store.New(s))
		}
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved places in insertion order",
		Args:  cobra.NoArgs,
		RunE: withStore(func(ctx context.Context, _ slot.Slot, st *store.RecordStore) error {
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tLAT\tLON\tIMAGE\tCOMMENT")
			for _, r := range st.Load(ctx) {
				fmt.Fprintf(w, "%s\t%.6f\t%.6f\t%t\t%s\n", r.Name, r.Lat, r.Lon, r.Image != "", r.Comment)
			}
			return w.Flush()
		}),
	}

	var comment, imagePath string
	add := &cobra.Command{
		Use:   "add NAME LAT LON",
		Short: "Save a place",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := recordFromArgs(args)
			if err != nil {
				return err
			}
			r.Comment = comment
			if imagePath != "" {
				b, err := os.ReadFile(imagePath)
				if err != nil {
					return err
				}
				if r.Image, err = imaging.Downscale(b, imaging.MaxSideFromEnv()); err != nil {
					return err
				}
			}
			return withStore(func(ctx context.Context, _ slot.Slot, st *store.RecordStore) error {
				return st.Add(ctx, r)
			})(cmd, args)
		},
	}
	add.Flags().StringVar(&comment, "comment", "", "optional comment")
	add.Flags().StringVar(&imagePath, "image", "", "optional image file, downscaled before saving")

	remove := &cobra.Command{
		Use:   "remove NAME LAT LON",
		Short: "Delete a place by name and exact coordinates",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := recordFromArgs(args)
			if err != nil {
				return err
			}
			return withStore(func(ctx context.Context, _ slot.Slot, st *store.RecordStore) error {
				return st.Remove(ctx, r.Key())
			})(cmd, args)
		},
	}

	export := &cobra.Command{
		Use:   "export",
		Short: "Write the saved places as JSON to stdout",
		Args:  cobra.NoArgs,
		RunE: withStore(func(ctx context.Context, _ slot.Slot, st *store.RecordStore) error {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(st.Load(ctx))
		}),
	}

	imp := &cobra.Command{
		Use:   "import FILE",
		Short: "Merge places from a JSON export, skipping duplicates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var recs []place.Record
			if err := json.Unmarshal(b, &recs); err != nil {
				return fmt.Errorf("import: %w", err)
			}
			return withStore(func(ctx context.Context, _ slot.Slot, st *store.RecordStore) error {
				n, err := st.Import(ctx, recs)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "imported %d of %d\n", n, len(recs))
				return nil
			})(cmd, args)
		},
	}

	lang := &cobra.Command{
		Use:   "lang [TAG]",
		Short: "Show or set the interface language",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, s slot.Slot, _ *store.RecordStore) error {
				p := i18n.NewPrefs(s)
				if len(args) == 1 {
					if err := p.Set(ctx, args[0]); err != nil {
						return err
					}
				}
				fmt.Fprintln(out, p.Get(ctx))
				return nil
			})(cmd, args)
		},
	}

	root.AddCommand(list, add, remove, export, imp, lang)
	return root
}

func recordFromArgs(args []string) (place.Record, error) {
	lat, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return place.Record{}, fmt.Errorf("bad latitude %q", args[1])
	}
	lon, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return place.Record{}, fmt.Errorf("bad longitude %q", args[2])
	}
	r := place.Record{Name: args[0], Lat: lat, Lon: lon}
	return r, r.Validate()
}
