package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/phobos/internal/db"
)

func (a *app) exportCmd() *cobra.Command {
	var (
		dbPath string
		list   bool
	)
	cmd := &cobra.Command{
		Use:   "export [log]",
		Short: "Store a decoded log in the SQLite database, or list stored logs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = a.cfg.GetDBPath()
			}
			if !list && len(args) == 0 {
				return errors.New("export needs a log file, or --list")
			}

			d, err := db.NewDB(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer d.Close()
			d.SetClock(a.clock)

			out := cmd.OutOrStdout()
			if list {
				ingests, err := d.Ingests(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSOURCE\tFORMAT\tVERSION\tMESSAGES\tERRORS\tCREATED")
				for _, in := range ingests {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
						in.ID, in.Source, in.Format, in.Version, in.Messages, in.Errors,
						in.CreatedAt.Format(time.RFC3339))
				}
				return tw.Flush()
			}

			res, err := a.readLog(args[0])
			if err != nil {
				return err
			}
			id, err := d.RecordIngest(cmd.Context(), args[0], res)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, res.Summary())
			fmt.Fprintf(out, "stored as %s in %s\n", id, dbPath)
			return nil
		},
	}
	a.addDecodeFlags(cmd)
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default from config)")
	cmd.Flags().BoolVar(&list, "list", false, "List stored logs instead of exporting")
	return cmd
}
