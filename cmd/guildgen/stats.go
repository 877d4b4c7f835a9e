package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gildcraft/guildgen/pkg/config"
	"github.com/gildcraft/guildgen/pkg/tracker"
)

func newStatsCmd(configPath *string) *cobra.Command {
	var (
		template string
		recent   int
		since    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show usage recorded in the usage ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			tr, err := tracker.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = tr.Close() }()

			ctx := context.Background()
			out := cmd.OutOrStdout()

			// Recent generations view
			if recent > 0 {
				recs, err := tr.Recent(ctx, recent)
				if err != nil {
					return err
				}
				if len(recs) == 0 {
					fmt.Fprintln(out, "No usage data found.")
					return nil
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "WHEN\tTEMPLATE\tMODEL\tSOURCE\tTOKENS\tLATENCY")
				for _, r := range recs {
					tmpl := r.Template
					if tmpl == "" {
						tmpl = "-"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%dms\n",
						humanize.Time(r.CreatedAt), tmpl, r.Model, r.Source, humanize.Comma(int64(r.TotalTokens)), r.LatencyMs)
				}
				return w.Flush()
			}

			// Default: usage summary
			summaries, err := tr.Summary(ctx, template)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Fprintln(out, "No usage data found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TEMPLATE\tMODEL\tREQUESTS\tCACHED\tPROMPT\tCOMPLETION\tTOTAL")
			for _, s := range summaries {
				tmpl := s.Template
				if tmpl == "" {
					tmpl = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
					tmpl, s.Model, s.RequestCount, s.CacheHits,
					humanize.Comma(int64(s.TotalPrompt)), humanize.Comma(int64(s.TotalCompletion)), humanize.Comma(int64(s.TotalTokens)))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			total, err := tr.TotalSince(ctx, time.Now().Add(-since))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nProvider tokens in the last %s: %s\n", since, humanize.Comma(total))
			return nil
		},
	}

	cmd.Flags().StringVar(&template, "template", "", "filter by template")
	cmd.Flags().IntVar(&recent, "recent", 0, "list the N most recent generations instead of the summary")
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "window for the provider token total")
	return cmd
}
