package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// The response cache lives in the serving process, so these commands talk
// to its admin endpoints.
func newCacheCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the response cache of a running server",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			var stats struct {
				Enabled     bool    `json:"enabled"`
				TTL         string  `json:"ttl"`
				HitRate     float64 `json:"hit_rate"`
				Entries     int64   `json:"entries"`
				Hits        int64   `json:"hits"`
				Misses      int64   `json:"misses"`
				Expirations int64   `json:"expirations"`
				Stores      int64   `json:"stores"`
			}
			if err := adminCall(cmd.Context(), http.MethodGet, addr, "/v1/cache/stats", &stats); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !stats.Enabled {
				fmt.Fprintln(out, "Cache is not enabled.")
				return nil
			}
			fmt.Fprintf(out, "TTL:         %s\nEntries:     %s\nHits:        %s\nMisses:      %s\nExpirations: %s\nStores:      %s\nHit rate:    %.1f%%\n",
				stats.TTL,
				humanize.Comma(stats.Entries), humanize.Comma(stats.Hits), humanize.Comma(stats.Misses),
				humanize.Comma(stats.Expirations), humanize.Comma(stats.Stores), stats.HitRate)
			return nil
		},
	}

	var expiredOnly bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/v1/cache"
			if expiredOnly {
				path += "?expired=true"
			}
			var res struct {
				Removed int `json:"removed"`
			}
			if err := adminCall(cmd.Context(), http.MethodDelete, addr, path, &res); err != nil {
				return err
			}
			if expiredOnly {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired cache entries.\n", res.Removed)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache entries.\n", res.Removed)
			}
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&expiredOnly, "expired", false, "only clear expired entries")

	cmd.PersistentFlags().StringVar(&addr, "addr", "http://localhost:5001", "base URL of the running server")
	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}

func adminCall(ctx context.Context, method, addr, path string, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(addr, "/")+path, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("contact server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
