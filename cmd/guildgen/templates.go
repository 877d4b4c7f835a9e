package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gildcraft/guildgen/pkg/prompts"
)

func newTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List content templates and their fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tMAX TOKENS\tREQUIRED\tOPTIONAL")
			for _, t := range prompts.List() {
				maxTokens := "default"
				if t.MaxTokens > 0 {
					maxTokens = fmt.Sprint(t.MaxTokens)
				}
				optional := strings.Join(t.Optional, ", ")
				if optional == "" {
					optional = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Name, maxTokens, strings.Join(t.Required, ", "), optional)
			}
			return w.Flush()
		},
	}
}
