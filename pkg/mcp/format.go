package mcp

import (
	"fmt"
	"strings"

	"github.com/gildcraft/guildgen/pkg/models"
)

// formatSummary formats usage summaries as a text table.
func formatSummary(rows []models.UsageSummary) string {
	if len(rows) == 0 {
		return "No usage data found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-40s %8s %8s %10s %10s %10s\n",
		"Template", "Model", "Requests", "Cached", "Prompt", "Completion", "Total")
	b.WriteString(strings.Repeat("-", 112) + "\n")
	for _, r := range rows {
		tmpl := r.Template
		if tmpl == "" {
			tmpl = "(direct)"
		}
		model := r.Model
		if len(model) > 40 {
			model = model[:37] + "..."
		}
		fmt.Fprintf(&b, "%-20s %-40s %8d %8d %10d %10d %10d\n",
			tmpl, model, r.RequestCount, r.CacheHits, r.TotalPrompt, r.TotalCompletion, r.TotalTokens)
	}
	return b.String()
}

// formatTemplates lists templates with their fields.
func formatTemplates(list []models.TemplateInfo) string {
	var b strings.Builder
	for _, t := range list {
		fmt.Fprintf(&b, "%-20s %s\n", t.Name, t.Description)
		fmt.Fprintf(&b, "%-20s required: %s", "", strings.Join(t.Required, ", "))
		if len(t.Optional) > 0 {
			fmt.Fprintf(&b, "; optional: %s", strings.Join(t.Optional, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// formatCacheStats formats cache stats as text.
func formatCacheStats(stats models.CacheStats) string {
	return fmt.Sprintf("Cache Statistics\n"+
		"  Entries:     %d\n"+
		"  Hits:        %d\n"+
		"  Misses:      %d\n"+
		"  Expirations: %d\n"+
		"  Hit Rate:    %.1f%%\n",
		stats.Entries, stats.Hits, stats.Misses, stats.Expirations, stats.HitRate())
}
