package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gildcraft/guildgen/pkg/generate"
	"github.com/gildcraft/guildgen/pkg/prompts"
)

func newGenerateCmd(configPath *string) *cobra.Command {
	var (
		prompt      string
		template    string
		fields      []string
		model       string
		maxTokens   int
		temperature float64
		regenerate  bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate content once and print it",
		Example: `  guildgen generate -p "Name a color"
  guildgen generate -t server-name -f keywords="retro gaming"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (prompt == "") == (template == "") {
				return errors.New("exactly one of --prompt or --template is required")
			}

			var opts generate.Options
			text := prompt
			ctx := context.Background()

			if template != "" {
				values, err := parseFields(fields)
				if err != nil {
					return err
				}
				rendered, err := prompts.Render(template, values)
				if err != nil {
					return err
				}
				text = rendered.Prompt
				opts = rendered.Options
				ctx = generate.WithLabel(ctx, template)
			}

			if cmd.Flags().Changed("model") {
				opts.Model = model
			}
			if cmd.Flags().Changed("max-tokens") {
				opts.MaxTokens = maxTokens
			}
			if cmd.Flags().Changed("temperature") {
				opts.Temperature = &temperature
			}
			if regenerate {
				opts.Timestamp = strconv.FormatInt(time.Now().UnixNano(), 10)
			}

			a, err := newApp(ctx, *configPath, os.Stderr, nil)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			res, err := a.fwd.Do(ctx, text, opts)
			if err != nil {
				return err
			}
			a.logger.Debug("generated", "model", res.Model, "cache", res.Cache, "tokens", res.Usage.TotalTokens)
			fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "free-form prompt")
	cmd.Flags().StringVarP(&template, "template", "t", "", "template name (see guildgen templates)")
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "template field as key=value (repeatable)")
	cmd.Flags().StringVar(&model, "model", "", "model override")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "output token limit override")
	cmd.Flags().Float64Var(&temperature, "temperature", generate.DefaultTemperature, "sampling temperature override")
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "skip the cache lookup")
	return cmd
}

// parseFields turns key=value flags into template fields.
func parseFields(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --field %q (use key=value)", p)
		}
		out[k] = v
	}
	return out, nil
}
