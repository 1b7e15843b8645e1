package cli

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petal-labs/tradingflow/compiler"
	"github.com/petal-labs/tradingflow/conditional"
	"github.com/petal-labs/tradingflow/config"
	"github.com/petal-labs/tradingflow/hydrate"
)

type handlerKey struct{}

// WithEventHandler attaches a compiler event handler to ctx. Commands run
// with cobra's ExecuteContext pass it to the compiler and validator.
func WithEventHandler(ctx context.Context, h compiler.EventHandler) context.Context {
	return context.WithValue(ctx, handlerKey{}, h)
}

func eventHandler(ctx context.Context) compiler.EventHandler {
	if ctx == nil {
		return nil
	}
	h, _ := ctx.Value(handlerKey{}).(compiler.EventHandler)
	return h
}

// addSettingsFlags registers the flags that override config.Settings.
func addSettingsFlags(cmd *cobra.Command) {
	cmd.Flags().String("quick-model", "", "Quick-thinking model name")
	cmd.Flags().String("deep-model", "", "Deep-thinking model name")
	cmd.Flags().Int("debate-rounds", 0, "Maximum bull/bear debate rounds")
	cmd.Flags().Int("risk-rounds", 0, "Maximum risk discussion rounds")
}

// resolveSettings merges the command's settings flags over env vars and
// the settings file. Only flags set on the command line take part.
func resolveSettings(cmd *cobra.Command) (config.Settings, error) {
	flags := map[string]string{}
	for name, key := range map[string]string{
		"quick-model":   config.KeyQuickModel,
		"deep-model":    config.KeyDeepModel,
		"debate-rounds": config.KeyMaxDebateRounds,
		"risk-rounds":   config.KeyMaxRiskRounds,
		"analysts":      config.KeyAnalysts,
	} {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		flags[key] = f.Value.String()
		if sv, ok := f.Value.(interface{ GetSlice() []string }); ok {
			flags[key] = strings.Join(sv.GetSlice(), ",")
		}
	}
	return config.Resolve(flags)
}

// newCompiler builds a compiler backed by placeholder resources and the
// standard trading predicates.
func newCompiler(cmd *cobra.Command, s config.Settings) *compiler.Compiler {
	return compiler.New(
		hydrate.NewFactory(hydrate.Placeholders(s.QuickModel, s.DeepModel)),
		conditional.Standard(s.MaxDebateRounds, s.MaxRiskRounds),
		compiler.WithLogger(slog.Default()),
		compiler.WithEventHandler(eventHandler(cmd.Context())),
	)
}

// pluralize returns the singular or plural form of a word based on count.
func pluralize(word string, count int) string {
	if count == 1 {
		return word
	}
	return word + "s"
}
