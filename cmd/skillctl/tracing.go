package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jingkaihe/skillctl/pkg/config"
	"github.com/jingkaihe/skillctl/pkg/telemetry"
	"github.com/jingkaihe/skillctl/pkg/version"
)

// initTracing initializes the OpenTelemetry tracing system
func initTracing(ctx context.Context, cfg config.Tracing) (telemetry.ShutdownFunc, error) {
	return telemetry.InitTracer(ctx, telemetry.Config{
		Enabled:        cfg.Enabled,
		ServiceVersion: version.Get().Version,
		SamplerType:    cfg.Sampler,
		SamplerRatio:   cfg.Ratio,
	})
}

// withTracing wraps a Cobra command with a cli.command span
func withTracing(cmd *cobra.Command) *cobra.Command {
	originalRunE := cmd.RunE

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		attrs := []attribute.KeyValue{
			attribute.String("command.name", cmd.Name()),
			attribute.String("command.path", cmd.CommandPath()),
			attribute.Int("args.count", len(args)),
		}
		cmd.Flags().Visit(func(flag *pflag.Flag) {
			if flag.Name != "password" && flag.Name != "url" {
				attrs = append(attrs, attribute.String("flag."+flag.Name, flag.Value.String()))
			}
		})

		ctx, span := telemetry.Tracer("skillctl.cli").Start(
			cmd.Context(),
			"cli.command",
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		cmd.SetContext(ctx)

		if err := originalRunE(cmd, args); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		span.SetStatus(codes.Ok, "")
		return nil
	}

	return cmd
}

func addTracingFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.Bool("tracing-enabled", false, "Enable OpenTelemetry tracing")
	flags.String("tracing-sampler", "ratio", "Tracing sampler type (always, never, ratio)")
	flags.Float64("tracing-ratio", 1, "Sampling ratio when using ratio sampler")

	bindFlags(v, flags, map[string]string{
		"tracing-enabled": "tracing.enabled",
		"tracing-sampler": "tracing.sampler",
		"tracing-ratio":   "tracing.ratio",
	})
}
