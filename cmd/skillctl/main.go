package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillctl/pkg/config"
	"github.com/jingkaihe/skillctl/pkg/logger"
	"github.com/jingkaihe/skillctl/pkg/presenter"
	"github.com/jingkaihe/skillctl/pkg/skillapi"
	"github.com/jingkaihe/skillctl/pkg/telemetry"
)

// clientFactory builds the skill client for one invocation.
type clientFactory func(endpoint config.Endpoint) (skillapi.Client, error)

// stationFactory builds the station client for one invocation.
type stationFactory func(station config.Station) (skillapi.Station, error)

type clients struct {
	skill   clientFactory
	station stationFactory
}

func defaultClients() clients {
	return clients{skill: newSkillClient, station: newStationClient}
}

func newSkillClient(endpoint config.Endpoint) (skillapi.Client, error) {
	client, err := skillapi.New(endpoint)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func newStationClient(station config.Station) (skillapi.Station, error) {
	client, err := skillapi.NewStation(station)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// endpointFlagKeys maps the endpoint flags to their viper keys. A profile
// never overrides one of these once it is given on the command line.
var endpointFlagKeys = map[string]string{
	"url":       "endpoint.url",
	"host":      "endpoint.host",
	"port":      "endpoint.port",
	"transport": "endpoint.transport",
	"username":  "endpoint.username",
	"password":  "endpoint.password",
	"timeout":   "endpoint.timeout",
}

var negativeSkillID = regexp.MustCompile(`unknown shorthand flag: '\d' in (-[\d.]+)$`)

// app is the state of one skillctl invocation. It is built once in execute
// and handed to every command; nothing lives in package globals.
type app struct {
	viper     *viper.Viper
	presenter *presenter.TerminalPresenter
	clients   clients

	cfg             config.Config
	shutdownTracing telemetry.ShutdownFunc
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr, defaultClients())
	stop()
	os.Exit(code)
}

// execute runs one command line and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer, c clients) int {
	a := &app{
		viper:     viper.New(),
		presenter: presenter.NewWithOptions(stdout, stderr, presenter.DetectColorMode()),
		clients:   c,
	}
	config.Init(a.viper)

	if args == nil {
		args = []string{}
	}

	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)

	if a.shutdownTracing != nil {
		if shutdownErr := a.shutdownTracing(context.Background()); shutdownErr != nil {
			logger.G(ctx).WithError(shutdownErr).Warn("failed to flush traces")
		}
	}

	if err != nil {
		a.presenter.Error(err, "")
		var usageErr *UsageError
		if errors.As(err, &usageErr) {
			a.presenter.Hint("Run 'skillctl --help' for usage.")
		}
	}
	return exitCode(err)
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "skillctl",
		Short: "Command-line client for the skill automation API of a skill box",
		Long: `skillctl talks to the skill automation API of a skill box over XML-RPC
(or its JSON variant) and prints what the box returns.

Every command performs exactly one remote call.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 0 {
				return unknownCommandError(args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
			return usageErrorf("no command given")
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		msg := err.Error()
		if m := negativeSkillID.FindStringSubmatch(msg); m != nil {
			msg += fmt.Sprintf(`; put "--" before an id that starts with a dash, e.g. "-- %s"`, m[1])
		}
		return &UsageError{Message: msg}
	})

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to a config file (default $HOME/.skillctl/config.yaml or ./config.yaml)")
	flags.String("profile", "", "Named endpoint profile from the config file")
	flags.String("url", "", "Full endpoint URL, overrides --host, --port and --transport path")
	flags.String("host", config.DefaultHost, "Skill box host")
	flags.Int("port", config.DefaultPort, "Skill API port")
	flags.String("transport", config.TransportXMLRPC, "Wire format: xmlrpc or http")
	flags.String("username", "", "Username for HTTP basic auth")
	flags.String("password", "", "Password for HTTP basic auth")
	flags.Duration("timeout", config.DefaultTimeout, "Timeout of the remote call (0 disables it)")
	flags.StringP("output", "o", config.OutputText, "Output format: text or json")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flags.String("log-format", "fmt", "Log format (fmt or json)")

	bindFlags(a.viper, flags, endpointFlagKeys)
	bindFlags(a.viper, flags, map[string]string{
		"profile":    "profile",
		"output":     "output",
		"log-level":  "log_level",
		"log-format": "log_format",
	})
	addTracingFlags(a.viper, flags)

	for _, sc := range skillCommands {
		rootCmd.AddCommand(newSkillCmd(a, sc))
	}
	rootCmd.AddCommand(newStationCmd(a))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
}

// setup loads configuration and prepares logging and tracing for the command.
func (a *app) setup(cmd *cobra.Command) error {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		a.viper.SetConfigFile(path)
	}
	if err := config.ReadConfigFile(a.viper); err != nil {
		return err
	}

	var pinned []string
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if key, ok := endpointFlagKeys[f.Name]; ok {
			pinned = append(pinned, key)
		}
	})

	cfg, err := config.Load(a.viper, pinned...)
	if err != nil {
		return &UsageError{Message: err.Error()}
	}
	a.cfg = cfg

	if err := logger.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		return &UsageError{Message: err.Error()}
	}

	shutdown, err := initTracing(cmd.Context(), cfg.Tracing)
	if err != nil {
		a.presenter.Warning("tracing disabled: " + err.Error())
	} else {
		a.shutdownTracing = shutdown
	}

	ctx := logger.WithFields(cmd.Context(), logrus.Fields{
		"invocation_id": uuid.NewString(),
		"command":       cmd.Name(),
	})
	cmd.SetContext(ctx)
	return nil
}
