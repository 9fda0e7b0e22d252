package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillctl/pkg/config"
	"github.com/jingkaihe/skillctl/pkg/logger"
	"github.com/jingkaihe/skillctl/pkg/payload"
	"github.com/jingkaihe/skillctl/pkg/skillapi"
)

// stationInput holds the joint-space arguments of one station command.
type stationInput struct {
	joints    []float64
	pose      []float64
	reference []float64
	steps     int
}

type stationFlag int

const (
	withJoints stationFlag = 1 << iota
	withPose
	withReference
	withSteps
)

// stationCommand binds one `station` subcommand to one station operation.
type stationCommand struct {
	name   string
	short  string
	flags  stationFlag
	invoke func(ctx context.Context, s skillapi.Station, in stationInput) (payload.Value, error)
}

var stationCommands = []stationCommand{
	{
		name:  skillapi.StationGetJointCount,
		short: "Show the number of joints",
		invoke: func(ctx context.Context, s skillapi.Station, _ stationInput) (payload.Value, error) {
			return s.JointCount(ctx)
		},
	},
	{
		name:  skillapi.StationGetJointSpeedLimits,
		short: "Show the speed limit of every joint",
		invoke: func(ctx context.Context, s skillapi.Station, _ stationInput) (payload.Value, error) {
			return s.JointSpeedLimits(ctx)
		},
	},
	{
		name:  skillapi.StationGetJointPositionLimits,
		short: "Show the position limits of every joint",
		invoke: func(ctx context.Context, s skillapi.Station, _ stationInput) (payload.Value, error) {
			return s.JointPositionLimits(ctx)
		},
	},
	{
		name:  skillapi.StationGetHardwareState,
		short: "Show the current hardware state",
		invoke: func(ctx context.Context, s skillapi.Station, _ stationInput) (payload.Value, error) {
			return s.HardwareState(ctx)
		},
	},
	{
		name:  skillapi.StationConnect,
		short: "Connect the station to the robot",
		invoke: func(ctx context.Context, s skillapi.Station, _ stationInput) (payload.Value, error) {
			return s.Connect(ctx)
		},
	},
	{
		name:  skillapi.StationDisconnect,
		short: "Disconnect the station from the robot",
		invoke: func(ctx context.Context, s skillapi.Station, _ stationInput) (payload.Value, error) {
			return s.Disconnect(ctx)
		},
	},
	{
		name:  skillapi.StationPrepareForControl,
		short: "Prepare the robot for control",
		invoke: func(ctx context.Context, s skillapi.Station, _ stationInput) (payload.Value, error) {
			return s.PrepareForControl(ctx)
		},
	},
	{
		name:  skillapi.StationTakeControl,
		short: "Take control of the robot",
		invoke: func(ctx context.Context, s skillapi.Station, _ stationInput) (payload.Value, error) {
			return s.TakeControl(ctx)
		},
	},
	{
		name:  skillapi.StationReleaseControl,
		short: "Release control of the robot",
		invoke: func(ctx context.Context, s skillapi.Station, _ stationInput) (payload.Value, error) {
			return s.ReleaseControl(ctx)
		},
	},
	{
		name:  skillapi.StationClearCachedHardwareState,
		short: "Drop the station's cached hardware state",
		invoke: func(ctx context.Context, s skillapi.Station, _ stationInput) (payload.Value, error) {
			return s.ClearCachedHardwareState(ctx)
		},
	},
	{
		name:  skillapi.StationForwardKinematics,
		short: "Compute the end-effector pose of a joint configuration",
		flags: withJoints,
		invoke: func(ctx context.Context, s skillapi.Station, in stationInput) (payload.Value, error) {
			return s.ForwardKinematics(ctx, in.joints)
		},
	},
	{
		name:  skillapi.StationInverseKinematics,
		short: "Compute the joint configuration reaching an end-effector pose",
		flags: withPose | withReference,
		invoke: func(ctx context.Context, s skillapi.Station, in stationInput) (payload.Value, error) {
			return s.InverseKinematics(ctx, in.pose, in.reference)
		},
	},
	{
		name:  skillapi.StationAreJointPositionsSafe,
		short: "Check whether a joint configuration is safe",
		flags: withJoints,
		invoke: func(ctx context.Context, s skillapi.Station, in stationInput) (payload.Value, error) {
			return s.AreJointPositionsSafe(ctx, in.joints)
		},
	},
	{
		name:  skillapi.StationSendJointPositions,
		short: "Stream a joint configuration to the robot over a number of steps",
		flags: withJoints | withSteps,
		invoke: func(ctx context.Context, s skillapi.Station, in stationInput) (payload.Value, error) {
			return s.SendJointPositions(ctx, in.joints, in.steps)
		},
	},
	{
		name:  skillapi.StationCommandMove,
		short: "Move the robot to a joint configuration",
		flags: withJoints,
		invoke: func(ctx context.Context, s skillapi.Station, in stationInput) (payload.Value, error) {
			return s.CommandMove(ctx, in.joints)
		},
	},
	{
		name:  skillapi.StationCommandStop,
		short: "Stop the current movement",
		invoke: func(ctx context.Context, s skillapi.Station, _ stationInput) (payload.Value, error) {
			return s.CommandStop(ctx)
		},
	},
}

func stationCommandNames() []string {
	names := make([]string, 0, len(stationCommands))
	for _, sc := range stationCommands {
		names = append(names, sc.name)
	}
	return names
}

func newStationCmd(a *app) *cobra.Command {
	stationCmd := &cobra.Command{
		Use:   "station",
		Short: "Drive the robot station through its JSON API",
		Long: `Drive the robot station through its JSON API.

Queries are sent as GET <station>/<command>, everything else as a POST with
a JSON body. Joint values are comma separated, e.g. --joints 0,-1.57,0,0,1.2,0.`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageErrorf("unknown station command %q; supported station commands: %s",
					args[0], strings.Join(stationCommandNames(), ", "))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
			return usageErrorf("no station command given")
		},
	}

	flags := stationCmd.PersistentFlags()
	flags.String("station-url", "", "Full station URL, overrides --station-host and --station-port")
	flags.String("station-host", config.DefaultStationHost, "Robot station host")
	flags.Int("station-port", config.DefaultStationPort, "Robot station port")
	flags.Duration("station-timeout", config.DefaultTimeout, "Timeout of the station call (0 disables it)")
	bindFlags(a.viper, flags, map[string]string{
		"station-url":     "station.url",
		"station-host":    "station.host",
		"station-port":    "station.port",
		"station-timeout": "station.timeout",
	})

	for _, sc := range stationCommands {
		stationCmd.AddCommand(newStationSubCmd(a, sc))
	}
	return stationCmd
}

func newStationSubCmd(a *app, sc stationCommand) *cobra.Command {
	in := &stationInput{}

	cmd := &cobra.Command{
		Use:   sc.name,
		Short: sc.short,
		Long:  sc.short + ".",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("station %s takes no arguments, got %d", sc.name, len(args))
			}
			return validateStationInput(cmd, sc, in)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runStation(cmd.Context(), sc, *in)
		},
	}

	flags := cmd.Flags()
	if sc.flags&withJoints != 0 {
		flags.Float64SliceVar(&in.joints, "joints", nil, "Joint positions, comma separated")
	}
	if sc.flags&withPose != 0 {
		flags.Float64SliceVar(&in.pose, "pose", nil, "End-effector pose, comma separated")
	}
	if sc.flags&withReference != 0 {
		flags.Float64SliceVar(&in.reference, "reference", nil, "Reference joint positions (optional)")
	}
	if sc.flags&withSteps != 0 {
		flags.IntVar(&in.steps, "steps", 0, "Number of control steps for the movement")
	}

	return withTracing(cmd)
}

// validateStationInput checks the required flags before any client exists.
func validateStationInput(cmd *cobra.Command, sc stationCommand, in *stationInput) error {
	if sc.flags&withJoints != 0 && len(in.joints) == 0 {
		return usageErrorf("station %s requires --joints", sc.name)
	}
	if sc.flags&withPose != 0 && len(in.pose) == 0 {
		return usageErrorf("station %s requires --pose", sc.name)
	}
	if sc.flags&withSteps != 0 && (!cmd.Flags().Changed("steps") || in.steps < 1) {
		return usageErrorf("station %s requires --steps of at least 1", sc.name)
	}
	return nil
}

func (a *app) runStation(ctx context.Context, sc stationCommand, in stationInput) error {
	station, err := a.clients.station(a.cfg.Station)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := station.Close(); closeErr != nil {
			logger.G(ctx).WithError(closeErr).Debug("failed to close station client")
		}
	}()

	ctx = logger.WithFields(ctx, logrus.Fields{"station": a.cfg.Station.ResolvedURL()})
	logger.G(ctx).Info("dispatching station command")

	result, err := sc.invoke(ctx, station, in)
	if err != nil {
		return err
	}

	return errors.Wrap(a.presenter.Result(result, a.cfg.Output), "failed to print result")
}
