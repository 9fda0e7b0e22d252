package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillctl/pkg/logger"
	"github.com/jingkaihe/skillctl/pkg/payload"
	"github.com/jingkaihe/skillctl/pkg/skillapi"
	"github.com/jingkaihe/skillctl/pkg/telemetry"
)

// skillCommand binds one CLI subcommand to one client operation.
type skillCommand struct {
	name    string
	short   string
	long    string
	needsID bool
	invoke  func(ctx context.Context, c skillapi.Client, id skillapi.SkillID) (payload.Value, error)
}

var skillCommands = []skillCommand{
	{
		name:  skillapi.MethodGetBoxMetadata,
		short: "Show metadata of the skill box",
		invoke: func(ctx context.Context, c skillapi.Client, _ skillapi.SkillID) (payload.Value, error) {
			return c.BoxMetadata(ctx)
		},
	},
	{
		name:  skillapi.MethodGetTrainedSkills,
		short: "List the skills trained on the box",
		invoke: func(ctx context.Context, c skillapi.Client, _ skillapi.SkillID) (payload.Value, error) {
			return c.TrainedSkills(ctx)
		},
	},
	{
		name:    skillapi.MethodExecuteSkill,
		short:   "Execute a trained skill",
		needsID: true,
		invoke: func(ctx context.Context, c skillapi.Client, id skillapi.SkillID) (payload.Value, error) {
			return c.ExecuteSkill(ctx, id)
		},
	},
	{
		name:    skillapi.MethodGetResult,
		short:   "Show the end-state type of a skill's last execution",
		needsID: true,
		invoke: func(ctx context.Context, c skillapi.Client, id skillapi.SkillID) (payload.Value, error) {
			return c.Result(ctx, id)
		},
	},
	{
		name:  skillapi.MethodGetLastEndstateValues,
		short: "Show the values recorded at the end of a skill's last execution",
		long: `Show the values recorded at the end of a skill's last execution.

The box answers with a status and a list of numbers:
  0  TCP speed
  1  force encountered
  2  visual done probability
  3  anomaly score
  4  upper bound on the cartesian distance to the target pose, in cm
  5  upper bound on the rotational distance to the target pose, in degrees`,
		needsID: true,
		invoke: func(ctx context.Context, c skillapi.Client, id skillapi.SkillID) (payload.Value, error) {
			return c.LastEndstateValues(ctx, id)
		},
	},
	{
		name:    skillapi.MethodPrepareSkillAsync,
		short:   "Ask the box to prepare a skill ahead of execution",
		needsID: true,
		invoke: func(ctx context.Context, c skillapi.Client, id skillapi.SkillID) (payload.Value, error) {
			return c.PrepareSkillAsync(ctx, id)
		},
	},
}

func skillCommandNames() []string {
	names := make([]string, 0, len(skillCommands))
	for _, sc := range skillCommands {
		names = append(names, sc.name)
	}
	return names
}

// skillArgs enforces the arity of a skill command.
func skillArgs(sc skillCommand) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if !sc.needsID {
			if len(args) != 0 {
				return usageErrorf("%s takes no arguments, got %d", sc.name, len(args))
			}
			return nil
		}

		switch len(args) {
		case 0:
			return usageErrorf("%s requires a skill id", sc.name)
		case 1:
			if _, err := skillapi.ParseSkillID(args[0]); err != nil {
				return usageErrorf("%s: %v", sc.name, err)
			}
			return nil
		default:
			return usageErrorf("%s takes exactly one skill id, got %d arguments", sc.name, len(args))
		}
	}
}

func newSkillCmd(a *app, sc skillCommand) *cobra.Command {
	use := sc.name
	if sc.needsID {
		use += " <skill_id>"
	}
	long := sc.long
	if long == "" {
		long = sc.short + "."
	}
	var example string
	if sc.needsID {
		long += "\n\nA skill id that starts with a dash goes after \"--\"."
		example = fmt.Sprintf("  skillctl %s 15\n  skillctl %s -- -5", sc.name, sc.name)
	}

	return withTracing(&cobra.Command{
		Use:     use,
		Short:   sc.short,
		Long:    long,
		Example: example,
		Args:    skillArgs(sc),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSkill(cmd.Context(), sc, args)
		},
	})
}

func (a *app) runSkill(ctx context.Context, sc skillCommand, args []string) error {
	var id skillapi.SkillID
	if sc.needsID {
		parsed, err := skillapi.ParseSkillID(args[0])
		if err != nil {
			return usageErrorf("%s: %v", sc.name, err)
		}
		id = parsed
		ctx = logger.WithFields(ctx, logrus.Fields{"skill_id": id.String()})
		telemetry.SetAttributes(ctx, attribute.String("skill.id", id.String()))
	}

	client, err := a.clients.skill(a.cfg.Endpoint)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			logger.G(ctx).WithError(closeErr).Debug("failed to close skill client")
		}
	}()

	logger.G(ctx).WithField("endpoint", a.cfg.Endpoint.String()).Info("dispatching skill command")

	result, err := sc.invoke(ctx, client, id)
	if err != nil {
		return err
	}

	return errors.Wrap(a.presenter.Result(result, a.cfg.Output), "failed to print result")
}
