package skillapi

import (
	"context"

	"github.com/jingkaihe/skillctl/pkg/config"
	"github.com/jingkaihe/skillctl/pkg/payload"
)

// Station method names, served at <base>/<method>.
const (
	StationGetJointCount            = "get_joint_count"
	StationGetJointSpeedLimits      = "get_joint_speed_limits"
	StationGetJointPositionLimits   = "get_joint_position_limits"
	StationGetHardwareState         = "get_hardware_state"
	StationConnect                  = "connect"
	StationDisconnect               = "disconnect"
	StationPrepareForControl        = "prepare_for_control"
	StationTakeControl              = "take_control"
	StationReleaseControl           = "release_control"
	StationClearCachedHardwareState = "clear_cached_hardware_state"
	StationForwardKinematics        = "forward_kinematics"
	StationInverseKinematics        = "inverse_kinematics"
	StationAreJointPositionsSafe    = "are_joint_positions_safe"
	StationSendJointPositions       = "send_joint_positions"
	StationCommandMove              = "command_move"
	StationCommandStop              = "command_stop"
)

// Station is the joint-position control API of a robot station.
type Station interface {
	JointCount(ctx context.Context) (payload.Value, error)
	JointSpeedLimits(ctx context.Context) (payload.Value, error)
	JointPositionLimits(ctx context.Context) (payload.Value, error)
	HardwareState(ctx context.Context) (payload.Value, error)

	Connect(ctx context.Context) (payload.Value, error)
	Disconnect(ctx context.Context) (payload.Value, error)
	PrepareForControl(ctx context.Context) (payload.Value, error)
	TakeControl(ctx context.Context) (payload.Value, error)
	ReleaseControl(ctx context.Context) (payload.Value, error)
	ClearCachedHardwareState(ctx context.Context) (payload.Value, error)

	ForwardKinematics(ctx context.Context, joints []float64) (payload.Value, error)
	// InverseKinematics solves for pose; a nil reference is sent as null.
	InverseKinematics(ctx context.Context, pose, reference []float64) (payload.Value, error)
	AreJointPositionsSafe(ctx context.Context, joints []float64) (payload.Value, error)
	SendJointPositions(ctx context.Context, joints []float64, stepCount int) (payload.Value, error)
	CommandMove(ctx context.Context, joints []float64) (payload.Value, error)
	CommandStop(ctx context.Context) (payload.Value, error)

	Close() error
}

type jointsRequest struct {
	JointPositions []float64 `json:"joint_positions"`
}

type inverseKinematicsRequest struct {
	EndEffectorPose []float64 `json:"end_effector_pose"`
	JointReference  []float64 `json:"joint_reference"`
}

type sendJointsRequest struct {
	JointPositions []float64 `json:"joint_positions"`
	StepCount      int       `json:"step_count"`
}

// StationClient implements Station over the station's JSON API. Queries are
// GET requests, everything else is a POST with an optional JSON body.
type StationClient struct {
	remote
	rest *restCaller
}

var _ Station = (*StationClient)(nil)

// NewStation validates cfg and prepares a station client without dialing.
func NewStation(cfg config.Station, opts ...Option) (*StationClient, error) {
	o := newOptions(opts)

	endpoint, user, err := parseEndpoint(cfg.ResolvedURL())
	if err != nil {
		return nil, err
	}

	var username, password string
	if user != nil {
		username = user.Username()
		password, _ = user.Password()
	}
	rt := newRoundTripper(o.roundTripper, username, password, cfg.Timeout)

	return &StationClient{
		remote: remote{
			service:   "stationapi",
			endpoint:  endpoint,
			transport: config.TransportHTTP,
			timeout:   cfg.Timeout,
		},
		rest: newRESTCaller(endpoint, rt),
	}, nil
}

// Endpoint is the base URL of the station API, without credentials.
func (c *StationClient) Endpoint() string { return c.endpoint }

func (c *StationClient) get(ctx context.Context, method string) (payload.Value, error) {
	return c.invoke(ctx, method, func(ctx context.Context) (any, error) {
		return c.rest.get(ctx, method)
	})
}

func (c *StationClient) post(ctx context.Context, method string, body any) (payload.Value, error) {
	return c.invoke(ctx, method, func(ctx context.Context) (any, error) {
		return c.rest.post(ctx, method, body)
	})
}

func (c *StationClient) JointCount(ctx context.Context) (payload.Value, error) {
	return c.get(ctx, StationGetJointCount)
}

func (c *StationClient) JointSpeedLimits(ctx context.Context) (payload.Value, error) {
	return c.get(ctx, StationGetJointSpeedLimits)
}

func (c *StationClient) JointPositionLimits(ctx context.Context) (payload.Value, error) {
	return c.get(ctx, StationGetJointPositionLimits)
}

func (c *StationClient) HardwareState(ctx context.Context) (payload.Value, error) {
	return c.get(ctx, StationGetHardwareState)
}

func (c *StationClient) Connect(ctx context.Context) (payload.Value, error) {
	return c.post(ctx, StationConnect, nil)
}

func (c *StationClient) Disconnect(ctx context.Context) (payload.Value, error) {
	return c.post(ctx, StationDisconnect, nil)
}

func (c *StationClient) PrepareForControl(ctx context.Context) (payload.Value, error) {
	return c.post(ctx, StationPrepareForControl, nil)
}

func (c *StationClient) TakeControl(ctx context.Context) (payload.Value, error) {
	return c.post(ctx, StationTakeControl, nil)
}

func (c *StationClient) ReleaseControl(ctx context.Context) (payload.Value, error) {
	return c.post(ctx, StationReleaseControl, nil)
}

func (c *StationClient) ClearCachedHardwareState(ctx context.Context) (payload.Value, error) {
	return c.post(ctx, StationClearCachedHardwareState, nil)
}

func (c *StationClient) ForwardKinematics(ctx context.Context, joints []float64) (payload.Value, error) {
	return c.post(ctx, StationForwardKinematics, jointsRequest{JointPositions: joints})
}

func (c *StationClient) InverseKinematics(ctx context.Context, pose, reference []float64) (payload.Value, error) {
	return c.post(ctx, StationInverseKinematics, inverseKinematicsRequest{EndEffectorPose: pose, JointReference: reference})
}

func (c *StationClient) AreJointPositionsSafe(ctx context.Context, joints []float64) (payload.Value, error) {
	return c.post(ctx, StationAreJointPositionsSafe, jointsRequest{JointPositions: joints})
}

func (c *StationClient) SendJointPositions(ctx context.Context, joints []float64, stepCount int) (payload.Value, error) {
	return c.post(ctx, StationSendJointPositions, sendJointsRequest{JointPositions: joints, StepCount: stepCount})
}

func (c *StationClient) CommandMove(ctx context.Context, joints []float64) (payload.Value, error) {
	return c.post(ctx, StationCommandMove, jointsRequest{JointPositions: joints})
}

func (c *StationClient) CommandStop(ctx context.Context) (payload.Value, error) {
	return c.post(ctx, StationCommandStop, nil)
}

func (c *StationClient) Close() error {
	return c.rest.close()
}
