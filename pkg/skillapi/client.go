// Package skillapi is the client side of the box's skill automation API.
//
// A Client owns one handle to the configured endpoint and exposes one method
// per remote operation. Every method performs exactly one round trip: nothing
// is retried, cached or batched.
package skillapi

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillctl/pkg/config"
	"github.com/jingkaihe/skillctl/pkg/logger"
	"github.com/jingkaihe/skillctl/pkg/payload"
	"github.com/jingkaihe/skillctl/pkg/telemetry"
)

// Remote method names, identical for the XML-RPC and JSON transports.
const (
	MethodGetBoxMetadata        = "get_box_metadata"
	MethodGetTrainedSkills      = "get_trained_skills"
	MethodExecuteSkill          = "execute_skill"
	MethodGetResult             = "get_result"
	MethodGetLastEndstateValues = "get_last_endstate_values"
	MethodPrepareSkillAsync     = "prepare_skill_async"
)

// Client is the set of operations offered by the skill API.
type Client interface {
	// BoxMetadata describes the box itself.
	BoxMetadata(ctx context.Context) (payload.Value, error)
	// TrainedSkills lists the skills trained on the box.
	TrainedSkills(ctx context.Context) (payload.Value, error)
	// ExecuteSkill starts a skill and returns the box's acknowledgement.
	ExecuteSkill(ctx context.Context, id SkillID) (payload.Value, error)
	// Result returns the end-state type of the skill's last execution.
	Result(ctx context.Context, id SkillID) (payload.Value, error)
	// LastEndstateValues returns the values recorded at the end of the last execution.
	LastEndstateValues(ctx context.Context, id SkillID) (payload.Value, error)
	// PrepareSkillAsync asks the box to load a skill ahead of execution.
	PrepareSkillAsync(ctx context.Context, id SkillID) (payload.Value, error)
	// Close releases the connection handle.
	Close() error
}

// Option customises a SkillClient or a StationClient.
type Option func(*options)

type options struct {
	roundTripper http.RoundTripper
}

// WithRoundTripper replaces the base HTTP transport. Authentication and
// tracing are still layered on top of it.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *options) {
		o.roundTripper = rt
	}
}

// SkillClient implements Client over either wire format.
type SkillClient struct {
	remote
	caller caller
}

var _ Client = (*SkillClient)(nil)

// New validates cfg and prepares a client. No network traffic happens until
// the first call; a malformed endpoint fails here with *ConnectionError.
func New(cfg config.Endpoint, opts ...Option) (*SkillClient, error) {
	o := newOptions(opts)

	endpoint, user, err := parseEndpoint(cfg.ResolvedURL())
	if err != nil {
		return nil, err
	}

	username, password := cfg.Username, cfg.Password
	if username == "" && user != nil {
		username = user.Username()
		password, _ = user.Password()
	}

	rt := newRoundTripper(o.roundTripper, username, password, cfg.Timeout)

	transport := cfg.Transport
	if transport == "" {
		transport = config.TransportXMLRPC
	}

	var c caller
	switch transport {
	case config.TransportXMLRPC:
		c, err = newXMLRPCCaller(endpoint, rt)
		if err != nil {
			return nil, &ConnectionError{URL: endpoint, Cause: err}
		}
	case config.TransportHTTP:
		c = newRESTCaller(endpoint, rt)
	default:
		return nil, &ConnectionError{URL: endpoint, Cause: errors.Errorf("unsupported transport %q", transport)}
	}

	return &SkillClient{
		remote: remote{
			service:   "skillapi",
			endpoint:  endpoint,
			transport: transport,
			timeout:   cfg.Timeout,
		},
		caller: c,
	}, nil
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// parseEndpoint validates raw and returns it without userinfo, plus the
// userinfo it carried.
func parseEndpoint(raw string) (string, *url.Userinfo, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", nil, &ConnectionError{URL: raw, Cause: errors.Wrap(err, "malformed endpoint url")}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", nil, &ConnectionError{URL: raw, Cause: errors.Errorf("unsupported scheme %q", u.Scheme)}
	}
	if u.Host == "" {
		return "", nil, &ConnectionError{URL: raw, Cause: errors.New("endpoint url has no host")}
	}

	user := u.User
	u.User = nil
	return u.String(), user, nil
}

// Endpoint is the URL calls are sent to, without credentials.
func (c *SkillClient) Endpoint() string { return c.endpoint }

func (c *SkillClient) BoxMetadata(ctx context.Context) (payload.Value, error) {
	return c.invoke(ctx, MethodGetBoxMetadata, noArg)
}

func (c *SkillClient) TrainedSkills(ctx context.Context) (payload.Value, error) {
	return c.invoke(ctx, MethodGetTrainedSkills, noArg)
}

func (c *SkillClient) ExecuteSkill(ctx context.Context, id SkillID) (payload.Value, error) {
	return c.invoke(ctx, MethodExecuteSkill, id.WireValue())
}

func (c *SkillClient) Result(ctx context.Context, id SkillID) (payload.Value, error) {
	return c.invoke(ctx, MethodGetResult, id.WireValue())
}

func (c *SkillClient) LastEndstateValues(ctx context.Context, id SkillID) (payload.Value, error) {
	return c.invoke(ctx, MethodGetLastEndstateValues, id.WireValue())
}

func (c *SkillClient) PrepareSkillAsync(ctx context.Context, id SkillID) (payload.Value, error) {
	return c.invoke(ctx, MethodPrepareSkillAsync, id.WireValue())
}

func (c *SkillClient) Close() error {
	return c.caller.close()
}

func (c *SkillClient) invoke(ctx context.Context, method string, arg any) (payload.Value, error) {
	return c.remote.invoke(ctx, method, func(ctx context.Context) (any, error) {
		return c.caller.call(ctx, method, arg)
	})
}

// remote holds what every call needs regardless of the API it belongs to.
type remote struct {
	service   string
	endpoint  string
	transport string
	timeout   time.Duration
}

// invoke runs one remote call under the call timeout, a span and debug logs,
// and wraps any failure into *RemoteCallError.
func (r remote) invoke(ctx context.Context, method string, call func(context.Context) (any, error)) (payload.Value, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	log := logger.G(ctx).WithField("method", method).WithField("transport", r.transport)

	attrs := []attribute.KeyValue{
		attribute.String("rpc.system", r.transport),
		attribute.String("rpc.service", r.service),
		attribute.String("rpc.method", method),
		attribute.String("server.address", r.endpoint),
	}

	var result payload.Value
	err := telemetry.WithSpan(ctx, r.service+"."+method, func(ctx context.Context) error {
		start := time.Now()
		log.WithField("endpoint", r.endpoint).Debug("calling remote api")

		raw, err := call(ctx)
		if err != nil {
			log.WithError(err).WithField("elapsed", time.Since(start)).Debug("remote call failed")
			return &RemoteCallError{Method: method, Cause: err}
		}

		result = payload.FromDecoded(raw)
		log.WithField("elapsed", time.Since(start)).WithField("kind", result.Kind.String()).Debug("remote call succeeded")
		return nil
	}, attrs...)

	return result, err
}
