// Package config loads skillctl settings from command-line flags, SKILLCTL_*
// environment variables and an optional YAML config file, all routed through viper.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is the prefix of every environment variable read by skillctl.
	EnvPrefix = "SKILLCTL"

	// DefaultHost is the address of the skill box used when nothing else is configured.
	DefaultHost = "172.16.22.56"
	// DefaultPort is the port the skill API listens on.
	DefaultPort = 6543
	// DefaultTimeout bounds a single remote call.
	DefaultTimeout = 30 * time.Second

	// TransportXMLRPC speaks XML-RPC to <base>/skills/xmlrpc.
	TransportXMLRPC = "xmlrpc"
	// TransportHTTP speaks the JSON variant at <base>/skills/<method>.
	TransportHTTP = "http"

	// DefaultStationHost is the robot station queried by the station commands.
	DefaultStationHost = "localhost"
	// DefaultStationPort is the port of the station's JSON API.
	DefaultStationPort = 9305

	// OutputText renders results as nested YAML-style text.
	OutputText = "text"
	// OutputJSON renders results as indented JSON.
	OutputJSON = "json"
)

// Endpoint identifies the remote skill service.
type Endpoint struct {
	URL       string        `mapstructure:"url" yaml:"url"`
	Host      string        `mapstructure:"host" yaml:"host"`
	Port      int           `mapstructure:"port" yaml:"port"`
	Transport string        `mapstructure:"transport" yaml:"transport"`
	Username  string        `mapstructure:"username" yaml:"username"`
	Password  string        `mapstructure:"password" yaml:"password"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Station identifies the JSON API of the robot station. Every station method
// lives directly under the base URL, e.g. http://localhost:9305/get_hardware_state.
type Station struct {
	URL     string        `mapstructure:"url" yaml:"url"`
	Host    string        `mapstructure:"host" yaml:"host"`
	Port    int           `mapstructure:"port" yaml:"port"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Tracing holds the OpenTelemetry settings.
type Tracing struct {
	Enabled bool    `mapstructure:"enabled" yaml:"enabled"`
	Sampler string  `mapstructure:"sampler" yaml:"sampler"`
	Ratio   float64 `mapstructure:"ratio" yaml:"ratio"`
}

// Config is the fully resolved configuration of one skillctl invocation.
type Config struct {
	Endpoint  Endpoint `mapstructure:"endpoint" yaml:"endpoint"`
	Station   Station  `mapstructure:"station" yaml:"station"`
	Profile   string   `mapstructure:"profile" yaml:"profile"`
	Output    string   `mapstructure:"output" yaml:"output"`
	LogLevel  string   `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string   `mapstructure:"log_format" yaml:"log_format"`
	Tracing   Tracing  `mapstructure:"tracing" yaml:"tracing"`

	// Profiles are named endpoint overrides, e.g. one per box on the shop floor.
	Profiles map[string]map[string]any `mapstructure:"profiles" yaml:"profiles,omitempty"`
}

// Init wires environment variables and config file lookup into v and registers
// every default so that AllSettings sees environment overrides.
func Init(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.skillctl")
	v.AddConfigPath(".")

	SetDefaults(v)
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("endpoint.url", "")
	v.SetDefault("endpoint.host", DefaultHost)
	v.SetDefault("endpoint.port", DefaultPort)
	v.SetDefault("endpoint.transport", TransportXMLRPC)
	v.SetDefault("endpoint.username", "")
	v.SetDefault("endpoint.password", "")
	v.SetDefault("endpoint.timeout", DefaultTimeout)
	v.SetDefault("station.url", "")
	v.SetDefault("station.host", DefaultStationHost)
	v.SetDefault("station.port", DefaultStationPort)
	v.SetDefault("station.timeout", DefaultTimeout)
	v.SetDefault("profile", "")
	v.SetDefault("output", OutputText)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "fmt")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sampler", "ratio")
	v.SetDefault("tracing.ratio", 1.0)
}

// ReadConfigFile loads the config file if one exists. A missing file is not an error.
func ReadConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "failed to read config file")
	}
	return nil
}

// Load decodes the settings held by v into a Config and applies the active
// profile. pinned lists the keys set explicitly on the command line, e.g.
// "endpoint.host"; the profile never overrides those.
func Load(v *viper.Viper, pinned ...string) (Config, error) {
	var cfg Config
	if err := decode(v.AllSettings(), &cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to decode configuration")
	}

	if cfg.Profile != "" {
		// viper lower-cases every key it stores
		profile, ok := cfg.Profiles[strings.ToLower(cfg.Profile)]
		if !ok {
			return cfg, errors.Errorf("profile %q is not defined", cfg.Profile)
		}
		if err := decode(unpinned(profile, pinned), &cfg.Endpoint); err != nil {
			return cfg, errors.Wrapf(err, "failed to apply profile %q", cfg.Profile)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// unpinned drops the profile settings shadowed by explicit flags. An explicit
// host or port also drops the profile's url, which would otherwise win in
// ResolvedURL.
func unpinned(profile map[string]any, pinned []string) map[string]any {
	out := make(map[string]any, len(profile))
	for k, v := range profile {
		out[strings.ToLower(k)] = v
	}
	for _, key := range pinned {
		field, ok := strings.CutPrefix(strings.ToLower(key), "endpoint.")
		if !ok {
			continue
		}
		delete(out, field)
		if field == "host" || field == "port" {
			delete(out, "url")
		}
	}
	return out
}

func decode(input any, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           result,
		WeaklyTypedInput: true,
		ZeroFields:       false,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// Validate checks the settings that do not belong to the endpoint. Endpoint
// problems are reported by the skill client when it is constructed.
func (c Config) Validate() error {
	switch c.Output {
	case OutputText, OutputJSON:
	default:
		return errors.Errorf("unsupported output format %q (expected %s or %s)", c.Output, OutputText, OutputJSON)
	}
	if c.Endpoint.Timeout < 0 {
		return errors.Errorf("timeout must not be negative, got %s", c.Endpoint.Timeout)
	}
	if c.Station.Timeout < 0 {
		return errors.Errorf("station timeout must not be negative, got %s", c.Station.Timeout)
	}
	return nil
}

// ResolvedURL returns the explicit URL when one is set, otherwise the URL
// built from host, port and transport.
func (e Endpoint) ResolvedURL() string {
	if e.URL != "" {
		return e.URL
	}

	host := e.Host
	if host == "" {
		host = DefaultHost
	}
	port := e.Port
	if port == 0 {
		port = DefaultPort
	}

	path := "/skills/xmlrpc"
	if e.Transport == TransportHTTP {
		path = "/skills/"
	}
	return fmt.Sprintf("http://%s%s", net.JoinHostPort(host, strconv.Itoa(port)), path)
}

// String describes the endpoint without leaking the password.
func (e Endpoint) String() string {
	transport := e.Transport
	if transport == "" {
		transport = TransportXMLRPC
	}
	if e.Username != "" {
		return fmt.Sprintf("%s %s (user %s)", transport, e.ResolvedURL(), e.Username)
	}
	return fmt.Sprintf("%s %s", transport, e.ResolvedURL())
}

// ResolvedURL returns the explicit station URL or the one built from host and port.
func (s Station) ResolvedURL() string {
	if s.URL != "" {
		return s.URL
	}

	host := s.Host
	if host == "" {
		host = DefaultStationHost
	}
	port := s.Port
	if port == 0 {
		port = DefaultStationPort
	}
	return fmt.Sprintf("http://%s/", net.JoinHostPort(host, strconv.Itoa(port)))
}
