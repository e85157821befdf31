package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// DefaultEnvPrefix is the environment prefix used when none is given.
	// LOGS_GATEWAY_INGRESS__SECRETS__DISCORD_TOKEN=X sets secrets.discord_token.
	DefaultEnvPrefix = "LOGS_GATEWAY_INGRESS"

	// EnvSeparator separates the prefix and each nested key in a variable name.
	EnvSeparator = "__"
)

type loadOptions struct {
	envPrefix string
	environ   []string
}

// LoadOption customises Load.
type LoadOption func(*loadOptions)

// WithEnvPrefix sets the prefix environment overrides must carry.
func WithEnvPrefix(prefix string) LoadOption {
	return func(o *loadOptions) {
		if prefix != "" {
			o.envPrefix = prefix
		}
	}
}

// WithEnviron replaces os.Environ as the source of overrides.
func WithEnviron(environ []string) LoadOption {
	return func(o *loadOptions) {
		o.environ = environ
	}
}

// Load reads the settings file at path, overlays prefixed environment
// variables and decodes the result into a Configuration. It is meant to be
// called once at startup; every failure is an *Error.
func Load(path string, opts ...LoadOption) (Configuration, error) {
	o := loadOptions{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(&o)
	}
	if o.environ == nil {
		o.environ = os.Environ()
	}

	if _, err := os.Stat(path); err != nil {
		return Configuration{}, &Error{Kind: KindNotFound, Path: path, Err: err}
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		return Configuration{}, &Error{Kind: readErrorKind(err), Path: path, Err: err}
	}

	for key, value := range envOverrides(o.envPrefix, o.environ) {
		v.Set(key, value)
	}

	var cfg Configuration
	err := v.Unmarshal(&cfg,
		viper.DecodeHook(humanDurationHook()),
		func(dc *mapstructure.DecoderConfig) {
			dc.WeaklyTypedInput = true
		},
	)
	if err != nil {
		return Configuration{}, &Error{
			Kind:  KindValidation,
			Path:  path,
			Field: fieldFromDecodeError(err),
			Err:   err,
		}
	}

	if err := cfg.Validate(); err != nil {
		field := ""
		var fe *FieldError
		if errors.As(err, &fe) {
			field = fe.Field
		}
		return Configuration{}, &Error{Kind: KindValidation, Path: path, Field: field, Err: err}
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("server.port", 9090)
}

func readErrorKind(err error) Kind {
	var parseErr viper.ConfigParseError
	var parseErrPtr *viper.ConfigParseError
	var unsupported viper.UnsupportedConfigError
	if errors.As(err, &parseErr) || errors.As(err, &parseErrPtr) || errors.As(err, &unsupported) {
		return KindParse
	}
	return KindNotFound
}

// envOverrides maps PREFIX__GROUP__FIELD=value onto group.field.
func envOverrides(prefix string, environ []string) map[string]string {
	overrides := make(map[string]string)
	lead := prefix + EnvSeparator

	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, lead) {
			continue
		}
		parts := strings.Split(strings.TrimPrefix(name, lead), EnvSeparator)
		path := make([]string, 0, len(parts))
		for _, p := range parts {
			if p == "" {
				path = nil
				break
			}
			path = append(path, strings.ToLower(p))
		}
		if len(path) == 0 {
			continue
		}
		overrides[strings.Join(path, ".")] = value
	}
	return overrides
}

var durationType = reflect.TypeOf(time.Duration(0))

// humanDurationHook only accepts durations written as strings such as "5s"
// or "2m30s"; bare numbers are rejected rather than read as nanoseconds.
func humanDurationHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != durationType {
			return data, nil
		}
		switch d := data.(type) {
		case time.Duration:
			return d, nil
		case string:
			s := strings.TrimSpace(d)
			if s == "" {
				return time.Duration(0), nil
			}
			parsed, err := time.ParseDuration(s)
			if err != nil {
				return nil, fmt.Errorf("invalid duration %q: %w", d, err)
			}
			return parsed, nil
		default:
			return nil, fmt.Errorf("expected a duration such as \"5s\" or \"2m30s\", got %v (%s)", data, from)
		}
	}
}

var quotedField = regexp.MustCompile(`'([A-Za-z0-9_.\[\]]+)'`)

func fieldFromDecodeError(err error) string {
	if m := quotedField.FindStringSubmatch(err.Error()); m != nil {
		return m[1]
	}
	return ""
}
