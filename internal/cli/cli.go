// Package cli binds server configuration to command line flags, the
// environment and a TOML config file.
package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jacentio/flexdb/server"
)

const (
	// EnvPrefix prefixes every environment variable, e.g. FLEXDB_BOLT_PATH.
	EnvPrefix = "FLEXDB"

	// ConfigFlag names the flag holding the config file path.
	ConfigFlag = "config"
)

// ConfigFlags defines one flag per configuration value, defaulting to the
// current contents of c and writing parsed values back into it.
func ConfigFlags(flags *pflag.FlagSet, c *server.Config) {
	flags.StringVarP(&c.Bind, "bind", "b", c.Bind, "Address to listen on.")
	flags.StringVar(&c.APIPrefix, "api-prefix", c.APIPrefix, "Path prefix of the collection routes.")
	flags.StringVar(&c.Backend, "backend", c.Backend, "Document store backend (bolt or dynamodb).")
	flags.BoolVar(&c.TrustProxyHeaders, "trust-proxy-headers", c.TrustProxyHeaders, "Take the client address from X-Forwarded-For and X-Real-IP.")

	flags.StringVar(&c.Bolt.Path, "bolt.path", c.Bolt.Path, "Path of the bolt database file.")
	flags.DurationVar(&c.Bolt.OpenTimeout, "bolt.open-timeout", c.Bolt.OpenTimeout, "How long to wait for the bolt file lock.")

	flags.StringVar(&c.DynamoDB.Table, "dynamodb.table", c.DynamoDB.Table, "DynamoDB table holding every collection.")
	flags.StringVar(&c.DynamoDB.Region, "dynamodb.region", c.DynamoDB.Region, "AWS region override.")
	flags.StringVar(&c.DynamoDB.Endpoint, "dynamodb.endpoint", c.DynamoDB.Endpoint, "DynamoDB endpoint override, e.g. DynamoDB Local.")
	flags.BoolVar(&c.DynamoDB.CreateTable, "dynamodb.create-table", c.DynamoDB.CreateTable, "Create the table on startup if missing.")

	flags.BoolVar(&c.Tracing.Enabled, "tracing.enabled", c.Tracing.Enabled, "Export traces.")
	flags.StringVar(&c.Tracing.ServiceName, "tracing.service-name", c.Tracing.ServiceName, "Service name reported with spans.")
	flags.StringVar(&c.Tracing.Exporter, "tracing.exporter", c.Tracing.Exporter, "Trace exporter (otlp or jaeger).")
	flags.StringVar(&c.Tracing.Endpoint, "tracing.endpoint", c.Tracing.Endpoint, "Trace collector endpoint.")
	flags.Float64Var(&c.Tracing.SampleRate, "tracing.sample-rate", c.Tracing.SampleRate, "Fraction of traces to keep.")

	flags.StringVar(&c.Log.Level, "log.level", c.Log.Level, "Log level (debug, info, warn, error).")
	flags.StringVar(&c.Log.Format, "log.format", c.Log.Format, "Log format (text or json).")

	flags.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", c.ShutdownTimeout, "Grace period for in-flight requests on shutdown.")
}

// SetAllConfig takes a FlagSet to be the definition of all configuration
// options, as well as their defaults. It then reads from the command line,
// the environment, and a config file (if specified), and applies the
// configuration in that priority order. Since each flag holds a pointer to
// where its value is stored, SetAllConfig modifies the config directly.
//
// Environment variables are the flag names upper-cased, with dots and dashes
// replaced by underscores, prefixed with envPrefix and an underscore.
func SetAllConfig(v *viper.Viper, flags *pflag.FlagSet, envPrefix string) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	validTags := make(map[string]bool)
	flags.VisitAll(func(f *pflag.Flag) {
		validTags[f.Name] = true
	})

	if c := v.GetString(ConfigFlag); c != "" {
		v.SetConfigFile(c)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading configuration file '%s': %v", c, err)
		}
		for _, key := range v.AllKeys() {
			if !validTags[key] {
				return fmt.Errorf("invalid option in configuration file: %v", key)
			}
		}
	}

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed {
			return
		}
		flagErr = f.Value.Set(v.GetString(f.Name))
	})
	return flagErr
}

// WriteConfig writes the current flag values as a TOML config file that
// SetAllConfig accepts.
func WriteConfig(w io.Writer, flags *pflag.FlagSet) error {
	root := make(map[string]interface{})
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Name == ConfigFlag || f.Hidden {
			return
		}
		var val interface{}
		if val, err = tomlValue(f); err != nil {
			return
		}
		put(root, strings.Split(f.Name, "."), val)
	})
	if err != nil {
		return err
	}

	tree, err := toml.TreeFromMap(root)
	if err != nil {
		return err
	}
	s, err := tree.ToTomlString()
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, s)
	return err
}

func tomlValue(f *pflag.Flag) (interface{}, error) {
	s := f.Value.String()
	switch f.Value.Type() {
	case "bool":
		return strconv.ParseBool(s)
	case "float64":
		return strconv.ParseFloat(s, 64)
	case "int":
		return strconv.ParseInt(s, 10, 64)
	default:
		return s, nil
	}
}

func put(m map[string]interface{}, path []string, val interface{}) {
	if len(path) == 1 {
		m[path[0]] = val
		return
	}
	sub, ok := m[path[0]].(map[string]interface{})
	if !ok {
		sub = make(map[string]interface{})
		m[path[0]] = sub
	}
	put(sub, path[1:], val)
}
