package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jacentio/flexdb/internal/cli"
	"github.com/jacentio/flexdb/server"
)

func newFlags(c *server.Config) *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String(cli.ConfigFlag, "", "config file")
	cli.ConfigFlags(flags, c)
	return flags
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flexdb.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestSetAllConfig_Defaults(t *testing.T) {
	c := server.DefaultConfig()
	flags := newFlags(&c)
	if err := flags.Parse(nil); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := cli.SetAllConfig(viper.New(), flags, cli.EnvPrefix); err != nil {
		t.Fatalf("set config: %v", err)
	}

	want := server.DefaultConfig()
	if c != want {
		t.Errorf("expected defaults unchanged\nwant %+v\ngot  %+v", want, c)
	}
}

func TestSetAllConfig_Precedence(t *testing.T) {
	path := writeFile(t, `
bind = ":7000"
backend = "dynamodb"
shutdown-timeout = "3s"

[dynamodb]
table = "from-file"
region = "eu-west-1"

[tracing]
enabled = true
sample-rate = 0.25
`)
	t.Setenv("FLEXDB_DYNAMODB_TABLE", "from-env")
	t.Setenv("FLEXDB_LOG_LEVEL", "debug")

	c := server.DefaultConfig()
	flags := newFlags(&c)
	if err := flags.Parse([]string{"--config", path, "--bind", ":9000"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := cli.SetAllConfig(viper.New(), flags, cli.EnvPrefix); err != nil {
		t.Fatalf("set config: %v", err)
	}

	tests := []struct {
		name      string
		got, want interface{}
	}{
		{"flag beats file", c.Bind, ":9000"},
		{"file", c.Backend, "dynamodb"},
		{"env beats file", c.DynamoDB.Table, "from-env"},
		{"nested file", c.DynamoDB.Region, "eu-west-1"},
		{"env", c.Log.Level, "debug"},
		{"bool", c.Tracing.Enabled, true},
		{"float", c.Tracing.SampleRate, 0.25},
		{"duration", c.ShutdownTimeout, 3 * time.Second},
		{"default", c.APIPrefix, "/api"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, tt.got)
		}
	}
}

func TestSetAllConfig_InvalidKey(t *testing.T) {
	path := writeFile(t, `
[bolt]
path = "x.db"
compression = "zstd"
`)
	c := server.DefaultConfig()
	flags := newFlags(&c)
	if err := flags.Parse([]string{"--config", path}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	err := cli.SetAllConfig(viper.New(), flags, cli.EnvPrefix)
	if err == nil || !strings.Contains(err.Error(), "bolt.compression") {
		t.Errorf("expected invalid option error, got %v", err)
	}
}

func TestWriteConfig_RoundTrip(t *testing.T) {
	c := server.DefaultConfig()
	c.Bind = ":9999"
	c.Tracing.SampleRate = 0.5
	c.DynamoDB.CreateTable = true

	var buf bytes.Buffer
	if err := cli.WriteConfig(&buf, newFlags(&c)); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if !strings.Contains(buf.String(), `bind = ":9999"`) {
		t.Errorf("expected bind in output, got:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "config") {
		t.Errorf("expected config flag to be omitted, got:\n%s", buf.String())
	}

	path := writeFile(t, buf.String())
	got := server.DefaultConfig()
	flags := newFlags(&got)
	if err := flags.Parse([]string{"--config", path}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := cli.SetAllConfig(viper.New(), flags, cli.EnvPrefix); err != nil {
		t.Fatalf("set config: %v", err)
	}
	if got != c {
		t.Errorf("expected round trip\nwant %+v\ngot  %+v", c, got)
	}
}
