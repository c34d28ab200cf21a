package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valid() Config {
	c, _ := FromEnv()
	c.Token = "tok"
	c.UserID = 7
	c.PusherKey = "key"
	return c
}

func TestFromEnv_Defaults(t *testing.T) {
	c, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://couples.test/api", c.APIURL)
	assert.Equal(t, 15*time.Second, c.APITimeout)
	assert.Equal(t, "mt1", c.PusherCluster)
	assert.Equal(t, `App\Events`, c.EventNamespace)
	assert.Equal(t, "127.0.0.1:8080", c.Addr())
	assert.Equal(t, "", c.Export())
	assert.Equal(t, "console", c.LogFormat)
}

func TestFromEnv_ReadsPrefixedVariables(t *testing.T) {
	t.Setenv("LOVEY_TOKEN", "secret")
	t.Setenv("LOVEY_USER_ID", "42")
	t.Setenv("LOVEY_PORT", "9000")
	t.Setenv("LOVEY_API_TIMEOUT", "3s")
	t.Setenv("LOVEY_EXPORT_ENABLED", "true")
	t.Setenv("LOVEY_EXPORT_FILE", "/tmp/out.txt")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "secret", c.Token)
	assert.Equal(t, int64(42), c.Me().ID)
	assert.Equal(t, 9000, c.Port)
	assert.Equal(t, 3*time.Second, c.APITimeout)
	assert.Equal(t, "/tmp/out.txt", c.Export())
}

func TestFromEnv_BadValue(t *testing.T) {
	t.Setenv("LOVEY_PORT", "many")
	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOVEY_PORT")
}

func TestBind_FlagWinsOverEnv(t *testing.T) {
	t.Setenv("LOVEY_PORT", "9000")
	t.Setenv("LOVEY_USER_NAME", "Ada")

	var c Config
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	c.Flags(fs)
	require.NoError(t, fs.Parse([]string{"--port", "7000", "--log_level", "debug"}))
	require.NoError(t, Bind(fs))

	assert.Equal(t, 7000, c.Port)
	assert.Equal(t, "Ada", c.UserName)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		realtime bool
		wantErr  string
	}{
		{"ok", func(*Config) {}, true, ""},
		{"port", func(c *Config) { c.Port = 0 }, false, "invalid port"},
		{"api url", func(c *Config) { c.APIURL = "not a url" }, false, "--api-url"},
		{"token", func(c *Config) { c.Token = "" }, false, "--token"},
		{"user", func(c *Config) { c.UserID = 0 }, false, "--user-id"},
		{"pusher key", func(c *Config) { c.PusherKey = "" }, true, "--pusher-key"},
		{"solo without key", func(c *Config) { c.PusherKey = "" }, false, ""},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, false, "--log-level"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, false, "--log-format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(&c)
			err := c.Validate(tc.realtime)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestInviteURL(t *testing.T) {
	c := valid()
	c.WebURL = "https://example.com/"
	assert.Equal(t, "https://example.com/lobby/AB%20CD", c.InviteURL("AB CD"))
}
