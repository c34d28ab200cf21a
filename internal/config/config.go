package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/PrinceLee1/lovey-dovey/internal/domain"
)

const EnvPrefix = "LOVEY"

type Config struct {
	APIURL     string
	APITimeout time.Duration
	Token      string
	UserID     int64
	UserName   string

	PusherKey      string
	PusherCluster  string
	PusherHost     string
	EventNamespace string

	// WebURL is where invite links point.
	WebURL string
	Bind   string
	Port   int

	ExportEnabled bool
	ExportFile    string

	LogLevel  string
	LogFormat string
}

// Flags registers every setting on fs, writing parsed values into c.
func (c *Config) Flags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&c.APIURL, "api-url", "https://couples.test/api", "base URL of the game server API (env: LOVEY_API_URL)")
	fs.DurationVar(&c.APITimeout, "api-timeout", 15*time.Second, "timeout for a single API request (env: LOVEY_API_TIMEOUT)")
	fs.StringVarP(&c.Token, "token", "t", "", "bearer token of the signed-in player (env: LOVEY_TOKEN)")
	fs.Int64Var(&c.UserID, "user-id", 0, "id of the signed-in player (env: LOVEY_USER_ID)")
	fs.StringVar(&c.UserName, "user-name", "", "display name of the signed-in player (env: LOVEY_USER_NAME)")
	fs.StringVar(&c.PusherKey, "pusher-key", "", "realtime app key (env: LOVEY_PUSHER_KEY)")
	fs.StringVar(&c.PusherCluster, "pusher-cluster", "mt1", "realtime cluster (env: LOVEY_PUSHER_CLUSTER)")
	fs.StringVar(&c.PusherHost, "pusher-host", "", "realtime host, overrides the cluster (env: LOVEY_PUSHER_HOST)")
	fs.StringVar(&c.EventNamespace, "event-namespace", `App\Events`, "namespace prefixed to broadcast event names (env: LOVEY_EVENT_NAMESPACE)")
	fs.StringVar(&c.WebURL, "web-url", "https://couples.test", "web app URL used for invite links (env: LOVEY_WEB_URL)")
	fs.StringVarP(&c.Bind, "bind", "b", "127.0.0.1", "address to bind the control server to (env: LOVEY_BIND)")
	fs.IntVarP(&c.Port, "port", "p", 8080, "port to listen on (env: LOVEY_PORT)")
	fs.BoolVar(&c.ExportEnabled, "export-enabled", false, "append finished game results to a file (env: LOVEY_EXPORT_ENABLED)")
	fs.StringVar(&c.ExportFile, "export-file", "./lovey-results.txt", "file game results are appended to (env: LOVEY_EXPORT_FILE)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "trace, debug, info, warn or error (env: LOVEY_LOG_LEVEL)")
	fs.StringVar(&c.LogFormat, "log-format", "console", "console or json (env: LOVEY_LOG_FORMAT)")
}

// Bind fills every flag the command line left unset from the environment.
func Bind(fs *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			if err := fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil {
				errs = append(errs, fmt.Errorf("%s_%s: %w", EnvPrefix, envName(f.Name), err))
			}
		}
	})
	return errors.Join(errs...)
}

func envName(flag string) string {
	return strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// FromEnv reads the configuration from defaults and LOVEY_* variables only.
func FromEnv() (Config, error) {
	var c Config
	fs := pflag.NewFlagSet("lovey", pflag.ContinueOnError)
	c.Flags(fs)
	if err := Bind(fs); err != nil {
		return c, err
	}
	return c, nil
}

// Validate checks the settings every mode needs. Realtime modes also need
// a pusher key.
func (c Config) Validate(realtime bool) error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid --api-url: %q", c.APIURL)
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("invalid --api-timeout: %s", c.APITimeout)
	}
	if c.Token == "" {
		return errors.New("--token is required")
	}
	if c.UserID <= 0 {
		return errors.New("--user-id is required")
	}
	if realtime && c.PusherKey == "" {
		return errors.New("--pusher-key is required to join a room")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil || c.LogLevel == "" {
		return fmt.Errorf("invalid --log-level: %q", c.LogLevel)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("invalid --log-format (must be console or json): %q", c.LogFormat)
	}
	return nil
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

func (c Config) Me() domain.Member {
	return domain.Member{ID: c.UserID, Name: c.UserName}
}

// Export is the results file, or "" when exporting is off.
func (c Config) Export() string {
	if !c.ExportEnabled {
		return ""
	}
	return c.ExportFile
}

// InviteURL links to the lobby in the web app.
func (c Config) InviteURL(code string) string {
	return strings.TrimRight(c.WebURL, "/") + "/lobby/" + url.PathEscape(code)
}
