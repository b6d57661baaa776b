package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"vidgrab/internal/dirs"
	"vidgrab/internal/logging"
	"vidgrab/internal/model"
	"vidgrab/internal/store"
)

// EnvPrefix prefixes every environment variable, e.g. VIDGRAB_OUT_DIR.
const EnvPrefix = "VIDGRAB"

// Keys used with viper.
const (
	KeyOutDir             = "out_dir"
	KeyVerbose            = "verbose"
	KeyLogFormat          = "log_format"
	KeyDLBinary           = "dl_binary"
	KeyFFmpegDir          = "ffmpeg_dir"
	KeyAria2c             = "aria2c"
	KeyCookies            = "cookies"
	KeyCookiesFromBrowser = "cookies_from_browser"
	KeyNoUI               = "no_ui"

	KeyListen       = "server.listen"
	KeyPublicURL    = "server.public_url"
	KeyAPIKeys      = "server.api_keys"
	KeyDBPath       = "server.db_path"
	KeyTempDir      = "server.temp_dir"
	KeyOAuthSecrets = "server.oauth_client_secrets"
	KeyJobTTL       = "server.job_ttl"
	KeyMaxJobs      = "server.max_jobs"
	KeyRequestsPerS = "server.requests_per_second"

	KeyRateMax      = "rate_limit.max"
	KeyRateWindow   = "rate_limit.window"
	KeyRateCooldown = "rate_limit.cooldown"
)

// DefaultListen is the web server address when none is configured.
const DefaultListen = "127.0.0.1:8501"

// Config is a typed snapshot of the merged flag/env/file configuration.
type Config struct {
	Download model.CLIOptions
	LogFormat string
	Server   Server
}

// Server holds the settings of `vidgrab serve`.
type Server struct {
	Listen            string
	PublicURL         string
	APIKeys           []string
	DBPath            string
	TempDir           string
	OAuthSecretsFile  string
	JobTTL            time.Duration
	MaxJobs           int
	RequestsPerSecond float64
	Limits            store.Limits
}

// Init wires Viper with config paths, env, defaults, and flag bindings.
// It is non-fatal: any errors are returned for optional handling by caller.
func Init(root *cobra.Command) error {
	return initViper(viper.GetViper(), root)
}

func initViper(v *viper.Viper, root *cobra.Command) error {
	_ = dirs.EnsureAll()

	if cfgDir, err := dirs.ConfigDir(); err == nil {
		v.AddConfigPath(cfgDir)
	}
	v.SetConfigName("config") // supports config.{yaml|yml|json|toml}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)
	setDefaults(v)

	if root != nil {
		bindFlags(v, root.PersistentFlags(), map[string]string{
			KeyOutDir:             "out-dir",
			KeyVerbose:            "verbose",
			KeyLogFormat:          "log-format",
			KeyDLBinary:           "dl-binary",
			KeyFFmpegDir:          "ffmpeg-dir",
			KeyAria2c:             "aria2c",
			KeyCookies:            "cookies",
			KeyCookiesFromBrowser: "cookies-from-browser",
		})
		bindFlags(v, root.Flags(), map[string]string{KeyNoUI: "no-ui"})
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// BindFlags binds flags of a subcommand to configuration keys (key -> flag name).
// A flag only overrides the file and environment when it was set explicitly.
func BindFlags(fs *pflag.FlagSet, keys map[string]string) {
	bindFlags(viper.GetViper(), fs, keys)
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if f := fs.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

// bindLegacyEnv accepts the unprefixed variable names older deployments use.
func bindLegacyEnv(v *viper.Viper) {
	legacy := map[string]string{
		KeyAPIKeys:      "API_KEYS",
		KeyRateMax:      "RATE_LIMIT_MAX",
		KeyRateWindow:   "RATE_LIMIT_WINDOW_SEC",
		KeyRateCooldown: "RATE_LIMIT_COOLDOWN_SEC",
		KeyOAuthSecrets: "GOOGLE_OAUTH_CLIENT_SECRETS",
	}
	for key, env := range legacy {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
		_ = v.BindEnv(key, prefixed, env)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyOutDir, dirs.DefaultOutputDir())
	v.SetDefault(KeyLogFormat, logging.FormatText)
	v.SetDefault(KeyListen, DefaultListen)
	v.SetDefault(KeyJobTTL, "30m")
	v.SetDefault(KeyMaxJobs, 2)
	v.SetDefault(KeyRequestsPerS, 5.0)
	v.SetDefault(KeyRateMax, store.DefaultLimits.Max)
	v.SetDefault(KeyRateWindow, int(store.DefaultLimits.Window/time.Second))
	v.SetDefault(KeyRateCooldown, int(store.DefaultLimits.Cooldown/time.Second))
	if p, err := dirs.DefaultDBPath(); err == nil {
		v.SetDefault(KeyDBPath, p)
	}
	if p, err := dirs.TempBaseDir(); err == nil {
		v.SetDefault(KeyTempDir, p)
	}
}

// Load returns the current configuration snapshot.
func Load() (Config, error) {
	return load(viper.GetViper())
}

func load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Download: model.CLIOptions{
			OutDir:             v.GetString(KeyOutDir),
			Verbose:            v.GetBool(KeyVerbose),
			DLBinary:           v.GetString(KeyDLBinary),
			FFmpegDir:          v.GetString(KeyFFmpegDir),
			UseAria2c:          v.GetBool(KeyAria2c),
			CookieFile:         v.GetString(KeyCookies),
			CookiesFromBrowser: v.GetString(KeyCookiesFromBrowser),
			NoUI:               v.GetBool(KeyNoUI),
		},
		LogFormat: v.GetString(KeyLogFormat),
		Server: Server{
			Listen:            v.GetString(KeyListen),
			PublicURL:         strings.TrimRight(v.GetString(KeyPublicURL), "/"),
			APIKeys:           splitList(v.Get(KeyAPIKeys)),
			DBPath:            v.GetString(KeyDBPath),
			TempDir:           v.GetString(KeyTempDir),
			OAuthSecretsFile:  v.GetString(KeyOAuthSecrets),
			JobTTL:            v.GetDuration(KeyJobTTL),
			MaxJobs:           v.GetInt(KeyMaxJobs),
			RequestsPerSecond: v.GetFloat64(KeyRequestsPerS),
			Limits: store.Limits{
				Max:      v.GetInt(KeyRateMax),
				Window:   seconds(v, KeyRateWindow),
				Cooldown: seconds(v, KeyRateCooldown),
			},
		},
	}
	if cfg.Download.OutDir == "" {
		cfg.Download.OutDir = dirs.DefaultOutputDir()
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = DefaultListen
	}
	if cfg.Server.Limits.Max < 0 {
		return Config{}, fmt.Errorf("%s must not be negative", KeyRateMax)
	}
	if cfg.Server.JobTTL <= 0 {
		cfg.Server.JobTTL = 30 * time.Minute
	}
	return cfg, nil
}

// seconds reads an integer number of seconds, also accepting duration strings like "10m".
func seconds(v *viper.Viper, key string) time.Duration {
	if s := v.GetString(key); strings.ContainsAny(s, "hms") {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return time.Duration(v.GetInt(key)) * time.Second
}

// splitList accepts a YAML list or a comma-separated string.
func splitList(raw any) []string {
	var parts []string
	switch t := raw.(type) {
	case nil:
		return nil
	case string:
		parts = strings.Split(t, ",")
	case []string:
		parts = t
	case []any:
		for _, x := range t {
			parts = append(parts, fmt.Sprint(x))
		}
	default:
		parts = []string{fmt.Sprint(t)}
	}
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
