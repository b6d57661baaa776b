package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vidgrab/internal/config"
	"vidgrab/internal/dirs"
	"vidgrab/internal/store"
	"vidgrab/internal/web"
)

func newServeCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web front end",
		Long: "Serve a small web page and JSON API for picking and downloading videos.\n" +
			"Downloads are rate limited per client IP and optionally require an API key;\n" +
			"Google sign-in is enabled when GOOGLE_OAUTH_CLIENT_SECRETS points to a client_secret.json.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("load %s: %w", envFile, err)}
			}
			// Reload so values from the env file apply.
			cfg, err := config.Load()
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			return runServe(cmd, cfg)
		},
	}
	flags := cmd.Flags()
	flags.String("listen", config.DefaultListen, "Address to listen on")
	flags.String("public-url", "", "External base URL, used for the OAuth redirect")
	flags.String("db", "", "SQLite database path (default in the data dir)")
	flags.StringVar(&envFile, "env-file", ".env", "Environment file loaded before reading configuration")
	config.BindFlags(flags, map[string]string{
		config.KeyListen:    "listen",
		config.KeyPublicURL: "public-url",
		config.KeyDBPath:    "db",
	})
	return cmd
}

func runServe(cmd *cobra.Command, cfg config.Config) error {
	sc := cfg.Server
	if sc.DBPath == "" {
		return &ExitError{Code: ExitCLIError, Err: errors.New("no database path configured")}
	}
	if err := dirs.Ensure(filepath.Dir(sc.DBPath)); err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	st, err := store.Open(sc.DBPath, sc.Limits)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	defer st.Close()

	oauthCfg, err := web.LoadOAuthConfig(sc.OAuthSecretsFile)
	if err != nil {
		// Sign-in stays disabled; /auth/login explains how to enable it.
		log.WithError(err).Warn("Google sign-in disabled")
	}

	svc, err := newService(cfg.Download)
	if err != nil {
		return err
	}
	srv, err := web.New(web.Options{
		Service:           svc,
		Store:             st,
		Credentials:       credentialProvider(cfg.Download),
		OAuth:             oauthCfg,
		APIKeys:           sc.APIKeys,
		TempDir:           sc.TempDir,
		PublicURL:         sc.PublicURL,
		JobTTL:            sc.JobTTL,
		MaxJobs:           sc.MaxJobs,
		RequestsPerSecond: sc.RequestsPerSecond,
	})
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}

	log.WithFields(log.Fields{
		"db":       sc.DBPath,
		"api_keys": len(sc.APIKeys),
		"oauth":    oauthCfg != nil,
		"limit":    fmt.Sprintf("%d/%s cooldown %s", sc.Limits.Max, sc.Limits.Window, sc.Limits.Cooldown),
	}).Info("starting web server")
	if err := srv.Run(cmd.Context(), sc.Listen); err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	return nil
}
