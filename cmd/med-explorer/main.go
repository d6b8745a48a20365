// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the med-explorer CLI.
// Subcommands: search (one candidate search in the terminal), serve (the
// web form), and version.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/med-explorer/internal/secrets"
	"github.com/pdiddy/med-explorer/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "med-explorer/0.1"
	secretsDir       = ".secrets/"
)

var (
	// loadedSecrets holds values read from .secrets/ at startup.
	loadedSecrets secrets.Secrets

	// logger receives diagnostics. It is replaced in PersistentPreRunE.
	logger = zap.NewNop()
)

// rootCmd is the base command for the med-explorer CLI.
var rootCmd = &cobra.Command{
	Use:   "med-explorer",
	Short: "Find PubMed authors from Ukraine for a research topic",
	Long: `med-explorer searches PubMed for recent articles matching a set of
keywords and reports authors with a Ukrainian affiliation who publish
regularly and have never co-authored with a named student.

Run a search from the terminal with "search" or start the web form with
"serve". The contact email NCBI asks for can come from --email, the
MED_EXPLORER_EMAIL variable, a .env file, or .secrets/pubmed-email.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		logger = newLogger(verbose)

		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("could not load .env", zap.Error(err))
		}

		s, err := secrets.Load(secretsDir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			logger.Info("loaded secrets", zap.Strings("keys", s.Keys()))
		}
		if f := viper.ConfigFileUsed(); f != "" {
			logger.Info("using config file", zap.String("path", f))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./med-explorer.yaml or ~/.config/med-explorer/med-explorer.yaml)")
	pf.BoolP("verbose", "v", false, "log diagnostics to stderr")
	pf.String("api-key", "", "NCBI API key (raises the request ceiling to 10/s)")
	pf.Duration("timeout", 0, "HTTP request timeout (default 30s)")
	pf.Int("batch-size", types.DefaultBatchSize, "articles fetched per page")
	pf.Duration("delay", types.DefaultPageDelay, "pause between result pages (negative disables)")
	pf.Int("min-articles", types.DefaultMinArticles, "articles an author needs in the last five years")

	for _, name := range []string{"api-key", "timeout", "batch-size", "delay", "min-articles"} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("med-explorer")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "med-explorer"))
		}
	}

	viper.SetEnvPrefix("MED_EXPLORER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && cfgFile != "" {
			fmt.Fprintln(os.Stderr, "Error reading config file:", err)
		}
	}
}

// newLogger returns a development logger when verbose is set and a
// warn-level production logger otherwise.
func newLogger(verbose bool) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if verbose {
		l, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		l, err = cfg.Build()
	}
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// secretDefault returns value if set, otherwise the secret stored under key.
func secretDefault(key, value string) string {
	return loadedSecrets.Value(key, value)
}

// pubmedConfig resolves the E-utilities client settings for email.
func pubmedConfig(email string) types.PubMedConfig {
	timeout := viper.GetDuration("timeout")
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return types.PubMedConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent + " (" + version + ")",
		},
		Email:  email,
		APIKey: secretDefault(secrets.APIKeyKey, viper.GetString("api-key")),
	}
}

// discoveryConfig resolves the search loop tunables.
func discoveryConfig() types.DiscoveryConfig {
	return types.DiscoveryConfig{
		BatchSize:   viper.GetInt("batch-size"),
		PageDelay:   viper.GetDuration("delay"),
		MinArticles: viper.GetInt("min-articles"),
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
