package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	apiKey         string
	bind           string
	catalog        string
	endpoint       string
	maxUpload      int64
	model          string
	photoMaxSide   int
	port           int
	prefix         string
	profile        bool
	scanMaxTokens  int
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
	visionTimeout  time.Duration
	xrayMaxTokens  int

	logger  *zap.SugaredLogger
	logOnce sync.Once
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.maxUpload < 1 {
		return fmt.Errorf("invalid upload limit: %d", c.maxUpload)
	}
	if c.sessionTimeout != 0 && c.sessionTimeout < time.Second {
		return fmt.Errorf("invalid session timeout (must be 0 or at least 1s): %s", c.sessionTimeout)
	}
	return c.validateVision()
}

// validateVision checks the settings shared by the server and the scan command.
func (c *Config) validateVision() error {
	if c.scanMaxTokens < 1 || c.xrayMaxTokens < 1 {
		return errors.New("--scan-max-tokens and --xray-max-tokens must be positive")
	}
	if c.photoMaxSide < 0 {
		return fmt.Errorf("invalid photo size limit: %d", c.photoMaxSide)
	}
	if c.visionTimeout <= 0 {
		return errors.New("--vision-timeout must be positive")
	}
	if c.endpoint != "" && !strings.HasPrefix(c.endpoint, "http://") && !strings.HasPrefix(c.endpoint, "https://") {
		return fmt.Errorf("invalid endpoint (must start with http:// or https://): %s", c.endpoint)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// bindFlags copies environment values into any flag not set on the command line.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("DUELCODEX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "duelcodex",
		Short:         "Card reference and deck predictor for 7 Wonders Duel, with photo recognition.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			bindFlags(v, cmd.Flags())
			cfg.logger = newLogger(cfg)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.PersistentFlags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&cfg.apiKey, "api-key", "", "fallback Gemini API key when the browser sends none (env: DUELCODEX_API_KEY)")
	fs.StringVar(&cfg.catalog, "catalog", "", "path to a catalog TOML file replacing the built-in one (env: DUELCODEX_CATALOG)")
	fs.StringVar(&cfg.endpoint, "endpoint", defaultEndpoint, "base URL of the Gemini API (env: DUELCODEX_ENDPOINT)")
	fs.StringVar(&cfg.model, "model", defaultModel, "vision model identifier (env: DUELCODEX_MODEL)")
	fs.IntVar(&cfg.photoMaxSide, "photo-max-side", 1600, "longest photo side sent to the model, 0 to keep the original (env: DUELCODEX_PHOTO_MAX_SIDE)")
	fs.IntVar(&cfg.scanMaxTokens, "scan-max-tokens", 4096, "output token cap for card recognition (env: DUELCODEX_SCAN_MAX_TOKENS)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: DUELCODEX_VERBOSE)")
	fs.DurationVar(&cfg.visionTimeout, "vision-timeout", 90*time.Second, "timeout for a single vision request (env: DUELCODEX_VISION_TIMEOUT)")
	fs.IntVar(&cfg.xrayMaxTokens, "xray-max-tokens", 2048, "output token cap for face-down card detection (env: DUELCODEX_XRAY_MAX_TOKENS)")

	lfs := cmd.Flags()

	lfs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: DUELCODEX_BIND)")
	lfs.Int64Var(&cfg.maxUpload, "max-upload", 20<<20, "maximum photo upload size in bytes (env: DUELCODEX_MAX_UPLOAD)")
	lfs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: DUELCODEX_PORT)")
	lfs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: DUELCODEX_PREFIX)")
	lfs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: DUELCODEX_PROFILE)")
	lfs.DurationVar(&cfg.sessionTimeout, "session-timeout", 6*time.Hour, "time before idle predictor sessions are dropped, 0 to keep them (env: DUELCODEX_SESSION_TIMEOUT)")
	lfs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: DUELCODEX_TLS_CERT)")
	lfs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: DUELCODEX_TLS_KEY)")
	lfs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: DUELCODEX_VERSION)")

	cmd.AddCommand(newCardsCmd(cfg), newScanCmd(cfg))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("duelcodex v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
