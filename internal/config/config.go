package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/yuya-takeyama/strict-box-sync/pkg/confirm"
	"github.com/yuya-takeyama/strict-box-sync/pkg/remote/s3store"
)

const EnvPrefix = "STRICT_BOX_SYNC"

// Config keys. Flags are bound to these with FlagKeys.
const (
	KeyToken          = "token"
	KeyYes            = "yes"
	KeyNo             = "no"
	KeyDefault        = "default"
	KeyDryRun         = "dryrun"
	KeyQuiet          = "quiet"
	KeyVerbose        = "verbose"
	KeyExclude        = "exclude"
	KeyGeneratedFiles = "generated_files"
	KeyGeneratedDirs  = "generated_dirs"
	KeyConcurrency    = "concurrency"
	KeyRegion         = "region"
	KeyProfile        = "profile"
	KeyResultJSONFile = "result_json_file"
	KeyAPIURL         = "api_url"
	KeyContentURL     = "content_url"
	KeyConfig         = "config"
)

// FlagKeys maps command line flag names to config keys.
var FlagKeys = map[string]string{
	"token":            KeyToken,
	"yes":              KeyYes,
	"no":               KeyNo,
	"default":          KeyDefault,
	"dryrun":           KeyDryRun,
	"quiet":            KeyQuiet,
	"verbose":          KeyVerbose,
	"exclude":          KeyExclude,
	"generated-file":   KeyGeneratedFiles,
	"generated-dir":    KeyGeneratedDirs,
	"concurrency":      KeyConcurrency,
	"region":           KeyRegion,
	"profile":          KeyProfile,
	"result-json-file": KeyResultJSONFile,
	"api-url":          KeyAPIURL,
	"content-url":      KeyContentURL,
	"config":           KeyConfig,
}

var (
	ErrNoSource      = errors.New("source path is required")
	ErrNoDestination = errors.New("destination path is required")
	ErrNoToken       = errors.New("--token is required for Dropbox destinations")
)

// Config is built once per run and not modified afterwards.
type Config struct {
	Source      string
	Destination string
	Token       string

	Confirm confirm.Options

	DryRun  bool
	Quiet   bool
	Verbose bool

	// nil means the built-in defaults of package prune.
	Excludes       []string
	GeneratedFiles []string
	GeneratedDirs  []string

	Concurrency int
	Region      string
	Profile     string

	ResultJSONFile string
	APIURL         string
	ContentURL     string
}

// NewViper returns a viper instance reading STRICT_BOX_SYNC_* env vars.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault(KeyConcurrency, s3store.DefaultConcurrency)
	return v
}

// Load reads the optional config file named by the "config" key and builds a Config.
func Load(v *viper.Viper, source, destination string) (*Config, error) {
	if path := v.GetString(KeyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config read '%s': %w", path, err)
		}
	}

	cfg := &Config{
		Source:      source,
		Destination: destination,
		Token:       v.GetString(KeyToken),
		Confirm: confirm.Options{
			Yes:     v.GetBool(KeyYes),
			No:      v.GetBool(KeyNo),
			Default: v.GetBool(KeyDefault),
		},
		DryRun:         v.GetBool(KeyDryRun),
		Quiet:          v.GetBool(KeyQuiet),
		Verbose:        v.GetBool(KeyVerbose),
		Excludes:       stringSlice(v, KeyExclude),
		GeneratedFiles: stringSlice(v, KeyGeneratedFiles),
		GeneratedDirs:  stringSlice(v, KeyGeneratedDirs),
		Concurrency:    v.GetInt(KeyConcurrency),
		Region:         v.GetString(KeyRegion),
		Profile:        v.GetString(KeyProfile),
		ResultJSONFile: v.GetString(KeyResultJSONFile),
		APIURL:         v.GetString(KeyAPIURL),
		ContentURL:     v.GetString(KeyContentURL),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// stringSlice returns nil for unset keys so that an explicit empty list
// can be told apart from "use the defaults". Plain string values, as read
// from the environment, are split on commas like the command line flags.
func stringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}
	if raw, ok := v.Get(key).(string); ok {
		return splitList(raw)
	}
	s := v.GetStringSlice(key)
	if s == nil {
		s = []string{}
	}
	return s
}

func splitList(raw string) []string {
	out := []string{}
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsS3 reports whether the destination selects the S3 backend.
func (c *Config) IsS3() bool {
	return s3store.IsURI(c.Destination)
}

func (c *Config) Validate() error {
	if c.Source == "" {
		return ErrNoSource
	}
	if c.Destination == "" {
		return ErrNoDestination
	}
	if _, err := c.Confirm.Mode(); err != nil {
		return err
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}

	if c.IsS3() {
		if _, _, err := s3store.ParseURI(c.Destination); err != nil {
			return err
		}
		return nil
	}
	if c.Token == "" {
		return ErrNoToken
	}
	return nil
}
