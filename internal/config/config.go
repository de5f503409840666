// Package config provides functionality for managing configuration options
// for the console using command-line flags, a config file, a .env file and
// environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Options holds the configuration values for the console.
type Options struct {
	// APIURL is the base URL of the remote admin API.
	APIURL string `json:"apiUrl" yaml:"apiUrl"`

	// Listen is the gateway's listening address (ip:port).
	Listen string `json:"listen" yaml:"listen"`

	// CAFile optionally points to a PEM bundle trusted for the API.
	CAFile string `json:"caFile" yaml:"caFile"`

	// Storage selects the session backend: file, postgres or redis.
	Storage string `json:"storage" yaml:"storage"`

	// StateFile is the path of the file backend.
	StateFile string `json:"stateFile" yaml:"stateFile"`

	// DatabaseDSN holds the database connection string of the postgres backend.
	DatabaseDSN string `json:"databaseDsn" yaml:"databaseDsn"`

	// RedisURL is the connection URL of the redis backend.
	RedisURL string `json:"redisUrl" yaml:"redisUrl"`

	ProfileTTL    Duration `json:"profileTtl" yaml:"profileTtl"`
	SweepInterval Duration `json:"sweepInterval" yaml:"sweepInterval"`
	Debounce      Duration `json:"debounce" yaml:"debounce"`
	Timeout       Duration `json:"timeout" yaml:"timeout"`

	// PageLimit is the default page size of list views.
	PageLimit int `json:"pageLimit" yaml:"pageLimit"`

	LogLevel string `json:"logLevel" yaml:"logLevel"`

	// Config is the path to the config file.
	Config string `json:"-" yaml:"-"`

	// EnvFile is the path to an optional .env file.
	EnvFile string `json:"-" yaml:"-"`

	// Version asks the binary to print its build metadata and exit.
	Version bool `json:"-" yaml:"-"`
}

// Duration is a time.Duration read from config files as a Go duration
// string such as "5m".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		d.Duration = parsed
	case float64:
		d.Duration = time.Duration(v)
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Parse parses the command-line flags, config file and environment
// variables. It exits the process on invalid configuration.
func Parse() *Options {
	options, err := Load(os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalf("error while loading config: %v", err)
	}
	return options
}

// Load builds Options from args and the environment. Sources are
// applied in order, each overriding the previous one: flag values and
// defaults, the config file, the .env file, the process environment.
func Load(args []string, getenv func(string) string) (*Options, error) {
	options := &Options{}

	fs := flag.NewFlagSet("opsconsole", flag.ContinueOnError)
	fs.StringVar(&options.APIURL, "url", "http://localhost:8080", "admin API base URL")
	fs.StringVar(&options.Listen, "a", "localhost:8090", "run gateway on ip:port")
	fs.StringVar(&options.CAFile, "ca", "", "path to CA cert trusted for the API")
	fs.StringVar(&options.Storage, "storage", StorageFile, "session storage: file | postgres | redis")
	fs.StringVar(&options.StateFile, "state", "console.json", "path to the session state file")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&options.RedisURL, "redis", "", "redis URL")
	fs.DurationVar(&options.ProfileTTL.Duration, "profile-ttl", time.Hour, "profile cache lifetime")
	fs.DurationVar(&options.SweepInterval.Duration, "sweep", 5*time.Minute, "profile cache sweep interval")
	fs.DurationVar(&options.Debounce.Duration, "debounce", 500*time.Millisecond, "search filter quiet period")
	fs.DurationVar(&options.Timeout.Duration, "timeout", 10*time.Second, "API request timeout")
	fs.IntVar(&options.PageLimit, "limit", 10, "default page size")
	fs.StringVar(&options.LogLevel, "log-level", "info", "log level")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	fs.StringVar(&options.EnvFile, "env-file", ".env", "path to .env file")
	fs.BoolVar(&options.Version, "version", false, "show build version and date")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	env, err := layerEnv(options.EnvFile, getenv)
	if err != nil {
		return nil, err
	}

	if configPath := env("CONFIG"); configPath != "" {
		options.Config = configPath
	}
	if err := readFile(options.Config, options); err != nil {
		return nil, err
	}

	overrides := map[string]*string{
		"CONSOLE_API_URL":      &options.APIURL,
		"CONSOLE_LISTEN":       &options.Listen,
		"CONSOLE_STORAGE":      &options.Storage,
		"CONSOLE_DATABASE_DSN": &options.DatabaseDSN,
		"CONSOLE_REDIS_URL":    &options.RedisURL,
		"CONSOLE_LOG_LEVEL":    &options.LogLevel,
	}
	for key, dst := range overrides {
		if v := env(key); v != "" {
			*dst = v
		}
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}
	return options, nil
}

// Validate checks that the options are usable.
func (o *Options) Validate() error {
	var errs []error
	if o.APIURL == "" {
		errs = append(errs, errors.New("api url is required"))
	}
	switch o.Storage {
	case StorageFile:
	case StoragePostgres:
		if o.DatabaseDSN == "" {
			errs = append(errs, errors.New("postgres storage requires a database dsn"))
		}
	case StorageRedis:
		if o.RedisURL == "" {
			errs = append(errs, errors.New("redis storage requires a redis url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage %q", o.Storage))
	}
	if o.ProfileTTL.Duration <= 0 {
		errs = append(errs, errors.New("profile ttl must be positive"))
	}
	if o.SweepInterval.Duration <= 0 {
		errs = append(errs, errors.New("sweep interval must be positive"))
	}
	if o.PageLimit <= 0 {
		errs = append(errs, errors.New("page limit must be positive"))
	}
	return errors.Join(errs...)
}

// layerEnv returns a lookup that prefers getenv and falls back to the
// .env file at path, if one exists.
func layerEnv(path string, getenv func(string) string) (func(string) string, error) {
	dotenv := map[string]string{}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			values, err := godotenv.Read(path)
			if err != nil {
				return nil, fmt.Errorf("error while reading env file: %w", err)
			}
			dotenv = values
		}
	}
	return func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}, nil
}

// readFile decodes the config file at path onto options. A missing file
// is not an error. Files ending in .yaml or .yml are YAML, others JSON.
func readFile(path string, options *Options) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, options)
	default:
		err = json.Unmarshal(data, options)
	}
	if err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}
