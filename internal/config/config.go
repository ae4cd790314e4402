package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/automaton-filecheck/internal/domain/filecheck"
)

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		APIKeys        []string `yaml:"apiKeys"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
		RateLimit      struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rateLimit"`
	} `yaml:"server"`

	Intelix struct {
		Credentials  string        `yaml:"credentials"`
		AuthURL      string        `yaml:"authURL"`
		LookupURL    string        `yaml:"lookupURL"`
		StaticURL    string        `yaml:"staticURL"`
		DynamicURL   string        `yaml:"dynamicURL"`
		PollInterval time.Duration `yaml:"pollInterval"`
		MaxPolls     int           `yaml:"maxPolls"`
		HTTPTimeout  time.Duration `yaml:"httpTimeout"`
	} `yaml:"intelix"`

	Storage struct {
		Driver       string `yaml:"driver"` // minio | s3
		Endpoint     string `yaml:"endpoint"`
		Region       string `yaml:"region"`
		AccessKey    string `yaml:"accessKey"`
		SecretKey    string `yaml:"secretKey"`
		UseSSL       bool   `yaml:"useSSL"`
		OutputBucket string `yaml:"outputBucket"`
		TempDir      string `yaml:"tempDir"`
	} `yaml:"storage"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | "" (in memory)
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	OpenAI struct {
		APIKey  string `yaml:"apiKey"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"baseURL"`
	} `yaml:"openai"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Tracing struct {
		Enabled      bool          `yaml:"enabled"`
		ServiceName  string        `yaml:"serviceName"`
		Environment  string        `yaml:"environment"`
		Endpoint     string        `yaml:"endpoint"`
		Insecure     bool          `yaml:"insecure"`
		SampleRate   float64       `yaml:"sampleRate"`
		BatchTimeout time.Duration `yaml:"batchTimeout"`
	} `yaml:"tracing"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var c Config
	c.Server.Port = 8080
	c.Server.RateLimit.RPS = 10
	c.Server.RateLimit.Burst = 20
	c.Intelix.PollInterval = 5 * time.Second
	c.Intelix.MaxPolls = 240
	c.Intelix.HTTPTimeout = 2 * time.Minute
	c.Storage.Driver = "minio"
	c.Storage.Region = "us-east-1"
	c.Storage.TempDir = os.TempDir()
	c.Database.SSLMode = "disable"
	c.Log.Level = "info"
	c.Tracing.ServiceName = "automaton-filecheck"
	c.Tracing.Environment = "development"
	c.Tracing.Endpoint = "localhost:4317"
	c.Tracing.SampleRate = 1.0
	c.Tracing.BatchTimeout = 5 * time.Second
	return &c
}

// Load reads the YAML file at path over the defaults, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Intelix.Credentials, "INTELIX_CREDENTIALS")
	set(&c.Storage.OutputBucket, "OUTPUT_BUCKET")
	set(&c.Database.Driver, "DATABASE_DRIVER")
	set(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	set(&c.Log.Level, "LOG_LEVEL")
}

// Validate checks what the daemon needs before it touches the network.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Intelix.Credentials) == "" {
		return fmt.Errorf("%w: INTELIX_CREDENTIALS is not set", filecheck.ErrConfiguration)
	}
	if strings.TrimSpace(c.Storage.OutputBucket) == "" {
		return fmt.Errorf("%w: OUTPUT_BUCKET is not set", filecheck.ErrConfiguration)
	}
	switch c.Storage.Driver {
	case "minio", "s3":
	default:
		return fmt.Errorf("%w: unknown storage driver %q", filecheck.ErrConfiguration, c.Storage.Driver)
	}
	switch c.Database.Driver {
	case "", "mysql", "postgres":
	default:
		return fmt.Errorf("%w: unknown database driver %q", filecheck.ErrConfiguration, c.Database.Driver)
	}
	return nil
}

// MySQLDSN builds the go-sql-driver DSN. multiStatements is needed by the migration.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC&multiStatements=true",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq connection URL.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.Database.SSLMode),
	}
	return u.String()
}
