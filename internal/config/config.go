package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderCoze   = "coze"
	ProviderOpenAI = "openai"

	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

type Config struct {
	Server struct {
		Port           int               `yaml:"port"`
		MaxUploadBytes int64             `yaml:"maxUploadBytes"`
		APIKeys        map[string]string `yaml:"apiKeys"` // client id -> key
		CORSOrigins    []string          `yaml:"corsOrigins"`
		RateLimit      struct {
			Capacity   int `yaml:"capacity"`
			RefillRate int `yaml:"refillRate"`
		} `yaml:"rateLimit"`
	} `yaml:"server"`

	Inference struct {
		Provider  string        `yaml:"provider"`
		Endpoint  string        `yaml:"endpoint"`
		Token     string        `yaml:"token"`
		ProjectID int64         `yaml:"projectId"`
		Timeout   time.Duration `yaml:"timeout"`
		OpenAI    struct {
			APIKey  string `yaml:"apiKey"`
			BaseURL string `yaml:"baseURL"`
			Model   string `yaml:"model"`
		} `yaml:"openai"`
	} `yaml:"inference"`

	Database struct {
		Driver   string `yaml:"driver"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Log struct {
		Level    string `yaml:"level"`
		Encoding string `yaml:"encoding"`
	} `yaml:"log"`
}

// Load baca file config.yaml, lalu override secret dari env / .env.
// An empty path skips the file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	// .env opsional
	_ = godotenv.Load()

	if path == "" {
		return Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and defaults, and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Inference.Token, "INFERENCE_TOKEN")
	setString(&c.Inference.Endpoint, "INFERENCE_ENDPOINT")
	setString(&c.Inference.Provider, "INFERENCE_PROVIDER")
	setString(&c.Inference.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Minio.AccessKey, "MINIO_ACCESS_KEY")
	setString(&c.Minio.SecretKey, "MINIO_SECRET_KEY")
	if v := os.Getenv("INFERENCE_PROJECT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Inference.ProjectID = id
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = 10 << 20
	}
	if c.Server.RateLimit.Capacity <= 0 {
		c.Server.RateLimit.Capacity = 30
	}
	if c.Server.RateLimit.RefillRate <= 0 {
		c.Server.RateLimit.RefillRate = 1
	}
	if c.Inference.Provider == "" {
		c.Inference.Provider = ProviderCoze
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverNone
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Encoding == "" {
		c.Log.Encoding = "json"
	}
}

// Validate rejects unknown providers and drivers.
func (c *Config) Validate() error {
	switch c.Inference.Provider {
	case ProviderCoze, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown inference provider %q (allowed: coze, openai)", c.Inference.Provider)
	}
	switch c.Database.Driver {
	case DriverMySQL, DriverPostgres, DriverNone:
	default:
		return fmt.Errorf("unknown database driver %q (allowed: mysql, postgres, none)", c.Database.Driver)
	}
	if c.Inference.Timeout < 0 {
		return fmt.Errorf("inference.timeout must not be negative")
	}
	if c.Minio.Enabled && (c.Minio.Endpoint == "" || c.Minio.BucketName == "") {
		return fmt.Errorf("minio.endpoint and minio.bucketName are required when minio is enabled")
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     c.Database.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.Database.SSLMode),
	}
	return u.String()
}
