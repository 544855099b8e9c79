package config

import (
	"time"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/logger"
)

// Default configuration values.
const (
	defaultServiceName    = "index-buffer"
	defaultServiceVersion = "1.0.0"
	defaultServicePort    = 8095

	defaultESURL         = "http://localhost:9200"
	defaultESMaxRetries  = 3
	defaultESTimeout     = 30 * time.Second
	defaultESPingTimeout = 5 * time.Second
	defaultPutTimeout    = 5 * time.Second

	defaultRetryAttempts     = 5
	defaultRetryInitialDelay = 2 * time.Second
	defaultRetryMaxDelay     = 10 * time.Second
	defaultRetryMultiplier   = 2.0

	defaultBufferThreshold = 100
	defaultEncoder         = EncoderJSON

	defaultDBHost         = "localhost"
	defaultDBPort         = 5432
	defaultDBUser         = "postgres"
	defaultDBName         = "index_buffer"
	defaultDBSSLMode      = "disable"
	defaultDBMaxConns     = 10
	defaultDBMaxIdleConns = 5
	defaultDBConnLifetime = 5 * time.Minute

	defaultShutdownTimeout = 30 * time.Second
)

// Encoder names accepted by buffer.encoder.
const (
	EncoderSimple = "simple"
	EncoderJSON   = "json"
)

// Config is the full index-buffer configuration.
type Config struct {
	Service       ServiceConfig       `yaml:"service"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Buffer        BufferConfig        `yaml:"buffer"`
	Database      DatabaseConfig      `yaml:"database"`
	Logging       logger.Config       `yaml:"logging"`
}

// ServiceConfig holds HTTP service settings.
type ServiceConfig struct {
	Name            string        `yaml:"name"`
	Version         string        `yaml:"version"`
	Port            int           `env:"INDEX_BUFFER_PORT" yaml:"port"`
	Debug           bool          `env:"APP_DEBUG"         yaml:"debug"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ElasticsearchConfig holds cluster connection settings.
type ElasticsearchConfig struct {
	URL         string        `env:"ELASTICSEARCH_URL"      yaml:"url"`
	Username    string        `env:"ELASTICSEARCH_USERNAME" yaml:"username"`
	Password    string        `env:"ELASTICSEARCH_PASSWORD" yaml:"password"`
	APIKey      string        `env:"ELASTICSEARCH_API_KEY"  yaml:"api_key"`
	MaxRetries  int           `yaml:"max_retries"`
	Timeout     time.Duration `yaml:"timeout"`
	PingTimeout time.Duration `yaml:"ping_timeout"`
	PutTimeout  time.Duration `yaml:"put_timeout"`
	Retry       RetryConfig   `yaml:"retry"`
}

// RetryConfig controls the startup connection retry loop.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
}

// BufferConfig holds Batch Buffer settings.
type BufferConfig struct {
	Threshold int    `env:"BUFFER_THRESHOLD" yaml:"threshold"`
	Encoder   string `env:"BUFFER_ENCODER"   yaml:"encoder"`
}

// DatabaseConfig holds the optional Postgres metadata store settings.
type DatabaseConfig struct {
	Enabled               bool          `env:"DATABASE_ENABLED"  yaml:"enabled"`
	Host                  string        `env:"POSTGRES_HOST"     yaml:"host"`
	Port                  int           `env:"POSTGRES_PORT"     yaml:"port"`
	User                  string        `env:"POSTGRES_USER"     yaml:"user"`
	Password              string        `env:"POSTGRES_PASSWORD" yaml:"password"`
	Database              string        `env:"POSTGRES_DB"       yaml:"database"`
	SSLMode               string        `yaml:"sslmode"`
	MaxConnections        int           `yaml:"max_connections"`
	MaxIdleConns          int           `yaml:"max_idle_connections"`
	ConnectionMaxLifetime time.Duration `yaml:"connection_max_lifetime"`
}

// Load reads path, tolerating a missing file, and applies defaults and the
// environment.
func Load(path string) (*Config, error) {
	return LoadWithDefaults[Config](path, true, SetDefaults)
}

// SetDefaults fills every unset field.
func SetDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setElasticsearchDefaults(&cfg.Elasticsearch)
	setBufferDefaults(&cfg.Buffer)
	setDatabaseDefaults(&cfg.Database)
	cfg.Logging.SetDefaults()
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}
	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
	if s.Port == 0 {
		s.Port = defaultServicePort
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = defaultShutdownTimeout
	}
}

func setElasticsearchDefaults(e *ElasticsearchConfig) {
	if e.URL == "" {
		e.URL = defaultESURL
	}
	if e.MaxRetries == 0 {
		e.MaxRetries = defaultESMaxRetries
	}
	if e.Timeout == 0 {
		e.Timeout = defaultESTimeout
	}
	if e.PingTimeout == 0 {
		e.PingTimeout = defaultESPingTimeout
	}
	if e.PutTimeout == 0 {
		e.PutTimeout = defaultPutTimeout
	}
	if e.Retry.MaxAttempts == 0 {
		e.Retry.MaxAttempts = defaultRetryAttempts
	}
	if e.Retry.InitialDelay == 0 {
		e.Retry.InitialDelay = defaultRetryInitialDelay
	}
	if e.Retry.MaxDelay == 0 {
		e.Retry.MaxDelay = defaultRetryMaxDelay
	}
	if e.Retry.Multiplier == 0 {
		e.Retry.Multiplier = defaultRetryMultiplier
	}
}

func setBufferDefaults(b *BufferConfig) {
	if b.Threshold == 0 {
		b.Threshold = defaultBufferThreshold
	}
	if b.Encoder == "" {
		b.Encoder = defaultEncoder
	}
}

func setDatabaseDefaults(d *DatabaseConfig) {
	if d.Host == "" {
		d.Host = defaultDBHost
	}
	if d.Port == 0 {
		d.Port = defaultDBPort
	}
	if d.User == "" {
		d.User = defaultDBUser
	}
	if d.Database == "" {
		d.Database = defaultDBName
	}
	if d.SSLMode == "" {
		d.SSLMode = defaultDBSSLMode
	}
	if d.MaxConnections == 0 {
		d.MaxConnections = defaultDBMaxConns
	}
	if d.MaxIdleConns == 0 {
		d.MaxIdleConns = defaultDBMaxIdleConns
	}
	if d.ConnectionMaxLifetime == 0 {
		d.ConnectionMaxLifetime = defaultDBConnLifetime
	}
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if err := validatePort("service.port", c.Service.Port); err != nil {
		return err
	}
	if c.Elasticsearch.URL == "" {
		return &ValidationError{Field: "elasticsearch.url", Message: "is required"}
	}
	if c.Buffer.Threshold < 1 {
		return &ValidationError{Field: "buffer.threshold", Message: "must be at least 1"}
	}
	switch c.Buffer.Encoder {
	case EncoderSimple, EncoderJSON:
	default:
		return &ValidationError{Field: "buffer.encoder", Message: "must be one of: simple, json"}
	}
	if c.Database.Enabled && c.Database.Host == "" {
		return &ValidationError{Field: "database.host", Message: "is required when database is enabled"}
	}
	return validateLogLevel(c.Logging.Level)
}
