package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full runtime configuration of the admin console.
type Config struct {
	Environment string

	Server        ServerConfig
	Logging       LoggingConfig
	Upstream      UpstreamConfig
	Login         LoginConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Elasticsearch ElasticsearchConfig
	Clickhouse    ClickhouseConfig
	KMS           KMSConfig
	Bucketing     BucketingConfig
	Hashing       HashingConfig
}

type ServerConfig struct {
	Port           int
	TLSPort        int
	EnableTLS      bool
	AutoCert       bool
	Domain         string
	CertFile       string
	KeyFile        string
	AutoCertDir    string
	Email          string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
	SecureCookies  bool
}

type LoggingConfig struct {
	Level  string
	Format string
}

// UpstreamConfig points at the platform REST API the console manages.
type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
}

type LoginConfig struct {
	CodeLength       int
	ResendCooldown   time.Duration
	CredentialTTL    time.Duration
	FlowIdleTTL      time.Duration
	RequestLimit     int
	RequestWindow    time.Duration
	SessionCookie    string
	LoginRedirectURL string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

type KafkaConfig struct {
	Enabled    bool
	Brokers    []string
	AuditTopic string
}

type ElasticsearchConfig struct {
	Enabled    bool
	URL        string
	Username   string
	Password   string
	UsersIndex string
}

type ClickhouseConfig struct {
	Enabled  bool
	URL      string
	Username string
	Password string
	Database string
}

type KMSConfig struct {
	Enabled bool
	KeyID   string
	Region  string
}

type BucketingConfig struct {
	AuditBuckets int
}

type HashingConfig struct {
	FingerprintKey string
}

var (
	current *Config
	mu      sync.RWMutex
)

// LoadConfig reads an optional .env file and the process environment.
func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:           getEnvInt("SERVER_PORT", 8080),
			TLSPort:        getEnvInt("SERVER_TLS_PORT", 8443),
			EnableTLS:      getEnvBool("SERVER_ENABLE_TLS", false),
			AutoCert:       getEnvBool("SERVER_AUTO_CERT", false),
			Domain:         getEnv("SERVER_DOMAIN", "localhost"),
			CertFile:       getEnv("SERVER_CERT_FILE", ""),
			KeyFile:        getEnv("SERVER_KEY_FILE", ""),
			AutoCertDir:    getEnv("SERVER_AUTO_CERT_DIR", "./certs"),
			Email:          getEnv("SERVER_ACME_EMAIL", ""),
			ReadTimeout:    getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			AllowedOrigins: getEnvSlice("SERVER_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			SecureCookies:  getEnvBool("SERVER_SECURE_COOKIES", false),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Upstream: UpstreamConfig{
			BaseURL: strings.TrimRight(getEnv("UPSTREAM_BASE_URL", "https://mountgc-backend.onrender.com/api"), "/"),
			Timeout: getEnvDuration("UPSTREAM_TIMEOUT", 20*time.Second),
		},
		Login: LoginConfig{
			CodeLength:       getEnvInt("LOGIN_CODE_LENGTH", 6),
			ResendCooldown:   getEnvDuration("LOGIN_RESEND_COOLDOWN", 60*time.Second),
			CredentialTTL:    getEnvDuration("LOGIN_CREDENTIAL_TTL", 24*time.Hour),
			FlowIdleTTL:      getEnvDuration("LOGIN_FLOW_IDLE_TTL", 15*time.Minute),
			RequestLimit:     getEnvInt("LOGIN_REQUEST_LIMIT", 5),
			RequestWindow:    getEnvDuration("LOGIN_REQUEST_WINDOW", 10*time.Minute),
			SessionCookie:    getEnv("LOGIN_SESSION_COOKIE", "admin_console_sid"),
			LoginRedirectURL: getEnv("LOGIN_REDIRECT_URL", "/admin/login"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 20),
		},
		Kafka: KafkaConfig{
			Enabled:    getEnvBool("KAFKA_ENABLED", false),
			Brokers:    getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			AuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "admin-console.audit"),
		},
		Elasticsearch: ElasticsearchConfig{
			Enabled:    getEnvBool("ELASTICSEARCH_ENABLED", false),
			URL:        getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
			Username:   getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:   getEnv("ELASTICSEARCH_PASSWORD", ""),
			UsersIndex: getEnv("ELASTICSEARCH_USERS_INDEX", "admin-console-users"),
		},
		Clickhouse: ClickhouseConfig{
			Enabled:  getEnvBool("CLICKHOUSE_ENABLED", false),
			URL:      getEnv("CLICKHOUSE_URL", "localhost:9000"),
			Username: getEnv("CLICKHOUSE_USERNAME", "default"),
			Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			Database: getEnv("CLICKHOUSE_DATABASE", "admin_console"),
		},
		KMS: KMSConfig{
			Enabled: getEnvBool("KMS_ENABLED", false),
			KeyID:   getEnv("KMS_KEY_ID", ""),
			Region:  getEnv("KMS_REGION", "us-east-1"),
		},
		Bucketing: BucketingConfig{
			AuditBuckets: getEnvInt("AUDIT_BUCKETS", 32),
		},
		Hashing: HashingConfig{
			FingerprintKey: getEnv("FINGERPRINT_KEY", "admin-console-dev-fingerprint-key"),
		},
	}

	Set(cfg)
	return cfg
}

// Get returns the configuration loaded last, loading it on first use.
func Get() *Config {
	mu.RLock()
	cfg := current
	mu.RUnlock()
	if cfg == nil {
		return LoadConfig()
	}
	return cfg
}

// Set replaces the process configuration. Tests use it to inject fixtures.
func Set(cfg *Config) {
	mu.Lock()
	current = cfg
	mu.Unlock()
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port %d", c.Server.Port))
	}
	if c.Server.EnableTLS && (c.Server.TLSPort <= 0 || c.Server.TLSPort > 65535) {
		errs = append(errs, fmt.Errorf("invalid TLS port %d", c.Server.TLSPort))
	}
	if c.Upstream.BaseURL == "" {
		errs = append(errs, errors.New("UPSTREAM_BASE_URL is required"))
	}
	if c.Upstream.Timeout <= 0 {
		errs = append(errs, errors.New("upstream timeout must be positive"))
	}
	if c.Login.CodeLength != 6 {
		errs = append(errs, fmt.Errorf("login code length must be 6, got %d", c.Login.CodeLength))
	}
	if c.Login.ResendCooldown < time.Second {
		errs = append(errs, errors.New("resend cooldown must be at least one second"))
	}
	if c.KMS.Enabled && c.KMS.KeyID == "" {
		errs = append(errs, errors.New("KMS_KEY_ID is required when KMS is enabled"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when Kafka is enabled"))
	}
	if c.Bucketing.AuditBuckets <= 0 {
		errs = append(errs, errors.New("AUDIT_BUCKETS must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// ResendCooldownSeconds is the countdown length shown on the OTP screen.
func (c *Config) ResendCooldownSeconds() int {
	return int(c.Login.ResendCooldown / time.Second)
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
