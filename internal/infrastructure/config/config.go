package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Data source selectors.
const (
	DataSourcePostgres = "postgres"
	DataSourceMock     = "mock"
)

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

// KafkaConfig configures the outbox relay. With Enabled false the relay
// drains the outbox into the log instead of a broker.
type KafkaConfig struct {
	Enabled        bool
	Brokers        []string
	Topic          string
	RelayInterval  time.Duration
	RelayBatchSize int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

type AuthConfig struct {
	Enabled      bool
	JWTSecret    string
	PublicKeyPEM string
	Issuer       string
}

type OCRConfig struct {
	URL     string
	Timeout time.Duration
	ScanTTL time.Duration
}

// TLSConfig enables TLS on the gRPC listener when both files are set.
type TLSConfig struct {
	CertFile string
	KeyFile  string
}

func (t TLSConfig) Enabled() bool {
	return t.CertFile != "" && t.KeyFile != ""
}

// TracingConfig drives the OTLP span exporter.
type TracingConfig struct {
	Enabled  bool
	Endpoint string
	Insecure bool
}

type Config struct {
	GRPCPort       int
	GRPCReflection bool
	GRPCTLS        TLSConfig
	HTTPPort       int
	DataSource     string
	// MockSeed loads the demo personas into the mock data source.
	MockSeed      bool
	SweepInterval time.Duration
	DB            DatabaseConfig
	Kafka         KafkaConfig
	Redis         RedisConfig
	Log           LogConfig
	Auth          AuthConfig
	OCR           OCRConfig
	Tracing       TracingConfig
	ServiceName   string
}

// Load reads defaults, then the YAML file named by LENDING_CONFIG (if any),
// then environment variables. A nested key such as db.host is read from
// DB_HOST.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("LENDING_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	return Config{
		GRPCPort:       v.GetInt("grpc.port"),
		GRPCReflection: v.GetBool("grpc.reflection"),
		GRPCTLS: TLSConfig{
			CertFile: v.GetString("grpc.tls_cert_file"),
			KeyFile:  v.GetString("grpc.tls_key_file"),
		},
		HTTPPort:       v.GetInt("http.port"),
		DataSource:     strings.ToLower(v.GetString("data.source")),
		MockSeed:       v.GetBool("mock.seed"),
		SweepInterval:  v.GetDuration("sweep.interval"),
		DB: DatabaseConfig{
			Host:     v.GetString("db.host"),
			Port:     v.GetInt("db.port"),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			Name:     v.GetString("db.name"),
			SSLMode:  v.GetString("db.sslmode"),
			MaxConns: v.GetInt32("db.max_conns"),
		},
		Kafka: KafkaConfig{
			Enabled:        v.GetBool("kafka.enabled"),
			Brokers:        splitList(v.GetStringSlice("kafka.brokers")),
			Topic:          v.GetString("kafka.topic"),
			RelayInterval:  v.GetDuration("kafka.relay_interval"),
			RelayBatchSize: v.GetInt("kafka.relay_batch_size"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Auth: AuthConfig{
			Enabled:      v.GetBool("auth.enabled"),
			JWTSecret:    v.GetString("auth.jwt_secret"),
			PublicKeyPEM: v.GetString("auth.public_key_pem"),
			Issuer:       v.GetString("auth.issuer"),
		},
		OCR: OCRConfig{
			URL:     v.GetString("ocr.url"),
			Timeout: v.GetDuration("ocr.timeout"),
			ScanTTL: v.GetDuration("ocr.scan_ttl"),
		},
		Tracing: TracingConfig{
			Enabled:  v.GetBool("tracing.enabled"),
			Endpoint: v.GetString("otel.exporter.otlp.endpoint"),
			Insecure: v.GetBool("otel.exporter.otlp.insecure"),
		},
		ServiceName: v.GetString("service.name"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("grpc.port", 9087)
	v.SetDefault("grpc.reflection", false)
	v.SetDefault("grpc.tls_cert_file", "")
	v.SetDefault("grpc.tls_key_file", "")
	v.SetDefault("http.port", 8087)
	v.SetDefault("data.source", DataSourceMock)
	v.SetDefault("mock.seed", true)
	v.SetDefault("sweep.interval", time.Hour)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "jeco")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "jeco_lending")
	v.SetDefault("db.sslmode", "require")
	v.SetDefault("db.max_conns", 10)

	v.SetDefault("kafka.enabled", true)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "lending.events")
	v.SetDefault("kafka.relay_interval", 2*time.Second)
	v.SetDefault("kafka.relay_batch_size", 100)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.public_key_pem", "")
	v.SetDefault("auth.issuer", "jecoplus")

	v.SetDefault("ocr.url", "")
	v.SetDefault("ocr.timeout", 10*time.Second)
	v.SetDefault("ocr.scan_ttl", 15*time.Minute)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("otel.exporter.otlp.endpoint", "localhost:4317")
	v.SetDefault("otel.exporter.otlp.insecure", true)

	v.SetDefault("service.name", "lending-service")
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error
	if c.GRPCPort <= 0 {
		errs = append(errs, fmt.Errorf("GRPC_PORT must be positive, got %d", c.GRPCPort))
	}
	if (c.GRPCTLS.CertFile == "") != (c.GRPCTLS.KeyFile == "") {
		errs = append(errs, errors.New("GRPC_TLS_CERT_FILE and GRPC_TLS_KEY_FILE must be set together"))
	}
	if c.HTTPPort <= 0 {
		errs = append(errs, fmt.Errorf("HTTP_PORT must be positive, got %d", c.HTTPPort))
	}
	switch c.DataSource {
	case DataSourcePostgres:
		if c.DB.Password == "" {
			errs = append(errs, errors.New("DB_PASSWORD environment variable is required"))
		}
		if c.DB.Port <= 0 {
			errs = append(errs, fmt.Errorf("DB_PORT must be positive, got %d", c.DB.Port))
		}
	case DataSourceMock:
	default:
		errs = append(errs, fmt.Errorf("DATA_SOURCE must be %q or %q, got %q", DataSourcePostgres, DataSourceMock, c.DataSource))
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" && c.Auth.PublicKeyPEM == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET or AUTH_PUBLIC_KEY_PEM is required when auth is enabled"))
	}
	return errors.Join(errs...)
}

func (c Config) GRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// splitList accepts both YAML lists and a comma separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
