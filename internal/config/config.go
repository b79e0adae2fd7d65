package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"

	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
)

type Config struct {
	Port int
	Env  string

	Storage string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	MongoURI string
	MongoDB  string

	RedisURL string

	JWTSecret string
	TokenTTL  time.Duration

	AllowedOrigins []string

	LogLevel  string
	LogFormat string

	MetricsEnabled bool
	TraceEnabled   bool

	GeminiBaseURL string
	GeminiTimeout time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 4000)
	v.SetDefault("env", "development")
	v.SetDefault("storage_driver", StoragePostgres)

	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_name", "taskmind")
	v.SetDefault("db_sslmode", "disable")

	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_db", "taskmind")

	v.SetDefault("jwt_secret", "SUPER_SECRET_KEY_CHANGE_ME")
	v.SetDefault("token_ttl", 7*24*time.Hour)

	v.SetDefault("allowed_origins", "*")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetDefault("metrics_enabled", true)
	v.SetDefault("trace_enabled", false)

	v.SetDefault("gemini_base_url", DefaultGeminiBaseURL)
	v.SetDefault("gemini_timeout", 30*time.Second)
}

func fromViper(v *viper.Viper) *Config {
	port := v.GetInt("db_port")
	if port <= 0 {
		port = 5432 // fallback
	}

	storage := strings.ToLower(strings.TrimSpace(v.GetString("storage_driver")))
	if storage != StorageMongo {
		storage = StoragePostgres
	}

	timeout := v.GetDuration("gemini_timeout")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ttl := v.GetDuration("token_ttl")
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	return &Config{
		Port: v.GetInt("port"),
		Env:  v.GetString("env"),

		Storage: storage,

		DBHost:     v.GetString("db_host"),
		DBPort:     port,
		DBUser:     v.GetString("db_user"),
		DBPassword: v.GetString("db_password"),
		DBName:     v.GetString("db_name"),
		DBSSLMode:  v.GetString("db_sslmode"),

		MongoURI: v.GetString("mongo_uri"),
		MongoDB:  v.GetString("mongo_db"),

		RedisURL: strings.TrimSpace(v.GetString("redis_url")),

		JWTSecret: v.GetString("jwt_secret"),
		TokenTTL:  ttl,

		AllowedOrigins: splitList(v.GetString("allowed_origins")),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),

		MetricsEnabled: v.GetBool("metrics_enabled"),
		TraceEnabled:   v.GetBool("trace_enabled"),

		GeminiBaseURL: strings.TrimRight(v.GetString("gemini_base_url"), "/"),
		GeminiTimeout: timeout,
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) IsDev() bool {
	return c.Env == "" || c.Env == "development"
}

func (c *Config) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// splitList parses comma separated values; viper's own slice cast splits on
// whitespace, which breaks origin lists coming from env vars.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
