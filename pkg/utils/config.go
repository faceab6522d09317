package utils

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Core1    DatabaseConfig
	Core2    DatabaseConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Maps     MapsConfig
	Dispatch DispatchConfig
	Session  SessionConfig
}

type AppConfig struct {
	Name           string
	Port           string
	Debug          bool
	LogPath        string
	RequestTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type RedisConfig struct {
	Addr string
}

type RabbitMQConfig struct {
	URL      string
	Exchange string
}

type MapsConfig struct {
	APIKey string
	Region string
}

// DispatchConfig tunes ranking, assignment and fare estimation.
type DispatchConfig struct {
	DefaultRadiusKm float64
	DefaultLimit    int
	NearestAttempts int
	BaseFare        float64
	PerKmRate       float64
}

type SessionConfig struct {
	ExpiryHours int
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "movers-dispatch")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("APP_REQUEST_TIMEOUT", "10s")

	viper.SetDefault("CORE1_DB_HOST", "localhost")
	viper.SetDefault("CORE1_DB_PORT", "5432")
	viper.SetDefault("CORE1_DB_NAME", "movers_core1")
	viper.SetDefault("CORE1_DB_MAX_CONNS", 10)
	viper.SetDefault("CORE2_DB_HOST", "localhost")
	viper.SetDefault("CORE2_DB_PORT", "5432")
	viper.SetDefault("CORE2_DB_NAME", "movers_core2")
	viper.SetDefault("CORE2_DB_MAX_CONNS", 10)

	viper.SetDefault("RABBITMQ_EXCHANGE", "dispatch.events")
	viper.SetDefault("GOOGLE_MAPS_REGION", "ph")

	viper.SetDefault("DISPATCH_DEFAULT_RADIUS_KM", 50.0)
	viper.SetDefault("DISPATCH_DEFAULT_LIMIT", 10)
	viper.SetDefault("DISPATCH_NEAREST_ATTEMPTS", 1)
	viper.SetDefault("DISPATCH_BASE_FARE", 40.0)
	viper.SetDefault("DISPATCH_PER_KM_RATE", 13.5)

	viper.SetDefault("SESSION_EXPIRY_HOURS", 24)

	// .env is optional, the environment always wins
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:           viper.GetString("APP_NAME"),
			Port:           viper.GetString("PORT"),
			Debug:          viper.GetBool("DEBUG"),
			LogPath:        viper.GetString("LOG_PATH"),
			RequestTimeout: viper.GetDuration("APP_REQUEST_TIMEOUT"),
		},
		Core1:    loadDatabaseConfig("CORE1"),
		Core2:    loadDatabaseConfig("CORE2"),
		Redis:    RedisConfig{Addr: viper.GetString("REDIS_ADDR")},
		RabbitMQ: RabbitMQConfig{URL: viper.GetString("RABBITMQ_URL"), Exchange: viper.GetString("RABBITMQ_EXCHANGE")},
		Maps:     MapsConfig{APIKey: viper.GetString("GOOGLE_MAPS_API_KEY"), Region: viper.GetString("GOOGLE_MAPS_REGION")},
		Dispatch: DispatchConfig{
			DefaultRadiusKm: viper.GetFloat64("DISPATCH_DEFAULT_RADIUS_KM"),
			DefaultLimit:    viper.GetInt("DISPATCH_DEFAULT_LIMIT"),
			NearestAttempts: viper.GetInt("DISPATCH_NEAREST_ATTEMPTS"),
			BaseFare:        viper.GetFloat64("DISPATCH_BASE_FARE"),
			PerKmRate:       viper.GetFloat64("DISPATCH_PER_KM_RATE"),
		},
		Session: SessionConfig{
			ExpiryHours: viper.GetInt("SESSION_EXPIRY_HOURS"),
		},
	}

	return config, nil
}

func loadDatabaseConfig(prefix string) DatabaseConfig {
	return DatabaseConfig{
		Host:     viper.GetString(prefix + "_DB_HOST"),
		Port:     viper.GetString(prefix + "_DB_PORT"),
		Name:     viper.GetString(prefix + "_DB_NAME"),
		User:     viper.GetString(prefix + "_DB_USER"),
		Password: viper.GetString(prefix + "_DB_PASS"),
		MaxConns: viper.GetInt32(prefix + "_DB_MAX_CONNS"),
	}
}
