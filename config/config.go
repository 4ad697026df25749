package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Push transport: "relay", "fcm" or "longpoll".
	PushTechnology string `mapstructure:"PUSH_TECHNOLOGY"`

	// Relay (PMNS) configuration.
	RelayAddr           string `mapstructure:"RELAY_ADDR"`
	RelayMaxConnections int    `mapstructure:"RELAY_MAX_CONNECTIONS"`
	RelayRetryCount     int    `mapstructure:"RELAY_RETRY_COUNT"`
	RelayRetryDelaySec  int    `mapstructure:"RELAY_RETRY_DELAY_SEC"`

	// Persistence.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Redis configuration (FCM token cache).
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisTokenDB  int    `mapstructure:"REDIS_TOKEN_DB"`

	// Firebase service account credentials for FCM.
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("PUSH_TECHNOLOGY", "relay")
	viper.SetDefault("RELAY_ADDR", "0.0.0.0:9000")
	viper.SetDefault("RELAY_MAX_CONNECTIONS", 100)
	viper.SetDefault("RELAY_RETRY_COUNT", 3)
	viper.SetDefault("RELAY_RETRY_DELAY_SEC", 5)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_TOKEN_DB", 0)
	viper.SetDefault("FIREBASE_CREDENTIALS_FILE", "serviceAccountKey.json")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
