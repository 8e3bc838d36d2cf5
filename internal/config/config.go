package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	JWT       JWTConfig
	Broadcast BroadcastConfig
}

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URI string
}

type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type JWTConfig struct {
	Secret string
}

// BroadcastConfig selects the delivery driver and carries the application
// key used to sign private/presence channel grants.
type BroadcastConfig struct {
	Driver string
	AppKey string

	// Pusher driver credentials
	PusherAppID   string
	PusherKey     string
	PusherSecret  string
	PusherCluster string
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("BROADCAST_HOST", "")
	viper.SetDefault("BROADCAST_PORT", "8080")
	viper.SetDefault("BROADCAST_READ_TIMEOUT", 30*time.Second)
	viper.SetDefault("BROADCAST_WRITE_TIMEOUT", 30*time.Second)
	viper.SetDefault("BROADCAST_IDLE_TIMEOUT", 60*time.Second)
	viper.SetDefault("ALLOWED_ORIGINS", []string{"http://localhost:3000"})
	viper.SetDefault("BROADCAST_DRIVER", "redis")
	viper.SetDefault("BROADCAST_APP_KEY", "")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("DATABASE_URL", "host=localhost user=postgres password=password dbname=postgres port=5432")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_MAX_RETRIES", 3)
	viper.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
	viper.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
	viper.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)
	viper.SetDefault("REDIS_POOL_SIZE", 100)
	viper.SetDefault("REDIS_MIN_IDLE_CONNS", 10)
	viper.SetDefault("KAFKA_BROKERS", []string{"localhost:9092"})
	viper.SetDefault("KAFKA_TOPIC", "broadcast-events")
	viper.SetDefault("PUSHER_APP_ID", "")
	viper.SetDefault("PUSHER_APP_KEY", "")
	viper.SetDefault("PUSHER_APP_SECRET", "")
	viper.SetDefault("PUSHER_APP_CLUSTER", "mt1")
	viper.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host:           viper.GetString("BROADCAST_HOST"),
			Port:           viper.GetString("BROADCAST_PORT"),
			ReadTimeout:    viper.GetDuration("BROADCAST_READ_TIMEOUT"),
			WriteTimeout:   viper.GetDuration("BROADCAST_WRITE_TIMEOUT"),
			IdleTimeout:    viper.GetDuration("BROADCAST_IDLE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URI: viper.GetString("DATABASE_URL"),
		},
		Redis: RedisConfig{
			Host:         viper.GetString("REDIS_HOST"),
			Port:         viper.GetString("REDIS_PORT"),
			Password:     viper.GetString("REDIS_PASSWORD"),
			DB:           viper.GetInt("REDIS_DB"),
			MaxRetries:   viper.GetInt("REDIS_MAX_RETRIES"),
			DialTimeout:  viper.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  viper.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout: viper.GetDuration("REDIS_WRITE_TIMEOUT"),
			PoolSize:     viper.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns: viper.GetInt("REDIS_MIN_IDLE_CONNS"),
		},
		Kafka: KafkaConfig{
			Brokers: viper.GetStringSlice("KAFKA_BROKERS"),
			Topic:   viper.GetString("KAFKA_TOPIC"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
		},
		Broadcast: BroadcastConfig{
			Driver:        viper.GetString("BROADCAST_DRIVER"),
			AppKey:        viper.GetString("BROADCAST_APP_KEY"),
			PusherAppID:   viper.GetString("PUSHER_APP_ID"),
			PusherKey:     viper.GetString("PUSHER_APP_KEY"),
			PusherSecret:  viper.GetString("PUSHER_APP_SECRET"),
			PusherCluster: viper.GetString("PUSHER_APP_CLUSTER"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that would otherwise fail at request time.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	if c.Broadcast.AppKey == "" {
		return fmt.Errorf("config: BROADCAST_APP_KEY is required")
	}
	switch c.Broadcast.Driver {
	case "redis", "kafka", "pusher", "log", "null":
	default:
		return fmt.Errorf("config: unsupported broadcast driver %q", c.Broadcast.Driver)
	}
	if c.Broadcast.Driver == "pusher" && (c.Broadcast.PusherAppID == "" || c.Broadcast.PusherKey == "" || c.Broadcast.PusherSecret == "") {
		return fmt.Errorf("config: pusher driver requires PUSHER_APP_ID, PUSHER_APP_KEY and PUSHER_APP_SECRET")
	}
	return nil
}
