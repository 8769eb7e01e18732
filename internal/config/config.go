package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"motoya/internal/trip"
)

// configFileEnv names an optional YAML file layered under the environment.
const configFileEnv = "MOTOYA_CONFIG"

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"db"`
	Redis      RedisConfig      `mapstructure:"redis"`
	NewRelic   NewRelicConfig   `mapstructure:"new_relic"`
	RabbitMQ   RabbitMQConfig   `mapstructure:"rabbitmq"`
	Simulation SimulationConfig `mapstructure:"sim"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string `mapstructure:"app_name"`
	LicenseKey string `mapstructure:"license_key"`
	Enabled    bool   `mapstructure:"enabled"`
}

// RabbitMQConfig holds the broker connection and the exchange trip events go to.
type RabbitMQConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	VHost    string `mapstructure:"vhost"`
	Exchange string `mapstructure:"exchange"`
	Enabled  bool   `mapstructure:"enabled"`
}

// URL builds the AMQP connection string.
func (c RabbitMQConfig) URL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + strings.TrimPrefix(c.VHost, "/"),
	}
	return u.String()
}

// SimulationConfig tunes the simulated vehicle and payment gateway.
type SimulationConfig struct {
	TickInterval      time.Duration `mapstructure:"tick_interval"`
	StepSize          float64       `mapstructure:"step_size"`
	ArrivalTolerance  float64       `mapstructure:"arrival_tolerance"`
	VerificationDelay time.Duration `mapstructure:"verification_delay"`
	KmPerUnit         float64       `mapstructure:"km_per_unit"`
	AssumedSpeedKmh   float64       `mapstructure:"speed_kmh"`
	Geodesic          bool          `mapstructure:"geodesic"`
	// DriverLockTTL bounds how long a crashed process can keep a driver busy.
	DriverLockTTL time.Duration `mapstructure:"driver_lock_ttl"`
}

// TripOptions converts the simulation settings into controller options.
func (c SimulationConfig) TripOptions() trip.Options {
	return trip.Options{
		TickInterval:      c.TickInterval,
		StepSize:          c.StepSize,
		ArrivalTolerance:  c.ArrivalTolerance,
		VerificationDelay: c.VerificationDelay,
		KmPerUnit:         c.KmPerUnit,
		AssumedSpeedKmh:   c.AssumedSpeedKmh,
		Geodesic:          c.Geodesic,
	}
}

// Load reads configuration from defaults, an optional YAML file named by
// MOTOYA_CONFIG, and environment variables, in increasing priority.
// Environment keys are the upper-cased dotted keys, e.g. DB_HOST or SIM_STEP_SIZE.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv(configFileEnv); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that would otherwise fail deep in the service.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("config: server port is required")
	}
	if err := c.Simulation.TripOptions().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Simulation.DriverLockTTL <= 0 {
		return errors.New("config: driver lock ttl must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "motoya")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("new_relic.app_name", "motoya-trip-service")
	v.SetDefault("new_relic.license_key", "")
	v.SetDefault("new_relic.enabled", false)

	v.SetDefault("rabbitmq.host", "localhost")
	v.SetDefault("rabbitmq.port", 5672)
	v.SetDefault("rabbitmq.user", "guest")
	v.SetDefault("rabbitmq.password", "guest")
	v.SetDefault("rabbitmq.vhost", "/")
	v.SetDefault("rabbitmq.exchange", "motoya.trips")
	v.SetDefault("rabbitmq.enabled", true)

	opts := trip.DefaultOptions()
	v.SetDefault("sim.tick_interval", opts.TickInterval)
	v.SetDefault("sim.step_size", opts.StepSize)
	v.SetDefault("sim.arrival_tolerance", opts.ArrivalTolerance)
	v.SetDefault("sim.verification_delay", opts.VerificationDelay)
	v.SetDefault("sim.km_per_unit", opts.KmPerUnit)
	v.SetDefault("sim.speed_kmh", opts.AssumedSpeedKmh)
	v.SetDefault("sim.geodesic", opts.Geodesic)
	v.SetDefault("sim.driver_lock_ttl", 2*time.Hour)
}
