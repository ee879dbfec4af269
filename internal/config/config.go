package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/KhanhKube/hotel-management-sub000/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App         AppConfig         `yaml:"app"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Backup      BackupConfig      `yaml:"backup"`
	Monitoring  MonitoringConfig  `yaml:"monitoring"`
	Logging     LoggingConfig     `yaml:"logging"`
	API         APIConfig         `yaml:"api"`
	Booking     BookingConfig     `yaml:"booking"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// BookingConfig tunes the cart hold and checkout behavior.
type BookingConfig struct {
	CartTTLMinutes       int `yaml:"cart_ttl_minutes"`
	CartSweepSeconds     int `yaml:"cart_sweep_seconds"`
	MaxBookingDays       int `yaml:"max_booking_days"`
	AvailabilityCacheTTL int `yaml:"availability_cache_ttl_seconds"`
}

// MaintenanceConfig tunes the daily sweeps. SweepHour is a pointer so an
// explicit 0 (midnight) survives defaulting.
type MaintenanceConfig struct {
	SweepHour   *int `yaml:"sweep_hour"`
	DefaultDays int  `yaml:"default_days"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; when present it feeds ${VAR} expansion below.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Booking.CartTTLMinutes < 1 {
		return errors.New("booking cart_ttl_minutes must be at least 1")
	}
	if h := *c.Maintenance.SweepHour; h < 0 || h > 23 {
		return errors.New("maintenance sweep_hour must be in 0..23")
	}
	if c.API.Enabled && c.API.Auth.Enabled && len(c.API.Auth.APIKeys) == 0 {
		return errors.New("api auth enabled but no api_keys configured")
	}
	return nil
}

// ValidateRooms checks the administrative room seed for obvious mistakes
// before it is written through to the registry.
func ValidateRooms(rooms []models.Room) error {
	numbers := make(map[string]bool, len(rooms))
	for _, room := range rooms {
		if room.RoomNumber == "" {
			return errors.New("room with empty room_number in seed")
		}
		if numbers[room.RoomNumber] {
			return fmt.Errorf("duplicate room number in seed: %s", room.RoomNumber)
		}
		numbers[room.RoomNumber] = true
		if room.Price < 0 {
			return fmt.Errorf("room %s has negative price", room.RoomNumber)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 5
	}

	if c.Booking.CartTTLMinutes == 0 {
		c.Booking.CartTTLMinutes = int(models.CartTTL.Minutes())
	}
	if c.Booking.CartSweepSeconds == 0 {
		c.Booking.CartSweepSeconds = int(models.CartSweepInterval.Seconds())
	}
	if c.Booking.MaxBookingDays == 0 {
		c.Booking.MaxBookingDays = 365
	}
	if c.Booking.AvailabilityCacheTTL == 0 {
		c.Booking.AvailabilityCacheTTL = 60
	}

	if c.Maintenance.SweepHour == nil {
		hour := models.DefaultDailySweepHour
		c.Maintenance.SweepHour = &hour
	}
	if c.Maintenance.DefaultDays == 0 {
		c.Maintenance.DefaultDays = models.DefaultMaintenanceDays
	}
}
