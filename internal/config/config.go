package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port   string
	AppEnv string

	DB    DatabaseConfig
	Kafka KafkaConfig
	JWT   JWTConfig
	Fees  FeeConfig
	Hold  HoldConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig holds broker and topic settings.
type KafkaConfig struct {
	Brokers            []string
	GroupPrefix        string
	EventsTopic        string
	NotificationsTopic string
}

// JWTConfig holds token verification settings.
type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// FeeConfig holds the platform fee schedule in basis points.
type FeeConfig struct {
	ServiceBps  int64
	VenueBps    int64
	CategoryBps map[string]int64
}

// HoldConfig holds the escrow hold schedule.
type HoldConfig struct {
	StandardDays     int
	TrustedDays      int
	TrustedThreshold int64
	LookupTimeout    time.Duration
}

// Load reads configuration from BOOKING_-prefixed environment variables with
// defaults suitable for local development.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("BOOKING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", ":8084")
	v.SetDefault("app_env", "development")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "soundbridge_bookings")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.group_prefix", "soundbridge.")
	v.SetDefault("kafka.events_topic", "booking.events")
	v.SetDefault("kafka.notifications_topic", "booking.notifications")

	v.SetDefault("jwt.secret", "dev-secret-change-me")
	v.SetDefault("jwt.access_ttl", "15m")
	v.SetDefault("jwt.refresh_ttl", "168h")

	v.SetDefault("fees.service_bps", 1000)
	v.SetDefault("fees.venue_bps", 1000)
	v.SetDefault("fees.category_bps", map[string]int64{
		"production":       1200,
		"mixing_mastering": 1200,
		"session_musician": 1200,
		"dj":               1500,
	})

	v.SetDefault("hold.standard_days", 14)
	v.SetDefault("hold.trusted_days", 7)
	v.SetDefault("hold.trusted_threshold", 3)
	v.SetDefault("hold.lookup_timeout", "3s")

	categoryBps := make(map[string]int64)
	for category, bps := range v.GetStringMap("fees.category_bps") {
		categoryBps[category] = castToInt64(bps)
	}

	return &ServiceConfig{
		Port:   v.GetString("port"),
		AppEnv: v.GetString("app_env"),
		DB: DatabaseConfig{
			Host:     v.GetString("db.host"),
			Port:     v.GetInt("db.port"),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			DBName:   v.GetString("db.name"),
			SSLMode:  v.GetString("db.sslmode"),
		},
		Kafka: KafkaConfig{
			Brokers:            strings.Split(v.GetString("kafka.brokers"), ","),
			GroupPrefix:        v.GetString("kafka.group_prefix"),
			EventsTopic:        v.GetString("kafka.events_topic"),
			NotificationsTopic: v.GetString("kafka.notifications_topic"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("jwt.secret"),
			AccessTTL:  v.GetDuration("jwt.access_ttl"),
			RefreshTTL: v.GetDuration("jwt.refresh_ttl"),
		},
		Fees: FeeConfig{
			ServiceBps:  v.GetInt64("fees.service_bps"),
			VenueBps:    v.GetInt64("fees.venue_bps"),
			CategoryBps: categoryBps,
		},
		Hold: HoldConfig{
			StandardDays:     v.GetInt("hold.standard_days"),
			TrustedDays:      v.GetInt("hold.trusted_days"),
			TrustedThreshold: v.GetInt64("hold.trusted_threshold"),
			LookupTimeout:    v.GetDuration("hold.lookup_timeout"),
		},
	}, nil
}

func castToInt64(value interface{}) int64 {
	switch n := value.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
