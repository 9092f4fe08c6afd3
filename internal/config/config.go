package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port            int           `envconfig:"PORT" default:"3000"`
	Environment     string        `envconfig:"ENV" default:"development"`
	RateLimitMax    int           `envconfig:"RATE_LIMIT_MAX" default:"600"`
	RateLimitWindow time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
	LogLevel        string        `envconfig:"LOG_LEVEL"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Security
	APIToken string `envconfig:"API_TOKEN" required:"true"`

	// Signal detection
	SignalProvider string `envconfig:"SIGNAL_PROVIDER" default:"rekognition"`
	AWSRegion      string `envconfig:"AWS_REGION" default:"us-east-1"`

	// Embedding model
	ModelProvider  string  `envconfig:"MODEL_PROVIDER" default:"modelserver"`
	ModelServerURL string  `envconfig:"MODEL_SERVER_URL" default:"http://localhost:8501"`
	ModelName      string  `envconfig:"MODEL_NAME" default:"mobilefacenet"`
	ModelInputSize int     `envconfig:"MODEL_INPUT_SIZE" default:"112"`
	EmbeddingDim   int     `envconfig:"EMBEDDING_DIM" default:"192"`
	FaceMargin     float64 `envconfig:"FACE_MARGIN" default:"0.3"`

	// Identification
	MatchThreshold    float64       `envconfig:"MATCH_THRESHOLD" default:"0.7"`
	Cooldown          time.Duration `envconfig:"COOLDOWN" default:"2s"`
	NoFaceResetFrames int           `envconfig:"NO_FACE_RESET_FRAMES" default:"1"`
	CalibrationFile   string        `envconfig:"CALIBRATION_FILE"`

	// Delivery
	Transport          string        `envconfig:"TRANSPORT" default:"mqtt"`
	MQTTBroker         string        `envconfig:"MQTT_BROKER" default:"tcp://broker.hivemq.com:1883"`
	MQTTTopic          string        `envconfig:"MQTT_TOPIC" default:"attendance/logs"`
	MQTTIdleDisconnect time.Duration `envconfig:"MQTT_IDLE_DISCONNECT" default:"5m"`
	WebhookURL         string        `envconfig:"WEBHOOK_URL"`
	WebhookSecret      string        `envconfig:"WEBHOOK_SECRET"`
	DeliveryTimeout    time.Duration `envconfig:"DELIVERY_TIMEOUT" default:"10s"`
	ResyncInterval     time.Duration `envconfig:"RESYNC_INTERVAL" default:"30s"`
	MetricsRefresh     time.Duration `envconfig:"METRICS_REFRESH" default:"15s"`
}

// Load reads an optional .env file and then the environment
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.SignalProvider {
	case "rekognition", "mock":
	default:
		return fmt.Errorf("unknown SIGNAL_PROVIDER %q", c.SignalProvider)
	}
	switch c.ModelProvider {
	case "modelserver", "mock":
	default:
		return fmt.Errorf("unknown MODEL_PROVIDER %q", c.ModelProvider)
	}
	switch c.Transport {
	case "mqtt":
	case "webhook":
		if c.WebhookURL == "" {
			return fmt.Errorf("WEBHOOK_URL is required when TRANSPORT=webhook")
		}
	default:
		return fmt.Errorf("unknown TRANSPORT %q", c.Transport)
	}
	if c.MatchThreshold <= 0 || c.MatchThreshold >= 1 {
		return fmt.Errorf("MATCH_THRESHOLD must be in (0, 1), got %v", c.MatchThreshold)
	}
	if c.EmbeddingDim <= 0 || c.ModelInputSize <= 0 {
		return fmt.Errorf("EMBEDDING_DIM and MODEL_INPUT_SIZE must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
