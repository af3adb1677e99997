package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is constructed once at process start and passed by reference into
// each component. No ambient mutable state.
type Config struct {
	AWS struct {
		Region   string `yaml:"region"`
		Endpoint string `yaml:"endpoint"` // optional; set for local stacks
		Bucket   string `yaml:"bucket"`
		Queue    string `yaml:"queue"`
	} `yaml:"aws"`

	RabbitMQ struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Queue    string `yaml:"queue"`
	} `yaml:"rabbitmq"`

	Services struct {
		GatewayPort  int `yaml:"gateway_service"`
		ConsumerPort int `yaml:"consumer_service"`
	} `yaml:"services"`

	Consumer struct {
		MaxMessages        int `yaml:"max_messages"`
		InactivitySeconds  int `yaml:"inactivity_timeout_seconds"`
		DrainIntervalSecs  int `yaml:"drain_interval_seconds"`
		ReceiveWaitSeconds int `yaml:"receive_wait_seconds"`
	} `yaml:"consumer"`
}

// LoadFromFile loads config from a YAML file, resolves ${ENV:-default}
// placeholders, applies defaults, and validates required fields.
func LoadFromFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(resolveEnv(string(raw))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

var envPlaceholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// resolveEnv substitutes ${VAR} and ${VAR:-default} placeholders with
// environment values before the YAML is parsed.
func resolveEnv(s string) string {
	return envPlaceholder.ReplaceAllStringFunc(s, func(m string) string {
		groups := envPlaceholder.FindStringSubmatch(m)
		if v, ok := os.LookupEnv(groups[1]); ok {
			return v
		}
		return groups[3]
	})
}

// applyDefaults sets safe defaults for optional fields.
func applyDefaults(cfg *Config) {
	// AWS
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-east-1"
	}
	if cfg.AWS.Queue == "" {
		cfg.AWS.Queue = "ride-requests"
	}

	// RabbitMQ
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}
	if cfg.RabbitMQ.User == "" {
		cfg.RabbitMQ.User = "guest"
	}
	if cfg.RabbitMQ.Password == "" {
		cfg.RabbitMQ.Password = "guest"
	}
	if cfg.RabbitMQ.Queue == "" {
		cfg.RabbitMQ.Queue = "ride-requests"
	}

	// Services
	if cfg.Services.GatewayPort == 0 {
		cfg.Services.GatewayPort = 3000
	}
	if cfg.Services.ConsumerPort == 0 {
		cfg.Services.ConsumerPort = 3001
	}

	// Consumer
	if cfg.Consumer.MaxMessages == 0 {
		cfg.Consumer.MaxMessages = 10
	}
	if cfg.Consumer.InactivitySeconds == 0 {
		cfg.Consumer.InactivitySeconds = 5
	}
	if cfg.Consumer.DrainIntervalSecs == 0 {
		cfg.Consumer.DrainIntervalSecs = 60
	}
	if cfg.Consumer.ReceiveWaitSeconds == 0 {
		cfg.Consumer.ReceiveWaitSeconds = 10
	}
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	if c.AWS.Bucket == "" {
		problems = append(problems, "aws.bucket is required")
	}
	if c.AWS.Queue == "" {
		problems = append(problems, "aws.queue is required")
	}

	if c.RabbitMQ.Port <= 0 || c.RabbitMQ.Port > 65535 {
		problems = append(problems, "rabbitmq.port must be in 1..65535")
	}
	if c.RabbitMQ.Queue == "" {
		problems = append(problems, "rabbitmq.queue is required")
	}

	if c.Services.GatewayPort <= 0 || c.Services.GatewayPort > 65535 {
		problems = append(problems, "services.gateway_service must be in 1..65535")
	}
	if c.Services.ConsumerPort <= 0 || c.Services.ConsumerPort > 65535 {
		problems = append(problems, "services.consumer_service must be in 1..65535")
	}

	if c.Consumer.MaxMessages < 1 {
		problems = append(problems, "consumer.max_messages must be >= 1")
	}
	if c.Consumer.InactivitySeconds < 1 {
		problems = append(problems, "consumer.inactivity_timeout_seconds must be >= 1")
	}
	if c.Consumer.ReceiveWaitSeconds < 0 || c.Consumer.ReceiveWaitSeconds > 20 {
		problems = append(problems, "consumer.receive_wait_seconds must be in 0..20")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
