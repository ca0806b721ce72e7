package config

import (
	"fmt"

	"github.com/mhoffmann/blackout/internal/findings"
	"github.com/mhoffmann/blackout/internal/ocr"
	"github.com/mhoffmann/blackout/internal/providers"
	"github.com/mhoffmann/blackout/internal/redact"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Mistral   MistralConfig   `mapstructure:"mistral" yaml:"mistral"`
	Retry     RetryConfig     `mapstructure:"retry" yaml:"retry"`
	Detection DetectionConfig `mapstructure:"detection" yaml:"detection"`
	OCR       OCRConfig       `mapstructure:"ocr" yaml:"ocr"`
	Redaction RedactionConfig `mapstructure:"redaction" yaml:"redaction"`
	Alert     AlertConfig     `mapstructure:"alert" yaml:"alert"`
	Jobs      JobsConfig      `mapstructure:"jobs" yaml:"jobs"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// MistralConfig configures the detection and vision models.
type MistralConfig struct {
	APIKey         string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	Model          string `mapstructure:"model" yaml:"model"`
	VisionModel    string `mapstructure:"vision_model" yaml:"vision_model"`
	VisionEnabled  bool   `mapstructure:"vision_enabled" yaml:"vision_enabled"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// RetryConfig bounds model call retries.
type RetryConfig struct {
	MaxAttempts        int `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialWaitSeconds int `mapstructure:"initial_wait_seconds" yaml:"initial_wait_seconds"`
	MaxWaitSeconds     int `mapstructure:"max_wait_seconds" yaml:"max_wait_seconds"`
}

// DetectionConfig tunes finding acceptance.
type DetectionConfig struct {
	ConfidenceThreshold float64         `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
	Categories          map[string]bool `mapstructure:"categories" yaml:"categories"`
}

// OCRConfig tunes recognition.
type OCRConfig struct {
	Languages []string `mapstructure:"languages" yaml:"languages"`
	Zoom      float64  `mapstructure:"zoom" yaml:"zoom"`
}

// RedactionConfig tunes redaction rendering.
type RedactionConfig struct {
	FillColor string `mapstructure:"fill_color" yaml:"fill_color"`
}

// AlertConfig configures operator notification mail.
type AlertConfig struct {
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled"`
	SMTPHost     string `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port" yaml:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user" yaml:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password" yaml:"smtp_password"`
	AdminEmail   string `mapstructure:"admin_email" yaml:"admin_email"`
}

// JobsConfig tunes the job registry and worker pool.
type JobsConfig struct {
	Workers                int `mapstructure:"workers" yaml:"workers"`
	TTLMinutes             int `mapstructure:"ttl_minutes" yaml:"ttl_minutes"`
	CleanupIntervalMinutes int `mapstructure:"cleanup_interval_minutes" yaml:"cleanup_interval_minutes"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	categories := make(map[string]bool)
	for _, c := range findings.Categories() {
		categories[string(c)] = true
	}
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Mistral: MistralConfig{
			APIKey:         "${MISTRAL_API_KEY}",
			BaseURL:        providers.MistralBaseURL,
			Model:          providers.MistralDefaultModel,
			VisionModel:    providers.MistralDefaultVisionModel,
			VisionEnabled:  true,
			TimeoutSeconds: 120,
		},
		Retry: RetryConfig{
			MaxAttempts:        3,
			InitialWaitSeconds: 1,
			MaxWaitSeconds:     10,
		},
		Detection: DetectionConfig{
			ConfidenceThreshold: findings.DefaultConfidenceThreshold,
			Categories:          categories,
		},
		OCR: OCRConfig{
			Languages: []string{"deu", "eng"},
			Zoom:      ocr.DefaultZoom,
		},
		Redaction: RedactionConfig{
			FillColor: redact.DefaultFillColor,
		},
		Alert: AlertConfig{
			Enabled:  false,
			SMTPPort: 587,
		},
		Jobs: JobsConfig{
			Workers:                0,
			TTLMinutes:             60,
			CleanupIntervalMinutes: 10,
		},
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Detection.ConfidenceThreshold < 0 || c.Detection.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold %v out of range 0-1", c.Detection.ConfidenceThreshold)
	}
	if c.OCR.Zoom <= 0 {
		return fmt.Errorf("ocr zoom must be positive, got %v", c.OCR.Zoom)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if _, err := redact.ParseFillColor(c.Redaction.FillColor); err != nil {
		return err
	}
	if c.Alert.Enabled && (c.Alert.SMTPHost == "" || c.Alert.AdminEmail == "") {
		return fmt.Errorf("alerting enabled but smtp_host or admin_email missing")
	}
	return nil
}
