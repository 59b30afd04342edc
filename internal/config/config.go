package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultMaxDecompressedSize caps inflated inputs at 256 MiB.
const DefaultMaxDecompressedSize int64 = 256 << 20

// Config holds the complete application configuration.
type Config struct {
	LogLevel  string        `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string        `yaml:"log_format" env:"LOG_FORMAT"` // text or json
	Decrypt   DecryptConfig `yaml:"decrypt"`
	Storage   StorageConfig `yaml:"storage"`
	Metrics   MetricsConfig `yaml:"metrics"`
	Audit     AuditConfig   `yaml:"audit"`
	Tracing   TracingConfig `yaml:"tracing"`
}

// DecryptConfig holds pipeline settings.
type DecryptConfig struct {
	Transform       string `yaml:"transform" env:"DECRYPT_TRANSFORM"`               // identity, xor, keyxor, chacha20
	XORValue        int    `yaml:"xor_value" env:"DECRYPT_XOR_VALUE"`               // Byte used by the xor transform
	Workers         int    `yaml:"workers" env:"DECRYPT_WORKERS"`                   // Goroutines for block processing, 1 = sequential
	StrictSignature bool   `yaml:"strict_signature" env:"DECRYPT_STRICT_SIGNATURE"` // Fail when the signature marker is missing
}

// StorageConfig holds settings for reading and writing containers.
type StorageConfig struct {
	Region          string `yaml:"region" env:"STORAGE_REGION"`
	Endpoint        string `yaml:"endpoint" env:"STORAGE_ENDPOINT"` // Empty for AWS, set for S3-compatible providers
	AccessKey       string `yaml:"access_key" env:"STORAGE_ACCESS_KEY"`
	SecretKey       string `yaml:"secret_key" env:"STORAGE_SECRET_KEY"`
	UsePathStyle    bool   `yaml:"use_path_style" env:"STORAGE_USE_PATH_STYLE"`
	DecompressInput bool   `yaml:"decompress_input" env:"STORAGE_DECOMPRESS_INPUT"` // Inflate gzip/zstd wrapped inputs

	MaxDecompressedSize int64 `yaml:"max_decompressed_size" env:"STORAGE_MAX_DECOMPRESSED_SIZE"` // Cap on inflated input, in bytes
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled" env:"METRICS_ENABLED"`
	Textfile string `yaml:"textfile" env:"METRICS_TEXTFILE"` // node_exporter textfile collector output
}

// AuditConfig holds audit logging configuration.
type AuditConfig struct {
	Enabled   bool   `yaml:"enabled" env:"AUDIT_ENABLED"`
	MaxEvents int    `yaml:"max_events" env:"AUDIT_MAX_EVENTS"` // Max events to keep in memory
	File      string `yaml:"file" env:"AUDIT_FILE"`             // JSON lines file, stdout when empty
}

// TracingConfig holds OpenTelemetry tracing configuration.
type TracingConfig struct {
	Enabled        bool    `yaml:"enabled" env:"TRACING_ENABLED"`
	ServiceName    string  `yaml:"service_name" env:"TRACING_SERVICE_NAME"`
	ServiceVersion string  `yaml:"service_version" env:"TRACING_SERVICE_VERSION"`
	Exporter       string  `yaml:"exporter" env:"TRACING_EXPORTER"`             // stdout or otlp
	OtlpEndpoint   string  `yaml:"otlp_endpoint" env:"TRACING_OTLP_ENDPOINT"`   // OTLP gRPC endpoint
	SamplingRatio  float64 `yaml:"sampling_ratio" env:"TRACING_SAMPLING_RATIO"` // 0.0-1.0
}

// Default returns the configuration used when no file or environment overrides are present.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Decrypt: DecryptConfig{
			Transform: "identity",
			XORValue:  0x5A,
			Workers:   1,
		},
		Storage: StorageConfig{
			Region:              "us-east-1",
			DecompressInput:     false,
			MaxDecompressedSize: DefaultMaxDecompressedSize,
		},
		Audit: AuditConfig{
			Enabled:   false,
			MaxEvents: 1000,
		},
		Tracing: TracingConfig{
			Enabled:        false,
			ServiceName:    "metadata-decryptor",
			ServiceVersion: "dev",
			Exporter:       "stdout",
			SamplingRatio:  1.0,
		},
	}
}

// LoadConfig loads configuration from a file and environment variables and
// validates the result. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	config, err := Load(path)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Load reads the file at path and applies environment overrides without
// validating, so that callers can layer further overrides before Validate.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	loadFromEnv(config)

	return config, nil
}

func parseBool(v string) bool {
	return v == "true" || v == "1"
}

// loadFromEnv loads configuration values from environment variables.
func loadFromEnv(config *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		config.LogFormat = v
	}
	// Decrypt configuration
	if v := os.Getenv("DECRYPT_TRANSFORM"); v != "" {
		config.Decrypt.Transform = v
	}
	if v := os.Getenv("DECRYPT_XOR_VALUE"); v != "" {
		if n, err := strconv.ParseInt(v, 0, 32); err == nil {
			config.Decrypt.XORValue = int(n)
		}
	}
	if v := os.Getenv("DECRYPT_WORKERS"); v != "" {
		var workers int
		if _, err := fmt.Sscanf(v, "%d", &workers); err == nil && workers > 0 {
			config.Decrypt.Workers = workers
		}
	}
	if v := os.Getenv("DECRYPT_STRICT_SIGNATURE"); v != "" {
		config.Decrypt.StrictSignature = parseBool(v)
	}
	// Storage configuration
	if v := os.Getenv("STORAGE_REGION"); v != "" {
		config.Storage.Region = v
	}
	if v := os.Getenv("STORAGE_ENDPOINT"); v != "" {
		config.Storage.Endpoint = v
	}
	if v := os.Getenv("STORAGE_ACCESS_KEY"); v != "" {
		config.Storage.AccessKey = v
	}
	if v := os.Getenv("STORAGE_SECRET_KEY"); v != "" {
		config.Storage.SecretKey = v
	}
	if v := os.Getenv("STORAGE_USE_PATH_STYLE"); v != "" {
		config.Storage.UsePathStyle = parseBool(v)
	}
	if v := os.Getenv("STORAGE_DECOMPRESS_INPUT"); v != "" {
		config.Storage.DecompressInput = parseBool(v)
	}
	if v := os.Getenv("STORAGE_MAX_DECOMPRESSED_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 0, 64); err == nil && n > 0 {
			config.Storage.MaxDecompressedSize = n
		}
	}
	// Metrics configuration
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		config.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("METRICS_TEXTFILE"); v != "" {
		config.Metrics.Textfile = v
	}
	// Audit configuration
	if v := os.Getenv("AUDIT_ENABLED"); v != "" {
		config.Audit.Enabled = parseBool(v)
	}
	if v := os.Getenv("AUDIT_MAX_EVENTS"); v != "" {
		var maxEvents int
		if _, err := fmt.Sscanf(v, "%d", &maxEvents); err == nil && maxEvents > 0 {
			config.Audit.MaxEvents = maxEvents
		}
	}
	if v := os.Getenv("AUDIT_FILE"); v != "" {
		config.Audit.File = v
	}
	// Tracing configuration
	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		config.Tracing.Enabled = parseBool(v)
	}
	if v := os.Getenv("TRACING_SERVICE_NAME"); v != "" {
		config.Tracing.ServiceName = v
	}
	if v := os.Getenv("TRACING_SERVICE_VERSION"); v != "" {
		config.Tracing.ServiceVersion = v
	}
	if v := os.Getenv("TRACING_EXPORTER"); v != "" {
		config.Tracing.Exporter = v
	}
	if v := os.Getenv("TRACING_OTLP_ENDPOINT"); v != "" {
		config.Tracing.OtlpEndpoint = v
	}
	if v := os.Getenv("TRACING_SAMPLING_RATIO"); v != "" {
		if ratio, err := strconv.ParseFloat(v, 64); err == nil && ratio >= 0.0 && ratio <= 1.0 {
			config.Tracing.SamplingRatio = ratio
		}
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.LogLevel != "" {
		validLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLevels[c.LogLevel] {
			return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", c.LogLevel)
		}
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log_format: %s (must be text or json)", c.LogFormat)
	}

	allowed := map[string]bool{
		"identity": true,
		"xor":      true,
		"keyxor":   true,
		"chacha20": true,
	}
	if t := strings.ToLower(strings.TrimSpace(c.Decrypt.Transform)); !allowed[t] {
		return fmt.Errorf("invalid decrypt.transform: %s", c.Decrypt.Transform)
	}
	if c.Decrypt.XORValue < 0 || c.Decrypt.XORValue > 0xFF {
		return fmt.Errorf("decrypt.xor_value must be between 0 and 255")
	}
	if c.Decrypt.Workers < 1 {
		return fmt.Errorf("decrypt.workers must be at least 1")
	}

	if (c.Storage.AccessKey == "") != (c.Storage.SecretKey == "") {
		return fmt.Errorf("storage.access_key and storage.secret_key must be set together")
	}
	if c.Storage.DecompressInput && c.Storage.MaxDecompressedSize < 1 {
		return fmt.Errorf("storage.max_decompressed_size must be positive when decompress_input is enabled")
	}

	if c.Audit.Enabled && c.Audit.MaxEvents < 1 {
		return fmt.Errorf("audit.max_events must be at least 1 when audit is enabled")
	}

	if c.Tracing.Enabled {
		if c.Tracing.ServiceName == "" {
			return fmt.Errorf("tracing.service_name is required when tracing is enabled")
		}
		validExporters := map[string]bool{
			"stdout": true,
			"otlp":   true,
		}
		if !validExporters[c.Tracing.Exporter] {
			return fmt.Errorf("invalid tracing.exporter: %s (must be stdout or otlp)", c.Tracing.Exporter)
		}
		if c.Tracing.SamplingRatio < 0.0 || c.Tracing.SamplingRatio > 1.0 {
			return fmt.Errorf("tracing.sampling_ratio must be between 0.0 and 1.0")
		}
		if c.Tracing.Exporter == "otlp" && c.Tracing.OtlpEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is otlp")
		}
	}

	return nil
}
