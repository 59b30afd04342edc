package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.LogLevel != "info" {
		t.Errorf("expected LogLevel info, got %s", config.LogLevel)
	}
	if config.Decrypt.Transform != "identity" {
		t.Errorf("expected transform identity, got %s", config.Decrypt.Transform)
	}
	if config.Decrypt.Workers != 1 {
		t.Errorf("expected 1 worker, got %d", config.Decrypt.Workers)
	}
	if config.Storage.DecompressInput {
		t.Errorf("expected decompress_input disabled by default")
	}
	if config.Storage.MaxDecompressedSize != DefaultMaxDecompressedSize {
		t.Errorf("expected max_decompressed_size %d, got %d", DefaultMaxDecompressedSize, config.Storage.MaxDecompressedSize)
	}
}

func TestLoad_DefersValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadecrypt.yaml")
	require.NoError(t, os.WriteFile(path, []byte("decrypt:\n  workers: 0\n"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err, "LoadConfig validates")

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, config.Decrypt.Workers)

	config.Decrypt.Workers = 2
	assert.NoError(t, config.Validate())
}

func TestLoadConfig_MissingFileIsIgnored(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "info", config.LogLevel)
}

func TestLoadConfig_FromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadecrypt.yaml")
	yaml := `log_level: debug
log_format: json
decrypt:
  transform: xor
  xor_value: 0x33
  workers: 4
  strict_signature: true
storage:
  endpoint: http://localhost:9000
  access_key: minio
  secret_key: minio-secret
  use_path_style: true
metrics:
  enabled: true
  textfile: /tmp/metadecrypt.prom
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, "json", config.LogFormat)
	assert.Equal(t, "xor", config.Decrypt.Transform)
	assert.Equal(t, 0x33, config.Decrypt.XORValue)
	assert.Equal(t, 4, config.Decrypt.Workers)
	assert.True(t, config.Decrypt.StrictSignature)
	assert.Equal(t, "http://localhost:9000", config.Storage.Endpoint)
	assert.True(t, config.Storage.UsePathStyle)
	assert.Equal(t, "us-east-1", config.Storage.Region, "unset values keep defaults")
	assert.True(t, config.Metrics.Enabled)
	assert.Equal(t, "/tmp/metadecrypt.prom", config.Metrics.Textfile)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("decrypt: [unterminated"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadecrypt.yaml")
	require.NoError(t, os.WriteFile(path, []byte("decrypt:\n  transform: keyxor\n  workers: 2\n"), 0644))

	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DECRYPT_TRANSFORM", "chacha20")
	t.Setenv("DECRYPT_WORKERS", "8")
	t.Setenv("DECRYPT_XOR_VALUE", "0x7f")
	t.Setenv("STORAGE_DECOMPRESS_INPUT", "true")
	t.Setenv("STORAGE_MAX_DECOMPRESSED_SIZE", "1048576")
	t.Setenv("TRACING_SAMPLING_RATIO", "0.25")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", config.LogLevel)
	assert.Equal(t, "chacha20", config.Decrypt.Transform)
	assert.Equal(t, 8, config.Decrypt.Workers)
	assert.Equal(t, 0x7f, config.Decrypt.XORValue)
	assert.True(t, config.Storage.DecompressInput)
	assert.Equal(t, int64(1<<20), config.Storage.MaxDecompressedSize)
	assert.Equal(t, 0.25, config.Tracing.SamplingRatio)
}

func TestLoadConfig_InvalidEnvValuesIgnored(t *testing.T) {
	t.Setenv("DECRYPT_WORKERS", "-3")
	t.Setenv("TRACING_SAMPLING_RATIO", "2.5")

	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 1, config.Decrypt.Workers)
	assert.Equal(t, 1.0, config.Tracing.SamplingRatio)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{
			name:    "defaults",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: true,
		},
		{
			name:    "invalid log format",
			modify:  func(c *Config) { c.LogFormat = "xml" },
			wantErr: true,
		},
		{
			name:    "unknown transform",
			modify:  func(c *Config) { c.Decrypt.Transform = "rot13" },
			wantErr: true,
		},
		{
			name:    "transform is case insensitive",
			modify:  func(c *Config) { c.Decrypt.Transform = "ChaCha20" },
			wantErr: false,
		},
		{
			name:    "xor value out of range",
			modify:  func(c *Config) { c.Decrypt.XORValue = 256 },
			wantErr: true,
		},
		{
			name:    "zero workers",
			modify:  func(c *Config) { c.Decrypt.Workers = 0 },
			wantErr: true,
		},
		{
			name:    "access key without secret",
			modify:  func(c *Config) { c.Storage.AccessKey = "key" },
			wantErr: true,
		},
		{
			name: "decompression without size cap",
			modify: func(c *Config) {
				c.Storage.DecompressInput = true
				c.Storage.MaxDecompressedSize = 0
			},
			wantErr: true,
		},
		{
			name: "audit enabled without capacity",
			modify: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.MaxEvents = 0
			},
			wantErr: true,
		},
		{
			name: "otlp without endpoint",
			modify: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.Exporter = "otlp"
			},
			wantErr: true,
		},
		{
			name: "unknown exporter",
			modify: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.Exporter = "jaeger"
			},
			wantErr: true,
		},
		{
			name: "otlp with endpoint",
			modify: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.Exporter = "otlp"
				c.Tracing.OtlpEndpoint = "localhost:4317"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
