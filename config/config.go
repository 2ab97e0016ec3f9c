package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Compositor CompositorConfig `mapstructure:"compositor"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxSize      int64    `mapstructure:"max_size"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

type CompositorConfig struct {
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	QueueTimeout  time.Duration `mapstructure:"queue_timeout"`
	Resampler     string        `mapstructure:"resampler"`
	OutputFormat  string        `mapstructure:"output_format"`
	JPEGQuality   int           `mapstructure:"jpeg_quality"`
	MaxPixels     int64         `mapstructure:"max_pixels"`
}

// Load 从 YAML 文件加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvPrefix("COMPOSITEKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// New 加载 config.yaml，文件不存在时使用默认配置
func New() (*Config, error) {
	return loadOrDefault("config.yaml")
}

func loadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}

	var notFound viper.ConfigFileNotFoundError
	if errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound) {
		return Default(), nil
	}
	return nil, err
}

// Validate 检查配置取值
func (c *Config) Validate() error {
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode)
	}
	if c.Compositor.MaxConcurrent < 1 {
		return fmt.Errorf("compositor.max_concurrent must be at least 1, got %d", c.Compositor.MaxConcurrent)
	}
	if c.Compositor.JPEGQuality < 1 || c.Compositor.JPEGQuality > 100 {
		return fmt.Errorf("compositor.jpeg_quality must be in [1,100], got %d", c.Compositor.JPEGQuality)
	}
	if c.Compositor.MaxPixels <= 0 {
		return fmt.Errorf("compositor.max_pixels must be positive, got %d", c.Compositor.MaxPixels)
	}
	if c.Upload.MaxSize <= 0 {
		return fmt.Errorf("upload.max_size must be positive, got %d", c.Upload.MaxSize)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)

	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.ttl", d.Redis.TTL)

	v.SetDefault("upload.max_size", d.Upload.MaxSize)
	v.SetDefault("upload.allowed_types", d.Upload.AllowedTypes)

	v.SetDefault("compositor.max_concurrent", d.Compositor.MaxConcurrent)
	v.SetDefault("compositor.queue_timeout", d.Compositor.QueueTimeout)
	v.SetDefault("compositor.resampler", d.Compositor.Resampler)
	v.SetDefault("compositor.output_format", d.Compositor.OutputFormat)
	v.SetDefault("compositor.jpeg_quality", d.Compositor.JPEGQuality)
	v.SetDefault("compositor.max_pixels", d.Compositor.MaxPixels)
}

// Default 内置默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			Mode:         "debug",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Enabled:  true,
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			TTL:      24 * time.Hour,
		},
		Upload: UploadConfig{
			MaxSize: 20 * 1024 * 1024,
			AllowedTypes: []string{
				"image/jpeg", "image/png", "image/jpg", "image/gif",
				"image/webp", "image/bmp", "image/tiff", "application/octet-stream",
			},
		},
		Compositor: CompositorConfig{
			MaxConcurrent: 4,
			QueueTimeout:  30 * time.Second,
			Resampler:     "lanczos",
			OutputFormat:  "png",
			JPEGQuality:   90,
			MaxPixels:     50_000_000,
		},
	}
}
