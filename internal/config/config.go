package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // minutes
	} `yaml:"jwt"`

	Storage struct {
		Endpoint  string `yaml:"endpoint"`   // host:port of the S3-compatible provider
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		Region    string `yaml:"region"`
		UseSSL    bool   `yaml:"use_ssl"`
	} `yaml:"storage"`

	Upload struct {
		Prefix             string   `yaml:"prefix"`              // object key prefix inside the bucket
		AllowedTypes       []string `yaml:"allowed_types"`       // allowed MIME types, empty = any
		MaxSize            int64    `yaml:"max_size"`            // max file size in bytes
		ChunkSize          int64    `yaml:"chunk_size"`          // multipart part size in bytes
		ChunkThreshold     int64    `yaml:"chunk_threshold"`     // files above this go multipart
		PresignExpiryMin   int      `yaml:"presign_expiry_min"`  // presigned URL lifetime (minutes)
		MaxConcurrentParts int      `yaml:"max_concurrent_parts"`
	} `yaml:"upload"`

	Webhook struct {
		AuthToken       string `yaml:"auth_token"`       // shared secret the provider sends back
		NotificationARN string `yaml:"notification_arn"` // provider-side target, e.g. arn:minio:sqs::primary:webhook
	} `yaml:"webhook"`

	Dispatch struct {
		Endpoint string `yaml:"endpoint"` // downstream job queue URL, empty = log only
	} `yaml:"dispatch"`
}

// PresignExpiry returns the configured presigned-URL lifetime, default one hour.
func (c *Config) PresignExpiry() time.Duration {
	if c.Upload.PresignExpiryMin <= 0 {
		return time.Hour
	}
	return time.Duration(c.Upload.PresignExpiryMin) * time.Minute
}

var AppConfig *Config

func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")

	if dbURL == "" {
		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		applyDefaults(&cfg)
		AppConfig = &cfg
		return
	}

	// Environment-driven configuration (tests, containers)
	cfg.Database.DSN = dbURL
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.JWT.TTL = 60

	cfg.Storage.Endpoint = os.Getenv("STORAGE_ENDPOINT")
	cfg.Storage.AccessKey = os.Getenv("STORAGE_ACCESS_KEY")
	cfg.Storage.SecretKey = os.Getenv("STORAGE_SECRET_KEY")
	cfg.Storage.Bucket = os.Getenv("STORAGE_BUCKET")
	cfg.Storage.Region = os.Getenv("STORAGE_REGION")

	cfg.Webhook.AuthToken = os.Getenv("WEBHOOK_AUTH_TOKEN")
	cfg.Webhook.NotificationARN = os.Getenv("WEBHOOK_NOTIFICATION_ARN")
	cfg.Dispatch.Endpoint = os.Getenv("DISPATCH_ENDPOINT")

	applyDefaults(&cfg)
	AppConfig = &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Upload.MaxSize == 0 {
		cfg.Upload.MaxSize = 5 * 1024 * 1024 * 1024 // 5GB
	}
	if cfg.Upload.ChunkSize == 0 {
		cfg.Upload.ChunkSize = 50 * 1024 * 1024 // 50MB
	}
	if cfg.Upload.ChunkThreshold == 0 {
		cfg.Upload.ChunkThreshold = 50 * 1024 * 1024 // 50MB
	}
	if cfg.Upload.PresignExpiryMin == 0 {
		cfg.Upload.PresignExpiryMin = 60
	}
	if cfg.Upload.MaxConcurrentParts == 0 {
		cfg.Upload.MaxConcurrentParts = 4
	}
	if cfg.Upload.Prefix == "" {
		cfg.Upload.Prefix = "uploads"
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "uploadgate"
	}
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
