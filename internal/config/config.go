package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/logger"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/validator"
)

type User struct {
	ID     string `mapstructure:"id"      json:"id"      validate:"required,uuid_rfc4122"`
	Note   string `mapstructure:"note"    json:"note"    validate:"required"`
	APIKey APIKey `mapstructure:"api_key" json:"api_key" validate:"required"`
}

type APIKey struct {
	Active *bool  `mapstructure:"active" json:"active" validate:"required"`
	Token  string `mapstructure:"token"  json:"token"  validate:"required"`
}

type PostgresConfig struct {
	User               string        `validate:"required"`
	Password           string        `validate:"required"`
	Host               string        `validate:"required"`
	Database           string        `validate:"required"`
	MaxIdleConnections int           `validate:"required" mapstructure:"max_idle_connections"`
	MaxOpenConnections int           `validate:"required" mapstructure:"max_open_connections"`
	ConnectionTTL      time.Duration `validate:"required" mapstructure:"connection_ttl"`
	Port               int16         `validate:"required"`
}

type AzureConfig struct {
	StorageAccount *AzureStorageAccountConfig `mapstructure:"storage_account" validate:"required"`
}

type AzureStorageAccountConfig struct {
	Queues *AzureStorageAccountQueueConfig `mapstructure:"queues" validate:"required"`
	Name   string                          `mapstructure:"name"   validate:"required"`
	Key    string                          `mapstructure:"key"    validate:"required"`
}

type AzureStorageAccountQueueConfig struct {
	URL   string `mapstructure:"url"   validate:"required"`
	Steps string `mapstructure:"steps" validate:"required"`
}

type SlogConfig struct {
	Level int `mapstructure:"level"`
}

type GormLogConfig struct {
	Level        int  `mapstructure:"level"`
	TraceQueries bool `mapstructure:"trace_queries"`
}

type LoggingConfig struct {
	Gorm    GormLogConfig `mapstructure:"gorm"`
	App     SlogConfig    `mapstructure:"app"`
	UseOTLP bool          `mapstructure:"use_otlp"`
}

type S3ArchiveConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	SSLEnabled      bool   `mapstructure:"ssl_enabled"`
}

type RateLimitConfig struct {
	RedisHost       string `mapstructure:"redis_host"`
	GlobalPerMinute int64  `mapstructure:"global_per_minute"`
	RetryPerMinute  int64  `mapstructure:"retry_per_minute"`
	FailOpen        bool   `mapstructure:"fail_open"`
}

type VideoHostConfig struct {
	URL    string `mapstructure:"url"     validate:"required"`
	APIKey string `mapstructure:"api_key" validate:"required"`
}

type TranscoderConfig struct {
	URL       string `mapstructure:"url"        validate:"required"`
	APIKey    string `mapstructure:"api_key"    validate:"required"`
	MaxHeight int    `mapstructure:"max_height"`
	Container string `mapstructure:"container"`
}

type AnalyzerConfig struct {
	URL    string `mapstructure:"url"     validate:"required"`
	APIKey string `mapstructure:"api_key" validate:"required"`
	Model  string `mapstructure:"model"   validate:"required"`
}

// See clipcoach.yaml for an example config
type Config struct {
	Postgres             *PostgresConfig   `mapstructure:"postgres"   validate:"required"`
	Azure                *AzureConfig      `mapstructure:"azure"      validate:"required"`
	Logging              *LoggingConfig    `mapstructure:"logging"`
	S3Archive            *S3ArchiveConfig  `mapstructure:"s3_archive" validate:"required"`
	RateLimit            *RateLimitConfig  `mapstructure:"ratelimit"`
	VideoHost            *VideoHostConfig  `mapstructure:"video_host" validate:"required"`
	Transcoder           *TranscoderConfig `mapstructure:"transcoder" validate:"required"`
	Analyzer             *AnalyzerConfig   `mapstructure:"analyzer"   validate:"required"`
	ListenAddress        string            `mapstructure:"listen_address" validate:"required"`
	Users                []User            `mapstructure:"users"          validate:"required"`
	GracefulShutdownSecs int64             `mapstructure:"graceful_shutdown_secs"`
}

const (
	AnalyzerAPIKey         string = "analyzer.api_key"
	AnalyzerModel          string = "analyzer.model"
	AppLogLevel            string = "logging.app.level"
	AzureStorageAccountKey string = "azure.storage_account.key"
	EnvPrefix              string = "clipcoach"
	GlobalPerMinute        string = "ratelimit.global_per_minute"
	GormLogLevel           string = "logging.gorm.level"
	GormTraceQueries       string = "logging.gorm.trace_queries"
	GracefulShutdownSecs   string = "graceful_shutdown_secs"
	ListenAddress          string = "listen_address"
	PostgresConnectionTTL  string = "postgres.connection_ttl"
	PostgresDatabase       string = "postgres.database"
	PostgresHost           string = "postgres.host"
	PostgresMaxIdle        string = "postgres.max_idle_connections"
	PostgresMaxOpen        string = "postgres.max_open_connections"
	PostgresPassword       string = "postgres.password"
	PostgresPort           string = "postgres.port"
	PostgresUser           string = "postgres.user"
	RateLimitFailOpen      string = "ratelimit.fail_open"
	RedisHost              string = "ratelimit.redis_host"
	RetryPerMinute         string = "ratelimit.retry_per_minute"
	S3AccessKeyID          string = "s3_archive.access_key_id"
	S3SSLEnabled           string = "s3_archive.ssl_enabled"
	S3SecretAccessKey      string = "s3_archive.secret_access_key" // #nosec
	TranscoderAPIKey       string = "transcoder.api_key"
	TranscoderContainer    string = "transcoder.container"
	TranscoderMaxHeight    string = "transcoder.max_height"
	UseOTLP                string = "logging.use_otlp"
	VideoHostAPIKey        string = "video_host.api_key"
)

var configReady = false
var config Config

func GetConfig() (*Config, error) {
	if configReady {
		logger.Logger.Debug("returning already-loaded config")
		return &config, nil
	}
	logger.Logger.Info("loading config")

	v := viper.New()

	v.SetConfigName("clipcoach")

	v.AddConfigPath("/etc/clipcoach/")
	v.AddConfigPath(".")

	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.AutomaticEnv()

	// workaround for https://github.com/spf13/viper/issues/761
	// bind env vars explicitly so they unmarshal into the nested struct
	for _, key := range []string{
		PostgresPassword,
		AzureStorageAccountKey,
		S3AccessKeyID,
		S3SecretAccessKey,
		VideoHostAPIKey,
		TranscoderAPIKey,
		AnalyzerAPIKey,
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	v.SetDefault(ListenAddress, "[::]:1323")
	v.SetDefault(PostgresHost, "localhost")
	v.SetDefault(PostgresPort, 5432)
	v.SetDefault(PostgresMaxIdle, 2)
	v.SetDefault(PostgresMaxOpen, 10)
	v.SetDefault(PostgresConnectionTTL, 10*time.Minute)
	v.SetDefault(GormLogLevel, int(slog.LevelDebug))
	v.SetDefault(GormTraceQueries, false)
	v.SetDefault(AppLogLevel, int(slog.LevelDebug))
	v.SetDefault(S3SSLEnabled, true)

	v.SetDefault(RedisHost, "localhost")
	v.SetDefault(GlobalPerMinute, 0)
	v.SetDefault(RetryPerMinute, 0)
	v.SetDefault(RateLimitFailOpen, true)

	v.SetDefault(UseOTLP, false)

	v.SetDefault(TranscoderMaxHeight, 720)
	v.SetDefault(TranscoderContainer, "mp4")
	v.SetDefault(AnalyzerModel, "gemini-1.5-pro")

	v.SetDefault(GracefulShutdownSecs, 30)

	err := v.ReadInConfig()
	if err != nil {
		// ignore config file not found to allow pure env config
		if _, ok := err.(*viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	err = v.Unmarshal(&config)
	if err != nil {
		configReady = false
		return nil, err
	}

	valid := validator.Create()
	err = valid.Validate(&config)
	if err != nil {
		configReady = false
		return nil, err
	}

	configReady = true
	return &config, nil
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s",
		url.QueryEscape(c.Postgres.User),
		url.QueryEscape(c.Postgres.Password),
		c.Postgres.Host, c.Postgres.Port,
		url.QueryEscape(c.Postgres.Database),
	)
}
