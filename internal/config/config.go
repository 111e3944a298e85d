package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Mail      MailConfig      `yaml:"mail" mapstructure:"mail"`
	Docstore  DocstoreConfig  `yaml:"docstore" mapstructure:"docstore"`
	Scheduler SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// MailConfig configures outbound email. An empty key switches the
// service to a dry-run mailer that only logs deliveries.
type MailConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	From       string `yaml:"from" mapstructure:"from"`
	AdminEmail string `yaml:"admin_email" mapstructure:"admin_email"`
}

// DocstoreConfig configures the research document service client.
type DocstoreConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SchedulerConfig configures the recurring jobs. Hours and minutes are
// UTC clock values; weekday follows time.Weekday (0 = Sunday).
type SchedulerConfig struct {
	RefreshHour   int `yaml:"refresh_hour" mapstructure:"refresh_hour"`
	RefreshMinute int `yaml:"refresh_minute" mapstructure:"refresh_minute"`
	SLAHour       int `yaml:"sla_hour" mapstructure:"sla_hour"`
	SLAMinute     int `yaml:"sla_minute" mapstructure:"sla_minute"`
	StatsWeekday  int `yaml:"stats_weekday" mapstructure:"stats_weekday"`
	StatsHour     int `yaml:"stats_hour" mapstructure:"stats_hour"`
	StatsMinute   int `yaml:"stats_minute" mapstructure:"stats_minute"`
	PacingMs      int `yaml:"pacing_ms" mapstructure:"pacing_ms"`
}

// Pacing returns the delay between projects in a refresh sweep.
func (c SchedulerConfig) Pacing() time.Duration {
	return time.Duration(c.PacingMs) * time.Millisecond
}

// ServerConfig configures the HTTP trigger and metrics surface.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VENDORMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("mail.base_url", "https://api.mail.expanders360.com/v1")
	v.SetDefault("mail.from", "no-reply@expanders360.com")
	v.SetDefault("mail.admin_email", "ops@expanders360.com")
	v.SetDefault("docstore.base_url", "https://docs.expanders360.com/api")
	v.SetDefault("scheduler.refresh_hour", 6)
	v.SetDefault("scheduler.refresh_minute", 0)
	v.SetDefault("scheduler.sla_hour", 8)
	v.SetDefault("scheduler.sla_minute", 0)
	v.SetDefault("scheduler.stats_weekday", int(time.Monday))
	v.SetDefault("scheduler.stats_hour", 9)
	v.SetDefault("scheduler.stats_minute", 0)
	v.SetDefault("scheduler.pacing_ms", 1000)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
