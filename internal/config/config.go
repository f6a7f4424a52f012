package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flowbaker/workflow-monitor/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const EnvPrefix = "WFMON"

// Config holds the monitor configuration
type Config struct {
	APIBaseURL       string            `mapstructure:"api_base_url"`
	APIToken         string            `mapstructure:"api_token"`
	SigningKey       string            `mapstructure:"signing_key"`
	Marketplace      string            `mapstructure:"marketplace"`
	PollInterval     time.Duration     `mapstructure:"poll_interval"`
	PageLimit        int               `mapstructure:"page_limit"`
	RequestTimeout   time.Duration     `mapstructure:"request_timeout"`
	RetryAttempts    int               `mapstructure:"retry_attempts"`
	RetryDelay       time.Duration     `mapstructure:"retry_delay"`
	HTTPAddress      string            `mapstructure:"http_address"`
	ControlPublicKey string            `mapstructure:"control_public_key"`
	Headless         bool              `mapstructure:"headless"`
	Platforms        []domain.Platform `mapstructure:"platforms"`
	Redis            RedisConfig       `mapstructure:"redis"`
}

type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Channel string `mapstructure:"channel"`
}

// Platform returns the platform record of the configured marketplace
func (c *Config) Platform() (domain.Platform, error) {
	platform, ok := domain.FindPlatform(c.Platforms, c.Marketplace)
	if !ok {
		return domain.Platform{}, fmt.Errorf("unknown marketplace %q", c.Marketplace)
	}
	return platform, nil
}

// Load reads configuration from defaults, an optional config file and WFMON_* environment
// variables, in increasing order of precedence. configFile may be empty.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("monitor")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.workflow-monitor")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("Config file not found, using environment variables and defaults")
	} else {
		log.Debug().Msgf("Using config file: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if len(config.Platforms) == 0 {
		config.Platforms = domain.DefaultPlatforms()
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	log.Debug().
		Str("api_base_url", config.APIBaseURL).
		Str("marketplace", config.Marketplace).
		Dur("poll_interval", config.PollInterval).
		Msg("Config loaded")

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("marketplace", "vinted")
	v.SetDefault("poll_interval", 3*time.Second)
	v.SetDefault("page_limit", 50)
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("retry_attempts", 3)
	v.SetDefault("retry_delay", time.Second)
	v.SetDefault("http_address", ":8082")
	v.SetDefault("headless", false)
	v.SetDefault("redis.channel", "workflow-monitor.events")

	// registered so AutomaticEnv picks them up during Unmarshal
	v.SetDefault("api_base_url", "")
	v.SetDefault("api_token", "")
	v.SetDefault("signing_key", "")
	v.SetDefault("control_public_key", "")
	v.SetDefault("redis.url", "")
}

func validateConfig(config *Config) error {
	var problems []string

	if config.APIBaseURL == "" {
		problems = append(problems, fmt.Sprintf("api_base_url is required (%s_API_BASE_URL)", EnvPrefix))
	}

	if config.Marketplace == "" {
		problems = append(problems, fmt.Sprintf("marketplace is required (%s_MARKETPLACE)", EnvPrefix))
	} else if _, ok := domain.FindPlatform(config.Platforms, config.Marketplace); !ok {
		problems = append(problems, fmt.Sprintf("marketplace %q is not one of the configured platforms", config.Marketplace))
	}

	if config.PollInterval <= 0 {
		problems = append(problems, "poll_interval must be positive")
	}

	if config.PageLimit <= 0 {
		problems = append(problems, "page_limit must be positive")
	}

	if config.RetryAttempts < 0 {
		problems = append(problems, "retry_attempts cannot be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	return nil
}
