package utils

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the configuration reads,
// e.g. ELFDUMP_LOG_LEVEL or ELFDUMP_OUTPUT_FORMAT.
const EnvPrefix = "ELFDUMP"

// Config represents the application configuration
type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	Output OutputConfig `mapstructure:"output"`
	Checks ChecksConfig `mapstructure:"checks"`
}

// OutputConfig controls how dumps and check reports are rendered.
type OutputConfig struct {
	Format       string `mapstructure:"format"`
	Segments     bool   `mapstructure:"segments"`
	WordsPerLine int    `mapstructure:"words_per_line"`
	Color        bool   `mapstructure:"color"`
}

// ChecksConfig controls the check runner.
type ChecksConfig struct {
	Skip       []string `mapstructure:"skip"`
	FailOnWarn bool     `mapstructure:"fail_on_warn"`
}

// Logger returns the logger configuration described by c.
func (c *Config) Logger() LoggerConfig {
	level, _ := ParseLogLevel(c.LogLevel)
	return LoggerConfig{Level: level, Format: ParseLogFormat(c.LogFormat)}
}

// ConfigManager handles configuration loading and management
type ConfigManager struct {
	config *Config
	viper  *viper.Viper
	logger *Logger
}

// NewConfigManager creates a new configuration manager
func NewConfigManager() *ConfigManager {
	return &ConfigManager{
		config: &Config{},
		viper:  viper.New(),
		logger: NewDiscardLogger(),
	}
}

// BindFlag lets a command-line flag override the configuration key. Flags
// only win when they were set explicitly.
func (c *ConfigManager) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag to bind to %s", key)
	}
	return c.viper.BindPFlag(key, flag)
}

// LoadConfig loads configuration from defaults, an optional file and the
// environment. An explicit configFile must exist; otherwise elfdump.yaml is
// looked up in the working directory, $HOME/.elfdump and /etc/elfdump.
func (c *ConfigManager) LoadConfig(configFile string) error {
	c.setDefaults()
	c.configureEnv()

	log := c.logger.WithComponent("config")
	if configFile != "" {
		c.viper.SetConfigFile(configFile)
		if err := c.viper.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("config file not found: %s", configFile)
			}
			return fmt.Errorf("failed to read config file: %w", err)
		}
		log.Debugf("Loaded config from: %s", c.viper.ConfigFileUsed())
	} else {
		c.viper.SetConfigName("elfdump")
		c.viper.SetConfigType("yaml")
		c.viper.AddConfigPath(".")
		c.viper.AddConfigPath("$HOME/.elfdump")
		c.viper.AddConfigPath("/etc/elfdump")

		if err := c.viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("failed to read config file: %w", err)
			}
			log.Debug("No config file found, using defaults and environment variables")
		} else {
			log.Debugf("Loaded config from: %s", c.viper.ConfigFileUsed())
		}
	}

	return c.finish()
}

func (c *ConfigManager) configureEnv() {
	c.viper.SetEnvPrefix(EnvPrefix)
	c.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	c.viper.AutomaticEnv()
}

func (c *ConfigManager) finish() error {
	if err := c.viper.Unmarshal(c.config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := c.validateConfig(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	c.logger.WithComponent("config").Debug("Configuration loaded successfully")
	return nil
}

// setDefaults sets default configuration values
func (c *ConfigManager) setDefaults() {
	c.viper.SetDefault("log_level", "warn")
	c.viper.SetDefault("log_format", "text")

	c.viper.SetDefault("output.format", "text")
	c.viper.SetDefault("output.segments", false)
	c.viper.SetDefault("output.words_per_line", 8)
	c.viper.SetDefault("output.color", false)

	c.viper.SetDefault("checks.skip", []string{})
	c.viper.SetDefault("checks.fail_on_warn", false)
}

var (
	validLogLevels     = []string{"debug", "info", "warn", "warning", "error"}
	validLogFormats    = []string{"text", "json"}
	validOutputFormats = []string{"text", "json"}
)

// validateConfig validates the loaded configuration
func (c *ConfigManager) validateConfig() error {
	if !contains(validLogLevels, strings.ToLower(c.config.LogLevel)) {
		return fmt.Errorf("invalid log_level: %s (valid: %v)", c.config.LogLevel, validLogLevels)
	}
	if !contains(validLogFormats, strings.ToLower(c.config.LogFormat)) {
		return fmt.Errorf("invalid log_format: %s (valid: %v)", c.config.LogFormat, validLogFormats)
	}
	if !contains(validOutputFormats, strings.ToLower(c.config.Output.Format)) {
		return fmt.Errorf("invalid output.format: %s (valid: %v)", c.config.Output.Format, validOutputFormats)
	}
	if c.config.Output.WordsPerLine <= 0 {
		return fmt.Errorf("invalid output.words_per_line: %d (must be positive)", c.config.Output.WordsPerLine)
	}

	c.config.Output.Format = strings.ToLower(c.config.Output.Format)
	skip := c.config.Checks.Skip[:0]
	for _, id := range c.config.Checks.Skip {
		if id = strings.TrimSpace(id); id != "" {
			skip = append(skip, id)
		}
	}
	c.config.Checks.Skip = skip
	return nil
}

// GetConfig returns the loaded configuration
func (c *ConfigManager) GetConfig() *Config {
	return c.config
}

// SetLogger sets the logger for the config manager
func (c *ConfigManager) SetLogger(logger *Logger) {
	c.logger = logger
}

// GetConfigValue gets a configuration value by key
func (c *ConfigManager) GetConfigValue(key string) interface{} {
	return c.viper.Get(key)
}

// SetConfigValue sets a configuration value by key
func (c *ConfigManager) SetConfigValue(key string, value interface{}) {
	c.viper.Set(key, value)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// LoadDefaultConfig loads configuration from the standard locations
func LoadDefaultConfig() (*Config, error) {
	manager := NewConfigManager()
	if err := manager.LoadConfig(""); err != nil {
		return nil, err
	}
	return manager.GetConfig(), nil
}

// LoadConfigFromFile loads configuration from a specific file
func LoadConfigFromFile(filename string) (*Config, error) {
	manager := NewConfigManager()
	if err := manager.LoadConfig(filename); err != nil {
		return nil, err
	}
	return manager.GetConfig(), nil
}

// LoadWithOverrides loads defaults and environment with the given keys
// forced, without reading any file.
func LoadWithOverrides(overrides map[string]interface{}) (*Config, error) {
	manager := NewConfigManager()
	manager.setDefaults()
	manager.configureEnv()
	for key, value := range overrides {
		manager.viper.Set(key, value)
	}
	if err := manager.finish(); err != nil {
		return nil, err
	}
	return manager.GetConfig(), nil
}
