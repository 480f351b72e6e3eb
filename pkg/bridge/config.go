// Copyright 2024-2026 Aiku AI

package bridge

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"text/template"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"go.mau.fi/zeroconfig"
	"gopkg.in/yaml.v3"
)

//go:embed example-config.yaml
var ExampleConfig string

// Config holds the whole bridge configuration.
type Config struct {
	Discord  DiscordConfig  `yaml:"discord"`
	Revolt   RevoltConfig   `yaml:"revolt"`
	Database DatabaseConfig `yaml:"database"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Logging  LoggingConfig  `yaml:"logging"`
	// AdminAPIAddr is the listen address of the admin HTTP API. Empty
	// disables it.
	AdminAPIAddr string `yaml:"admin_api_addr" env:"BRIDGE_API_ADDR"`

	displaynameTemplate *template.Template `yaml:"-"`
}

type DiscordConfig struct {
	Token            string `yaml:"token" env:"DISCORD_TOKEN"`
	RegisterCommands bool   `yaml:"register_commands"`
}

type RevoltConfig struct {
	Token         string `yaml:"token" env:"REVOLT_TOKEN"`
	APIURL        string `yaml:"api_url" env:"API_URL"`
	WebsocketURL  string `yaml:"websocket_url" env:"REVOLT_WS_URL"`
	AttachmentURL string `yaml:"attachment_url" env:"REVOLT_ATTACHMENT_URL"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" env:"DATABASE_PATH"`
}

type BridgeConfig struct {
	CommandPrefix       string        `yaml:"command_prefix"`
	DisplaynameTemplate string        `yaml:"displayname_template"`
	EchoTTL             time.Duration `yaml:"echo_ttl"`
	EchoGracePeriod     time.Duration `yaml:"echo_grace_period"`
	MessageCacheSize    int           `yaml:"message_cache_size"`
	QueueSize           int           `yaml:"queue_size"`

	MirrorChannelCreate bool `yaml:"mirror_channel_create"`
	MirrorChannelUpdate bool `yaml:"mirror_channel_update"`
	MirrorChannelDelete bool `yaml:"mirror_channel_delete"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Pretty bool   `yaml:"pretty"`
	// File additionally writes JSON logs to a rotated file when set.
	File string `yaml:"file" env:"LOG_FILE"`
}

// Compile builds the root logger.
func (c LoggingConfig) Compile() (*zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if c.Level != "" {
		var err error
		if level, err = zerolog.ParseLevel(c.Level); err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
	}
	format := zeroconfig.LogFormatJSON
	if c.Pretty {
		format = zeroconfig.LogFormatPrettyColored
	}
	zc := zeroconfig.Config{
		MinLevel: &level,
		Writers: []zeroconfig.WriterConfig{{
			Type:   zeroconfig.WriterTypeStdout,
			Format: format,
		}},
	}
	if c.File != "" {
		zc.Writers = append(zc.Writers, zeroconfig.WriterConfig{
			Type:   zeroconfig.WriterTypeFile,
			Format: zeroconfig.LogFormatJSON,
			FileConfig: zeroconfig.FileConfig{
				Filename:   c.File,
				MaxSize:    100,
				MaxBackups: 10,
			},
		})
	}
	return zc.Compile()
}

// DisplaynameParams holds the parameters for rendering the displayname template.
type DisplaynameParams struct {
	Username      string
	DisplayName   string
	Discriminator string
	Platform      string
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type rawConfig Config
	return node.Decode((*rawConfig)(c))
}

// LoadConfig reads the defaults, then the YAML file at path if one is given,
// then the environment.
func LoadConfig(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return loadConfig(data, env.Options{})
}

func loadConfig(data []byte, envOpts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(ExampleConfig), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse default config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if err := env.ParseWithOptions(cfg, envOpts); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.PostProcess(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PostProcess validates the configuration and compiles the displayname
// template.
func (c *Config) PostProcess() error {
	var errs []error
	if c.Discord.Token == "" {
		errs = append(errs, errors.New("discord token is not set"))
	}
	if c.Revolt.Token == "" {
		errs = append(errs, errors.New("revolt token is not set"))
	}
	if c.Bridge.EchoTTL <= 0 {
		errs = append(errs, errors.New("bridge.echo_ttl must be positive"))
	}
	if c.Bridge.EchoGracePeriod < 0 {
		errs = append(errs, errors.New("bridge.echo_grace_period must not be negative"))
	}
	if c.Bridge.MessageCacheSize <= 0 {
		errs = append(errs, errors.New("bridge.message_cache_size must be positive"))
	}
	if c.Bridge.QueueSize < 0 {
		errs = append(errs, errors.New("bridge.queue_size must not be negative"))
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("invalid logging.level: %w", err))
	}
	if c.Bridge.CommandPrefix == "" {
		errs = append(errs, errors.New("bridge.command_prefix is empty"))
	}
	var err error
	c.displaynameTemplate, err = template.New("displayname").Parse(c.Bridge.DisplaynameTemplate)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid displayname template: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// FormatDisplayname generates a display name from the template and params.
func (c *Config) FormatDisplayname(params DisplaynameParams) string {
	if c.displaynameTemplate == nil {
		return params.Username
	}
	var buf []byte
	err := c.displaynameTemplate.Execute(
		(*templateBuffer)(&buf),
		params,
	)
	if err != nil || len(buf) == 0 {
		return params.Username
	}
	return string(buf)
}

// templateBuffer is a simple io.Writer that appends to a byte slice.
type templateBuffer []byte

func (b *templateBuffer) Write(p []byte) (int, error) {
	*b = append(*b, p...)
	return len(p), nil
}
