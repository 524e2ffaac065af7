// Package config loads the settings of the lola binary.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/koscakluka/lola/core/platform"
	"github.com/koscakluka/lola/core/retry"
	"github.com/spf13/viper"
)

const (
	AppName    = "lola"
	EnvPrefix  = "LOLA"
	configName = "lola"
)

const (
	CaptureMiniaudio = "miniaudio"
	CapturePortaudio = "portaudio"

	PositionNone   = "none"
	PositionStatic = "static"
	PositionIP     = "ip"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is everything the binary needs to assemble the assistant.
// Environment variables prefixed with LOLA_ override lola.yaml, which
// overrides the defaults.
type Config struct {
	Backend   BackendConfig   `mapstructure:"backend"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Metadata  MetadataConfig  `mapstructure:"metadata"`
	Deepgram  DeepgramConfig  `mapstructure:"deepgram"`
	Audio     AudioConfig     `mapstructure:"audio"`
}

type BackendConfig struct {
	URL      string        `mapstructure:"url"`
	Endpoint string        `mapstructure:"endpoint"`
	Secret   string        `mapstructure:"secret"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type AssistantConfig struct {
	WakePhrases     []string      `mapstructure:"wake_phrases"`
	FallbackPhrase  string        `mapstructure:"fallback_phrase"`
	ReadyPhrase     string        `mapstructure:"ready_phrase"`
	EventQueueSize  int           `mapstructure:"event_queue_size"`
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout"`
}

type RetryConfig struct {
	MaxAttempts   uint64        `mapstructure:"max_attempts"`
	Delay         time.Duration `mapstructure:"delay"`
	Backoff       string        `mapstructure:"backoff"`
	MaxDelay      time.Duration `mapstructure:"max_delay"`
	JitterPercent uint64        `mapstructure:"jitter_percent"`
}

type MetadataConfig struct {
	AppsTimeout       time.Duration  `mapstructure:"apps_timeout"`
	PositionTimeout   time.Duration  `mapstructure:"position_timeout"`
	ContactsTimeout   time.Duration  `mapstructure:"contacts_timeout"`
	Position          PositionConfig `mapstructure:"position"`
	Contacts          []Contact      `mapstructure:"contacts"`
	DeniedPermissions []string       `mapstructure:"denied_permissions"`
}

type PositionConfig struct {
	// Source is one of none, static or ip.
	Source    string  `mapstructure:"source"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
	URL       string  `mapstructure:"url"`
}

// Contact is a single address book entry. Contacts are a list rather than a
// map because configuration keys are case-insensitive.
type Contact struct {
	Name  string `mapstructure:"name"`
	Phone string `mapstructure:"phone"`
}

type DeepgramConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Voice    string `mapstructure:"voice"`
	Model    string `mapstructure:"model"`
	Language string `mapstructure:"language"`
}

type AudioConfig struct {
	Capture    string `mapstructure:"capture"`
	SampleRate int    `mapstructure:"sample_rate"`
	AssetsDir  string `mapstructure:"assets_dir"`
}

// Load reads configuration from path, or from lola.yaml in the working
// directory or the user config directory when path is empty. A missing
// lola.yaml is not an error, a missing explicit path is.
func Load(path string) (*Config, error) {
	searchPaths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(dir, AppName))
	}
	return load(viper.New(), path, searchPaths)
}

func load(v *viper.Viper, path string, searchPaths []string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		for _, searchPath := range searchPaths {
			v.AddConfigPath(searchPath)
		}
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The Deepgram key is also picked up under the name the Deepgram
	// tooling uses.
	if err := v.BindEnv("deepgram.api_key", EnvPrefix+"_DEEPGRAM_API_KEY", "DEEPGRAM_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind deepgram key: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.url", "http://localhost:3000")
	v.SetDefault("backend.endpoint", "/api/conversation")
	v.SetDefault("backend.secret", "")
	v.SetDefault("backend.timeout", "0s")

	v.SetDefault("assistant.wake_phrases", []string{"lola"})
	v.SetDefault("assistant.fallback_phrase", "I didn't get that, could you try again?")
	v.SetDefault("assistant.ready_phrase", "Ready to listen for commands.")
	v.SetDefault("assistant.event_queue_size", 16)
	v.SetDefault("assistant.dispatch_timeout", "0s")

	v.SetDefault("retry.max_attempts", 0)
	v.SetDefault("retry.delay", retry.DefaultDelay.String())
	v.SetDefault("retry.backoff", string(retry.BackoffConstant))
	v.SetDefault("retry.max_delay", "0s")
	v.SetDefault("retry.jitter_percent", 0)

	v.SetDefault("metadata.apps_timeout", "10s")
	v.SetDefault("metadata.position_timeout", "10s")
	v.SetDefault("metadata.contacts_timeout", "10s")
	v.SetDefault("metadata.position.source", PositionNone)
	v.SetDefault("metadata.position.latitude", 0.0)
	v.SetDefault("metadata.position.longitude", 0.0)
	v.SetDefault("metadata.position.url", "")
	v.SetDefault("metadata.denied_permissions", []string{})

	v.SetDefault("deepgram.voice", "aura-2-thalia-en")
	v.SetDefault("deepgram.model", "nova-3")
	v.SetDefault("deepgram.language", "en-US")

	v.SetDefault("audio.capture", CaptureMiniaudio)
	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.assets_dir", "")
}

// Validate reports every problem at once, wrapped in [ErrInvalidConfig].
func (c *Config) Validate() error {
	var problems []error

	if c.Backend.URL == "" {
		problems = append(problems, errors.New("backend.url is required"))
	}
	if len(c.Assistant.WakePhrases) == 0 {
		problems = append(problems, errors.New("assistant.wake_phrases needs at least one phrase"))
	}
	if c.Assistant.EventQueueSize <= 0 {
		problems = append(problems, errors.New("assistant.event_queue_size must be positive"))
	}
	switch retry.BackoffKind(c.Retry.Backoff) {
	case retry.BackoffConstant, retry.BackoffExponential:
	default:
		problems = append(problems, fmt.Errorf("retry.backoff %q is not constant or exponential", c.Retry.Backoff))
	}
	switch c.Metadata.Position.Source {
	case PositionNone, PositionStatic, PositionIP:
	default:
		problems = append(problems, fmt.Errorf("metadata.position.source %q is not none, static or ip", c.Metadata.Position.Source))
	}
	for _, permission := range c.Metadata.DeniedPermissions {
		if _, err := parsePermission(permission); err != nil {
			problems = append(problems, err)
		}
	}
	switch c.Audio.Capture {
	case CaptureMiniaudio, CapturePortaudio:
	default:
		problems = append(problems, fmt.Errorf("audio.capture %q is not miniaudio or portaudio", c.Audio.Capture))
	}
	if c.Audio.SampleRate <= 0 {
		problems = append(problems, errors.New("audio.sample_rate must be positive"))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(problems...))
	}
	return nil
}

// RetryPolicy converts the retry section.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:   c.Retry.MaxAttempts,
		Delay:         c.Retry.Delay,
		Backoff:       retry.BackoffKind(c.Retry.Backoff),
		MaxDelay:      c.Retry.MaxDelay,
		JitterPercent: c.Retry.JitterPercent,
	}
}

// ContactBook returns the configured contacts keyed by display name.
func (c *Config) ContactBook() map[string]string {
	contacts := make(map[string]string, len(c.Metadata.Contacts))
	for _, contact := range c.Metadata.Contacts {
		if contact.Name != "" && contact.Phone != "" {
			contacts[contact.Name] = contact.Phone
		}
	}
	return contacts
}

func (c *Config) Denied() []platform.Permission {
	denied := make([]platform.Permission, 0, len(c.Metadata.DeniedPermissions))
	for _, name := range c.Metadata.DeniedPermissions {
		if permission, err := parsePermission(name); err == nil {
			denied = append(denied, permission)
		}
	}
	return denied
}

func parsePermission(name string) (platform.Permission, error) {
	switch permission := platform.Permission(strings.ToLower(name)); permission {
	case platform.PermissionNotifications,
		platform.PermissionMicrophone,
		platform.PermissionLocation,
		platform.PermissionContacts:
		return permission, nil
	}
	return "", fmt.Errorf("unknown permission %q", name)
}
