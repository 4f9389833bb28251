package internal

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/keepsake/internal/keepsake"
	"github.com/starford/keepsake/internal/lock"
	"github.com/starford/keepsake/internal/logging"
	"github.com/starford/keepsake/internal/playlist"
)

var codePattern = regexp.MustCompile(`^[0-9]{4}$`)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig   `yaml:"app" toml:"app"`
	Lock      LockConfig          `yaml:"lock" toml:"lock"`
	Playlist  PlaylistConfig      `yaml:"playlist" toml:"playlist"`
	Cache     CacheConfig         `yaml:"cache" toml:"cache"`
	Session   SessionConfig       `yaml:"session" toml:"session"`
	Keepsakes []keepsake.Keepsake `yaml:"keepsakes" toml:"keepsakes"`
	// KeepsakesDir, when set, replaces Keepsakes with the Markdown files in it.
	KeepsakesDir string `yaml:"keepsakes_dir" toml:"keepsakes_dir"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Lock.Validate(); err != nil {
		return fmt.Errorf("lock: %w", err)
	}
	if err := c.Playlist.Validate(); err != nil {
		return fmt.Errorf("playlist: %w", err)
	}
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	return validateKeepsakes(c.Keepsakes)
}

// LoadKeepsakes returns the configured keepsakes, reading KeepsakesDir when set.
func (c *Config) LoadKeepsakes() ([]keepsake.Keepsake, error) {
	if c.KeepsakesDir == "" {
		return c.Keepsakes, nil
	}
	items, err := keepsake.LoadDir(c.KeepsakesDir)
	if err != nil {
		return nil, err
	}
	if err := validateKeepsakes(items); err != nil {
		return nil, fmt.Errorf("%s: %w", c.KeepsakesDir, err)
	}
	return items, nil
}

func validateKeepsakes(items []keepsake.Keepsake) error {
	for i := range items {
		if err := validateKeepsake(&items[i]); err != nil {
			return fmt.Errorf("keepsakes[%d]: %w", i, err)
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level" toml:"log_level"`
	LogFormat string     `yaml:"log_format" toml:"log_format"`
	// LogFile is where the terminal UI writes its logs.
	LogFile string     `yaml:"log_file" toml:"log_file"`
	HTTP    HTTPConfig `yaml:"http" toml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.Required, validation.In(logging.FormatJSON, logging.FormatText, logging.FormatPretty, logging.FormatAuto)),
		validation.Field(&c.LogFile, validation.Required),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" toml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// LockConfig holds the combination lock settings.
type LockConfig struct {
	Code        string        `yaml:"code" toml:"code"`
	UnlockDelay time.Duration `yaml:"unlock_delay" toml:"unlock_delay"`
}

// Validate validates the lock configuration.
func (c *LockConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Code, validation.Required, validation.Match(codePattern).Error("must be exactly four digits")),
		validation.Field(&c.UnlockDelay, validation.Required, validation.Min(time.Millisecond)),
	)
}

// Target parses Code. It is only valid after Validate succeeds.
func (c *LockConfig) Target() lock.Combination {
	combo, _ := lock.ParseCode(c.Code)
	return combo
}

// PlaylistConfig holds where tracks come from and how long to wait for the
// tag reader.
type PlaylistConfig struct {
	MusicDir string `yaml:"music_dir" toml:"music_dir"`
	// BaseURL switches fetching to HTTP when set.
	BaseURL      string        `yaml:"base_url" toml:"base_url"`
	Sources      []string      `yaml:"sources" toml:"sources"`
	PollInterval time.Duration `yaml:"poll_interval" toml:"poll_interval"`
	MaxAttempts  int           `yaml:"max_attempts" toml:"max_attempts"`
	// FetchTimeout bounds each fetch; zero waits indefinitely.
	FetchTimeout time.Duration `yaml:"fetch_timeout" toml:"fetch_timeout"`
}

// Validate validates the playlist configuration.
func (c *PlaylistConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MusicDir, validation.When(c.BaseURL == "", validation.Required)),
		validation.Field(&c.PollInterval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.MaxAttempts, validation.Required, validation.Min(1)),
		validation.Field(&c.FetchTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Sources, validation.Each(validation.Required)),
	)
}

// CacheConfig holds the SQLite tag cache location. An empty path disables it.
type CacheConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Enabled reports whether the tag cache is configured.
func (c *CacheConfig) Enabled() bool { return c.Path != "" }

// SessionConfig holds per-visitor lock session settings.
type SessionConfig struct {
	TTL            time.Duration `yaml:"ttl" toml:"ttl"`
	SweepInterval  time.Duration `yaml:"sweep_interval" toml:"sweep_interval"`
	TurnsPerSecond float64       `yaml:"turns_per_second" toml:"turns_per_second"`
	Burst          int           `yaml:"burst" toml:"burst"`

	MaxSessions      int     `yaml:"max_sessions" toml:"max_sessions"`
	CreatesPerSecond float64 `yaml:"creates_per_second" toml:"creates_per_second"`
	CreateBurst      int     `yaml:"create_burst" toml:"create_burst"`
}

// Validate validates the session configuration.
func (c *SessionConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.SweepInterval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.TurnsPerSecond, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&c.Burst, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxSessions, validation.Required, validation.Min(1)),
		validation.Field(&c.CreatesPerSecond, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&c.CreateBurst, validation.Required, validation.Min(1)),
	)
}

func validateKeepsake(k *keepsake.Keepsake) error {
	kinds := make([]any, len(keepsake.Kinds))
	for i, kind := range keepsake.Kinds {
		kinds[i] = kind
	}
	return validation.ValidateStruct(k,
		validation.Field(&k.ID, validation.Required),
		validation.Field(&k.Kind, validation.Required, validation.In(kinds...)),
		validation.Field(&k.Title, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: logging.FormatJSON,
			LogFile:   "./keepsake.log",
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Lock: LockConfig{
			Code:        "1023",
			UnlockDelay: lock.DefaultDelay,
		},
		Playlist: PlaylistConfig{
			MusicDir:     "./music",
			Sources:      []string{"/cardigan.mp3"},
			PollInterval: playlist.DefaultPollInterval,
			MaxAttempts:  playlist.DefaultMaxAttempts,
		},
		Cache: CacheConfig{
			Path: "./keepsake.db",
		},
		Session: SessionConfig{
			TTL:            30 * time.Minute,
			SweepInterval:  time.Minute,
			TurnsPerSecond: 20,
			Burst:          40,

			MaxSessions:      10000,
			CreatesPerSecond: 5,
			CreateBurst:      50,
		},
		Keepsakes: keepsake.Defaults(),
	}
}
