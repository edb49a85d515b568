package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	AppName               = "tododeck"
	DefaultConfigFileName = "config.toml"
	DefaultCacheName      = "todo.db"
	DefaultLogName        = "todo.log"
	EnvPrefix             = "TODO"
	EnvConfigPath         = "TODO_CONFIG"
)

type Keymap struct {
	Quit     string `toml:"quit"`
	Add      string `toml:"add"`
	Up       string `toml:"up"`
	Down     string `toml:"down"`
	Toggle   string `toml:"toggle"`
	Delete   string `toml:"delete"`
	Detail   string `toml:"detail"`
	Confirm  string `toml:"confirm"`
	Cancel   string `toml:"cancel"`
	Edit     string `toml:"edit"`
	Sort     string `toml:"sort"`
	NextTab  string `toml:"next_tab"`
	PrevTab  string `toml:"prev_tab"`
	LoadMore string `toml:"load_more"`
}

type Remote struct {
	BaseURL    string   `toml:"base_url" envconfig:"BASE_URL" validate:"required,url"`
	PageParam  string   `toml:"page_param" envconfig:"PAGE_PARAM" validate:"required"`
	LimitParam string   `toml:"limit_param" envconfig:"LIMIT_PARAM" validate:"required"`
	PageSize   int      `toml:"page_size" envconfig:"PAGE_SIZE" validate:"gte=1,lte=200"`
	Timeout    Duration `toml:"timeout" envconfig:"TIMEOUT"`
}

type UI struct {
	PrefetchThreshold int `toml:"prefetch_threshold" envconfig:"PREFETCH_THRESHOLD" validate:"gte=0"`
	ListHeight        int `toml:"list_height" envconfig:"LIST_HEIGHT" validate:"gte=1"`
}

type Config struct {
	CachePath     string `toml:"cache_path" envconfig:"CACHE_PATH"`
	LogPath       string `toml:"log_path" envconfig:"LOG_PATH"`
	LogLevel      string `toml:"log_level" envconfig:"LOG_LEVEL" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	DefaultFilter string `toml:"default_filter" envconfig:"DEFAULT_FILTER" validate:"oneof=all active done"`
	DefaultSort   string `toml:"default_sort" envconfig:"DEFAULT_SORT" validate:"oneof=asc desc"`
	Remote        Remote `toml:"remote" envconfig:"REMOTE"`
	UI            UI     `toml:"ui" envconfig:"UI"`
	Keys          Keymap `toml:"keys" ignored:"true"`
}

// Duration is a time.Duration written as a string ("10s") in TOML and env.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// ResolveConfigPath returns $TODO_CONFIG, or config.toml under the user config dir.
func ResolveConfigPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(dir, AppName, DefaultConfigFileName)
}

// LoadOrCreate reads the config at path, writing defaults there first when
// the file does not exist. Environment overrides are applied after the file
// and the result is validated.
func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig(filepath.Dir(path))
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("env overrides: %w", err)
	}
	fillKeyDefaults(&cfg.Keys)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Remote.Timeout.Duration <= 0 {
		return fmt.Errorf("invalid config: Config.Remote.Timeout must be positive (value %s)", cfg.Remote.Timeout)
	}
	return nil
}

func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig(dir string) Config {
	return Config{
		CachePath:     filepath.Join(dir, DefaultCacheName),
		LogPath:       filepath.Join(dir, DefaultLogName),
		LogLevel:      "info",
		DefaultFilter: "all",
		DefaultSort:   "asc",
		Remote: Remote{
			BaseURL:    "https://jsonplaceholder.typicode.com/todos",
			PageParam:  "_page",
			LimitParam: "_limit",
			PageSize:   10,
			Timeout:    Duration{10 * time.Second},
		},
		UI: UI{
			PrefetchThreshold: 2,
			ListHeight:        12,
		},
		Keys: defaultKeymap(),
	}
}

func defaultKeymap() Keymap {
	return Keymap{
		Quit:     "q",
		Add:      "a",
		Up:       "k",
		Down:     "j",
		Toggle:   " ",
		Delete:   "d",
		Detail:   "i",
		Confirm:  "enter",
		Cancel:   "esc",
		Edit:     "e",
		Sort:     "s",
		NextTab:  "tab",
		PrevTab:  "shift+tab",
		LoadMore: "m",
	}
}

// fillKeyDefaults restores bindings left blank in an older config file.
func fillKeyDefaults(k *Keymap) {
	d := defaultKeymap()
	pairs := []struct {
		dst *string
		def string
	}{
		{&k.Quit, d.Quit}, {&k.Add, d.Add}, {&k.Up, d.Up}, {&k.Down, d.Down},
		{&k.Toggle, d.Toggle}, {&k.Delete, d.Delete}, {&k.Detail, d.Detail},
		{&k.Confirm, d.Confirm}, {&k.Cancel, d.Cancel}, {&k.Edit, d.Edit},
		{&k.Sort, d.Sort}, {&k.NextTab, d.NextTab}, {&k.PrevTab, d.PrevTab},
		{&k.LoadMore, d.LoadMore},
	}
	for _, p := range pairs {
		if *p.dst == "" {
			*p.dst = p.def
		}
	}
}
