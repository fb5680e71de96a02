// Package config loads runtime settings from defaults, a YAML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/spreadcard/internal/domain"
	"github.com/conorfennell/spreadcard/internal/generate"
	"github.com/conorfennell/spreadcard/internal/logger"
	"github.com/conorfennell/spreadcard/internal/storage"
)

const (
	// EnvPrefix prefixes every environment override. Nested keys use a
	// double underscore: SPREADCARD_OPENAI__API_KEY.
	EnvPrefix = "SPREADCARD_"
	// DefaultFile is read when no --config flag is given, if it exists.
	DefaultFile = "spreadcard.yaml"
)

type Config struct {
	Database Database      `koanf:"database"`
	Log      logger.Config `koanf:"log"`
	OpenAI   OpenAI        `koanf:"openai"`
	Review   Review        `koanf:"review"`
	Server   Server        `koanf:"server"`
	Sources  Sources       `koanf:"sources"`
}

type Database struct {
	Path string `koanf:"path" validate:"required"`
}

type OpenAI struct {
	APIKey            string        `koanf:"api_key"`
	Model             string        `koanf:"model" validate:"required"`
	BaseURL           string        `koanf:"base_url" validate:"required,url"`
	Timeout           time.Duration `koanf:"timeout" validate:"min=1s"`
	RequestsPerMinute int           `koanf:"requests_per_minute" validate:"min=0"`
}

type Review struct {
	NoteType          string `koanf:"note_type" validate:"required"`
	SpreadDeleteGrade string `koanf:"spread_delete_grade" validate:"oneof=hard good easy"`
	MobileGrade       string `koanf:"mobile_grade" validate:"oneof=again hard good easy"`
}

type Server struct {
	Addr string `koanf:"addr" validate:"required"`
}

type Sources struct {
	ReposDir string `koanf:"repos_dir" validate:"required"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Database: Database{Path: "spreadcard.db"},
		Log:      logger.Config{Level: "info", Format: "console"},
		OpenAI: OpenAI{
			Model:   generate.DefaultModel,
			BaseURL: generate.DefaultBaseURL,
			Timeout: generate.DefaultTimeout,
		},
		Review: Review{
			NoteType:          storage.DefaultNoteType,
			SpreadDeleteGrade: "hard",
			MobileGrade:       "good",
		},
		Server:  Server{Addr: ":8080"},
		Sources: Sources{ReposDir: "repos"},
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"db":         "database.path",
	"log-level":  "log.level",
	"log-format": "log.format",
	"addr":       "server.addr",
	"model":      "openai.model",
}

// Load builds the configuration. path names a YAML file; when empty,
// DefaultFile is used if present. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, f.Value.String()
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SpreadDeleteGradeValue is the lowest answer grade that deletes a spread note.
func (r Review) SpreadDeleteGradeValue() domain.Grade {
	return mustGrade(r.SpreadDeleteGrade, domain.GradeHard)
}

// MobileGradeValue is the grade applied to cards reviewed on mobile.
func (r Review) MobileGradeValue() domain.Grade {
	return mustGrade(r.MobileGrade, domain.GradeGood)
}

func mustGrade(s string, fallback domain.Grade) domain.Grade {
	g, err := domain.ParseGrade(s)
	if err != nil {
		return fallback
	}
	return g
}
