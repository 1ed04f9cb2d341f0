// Package config provides Viper-based configuration management for the
// catalog tools.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config represents the complete configuration.
type Config struct {
	Data      DataConfig      `mapstructure:"data"`
	Selection SelectionConfig `mapstructure:"selection"`
	Output    OutputConfig    `mapstructure:"output"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Index     IndexConfig     `mapstructure:"index"`
}

// DataConfig locates the source files.
type DataConfig struct {
	BooksDir       string `mapstructure:"books_dir" validate:"required"`
	LibrariesDir   string `mapstructure:"libraries_dir" validate:"required"`
	HolidayFile    string `mapstructure:"holiday_file"`
	BookPattern    string `mapstructure:"book_pattern" validate:"required,regexp"`
	LibraryPattern string `mapstructure:"library_pattern" validate:"required,regexp"`
}

// SelectionConfig holds the non-repeat policy constants.
type SelectionConfig struct {
	Window    int    `mapstructure:"window" validate:"min=1"`
	Threshold int    `mapstructure:"threshold" validate:"gtfield=Window"`
	Seed      uint64 `mapstructure:"seed"`
}

// OutputConfig controls where catalogs go and how the terminal looks.
type OutputConfig struct {
	Path   string `mapstructure:"path" validate:"required"`
	Colors bool   `mapstructure:"colors"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Pretty bool   `mapstructure:"pretty"`
}

// IndexConfig selects the SQLite book index location.
type IndexConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".catalog")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/library-catalog")
	}

	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// SetDefaults configures default values.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data.books_dir", "files")
	v.SetDefault("data.libraries_dir", "library")
	v.SetDefault("data.holiday_file", "holiday.xml")
	v.SetDefault("data.book_pattern", `bk\d+\.xml$`)
	v.SetDefault("data.library_pattern", `lib\d+\.xml$`)

	v.SetDefault("selection.window", 4)
	v.SetDefault("selection.threshold", 6)
	v.SetDefault("selection.seed", 0)

	v.SetDefault("output.path", "catalog.xml")
	v.SetDefault("output.colors", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", true)

	v.SetDefault("index.path", ":memory:")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("regexp", func(fl validator.FieldLevel) bool {
		_, err := regexp.Compile(fl.Field().String())
		return err == nil
	})
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("mapstructure")
	})
	return validate
}

// Validate checks the configuration for errors.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describe(fe))
		}
		return errors.New(strings.Join(msgs, "; "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Namespace())
	case "regexp":
		return fmt.Sprintf("%s is not a valid regular expression: %v", fe.Namespace(), fe.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Namespace(), fe.Param())
	case "gtfield":
		return fmt.Sprintf("%s must be greater than %s", fe.Namespace(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Namespace(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Namespace(), fe.Tag())
	}
}
