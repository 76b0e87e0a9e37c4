package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"dockout/infrastructure/sap"
	"dockout/infrastructure/teg"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Addr            string        `validate:"required"`
	SQLitePath      string        `validate:"required"`
	DefaultsFile    string        `validate:"omitempty,file"`
	RedisAddr       string        `validate:"omitempty,hostname_port"`
	LogLevel        string        `validate:"oneof=debug info warn error"`
	LogFormat       string        `validate:"oneof=text json"`
	UpstreamTimeout time.Duration `validate:"gt=0"`
	SAP             sap.Config
	TEG             teg.Config
}

var validate = validator.New()

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()

	timeout, err := durationEnv("UPSTREAM_TIMEOUT", 60*time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Addr:            getenv("APP_ADDR", ":8080"),
		SQLitePath:      getenv("SQLITE_PATH", "dockout.db"),
		DefaultsFile:    os.Getenv("DEFAULTS_FILE"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		LogLevel:        strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(getenv("LOG_FORMAT", "text")),
		UpstreamTimeout: timeout,
		SAP: sap.Config{
			StockMoveURL:     os.Getenv("SAP_ODATA_URL"),
			PickingURL:       os.Getenv("SAP_PICKING_URL"),
			LoadedDetailsURL: os.Getenv("SAP_LOADED_DETAILS_URL"),
			Username:         os.Getenv("SAP_USERNAME"),
			Password:         os.Getenv("SAP_PASSWORD"),
			Client:           getenv("SAP_CLIENT", "300"),
		},
		TEG: teg.Config{
			AuthURL:                os.Getenv("TEG_AUTH_URL"),
			UpdateURL:              os.Getenv("TEG_UPDATE_URL"),
			AdditionalMaterialsURL: os.Getenv("TEG_ADDITIONAL_MATERIALS_URL"),
			Username:               os.Getenv("TEG_USERNAME"),
			Password:               os.Getenv("TEG_PASSWORD"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the struct tags of cfg and its upstream sections.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			fields := make([]string, 0, len(verrs))
			for _, ve := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", ve.Namespace(), ve.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// durationEnv accepts Go durations ("90s") or plain seconds ("90").
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
