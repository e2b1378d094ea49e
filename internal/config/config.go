// Package config loads and validates the application configuration from
// defaults, command-line flags and environment variables (in increasing
// priority), optionally seeded from a `.env` file.
package config

import (
	"flag"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the service.
type Config struct {
	// RunAddr is the address and port the HTTP server listens on.
	RunAddr string `env:"SERVER_ADDRESS" validate:"hostname_port"`

	// PublicBaseURL is the externally visible origin used when building
	// image references for files served from the uploads directory.
	PublicBaseURL string `env:"BASE_URL" validate:"url"`

	LogLevel string `env:"LOG_LEVEL" validate:"loglevel"`

	// DBFileName selects the file-backed snapshot store when non-empty.
	DBFileName string `env:"FILE_STORAGE_PATH" validate:"filepath"`

	// DatabaseDSN selects the PostgreSQL store when non-empty.
	DatabaseDSN         string        `env:"DATABASE_DSN"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT"`
	MigrationsDir       string        `env:"MIGRATIONS_DIR"`

	// UploadsDir selects the disk upload adapter when non-empty;
	// otherwise placeholder image references are generated.
	UploadsDir string `env:"UPLOADS_DIR" validate:"filepath"`

	// PlaceholderImageBase is the external placeholder-image service used
	// by the simulated upload adapter.
	PlaceholderImageBase string `env:"PLACEHOLDER_IMAGE_BASE" validate:"url"`

	// TokenSigningSecretKey is the base64url-encoded HMAC key for bearer tokens.
	TokenSigningSecretKey string        `env:"TOKEN_SIGNING_SECRET_KEY"`
	TokenTTL              time.Duration `env:"TOKEN_TTL"`

	// MaxImagesPerProduct caps the number of image files accepted per request.
	MaxImagesPerProduct int `env:"MAX_IMAGES_PER_PRODUCT"`

	// TrustedSubnet is a CIDR allowed to call the internal stats endpoint.
	TrustedSubnet string `env:"TRUSTED_SUBNET"`
}

var defaultConfig = Config{
	RunAddr:               ":8080",
	PublicBaseURL:         "http://localhost:8080",
	LogLevel:              "info",
	DBFileName:            "",
	DatabaseDSN:           "",
	DBConnectionTimeout:   10 * time.Second,
	MigrationsDir:         "migrations",
	UploadsDir:            "",
	PlaceholderImageBase:  "https://picsum.photos",
	TokenSigningSecretKey: "eW91cl9qd3Rfc2VjcmV0", // change for production
	TokenTTL:              2 * time.Hour,
	MaxImagesPerProduct:   5,
	TrustedSubnet:         "",
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug":   true,
		"info":    true,
		"warning": true,
		"error":   true,
		"fatal":   true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

// InitOption customizes configuration loading.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing skips command-line flag parsing. Intended for
// tests, where the test binary owns the flag set.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New loads, merges and validates the configuration.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := defaultConfig

	if !options.disableFlagsParsing {
		flag.StringVar(&values.RunAddr, "a", values.RunAddr, "address and port to run server")
		flag.StringVar(&values.PublicBaseURL, "b", values.PublicBaseURL, "public base URL used in image references")
		flag.StringVar(&values.LogLevel, "l", values.LogLevel, "logger level")
		flag.StringVar(&values.DBFileName, "f", values.DBFileName, "JSON snapshot file name with database")
		flag.StringVar(&values.DatabaseDSN, "d", values.DatabaseDSN, "a string with the database connection details")
		flag.StringVar(&values.UploadsDir, "u", values.UploadsDir, "directory for uploaded image files")
		flag.StringVar(&values.TrustedSubnet, "t", values.TrustedSubnet, "CIDR of the subnet trusted to query internal stats")
		flag.Parse()
	}

	var valuesFromEnv Config
	if err := env.Parse(&valuesFromEnv); err != nil {
		return nil, err
	}

	if valuesFromEnv.RunAddr != "" {
		values.RunAddr = valuesFromEnv.RunAddr
	}

	if valuesFromEnv.PublicBaseURL != "" {
		values.PublicBaseURL = valuesFromEnv.PublicBaseURL
	}

	if valuesFromEnv.LogLevel != "" {
		values.LogLevel = valuesFromEnv.LogLevel
	}

	if valuesFromEnv.DBFileName != "" {
		values.DBFileName = valuesFromEnv.DBFileName
	}

	if valuesFromEnv.DatabaseDSN != "" {
		values.DatabaseDSN = valuesFromEnv.DatabaseDSN
	}

	if valuesFromEnv.DBConnectionTimeout != 0 {
		values.DBConnectionTimeout = valuesFromEnv.DBConnectionTimeout
	}

	if valuesFromEnv.MigrationsDir != "" {
		values.MigrationsDir = valuesFromEnv.MigrationsDir
	}

	if valuesFromEnv.UploadsDir != "" {
		values.UploadsDir = valuesFromEnv.UploadsDir
	}

	if valuesFromEnv.PlaceholderImageBase != "" {
		values.PlaceholderImageBase = valuesFromEnv.PlaceholderImageBase
	}

	if valuesFromEnv.TokenSigningSecretKey != "" {
		values.TokenSigningSecretKey = valuesFromEnv.TokenSigningSecretKey
	}

	if valuesFromEnv.TokenTTL != 0 {
		values.TokenTTL = valuesFromEnv.TokenTTL
	}

	if valuesFromEnv.MaxImagesPerProduct != 0 {
		values.MaxImagesPerProduct = valuesFromEnv.MaxImagesPerProduct
	}

	if valuesFromEnv.TrustedSubnet != "" {
		values.TrustedSubnet = valuesFromEnv.TrustedSubnet
	}

	if err := values.validate(); err != nil {
		return nil, err
	}

	return &values, nil
}
