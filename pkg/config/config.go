package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ArrayFlags collects a repeated float flag.
type ArrayFlags []float64

func (a *ArrayFlags) String() string {
	parts := make([]string, len(*a))
	for i, v := range *a {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func (a *ArrayFlags) Set(value string) error {
	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return err
	}
	*a = append(*a, val)
	return nil
}

// OptionalFloat is a float flag that stays nil unless given.
type OptionalFloat struct {
	Value *float64
}

func (o *OptionalFloat) String() string {
	if o.Value == nil {
		return ""
	}
	return strconv.FormatFloat(*o.Value, 'g', -1, 64)
}

func (o *OptionalFloat) Set(value string) error {
	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return err
	}
	o.Value = &val
	return nil
}

// Config holds the settings of a command line run.
type Config struct {
	File         string
	LoadFraction bool

	Category         string
	Cooler           string
	LoadLoss         OptionalFloat
	NoLoadLoss       OptionalFloat
	NomLoadSecSide   float64
	AmbTempSurcharge OptionalFloat

	TopOilTempRise     OptionalFloat
	WindingOilGradient OptionalFloat
	HotSpotFactor      OptionalFloat
	TimeConstOil       OptionalFloat
	TimeConstWindings  OptionalFloat
	EndTempReduction   OptionalFloat

	InitialTopOil OptionalFloat
	InitialLoad   OptionalFloat
	Paper         string

	Calibrate          bool
	CalibrationAmbient float64
	Limit              float64
	HMin               float64
	HMax               float64
	Method             string

	Sweep   ArrayFlags
	Threads uint

	ImgSave bool
	ImgPath string
	ImgDPI  uint
	ImgSize uint

	Quiet           bool
	Debug           bool
	EnableProfiling bool
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port            string
	WorkerCount     int
	WebhookURL      string
	EnableMetrics   bool
	EnableProfiling bool
	ProfilingPort   string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	TimingFile      string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Category:           "power",
		Cooler:             "ONAF",
		CalibrationAmbient: 20,
		Limit:              98,
		HMin:               1.1,
		HMax:               1.3,
		Method:             "bisection",
		Threads:            5,
		ImgPath:            "profile.svg",
		ImgDPI:             96,
		ImgSize:            8,
	}
}

// DefaultServerConfig returns server configuration with sensible defaults
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            "8080",
		WorkerCount:     5,
		WebhookURL:      "http://webplot:3001/webhook",
		EnableMetrics:   true,
		EnableProfiling: false,
		ProfilingPort:   "6060",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		TimingFile:      "concurrent_timing_results.csv",
	}
}

// Load reads an optional .env file and overrides the server defaults from the environment.
func Load() *ServerConfig {
	_ = godotenv.Load()

	def := DefaultServerConfig()
	return &ServerConfig{
		Port:            getEnv("THERMAL_PORT", def.Port),
		WorkerCount:     getEnvAsInt("THERMAL_WORKERS", def.WorkerCount),
		WebhookURL:      getEnv("THERMAL_WEBHOOK_URL", def.WebhookURL),
		EnableMetrics:   getEnvAsBool("THERMAL_ENABLE_METRICS", def.EnableMetrics),
		EnableProfiling: getEnvAsBool("THERMAL_ENABLE_PROFILING", def.EnableProfiling),
		ProfilingPort:   getEnv("THERMAL_PROFILING_PORT", def.ProfilingPort),
		ReadTimeout:     getEnvAsDuration("THERMAL_READ_TIMEOUT", def.ReadTimeout),
		WriteTimeout:    getEnvAsDuration("THERMAL_WRITE_TIMEOUT", def.WriteTimeout),
		TimingFile:      getEnv("THERMAL_TIMING_FILE", def.TimingFile),
	}
}

// NewLogger builds the process logger. Debug selects the development
// encoder, quiet raises the level to warnings.
func NewLogger(debug, quiet bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	if quiet {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	return cfg.Build()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
