package structures

import (
	"net/http"
	"time"
)

type CliFlags struct {
	ConfigPath string
	DebugMode  bool
}

type Route struct {
	Method  string
	Url     string
	Handler http.Handler
}

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type Persistence struct {
	FilePath     string        `yaml:"filePath" validate:"required|unixPath"`
	SaveInterval time.Duration `yaml:"saveInterval" validate:"required|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type AlertConfig struct {
	DebounceWindow      time.Duration `yaml:"debounceWindow" validate:"required|min:1"`
	ConfidenceThreshold float64       `yaml:"confidenceThreshold"`
}

type SyncConfig struct {
	DeviceName    string        `yaml:"deviceName" validate:"required"`
	AppVersion    string        `yaml:"appVersion" validate:"required"`
	SaveTimeout   time.Duration `yaml:"saveTimeout" validate:"required|min:1"`
	ProbeInterval time.Duration `yaml:"probeInterval" validate:"required|min:1"`
	FetchInterval time.Duration `yaml:"fetchInterval" validate:"required|min:1"`
}

type DatabaseConfig struct {
	DSN            string        `yaml:"dsn" validate:"required"`
	LogSQL         bool          `yaml:"logSQL"`
	AuthStatus     string        `yaml:"authStatus" validate:"in:available,signedOut,restricted"`
	BusyRetryAfter time.Duration `yaml:"busyRetryAfter"`
	PageSize       int           `yaml:"pageSize"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	Alert       AlertConfig    `yaml:"alert"`
	Sync        SyncConfig     `yaml:"sync"`
	Database    DatabaseConfig `yaml:"database"`
	WebServer   Server         `yaml:"webServer"`
	Persistence Persistence    `yaml:"persistence"`
	Logger      LoggerConfig   `yaml:"logger"`
	Cache       CacheConfig    `yaml:"cache"`
	Metrics     MetricsConfig  `yaml:"metrics"`
}
