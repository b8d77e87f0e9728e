package providers

import (
	"fmt"
	"handsoff/internal/structures"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("alert.debounceWindow", 350*time.Millisecond)
	v.SetDefault("alert.confidenceThreshold", 0.8)
	v.SetDefault("sync.saveTimeout", 10*time.Second)
	v.SetDefault("sync.probeInterval", 15*time.Second)
	v.SetDefault("sync.fetchInterval", time.Minute)
	v.SetDefault("database.authStatus", "available")
	v.SetDefault("database.busyRetryAfter", 2*time.Second)
	v.SetDefault("database.pageSize", 200)
	v.SetDefault("cache.ttl", time.Second)
}

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")
	setConfigDefaults(v)

	v.BindEnv("logger.level", "HANDSOFF_LOG_LEVEL")
	v.BindEnv("alert.debounceWindow", "HANDSOFF_DEBOUNCE_WINDOW")
	v.BindEnv("alert.confidenceThreshold", "HANDSOFF_CONFIDENCE_THRESHOLD")
	v.BindEnv("sync.deviceName", "HANDSOFF_DEVICE_NAME")
	v.BindEnv("database.dsn", "HANDSOFF_DATABASE_DSN")
	v.BindEnv("cache.enabled", "HANDSOFF_CACHE_ENABLED")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "HandsOff"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
