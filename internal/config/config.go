package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "portalview.cfg.json"

// CullerConfig holds plane derivation and portal traversal settings.
type CullerConfig struct {
	OuterClip       bool    `json:"outerClip" mapstructure:"outerClip"`
	OuterMargin     float32 `json:"outerMargin" mapstructure:"outerMargin"`
	PortalNarrowing bool    `json:"portalNarrowing" mapstructure:"portalNarrowing"`
}

// CameraConfig holds the frustum a camera gets when its description has none.
type CameraConfig struct {
	Handedness string  `json:"handedness" mapstructure:"handedness"`
	FOV        float32 `json:"fov" mapstructure:"fov"` // degrees
	NearZ      float32 `json:"nearZ" mapstructure:"nearZ"`
	FarZ       float32 `json:"farZ" mapstructure:"farZ"`
	Aspect     float32 `json:"aspect" mapstructure:"aspect"`
	// SyncAspect keeps every camera's aspect at Aspect, the viewport ratio.
	SyncAspect bool `json:"syncAspect" mapstructure:"syncAspect"`
}

// HydrateConfig holds the hydrate worker settings.
type HydrateConfig struct {
	BufferSize int           `json:"bufferSize" mapstructure:"bufferSize"`
	Timeout    time.Duration `json:"timeout" mapstructure:"timeout"`
}

// MemoryConfig holds in-memory storage backend settings
type MemoryConfig struct {
	SnapshotPath string `json:"snapshotPath" mapstructure:"snapshotPath"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// StorageConfig selects and configures the zone content store.
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// DBConfig holds the Postgres connection settings.
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled        bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName    string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout   time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	MetricInterval time.Duration `json:"metricInterval" mapstructure:"metricInterval"`
	Endpoint       string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `json:"insecure" mapstructure:"insecure"`
}

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")
	viper.SetDefault("logToFile", false)
	viper.SetDefault("logLevels", map[string]string{})

	viper.SetDefault("culler.outerClip", false)
	viper.SetDefault("culler.outerMargin", 2.0)
	viper.SetDefault("culler.portalNarrowing", false)

	viper.SetDefault("camera.handedness", "left")
	viper.SetDefault("camera.fov", 60.0)
	viper.SetDefault("camera.nearZ", 0.1)
	viper.SetDefault("camera.farZ", 1000.0)
	viper.SetDefault("camera.aspect", 16.0/9.0)
	viper.SetDefault("camera.syncAspect", true)

	viper.SetDefault("hydrate.bufferSize", 64)
	viper.SetDefault("hydrate.timeout", "5s")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.snapshotPath", "")
	viper.SetDefault("storage.sqlite.path", "./portalview.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "0s")
	viper.SetDefault("storage.sqlite.dumpPath", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "portalview")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "portalview")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.metricInterval", "10s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetLogLevels returns the per-component level overrides, e.g. {"scene": "debug"}.
func GetLogLevels() map[string]string {
	return viper.GetStringMapString("logLevels")
}

// GetCullerConfig returns the culler settings.
func GetCullerConfig() CullerConfig {
	return CullerConfig{
		OuterClip:       viper.GetBool("culler.outerClip"),
		OuterMargin:     float32(viper.GetFloat64("culler.outerMargin")),
		PortalNarrowing: viper.GetBool("culler.portalNarrowing"),
	}
}

// GetCameraConfig returns the default camera frustum.
func GetCameraConfig() CameraConfig {
	return CameraConfig{
		Handedness: viper.GetString("camera.handedness"),
		FOV:        float32(viper.GetFloat64("camera.fov")),
		NearZ:      float32(viper.GetFloat64("camera.nearZ")),
		FarZ:       float32(viper.GetFloat64("camera.farZ")),
		Aspect:     float32(viper.GetFloat64("camera.aspect")),
		SyncAspect: viper.GetBool("camera.syncAspect"),
	}
}

// GetHydrateConfig returns the hydrate worker settings.
func GetHydrateConfig() HydrateConfig {
	return HydrateConfig{
		BufferSize: viper.GetInt("hydrate.bufferSize"),
		Timeout:    viper.GetDuration("hydrate.timeout"),
	}
}

// GetStorageConfig returns the store selection.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			SnapshotPath: viper.GetString("storage.memory.snapshotPath"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
	}
}

// GetDBConfig returns the Postgres connection settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:        viper.GetBool("otel.enabled"),
		ServiceName:    viper.GetString("otel.serviceName"),
		BatchTimeout:   viper.GetDuration("otel.batchTimeout"),
		MetricInterval: viper.GetDuration("otel.metricInterval"),
		Endpoint:       viper.GetString("otel.endpoint"),
		Insecure:       viper.GetBool("otel.insecure"),
	}
}
