package app

import (
	"github.com/asaskevich/EventBus"
	"gorm.io/gorm"

	"github.com/urbanthreads/storefront/config"
)

// DBProvider provides access to the database
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides access to the application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SettingsProvider provides access to runtime settings stored in the database
type SettingsProvider interface {
	GetSettingsStringValue(category, key string) string
	GetSettingsInt64Value(category, key string) int64
	GetSettingsBoolValue(category, key string) bool
	SaveSettings(settings map[string]interface{}) error
	ConfigMgr() *ConfigManager
}

// BusProvider provides access to the in-process event bus
type BusProvider interface {
	Bus() EventBus.Bus
}

// AppContext combines the provider interfaces that request handlers need.
type AppContext interface {
	DBProvider
	ConfigProvider
	SettingsProvider
	BusProvider
	StorageProvider
}
