package app

import (
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/urbanthreads/storefront/internal/checkout"
	"github.com/urbanthreads/storefront/internal/domain"
	"github.com/urbanthreads/storefront/internal/order"
)

const settingsCacheTTL = 30 * time.Second

// ConfigManager reads runtime settings from sys_config with a short-lived
// cache, so admin edits apply within seconds without restart.
type ConfigManager struct {
	db       *gorm.DB
	mu       sync.Mutex
	cache    map[string]string
	cachedAt time.Time
}

func NewConfigManager(db *gorm.DB) *ConfigManager {
	return &ConfigManager{db: db}
}

func (cm *ConfigManager) snapshot() map[string]string {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cache != nil && time.Since(cm.cachedAt) < settingsCacheTTL {
		return cm.cache
	}
	var rows []domain.SysConfig
	if err := cm.db.Find(&rows).Error; err != nil {
		zap.S().Errorf("load settings failed: %v", err)
		if cm.cache != nil {
			return cm.cache
		}
		return map[string]string{}
	}
	snap := make(map[string]string, len(rows))
	for _, row := range rows {
		snap[row.Type+"."+row.Name] = row.Value
	}
	cm.cache = snap
	cm.cachedAt = time.Now()
	return snap
}

// Invalidate drops the cache; the next read hits the database.
func (cm *ConfigManager) Invalidate() {
	cm.mu.Lock()
	cm.cache = nil
	cm.mu.Unlock()
}

func (cm *ConfigManager) GetString(category, key string) string {
	return cm.snapshot()[category+"."+key]
}

func (cm *ConfigManager) GetInt64(category, key string) int64 {
	return cast.ToInt64(cm.GetString(category, key))
}

func (cm *ConfigManager) GetBool(category, key string) bool {
	return cast.ToBool(cm.GetString(category, key))
}

func (cm *ConfigManager) GetDecimal(category, key string) decimal.Decimal {
	d, err := decimal.NewFromString(cm.GetString(category, key))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Save upserts settings given as "category.name" keys and invalidates the
// cache.
func (cm *ConfigManager) Save(settings map[string]interface{}) error {
	for full, value := range settings {
		category, name, ok := strings.Cut(full, ".")
		if !ok {
			return errors.Errorf("bad setting key %q", full)
		}
		strval := cast.ToString(value)
		var row domain.SysConfig
		err := cm.db.Where("type = ? AND name = ?", category, name).First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = domain.SysConfig{Type: category, Name: name, Value: strval}
			if err := cm.db.Create(&row).Error; err != nil {
				return errors.Wrap(err, "save setting")
			}
		case err != nil:
			return errors.Wrap(err, "save setting")
		default:
			if err := cm.db.Model(&row).Update("value", strval).Error; err != nil {
				return errors.Wrap(err, "save setting")
			}
		}
	}
	cm.Invalidate()
	return nil
}

// StoreSettings is the typed view of the store.* setting group.
type StoreSettings struct {
	TaxRate          float64 `mapstructure:"tax_rate"`
	HomeState        string  `mapstructure:"home_state"`
	HomeDeliveryFee  int64   `mapstructure:"home_delivery_fee"`
	OtherDeliveryFee int64   `mapstructure:"other_delivery_fee"`
	PickupAddress    string  `mapstructure:"pickup_address"`
}

func (cm *ConfigManager) storeSettings() StoreSettings {
	raw := map[string]string{}
	for full, v := range cm.snapshot() {
		if name, ok := strings.CutPrefix(full, "store."); ok {
			raw[name] = v
		}
	}
	var out StoreSettings
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err == nil {
		if err := dec.Decode(raw); err != nil {
			zap.S().Warnf("decode store settings: %v", err)
		}
	}
	return out
}

// Rates builds the checkout pricing rules from the current settings,
// falling back to the built-in defaults for anything unset.
func (cm *ConfigManager) Rates() checkout.Rates {
	rates := checkout.DefaultRates()
	s := cm.storeSettings()
	if s.TaxRate > 0 {
		rates.TaxRate = decimal.NewFromFloat(s.TaxRate)
	}
	if s.HomeState != "" {
		rates.HomeState = s.HomeState
	}
	if s.HomeDeliveryFee > 0 {
		rates.HomeDeliveryFee = decimal.NewFromInt(s.HomeDeliveryFee)
	}
	if s.OtherDeliveryFee > 0 {
		rates.OtherDeliveryFee = decimal.NewFromInt(s.OtherDeliveryFee)
	}
	if s.PickupAddress != "" {
		rates.PickupAddress = s.PickupAddress
	}
	return rates
}

// SubmitOptions builds order submission options from the order.* settings.
func (cm *ConfigManager) SubmitOptions() order.Options {
	opts := order.DefaultOptions()
	if v := cm.GetString("order", "atomic"); v != "" {
		opts.Atomic = cast.ToBool(v)
	}
	if n := cm.GetInt64("order", "max_attempts"); n > 0 {
		opts.MaxAttempts = int(n)
	}
	return opts
}

// StrictConfirm reports whether checkout confirmation should block on a
// failed order submission instead of advancing with a warning.
func (cm *ConfigManager) StrictConfirm() bool {
	return cm.GetBool("checkout", "strict_confirm")
}

// MaxUploadBytes is the receipt/product image upload ceiling.
func (cm *ConfigManager) MaxUploadBytes() int64 {
	if n := cm.GetInt64("upload", "max_bytes"); n > 0 {
		return n
	}
	return 5 << 20
}

// LowStockThreshold is the dashboard low-stock cutoff.
func (cm *ConfigManager) LowStockThreshold() int {
	if n := cm.GetInt64("dashboard", "low_stock_threshold"); n > 0 {
		return int(n)
	}
	return 10
}
