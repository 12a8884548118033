package app

import (
	_ "embed"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/urbanthreads/storefront/internal/domain"
	"github.com/urbanthreads/storefront/pkg/common"
)

//go:embed config_schemas.json
var configSchemasJSON []byte

// checkSuper ensures the configured administrator account exists.
func (a *Application) checkSuper() {
	cfg := a.appConfig.Admin
	var count int64
	a.gormDB.Model(&domain.SysOpr{}).Where("email = ?", cfg.Email).Count(&count)
	if count > 0 {
		return
	}
	opr := domain.SysOpr{
		ID:        common.UUIDint64(),
		Realname:  "Administrator",
		Email:     cfg.Email,
		Password:  common.Sha256HashWithSalt(cfg.Password, common.GetSecretSalt()),
		Level:     "super",
		Status:    common.ENABLED,
		LastLogin: time.Now(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := a.gormDB.Create(&opr).Error; err != nil {
		zap.S().Errorf("create admin account failed: %v", err)
		return
	}
	zap.S().Infof("created admin account %s", cfg.Email)
}

// checkSettings seeds missing sys_config rows from the embedded schema.
// Existing rows are never overwritten, so admin edits survive restarts.
func (a *Application) checkSettings() {
	var schemas []domain.SysConfig
	if err := jsoniter.Unmarshal(configSchemasJSON, &schemas); err != nil {
		zap.S().Errorf("parse config schemas failed: %v", err)
		return
	}
	for _, item := range schemas {
		var count int64
		a.gormDB.Model(&domain.SysConfig{}).
			Where("type = ? AND name = ?", item.Type, item.Name).Count(&count)
		if count > 0 {
			continue
		}
		item.ID = common.UUIDint64()
		item.CreatedAt = time.Now()
		item.UpdatedAt = time.Now()
		if err := a.gormDB.Create(&item).Error; err != nil {
			zap.S().Errorf("seed setting %s.%s failed: %v", item.Type, item.Name, err)
		}
	}
}
