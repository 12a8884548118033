package domain

import (
	"database/sql/driver"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

// Product categories.
const (
	CategoryMen    = "men"
	CategoryWomen  = "women"
	CategoryUnisex = "unisex"
)

// StringList stores a list of strings as a JSON column, used for product
// image galleries, colors and sizes.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return jsoniter.MarshalToString([]string(l))
}

func (l *StringList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return jsoniter.Unmarshal(v, (*[]string)(l))
	case string:
		return jsoniter.UnmarshalFromString(v, (*[]string)(l))
	default:
		return errors.New("unsupported StringList source type")
	}
}

// Product is a catalog item. Deactivated products stay in the table with
// is_active=false so past order items keep a resolvable reference.
type Product struct {
	ID          int64           `gorm:"primaryKey" json:"id,string"`
	Name        string          `gorm:"index" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2)" json:"price"`
	Category    string          `gorm:"size:32;index" json:"category"` // men|women|unisex
	MainImage   string          `gorm:"size:1024" json:"main_image"`
	Images      StringList      `gorm:"type:text" json:"images"`
	Colors      StringList      `gorm:"type:text" json:"colors"`
	Sizes       StringList      `gorm:"type:text" json:"sizes"`
	Stock       int             `gorm:"default:0" json:"stock"`
	IsActive    bool            `gorm:"index;default:true" json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

// ValidCategory reports whether cat is a known product category.
func ValidCategory(cat string) bool {
	switch cat {
	case CategoryMen, CategoryWomen, CategoryUnisex:
		return true
	}
	return false
}
