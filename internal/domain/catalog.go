package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category belongs to one store; names are unique per store.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StoreID   uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_category_store_name" json:"store_id"`
	Name      string    `gorm:"size:255;not null;uniqueIndex:idx_category_store_name" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Image is an uploaded picture that can be attached to many products.
type Image struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PublicID  string    `gorm:"size:255;not null" json:"public_id"`
	URL       string    `gorm:"size:1024;not null" json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Product belongs to one store and optionally one category.
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	StoreID     uuid.UUID       `gorm:"type:char(36);not null;index" json:"store_id"`
	CategoryID  *uint           `gorm:"index" json:"category_id"`
	Category    *Category       `gorm:"constraint:OnDelete:SET NULL" json:"category,omitempty"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Stock       int             `gorm:"not null;default:0" json:"stock"`
	Weight      decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"weight"`
	Dimensions  string          `gorm:"size:255;default:'0x0x0'" json:"dimensions"`
	Images      []Image         `gorm:"many2many:product_images;" json:"images,omitempty"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
}

// FirstImageURL returns the URL of the first attached image, or "" when there is none
func (p Product) FirstImageURL() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}
