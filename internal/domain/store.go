package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store Model
type Store struct {
	ID              uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	OwnerID         uint      `gorm:"uniqueIndex;not null" json:"owner_id"` // One store per seller
	Owner           User      `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	Name            string    `gorm:"size:255;not null" json:"name"`
	HeroName        string    `gorm:"size:255" json:"hero_name"`
	HeroDescription string    `gorm:"type:text" json:"hero_description"`
	Template        string    `gorm:"size:255" json:"template"`
	Customers       []User    `gorm:"many2many:store_customers;" json:"-"`
	CreatedAt       time.Time `json:"created_at"`
}

// BeforeCreate assigns a random UUID when none was set
func (s *Store) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
