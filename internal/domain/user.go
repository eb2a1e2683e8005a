package domain

import "time" // Timestamps

// User types
const (
	UserTypeCustomer = "customer" // Buys from stores
	UserTypeSeller   = "seller"   // Owns a store
)

// User Model
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`                                       // Primary key
	Username    string    `gorm:"size:150;uniqueIndex;not null" json:"username"`              // Unique username
	Email       string    `gorm:"size:254" json:"email"`                                      // Contact email
	FullName    string    `gorm:"size:255" json:"full_name"`                                  // Display name
	Password    string    `gorm:"not null" json:"-"`                                          // Hashed password
	UserType    string    `gorm:"size:20;not null;default:'customer';index" json:"user_type"` // customer or seller
	PhoneNumber *string   `gorm:"size:32;uniqueIndex" json:"phone_number,omitempty"`          // WhatsApp identity
	CreatedAt   time.Time `json:"created_at"`                                                 // Creation time
}

// DisplayName returns the full name, falling back to the username
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// IsSeller reports whether the user owns (or may own) a store
func (u User) IsSeller() bool {
	return u.UserType == UserTypeSeller
}
