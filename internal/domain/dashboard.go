package domain

import "github.com/shopspring/decimal"

// EligibilityStep is added to a seller's eligibility score for every order placed
const EligibilityStep = 10

// Dashboard holds the running counters of one seller
type Dashboard struct {
	ID               uint            `gorm:"primaryKey" json:"-"`
	OwnerID          uint            `gorm:"not null;uniqueIndex" json:"owner_id"`
	Owner            User            `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	TotalRevenue     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_revenue"`
	TotalOrders      int             `gorm:"not null;default:0" json:"total_orders"`
	NewCustomers     int             `gorm:"not null;default:0" json:"new_customers"`
	EligibilityScore int             `gorm:"not null;default:0" json:"eligibility_score"`
	MaxLoanAmount    int             `gorm:"not null;default:50000" json:"max_loan_amount"`
}
