package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"paycore/domain/shared"
)

// Organization is the tenant root. It is not itself tenant-scoped.
type Organization struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Name      string    `gorm:"size:255;not null"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Organization) TableName() string { return "organizations" }
func (o Organization) GetID() string { return o.ID }
func (Organization) EntityName() string { return "organization" }

func (o Organization) FieldValues() shared.FieldValues {
	return shared.FieldValues{
		"id":         o.ID,
		"name":       o.Name,
		"active":     o.Active,
		"created_at": o.CreatedAt,
		"updated_at": o.UpdatedAt,
	}
}

// User is an operator account inside one organization.
type User struct {
	ID             string    `gorm:"primaryKey;size:36"`
	OrganizationID string    `gorm:"size:36;index;not null"`
	Email          string    `gorm:"size:255;uniqueIndex;not null"`
	Name           string    `gorm:"size:255;not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (User) TableName() string { return "users" }
func (u User) GetID() string { return u.ID }
func (User) EntityName() string { return "user" }
func (u User) GetOrganizationID() string { return u.OrganizationID }

func (u User) FieldValues() shared.FieldValues {
	return shared.FieldValues{
		"id":              u.ID,
		"organization_id": u.OrganizationID,
		"email":           u.Email,
		"name":            u.Name,
		"created_at":      u.CreatedAt,
		"updated_at":      u.UpdatedAt,
	}
}

// Customer is a payer known to one organization.
type Customer struct {
	ID             string    `gorm:"primaryKey;size:36"`
	OrganizationID string    `gorm:"size:36;index;not null"`
	Email          string    `gorm:"size:255;index;not null"`
	Name           string    `gorm:"size:255"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (Customer) TableName() string { return "customers" }
func (c Customer) GetID() string { return c.ID }
func (Customer) EntityName() string { return "customer" }
func (c Customer) GetOrganizationID() string { return c.OrganizationID }

func (c Customer) FieldValues() shared.FieldValues {
	return shared.FieldValues{
		"id":              c.ID,
		"organization_id": c.OrganizationID,
		"email":           c.Email,
		"name":            c.Name,
		"created_at":      c.CreatedAt,
		"updated_at":      c.UpdatedAt,
	}
}

// PaymentLink is the parent a payment order is created under. New orders
// inherit its amount and currency unless explicitly overridden.
type PaymentLink struct {
	ID             string          `gorm:"primaryKey;size:36"`
	OrganizationID string          `gorm:"size:36;index;not null"`
	Title          string          `gorm:"size:255"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	Currency       string          `gorm:"size:8;not null"`
	Active         bool            `gorm:"not null;default:true"`
	CreatedAt      time.Time       `gorm:"autoCreateTime;index"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime"`
}

func (PaymentLink) TableName() string { return "payment_links" }
func (l PaymentLink) GetID() string { return l.ID }
func (PaymentLink) EntityName() string { return "payment_link" }
func (l PaymentLink) GetOrganizationID() string { return l.OrganizationID }

func (l PaymentLink) FieldValues() shared.FieldValues {
	return shared.FieldValues{
		"id":              l.ID,
		"organization_id": l.OrganizationID,
		"title":           l.Title,
		"amount":          l.Amount,
		"currency":        l.Currency,
		"active":          l.Active,
		"created_at":      l.CreatedAt,
		"updated_at":      l.UpdatedAt,
	}
}
