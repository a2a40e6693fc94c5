// internal/domain/address/entity.go
package address

import "time"

// Address is a delivery address in a user's address book
type Address struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	Recipient  string    `gorm:"size:200;not null" json:"recipient"`
	Line1      string    `gorm:"size:255;not null" json:"address_line1"`
	Line2      string    `gorm:"size:255" json:"address_line2"`
	City       string    `gorm:"size:100;not null" json:"city"`
	State      string    `gorm:"size:100" json:"state"`
	PostalCode string    `gorm:"size:20" json:"postal_code"`
	Country    string    `gorm:"size:2;not null;default:'US'" json:"country"` // ISO 2-letter code
	Phone      string    `gorm:"size:30" json:"phone"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName overrides the table name for Address
func (Address) TableName() string {
	return "addresses"
}
