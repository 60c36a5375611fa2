package models

import (
	"time"

	"github.com/shopspring/decimal"

	"floorsync-system/internal/domain"
)

type Employee struct {
	ID           string              `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RestaurantID string              `gorm:"type:varchar(36);index;not null" json:"restaurantId"`
	Email        string              `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string              `gorm:"size:255;not null" json:"-"`
	FirstName    string              `gorm:"size:100;not null" json:"firstName"`
	LastName     string              `gorm:"size:100;not null" json:"lastName"`
	Role         domain.Role         `gorm:"size:16;not null" json:"role"`
	HourlyRate   decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"hourlyRate"`
	Phone        *string             `gorm:"size:32" json:"phone,omitempty"`
	IsActive     bool                `gorm:"not null;default:true" json:"isActive"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

type Shift struct {
	ID          string              `gorm:"primaryKey;type:varchar(36)" json:"id"`
	EmployeeID  string              `gorm:"type:varchar(36);index;not null" json:"employeeId"`
	ClockIn     time.Time           `gorm:"not null" json:"clockIn"`
	ClockOut    *time.Time          `gorm:"index" json:"clockOut,omitempty"`
	HoursWorked decimal.NullDecimal `gorm:"type:numeric(8,4)" json:"hoursWorked"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`

	Employee *Employee `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
}

// Open reports whether the shift has not been clocked out yet.
func (s Shift) Open() bool { return s.ClockOut == nil }
