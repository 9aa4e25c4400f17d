package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SetupType is a user-defined named trade pattern
type SetupType struct {
	ID          uint                        `gorm:"primaryKey" json:"id"`
	UserID      uint                        `gorm:"uniqueIndex:idx_setup_user_name;not null" json:"user_id"`
	Name        string                      `gorm:"uniqueIndex:idx_setup_user_name;size:100;not null" json:"name"`
	Description string                      `gorm:"type:text" json:"description"`
	Category    string                      `gorm:"size:50" json:"category"`
	Timeframes  datatypes.JSONSlice[string] `json:"timeframes"`
	Rules       datatypes.JSONSlice[string] `json:"rules"`
	IsActive    bool                        `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for SetupType model
func (SetupType) TableName() string {
	return "setup_types"
}
