package models

import (
	"time"

	"gorm.io/gorm"
)

// Plan represents a subscription tier
type Plan string

const (
	PlanFree  Plan = "free"
	PlanPro   Plan = "pro"
	PlanElite Plan = "elite"
)

// Rank orders plans so that higher tiers include lower-tier features
func (p Plan) Rank() int {
	switch p {
	case PlanPro:
		return 1
	case PlanElite:
		return 2
	default:
		return 0
	}
}

// Valid reports whether p is a known plan
func (p Plan) Valid() bool {
	return p == PlanFree || p == PlanPro || p == PlanElite
}

// User represents a registered journal owner
type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Username      string     `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email         string     `gorm:"uniqueIndex;size:100;not null" json:"email"`
	PasswordHash  string     `gorm:"size:255;not null" json:"-"`
	Plan          Plan       `gorm:"size:20;not null;default:'free'" json:"plan"`
	PlanExpiresAt *time.Time `json:"plan_expires_at,omitempty"`
	IsAdmin       bool       `gorm:"default:false" json:"is_admin"`
	ReferredByID  *uint      `gorm:"index" json:"referred_by_id,omitempty"`
	Timezone      string     `gorm:"size:64;default:'UTC'" json:"timezone"`

	// Daily risk settings
	MaxDailyLossR   float64 `gorm:"default:0" json:"max_daily_loss_r"`
	MaxTradesPerDay int     `gorm:"default:0" json:"max_trades_per_day"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// ActivePlan returns the plan in force at now; lapsed paid plans count as free
func (u *User) ActivePlan(now time.Time) Plan {
	if u.Plan == PlanFree || u.Plan == "" {
		return PlanFree
	}
	if u.PlanExpiresAt != nil && !u.PlanExpiresAt.After(now) {
		return PlanFree
	}
	return u.Plan
}

// Location returns the user's configured time zone, falling back to UTC
func (u *User) Location() *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
