package repository

import (
	"errors"
	"time"

	"github.com/edgelog/internal/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user not found")
)

// UserRepository handles user data access
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByUsernameOrEmail looks a user up by either login identifier
func (r *UserRepository) GetByUsernameOrEmail(login string) (*models.User, error) {
	var user models.User
	err := r.db.Where("username = ? OR email = ?", login, login).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ExistsByUsername checks if a username is taken
func (r *UserRepository) ExistsByUsername(username string) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// ExistsByEmail checks if an email is taken
func (r *UserRepository) ExistsByEmail(email string) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// Update saves all user fields
func (r *UserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// WithTx returns a repository bound to tx
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

// UpdatePlan sets a user's plan and expiry
func (r *UserRepository) UpdatePlan(id uint, plan models.Plan, expiresAt *time.Time) error {
	if expiresAt != nil {
		utc := expiresAt.UTC()
		expiresAt = &utc
	}
	return r.db.Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"plan": plan, "plan_expires_at": expiresAt}).Error
}

// GetExpiredPaid returns users on a paid plan whose period ended before now
func (r *UserRepository) GetExpiredPaid(now time.Time) ([]models.User, error) {
	var users []models.User
	err := r.db.Where("plan <> ? AND plan_expires_at IS NOT NULL AND plan_expires_at <= ?", models.PlanFree, now.UTC()).
		Find(&users).Error
	return users, err
}
