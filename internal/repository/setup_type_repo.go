package repository

import (
	"errors"

	"github.com/edgelog/internal/models"
	"gorm.io/gorm"
)

var (
	ErrSetupTypeNotFound = errors.New("setup type not found")
)

// SetupTypeRepository handles setup taxonomy data access
type SetupTypeRepository struct {
	db *gorm.DB
}

// NewSetupTypeRepository creates a new SetupTypeRepository
func NewSetupTypeRepository(db *gorm.DB) *SetupTypeRepository {
	return &SetupTypeRepository{db: db}
}

// Create creates a new setup type
func (r *SetupTypeRepository) Create(setup *models.SetupType) error {
	return r.db.Create(setup).Error
}

// GetByIDAndUserID retrieves a setup type owned by the user
func (r *SetupTypeRepository) GetByIDAndUserID(id, userID uint) (*models.SetupType, error) {
	var setup models.SetupType
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&setup).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSetupTypeNotFound
		}
		return nil, err
	}
	return &setup, nil
}

// GetByUserID lists a user's setup types by name
func (r *SetupTypeRepository) GetByUserID(userID uint) ([]models.SetupType, error) {
	var setups []models.SetupType
	result := r.db.Where("user_id = ?", userID).Order("name ASC").Find(&setups)
	return setups, result.Error
}

// ExistsByName checks whether the user already has a setup with this name,
// ignoring excludeID so that renames to the same name pass.
func (r *SetupTypeRepository) ExistsByName(userID uint, name string, excludeID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.SetupType{}).
		Where("user_id = ? AND LOWER(name) = LOWER(?) AND id <> ?", userID, name, excludeID).
		Count(&count).Error
	return count > 0, err
}

// Update saves a setup type
func (r *SetupTypeRepository) Update(setup *models.SetupType) error {
	return r.db.Save(setup).Error
}

// Delete permanently removes a setup type so its name can be reused
func (r *SetupTypeRepository) Delete(id uint) error {
	return r.db.Unscoped().Delete(&models.SetupType{}, id).Error
}
