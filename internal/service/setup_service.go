package service

import (
	"strings"

	"github.com/edgelog/internal/models"
	"github.com/edgelog/internal/repository"
)

// SetupService manages the user's setup taxonomy
type SetupService struct {
	setupRepo *repository.SetupTypeRepository
}

// NewSetupService creates a new SetupService
func NewSetupService(setupRepo *repository.SetupTypeRepository) *SetupService {
	return &SetupService{setupRepo: setupRepo}
}

// SetupRequest is the create/replace body of a setup type
type SetupRequest struct {
	Name        string   `json:"name" binding:"required,min=1,max=100"`
	Description string   `json:"description" binding:"max=2000"`
	Category    string   `json:"category" binding:"max=50"`
	Timeframes  []string `json:"timeframes" binding:"max=10,dive,max=10"`
	Rules       []string `json:"rules" binding:"max=50,dive,max=300"`
	IsActive    *bool    `json:"is_active"`
}

func (req *SetupRequest) apply(s *models.SetupType) {
	s.Name = strings.TrimSpace(req.Name)
	s.Description = req.Description
	s.Category = req.Category
	s.Timeframes = req.Timeframes
	s.Rules = req.Rules
	if req.IsActive != nil {
		s.IsActive = *req.IsActive
	}
}

// CreateSetup adds a setup type; names are unique per user, case-insensitively
func (s *SetupService) CreateSetup(userID uint, req *SetupRequest) (*models.SetupType, error) {
	taken, err := s.setupRepo.ExistsByName(userID, strings.TrimSpace(req.Name), 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSetupNameTaken
	}

	setup := &models.SetupType{UserID: userID, IsActive: true}
	req.apply(setup)
	if err := s.setupRepo.Create(setup); err != nil {
		return nil, err
	}
	return setup, nil
}

// GetSetups lists the user's setup types
func (s *SetupService) GetSetups(userID uint) ([]models.SetupType, error) {
	return s.setupRepo.GetByUserID(userID)
}

// GetSetup retrieves one setup type owned by the user
func (s *SetupService) GetSetup(userID, setupID uint) (*models.SetupType, error) {
	return s.setupRepo.GetByIDAndUserID(setupID, userID)
}

// UpdateSetup replaces a setup type
func (s *SetupService) UpdateSetup(userID, setupID uint, req *SetupRequest) (*models.SetupType, error) {
	setup, err := s.setupRepo.GetByIDAndUserID(setupID, userID)
	if err != nil {
		return nil, err
	}

	taken, err := s.setupRepo.ExistsByName(userID, strings.TrimSpace(req.Name), setup.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSetupNameTaken
	}

	req.apply(setup)
	if err := s.setupRepo.Update(setup); err != nil {
		return nil, err
	}
	return setup, nil
}

// DeleteSetup removes a setup type. Trades keep their setup name.
func (s *SetupService) DeleteSetup(userID, setupID uint) error {
	setup, err := s.setupRepo.GetByIDAndUserID(setupID, userID)
	if err != nil {
		return err
	}
	return s.setupRepo.Delete(setup.ID)
}
