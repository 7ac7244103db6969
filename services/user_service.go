package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/models"
)

// UserService resolves the paying user. Client users are keyed by phone
// number; booking a payment for an unknown phone creates the account.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) FindOrCreateByPhone(name, phone, email string) (*models.User, error) {
	if phone == "" {
		return nil, ErrInvalidRequest
	}

	var user models.User
	err := s.db.Where("phone = ?", phone).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		Name:  name,
		Phone: phone,
		Email: email,
		Role:  "client",
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}
