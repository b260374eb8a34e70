package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/mmdatafocus/jewellery_backend/config"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/mmdatafocus/jewellery_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// UserWorkflow manages local logins. Users belong to one installation and
// are not queued for sync.
type UserWorkflow struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewUserWorkflow(db *gorm.DB, logger *logrus.Logger) *UserWorkflow {
	return &UserWorkflow{DB: db, Logger: logger}
}

func (w *UserWorkflow) CreateUser(ctx context.Context, input models.NewUser) (*models.User, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user := models.User{
		Username:     strings.ToLower(strings.TrimSpace(input.Username)),
		Name:         input.Name,
		PasswordHash: hashed,
		Role:         input.Role,
		IsActive:     utils.NewTrue(),
	}
	var count int64
	if err := w.DB.WithContext(ctx).Model(&models.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.Invalidf("username %s is already taken", user.Username)
	}
	if err := w.DB.WithContext(ctx).Create(&user).Error; err != nil {
		config.LogError(w.Logger, "UserWorkflow", "CreateUser", "create user", user.Username, err)
		return nil, err
	}
	return &user, nil
}

// Login checks the password and issues a token. Unknown users and wrong
// passwords get the same error.
func (w *UserWorkflow) Login(ctx context.Context, username string, password string) (*models.LoginInfo, error) {
	var user models.User
	err := w.DB.WithContext(ctx).
		Where("username = ?", strings.ToLower(strings.TrimSpace(username))).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NewValidationError(models.ErrInvalidCredential, "")
	}
	if err != nil {
		return nil, err
	}
	if user.IsActive != nil && !*user.IsActive {
		return nil, utils.NewValidationError(models.ErrInvalidCredential, "")
	}
	if err := utils.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, utils.NewValidationError(models.ErrInvalidCredential, "")
	}
	token, err := utils.JwtGenerate(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &models.LoginInfo{
		Token:    token,
		UserId:   user.ID,
		Username: user.Username,
		Name:     user.Name,
		Role:     user.Role,
	}, nil
}
