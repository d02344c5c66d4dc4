package repository

import (
	"errors"

	"gorm.io/gorm"

	"roadmap_ai_backend/internal/model"
	"roadmap_ai_backend/internal/util"
)

type CVRepository struct {
	DB *gorm.DB
}

func NewCVRepository(db *gorm.DB) *CVRepository {
	return &CVRepository{DB: db}
}

func (r *CVRepository) Create(cv *model.UserCV) error {
	return r.DB.Create(cv).Error
}

// FindLatestByUser 取用户最近上传的一份简历
func (r *CVRepository) FindLatestByUser(userID uint) (*model.UserCV, error) {
	var cv model.UserCV
	err := r.DB.Where("user_id = ?", userID).
		Order("id DESC").
		First(&cv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCVNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cv, nil
}

func (r *CVRepository) Update(cv *model.UserCV) error {
	return r.DB.Save(cv).Error
}

func (r *CVRepository) Delete(id uint) error {
	return r.DB.Delete(&model.UserCV{}, id).Error
}
