package repository

import (
	"gorm.io/gorm"

	"roadmap_ai_backend/internal/model"
)

type MaterialRepository struct {
	DB *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) *MaterialRepository {
	return &MaterialRepository{DB: db}
}

func (r *MaterialRepository) Create(material *model.LearningMaterial) error {
	return r.DB.Create(material).Error
}

func (r *MaterialRepository) FindByID(id uint) (*model.LearningMaterial, error) {
	var material model.LearningMaterial
	if err := r.DB.First(&material, id).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *MaterialRepository) ListByGoal(goalID uint) ([]model.LearningMaterial, error) {
	var materials []model.LearningMaterial
	err := r.DB.Where("goal_id = ?", goalID).
		Order("id ASC").
		Find(&materials).Error
	return materials, err
}

func (r *MaterialRepository) Update(material *model.LearningMaterial) error {
	return r.DB.Save(material).Error
}

// Counts 返回目标下材料总数与已完成数
func (r *MaterialRepository) Counts(goalID uint) (total, completed int64, err error) {
	query := r.DB.Model(&model.LearningMaterial{}).Where("goal_id = ?", goalID)
	if err = query.Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = query.Where("is_completed = ?", true).Count(&completed).Error
	return total, completed, err
}
