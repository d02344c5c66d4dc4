package repository

import (
	"errors"

	"gorm.io/gorm"

	"roadmap_ai_backend/internal/model"
	"roadmap_ai_backend/internal/util"
)

type RoadmapRepository struct {
	DB *gorm.DB
}

func NewRoadmapRepository(db *gorm.DB) *RoadmapRepository {
	return &RoadmapRepository{DB: db}
}

// CreateWithGoals 路线图与目标在同一事务内落库，任一失败整体回滚
func (r *RoadmapRepository) CreateWithGoals(roadmap *model.Roadmap, goals []model.RoadmapGoal) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(roadmap).Error; err != nil {
			return err
		}
		for i := range goals {
			goals[i].RoadmapID = roadmap.ID
		}
		if len(goals) > 0 {
			if err := tx.Create(&goals).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceGoals 编辑骨架时整体替换目标列表，与路线图字段更新同事务
func (r *RoadmapRepository) ReplaceGoals(roadmap *model.Roadmap, goals []model.RoadmapGoal) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(roadmap).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().
			Where("roadmap_id = ?", roadmap.ID).
			Delete(&model.RoadmapGoal{}).Error; err != nil {
			return err
		}
		for i := range goals {
			goals[i].ID = 0
			goals[i].RoadmapID = roadmap.ID
		}
		if len(goals) > 0 {
			if err := tx.Create(&goals).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *RoadmapRepository) FindByID(id uint) (*model.Roadmap, error) {
	var roadmap model.Roadmap
	err := r.DB.First(&roadmap, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrRoadmapNotFound
	}
	if err != nil {
		return nil, err
	}
	return &roadmap, nil
}

func (r *RoadmapRepository) FindBySessionID(sessionID uint) (*model.Roadmap, error) {
	var roadmap model.Roadmap
	err := r.DB.Where("session_id = ?", sessionID).First(&roadmap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrRoadmapNotFound
	}
	if err != nil {
		return nil, err
	}
	return &roadmap, nil
}

func (r *RoadmapRepository) Update(roadmap *model.Roadmap) error {
	return r.DB.Save(roadmap).Error
}

func (r *RoadmapRepository) UpdateStatus(id uint, status model.RoadmapStatus) error {
	return r.DB.Model(&model.Roadmap{}).Where("id = ?", id).
		Update("status", status).Error
}

func (r *RoadmapRepository) Goals(roadmapID uint) ([]model.RoadmapGoal, error) {
	var goals []model.RoadmapGoal
	err := r.DB.Where("roadmap_id = ?", roadmapID).
		Order("goal_number ASC").
		Find(&goals).Error
	return goals, err
}

func (r *RoadmapRepository) FindGoal(roadmapID uint, goalNumber int) (*model.RoadmapGoal, error) {
	var goal model.RoadmapGoal
	err := r.DB.Where("roadmap_id = ? AND goal_number = ?", roadmapID, goalNumber).
		First(&goal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrGoalNotFound
	}
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

func (r *RoadmapRepository) FindGoalByID(id uint) (*model.RoadmapGoal, error) {
	var goal model.RoadmapGoal
	err := r.DB.First(&goal, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrGoalNotFound
	}
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

func (r *RoadmapRepository) UpdateGoal(goal *model.RoadmapGoal) error {
	return r.DB.Save(goal).Error
}

// GoalCounts 返回目标总数与已完成数，供阶段判定使用
func (r *RoadmapRepository) GoalCounts(roadmapID uint) (total, completed int64, err error) {
	query := r.DB.Model(&model.RoadmapGoal{}).Where("roadmap_id = ?", roadmapID)
	if err = query.Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = query.Where("is_completed = ?", true).Count(&completed).Error
	return total, completed, err
}
