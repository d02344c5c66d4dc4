package repository

import (
	"errors"

	"gorm.io/gorm"

	"roadmap_ai_backend/internal/model"
	"roadmap_ai_backend/internal/util"
)

type GraduationRepository struct {
	DB *gorm.DB
}

func NewGraduationRepository(db *gorm.DB) *GraduationRepository {
	return &GraduationRepository{DB: db}
}

// CreateWithQuestions 毕业项目与五道题同事务落库
func (r *GraduationRepository) CreateWithQuestions(project *model.GraduationProject, questions []model.GraduationQuestion) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}
		for i := range questions {
			questions[i].ProjectID = project.ID
			questions[i].SessionID = project.SessionID
		}
		if len(questions) > 0 {
			if err := tx.Create(&questions).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GraduationRepository) FindBySessionID(sessionID uint) (*model.GraduationProject, error) {
	var project model.GraduationProject
	if err := r.DB.Where("session_id = ?", sessionID).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *GraduationRepository) FindByRoadmapID(roadmapID uint) (*model.GraduationProject, error) {
	var project model.GraduationProject
	if err := r.DB.Where("roadmap_id = ?", roadmapID).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *GraduationRepository) Questions(projectID uint) ([]model.GraduationQuestion, error) {
	var questions []model.GraduationQuestion
	err := r.DB.Where("project_id = ?", projectID).
		Order("id ASC").
		Find(&questions).Error
	return questions, err
}

func (r *GraduationRepository) FindQuestion(id uint) (*model.GraduationQuestion, error) {
	var question model.GraduationQuestion
	err := r.DB.First(&question, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *GraduationRepository) FindQuestionBySlug(sessionID uint, slug string) (*model.GraduationQuestion, error) {
	var question model.GraduationQuestion
	err := r.DB.Where("session_id = ? AND question_slug = ?", sessionID, slug).
		First(&question).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &question, nil
}

// CreateSubmissions 一次提交的多份答案同事务落库
func (r *GraduationRepository) CreateSubmissions(submissions []model.GraduationSubmission) error {
	if len(submissions) == 0 {
		return nil
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&submissions).Error
	})
}

func (r *GraduationRepository) UpdateSubmission(submission *model.GraduationSubmission) error {
	return r.DB.Save(submission).Error
}

func (r *GraduationRepository) ListSubmissions(sessionID uint) ([]model.GraduationSubmission, error) {
	var submissions []model.GraduationSubmission
	err := r.DB.Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&submissions).Error
	return submissions, err
}

func (r *GraduationRepository) FindSubmission(id uint) (*model.GraduationSubmission, error) {
	var submission model.GraduationSubmission
	if err := r.DB.First(&submission, id).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}
