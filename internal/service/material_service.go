package service

import (
	"context"
	"fmt"
	"strings"

	"roadmap_ai_backend/internal/model"
	"roadmap_ai_backend/internal/repository"
	"roadmap_ai_backend/pkg/prompt"
)

type MaterialService struct {
	materialRepo *repository.MaterialRepository
	roadmapRepo  *repository.RoadmapRepository
	sessionRepo  *repository.SessionRepository
	roadmapSvc   *RoadmapService
	ai           ModelClient
	prompts      prompt.Provider
}

func NewMaterialService(
	materialRepo *repository.MaterialRepository,
	roadmapRepo *repository.RoadmapRepository,
	sessionRepo *repository.SessionRepository,
	roadmapSvc *RoadmapService,
	ai ModelClient,
	prompts prompt.Provider,
) *MaterialService {
	return &MaterialService{
		materialRepo: materialRepo,
		roadmapRepo:  roadmapRepo,
		sessionRepo:  sessionRepo,
		roadmapSvc:   roadmapSvc,
		ai:           ai,
		prompts:      prompts,
	}
}

// materialPayload 模型结构化输出的学习材料
type materialPayload struct {
	Title                string `json:"title"`
	MaterialType         string `json:"material_type"`
	Description          string `json:"description"`
	Content              string `json:"content"`
	EstimatedTimeMinutes int    `json:"estimated_time_minutes"`
	DifficultyLevel      string `json:"difficulty_level"`
}

func validateMaterial(payload *materialPayload) *ToolError {
	if payload.Title == "" {
		return NewSchemaValidationError("title", "材料标题不能为空")
	}
	if strings.TrimSpace(payload.Content) == "" {
		return NewSchemaValidationError("content", "材料正文不能为空")
	}
	return nil
}

// CreateForGoal 调模型为目标生成一份材料并落库
func (s *MaterialService) CreateForGoal(ctx context.Context, sessionID uint, goalNumber int, materialRequest string) (*model.LearningMaterial, error) {
	roadmap, err := s.roadmapRepo.FindBySessionID(sessionID)
	if err != nil {
		return nil, err
	}
	goal, err := s.roadmapRepo.FindGoal(roadmap.ID, goalNumber)
	if err != nil {
		return nil, err
	}

	tpl, err := s.prompts.Get("createlearningmaterial")
	if err != nil {
		return nil, err
	}
	system, user := tpl.Render(map[string]string{
		"goal_title":       goal.Title,
		"goal_description": goal.Description,
		"skill_level":      string(goal.SkillLevel),
		"material_request": materialRequest,
	})

	var payload materialPayload
	if err := s.ai.ExecuteStructured(ctx, system, user, tpl.Temperature, &payload); err != nil {
		return nil, err
	}
	if verr := validateMaterial(&payload); verr != nil {
		return nil, verr
	}

	var material *model.LearningMaterial
	err = persistRetry(func() error {
		material = &model.LearningMaterial{
			GoalID:               goal.ID,
			Title:                payload.Title,
			MaterialType:         payload.MaterialType,
			Description:          payload.Description,
			Content:              payload.Content,
			EstimatedTimeMinutes: payload.EstimatedTimeMinutes,
			DifficultyLevel:      model.SkillLevel(payload.DifficultyLevel),
		}
		return s.materialRepo.Create(material)
	})
	if err != nil {
		return nil, err
	}
	return material, nil
}

func (s *MaterialService) ListByGoal(sessionID, userID uint, goalNumber int) ([]model.LearningMaterial, error) {
	if _, err := s.sessionRepo.FindByIDForUser(sessionID, userID); err != nil {
		return nil, err
	}
	roadmap, err := s.roadmapRepo.FindBySessionID(sessionID)
	if err != nil {
		return nil, err
	}
	goal, err := s.roadmapRepo.FindGoal(roadmap.ID, goalNumber)
	if err != nil {
		return nil, err
	}
	return s.materialRepo.ListByGoal(goal.ID)
}

// MarkCompleted 标记材料完成并重算所属目标的完成度
func (s *MaterialService) MarkCompleted(materialID, userID uint, rating *int) (*model.LearningMaterial, error) {
	material, err := s.materialRepo.FindByID(materialID)
	if err != nil {
		return nil, err
	}
	if _, err := s.roadmapSvc.EnsureGoalOwner(material.GoalID, userID); err != nil {
		return nil, err
	}
	if rating != nil {
		if *rating < 1 || *rating > 5 {
			return nil, fmt.Errorf("评分必须在 1-5 之间")
		}
		material.UserRating = rating
	}
	material.IsCompleted = true
	if err := s.materialRepo.Update(material); err != nil {
		return nil, err
	}

	if err := s.roadmapSvc.RecomputeGoalCompletion(material.GoalID, userID); err != nil {
		return nil, err
	}
	return material, nil
}
