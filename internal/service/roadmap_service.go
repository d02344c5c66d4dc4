package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"roadmap_ai_backend/internal/model"
	"roadmap_ai_backend/internal/repository"
	"roadmap_ai_backend/internal/util"
	"roadmap_ai_backend/pkg/prompt"
)

type RoadmapService struct {
	roadmapRepo  *repository.RoadmapRepository
	sessionRepo  *repository.SessionRepository
	materialRepo *repository.MaterialRepository
	quizRepo     *repository.QuizRepository
	cvRepo       *repository.CVRepository
	ai           ModelClient
	prompts      prompt.Provider
}

func NewRoadmapService(
	roadmapRepo *repository.RoadmapRepository,
	sessionRepo *repository.SessionRepository,
	materialRepo *repository.MaterialRepository,
	quizRepo *repository.QuizRepository,
	cvRepo *repository.CVRepository,
	ai ModelClient,
	prompts prompt.Provider,
) *RoadmapService {
	return &RoadmapService{
		roadmapRepo:  roadmapRepo,
		sessionRepo:  sessionRepo,
		materialRepo: materialRepo,
		quizRepo:     quizRepo,
		cvRepo:       cvRepo,
		ai:           ai,
		prompts:      prompts,
	}
}

// skeletonPayload 模型结构化输出的路线图骨架
type skeletonPayload struct {
	Title                  string         `json:"title"`
	TotalEstimatedWeeks    int            `json:"total_estimated_weeks"`
	GraduationProjectTitle string         `json:"graduation_project_title"`
	GraduationProject      string         `json:"graduation_project"`
	Goals                  []skeletonGoal `json:"goals"`
}

type skeletonGoal struct {
	GoalNumber     int    `json:"goal_number"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Priority       int    `json:"priority"`
	SkillLevel     string `json:"skill_level"`
	EstimatedHours int    `json:"estimated_hours"`
	Prerequisites  []int  `json:"prerequisites"`
}

// validateSkeleton 校验模型生成的骨架内容，失败按 schema 校验错误处理
func validateSkeleton(payload *skeletonPayload) *ToolError {
	if len(payload.Goals) == 0 {
		return NewSchemaValidationError("goals", "骨架至少要有一个目标")
	}
	for i, goal := range payload.Goals {
		path := fmt.Sprintf("goals[%d]", i)
		if goal.Title == "" {
			return NewSchemaValidationError(path+".title", "目标标题不能为空")
		}
		if goal.GoalNumber != i+1 {
			return NewSchemaValidationError(path+".goal_number", "目标序号必须从 1 开始连续递增")
		}
		switch model.SkillLevel(goal.SkillLevel) {
		case model.SkillBeginner, model.SkillIntermediate, model.SkillAdvanced:
		default:
			return NewSchemaValidationError(path+".skill_level", "取值必须是 beginner/intermediate/advanced 之一")
		}
	}
	return nil
}

func skeletonToModels(sessionID uint, userRequest string, payload *skeletonPayload) (*model.Roadmap, []model.RoadmapGoal) {
	roadmap := &model.Roadmap{
		SessionID:              sessionID,
		UserRequest:            userRequest,
		TotalEstimatedWeeks:    payload.TotalEstimatedWeeks,
		GraduationProjectTitle: payload.GraduationProjectTitle,
		GraduationProject:      payload.GraduationProject,
		Status:                 model.RoadmapDraft,
	}

	goals := make([]model.RoadmapGoal, 0, len(payload.Goals))
	for _, g := range payload.Goals {
		prereqs, _ := json.Marshal(g.Prerequisites)
		goals = append(goals, model.RoadmapGoal{
			GoalNumber:     g.GoalNumber,
			Title:          g.Title,
			Description:    g.Description,
			Priority:       g.Priority,
			SkillLevel:     model.SkillLevel(g.SkillLevel),
			EstimatedHours: g.EstimatedHours,
			Prerequisites:  prereqs,
		})
	}
	return roadmap, goals
}

// CreateSkeleton 调模型生成骨架并整体落库，会话已有路线图时拒绝
func (s *RoadmapService) CreateSkeleton(ctx context.Context, sessionID uint, userRequest, userExperience string) (*model.Roadmap, []model.RoadmapGoal, error) {
	if _, err := s.roadmapRepo.FindBySessionID(sessionID); err == nil {
		return nil, nil, util.ErrRoadmapExists
	} else if !errors.Is(err, util.ErrRoadmapNotFound) {
		return nil, nil, err
	}

	cvSummary := ""
	if session, err := s.sessionRepo.FindByID(sessionID); err == nil {
		if cv, err := s.cvRepo.FindLatestByUser(session.UserID); err == nil {
			cvSummary = cv.Summary
		}
	}
	if userExperience != "" {
		cvSummary = cvSummary + "\n" + userExperience
	}

	tpl, err := s.prompts.Get("createroadmapskeleton")
	if err != nil {
		return nil, nil, err
	}
	system, user := tpl.Render(map[string]string{
		"user_request": userRequest,
		"cv_summary":   cvSummary,
	})

	var payload skeletonPayload
	if err := s.ai.ExecuteStructured(ctx, system, user, tpl.Temperature, &payload); err != nil {
		return nil, nil, err
	}
	if verr := validateSkeleton(&payload); verr != nil {
		return nil, nil, verr
	}

	var (
		roadmap *model.Roadmap
		goals   []model.RoadmapGoal
	)
	err = persistRetry(func() error {
		roadmap, goals = skeletonToModels(sessionID, userRequest, &payload)
		return s.roadmapRepo.CreateWithGoals(roadmap, goals)
	})
	if err != nil {
		return nil, nil, err
	}
	return roadmap, goals, nil
}

// EditSkeleton 在草稿阶段整体重写骨架，目标列表原子替换
func (s *RoadmapService) EditSkeleton(ctx context.Context, sessionID uint, editRequest string) (*model.Roadmap, []model.RoadmapGoal, error) {
	roadmap, err := s.roadmapRepo.FindBySessionID(sessionID)
	if err != nil {
		return nil, nil, err
	}
	if roadmap.Status != model.RoadmapDraft {
		return nil, nil, fmt.Errorf("路线图已开始执行，骨架不可再编辑")
	}

	goals, err := s.roadmapRepo.Goals(roadmap.ID)
	if err != nil {
		return nil, nil, err
	}
	current, err := json.Marshal(map[string]interface{}{
		"title":                    roadmap.UserRequest,
		"total_estimated_weeks":    roadmap.TotalEstimatedWeeks,
		"graduation_project_title": roadmap.GraduationProjectTitle,
		"graduation_project":       roadmap.GraduationProject,
		"goals":                    goals,
	})
	if err != nil {
		return nil, nil, err
	}

	tpl, err := s.prompts.Get("editroadmapskeleton")
	if err != nil {
		return nil, nil, err
	}
	system, user := tpl.Render(map[string]string{
		"current_roadmap": string(current),
		"edit_request":    editRequest,
	})

	var payload skeletonPayload
	if err := s.ai.ExecuteStructured(ctx, system, user, tpl.Temperature, &payload); err != nil {
		return nil, nil, err
	}
	if verr := validateSkeleton(&payload); verr != nil {
		return nil, nil, verr
	}

	roadmap.TotalEstimatedWeeks = payload.TotalEstimatedWeeks
	roadmap.GraduationProjectTitle = payload.GraduationProjectTitle
	roadmap.GraduationProject = payload.GraduationProject

	var newGoals []model.RoadmapGoal
	err = persistRetry(func() error {
		_, newGoals = skeletonToModels(sessionID, roadmap.UserRequest, &payload)
		return s.roadmapRepo.ReplaceGoals(roadmap, newGoals)
	})
	if err != nil {
		return nil, nil, err
	}
	return roadmap, newGoals, nil
}

// Start 把草稿路线图转入执行中，会话随之进入学习阶段
func (s *RoadmapService) Start(sessionID, userID uint) (*model.Roadmap, error) {
	if _, err := s.sessionRepo.FindByIDForUser(sessionID, userID); err != nil {
		return nil, err
	}
	roadmap, err := s.roadmapRepo.FindBySessionID(sessionID)
	if err != nil {
		return nil, err
	}
	if roadmap.Status != model.RoadmapDraft {
		return nil, fmt.Errorf("路线图当前状态为 %s，无法启动", roadmap.Status)
	}
	roadmap.Status = model.RoadmapInProgress
	if err := s.roadmapRepo.Update(roadmap); err != nil {
		return nil, err
	}
	return roadmap, nil
}

func (s *RoadmapService) Get(sessionID, userID uint) (*model.Roadmap, []model.RoadmapGoal, error) {
	if _, err := s.sessionRepo.FindByIDForUser(sessionID, userID); err != nil {
		return nil, nil, err
	}
	roadmap, err := s.roadmapRepo.FindBySessionID(sessionID)
	if err != nil {
		return nil, nil, err
	}
	goals, err := s.roadmapRepo.Goals(roadmap.ID)
	if err != nil {
		return nil, nil, err
	}
	return roadmap, goals, nil
}

// RecomputeGoalCompletion 重算目标完成度：全部材料完成且（若有测验）已通过才算完成。
// 路线图全部目标完成时联动置为 completed
func (s *RoadmapService) RecomputeGoalCompletion(goalID, userID uint) error {
	goal, err := s.roadmapRepo.FindGoalByID(goalID)
	if err != nil {
		return err
	}

	total, completed, err := s.materialRepo.Counts(goalID)
	if err != nil {
		return err
	}

	completion := 0.0
	if total > 0 {
		completion = float64(completed) / float64(total) * 100
	}
	done := total > 0 && completed == total

	if quiz, err := s.quizRepo.FindByGoal(goalID); err == nil {
		passed, err := s.quizRepo.HasPassed(quiz.ID, userID)
		if err != nil {
			return err
		}
		done = done && passed
	} else if !errors.Is(err, util.ErrQuizNotFound) {
		return err
	}

	goal.Completion = completion
	goal.IsCompleted = done
	if err := s.roadmapRepo.UpdateGoal(goal); err != nil {
		return err
	}

	if done {
		totalGoals, completedGoals, err := s.roadmapRepo.GoalCounts(goal.RoadmapID)
		if err != nil {
			return err
		}
		if totalGoals > 0 && completedGoals == totalGoals {
			return s.roadmapRepo.UpdateStatus(goal.RoadmapID, model.RoadmapCompleted)
		}
	}
	return nil
}

// EnsureGoalOwner 沿 目标→路线图→会话 校验归属，归属不符返回 ErrPermissionDenied
func (s *RoadmapService) EnsureGoalOwner(goalID, userID uint) (*model.RoadmapGoal, error) {
	goal, err := s.roadmapRepo.FindGoalByID(goalID)
	if err != nil {
		return nil, err
	}
	roadmap, err := s.roadmapRepo.FindByID(goal.RoadmapID)
	if err != nil {
		return nil, err
	}
	if _, err := s.sessionRepo.FindByIDForUser(roadmap.SessionID, userID); err != nil {
		return nil, err
	}
	return goal, nil
}

// ProgressStats 会话维度的学习进度汇总
type ProgressStats struct {
	RoadmapStatus      model.RoadmapStatus `json:"roadmapStatus"`
	TotalGoals         int                 `json:"totalGoals"`
	CompletedGoals     int                 `json:"completedGoals"`
	TotalMaterials     int                 `json:"totalMaterials"`
	CompletedMaterials int                 `json:"completedMaterials"`
	TotalQuizzes       int                 `json:"totalQuizzes"`
	QuizzesPassed      int                 `json:"quizzesPassed"`
	EstimatedHours     int                 `json:"estimatedHours"`
	ActualHours        int                 `json:"actualHours"`
	OverallCompletion  float64             `json:"overallCompletion"` // 0-100，目标完成度均值
}

func (s *RoadmapService) Progress(sessionID, userID uint) (*ProgressStats, error) {
	if _, err := s.sessionRepo.FindByIDForUser(sessionID, userID); err != nil {
		return nil, err
	}
	roadmap, err := s.roadmapRepo.FindBySessionID(sessionID)
	if err != nil {
		return nil, err
	}
	goals, err := s.roadmapRepo.Goals(roadmap.ID)
	if err != nil {
		return nil, err
	}

	stats := &ProgressStats{RoadmapStatus: roadmap.Status, TotalGoals: len(goals)}
	var completionSum float64
	for _, goal := range goals {
		if goal.IsCompleted {
			stats.CompletedGoals++
		}
		stats.EstimatedHours += goal.EstimatedHours
		stats.ActualHours += goal.ActualHours
		completionSum += goal.Completion

		total, completed, err := s.materialRepo.Counts(goal.ID)
		if err != nil {
			return nil, err
		}
		stats.TotalMaterials += int(total)
		stats.CompletedMaterials += int(completed)

		quiz, err := s.quizRepo.FindByGoal(goal.ID)
		if errors.Is(err, util.ErrQuizNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		stats.TotalQuizzes++
		passed, err := s.quizRepo.HasPassed(quiz.ID, userID)
		if err != nil {
			return nil, err
		}
		if passed {
			stats.QuizzesPassed++
		}
	}
	if len(goals) > 0 {
		stats.OverallCompletion = completionSum / float64(len(goals))
	}
	return stats, nil
}

// LogGoalHours 记录目标实际投入时长
func (s *RoadmapService) LogGoalHours(sessionID, userID uint, goalNumber, hours int) (*model.RoadmapGoal, error) {
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
	goal.ActualHours += hours
	if err := s.roadmapRepo.UpdateGoal(goal); err != nil {
		return nil, err
	}
	return goal, nil
}
