package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"roadmap_ai_backend/internal/model"
	"roadmap_ai_backend/internal/repository"
	"roadmap_ai_backend/internal/util"
	"roadmap_ai_backend/pkg/prompt"
)

// 毕业考核固定五道题
const graduationQuestionCount = 5

type GraduationService struct {
	gradRepo     *repository.GraduationRepository
	roadmapRepo  *repository.RoadmapRepository
	materialRepo *repository.MaterialRepository
	sessionRepo  *repository.SessionRepository
	ai           ModelClient
	prompts      prompt.Provider
}

func NewGraduationService(
	gradRepo *repository.GraduationRepository,
	roadmapRepo *repository.RoadmapRepository,
	materialRepo *repository.MaterialRepository,
	sessionRepo *repository.SessionRepository,
	ai ModelClient,
	prompts prompt.Provider,
) *GraduationService {
	return &GraduationService{
		gradRepo:     gradRepo,
		roadmapRepo:  roadmapRepo,
		materialRepo: materialRepo,
		sessionRepo:  sessionRepo,
		ai:           ai,
		prompts:      prompts,
	}
}

// graduationPayload 模型结构化输出的毕业项目与考核题
type graduationPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Questions   []struct {
		QuestionSlug         string            `json:"question_slug"`
		Prompt               string            `json:"prompt"`
		Rationale            string            `json:"rationale"`
		GoalsCovered         []int             `json:"goals_covered"`
		MaterialsCovered     []string          `json:"materials_covered"`
		ExpectedCompetencies []string          `json:"expected_competencies"`
		EvaluationRubric     map[string]string `json:"evaluation_rubric"`
		Difficulty           string            `json:"difficulty"`
		EstimatedTimeMinutes int               `json:"estimated_time_minutes"`
		AnswerMinChars       int               `json:"answer_min_chars"`
		AnswerMaxChars       int               `json:"answer_max_chars"`
		RequiresCitations    bool              `json:"requires_citations"`
	} `json:"questions"`
}

func validateGraduation(payload *graduationPayload) *ToolError {
	if len(payload.Questions) != graduationQuestionCount {
		return NewSchemaValidationError("questions",
			fmt.Sprintf("考核题必须恰好 %d 道，模型给出 %d 道", graduationQuestionCount, len(payload.Questions)))
	}
	for i, q := range payload.Questions {
		path := fmt.Sprintf("questions[%d]", i)
		if q.QuestionSlug == "" {
			return NewSchemaValidationError(path+".question_slug", "题目标识不能为空")
		}
		if q.Prompt == "" {
			return NewSchemaValidationError(path+".prompt", "题干不能为空")
		}
		switch model.QuestionDifficulty(q.Difficulty) {
		case model.DifficultyIntroductory, model.DifficultyIntermediate, model.DifficultyAdvanced:
		default:
			return NewSchemaValidationError(path+".difficulty", "取值必须是 introductory/intermediate/advanced 之一")
		}
	}
	return nil
}

// CreateProject 全部目标完成后生成毕业项目与五道考核题，整体落库
func (s *GraduationService) CreateProject(ctx context.Context, sessionID uint) (*model.GraduationProject, []model.GraduationQuestion, error) {
	roadmap, err := s.roadmapRepo.FindBySessionID(sessionID)
	if err != nil {
		return nil, nil, err
	}

	if _, err := s.gradRepo.FindBySessionID(sessionID); err == nil {
		return nil, nil, util.ErrProjectExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	total, completed, err := s.roadmapRepo.GoalCounts(roadmap.ID)
	if err != nil {
		return nil, nil, err
	}
	if total == 0 || completed < total {
		return nil, nil, fmt.Errorf("尚有 %d 个目标未完成，不能进入毕业考核", total-completed)
	}

	goals, err := s.roadmapRepo.Goals(roadmap.ID)
	if err != nil {
		return nil, nil, err
	}
	progress := make([]map[string]interface{}, 0, len(goals))
	for _, goal := range goals {
		materials, err := s.materialRepo.ListByGoal(goal.ID)
		if err != nil {
			return nil, nil, err
		}
		titles := make([]string, 0, len(materials))
		for _, m := range materials {
			titles = append(titles, m.Title)
		}
		progress = append(progress, map[string]interface{}{
			"goal_number": goal.GoalNumber,
			"title":       goal.Title,
			"materials":   titles,
		})
	}

	roadmapJSON, _ := json.Marshal(map[string]interface{}{
		"user_request":             roadmap.UserRequest,
		"graduation_project_title": roadmap.GraduationProjectTitle,
		"graduation_project":       roadmap.GraduationProject,
	})
	progressJSON, _ := json.Marshal(progress)

	tpl, err := s.prompts.Get("creategraduationproject")
	if err != nil {
		return nil, nil, err
	}
	system, user := tpl.Render(map[string]string{
		"roadmap":  string(roadmapJSON),
		"progress": string(progressJSON),
	})

	var payload graduationPayload
	if err := s.ai.ExecuteStructured(ctx, system, user, tpl.Temperature, &payload); err != nil {
		return nil, nil, err
	}
	if verr := validateGraduation(&payload); verr != nil {
		return nil, nil, verr
	}

	var (
		project   *model.GraduationProject
		questions []model.GraduationQuestion
	)
	err = persistRetry(func() error {
		project = &model.GraduationProject{
			RoadmapID:   roadmap.ID,
			SessionID:   sessionID,
			Title:       payload.Title,
			Description: payload.Description,
		}
		questions = buildGraduationQuestions(&payload)
		return s.gradRepo.CreateWithQuestions(project, questions)
	})
	if err != nil {
		return nil, nil, err
	}
	return project, questions, nil
}

func buildGraduationQuestions(payload *graduationPayload) []model.GraduationQuestion {
	questions := make([]model.GraduationQuestion, 0, graduationQuestionCount)
	for _, q := range payload.Questions {
		goalsCovered, _ := json.Marshal(q.GoalsCovered)
		materialsCovered, _ := json.Marshal(q.MaterialsCovered)
		competencies, _ := json.Marshal(q.ExpectedCompetencies)
		rubric, _ := json.Marshal(q.EvaluationRubric)

		question := model.GraduationQuestion{
			QuestionSlug:         q.QuestionSlug,
			Prompt:               q.Prompt,
			Rationale:            q.Rationale,
			GoalsCovered:         goalsCovered,
			MaterialsCovered:     materialsCovered,
			ExpectedCompetencies: competencies,
			EvaluationRubric:     rubric,
			Difficulty:           model.QuestionDifficulty(q.Difficulty),
			EstimatedTimeMinutes: q.EstimatedTimeMinutes,
			AnswerMinChars:       q.AnswerMinChars,
			AnswerMaxChars:       q.AnswerMaxChars,
			RequiresCitations:    q.RequiresCitations,
		}
		if question.AnswerMinChars <= 0 {
			question.AnswerMinChars = 500
		}
		if question.AnswerMaxChars <= 0 {
			question.AnswerMaxChars = 2500
		}
		questions = append(questions, question)
	}
	return questions
}

func (s *GraduationService) GetProject(sessionID, userID uint) (*model.GraduationProject, []model.GraduationQuestion, error) {
	if _, err := s.sessionRepo.FindByIDForUser(sessionID, userID); err != nil {
		return nil, nil, err
	}
	project, err := s.gradRepo.FindBySessionID(sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, util.ErrProjectNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	questions, err := s.gradRepo.Questions(project.ID)
	if err != nil {
		return nil, nil, err
	}
	return project, questions, nil
}

// SubmitAnswers 一次提交全部题目的答案：长度按字符数校验，边界取闭区间；
// 全部通过校验后落库，再逐题调模型批改，批改失败只记在该份提交上
func (s *GraduationService) SubmitAnswers(ctx context.Context, sessionID, userID uint, answers map[string]string) ([]model.GraduationSubmission, error) {
	if _, err := s.sessionRepo.FindByIDForUser(sessionID, userID); err != nil {
		return nil, err
	}
	project, err := s.gradRepo.FindBySessionID(sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	questions, err := s.gradRepo.Questions(project.ID)
	if err != nil {
		return nil, err
	}
	// 必须一次交齐全部题目
	if len(answers) != len(questions) {
		return nil, fmt.Errorf("必须一次提交全部 %d 题的答案，收到 %d 题", len(questions), len(answers))
	}

	submissions := make([]model.GraduationSubmission, 0, len(answers))
	questionsBySlug := make(map[string]*model.GraduationQuestion, len(answers))
	for slug, answer := range answers {
		question, err := s.gradRepo.FindQuestionBySlug(sessionID, slug)
		if err != nil {
			return nil, err
		}

		length := len([]rune(answer))
		if length < question.AnswerMinChars {
			return nil, fmt.Errorf("%w: 题目 %s 答案 %d 字，至少需要 %d 字",
				util.ErrAnswerTooShort, slug, length, question.AnswerMinChars)
		}
		if length > question.AnswerMaxChars {
			return nil, fmt.Errorf("%w: 题目 %s 答案 %d 字，最多允许 %d 字",
				util.ErrAnswerTooLong, slug, length, question.AnswerMaxChars)
		}

		questionsBySlug[slug] = question
		submissions = append(submissions, model.GraduationSubmission{
			SessionID:  sessionID,
			QuestionID: question.ID,
			AnswerText: answer,
		})
	}

	if err := s.gradRepo.CreateSubmissions(submissions); err != nil {
		return nil, err
	}

	for i := range submissions {
		question := questionByID(questionsBySlug, submissions[i].QuestionID)
		if question == nil {
			continue
		}
		if err := s.evaluate(ctx, &submissions[i], question); err != nil {
			submissions[i].EvaluationError = err.Error()
		}
		if err := s.gradRepo.UpdateSubmission(&submissions[i]); err != nil {
			return nil, err
		}
	}
	return submissions, nil
}

func questionByID(bySlug map[string]*model.GraduationQuestion, id uint) *model.GraduationQuestion {
	for _, q := range bySlug {
		if q.ID == id {
			return q
		}
	}
	return nil
}

// evaluationPayload 模型结构化输出的批改结果
type evaluationPayload struct {
	Score        float64            `json:"score"`
	Feedback     string             `json:"feedback"`
	RubricScores map[string]float64 `json:"rubric_scores"`
}

func (s *GraduationService) evaluate(ctx context.Context, submission *model.GraduationSubmission, question *model.GraduationQuestion) error {
	tpl, err := s.prompts.Get("evaluategraduationprojectanswer")
	if err != nil {
		return err
	}
	system, user := tpl.Render(map[string]string{
		"question_prompt": question.Prompt,
		"rubric":          string(question.EvaluationRubric),
		"competencies":    string(question.ExpectedCompetencies),
		"answer":          submission.AnswerText,
	})

	var payload evaluationPayload
	if err := s.ai.ExecuteStructured(ctx, system, user, tpl.Temperature, &payload); err != nil {
		return err
	}
	if payload.Score < 0 || payload.Score > 1 {
		return fmt.Errorf("模型给出的分数 %v 超出 [0,1]", payload.Score)
	}

	rubricScores, _ := json.Marshal(payload.RubricScores)
	now := time.Now()
	submission.EvaluationScore = &payload.Score
	submission.EvaluationFeedback = payload.Feedback
	submission.RubricScores = rubricScores
	submission.EvaluationError = ""
	submission.EvaluatedAt = &now
	return nil
}

// EvaluateAnswer 按题目标识批改会话内最近一次提交，聊天工具调用入口
func (s *GraduationService) EvaluateAnswer(ctx context.Context, sessionID uint, questionSlug string) (*model.GraduationSubmission, error) {
	question, err := s.gradRepo.FindQuestionBySlug(sessionID, questionSlug)
	if err != nil {
		return nil, err
	}

	all, err := s.gradRepo.ListSubmissions(sessionID)
	if err != nil {
		return nil, err
	}
	var latest *model.GraduationSubmission
	for i := range all {
		if all[i].QuestionID == question.ID {
			latest = &all[i]
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("题目 %s 还没有提交过答案", questionSlug)
	}

	if err := s.evaluate(ctx, latest, question); err != nil {
		latest.EvaluationError = err.Error()
	}
	if err := s.gradRepo.UpdateSubmission(latest); err != nil {
		return nil, err
	}
	return latest, nil
}

func (s *GraduationService) ListSubmissions(sessionID, userID uint) ([]model.GraduationSubmission, error) {
	if _, err := s.sessionRepo.FindByIDForUser(sessionID, userID); err != nil {
		return nil, err
	}
	return s.gradRepo.ListSubmissions(sessionID)
}
