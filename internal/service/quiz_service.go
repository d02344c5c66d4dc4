package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"roadmap_ai_backend/internal/model"
	"roadmap_ai_backend/internal/repository"
	"roadmap_ai_backend/internal/util"
	"roadmap_ai_backend/pkg/prompt"
)

type QuizService struct {
	quizRepo     *repository.QuizRepository
	roadmapRepo  *repository.RoadmapRepository
	materialRepo *repository.MaterialRepository
	sessionRepo  *repository.SessionRepository
	roadmapSvc   *RoadmapService
	ai           ModelClient
	prompts      prompt.Provider
}

func NewQuizService(
	quizRepo *repository.QuizRepository,
	roadmapRepo *repository.RoadmapRepository,
	materialRepo *repository.MaterialRepository,
	sessionRepo *repository.SessionRepository,
	roadmapSvc *RoadmapService,
	ai ModelClient,
	prompts prompt.Provider,
) *QuizService {
	return &QuizService{
		quizRepo:     quizRepo,
		roadmapRepo:  roadmapRepo,
		materialRepo: materialRepo,
		sessionRepo:  sessionRepo,
		roadmapSvc:   roadmapSvc,
		ai:           ai,
		prompts:      prompts,
	}
}

// quizPayload 模型结构化输出的测验
type quizPayload struct {
	Title                  string `json:"title"`
	Description            string `json:"description"`
	TimeLimitMinutes       int    `json:"time_limit_minutes"`
	PassingScorePercentage int    `json:"passing_score_percentage"`
	Questions              []struct {
		QuestionOrder int               `json:"question_order"`
		QuestionText  string            `json:"question_text"`
		Options       map[string]string `json:"options"`
		CorrectAnswer string            `json:"correct_answer"`
		Explanation   string            `json:"explanation"`
		Points        int               `json:"points"`
	} `json:"questions"`
}

func validateQuiz(payload *quizPayload) *ToolError {
	if len(payload.Questions) == 0 {
		return NewSchemaValidationError("questions", "测验至少要有一道题")
	}
	for i, q := range payload.Questions {
		path := fmt.Sprintf("questions[%d]", i)
		if q.QuestionText == "" {
			return NewSchemaValidationError(path+".question_text", "题干不能为空")
		}
		if len(q.Options) < 2 {
			return NewSchemaValidationError(path+".options", "至少要有两个选项")
		}
		if _, ok := q.Options[q.CorrectAnswer]; !ok {
			return NewSchemaValidationError(path+".correct_answer", "正确答案必须是选项之一")
		}
	}
	return nil
}

// CreateForGoal 为目标生成测验，同一目标只允许一份
func (s *QuizService) CreateForGoal(ctx context.Context, sessionID uint, goalNumber, questionCount int) (*model.Quiz, error) {
	roadmap, err := s.roadmapRepo.FindBySessionID(sessionID)
	if err != nil {
		return nil, err
	}
	goal, err := s.roadmapRepo.FindGoal(roadmap.ID, goalNumber)
	if err != nil {
		return nil, err
	}
	if _, err := s.quizRepo.FindByGoal(goal.ID); err == nil {
		return nil, fmt.Errorf("目标 %d 已有测验", goalNumber)
	}

	materials, err := s.materialRepo.ListByGoal(goal.ID)
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(materials))
	for _, m := range materials {
		titles = append(titles, m.Title)
	}
	titleList, _ := json.Marshal(titles)

	if questionCount <= 0 {
		questionCount = 5
	}

	tpl, err := s.prompts.Get("createquizforgoal")
	if err != nil {
		return nil, err
	}
	system, user := tpl.Render(map[string]string{
		"goal_title":       goal.Title,
		"goal_description": goal.Description,
		"material_titles":  string(titleList),
		"question_count":   strconv.Itoa(questionCount),
	})

	var payload quizPayload
	if err := s.ai.ExecuteStructured(ctx, system, user, tpl.Temperature, &payload); err != nil {
		return nil, err
	}
	if verr := validateQuiz(&payload); verr != nil {
		return nil, verr
	}

	var quiz *model.Quiz
	err = persistRetry(func() error {
		quiz = &model.Quiz{
			GoalID:                 goal.ID,
			Title:                  payload.Title,
			Description:            payload.Description,
			TimeLimitMinutes:       payload.TimeLimitMinutes,
			PassingScorePercentage: float64(payload.PassingScorePercentage),
		}
		if quiz.TimeLimitMinutes <= 0 {
			quiz.TimeLimitMinutes = 30
		}
		if quiz.PassingScorePercentage <= 0 {
			quiz.PassingScorePercentage = 70
		}

		questions := make([]model.QuizQuestion, 0, len(payload.Questions))
		for _, q := range payload.Questions {
			options, _ := json.Marshal(q.Options)
			points := q.Points
			if points <= 0 {
				points = 1
			}
			questions = append(questions, model.QuizQuestion{
				QuestionOrder: q.QuestionOrder,
				QuestionText:  q.QuestionText,
				Options:       options,
				CorrectAnswer: q.CorrectAnswer,
				Explanation:   q.Explanation,
				Points:        points,
			})
		}
		return s.quizRepo.CreateWithQuestions(quiz, questions)
	})
	if err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) Get(quizID, userID uint) (*model.Quiz, []model.QuizQuestion, error) {
	quiz, err := s.quizRepo.FindByID(quizID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.roadmapSvc.EnsureGoalOwner(quiz.GoalID, userID); err != nil {
		return nil, nil, err
	}
	questions, err := s.quizRepo.Questions(quizID)
	if err != nil {
		return nil, nil, err
	}
	return quiz, questions, nil
}

// StartAttempt 开始一次答题，已用完 max_attempts 时拒绝
func (s *QuizService) StartAttempt(quizID, userID uint) (*model.QuizAttempt, error) {
	quiz, err := s.quizRepo.FindByID(quizID)
	if err != nil {
		return nil, err
	}
	if _, err := s.roadmapSvc.EnsureGoalOwner(quiz.GoalID, userID); err != nil {
		return nil, err
	}

	used, err := s.quizRepo.CountAttempts(quizID, userID)
	if err != nil {
		return nil, err
	}
	if int(used) >= quiz.MaxAttempts {
		return nil, util.ErrAttemptsExhausted
	}

	attempt := &model.QuizAttempt{
		QuizID:         quizID,
		UserID:         userID,
		AttemptNumber:  int(used) + 1,
		Status:         model.AttemptInProgress,
		TotalQuestions: quiz.TotalQuestions,
		StartedAt:      time.Now(),
	}
	if err := s.quizRepo.CreateAttempt(attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// SubmitAttempt 按题批改并落库，通过则重算目标完成度。
// answers 的键是题目 ID
func (s *QuizService) SubmitAttempt(attemptID, userID uint, answers map[uint]string) (*model.QuizAttempt, error) {
	attempt, err := s.quizRepo.FindAttempt(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	if attempt.Status != model.AttemptInProgress {
		return nil, util.ErrAttemptNotActive
	}

	quiz, err := s.quizRepo.FindByID(attempt.QuizID)
	if err != nil {
		return nil, err
	}
	questions, err := s.quizRepo.Questions(quiz.ID)
	if err != nil {
		return nil, err
	}

	correct := 0
	records := make([]model.QuizAnswer, 0, len(questions))
	for _, q := range questions {
		given := answers[q.ID]
		isCorrect := given != "" && given == q.CorrectAnswer
		earned := 0
		if isCorrect {
			correct++
			earned = q.Points
		}
		records = append(records, model.QuizAnswer{
			QuestionID:     q.ID,
			SelectedAnswer: given,
			IsCorrect:      isCorrect,
			PointsEarned:   earned,
		})
	}

	score := 0.0
	if len(questions) > 0 {
		score = float64(correct) / float64(len(questions)) * 100
	}

	now := time.Now()
	attempt.Status = model.AttemptCompleted
	attempt.TotalQuestions = len(questions)
	attempt.CorrectAnswers = correct
	attempt.ScorePercentage = score
	attempt.Passed = score >= float64(quiz.PassingScorePercentage)
	attempt.CompletedAt = &now
	attempt.TimeSpentMinutes = int(now.Sub(attempt.StartedAt).Minutes())

	if err := s.quizRepo.FinishAttempt(attempt, records); err != nil {
		return nil, err
	}

	if attempt.Passed {
		if err := s.roadmapSvc.RecomputeGoalCompletion(quiz.GoalID, userID); err != nil {
			return nil, err
		}
	}
	return attempt, nil
}

// AbandonAttempt 放弃答题，不计入次数限制
func (s *QuizService) AbandonAttempt(attemptID, userID uint) error {
	attempt, err := s.quizRepo.FindAttempt(attemptID)
	if err != nil {
		return err
	}
	if attempt.UserID != userID {
		return util.ErrPermissionDenied
	}
	if attempt.Status != model.AttemptInProgress {
		return util.ErrAttemptNotActive
	}
	attempt.Status = model.AttemptAbandoned
	return s.quizRepo.UpdateAttempt(attempt)
}

func (s *QuizService) ListAttempts(quizID, userID uint) ([]model.QuizAttempt, error) {
	return s.quizRepo.ListAttempts(quizID, userID)
}
