package service

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"roadmap_ai_backend/internal/model"
	"roadmap_ai_backend/internal/repository"
	"roadmap_ai_backend/pkg/database"
	"roadmap_ai_backend/pkg/prompt"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// 内存库绑定单个连接，避免连接池拿到空库
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// fakeModel 用闭包脚本化模型行为的 ModelClient 假实现
type fakeModel struct {
	withTools  func(messages []AIChatMessage, tools []AIToolDefinition) (*AIResult, error)
	structured func(system, user string, out interface{}) error
}

func (f *fakeModel) ExecuteWithTools(ctx context.Context, messages []AIChatMessage, tools []AIToolDefinition, temperature float64) (*AIResult, error) {
	if f.withTools == nil {
		return &AIResult{Content: "好的"}, nil
	}
	return f.withTools(messages, tools)
}

func (f *fakeModel) ExecuteStructured(ctx context.Context, system, user string, temperature float64, out interface{}) error {
	if f.structured == nil {
		return fmt.Errorf("unexpected structured call")
	}
	return f.structured(system, user, out)
}

func testPrompts() prompt.Provider {
	names := []string{
		"master",
		"createroadmapskeleton",
		"editroadmapskeleton",
		"createlearningmaterial",
		"createquizforgoal",
		"creategraduationproject",
		"evaluategraduationprojectanswer",
		"extractcvinformation",
	}
	templates := make(map[string]*prompt.Template, len(names))
	for _, name := range names {
		templates[name] = &prompt.Template{
			Name:         name,
			SystemPrompt: "system " + name,
			UserPrompt:   "user " + name,
			Temperature:  0.3,
		}
	}
	return &prompt.Static{Templates: templates}
}

type testEnv struct {
	db *gorm.DB

	sessionRepo  *repository.SessionRepository
	roadmapRepo  *repository.RoadmapRepository
	materialRepo *repository.MaterialRepository
	quizRepo     *repository.QuizRepository
	gradRepo     *repository.GraduationRepository
	cvRepo       *repository.CVRepository

	model *fakeModel

	sessionSvc  *SessionService
	phaseSvc    *PhaseService
	roadmapSvc  *RoadmapService
	materialSvc *MaterialService
	quizSvc     *QuizService
	gradSvc     *GraduationService
	dispatcher  *ToolDispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	prompts := testPrompts()
	fake := &fakeModel{}

	env := &testEnv{
		db:           db,
		sessionRepo:  repository.NewSessionRepository(db),
		roadmapRepo:  repository.NewRoadmapRepository(db),
		materialRepo: repository.NewMaterialRepository(db),
		quizRepo:     repository.NewQuizRepository(db),
		gradRepo:     repository.NewGraduationRepository(db),
		cvRepo:       repository.NewCVRepository(db),
		model:        fake,
	}

	env.sessionSvc = NewSessionService(env.sessionRepo)
	env.phaseSvc = NewPhaseService(env.roadmapRepo)
	env.roadmapSvc = NewRoadmapService(env.roadmapRepo, env.sessionRepo, env.materialRepo, env.quizRepo, env.cvRepo, fake, prompts)
	env.materialSvc = NewMaterialService(env.materialRepo, env.roadmapRepo, env.sessionRepo, env.roadmapSvc, fake, prompts)
	env.quizSvc = NewQuizService(env.quizRepo, env.roadmapRepo, env.materialRepo, env.sessionRepo, env.roadmapSvc, fake, prompts)
	env.gradSvc = NewGraduationService(env.gradRepo, env.roadmapRepo, env.materialRepo, env.sessionRepo, fake, prompts)
	env.dispatcher = NewToolDispatcher(env.roadmapSvc, env.materialSvc, env.quizSvc, env.gradSvc)
	return env
}

func (e *testEnv) orchestrator() *Orchestrator {
	return NewOrchestrator(
		e.sessionSvc, e.sessionRepo, e.cvRepo, e.phaseSvc, e.dispatcher,
		e.model, testPrompts(), nil, 20, 120,
	)
}

func (e *testEnv) createSession(t *testing.T, userID uint) *model.Session {
	t.Helper()
	session, err := e.sessionSvc.Create(userID, "测试会话", "")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return session
}

// seedRoadmap 直接落一张路线图与目标，跳过模型调用
func (e *testEnv) seedRoadmap(t *testing.T, sessionID uint, status model.RoadmapStatus, goalTitles ...string) *model.Roadmap {
	t.Helper()

	roadmap := &model.Roadmap{
		SessionID:   sessionID,
		UserRequest: "学习 Go 后端开发",
		Status:      status,
	}
	goals := make([]model.RoadmapGoal, 0, len(goalTitles))
	for i, title := range goalTitles {
		goals = append(goals, model.RoadmapGoal{
			GoalNumber: i + 1,
			Title:      title,
			Priority:   i + 1,
			SkillLevel: model.SkillBeginner,
		})
	}
	if err := e.roadmapRepo.CreateWithGoals(roadmap, goals); err != nil {
		t.Fatalf("seed roadmap: %v", err)
	}
	return roadmap
}
