package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadmap_ai_backend/internal/model"
	"roadmap_ai_backend/internal/util"
)

func TestMaterialCreateForGoal(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t, 1)
	env.seedRoadmap(t, session.ID, model.RoadmapInProgress, "并发编程")
	env.model.structured = structuredFromJSON(materialJSON)

	material, err := env.materialSvc.CreateForGoal(context.Background(), session.ID, 1, "想要一篇入门文章")
	require.NoError(t, err)
	assert.Equal(t, "Goroutine 入门", material.Title)
	assert.NotZero(t, material.ID)

	// 不存在的目标序号
	_, err = env.materialSvc.CreateForGoal(context.Background(), session.ID, 99, "")
	assert.Error(t, err)
}

func TestMaterialCompletionDrivesGoalProgress(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t, 1)
	roadmap := env.seedRoadmap(t, session.ID, model.RoadmapInProgress, "并发编程")
	goal, err := env.roadmapRepo.FindGoal(roadmap.ID, 1)
	require.NoError(t, err)

	first := &model.LearningMaterial{GoalID: goal.ID, Title: "材料一", Content: "正文"}
	second := &model.LearningMaterial{GoalID: goal.ID, Title: "材料二", Content: "正文"}
	require.NoError(t, env.materialRepo.Create(first))
	require.NoError(t, env.materialRepo.Create(second))

	// 完成一半
	_, err = env.materialSvc.MarkCompleted(first.ID, 1, nil)
	require.NoError(t, err)

	goal, err = env.roadmapRepo.FindGoalByID(goal.ID)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, goal.Completion, 0.01)
	assert.False(t, goal.IsCompleted)

	// 全部完成且无测验，目标完成，路线图随之完成
	rating := 5
	_, err = env.materialSvc.MarkCompleted(second.ID, 1, &rating)
	require.NoError(t, err)

	goal, err = env.roadmapRepo.FindGoalByID(goal.ID)
	require.NoError(t, err)
	assert.True(t, goal.IsCompleted)

	roadmap, err = env.roadmapRepo.FindByID(roadmap.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoadmapCompleted, roadmap.Status)
}

func TestMaterialCompletionWaitsForQuizPass(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t, 1)
	roadmap := env.seedRoadmap(t, session.ID, model.RoadmapInProgress, "并发编程")
	goal, err := env.roadmapRepo.FindGoal(roadmap.ID, 1)
	require.NoError(t, err)

	material := &model.LearningMaterial{GoalID: goal.ID, Title: "材料一", Content: "正文"}
	require.NoError(t, env.materialRepo.Create(material))
	quiz, questions := seedQuiz(t, env, goal.ID)

	// 材料全完成但测验未通过，目标不算完成
	_, err = env.materialSvc.MarkCompleted(material.ID, 1, nil)
	require.NoError(t, err)

	goal, err = env.roadmapRepo.FindGoalByID(goal.ID)
	require.NoError(t, err)
	assert.False(t, goal.IsCompleted)
	assert.InDelta(t, 100.0, goal.Completion, 0.01)

	// 通过测验后目标完成
	attempt, err := env.quizSvc.StartAttempt(quiz.ID, 1)
	require.NoError(t, err)
	_, err = env.quizSvc.SubmitAttempt(attempt.ID, 1, map[uint]string{
		questions[0].ID: "A",
		questions[1].ID: "B",
	})
	require.NoError(t, err)

	goal, err = env.roadmapRepo.FindGoalByID(goal.ID)
	require.NoError(t, err)
	assert.True(t, goal.IsCompleted)
}

func TestMaterialRatingValidation(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t, 1)
	roadmap := env.seedRoadmap(t, session.ID, model.RoadmapInProgress, "并发编程")
	goal, err := env.roadmapRepo.FindGoal(roadmap.ID, 1)
	require.NoError(t, err)

	material := &model.LearningMaterial{GoalID: goal.ID, Title: "材料一", Content: "正文"}
	require.NoError(t, env.materialRepo.Create(material))

	bad := 6
	_, err = env.materialSvc.MarkCompleted(material.ID, 1, &bad)
	assert.Error(t, err)
}

func TestMaterialCompleteOwnershipCheck(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t, 1)
	roadmap := env.seedRoadmap(t, session.ID, model.RoadmapInProgress, "并发编程")
	goal, err := env.roadmapRepo.FindGoal(roadmap.ID, 1)
	require.NoError(t, err)

	material := &model.LearningMaterial{GoalID: goal.ID, Title: "材料一", Content: "正文"}
	require.NoError(t, env.materialRepo.Create(material))

	// 不能替别人完成材料
	_, err = env.materialSvc.MarkCompleted(material.ID, 2, nil)
	require.ErrorIs(t, err, util.ErrPermissionDenied)

	got, err := env.materialRepo.FindByID(material.ID)
	require.NoError(t, err)
	assert.False(t, got.IsCompleted)
}
