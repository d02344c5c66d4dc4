package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadmap_ai_backend/internal/model"
	"roadmap_ai_backend/internal/util"
)

func seedSession(t *testing.T, repo *SessionRepository, userID uint) *model.Session {
	t.Helper()
	session := &model.Session{UserID: userID, Name: "测试会话"}
	require.NoError(t, repo.Create(session))
	return session
}

func TestCreateWithGoalsRollsBackAtomically(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionRepository(db)
	roadmaps := NewRoadmapRepository(db)
	session := seedSession(t, sessions, 1)

	// 目标序号重复会撞唯一索引，整个事务连同路线图一起回滚
	roadmap := &model.Roadmap{SessionID: session.ID, UserRequest: "学习 Go"}
	goals := []model.RoadmapGoal{
		{GoalNumber: 1, Title: "基础", SkillLevel: model.SkillBeginner},
		{GoalNumber: 1, Title: "重号", SkillLevel: model.SkillBeginner},
	}
	err := roadmaps.CreateWithGoals(roadmap, goals)
	require.Error(t, err)

	_, err = roadmaps.FindBySessionID(session.ID)
	assert.ErrorIs(t, err, util.ErrRoadmapNotFound)

	var goalCount int64
	require.NoError(t, db.Model(&model.RoadmapGoal{}).Count(&goalCount).Error)
	assert.Zero(t, goalCount)
}

func TestReplaceGoalsSwapsWholeList(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionRepository(db)
	roadmaps := NewRoadmapRepository(db)
	session := seedSession(t, sessions, 1)

	roadmap := &model.Roadmap{SessionID: session.ID, UserRequest: "学习 Go"}
	require.NoError(t, roadmaps.CreateWithGoals(roadmap, []model.RoadmapGoal{
		{GoalNumber: 1, Title: "旧目标一", SkillLevel: model.SkillBeginner},
		{GoalNumber: 2, Title: "旧目标二", SkillLevel: model.SkillBeginner},
	}))

	roadmap.TotalEstimatedWeeks = 6
	require.NoError(t, roadmaps.ReplaceGoals(roadmap, []model.RoadmapGoal{
		{GoalNumber: 1, Title: "新目标", SkillLevel: model.SkillIntermediate},
	}))

	stored, err := roadmaps.FindByID(roadmap.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, stored.TotalEstimatedWeeks)

	goals, err := roadmaps.Goals(roadmap.ID)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "新目标", goals[0].Title)
}

func TestGoalCounts(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionRepository(db)
	roadmaps := NewRoadmapRepository(db)
	session := seedSession(t, sessions, 1)

	roadmap := &model.Roadmap{SessionID: session.ID, UserRequest: "学习 Go"}
	require.NoError(t, roadmaps.CreateWithGoals(roadmap, []model.RoadmapGoal{
		{GoalNumber: 1, Title: "一", SkillLevel: model.SkillBeginner, IsCompleted: true},
		{GoalNumber: 2, Title: "二", SkillLevel: model.SkillBeginner},
		{GoalNumber: 3, Title: "三", SkillLevel: model.SkillBeginner},
	}))

	total, completed, err := roadmaps.GoalCounts(roadmap.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.EqualValues(t, 1, completed)
}

func TestFindGoalByNumber(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionRepository(db)
	roadmaps := NewRoadmapRepository(db)
	session := seedSession(t, sessions, 1)

	roadmap := &model.Roadmap{SessionID: session.ID, UserRequest: "学习 Go"}
	require.NoError(t, roadmaps.CreateWithGoals(roadmap, []model.RoadmapGoal{
		{GoalNumber: 1, Title: "一", SkillLevel: model.SkillBeginner},
		{GoalNumber: 2, Title: "二", SkillLevel: model.SkillBeginner},
	}))

	goal, err := roadmaps.FindGoal(roadmap.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "二", goal.Title)

	_, err = roadmaps.FindGoal(roadmap.ID, 9)
	assert.Error(t, err)
}
