package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadmap_ai_backend/internal/model"
)

func TestResolvePhaseTable(t *testing.T) {
	tests := []struct {
		name      string
		snap      PhaseSnapshot
		phase     Phase
		tools     []ToolName
		ambiguous bool
	}{
		{
			name:  "无路线图",
			snap:  PhaseSnapshot{},
			phase: PhaseRoadmap,
			tools: []ToolName{ToolCreateRoadmapSkeleton, ToolEditRoadmapSkeleton},
		},
		{
			name:  "草稿路线图",
			snap:  PhaseSnapshot{Roadmap: &model.Roadmap{Status: model.RoadmapDraft}, TotalGoals: 5},
			phase: PhaseRoadmap,
			tools: []ToolName{ToolCreateRoadmapSkeleton, ToolEditRoadmapSkeleton},
		},
		{
			name:  "进行中且有未完成目标",
			snap:  PhaseSnapshot{Roadmap: &model.Roadmap{Status: model.RoadmapInProgress}, TotalGoals: 5, CompletedGoals: 2},
			phase: PhaseLearning,
			tools: []ToolName{ToolCreateLearningMaterial, ToolCreateQuizForGoal},
		},
		{
			name:  "所有目标已完成",
			snap:  PhaseSnapshot{Roadmap: &model.Roadmap{Status: model.RoadmapInProgress}, TotalGoals: 5, CompletedGoals: 5},
			phase: PhaseGraduation,
			tools: []ToolName{ToolCreateGraduationProject, ToolEvaluateGraduationAnswer},
		},
		{
			name:  "路线图整体标记完成",
			snap:  PhaseSnapshot{Roadmap: &model.Roadmap{Status: model.RoadmapCompleted}, TotalGoals: 3, CompletedGoals: 3},
			phase: PhaseGraduation,
			tools: []ToolName{ToolCreateGraduationProject, ToolEvaluateGraduationAnswer},
		},
		{
			name:      "进行中但目标为空",
			snap:      PhaseSnapshot{Roadmap: &model.Roadmap{Status: model.RoadmapInProgress}},
			phase:     PhaseRoadmap,
			tools:     []ToolName{ToolCreateRoadmapSkeleton, ToolEditRoadmapSkeleton},
			ambiguous: true,
		},
		{
			name:      "已归档路线图",
			snap:      PhaseSnapshot{Roadmap: &model.Roadmap{Status: model.RoadmapArchived}, TotalGoals: 4, CompletedGoals: 1},
			phase:     PhaseRoadmap,
			tools:     []ToolName{ToolCreateRoadmapSkeleton, ToolEditRoadmapSkeleton},
			ambiguous: true,
		},
		{
			name:      "未知状态",
			snap:      PhaseSnapshot{Roadmap: &model.Roadmap{Status: "corrupted"}, TotalGoals: 4},
			phase:     PhaseRoadmap,
			tools:     []ToolName{ToolCreateRoadmapSkeleton, ToolEditRoadmapSkeleton},
			ambiguous: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := ResolvePhase(tt.snap)
			assert.Equal(t, tt.phase, decision.Phase)
			assert.Equal(t, tt.tools, decision.Tools)
			assert.Equal(t, tt.ambiguous, decision.Ambiguous)
		})
	}
}

func TestResolvePhaseIdempotent(t *testing.T) {
	snap := PhaseSnapshot{
		Roadmap:        &model.Roadmap{Status: model.RoadmapInProgress},
		TotalGoals:     3,
		CompletedGoals: 1,
	}

	first := ResolvePhase(snap)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ResolvePhase(snap))
	}
}

func TestPhaseServiceResolveFromDB(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t, 1)

	// 没有路线图时处于 roadmap 阶段
	decision, err := env.phaseSvc.Resolve(session.ID)
	require.NoError(t, err)
	assert.Equal(t, PhaseRoadmap, decision.Phase)
	assert.False(t, decision.Ambiguous)

	roadmap := env.seedRoadmap(t, session.ID, model.RoadmapInProgress, "Go 基础", "并发编程")

	decision, err = env.phaseSvc.Resolve(session.ID)
	require.NoError(t, err)
	assert.Equal(t, PhaseLearning, decision.Phase)

	// 目标全部完成后进入毕业阶段
	goals, err := env.roadmapRepo.Goals(roadmap.ID)
	require.NoError(t, err)
	for i := range goals {
		goals[i].IsCompleted = true
		require.NoError(t, env.roadmapRepo.UpdateGoal(&goals[i]))
	}

	decision, err = env.phaseSvc.Resolve(session.ID)
	require.NoError(t, err)
	assert.Equal(t, PhaseGraduation, decision.Phase)
	assert.False(t, decision.Ambiguous)
}
