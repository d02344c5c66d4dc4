package service

import (
	"errors"

	"go.uber.org/zap"

	"roadmap_ai_backend/internal/model"
	"roadmap_ai_backend/internal/repository"
	"roadmap_ai_backend/internal/util"
	"roadmap_ai_backend/pkg/logger"
)

// Phase 会话所处的粗粒度阶段，决定本轮可向模型开放哪些工具
type Phase string

const (
	PhaseRoadmap    Phase = "roadmap"
	PhaseLearning   Phase = "learning"
	PhaseGraduation Phase = "graduation"
)

// PhaseSnapshot 阶段判定所需的持久化状态切片，由 PhaseService 组装
type PhaseSnapshot struct {
	Roadmap        *model.Roadmap
	TotalGoals     int
	CompletedGoals int
}

// PhaseDecision 阶段判定结果。Ambiguous 表示状态异常时的保守回退，
// 由调用方记录日志，不对用户暴露
type PhaseDecision struct {
	Phase     Phase
	Tools     []ToolName
	Ambiguous bool
}

// ResolvePhase 纯函数：相同快照必然得到相同阶段与工具集。
// 状态不明时一律回退到 Roadmap 阶段，宁可停在原地也不往前猜
func ResolvePhase(snap PhaseSnapshot) PhaseDecision {
	if snap.Roadmap == nil {
		return PhaseDecision{Phase: PhaseRoadmap, Tools: phaseTools(PhaseRoadmap)}
	}

	switch snap.Roadmap.Status {
	case model.RoadmapDraft:
		return PhaseDecision{Phase: PhaseRoadmap, Tools: phaseTools(PhaseRoadmap)}
	case model.RoadmapInProgress, model.RoadmapCompleted:
		if snap.TotalGoals == 0 {
			// 路线图已启动却没有任何目标，状态异常
			return PhaseDecision{Phase: PhaseRoadmap, Tools: phaseTools(PhaseRoadmap), Ambiguous: true}
		}
		if snap.CompletedGoals >= snap.TotalGoals {
			return PhaseDecision{Phase: PhaseGraduation, Tools: phaseTools(PhaseGraduation)}
		}
		return PhaseDecision{Phase: PhaseLearning, Tools: phaseTools(PhaseLearning)}
	default:
		// archived 或未知状态
		return PhaseDecision{Phase: PhaseRoadmap, Tools: phaseTools(PhaseRoadmap), Ambiguous: true}
	}
}

func phaseTools(phase Phase) []ToolName {
	switch phase {
	case PhaseRoadmap:
		return []ToolName{ToolCreateRoadmapSkeleton, ToolEditRoadmapSkeleton}
	case PhaseLearning:
		return []ToolName{ToolCreateLearningMaterial, ToolCreateQuizForGoal}
	case PhaseGraduation:
		return []ToolName{ToolCreateGraduationProject, ToolEvaluateGraduationAnswer}
	default:
		return nil
	}
}

// PhaseService 从数据库组装 PhaseSnapshot，判定逻辑本身在 ResolvePhase
type PhaseService struct {
	roadmapRepo *repository.RoadmapRepository
}

func NewPhaseService(roadmapRepo *repository.RoadmapRepository) *PhaseService {
	return &PhaseService{roadmapRepo: roadmapRepo}
}

func (s *PhaseService) Snapshot(sessionID uint) (PhaseSnapshot, error) {
	snap := PhaseSnapshot{}

	roadmap, err := s.roadmapRepo.FindBySessionID(sessionID)
	if errors.Is(err, util.ErrRoadmapNotFound) {
		return snap, nil
	}
	if err != nil {
		return snap, err
	}
	snap.Roadmap = roadmap

	total, completed, err := s.roadmapRepo.GoalCounts(roadmap.ID)
	if err != nil {
		return snap, err
	}
	snap.TotalGoals = int(total)
	snap.CompletedGoals = int(completed)
	return snap, nil
}

// Resolve 组装快照并判定阶段，回退时记录日志
func (s *PhaseService) Resolve(sessionID uint) (PhaseDecision, error) {
	snap, err := s.Snapshot(sessionID)
	if err != nil {
		return PhaseDecision{}, err
	}

	decision := ResolvePhase(snap)
	if decision.Ambiguous {
		logger.Log.Warn("会话状态异常，阶段回退到 roadmap",
			zap.Uint("session_id", sessionID),
			zap.String("roadmap_status", string(snap.Roadmap.Status)),
			zap.Int("total_goals", snap.TotalGoals))
	}
	return decision, nil
}
