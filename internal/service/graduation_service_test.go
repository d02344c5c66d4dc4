package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadmap_ai_backend/internal/model"
	"roadmap_ai_backend/internal/util"
)

// graduationJSON 生成五道题的毕业项目载荷，字数上下限可指定
func graduationJSON(minChars, maxChars int) string {
	questions := make([]string, 0, 5)
	for i := 1; i <= 5; i++ {
		questions = append(questions, fmt.Sprintf(`{
			"question_slug": "question-%d",
			"prompt": "请阐述主题 %d",
			"difficulty": "intermediate",
			"evaluation_rubric": {"depth": "论述深度", "accuracy": "技术准确性"},
			"expected_competencies": ["concurrency"],
			"answer_min_chars": %d,
			"answer_max_chars": %d
		}`, i, i, minChars, maxChars))
	}
	return fmt.Sprintf(`{"title": "在线书店 API", "description": "综合考核", "questions": [%s]}`,
		strings.Join(questions, ","))
}

// seedCompletedRoadmap 落一张目标全部完成的路线图
func seedCompletedRoadmap(t *testing.T, env *testEnv, sessionID uint) *model.Roadmap {
	t.Helper()
	roadmap := env.seedRoadmap(t, sessionID, model.RoadmapInProgress, "Go 基础", "并发编程")
	goals, err := env.roadmapRepo.Goals(roadmap.ID)
	require.NoError(t, err)
	for i := range goals {
		goals[i].IsCompleted = true
		require.NoError(t, env.roadmapRepo.UpdateGoal(&goals[i]))
	}
	return roadmap
}

func TestGraduationCreateProject(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t, 1)
	seedCompletedRoadmap(t, env, session.ID)
	env.model.structured = structuredFromJSON(graduationJSON(0, 0))

	project, questions, err := env.gradSvc.CreateProject(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, "在线书店 API", project.Title)
	require.Len(t, questions, 5)

	// 未给定时套默认字数区间
	assert.Equal(t, 500, questions[0].AnswerMinChars)
	assert.Equal(t, 2500, questions[0].AnswerMaxChars)

	// 一个会话只有一个毕业项目
	_, _, err = env.gradSvc.CreateProject(context.Background(), session.ID)
	require.ErrorIs(t, err, util.ErrProjectExists)
}

func TestGraduationCreateRequiresAllGoalsDone(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t, 1)
	env.seedRoadmap(t, session.ID, model.RoadmapInProgress, "Go 基础", "并发编程")

	_, _, err := env.gradSvc.CreateProject(context.Background(), session.ID)
	assert.Error(t, err)
}

func TestValidateGraduationQuestionCount(t *testing.T) {
	payload := &graduationPayload{}
	verr := validateGraduation(payload)
	require.NotNil(t, verr)
	assert.Equal(t, "questions", verr.Field)
	assert.Contains(t, verr.Message, "5")
}

// fullAnswers 给全部五题各写一份指定字数的答案
func fullAnswers(length int) map[string]string {
	answers := make(map[string]string, 5)
	for i := 1; i <= 5; i++ {
		answers[fmt.Sprintf("question-%d", i)] = strings.Repeat("答", length)
	}
	return answers
}

func TestGraduationSubmitAnswerLengthBounds(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t, 1)
	seedCompletedRoadmap(t, env, session.ID)
	env.model.structured = structuredFromJSON(graduationJSON(10, 20))

	_, _, err := env.gradSvc.CreateProject(context.Background(), session.ID)
	require.NoError(t, err)

	env.model.structured = structuredFromJSON(`{"score": 0.85, "feedback": "论述清楚", "rubric_scores": {"depth": 0.8}}`)

	answers := func(firstLen int) map[string]string {
		all := fullAnswers(15)
		all["question-1"] = strings.Repeat("答", firstLen)
		return all
	}

	// 闭区间：差一个字就拒绝，正好落在边界则接受
	_, err = env.gradSvc.SubmitAnswers(context.Background(), session.ID, 1, answers(9))
	require.ErrorIs(t, err, util.ErrAnswerTooShort)

	_, err = env.gradSvc.SubmitAnswers(context.Background(), session.ID, 1, answers(21))
	require.ErrorIs(t, err, util.ErrAnswerTooLong)

	submissions, err := env.gradSvc.SubmitAnswers(context.Background(), session.ID, 1, answers(10))
	require.NoError(t, err)
	require.Len(t, submissions, 5)
	require.NotNil(t, submissions[0].EvaluationScore)
	assert.InDelta(t, 0.85, *submissions[0].EvaluationScore, 0.001)

	submissions, err = env.gradSvc.SubmitAnswers(context.Background(), session.ID, 1, answers(20))
	require.NoError(t, err)
	require.Len(t, submissions, 5)
}

func TestGraduationSubmitRequiresAllAnswers(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t, 1)
	seedCompletedRoadmap(t, env, session.ID)
	env.model.structured = structuredFromJSON(graduationJSON(10, 20))

	_, _, err := env.gradSvc.CreateProject(context.Background(), session.ID)
	require.NoError(t, err)

	// 少交一题也不行，必须一次交齐全部五题
	partial := fullAnswers(15)
	delete(partial, "question-5")
	_, err = env.gradSvc.SubmitAnswers(context.Background(), session.ID, 1, partial)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "5")

	_, err = env.gradSvc.SubmitAnswers(context.Background(), session.ID, 1,
		map[string]string{"question-1": strings.Repeat("答", 15)})
	require.Error(t, err)

	subs, err := env.gradSvc.ListSubmissions(session.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestGraduationEvaluationFailureRecorded(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t, 1)
	seedCompletedRoadmap(t, env, session.ID)
	env.model.structured = structuredFromJSON(graduationJSON(5, 50))

	_, _, err := env.gradSvc.CreateProject(context.Background(), session.ID)
	require.NoError(t, err)

	// 批改时模型挂了，提交仍然保留，错误记录在提交上
	env.model.structured = func(system, user string, out interface{}) error {
		return &ModelTransportError{StatusCode: 500, Err: fmt.Errorf("internal error")}
	}

	submissions, err := env.gradSvc.SubmitAnswers(context.Background(), session.ID, 1, fullAnswers(10))
	require.NoError(t, err)
	require.Len(t, submissions, 5)
	for _, sub := range submissions {
		assert.Nil(t, sub.EvaluationScore)
		assert.NotEmpty(t, sub.EvaluationError)
	}

	// 模型恢复后可以重新批改同一份提交
	env.model.structured = structuredFromJSON(`{"score": 0.72, "feedback": "合格", "rubric_scores": {}}`)
	submission, err := env.gradSvc.EvaluateAnswer(context.Background(), session.ID, "question-2")
	require.NoError(t, err)
	require.NotNil(t, submission.EvaluationScore)
	assert.InDelta(t, 0.72, *submission.EvaluationScore, 0.001)
	assert.Empty(t, submission.EvaluationError)
}

func TestGraduationOutOfRangeScoreRejected(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t, 1)
	seedCompletedRoadmap(t, env, session.ID)
	env.model.structured = structuredFromJSON(graduationJSON(5, 50))

	_, _, err := env.gradSvc.CreateProject(context.Background(), session.ID)
	require.NoError(t, err)

	// 模型给出百分制分数也算越界，分数只认 [0,1]
	env.model.structured = structuredFromJSON(`{"score": 85, "feedback": "超纲"}`)
	submissions, err := env.gradSvc.SubmitAnswers(context.Background(), session.ID, 1, fullAnswers(10))
	require.NoError(t, err)
	require.Len(t, submissions, 5)
	assert.Nil(t, submissions[0].EvaluationScore)
	assert.Contains(t, submissions[0].EvaluationError, "[0,1]")
}
