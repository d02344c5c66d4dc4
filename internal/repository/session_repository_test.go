package repository

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadmap_ai_backend/internal/model"
	"roadmap_ai_backend/internal/util"
)

func TestFindByIDForUserOwnership(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)
	session := seedSession(t, repo, 1)

	found, err := repo.FindByIDForUser(session.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, session.ID, found.ID)

	_, err = repo.FindByIDForUser(session.ID, 2)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = repo.FindByIDForUser(9999, 1)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}

func TestRecentMessagesWindow(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)
	session := seedSession(t, repo, 1)

	for i := 1; i <= 30; i++ {
		role := model.RoleUser
		if i%2 == 0 {
			role = model.RoleAssistant
		}
		require.NoError(t, repo.CreateMessage(&model.SessionMessage{
			SessionID: session.ID,
			Role:      role,
			Content:   fmt.Sprintf("消息 %d", i),
		}))
	}

	// 只取最近 10 条，且按时间正序返回
	messages, err := repo.RecentMessages(session.ID, 10)
	require.NoError(t, err)
	require.Len(t, messages, 10)
	assert.Equal(t, "消息 21", messages[0].Content)
	assert.Equal(t, "消息 30", messages[9].Content)
}

func TestRecentMessagesFewerThanWindow(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)
	session := seedSession(t, repo, 1)

	require.NoError(t, repo.CreateMessage(&model.SessionMessage{
		SessionID: session.ID, Role: model.RoleUser, Content: "唯一一条",
	}))

	messages, err := repo.RecentMessages(session.ID, 20)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "唯一一条", messages[0].Content)
}

func TestListMessagesPagination(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)
	session := seedSession(t, repo, 1)

	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.CreateMessage(&model.SessionMessage{
			SessionID: session.ID, Role: model.RoleUser, Content: fmt.Sprintf("消息 %d", i),
		}))
	}

	messages, total, err := repo.ListMessages(session.ID, 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, messages, 2)
	assert.Equal(t, "消息 3", messages[0].Content)
}
