package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadmap_ai_backend/internal/model"
	"roadmap_ai_backend/internal/util"
)

func TestSessionCreateDefaultsName(t *testing.T) {
	env := newTestEnv(t)

	session, err := env.sessionSvc.Create(1, "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Name)
	assert.Equal(t, model.SessionActive, session.Status)
}

func TestSessionListScopedToUser(t *testing.T) {
	env := newTestEnv(t)
	env.createSession(t, 1)
	env.createSession(t, 1)
	env.createSession(t, 2)

	sessions, total, err := env.sessionSvc.List(1, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, sessions, 2)
}

func TestSessionEnsureWritable(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t, 1)

	_, err := env.sessionSvc.EnsureWritable(session.ID, 1)
	require.NoError(t, err)

	// 他人会话
	_, err = env.sessionSvc.EnsureWritable(session.ID, 2)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	// 归档后拒绝写入
	require.NoError(t, env.sessionSvc.Archive(session.ID, 1))
	_, err = env.sessionSvc.EnsureWritable(session.ID, 1)
	assert.ErrorIs(t, err, util.ErrSessionArchived)
}

func TestSessionUpdateKeepsUnsetFields(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t, 1)

	updated, err := env.sessionSvc.Update(session.ID, 1, "改名后的会话", "")
	require.NoError(t, err)
	assert.Equal(t, "改名后的会话", updated.Name)
	assert.Equal(t, session.Description, updated.Description)

	// 他人会话
	_, err = env.sessionSvc.Update(session.ID, 2, "越权", "")
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}
