package repository

import (
	"errors"

	"gorm.io/gorm"

	"roadmap_ai_backend/internal/model"
	"roadmap_ai_backend/internal/util"
)

type SessionRepository struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

func (r *SessionRepository) Create(session *model.Session) error {
	return r.DB.Create(session).Error
}

func (r *SessionRepository) FindByID(id uint) (*model.Session, error) {
	var session model.Session
	err := r.DB.First(&session, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindByIDForUser 校验归属，避免跨用户读取会话
func (r *SessionRepository) FindByIDForUser(id, userID uint) (*model.Session, error) {
	session, err := r.FindByID(id)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	return session, nil
}

func (r *SessionRepository) ListByUser(userID uint, page, pageSize int) ([]model.Session, int64, error) {
	var sessions []model.Session
	var total int64

	query := r.DB.Model(&model.Session{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("updated_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&sessions).Error
	return sessions, total, err
}

func (r *SessionRepository) Update(session *model.Session) error {
	return r.DB.Save(session).Error
}

func (r *SessionRepository) UpdateStatus(id uint, status model.SessionStatus) error {
	return r.DB.Model(&model.Session{}).Where("id = ?", id).
		Update("status", status).Error
}

func (r *SessionRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Session{}, id).Error
}

func (r *SessionRepository) CreateMessage(message *model.SessionMessage) error {
	return r.DB.Create(message).Error
}

// RecentMessages 按时间倒序取窗口内消息，再翻转为时间正序
func (r *SessionRepository) RecentMessages(sessionID uint, limit int) ([]model.SessionMessage, error) {
	var messages []model.SessionMessage
	err := r.DB.Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *SessionRepository) ListMessages(sessionID uint, page, pageSize int) ([]model.SessionMessage, int64, error) {
	var messages []model.SessionMessage
	var total int64

	query := r.DB.Model(&model.SessionMessage{}).Where("session_id = ?", sessionID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&messages).Error
	return messages, total, err
}
