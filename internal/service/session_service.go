package service

import (
	"roadmap_ai_backend/internal/model"
	"roadmap_ai_backend/internal/repository"
	"roadmap_ai_backend/internal/util"
)

type SessionService struct {
	sessionRepo *repository.SessionRepository
}

func NewSessionService(sessionRepo *repository.SessionRepository) *SessionService {
	return &SessionService{sessionRepo: sessionRepo}
}

func (s *SessionService) Create(userID uint, name, description string) (*model.Session, error) {
	if name == "" {
		name = "新的学习会话"
	}
	session := &model.Session{
		UserID:      userID,
		Name:        name,
		Description: description,
		Status:      model.SessionActive,
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) Get(id, userID uint) (*model.Session, error) {
	return s.sessionRepo.FindByIDForUser(id, userID)
}

func (s *SessionService) List(userID uint, page, pageSize int) ([]model.Session, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return s.sessionRepo.ListByUser(userID, page, pageSize)
}

func (s *SessionService) Update(id, userID uint, name, description string) (*model.Session, error) {
	session, err := s.sessionRepo.FindByIDForUser(id, userID)
	if err != nil {
		return nil, err
	}
	if name != "" {
		session.Name = name
	}
	if description != "" {
		session.Description = description
	}
	if err := s.sessionRepo.Update(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) Archive(id, userID uint) error {
	if _, err := s.sessionRepo.FindByIDForUser(id, userID); err != nil {
		return err
	}
	return s.sessionRepo.UpdateStatus(id, model.SessionArchived)
}

func (s *SessionService) Delete(id, userID uint) error {
	if _, err := s.sessionRepo.FindByIDForUser(id, userID); err != nil {
		return err
	}
	return s.sessionRepo.Delete(id)
}

func (s *SessionService) Messages(id, userID uint, page, pageSize int) ([]model.SessionMessage, int64, error) {
	if _, err := s.sessionRepo.FindByIDForUser(id, userID); err != nil {
		return nil, 0, err
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	return s.sessionRepo.ListMessages(id, page, pageSize)
}

// EnsureWritable 确认会话存在、归属正确且未归档，聊天入口使用
func (s *SessionService) EnsureWritable(id, userID uint) (*model.Session, error) {
	session, err := s.sessionRepo.FindByIDForUser(id, userID)
	if err != nil {
		return nil, err
	}
	if session.Status == model.SessionArchived {
		return nil, util.ErrSessionArchived
	}
	return session, nil
}
