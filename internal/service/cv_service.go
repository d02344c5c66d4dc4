package service

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"roadmap_ai_backend/internal/model"
	"roadmap_ai_backend/internal/repository"
	"roadmap_ai_backend/internal/util"
	"roadmap_ai_backend/pkg/prompt"
)

// 简历原文最多送这么多字符给模型做摘要
const cvTextLimit = 20000

type CVService struct {
	cvRepo  *repository.CVRepository
	storage StorageProvider
	ai      ModelClient
	prompts prompt.Provider
}

func NewCVService(cvRepo *repository.CVRepository, storage StorageProvider, ai ModelClient, prompts prompt.Provider) *CVService {
	return &CVService{cvRepo: cvRepo, storage: storage, ai: ai, prompts: prompts}
}

// Upload 保存简历原件，抽取文本并调模型生成摘要。
// 摘要失败不阻断上传，留待后续重试
func (s *CVService) Upload(ctx context.Context, userID uint, fileName, contentType string, data []byte) (*model.UserCV, error) {
	text, err := extractText(fileName, data)
	if err != nil {
		return nil, err
	}
	if len([]rune(text)) > cvTextLimit {
		text = string([]rune(text)[:cvTextLimit])
	}

	objectKey := fmt.Sprintf("cv/%d/%s_%s", userID, model.GenerateUUID(), filepath.Base(fileName))
	if err := s.storage.Upload(ctx, objectKey, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, err
	}

	cv := &model.UserCV{
		UserID:      userID,
		FileName:    fileName,
		ObjectKey:   objectKey,
		RawText:     text,
		SizeBytes:   int64(len(data)),
		ContentType: contentType,
	}

	if summary, err := s.summarize(ctx, text); err == nil {
		cv.Summary = summary
	}

	if err := s.cvRepo.Create(cv); err != nil {
		return nil, err
	}
	return cv, nil
}

func (s *CVService) Latest(userID uint) (*model.UserCV, error) {
	return s.cvRepo.FindLatestByUser(userID)
}

// Resummarize 对已上传的简历重新生成摘要
func (s *CVService) Resummarize(ctx context.Context, userID uint) (*model.UserCV, error) {
	cv, err := s.cvRepo.FindLatestByUser(userID)
	if err != nil {
		return nil, err
	}
	summary, err := s.summarize(ctx, cv.RawText)
	if err != nil {
		return nil, err
	}
	cv.Summary = summary
	if err := s.cvRepo.Update(cv); err != nil {
		return nil, err
	}
	return cv, nil
}

func (s *CVService) summarize(ctx context.Context, text string) (string, error) {
	tpl, err := s.prompts.Get("extractcvinformation")
	if err != nil {
		return "", err
	}
	system, user := tpl.Render(map[string]string{"cv_text": text})

	result, err := s.ai.ExecuteWithTools(ctx, []AIChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, nil, tpl.Temperature)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Content), nil
}

func extractText(fileName string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return extractPDFText(data)
	case ".txt", ".md":
		return string(data), nil
	default:
		return "", util.ErrUnsupportedCVFormat
	}
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("解析 PDF 失败: %w", err)
	}

	var sb strings.Builder
	for page := 1; page <= reader.NumPage(); page++ {
		p := reader.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("PDF 中没有可提取的文本")
	}
	return sb.String(), nil
}
