package quizzes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/aura-quiz/backend/internal/apperr"
	"github.com/aura-quiz/backend/internal/models"
	"github.com/aura-quiz/backend/internal/store"
	"github.com/aura-quiz/backend/pkg/storage"
	"github.com/aura-quiz/backend/pkg/validate"
)

// ErrExportsDisabled is returned by ExportToStorage when no object store is configured.
var ErrExportsDisabled = errors.New("quiz exports are not configured")

// ExportStore persists export documents and signs download links for them.
type ExportStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
}

// ExportLocation describes an uploaded export document.
type ExportLocation struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	DownloadURL string `json:"download_url"`
}

// SetExportStore enables ExportToStorage.
func (s *Service) SetExportStore(es ExportStore) {
	s.exports = es
}

// Export returns the portable document of a quiz.
func (s *Service) Export(ctx context.Context, id int64) (*models.QuizDocument, error) {
	full, err := s.GetQuizWithQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	doc := &models.QuizDocument{
		Title:       full.Title,
		Description: full.Description,
		Questions:   make([]models.QuestionDocument, 0, len(full.Questions)),
	}
	for _, q := range full.Questions {
		qd := models.QuestionDocument{
			QuestionText:  q.QuestionText,
			QuestionType:  q.QuestionType,
			OrderIndex:    q.OrderIndex,
			AnswerOptions: make([]models.AnswerOptionInput, 0, len(q.AnswerOptions)),
		}
		for _, o := range q.AnswerOptions {
			qd.AnswerOptions = append(qd.AnswerOptions, models.AnswerOptionInput{
				OptionText: o.OptionText,
				IsCorrect:  o.IsCorrect,
				OrderIndex: o.OrderIndex,
			})
		}
		doc.Questions = append(doc.Questions, qd)
	}
	return doc, nil
}

// ExportToStorage uploads the quiz document as JSON and returns where it lives.
func (s *Service) ExportToStorage(ctx context.Context, id int64) (*ExportLocation, error) {
	if s.exports == nil {
		return nil, ErrExportsDisabled
	}
	doc, err := s.Export(ctx, id)
	if err != nil {
		return nil, err
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, apperr.Internal(err, "failed to encode quiz export")
	}

	key := storage.ExportKey(id)
	url, err := s.exports.Upload(ctx, key, storage.ContentTypeJSON, bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, apperr.Internal(err, "failed to upload quiz export")
	}
	download, err := s.exports.PresignDownload(ctx, key)
	if err != nil {
		return nil, apperr.Internal(err, "failed to sign export download")
	}
	s.logger.Info("quiz exported", zap.Int64("quiz_id", id), zap.String("key", key), zap.Int("bytes", len(raw)))
	return &ExportLocation{Key: key, URL: url, DownloadURL: download}, nil
}

// Import creates a quiz owned by createdBy from a document. Either every
// question is created or nothing is.
func (s *Service) Import(ctx context.Context, createdBy int64, doc models.QuizDocument) (*models.QuizWithQuestions, error) {
	if err := validate.Struct(doc); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}

	var out *models.QuizWithQuestions
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		quiz, err := createQuiz(ctx, tx, models.CreateQuizInput{
			Title:       doc.Title,
			Description: doc.Description,
			CreatedBy:   createdBy,
		})
		if err != nil {
			return err
		}
		out = &models.QuizWithQuestions{Quiz: *quiz, Questions: make([]models.QuestionWithOptions, 0, len(doc.Questions))}
		for _, qd := range doc.Questions {
			q, err := createQuestion(ctx, tx, models.CreateQuestionInput{
				QuizID:        quiz.ID,
				QuestionText:  qd.QuestionText,
				QuestionType:  qd.QuestionType,
				OrderIndex:    qd.OrderIndex,
				AnswerOptions: qd.AnswerOptions,
			})
			if err != nil {
				return err
			}
			out.Questions = append(out.Questions, *q)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortQuestions(out.Questions)
	s.logger.Info("quiz imported",
		zap.Int64("quiz_id", out.ID),
		zap.Int64("created_by", createdBy),
		zap.Int("questions", len(out.Questions)),
	)
	return out, nil
}
