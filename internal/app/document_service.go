package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"clonehub/internal/ai"
	"clonehub/internal/apperr"
	"clonehub/internal/model"
	"clonehub/internal/repository"
)

const defaultMaxUploadBytes int64 = 20 << 20

// DocumentService is the only writer of document status.
type DocumentService struct {
	clones    CloneStore
	documents DocumentStore
	gateway   Gateway
	cache     CloneCache
	publisher StatusPublisher
	logger    *zap.Logger

	indexName      string
	maxUploadBytes int64
	now            func() time.Time
}

type DocumentServiceConfig struct {
	IndexName      string
	MaxUploadBytes int64
}

type UploadInput struct {
	CloneID  string
	FileName string
	FileType string
	Data     []byte
}

type UploadResult struct {
	Document *model.CloneDocument `json:"document"`
	Receipt  ai.UploadReceipt     `json:"receipt"`
}

func NewDocumentService(
	clones CloneStore,
	documents DocumentStore,
	gateway Gateway,
	cache CloneCache,
	publisher StatusPublisher,
	cfg DocumentServiceConfig,
	logger *zap.Logger,
) *DocumentService {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		clones:         clones,
		documents:      documents,
		gateway:        gateway,
		cache:          cache,
		publisher:      publisher,
		logger:         logger.Named("document"),
		indexName:      strings.TrimSpace(cfg.IndexName),
		maxUploadBytes: cfg.MaxUploadBytes,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Upload sends a file to the AI service and records it as pending. Nothing
// is recorded when the upload fails.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	fileName := strings.TrimSpace(input.FileName)
	if len(input.Data) == 0 || fileName == "" {
		return nil, apperr.Validation("file is required")
	}
	if int64(len(input.Data)) > s.maxUploadBytes {
		return nil, apperr.Validation(fmt.Sprintf("file exceeds the %d byte upload limit", s.maxUploadBytes))
	}
	if s.indexName == "" {
		return nil, apperr.Configuration("remote index is not configured")
	}

	exists, err := s.clones.Exists(ctx, input.CloneID)
	if err != nil {
		return nil, apperr.Unknown("check clone failed", err)
	}
	if !exists {
		return nil, apperr.NotFound("clone not found")
	}

	fileType := detectFileType(input.FileType, input.Data)
	receipt, err := s.gateway.UploadDocument(ctx, ai.UploadRequest{
		File:      input.Data,
		FileName:  fileName,
		MimeType:  fileType,
		CloneID:   input.CloneID,
		IndexName: s.indexName,
	})
	if err != nil {
		s.logger.Warn("upload document failed",
			zap.String("clone_id", input.CloneID),
			zap.String("file_name", fileName),
			zap.Error(err))
		return nil, err
	}

	doc, err := s.AddDocument(ctx, input.CloneID, fileName, fileType, s.indexName)
	if err != nil {
		return nil, err
	}
	return &UploadResult{Document: doc, Receipt: receipt}, nil
}

// AddDocument records a document as pending.
func (s *DocumentService) AddDocument(ctx context.Context, cloneID, fileName, fileType, indexName string) (*model.CloneDocument, error) {
	if strings.TrimSpace(cloneID) == "" || strings.TrimSpace(fileName) == "" {
		return nil, apperr.Validation("clone_id and file_name are required")
	}
	if strings.TrimSpace(indexName) == "" {
		return nil, apperr.Configuration("remote index is not configured")
	}

	doc := &model.CloneDocument{
		CloneID:         cloneID,
		FileName:        fileName,
		FileType:        fileType,
		Status:          model.DocumentPending,
		RemoteIndexName: indexName,
		UploadedAt:      s.now(),
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, apperr.Unknown("create document failed", err)
	}
	s.invalidate(ctx, cloneID)
	s.logger.Info("document recorded",
		zap.String("document_id", doc.ID),
		zap.String("clone_id", cloneID),
		zap.String("file_type", fileType))
	return doc, nil
}

// UpdateDocumentStatus moves a document forward along
// pending -> processing -> processed|failed. Reporting the current status
// again is a no-op.
func (s *DocumentService) UpdateDocumentStatus(ctx context.Context, id string, status model.DocumentStatus, reason string) (*model.CloneDocument, error) {
	if !status.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown document status %q", status))
	}

	for attempt := 0; attempt < 2; attempt++ {
		doc, err := s.documents.GetByID(ctx, id)
		if err != nil {
			return nil, apperr.Unknown("get document failed", err)
		}
		if doc == nil {
			return nil, apperr.NotFound("document not found")
		}
		if doc.Status == status {
			return doc, nil
		}
		if !doc.Status.CanTransitionTo(status) {
			return nil, apperr.Validation(fmt.Sprintf("document cannot move from %s to %s", doc.Status, status))
		}

		change := repository.StatusChange{From: doc.Status, To: status}
		if status == model.DocumentProcessed {
			now := s.now()
			change.ProcessedAt = &now
		}
		if status == model.DocumentFailed {
			change.ErrorMessage = truncate(strings.TrimSpace(reason), 512)
		}

		ok, err := s.documents.UpdateStatus(ctx, id, change)
		if err != nil {
			return nil, apperr.Unknown("update document status failed", err)
		}
		if !ok {
			// another reporter moved the document; re-validate against its state
			continue
		}

		doc.Status = change.To
		doc.ProcessedAt = change.ProcessedAt
		doc.ErrorMessage = change.ErrorMessage
		s.invalidate(ctx, doc.CloneID)
		s.logger.Info("document status changed",
			zap.String("document_id", id),
			zap.String("from", string(change.From)),
			zap.String("to", string(change.To)))
		return doc, nil
	}
	return nil, apperr.Validation("document status changed concurrently")
}

// ReportDocumentStatus queues a status event for the status worker.
func (s *DocumentService) ReportDocumentStatus(ctx context.Context, event model.DocumentStatusEvent) error {
	if strings.TrimSpace(event.DocumentID) == "" {
		return apperr.Validation("document id is required")
	}
	if !event.Status.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown document status %q", event.Status))
	}
	if event.ReportedAt.IsZero() {
		event.ReportedAt = s.now()
	}
	if s.publisher == nil {
		_, err := s.UpdateDocumentStatus(ctx, event.DocumentID, event.Status, event.ErrorMessage)
		return err
	}
	if err := s.publisher.PublishStatus(ctx, event); err != nil {
		return apperr.Unknown("publish document status failed", err)
	}
	return nil
}

func (s *DocumentService) ListDocuments(ctx context.Context, cloneID string) ([]model.CloneDocument, error) {
	exists, err := s.clones.Exists(ctx, cloneID)
	if err != nil {
		return nil, apperr.Unknown("check clone failed", err)
	}
	if !exists {
		return nil, apperr.NotFound("clone not found")
	}
	docs, err := s.documents.ListByCloneID(ctx, cloneID)
	if err != nil {
		return nil, apperr.Unknown("list documents failed", err)
	}
	if docs == nil {
		docs = []model.CloneDocument{}
	}
	return docs, nil
}

func (s *DocumentService) GetDocument(ctx context.Context, id string) (*model.CloneDocument, error) {
	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Unknown("get document failed", err)
	}
	if doc == nil {
		return nil, apperr.NotFound("document not found")
	}
	return doc, nil
}

func (s *DocumentService) invalidate(ctx context.Context, cloneID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cloneID); err != nil {
		s.logger.Warn("invalidate clone cache failed", zap.String("clone_id", cloneID), zap.Error(err))
	}
}

func detectFileType(declared string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return mimetype.Detect(data).String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
