package app

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clonehub/internal/apperr"
	"clonehub/internal/model"
)

type documentFixture struct {
	svc     *DocumentService
	clones  *memCloneStore
	docs    *memDocumentStore
	gateway *fakeGateway
	cache   *fakeCache
	pub     *fakePublisher
	clone   *model.Clone
}

func newDocumentFixture(t *testing.T, indexName string) *documentFixture {
	t.Helper()
	docs := newMemDocumentStore()
	clones := newMemCloneStore(docs)
	gw := &fakeGateway{}
	cache := newFakeCache()
	pub := &fakePublisher{}

	clone := &model.Clone{Name: "Bot", BasePrompt: "p", Visibility: model.VisibilityGlobal}
	require.NoError(t, clones.Create(context.Background(), clone))

	svc := NewDocumentService(clones, docs, gw, cache, pub, DocumentServiceConfig{
		IndexName:      indexName,
		MaxUploadBytes: 1024,
	}, nil)
	return &documentFixture{svc: svc, clones: clones, docs: docs, gateway: gw, cache: cache, pub: pub, clone: clone}
}

func TestDocumentService_UploadRecordsPendingDocument(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t, "idx")

	res, err := f.svc.Upload(ctx, UploadInput{
		CloneID: f.clone.ID, FileName: "faq.txt", FileType: "text/plain", Data: []byte("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.DocumentPending, res.Document.Status)
	assert.Equal(t, "idx", res.Document.RemoteIndexName)
	assert.Nil(t, res.Document.ProcessedAt)
	assert.False(t, res.Document.UploadedAt.IsZero())
	assert.JSONEq(t, `{"status":"queued"}`, string(res.Receipt))

	require.Len(t, f.gateway.uploads, 1)
	assert.Equal(t, "text/plain", f.gateway.uploads[0].MimeType)
	assert.Equal(t, "idx", f.gateway.uploads[0].IndexName)
	assert.Contains(t, f.cache.invalidated, f.clone.ID)
}

func TestDocumentService_UploadDetectsMissingFileType(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t, "idx")

	pdf := []byte("%PDF-1.4\n%test\n")
	res, err := f.svc.Upload(ctx, UploadInput{
		CloneID: f.clone.ID, FileName: "doc.pdf", FileType: "application/octet-stream", Data: pdf,
	})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", res.Document.FileType)
}

func TestDocumentService_UploadFailureCreatesNoRecord(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t, "idx")
	f.gateway.uploadErr = apperr.Upstream(http.StatusInternalServerError, "indexer crashed")

	_, err := f.svc.Upload(ctx, UploadInput{CloneID: f.clone.ID, FileName: "a.txt", Data: []byte("x")})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUpstream))
	assert.Equal(t, http.StatusInternalServerError, apperr.HTTPStatus(err))
	assert.Equal(t, 0, f.docs.count())
}

func TestDocumentService_UploadPreconditions(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t, "idx")

	_, err := f.svc.Upload(ctx, UploadInput{CloneID: f.clone.ID, FileName: "a.txt"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Upload(ctx, UploadInput{CloneID: f.clone.ID, FileName: "big.bin", Data: make([]byte, 2048)})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Upload(ctx, UploadInput{CloneID: "missing", FileName: "a.txt", Data: []byte("x")})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	noIndex := newDocumentFixture(t, "")
	_, err = noIndex.svc.Upload(ctx, UploadInput{CloneID: noIndex.clone.ID, FileName: "a.txt", Data: []byte("x")})
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))

	assert.Empty(t, f.gateway.uploads)
	assert.Empty(t, noIndex.gateway.uploads)
}

func TestDocumentService_StatusIsMonotonic(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t, "idx")

	doc, err := f.svc.AddDocument(ctx, f.clone.ID, "a.txt", "text/plain", "idx")
	require.NoError(t, err)

	doc, err = f.svc.UpdateDocumentStatus(ctx, doc.ID, model.DocumentProcessing, "")
	require.NoError(t, err)
	assert.Equal(t, model.DocumentProcessing, doc.Status)
	assert.Nil(t, doc.ProcessedAt)

	_, err = f.svc.UpdateDocumentStatus(ctx, doc.ID, model.DocumentPending, "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	doc, err = f.svc.UpdateDocumentStatus(ctx, doc.ID, model.DocumentProcessed, "")
	require.NoError(t, err)
	require.NotNil(t, doc.ProcessedAt)

	// redelivered report of the same state
	again, err := f.svc.UpdateDocumentStatus(ctx, doc.ID, model.DocumentProcessed, "")
	require.NoError(t, err)
	assert.Equal(t, model.DocumentProcessed, again.Status)

	_, err = f.svc.UpdateDocumentStatus(ctx, doc.ID, model.DocumentFailed, "late failure")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	stored, err := f.svc.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentProcessed, stored.Status)
	assert.NotNil(t, stored.ProcessedAt)
}

func TestDocumentService_FailedKeepsReasonWithoutProcessedAt(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t, "idx")
	doc, err := f.svc.AddDocument(ctx, f.clone.ID, "a.txt", "text/plain", "idx")
	require.NoError(t, err)

	doc, err = f.svc.UpdateDocumentStatus(ctx, doc.ID, model.DocumentFailed, "unsupported encoding")
	require.NoError(t, err)
	assert.Equal(t, model.DocumentFailed, doc.Status)
	assert.Nil(t, doc.ProcessedAt)
	assert.Equal(t, "unsupported encoding", doc.ErrorMessage)

	_, err = f.svc.UpdateDocumentStatus(ctx, doc.ID, model.DocumentProcessed, "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestDocumentService_UpdateStatusErrors(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t, "idx")

	_, err := f.svc.UpdateDocumentStatus(ctx, "missing", model.DocumentProcessing, "")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.UpdateDocumentStatus(ctx, "missing", model.DocumentStatus("done"), "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestDocumentService_ConcurrentReporterRevalidates(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t, "idx")
	doc, err := f.svc.AddDocument(ctx, f.clone.ID, "a.txt", "text/plain", "idx")
	require.NoError(t, err)

	// another reporter marks the document processed between read and write
	f.docs.beforeUpdate = func() { f.docs.setStatus(doc.ID, model.DocumentProcessed) }
	_, err = f.svc.UpdateDocumentStatus(ctx, doc.ID, model.DocumentFailed, "boom")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	stored, err := f.svc.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentProcessed, stored.Status)

	other, err := f.svc.AddDocument(ctx, f.clone.ID, "b.txt", "text/plain", "idx")
	require.NoError(t, err)
	f.docs.beforeUpdate = func() { f.docs.setStatus(other.ID, model.DocumentProcessing) }
	moved, err := f.svc.UpdateDocumentStatus(ctx, other.ID, model.DocumentProcessed, "")
	require.NoError(t, err)
	assert.Equal(t, model.DocumentProcessed, moved.Status)
}

func TestDocumentService_ReportDocumentStatus(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t, "idx")

	err := f.svc.ReportDocumentStatus(ctx, model.DocumentStatusEvent{DocumentID: "d1", Status: model.DocumentProcessed})
	require.NoError(t, err)
	require.Len(t, f.pub.events, 1)
	assert.False(t, f.pub.events[0].ReportedAt.IsZero())

	err = f.svc.ReportDocumentStatus(ctx, model.DocumentStatusEvent{DocumentID: "d1", Status: "bogus"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	f.pub.err = errors.New("broker down")
	err = f.svc.ReportDocumentStatus(ctx, model.DocumentStatusEvent{DocumentID: "d1", Status: model.DocumentFailed})
	assert.True(t, apperr.Is(err, apperr.KindUnknown))
}

func TestDocumentService_ListDocuments(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t, "idx")

	list, err := f.svc.ListDocuments(ctx, f.clone.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.svc.AddDocument(ctx, f.clone.ID, "a.txt", "text/plain", "idx")
	require.NoError(t, err)
	list, err = f.svc.ListDocuments(ctx, f.clone.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.ListDocuments(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
