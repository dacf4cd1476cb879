package pipeline

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/finsight-ai/finsight/internal/model"
	"github.com/finsight-ai/finsight/internal/store"
	"github.com/finsight-ai/finsight/pkg/anthropic"
	"github.com/finsight-ai/finsight/pkg/serper"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *mockStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	if doc := args.Get(0); doc != nil {
		return doc.(*model.Document), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) ListDocuments(ctx context.Context, filter store.DocumentFilter) ([]model.Document, error) {
	args := m.Called(ctx, filter)
	if docs := args.Get(0); docs != nil {
		return docs.([]model.Document), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) UpdateDocumentStatus(ctx context.Context, id string, status model.DocumentStatus, processedAt *time.Time, errMsg string) error {
	return m.Called(ctx, id, status, processedAt, errMsg).Error(0)
}

func (m *mockStore) SaveAnalysis(ctx context.Context, rec *model.AnalysisRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockStore) GetAnalysis(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	args := m.Called(ctx, id)
	if rec := args.Get(0); rec != nil {
		return rec.(*model.AnalysisRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) ListAnalyses(ctx context.Context, documentID string) ([]model.AnalysisRecord, error) {
	args := m.Called(ctx, documentID)
	if recs := args.Get(0); recs != nil {
		return recs.([]model.AnalysisRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if resp := args.Get(0); resp != nil {
		return resp.(*anthropic.MessageResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSearchClient struct {
	mock.Mock
}

func (m *mockSearchClient) Search(ctx context.Context, query string) (*serper.SearchResponse, error) {
	args := m.Called(ctx, query)
	if resp := args.Get(0); resp != nil {
		return resp.(*serper.SearchResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockReader struct {
	mock.Mock
}

func (m *mockReader) Extract(ctx context.Context, path, declaredExt string) (*model.ExtractedDocument, error) {
	args := m.Called(ctx, path, declaredExt)
	if doc := args.Get(0); doc != nil {
		return doc.(*model.ExtractedDocument), args.Error(1)
	}
	return nil, args.Error(1)
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		ID:      "msg_test",
		Model:   "claude-test",
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}
}
