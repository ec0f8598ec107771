package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"learnpilot-rag/internal/chunk"
	"learnpilot-rag/internal/extract"
	"learnpilot-rag/internal/index"
	"learnpilot-rag/internal/model"
	"learnpilot-rag/internal/repository"
	"learnpilot-rag/internal/storage"
)

// PassageIndex is the slice of the vector store the ingest pipeline uses.
type PassageIndex interface {
	ReplaceDocument(ctx context.Context, userID, documentID string, passages []index.Passage) (int, error)
	DeleteDocument(ctx context.Context, userID, documentID string) error
}

// EventPublisher fans ingestion status transitions out to the audit queue.
type EventPublisher interface {
	Publish(ctx context.Context, event model.IngestionEvent) error
}

type IngestService struct {
	stager         *storage.Stager
	registry       *extract.Registry
	store          PassageIndex
	docRepo        *repository.DocumentRepository
	eventRepo      *repository.IngestionEventRepository
	events         EventPublisher
	embedderID     string
	extractTimeout time.Duration
}

func NewIngestService(
	stager *storage.Stager,
	registry *extract.Registry,
	store PassageIndex,
	docRepo *repository.DocumentRepository,
	eventRepo *repository.IngestionEventRepository,
	events EventPublisher,
	embedderID string,
	extractTimeout time.Duration,
) *IngestService {
	if extractTimeout <= 0 {
		extractTimeout = 30 * time.Second
	}
	return &IngestService{
		stager:         stager,
		registry:       registry,
		store:          store,
		docRepo:        docRepo,
		eventRepo:      eventRepo,
		events:         events,
		embedderID:     embedderID,
		extractTimeout: extractTimeout,
	}
}

type IngestInput struct {
	UserID       string
	OriginalName string
	MediaType    string
	DeclaredSize int64
	Body         io.Reader
}

type IngestResult struct {
	Document   model.Document `json:"document"`
	ChunkCount int            `json:"chunk_count"`
	Warnings   []string       `json:"warnings,omitempty"`
}

// Ingest runs the full pipeline: validate and stage, extract, chunk,
// embed and index. The client disconnecting must not leave a document
// half-indexed, so everything after staging runs on a context detached
// from the request's cancellation; only the pipeline's own timeouts apply.
func (s *IngestService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	mediaType := model.NormalizeMediaType(input.MediaType, input.OriginalName)
	staged, err := s.stager.Stage(input.UserID, input.OriginalName, mediaType, input.DeclaredSize, input.Body)
	if err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)

	doc := &model.Document{
		ID:           staged.ID,
		UserID:       input.UserID,
		OriginalName: staged.OriginalName,
		MediaType:    staged.MediaType,
		StoragePath:  staged.Path,
		SizeBytes:    staged.SizeBytes,
		Status:       model.StatusReceived,
	}
	if err := s.docRepo.Create(doc); err != nil {
		_ = s.stager.Remove(staged.Path)
		return nil, err
	}
	s.publishEvent(ctx, doc, model.StatusReceived, "")

	result, err := s.runPipeline(ctx, doc)
	if err != nil {
		s.markFailed(ctx, doc, err)
		return nil, err
	}
	return result, nil
}

// Reindex re-runs extraction and indexing from the staged file. Running
// it on an already indexed document replaces its passages in place.
func (s *IngestService) Reindex(ctx context.Context, userID, documentID string) (*IngestResult, error) {
	if strings.TrimSpace(userID) == "" || documentID == "" {
		return nil, ErrInvalidInput
	}
	doc, err := s.docRepo.GetByIDAndUserID(documentID, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}

	ctx = context.WithoutCancel(ctx)
	result, err := s.runPipeline(ctx, doc)
	if err != nil {
		s.markFailed(ctx, doc, err)
		return nil, err
	}
	return result, nil
}

func (s *IngestService) runPipeline(ctx context.Context, doc *model.Document) (*IngestResult, error) {
	extractor, ok := s.registry.ForMediaType(doc.MediaType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", storage.ErrUnsupportedMediaType, doc.MediaType)
	}

	extractCtx, cancel := context.WithTimeout(ctx, s.extractTimeout)
	defer cancel()

	extracted, err := extractor.Extract(extractCtx, doc.StoragePath)
	if err != nil {
		return nil, err
	}
	for _, w := range extracted.Warnings {
		log.Warn().Str("document_id", doc.ID).Str("file", doc.OriginalName).Msg("extraction warning: " + w)
	}

	if err := s.docRepo.UpdateStatus(doc.ID, model.StatusExtracted, ""); err != nil {
		return nil, err
	}
	doc.Status = model.StatusExtracted
	s.publishEvent(ctx, doc, model.StatusExtracted, strings.Join(extracted.Warnings, "; "))

	passages := buildPassages(doc, extracted.Blocks)
	if len(passages) == 0 {
		return nil, extract.ErrNoExtractableText
	}

	count, err := s.store.ReplaceDocument(ctx, doc.UserID, doc.ID, passages)
	if err != nil {
		return nil, err
	}

	if err := s.docRepo.MarkIndexed(doc.ID, count, s.embedderID); err != nil {
		return nil, err
	}
	doc.Status = model.StatusIndexed
	doc.ChunkCount = count
	doc.Embedder = s.embedderID
	s.publishEvent(ctx, doc, model.StatusIndexed, fmt.Sprintf("%d passages", count))

	log.Info().
		Str("document_id", doc.ID).
		Str("user_id", doc.UserID).
		Str("media_type", doc.MediaType).
		Int("passages", count).
		Msg("document indexed")

	return &IngestResult{
		Document:   *doc,
		ChunkCount: count,
		Warnings:   extracted.Warnings,
	}, nil
}

func (s *IngestService) List(userID string) ([]model.Document, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	return s.docRepo.ListByUserID(userID)
}

func (s *IngestService) Events(userID, documentID string) ([]model.IngestionEvent, error) {
	if strings.TrimSpace(userID) == "" || documentID == "" {
		return nil, ErrInvalidInput
	}
	doc, err := s.docRepo.GetByIDAndUserID(documentID, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return s.eventRepo.ListByDocumentID(documentID, 0)
}

// Delete removes the document's passages, its staged file and its row.
func (s *IngestService) Delete(ctx context.Context, userID, documentID string) error {
	if strings.TrimSpace(userID) == "" || documentID == "" {
		return ErrInvalidInput
	}
	doc, err := s.docRepo.GetByIDAndUserID(documentID, userID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}

	ctx = context.WithoutCancel(ctx)
	if err := s.store.DeleteDocument(ctx, userID, documentID); err != nil {
		return err
	}
	if err := s.stager.Remove(doc.StoragePath); err != nil {
		log.Warn().Err(err).Str("document_id", documentID).Msg("remove staged file failed")
	}
	return s.docRepo.DeleteByIDAndUserID(documentID, userID)
}

func (s *IngestService) markFailed(ctx context.Context, doc *model.Document, cause error) {
	if err := s.docRepo.UpdateStatus(doc.ID, model.StatusFailed, cause.Error()); err != nil {
		log.Error().Err(err).Str("document_id", doc.ID).Msg("mark document failed errored")
	}
	doc.Status = model.StatusFailed
	s.publishEvent(ctx, doc, model.StatusFailed, cause.Error())
}

func (s *IngestService) publishEvent(ctx context.Context, doc *model.Document, status, detail string) {
	if s.events == nil {
		return
	}
	event := model.IngestionEvent{
		DocumentID: doc.ID,
		UserID:     doc.UserID,
		Status:     status,
		Detail:     detail,
		CreatedAt:  time.Now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("document_id", doc.ID).Msg("publish ingestion event failed")
	}
}

// buildPassages chunks each extracted block with format-appropriate
// window sizes and assigns document-wide ordinals.
func buildPassages(doc *model.Document, blocks []extract.Block) []index.Passage {
	opts := chunkOptionsFor(doc.MediaType)
	blocks = mergeShortBlocks(blocks, opts.MinSize)

	var passages []index.Passage
	ordinal := 0
	for _, block := range blocks {
		for _, piece := range chunk.Split(block.Text, opts) {
			passages = append(passages, index.Passage{
				DocumentID: doc.ID,
				UserID:     doc.UserID,
				Source:     doc.OriginalName,
				Label:      block.Label,
				Text:       piece,
				Ordinal:    ordinal,
			})
			ordinal++
		}
	}
	return passages
}

// mergeShortBlocks folds a block below the minimum chunk size into the
// block after it, so a near-empty page or slide is not indexed as a
// degenerate passage of its own. A trailing short block folds backwards.
func mergeShortBlocks(blocks []extract.Block, minSize int) []extract.Block {
	if minSize <= 0 || len(blocks) < 2 {
		return blocks
	}

	merged := make([]extract.Block, 0, len(blocks))
	carry := ""
	for _, block := range blocks {
		text := block.Text
		if carry != "" {
			text = carry + "\n" + text
			carry = ""
		}
		if len([]rune(text)) < minSize {
			carry = text
			continue
		}
		block.Text = text
		merged = append(merged, block)
	}
	if carry != "" {
		if len(merged) == 0 {
			return []extract.Block{{Text: carry, Label: blocks[0].Label}}
		}
		merged[len(merged)-1].Text += "\n" + carry
	}
	return merged
}

// Spreadsheets get wide windows so rows stay together; paged formats a
// middle ground; prose the default.
func chunkOptionsFor(mediaType string) chunk.Options {
	switch mediaType {
	case model.MediaXLSX, model.MediaXLS, model.MediaCSV:
		return chunk.Options{Size: 2000, Overlap: 400, MinSize: 40}
	case model.MediaPDF, model.MediaPPTX:
		return chunk.Options{Size: 1500, Overlap: 300, MinSize: 40}
	default:
		return chunk.Options{Size: 1200, Overlap: 200, MinSize: 40}
	}
}
