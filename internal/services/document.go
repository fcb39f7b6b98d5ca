package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dealdesk/intake-backend/internal/data/repos"
	types "github.com/dealdesk/intake-backend/internal/domain"
	"github.com/dealdesk/intake-backend/internal/domain/deal"
	"github.com/dealdesk/intake-backend/internal/pkg/dbctx"
	"github.com/dealdesk/intake-backend/internal/platform/apierr"
	"github.com/dealdesk/intake-backend/internal/platform/config"
	"github.com/dealdesk/intake-backend/internal/platform/gcp"
	"github.com/dealdesk/intake-backend/internal/platform/logger"
	"github.com/dealdesk/intake-backend/internal/recognition"
	"github.com/dealdesk/intake-backend/internal/recognition/metrics"
)

// UploadInput describes one artifact handed in by a client.
type UploadInput struct {
	PartyID  *uuid.UUID
	Category types.DocumentCategory
	Type     string
	Name     string
	MimeType string
	Size     int64
}

type DocumentService interface {
	Upload(dbc dbctx.Context, dealID uuid.UUID, in UploadInput, file io.Reader) (*types.Document, error)
	List(dbc dbctx.Context, dealID uuid.UUID) ([]types.Document, error)
	Link(dbc dbctx.Context, dealID, sourceID uuid.UUID, targetType string, targetPartyID *uuid.UUID, category types.DocumentCategory) (*types.Document, error)
	Remove(dbc dbctx.Context, dealID, docID uuid.UUID) error
	Retry(dbc dbctx.Context, dealID, docID uuid.UUID) error
	Refresh(dbc dbctx.Context, dealID uuid.UUID) error
	Checking(dealID uuid.UUID) bool
	// HandleResult lands an externally received recognition result on the
	// right deal session.
	HandleResult(res recognition.Result)
	// StartSessionJanitor evicts deal sessions nobody touched for the
	// configured idle TTL, closing them so late results land nowhere.
	StartSessionJanitor(ctx context.Context)
}

type documentService struct {
	db       *gorm.DB
	log      *logger.Logger
	cfg      config.RecognitionConfig
	docRepo  repos.DocumentRepo
	bucket   gcp.BucketService
	client   recognition.Client
	push     recognition.PushChannel
	met      *metrics.Metrics
	notifier IntakeNotifier

	mu       sync.Mutex
	sessions map[uuid.UUID]*dealSession
}

type dealSession struct {
	session *recognition.Session
	rec     *recognition.Reconciler

	// lastUsed is guarded by documentService.mu.
	lastUsed time.Time
}

func NewDocumentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg config.RecognitionConfig,
	docRepo repos.DocumentRepo,
	bucket gcp.BucketService,
	client recognition.Client,
	push recognition.PushChannel,
	met *metrics.Metrics,
	notifier IntakeNotifier,
) DocumentService {
	serviceLog := baseLog.With("service", "DocumentService")
	return &documentService{
		db:       db,
		log:      serviceLog,
		cfg:      cfg,
		docRepo:  docRepo,
		bucket:   bucket,
		client:   client,
		push:     push,
		met:      met,
		notifier: notifier,
		sessions: make(map[uuid.UUID]*dealSession),
	}
}

// sessionFor lazily opens the recognition session of a deal, seeding it with
// the persisted documents.
func (ds *documentService) sessionFor(dbc dbctx.Context, dealID uuid.UUID) (*dealSession, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if entry, ok := ds.sessions[dealID]; ok {
		entry.lastUsed = time.Now()
		return entry, nil
	}

	docs, err := ds.docRepo.ListByDeal(dbc.Ctx, dbc.Tx, dealID)
	if err != nil {
		return nil, err
	}
	session := recognition.NewSession(dealID, docs)
	rec := recognition.NewReconciler(ds.log, ds.cfg, ds.client, ds.push, ds.met, session,
		func(doc deal.Document) { ds.persistTransition(doc) })

	entry := &dealSession{session: session, rec: rec, lastUsed: time.Now()}
	ds.sessions[dealID] = entry
	return entry, nil
}

// evictIdle closes and drops every session untouched since the cutoff. A
// closed session refuses mutations, so recognition callbacks for an
// abandoned intake are dropped instead of racing the next open.
func (ds *documentService) evictIdle(cutoff time.Time) int {
	ds.mu.Lock()
	var victims []*dealSession
	for id, entry := range ds.sessions {
		if entry.lastUsed.Before(cutoff) {
			victims = append(victims, entry)
			delete(ds.sessions, id)
		}
	}
	ds.mu.Unlock()

	for _, v := range victims {
		v.session.Close()
	}
	return len(victims)
}

func (ds *documentService) StartSessionJanitor(ctx context.Context) {
	ttl := ds.cfg.SessionIdleTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := ds.evictIdle(now.Add(-ttl)); n > 0 {
					ds.log.Info("evicted idle recognition sessions", "count", n)
				}
			}
		}
	}()
}

// persistTransition writes a reconciler state change through to the database
// and pushes it to subscribers. Runs on reconciler goroutines, so it uses a
// background context.
func (ds *documentService) persistTransition(doc deal.Document) {
	ctx := context.Background()
	fields := map[string]any{
		"remote_id":          doc.RemoteID,
		"recognition_status": doc.RecognitionStatus,
		"recognition_error":  doc.RecognitionError,
		"validated":          doc.Validated,
	}
	if len(doc.ExtractedData) > 0 {
		fields["extracted_data"] = doc.ExtractedData
	}
	if err := ds.docRepo.UpdateRecognition(ctx, nil, doc.ID, fields); err != nil {
		ds.log.Error("persist recognition transition failed",
			"document_id", doc.ID.String(),
			"error", err)
	}
	ds.notifier.RecognitionResult(doc.DealID, &doc)
	ds.notifier.DocumentUpdated(doc.DealID, &doc)
}

func (ds *documentService) Upload(dbc dbctx.Context, dealID uuid.UUID, in UploadInput, file io.Reader) (*types.Document, error) {
	if in.Type == "" {
		return nil, apierr.New(http.StatusBadRequest, "missing_document_type", nil)
	}
	if file == nil {
		return nil, apierr.New(http.StatusBadRequest, "missing_file", nil)
	}

	doc := &types.Document{
		ID:                uuid.New(),
		DealID:            dealID,
		PartyID:           in.PartyID,
		Category:          in.Category,
		Type:              in.Type,
		Types:             datatypes.JSONSlice[string]{in.Type},
		OriginalName:      in.Name,
		MimeType:          in.MimeType,
		SizeBytes:         in.Size,
		RecognitionStatus: deal.RecognitionIdle,
	}
	doc.StorageKey = fmt.Sprintf("deals/%s/documents/%s", dealID.String(), doc.ID.String())

	if err := ds.bucket.UploadFile(dbc.Ctx, doc.StorageKey, file); err != nil {
		return nil, fmt.Errorf("upload artifact: %w", err)
	}
	doc.FileURL = ds.bucket.GetPublicURL(doc.StorageKey)

	created, err := ds.docRepo.Create(dbc.Ctx, dbc.Tx, doc)
	if err != nil {
		// Object is orphaned on DB failure; clean it up best effort.
		if delErr := ds.bucket.DeleteFile(dbc.Ctx, doc.StorageKey); delErr != nil {
			ds.log.Warn("orphaned object cleanup failed", "storage_key", doc.StorageKey, "error", delErr)
		}
		return nil, err
	}

	entry, err := ds.sessionFor(dbc, dealID)
	if err != nil {
		return nil, err
	}
	entry.session.Upsert(*created)
	ds.notifier.DocumentUpdated(dealID, created)

	go entry.rec.SubmitPending(context.Background())
	return created, nil
}

func (ds *documentService) List(dbc dbctx.Context, dealID uuid.UUID) ([]types.Document, error) {
	entry, err := ds.sessionFor(dbc, dealID)
	if err != nil {
		return nil, err
	}
	return entry.session.Documents(), nil
}

// Link reuses an already-recognized artifact for another requirement: the
// backend registers the extra type against the same recognition and a
// completed clone of the source document is filed under the target slot.
func (ds *documentService) Link(dbc dbctx.Context, dealID, sourceID uuid.UUID, targetType string, targetPartyID *uuid.UUID, category types.DocumentCategory) (*types.Document, error) {
	entry, err := ds.sessionFor(dbc, dealID)
	if err != nil {
		return nil, err
	}
	source, ok := entry.session.Get(sourceID)
	if !ok {
		return nil, apierr.New(http.StatusNotFound, "source_document_not_found", fmt.Errorf("document %s", sourceID))
	}
	if source.RemoteID == "" || source.RecognitionStatus != deal.RecognitionCompleted {
		return nil, apierr.New(http.StatusConflict, "source_not_recognized", nil)
	}

	res, err := ds.client.Link(dbc.Ctx, source.RemoteID, targetType)
	if err != nil {
		return nil, fmt.Errorf("link recognition: %w", err)
	}

	// The clone is a fresh record under the backend's new recognition id with
	// exactly the linked type; the source keeps its own id and type set.
	clone := source
	clone.ID = uuid.New()
	clone.RemoteID = res.RemoteID
	clone.PartyID = targetPartyID
	clone.Category = category
	clone.Type = targetType
	clone.Types = datatypes.JSONSlice[string]{targetType}
	clone.RecognitionStatus = deal.RecognitionCompleted
	clone.RecognitionError = ""
	if res.Validated != nil {
		clone.Validated = res.Validated
	}

	created, err := ds.docRepo.Create(dbc.Ctx, dbc.Tx, &clone)
	if err != nil {
		return nil, err
	}
	entry.session.Upsert(*created)
	ds.notifier.DocumentUpdated(dealID, created)
	return created, nil
}

// Remove deletes a document locally and tells the recognition backend to
// drop its recognition. The remote call is fire-and-forget: a dead backend
// must not resurrect a document the user already removed.
func (ds *documentService) Remove(dbc dbctx.Context, dealID, docID uuid.UUID) error {
	entry, err := ds.sessionFor(dbc, dealID)
	if err != nil {
		return err
	}
	doc, ok := entry.session.Get(docID)
	if !ok {
		loaded, err := ds.docRepo.GetByID(dbc.Ctx, dbc.Tx, docID)
		if err != nil {
			return err
		}
		doc = *loaded
	}

	if err := ds.docRepo.Delete(dbc.Ctx, dbc.Tx, docID); err != nil {
		return err
	}
	entry.session.Remove(docID)

	if doc.StorageKey != "" {
		if err := ds.bucket.DeleteFile(dbc.Ctx, doc.StorageKey); err != nil {
			ds.log.Warn("artifact delete failed", "storage_key", doc.StorageKey, "error", err)
		}
	}
	if doc.RemoteID != "" {
		go func(remoteID string) {
			if err := ds.client.Remove(context.Background(), remoteID); err != nil {
				ds.log.Warn("remote recognition removal failed", "remote_id", remoteID, "error", err)
			}
		}(doc.RemoteID)
	}

	ds.notifier.DocumentUpdated(dealID, &doc)
	return nil
}

func (ds *documentService) Retry(dbc dbctx.Context, dealID, docID uuid.UUID) error {
	entry, err := ds.sessionFor(dbc, dealID)
	if err != nil {
		return err
	}
	go entry.rec.Retry(context.Background(), docID)
	return nil
}

func (ds *documentService) Refresh(dbc dbctx.Context, dealID uuid.UUID) error {
	entry, err := ds.sessionFor(dbc, dealID)
	if err != nil {
		return err
	}
	entry.rec.Refresh(dbc.Ctx)
	return nil
}

func (ds *documentService) Checking(dealID uuid.UUID) bool {
	ds.mu.Lock()
	entry, ok := ds.sessions[dealID]
	ds.mu.Unlock()
	return ok && entry.rec.Checking()
}

func (ds *documentService) HandleResult(res recognition.Result) {
	ds.mu.Lock()
	entries := make([]*dealSession, 0, len(ds.sessions))
	for _, entry := range ds.sessions {
		entries = append(entries, entry)
	}
	ds.mu.Unlock()

	for _, entry := range entries {
		if _, ok := entry.session.FindByRemoteID(res.RemoteID); ok {
			entry.rec.HandlePush(res)
			return
		}
	}
	ds.log.Debug("recognition result for unknown deal", "remote_id", res.RemoteID)
}
