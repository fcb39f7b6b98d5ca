// Package recognition drives the asynchronous document-recognition lifecycle:
// submission to the external backend, push-event reconciliation, the polling
// fallback, and explicit retries. Push results and poll results race; the
// first terminal outcome to land wins and later arrivals are dropped.
package recognition

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/dealdesk/intake-backend/internal/domain/deal"
	"github.com/dealdesk/intake-backend/internal/platform/config"
	"github.com/dealdesk/intake-backend/internal/platform/logger"
	"github.com/dealdesk/intake-backend/internal/recognition/metrics"
)

// Reconciler owns the recognition state machine for one deal session.
type Reconciler struct {
	log    *logger.Logger
	cfg    config.RecognitionConfig
	client Client
	push   PushChannel
	met    *metrics.Metrics

	session *Session

	mu sync.Mutex
	// inFlight guards against double submission while a submit call is on
	// the wire; submitted marks documents that ever went out, so a retry is
	// the only way to send one again.
	inFlight      map[uuid.UUID]bool
	submitted     map[uuid.UUID]bool
	checkingUntil time.Time

	// onChange fires after every applied state transition with a copy of the
	// updated document. Used for persistence and client notification.
	onChange func(deal.Document)

	now func() time.Time
}

func NewReconciler(
	baseLog *logger.Logger,
	cfg config.RecognitionConfig,
	client Client,
	push PushChannel,
	met *metrics.Metrics,
	session *Session,
	onChange func(deal.Document),
) *Reconciler {
	if onChange == nil {
		onChange = func(deal.Document) {}
	}
	return &Reconciler{
		log:       baseLog.With("service", "RecognitionReconciler", "deal_id", session.DealID().String()),
		cfg:       cfg,
		client:    client,
		push:      push,
		met:       met,
		session:   session,
		inFlight:  make(map[uuid.UUID]bool),
		submitted: make(map[uuid.UUID]bool),
		onChange:  onChange,
		now:       time.Now,
	}
}

// SubmitPending sends every not-yet-submitted idle document to the backend,
// a bounded number at a time. Per-document failures become terminal error
// states on the document rather than an error return; the caller's batch
// never fails halfway.
func (r *Reconciler) SubmitPending(ctx context.Context) {
	candidates := r.claimPending()
	if len(candidates) == 0 {
		return
	}

	limit := r.cfg.SubmitConcurrency
	if limit <= 0 {
		limit = 3
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, id := range candidates {
		g.Go(func() error {
			r.submitOne(gctx, id)
			return nil
		})
	}
	_ = g.Wait()
}

// claimPending marks submittable documents in-flight and returns their ids.
func (r *Reconciler) claimPending() []uuid.UUID {
	docs := r.session.Documents()

	r.mu.Lock()
	defer r.mu.Unlock()
	var out []uuid.UUID
	for _, d := range docs {
		// Uploading with no remote id is a submission that never reached the
		// backend, e.g. a restart rebuilt the session mid-flight. Claim it
		// again rather than leaving it stuck.
		stuck := d.RecognitionStatus == deal.RecognitionUploading && d.RemoteID == ""
		if d.RecognitionStatus != deal.RecognitionIdle && !stuck {
			continue
		}
		if d.FileURL == "" {
			continue
		}
		if r.inFlight[d.ID] || r.submitted[d.ID] {
			continue
		}
		r.inFlight[d.ID] = true
		r.met.InFlight.Inc()
		out = append(out, d.ID)
	}
	return out
}

func (r *Reconciler) submitOne(ctx context.Context, id uuid.UUID) {
	defer func() {
		r.mu.Lock()
		delete(r.inFlight, id)
		r.mu.Unlock()
		r.met.InFlight.Dec()
	}()

	doc, ok := r.session.Mutate(id, func(d *deal.Document) {
		d.RecognitionStatus = deal.RecognitionUploading
		d.RecognitionError = ""
	})
	if !ok {
		return
	}
	r.onChange(doc)

	sub := Submission{
		DocumentID: doc.ID.String(),
		DealID:     doc.DealID.String(),
		Type:       doc.Type,
		Category:   string(doc.Category),
		FileURL:    doc.FileURL,
		MimeType:   doc.MimeType,
	}
	if doc.PartyID != nil {
		sub.PartyID = doc.PartyID.String()
	}
	remoteID, err := r.client.Submit(ctx, sub)

	r.mu.Lock()
	r.submitted[id] = true
	r.mu.Unlock()

	if err != nil {
		r.met.Submissions.WithLabelValues("error").Inc()
		r.log.Warn("submission failed", "document_id", id.String(), "error", err)
		if updated, ok := r.session.Mutate(id, func(d *deal.Document) {
			d.RecognitionStatus = deal.RecognitionError
			d.RecognitionError = err.Error()
		}); ok {
			r.onChange(updated)
		}
		return
	}

	r.met.Submissions.WithLabelValues("ok").Inc()
	if updated, ok := r.session.Mutate(id, func(d *deal.Document) {
		d.RemoteID = remoteID
		d.RecognitionStatus = deal.RecognitionProcessing
	}); ok {
		r.onChange(updated)
	}
}

// HandlePush applies one push result. Unknown remote ids and documents
// already terminal are dropped; redelivered events are therefore harmless.
func (r *Reconciler) HandlePush(res Result) {
	doc, ok := r.session.FindByRemoteID(res.RemoteID)
	if !ok {
		r.log.Debug("push for unknown recognition", "remote_id", res.RemoteID)
		return
	}
	if doc.RecognitionStatus.Terminal() {
		return
	}

	if res.Failed {
		r.met.PushEvents.WithLabelValues("error").Inc()
	} else {
		r.met.PushEvents.WithLabelValues("completed").Inc()
	}
	r.applyResult(doc.ID, res)
}

// Poll asks the backend for the current state of one processing document.
// A timeout means the recognition is still running, not that it failed.
func (r *Reconciler) Poll(ctx context.Context, id uuid.UUID) {
	doc, ok := r.session.Get(id)
	if !ok || doc.RemoteID == "" || doc.RecognitionStatus != deal.RecognitionProcessing {
		return
	}

	timeout := r.cfg.PollTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := r.client.Status(pollCtx, doc.RemoteID)
	if errors.Is(err, ErrStillProcessing) || errors.Is(err, context.DeadlineExceeded) {
		r.met.Polls.WithLabelValues("processing").Inc()
		return
	}
	if err != nil {
		r.met.Polls.WithLabelValues("error").Inc()
		r.log.Warn("poll failed", "document_id", id.String(), "error", err)
		return
	}

	r.met.Polls.WithLabelValues("done").Inc()

	// Re-check terminality: a push event may have landed while the poll was
	// on the wire, and the push result wins.
	if current, ok := r.session.Get(id); !ok || current.RecognitionStatus.Terminal() {
		return
	}
	r.applyResult(id, *res)
}

func (r *Reconciler) applyResult(id uuid.UUID, res Result) {
	updated, ok := r.session.Mutate(id, func(d *deal.Document) {
		if d.RecognitionStatus.Terminal() {
			return
		}
		if res.Failed {
			d.RecognitionStatus = deal.RecognitionError
			d.RecognitionError = res.Error
			return
		}
		d.RecognitionStatus = deal.RecognitionCompleted
		d.RecognitionError = ""
		d.Validated = res.Validated
		if len(res.Extracted) > 0 {
			d.ExtractedData = datatypes.JSON(res.Extracted)
		}
	})
	if !ok {
		return
	}
	r.onChange(updated)
}

// Refresh nudges every pending recognition at once: one fire-and-forget
// broadcast to the backend, plus delayed per-document polls when the push
// channel is down and nothing will arrive on its own. The checking flag is
// held up briefly so a caller can show activity even when results come back
// instantly.
func (r *Reconciler) Refresh(ctx context.Context) {
	hold := r.cfg.CheckingMinHold
	if hold <= 0 {
		hold = 1500 * time.Millisecond
	}
	r.mu.Lock()
	r.checkingUntil = r.now().Add(hold)
	r.mu.Unlock()

	go func() {
		if err := r.client.RequestRefresh(context.WithoutCancel(ctx)); err != nil {
			r.log.Warn("refresh broadcast failed", "error", err)
		}
	}()

	if r.push.Connected() {
		return
	}

	delay := r.cfg.RefreshPollDelay
	ids := r.processingIDs()
	if len(ids) == 0 {
		return
	}
	time.AfterFunc(delay, func() {
		for _, id := range ids {
			r.Poll(context.WithoutCancel(ctx), id)
		}
	})
}

func (r *Reconciler) processingIDs() []uuid.UUID {
	var out []uuid.UUID
	for _, d := range r.session.Documents() {
		if d.RecognitionStatus == deal.RecognitionProcessing && d.RemoteID != "" {
			out = append(out, d.ID)
		}
	}
	return out
}

// Checking reports whether a refresh is still inside its minimum hold
// window.
func (r *Reconciler) Checking() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.now().Before(r.checkingUntil)
}

// Retry is the only way out of a terminal state: the ever-submitted marker is
// cleared and the document runs the submission path again from the top. A
// prior remote id stays on the document until the backend issues a
// replacement, so the correlation survives a failed retry.
func (r *Reconciler) Retry(ctx context.Context, id uuid.UUID) {
	doc, ok := r.session.Get(id)
	if !ok || !doc.RecognitionStatus.Terminal() {
		return
	}
	r.met.Retries.Inc()

	r.mu.Lock()
	delete(r.submitted, id)
	r.mu.Unlock()
	if updated, ok := r.session.Mutate(id, func(d *deal.Document) {
		d.RecognitionStatus = deal.RecognitionIdle
		d.RecognitionError = ""
	}); ok {
		r.onChange(updated)
	}
	r.SubmitPending(ctx)
}
