// =============================================================================
// SEPA Export - Orchestrator
// =============================================================================
//
// Drives one export run end to end:
//
//   Select -> Filter -> Partition -> per batch (Sequence -> Render ->
//   Validate) -> Commit
//
// The run is all-or-nothing. Reference sequencing, artifact creation, and
// payment state transitions happen inside a single store transaction, so a
// failure on the third batch of three leaves no trace of the first two.
// Counting references inside that same transaction is also what makes
// sequence assignment safe against concurrent runs over the same journal
// and day: the store's write lock serializes the count-then-insert step.
//
// =============================================================================

package sepa

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/finbatch/sepa-export/internal/payment"
	"github.com/finbatch/sepa-export/internal/schema"
	"github.com/finbatch/sepa-export/internal/store"
)

// Exporter runs export runs against one store, renderer, and validator.
type Exporter struct {
	store     *store.Store
	renderer  *Renderer
	validator *schema.Validator
	log       *zap.Logger

	// Clock supplies the run timestamp (reference date, CreDtTm, execution
	// date). Overridable for tests.
	Clock func() time.Time
}

// NewExporter wires an exporter. A nil logger disables logging.
func NewExporter(st *store.Store, r *Renderer, v *schema.Validator, log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{
		store:     st,
		renderer:  r,
		validator: v,
		log:       log,
		Clock:     time.Now,
	}
}

// Export runs one export over the selected payment ids and returns the
// created artifacts, one per originating journal. On any error nothing is
// persisted and no payment changes state.
func (e *Exporter) Export(ctx context.Context, ids []int64) ([]payment.Artifact, error) {
	selected, err := e.store.PaymentsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	eligible, err := Filter(selected)
	if err != nil {
		return nil, err
	}
	if err := EnsureBIC(eligible); err != nil {
		return nil, err
	}

	batches := Partition(eligible)
	now := e.Clock()

	var artifacts []payment.Artifact
	err = e.store.RunExport(ctx, func(tx *store.ExportTx) error {
		for _, b := range batches {
			a, err := e.exportBatch(tx, b, now)
			if err != nil {
				return err
			}
			artifacts = append(artifacts, *a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("sepa export completed",
		zap.Int("files", len(artifacts)),
		zap.Int("payments", len(eligible)))
	return artifacts, nil
}

// exportBatch sequences, renders, validates, and persists one batch inside
// the run's transaction.
func (e *Exporter) exportBatch(tx *store.ExportTx, b Batch, now time.Time) (*payment.Artifact, error) {
	prefix := Prefix(b.Journal.Code, now)
	existing, err := tx.CountReferences(prefix)
	if err != nil {
		return nil, err
	}
	reference, err := Reference(prefix, existing)
	if err != nil {
		return nil, err
	}

	data, err := e.renderer.Render(b, reference, now)
	if err != nil {
		return nil, err
	}
	if err := e.validator.Validate(data); err != nil {
		return nil, err
	}

	ids := make([]int64, len(b.Payments))
	for i, p := range b.Payments {
		ids[i] = p.ID
	}
	a := &payment.Artifact{
		Name:       reference,
		CreatedAt:  now,
		XML:        data,
		PaymentIDs: ids,
	}
	if err := tx.CreateArtifact(a); err != nil {
		return nil, err
	}
	if err := tx.MarkSent(ids); err != nil {
		return nil, err
	}

	e.log.Debug("sepa batch exported",
		zap.String("reference", reference),
		zap.String("journal", b.Journal.Code),
		zap.Int("payments", b.Count),
		zap.String("total", b.Total.StringFixed(2)))
	return a, nil
}
