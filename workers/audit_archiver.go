package workers

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"oceanx-economy-service/store"
	"oceanx-economy-service/utils"
)

const archiveBatchLimit = 5000

// AuditArchiver periodically exports new resource_events to R2 as JSON
// batches so forensic reconciliation can run off-box. The database rows stay
// in place; the export is a copy, never a move.
type AuditArchiver struct {
	Store store.Store

	mu         sync.Mutex
	lastExport time.Time
}

func NewAuditArchiver(st store.Store) *AuditArchiver {
	return &AuditArchiver{Store: st, lastExport: time.Now()}
}

// Run exports every event created since the previous run. Safe to call from
// a scheduler; overlapping runs serialize on the internal mutex.
func (a *AuditArchiver) Run(ctx context.Context) {
	if !utils.R2Enabled() {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	events, err := a.Store.EventsAfter(ctx, a.lastExport, archiveBatchLimit)
	if err != nil {
		log.Printf("❌ [AUDIT] Failed to fetch events for archival: %v", err)
		return
	}
	if len(events) == 0 {
		return
	}

	body, err := json.Marshal(events)
	if err != nil {
		log.Printf("❌ [AUDIT] Failed to marshal audit batch: %v", err)
		return
	}

	now := time.Now().UTC()
	key := now.Format("audit/resource-events/2006/01/02/") + uuid.NewString() + ".json"
	if err := utils.UploadAuditBatch(ctx, key, body); err != nil {
		log.Printf("❌ [AUDIT] Upload failed, will retry next run: %v", err)
		return
	}

	a.lastExport = events[len(events)-1].CreatedAt
	log.Printf("✅ [AUDIT] Archived %d resource events to %s", len(events), key)
}
