package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Outreach/internal/engine"
	"github.com/shaiso/Outreach/internal/telemetry"
)

// ChangesSince возвращает дельту для polling-синхронизации устройства:
// снимок run, а также запросы, встречи на маршруте и записи о доставке,
// изменённые строго после since.
//
// Timestamp — курсор следующего опроса. Он вычисляется до чтения и не
// поднимается выше отметок незакоммиченных записей, поэтому запись,
// закоммиченная во время опроса, придёт в следующем ответе. Записи
// могут прийти дважды; клиент дедуплицирует их по id.
func (o *Orchestrator) ChangesSince(ctx context.Context, runID uuid.UUID, since time.Time) (*engine.ChangeSet, error) {
	start := time.Now()
	defer func() { telemetry.ChangeFeedDuration.Observe(time.Since(start).Seconds()) }()

	r := o.store.Repos()

	collect := func() (*engine.ChangeSet, error) {
		ts, err := o.feedCursor(ctx)
		if err != nil {
			return nil, err
		}
		run, err := loadRun(ctx, r, runID, false)
		if err != nil {
			return nil, err
		}
		requests, err := r.Requests.ListUpdatedSince(ctx, run.ID, since)
		if err != nil {
			return nil, err
		}
		sightings, err := r.Sightings.ListOnRouteSince(ctx, run.RouteID, since)
		if err != nil {
			return nil, err
		}
		deliveries, err := r.Deliveries.ListUpdatedSince(ctx, run.ID, since)
		if err != nil {
			return nil, err
		}

		return &engine.ChangeSet{
			Run:               *run,
			UpdatedRequests:   requests,
			RecentSightings:   sightings,
			UpdatedDeliveries: deliveries,
			Timestamp:         ts,
		}, nil
	}

	cs, err := collect()
	if err := o.finish("changes_since", err, "run_id", runID); err != nil {
		return nil, err
	}
	return cs, nil
}
