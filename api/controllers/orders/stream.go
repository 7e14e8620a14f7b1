package orders

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stanton-energie/heizoel-backend/api/responses"
	"github.com/stanton-energie/heizoel-backend/internal/audit"
	internalorders "github.com/stanton-energie/heizoel-backend/internal/orders"
	"github.com/stanton-energie/heizoel-backend/internal/orderstream"
	"github.com/stanton-energie/heizoel-backend/pkg/db/models"
	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
)

// HeartbeatInterval keeps idle streams open through proxies.
var HeartbeatInterval = 25 * time.Second

// NoticeTrailLoadFailed accompanies a snapshot whose initial load failed.
const NoticeTrailLoadFailed = "Verlauf konnte nicht geladen werden. Neue Einträge werden weiterhin angezeigt."

type snapshotEvent struct {
	ViewerID string                      `json:"viewer_id"`
	History  []models.OrderStatusHistory `json:"history"`
	Notes    []models.OrderNote          `json:"notes"`
	Notice   string                      `json:"notice,omitempty"`
}

// Stream serves the order trail as server-sent events: one snapshot, then every
// history entry and note committed by other viewers until the client leaves.
func Stream(ordersSvc internalorders.Service, auditSvc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}
		order, err := ordersSvc.Get(r.Context(), orderNumberParam(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithOrderNumber(r.Context(), order.OrderNumber)
		trail, err := auditSvc.OpenTrail(ctx, order.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		defer func() {
			if err := trail.Close(); err != nil {
				logg.Error(ctx, "close order trail", err)
			}
		}()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		snapshot := snapshotEvent{
			ViewerID: trail.ID(),
			History:  trail.History(),
			Notes:    trail.Notes(),
		}
		if trail.LoadErr() != nil {
			snapshot.Notice = NoticeTrailLoadFailed
		}
		if err := writeEvent(w, "snapshot", snapshot); err != nil {
			return
		}
		flusher.Flush()

		heartbeat := time.NewTicker(HeartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case event, ok := <-trail.Updates():
				if !ok {
					return
				}
				name, payload := eventPayload(event)
				if payload == nil {
					continue
				}
				if err := writeEvent(w, name, payload); err != nil {
					logg.Warn(ctx, "order stream write failed")
					return
				}
				flusher.Flush()
			}
		}
	}
}

func eventPayload(event orderstream.Event) (string, any) {
	switch event.Kind {
	case orderstream.KindHistory:
		if event.History != nil {
			return "history", event.History
		}
	case orderstream.KindNote:
		if event.Note != nil {
			return "note", event.Note
		}
	}
	return "", nil
}

func writeEvent(w http.ResponseWriter, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
