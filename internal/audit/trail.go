package audit

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/stanton-energie/heizoel-backend/internal/orderstream"
	"github.com/stanton-energie/heizoel-backend/pkg/config"
	"github.com/stanton-energie/heizoel-backend/pkg/db/models"
	"github.com/stanton-energie/heizoel-backend/pkg/enums"
)

// Trail is one viewer's live view of an order: history newest first, notes
// oldest first, kept current from the order stream until Close.
type Trail struct {
	id      string
	orderID uuid.UUID
	svc     *service
	sub     orderstream.Subscription

	mu      sync.RWMutex
	history []models.OrderStatusHistory
	notes   []models.OrderNote
	loadErr error

	updates   chan orderstream.Event
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// OpenTrail subscribes to the order stream, then loads the persisted history
// and notes. A failed load is kept in LoadErr; live updates keep arriving.
func (s *service) OpenTrail(ctx context.Context, orderID uuid.UUID) (*Trail, error) {
	sub, err := s.broker.Subscribe(ctx, orderID)
	if err != nil {
		return nil, translate(err, "subscribe to order stream")
	}

	t := &Trail{
		id:      uuid.NewString(),
		orderID: orderID,
		svc:     s,
		sub:     sub,
		updates: make(chan orderstream.Event, 64),
		done:    make(chan struct{}),
	}

	history, err := s.History(ctx, orderID)
	if err == nil {
		t.history = history
		var notes []models.OrderNote
		notes, err = s.Notes(ctx, orderID)
		t.notes = notes
	}
	if err != nil {
		t.loadErr = err
		s.logg.Error(s.logg.WithField(ctx, "order_id", orderID.String()), "initial order trail load failed", err)
	}

	s.metrics.ViewerOpened()
	t.wg.Add(1)
	go t.run()
	return t, nil
}

// ID identifies the trail as origin of its own writes.
func (t *Trail) ID() string {
	return t.id
}

// LoadErr reports the initial load failure, if any.
func (t *Trail) LoadErr() error {
	return t.loadErr
}

// Updates delivers every merged live event. It is closed when the trail closes.
func (t *Trail) Updates() <-chan orderstream.Event {
	return t.updates
}

// History returns a copy of the history view, newest first.
func (t *Trail) History() []models.OrderStatusHistory {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.OrderStatusHistory, len(t.history))
	copy(out, t.history)
	return out
}

// Notes returns a copy of the notes view, oldest first.
func (t *Trail) Notes() []models.OrderNote {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.OrderNote, len(t.notes))
	copy(out, t.notes)
	return out
}

// AddStatusChange records a transition and prepends it to this view.
func (t *Trail) AddStatusChange(ctx context.Context, oldStatus, newStatus enums.OrderStatus, notes *string) (*models.OrderStatusHistory, error) {
	entry, err := t.svc.AddStatusChange(ctx, StatusChange{
		OrderID:   t.orderID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Notes:     notes,
		Origin:    t.id,
	})
	if err != nil {
		return nil, err
	}
	t.mergeHistory(*entry)
	return entry, nil
}

// AddNote records a note and appends it to this view.
func (t *Trail) AddNote(ctx context.Context, message string) (*models.OrderNote, error) {
	note, err := t.svc.AddNote(ctx, NoteInput{OrderID: t.orderID, Message: message, Origin: t.id})
	if err != nil {
		return nil, err
	}
	t.mergeNote(*note)
	return note, nil
}

// Close unsubscribes from the order stream. It is safe to call more than once.
func (t *Trail) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.sub.Close()
		t.wg.Wait()
		close(t.updates)
		t.svc.metrics.ViewerClosed()
	})
	return err
}

func (t *Trail) run() {
	defer t.wg.Done()
	events := t.sub.Events()
	for {
		select {
		case <-t.done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.OrderID != t.orderID || (event.Origin != "" && event.Origin == t.id) {
				continue
			}
			if !t.merge(event) {
				continue
			}
			select {
			case t.updates <- event:
			case <-t.done:
				return
			}
		}
	}
}

func (t *Trail) merge(event orderstream.Event) bool {
	switch event.Kind {
	case orderstream.KindHistory:
		if event.History == nil {
			return false
		}
		return t.mergeHistory(*event.History)
	case orderstream.KindNote:
		if event.Note == nil {
			return false
		}
		return t.mergeNote(*event.Note)
	}
	return false
}

func (t *Trail) mergeHistory(entry models.OrderStatusHistory) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.svc.merge == config.MergePolicyUpsert {
		for _, existing := range t.history {
			if existing.ID == entry.ID {
				return false
			}
		}
	}
	t.history = append([]models.OrderStatusHistory{entry}, t.history...)
	return true
}

func (t *Trail) mergeNote(note models.OrderNote) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.svc.merge == config.MergePolicyUpsert {
		for _, existing := range t.notes {
			if existing.ID == note.ID {
				return false
			}
		}
	}
	t.notes = append(t.notes, note)
	return true
}
