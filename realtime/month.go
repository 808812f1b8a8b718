package realtime

import (
	"sync"
	"time"

	"github.com/hogarlabs/hogar-api/models"
	"github.com/hogarlabs/hogar-api/store"
	"github.com/hogarlabs/hogar-api/utils"
)

// MonthSnapshot is the current state of a month window: the period key,
// the expenses stored under it ordered by date descending, and their
// exact integer sum in minor units.
type MonthSnapshot struct {
	Period     string           `json:"period"`
	Items      []models.Expense `json:"items"`
	TotalCents int64            `json:"totalCents"`
	Err        error            `json:"-"`
}

// MonthWindow resolves the "current viewing period" over a project's
// expense collection. It holds at most one live subscription at a time;
// navigating to another month tears the old one down before the new one
// opens, so no emission ever mixes two periods.
type MonthWindow struct {
	gw  store.Gateway
	col string

	mu       sync.Mutex
	ref      time.Time
	period   string
	gen      int
	cancel   store.CancelFunc
	items    []models.Expense
	total    int64
	err      error
	onChange func(MonthSnapshot)
	closed   bool
}

// NewMonthWindow opens a window anchored at now and starts the first
// subscription. onChange fires on every record-set change, including
// the initial snapshot.
func NewMonthWindow(gw store.Gateway, projectID string, now time.Time, onChange func(MonthSnapshot)) *MonthWindow {
	w := &MonthWindow{
		gw:       gw,
		col:      models.ExpensesCol(projectID),
		ref:      now,
		onChange: onChange,
	}
	w.resubscribe()
	return w
}

// Advance shifts the reference date by delta months and re-subscribes
// when the period key actually changed.
func (w *MonthWindow) Advance(delta int) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.ref = utils.AddMonths(w.ref, delta)
	changed := utils.PeriodKey(w.ref) != w.period
	w.mu.Unlock()

	if changed {
		w.resubscribe()
	}
}

// Period returns the current period key.
func (w *MonthWindow) Period() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.period
}

// Snapshot returns the latest state.
func (w *MonthWindow) Snapshot() MonthSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *MonthWindow) snapshotLocked() MonthSnapshot {
	items := make([]models.Expense, len(w.items))
	copy(items, w.items)
	return MonthSnapshot{Period: w.period, Items: items, TotalCents: w.total, Err: w.err}
}

// Close cancels the active subscription. Idempotent.
func (w *MonthWindow) Close() {
	w.mu.Lock()
	w.closed = true
	w.gen++
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (w *MonthWindow) resubscribe() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.gen++
	gen := w.gen
	old := w.cancel
	w.cancel = nil
	w.period = utils.PeriodKey(w.ref)
	period := w.period
	w.items = nil
	w.total = 0
	w.err = nil
	w.mu.Unlock()

	if old != nil {
		old()
	}

	q := store.Query{
		Collection: w.col,
		Filters:    []store.Filter{{Field: "yearMonth", Value: period}},
		OrderBy:    "date",
		Desc:       true,
	}
	cancel := w.gw.Subscribe(q,
		func(docs []store.Document) { w.apply(gen, docs) },
		func(err error) { w.fail(gen, err) },
	)

	w.mu.Lock()
	if w.closed || gen != w.gen {
		w.mu.Unlock()
		cancel()
		return
	}
	w.cancel = cancel
	w.mu.Unlock()
}

func (w *MonthWindow) apply(gen int, docs []store.Document) {
	w.mu.Lock()
	if w.closed || gen != w.gen {
		w.mu.Unlock()
		return
	}

	items := make([]models.Expense, 0, len(docs))
	var total int64
	for _, d := range docs {
		var e models.Expense
		if err := d.Decode(&e); err != nil {
			continue
		}
		e.ID = d.ID
		items = append(items, e)
		total += e.AmountCents
	}
	w.items = items
	w.total = total
	w.err = nil
	snap := w.snapshotLocked()
	cb := w.onChange
	w.mu.Unlock()

	if cb != nil {
		cb(snap)
	}
}

// fail surfaces a subscription error and stops emitting stale rows. No
// automatic retry; the caller decides whether to reopen.
func (w *MonthWindow) fail(gen int, err error) {
	w.mu.Lock()
	if w.closed || gen != w.gen {
		w.mu.Unlock()
		return
	}
	w.items = nil
	w.total = 0
	w.err = err
	snap := w.snapshotLocked()
	cb := w.onChange
	w.mu.Unlock()

	if cb != nil {
		cb(snap)
	}
}
