package app

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	mcpserver "sitebuilder/internal/mcp"
	"sitebuilder/internal/service"
	"sitebuilder/internal/storage"

	"github.com/charmbracelet/log"
)

// pageWatcher polls the database for widget and page changes made by other
// processes (a standalone MCP server editing the same database) and emits
// events so connected editors refresh.
type pageWatcher struct {
	db        *sql.DB
	approvals *storage.ApprovalStore
	emitter   service.EventEmitter
	interval  time.Duration

	mu sync.Mutex
	// page id → widget fingerprint (count + max updated_at)
	widgets map[string]string
	// configuration id → page list fingerprint
	pages  map[string]string
	primed bool
	// Track emitted approval IDs to avoid re-emission
	emittedApprovals map[string]bool
	stopCh           chan struct{}
}

func newPageWatcher(db *storage.DB, emitter service.EventEmitter, interval time.Duration) *pageWatcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &pageWatcher{
		db:               db.Conn(),
		approvals:        storage.NewApprovalStore(db),
		emitter:          emitter,
		interval:         interval,
		widgets:          map[string]string{},
		pages:            map[string]string{},
		emittedApprovals: map[string]bool{},
	}
}

// Start begins the polling loop. It stops when ctx is done or Stop is called.
func (w *pageWatcher) Start(ctx context.Context) {
	w.stopCh = make(chan struct{})
	go w.pollLoop(ctx)
}

func (w *pageWatcher) Stop() {
	if w.stopCh != nil {
		close(w.stopCh)
		w.stopCh = nil
	}
}

func (w *pageWatcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	stop := w.stopCh

	w.check(ctx)
	for {
		select {
		case <-ticker.C:
			w.check(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// fingerprints returns key → "count:max(updated_at)" for a grouped table.
func (w *pageWatcher) fingerprints(query string) (map[string]string, error) {
	rows, err := w.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var key, updated string
		var count int
		if err := rows.Scan(&key, &count, &updated); err != nil {
			return nil, err
		}
		out[key] = fmt.Sprintf("%d:%s", count, updated)
	}
	return out, rows.Err()
}

// diff lists the keys whose fingerprint changed, appeared or disappeared.
func diff(prev, next map[string]string) []string {
	var changed []string
	for k, v := range next {
		if prev[k] != v {
			changed = append(changed, k)
		}
	}
	for k := range prev {
		if _, ok := next[k]; !ok {
			changed = append(changed, k)
		}
	}
	return changed
}

func (w *pageWatcher) check(ctx context.Context) {
	widgets, err := w.fingerprints(
		`SELECT page_id, COUNT(*), COALESCE(MAX(updated_at), '') FROM widgets GROUP BY page_id`,
	)
	if err != nil {
		log.Debug("page watcher: widgets", "err", err)
		return
	}
	pages, err := w.fingerprints(
		`SELECT configuration_id, COUNT(*), COALESCE(MAX(updated_at), '') FROM pages GROUP BY configuration_id`,
	)
	if err != nil {
		log.Debug("page watcher: pages", "err", err)
		return
	}

	w.mu.Lock()
	var changedWidgets, changedPages []string
	if w.primed {
		changedWidgets = diff(w.widgets, widgets)
		changedPages = diff(w.pages, pages)
	}
	w.widgets, w.pages, w.primed = widgets, pages, true
	w.mu.Unlock()

	for _, pageID := range changedWidgets {
		w.emitter.Emit(ctx, service.EventWidgetsChanged, map[string]string{"pageId": pageID, "reason": "database"})
	}
	for _, configID := range changedPages {
		w.emitter.Emit(ctx, service.EventPagesChanged, map[string]string{"configurationId": configID})
	}

	w.checkApprovals(ctx)
}

// checkApprovals announces approvals written by standalone MCP processes.
func (w *pageWatcher) checkApprovals(ctx context.Context) {
	pending, err := w.approvals.ListPending()
	if err != nil {
		log.Debug("page watcher: approvals", "err", err)
		return
	}
	current := make(map[string]bool, len(pending))
	for _, a := range pending {
		current[a.ID] = true
		w.mu.Lock()
		alreadySent := w.emittedApprovals[a.ID]
		w.emittedApprovals[a.ID] = true
		w.mu.Unlock()
		if !alreadySent {
			w.emitter.Emit(ctx, mcpserver.EventApprovalRequired, a)
		}
	}

	// Forget approvals that were resolved or deleted.
	w.mu.Lock()
	for id := range w.emittedApprovals {
		if !current[id] {
			delete(w.emittedApprovals, id)
		}
	}
	w.mu.Unlock()
}
