package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sitebuilder/internal/domain"
	"sitebuilder/internal/publish"
	"sitebuilder/internal/secret"
	"sitebuilder/internal/storage"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
)

// PublisherFactory opens a publisher for a target.
type PublisherFactory func(ctx context.Context, t publish.Target, password string) (publish.Publisher, error)

// PublishService pushes site documents to the configured target, on demand
// or on a cron schedule, and re-imports a document file when it changes.
type PublishService struct {
	site    *SiteService
	runs    *storage.PublishRunStore
	secrets secret.SecretStore
	emitter EventEmitter
	target  publish.Target
	open    PublisherFactory
	running runningGuard

	mu          sync.Mutex
	watchCancel context.CancelFunc
	watcher     *fsnotify.Watcher
	cronSched   *cron.Cron
}

// NewPublishService creates a PublishService. runs may be nil.
func NewPublishService(
	site *SiteService,
	runs *storage.PublishRunStore,
	secrets secret.SecretStore,
	emitter EventEmitter,
	target publish.Target,
) *PublishService {
	return &PublishService{
		site:    site,
		runs:    runs,
		secrets: secrets,
		emitter: emitter,
		target:  target,
		open:    publish.New,
	}
}

// SetPublisherFactory replaces how publishers are opened. Used by tests.
func (s *PublishService) SetPublisherFactory(f PublisherFactory) {
	s.open = f
}

// Publish renders a configuration and hands it to the configured target.
// Concurrent publishes of the same configuration fail with ErrBusy.
func (s *PublishService) Publish(ctx context.Context, configID string) error {
	if !s.running.TryLock("publish:" + configID) {
		return fmt.Errorf("publish %s: %w", configID, ErrBusy)
	}
	defer s.running.Unlock("publish:" + configID)

	doc, err := s.site.Document(configID)
	if err != nil {
		return err
	}

	var run *storage.PublishRun
	if s.runs != nil {
		if run, err = s.runs.Start(configID, string(s.target.Kind)); err != nil {
			log.Warn("record publish run", "configuration", configID, "err", err)
		}
	}

	runErr := s.publish(ctx, doc)
	if run != nil {
		if err := s.runs.Finish(run, runErr); err != nil {
			log.Warn("record publish run", "configuration", configID, "err", err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("publish %s: %w", configID, runErr)
	}

	log.Info("published", "configuration", configID, "target", s.target.Kind)
	s.emitter.Emit(ctx, EventPublished, map[string]string{"configurationId": configID, "target": string(s.target.Kind)})
	return nil
}

func (s *PublishService) publish(ctx context.Context, doc *domain.SiteDocument) error {
	password, err := s.secrets.Get(secret.PublishPasswordName)
	if err != nil {
		return fmt.Errorf("read publish password: %w", err)
	}
	p, err := s.open(ctx, s.target, string(password))
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	return p.Publish(ctx, doc)
}

// PublishAll publishes every configuration and returns the first error.
func (s *PublishService) PublishAll(ctx context.Context) error {
	configs, err := s.site.ListConfigurations()
	if err != nil {
		return err
	}
	var first error
	for _, c := range configs {
		if err := s.Publish(ctx, c.ID); err != nil {
			log.Error("publish failed", "configuration", c.ID, "err", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// History returns the most recent publish runs of a configuration.
func (s *PublishService) History(configID string, limit int) ([]storage.PublishRun, error) {
	if s.runs == nil {
		return nil, nil
	}
	return s.runs.List(configID, limit)
}

// Export writes a configuration's document to path; the extension selects
// YAML or JSON.
func (s *PublishService) Export(configID, path string) error {
	doc, err := s.site.Document(configID)
	if err != nil {
		return err
	}
	data, err := publish.Encode(doc, formatOf(path))
	if err != nil {
		return err
	}
	return publish.WriteFileAtomic(path, data)
}

// Import reads a document file and stores it.
func (s *PublishService) Import(ctx context.Context, path string) (*domain.Configuration, error) {
	if !s.running.TryLock("import:" + path) {
		return nil, fmt.Errorf("import %s: %w", path, ErrBusy)
	}
	defer s.running.Unlock("import:" + path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	doc, err := publish.Decode(path, data)
	if err != nil {
		return nil, err
	}
	c, err := s.site.ImportDocument(ctx, doc)
	if err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, EventImported, map[string]string{"configurationId": c.ID, "path": path})
	return c, nil
}

func formatOf(path string) string {
	if filepath.Ext(path) == ".json" {
		return "json"
	}
	return "yaml"
}

// ── Schedule and watcher ───────────────────────────────────

// StartSchedule publishes on a cron expression. An empty configIDs list
// publishes every configuration.
func (s *PublishService) StartSchedule(ctx context.Context, spec string, configIDs []string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if len(configIDs) == 0 {
			if err := s.PublishAll(ctx); err != nil {
				log.Error("scheduled publish failed", "err", err)
			}
			return
		}
		for _, id := range configIDs {
			if err := s.Publish(ctx, id); err != nil {
				log.Error("scheduled publish failed", "configuration", id, "err", err)
			}
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	s.mu.Lock()
	if s.cronSched != nil {
		s.cronSched.Stop()
	}
	s.cronSched = c
	s.mu.Unlock()

	c.Start()
	log.Info("publish schedule started", "spec", spec)
	return nil
}

// WatchImport re-imports path whenever it is written. Writes are debounced
// by 500ms.
func (s *PublishService) WatchImport(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("bad path %q: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory so editors that replace the file are seen.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %q: %w", filepath.Dir(absPath), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.stopWatcherLocked()
	s.watcher = watcher
	s.watchCancel = cancel
	s.mu.Unlock()

	go func() {
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if name, _ := filepath.Abs(event.Name); name != absPath {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(500*time.Millisecond, func() {
					log.Info("document changed, importing", "path", absPath)
					if _, err := s.Import(watchCtx, absPath); err != nil {
						log.Error("import failed", "path", absPath, "err", err)
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("watcher error", "err", err)
			}
		}
	}()

	log.Info("watching document", "path", absPath)
	return nil
}

// WaitRunning blocks until running publishes and imports finish or ctx is
// cancelled.
func (s *PublishService) WaitRunning(ctx context.Context) {
	s.running.WaitAll(ctx)
}

// Stop tears down the watcher and the schedule.
func (s *PublishService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopWatcherLocked()
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
}

func (s *PublishService) stopWatcherLocked() {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
}
