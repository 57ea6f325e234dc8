package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/melibackend/retail-dashboard/internal/models"
)

// FeedEntry is one recorded sale with its feed offset
type FeedEntry struct {
	Offset     int64                     `json:"offset"`
	RecordedAt time.Time                 `json:"recordedAt"`
	Sale       models.SaleCompletedEvent `json:"sale"`
}

// SaleFeedConfig holds configuration for the sale feed
type SaleFeedConfig struct {
	// FilePath persists the feed across restarts; empty keeps it in memory
	FilePath  string
	MaxEvents int
	Logger    *slog.Logger
}

// SaleFeed is a bounded, offset-ordered journal of recent sales. Readers page
// through it by offset and may block until newer sales arrive.
type SaleFeed struct {
	mu         sync.RWMutex
	entries    []FeedEntry
	nextOffset int64
	maxEvents  int
	filePath   string
	logger     *slog.Logger

	// changed is closed and replaced whenever an entry is appended
	changed chan struct{}

	saveCh    chan struct{}
	stopCh    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type feedFile struct {
	Entries    []FeedEntry `json:"entries"`
	NextOffset int64       `json:"nextOffset"`
}

// NewSaleFeed creates a feed, loading persisted entries when FilePath is set
func NewSaleFeed(cfg SaleFeedConfig) (*SaleFeed, error) {
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = 1000
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	f := &SaleFeed{
		entries:   make([]FeedEntry, 0),
		maxEvents: cfg.MaxEvents,
		filePath:  cfg.FilePath,
		logger:    cfg.Logger,
		changed:   make(chan struct{}),
		saveCh:    make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}

	if f.filePath != "" {
		if err := os.MkdirAll(filepath.Dir(f.filePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create feed directory: %w", err)
		}
		if err := f.loadFromFile(); err != nil {
			f.logger.Warn("Failed to load sale feed from file, starting fresh", "error", err)
			f.entries = f.entries[:0]
			f.nextOffset = 0
		}
	}

	go f.persistLoop()

	f.logger.Info("Sale feed initialized",
		"file_path", f.filePath,
		"max_events", f.maxEvents,
		"loaded_events", len(f.entries),
		"next_offset", f.nextOffset)

	return f, nil
}

// PublishSale appends event to the feed
func (f *SaleFeed) PublishSale(_ context.Context, event models.SaleCompletedEvent) error {
	f.mu.Lock()
	entry := FeedEntry{Offset: f.nextOffset, RecordedAt: time.Now().UTC(), Sale: event}
	f.nextOffset++
	f.entries = append(f.entries, entry)

	if len(f.entries) > f.maxEvents {
		keep := f.maxEvents * 3 / 4
		if keep == 0 {
			keep = 1
		}
		removed := len(f.entries) - keep
		f.entries = append([]FeedEntry(nil), f.entries[removed:]...)
		f.logger.Info("Sale feed rotated", "removed_events", removed, "remaining_events", len(f.entries))
	}

	close(f.changed)
	f.changed = make(chan struct{})
	f.mu.Unlock()

	f.requestSave()
	f.logger.Debug("Sale recorded in feed", "offset", entry.Offset, "sale_id", event.SaleID.String())
	return nil
}

// Since returns up to limit entries with offset >= fromOffset, the offset to
// resume from and whether more entries are already available.
func (f *SaleFeed) Since(fromOffset int64, limit int) ([]FeedEntry, int64, bool) {
	return f.SinceMatching(fromOffset, limit, nil)
}

// SinceMatching is Since restricted to the entries match accepts. Entries it
// skips still advance the resume offset, so readers never rescan them.
func (f *SaleFeed) SinceMatching(fromOffset int64, limit int, match func(FeedEntry) bool) ([]FeedEntry, int64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	next := fromOffset
	if next > f.nextOffset || next < 0 {
		next = f.nextOffset
	}

	result := []FeedEntry{}
	for _, e := range f.entries {
		if e.Offset < fromOffset {
			continue
		}
		accepted := match == nil || match(e)
		if len(result) == limit {
			if accepted {
				return result, next, true
			}
			next = e.Offset + 1
			continue
		}
		next = e.Offset + 1
		if accepted {
			result = append(result, e)
		}
	}
	return result, next, false
}

// Wait blocks until an entry with offset >= fromOffset exists or ctx ends.
// It reports whether such an entry is available.
func (f *SaleFeed) Wait(ctx context.Context, fromOffset int64) bool {
	for {
		f.mu.RLock()
		available := f.nextOffset > fromOffset && len(f.entries) > 0
		changed := f.changed
		f.mu.RUnlock()

		if available {
			return true
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return false
		}
	}
}

// CurrentOffset returns the offset the next sale will receive
func (f *SaleFeed) CurrentOffset() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.nextOffset
}

// Close stops the persistence worker and writes a final snapshot
func (f *SaleFeed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		f.logger.Info("Shutting down sale feed")
		close(f.stopCh)
		<-f.done
		err = f.saveToFile()
	})
	return err
}

func (f *SaleFeed) requestSave() {
	if f.filePath == "" {
		return
	}
	select {
	case f.saveCh <- struct{}{}:
	default:
	}
}

// persistLoop coalesces save requests into file writes
func (f *SaleFeed) persistLoop() {
	defer close(f.done)
	for {
		select {
		case <-f.saveCh:
			if err := f.saveToFile(); err != nil {
				f.logger.Error("Failed to save sale feed", "error", err)
			}
		case <-f.stopCh:
			return
		}
	}
}

func (f *SaleFeed) loadFromFile() error {
	data, err := os.ReadFile(f.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read feed file: %w", err)
	}

	var ff feedFile
	if err := json.Unmarshal(data, &ff); err != nil {
		return fmt.Errorf("failed to unmarshal feed file: %w", err)
	}

	f.entries = ff.Entries
	if f.entries == nil {
		f.entries = make([]FeedEntry, 0)
	}
	f.nextOffset = ff.NextOffset
	return nil
}

// saveToFile writes the feed atomically through a temp file
func (f *SaleFeed) saveToFile() error {
	if f.filePath == "" {
		return nil
	}

	f.mu.RLock()
	data, err := json.MarshalIndent(feedFile{Entries: f.entries, NextOffset: f.nextOffset}, "", "  ")
	f.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal feed: %w", err)
	}

	tempFile := f.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp feed file: %w", err)
	}
	if err := os.Rename(tempFile, f.filePath); err != nil {
		return fmt.Errorf("failed to rename temp feed file: %w", err)
	}
	return nil
}
