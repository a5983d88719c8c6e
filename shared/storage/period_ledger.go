package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// PeriodLedger records which digest periods have already been delivered so a
// restart does not send the same period twice.
type PeriodLedger struct {
	filePath  string
	delivered map[string]time.Time
	mu        sync.RWMutex
	maxAge    time.Duration
	now       func() time.Time
}

// DeliveredPeriod is one ledger entry.
type DeliveredPeriod struct {
	Period      string    `json:"period"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// NewPeriodLedger opens the ledger in dataDir. Entries older than maxAge are
// dropped on load.
func NewPeriodLedger(dataDir string, maxAge time.Duration) (*PeriodLedger, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	ledger := &PeriodLedger{
		filePath:  filepath.Join(dataDir, "delivered_digests.json"),
		delivered: make(map[string]time.Time),
		maxAge:    maxAge,
		now:       time.Now,
	}

	if err := ledger.load(); err != nil {
		return nil, fmt.Errorf("failed to load digest ledger: %w", err)
	}
	ledger.cleanup()

	return ledger, nil
}

// IsDelivered reports whether period was delivered within maxAge.
func (l *PeriodLedger) IsDelivered(period string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	deliveredAt, exists := l.delivered[period]
	if !exists {
		return false
	}
	return l.now().Sub(deliveredAt) < l.maxAge
}

// MarkDelivered records period and writes the ledger.
func (l *PeriodLedger) MarkDelivered(period string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.delivered[period] = l.now()
	return l.save()
}

// Count returns the number of tracked periods.
func (l *PeriodLedger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.delivered)
}

func (l *PeriodLedger) cleanup() {
	cutoff := l.now().Add(-l.maxAge)
	for period, deliveredAt := range l.delivered {
		if deliveredAt.Before(cutoff) {
			delete(l.delivered, period)
		}
	}
}

func (l *PeriodLedger) load() error {
	file, err := os.Open(l.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open ledger file: %w", err)
	}
	defer file.Close()

	var entries []DeliveredPeriod
	if err := json.NewDecoder(file).Decode(&entries); err != nil {
		return fmt.Errorf("failed to decode ledger data: %w", err)
	}

	for _, e := range entries {
		l.delivered[e.Period] = e.DeliveredAt
	}
	return nil
}

// save writes entries sorted by period so the file diffs cleanly.
func (l *PeriodLedger) save() error {
	entries := make([]DeliveredPeriod, 0, len(l.delivered))
	for period, deliveredAt := range l.delivered {
		entries = append(entries, DeliveredPeriod{Period: period, DeliveredAt: deliveredAt})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Period < entries[j].Period })

	file, err := os.Create(l.filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(entries)
}
