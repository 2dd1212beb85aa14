package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// AuditEntry is one line of the audit trail.
type AuditEntry struct {
	EventType  string    `json:"event_type"`
	ActivityID int       `json:"activity_id,omitempty"`
	Category   string    `json:"category,omitempty"`
	Title      string    `json:"title,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Partition  int       `json:"partition"`
	Offset     int64     `json:"offset"`
}

// AuditHandler logs every change event and, when a path is set, appends it
// to a JSON lines file.
type AuditHandler struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// NewAuditHandler builds an AuditHandler. An empty path only logs.
func NewAuditHandler(fs afero.Fs, path string) *AuditHandler {
	return &AuditHandler{fs: fs, path: path}
}

// Handle implements Handler.
func (h *AuditHandler) Handle(_ context.Context, msg Message) error {
	entry := AuditEntry{
		EventType:  msg.Event.Type,
		ActivityID: msg.Event.ActivityID,
		Category:   msg.Event.Category,
		OccurredAt: msg.Event.OccurredAt.UTC(),
		Partition:  msg.Partition,
		Offset:     msg.Offset,
	}
	if msg.Event.Activity != nil {
		entry.Title = msg.Event.Activity.Title
		if entry.Category == "" {
			entry.Category = msg.Event.Activity.Category
		}
	}

	log.Printf("event %s key=%s partition=%d offset=%d", entry.EventType, msg.Key, msg.Partition, msg.Offset)
	if h.path == "" {
		return nil
	}
	return h.append(entry)
}

func (h *AuditHandler) append(entry AuditEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if dir := filepath.Dir(h.path); dir != "." {
		if err := h.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create audit dir: %w", err)
		}
	}
	f, err := h.fs.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("write audit entry: %w", err)
	}
	return f.Close()
}
