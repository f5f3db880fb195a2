package store

import (
	"encoding/json"
	"fmt"
	"time"

	"shiptrack/internal/model"
)

// viewedAtLayout is fixed width so stored timestamps sort lexically.
const viewedAtLayout = "2006-01-02T15:04:05.000Z"

// NewHistoryEntry builds the entry for a document viewed at now.
func NewHistoryEntry(meta model.HistoryMetadata, raw json.RawMessage, now time.Time) model.HistoryEntry {
	id := meta.Identity()
	now = now.UTC()
	return model.HistoryEntry{
		Key:      fmt.Sprintf("%s-%d", id, now.UnixMilli()),
		Identity: id,
		Metadata: meta,
		RawData:  raw,
		ViewedAt: now.Format(viewedAtLayout),
	}
}

// prepend puts e first, drops other entries for the same identity and caps
// the list at max. It returns the new list and the entries that fell out.
func prepend(list []model.HistoryEntry, e model.HistoryEntry, max int) (kept, dropped []model.HistoryEntry) {
	if max < 1 {
		max = DefaultHistoryMax
	}
	kept = append(kept, e)
	for _, old := range list {
		switch {
		case old.Key == e.Key:
		case old.Identity == e.Identity, len(kept) >= max:
			dropped = append(dropped, old)
		default:
			kept = append(kept, old)
		}
	}
	return kept, dropped
}
