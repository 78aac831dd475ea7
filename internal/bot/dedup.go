package bot

import (
	"fmt"
	"sync"
)

// dedupCapacity holds enough history that a redelivered update is always
// caught at human message rates.
const dedupCapacity = 1000

// messageDedup remembers recently processed messages so a replayed update
// is handled at most once. When full, the oldest half is dropped.
type messageDedup struct {
	mu   sync.Mutex
	seen map[string]struct{}
	keys []string
}

func newMessageDedup() *messageDedup {
	return &messageDedup{
		seen: make(map[string]struct{}, dedupCapacity),
	}
}

// Seen marks a message and reports whether it was already processed.
func (d *messageDedup) Seen(chatID int64, messageID int) bool {
	key := fmt.Sprintf("%d_%d", chatID, messageID)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, dup := d.seen[key]; dup {
		return true
	}
	d.seen[key] = struct{}{}
	d.keys = append(d.keys, key)

	if len(d.keys) > dedupCapacity {
		keep := d.keys[len(d.keys)/2:]
		for _, old := range d.keys[:len(d.keys)/2] {
			delete(d.seen, old)
		}
		d.keys = append([]string(nil), keep...)
	}
	return false
}
