// Package mediagroup collects the photos of a Telegram album, which arrive
// as separate updates, into one group.
package mediagroup

import (
	"fmt"
	"sync"
	"time"
)

type Item struct {
	ChatID       int64
	UserID       int64
	MediaGroupID string
	Caption      string
	FileID       string
}

// Group is a flushed album. FileIDs keep arrival order; Caption is the last
// non-empty caption seen (Telegram puts an album caption on one item).
type Group struct {
	ChatID  int64
	UserID  int64
	Caption string
	FileIDs []string
	// Dropped counts photos beyond MaxItems.
	Dropped int
}

type Options struct {
	Debounce time.Duration
	// MaxItems caps a group; later photos are counted in Group.Dropped.
	MaxItems int
	OnFlush  func(Group)
}

type Aggregator struct {
	mu       sync.Mutex
	debounce time.Duration
	maxItems int
	onFlush  func(Group)
	groups   map[string]*pendingGroup
}

type pendingGroup struct {
	group Group
	timer *time.Timer
}

func New(opts Options) *Aggregator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 1200 * time.Millisecond
	}
	maxItems := opts.MaxItems
	if maxItems <= 0 {
		maxItems = 10
	}

	return &Aggregator{
		debounce: debounce,
		maxItems: maxItems,
		onFlush:  opts.OnFlush,
		groups:   make(map[string]*pendingGroup),
	}
}

// Add queues an album photo. The group flushes once no new photo has arrived
// for the debounce window.
func (a *Aggregator) Add(item Item) {
	if item.MediaGroupID == "" || item.FileID == "" {
		return
	}

	key := makeKey(item.ChatID, item.MediaGroupID)

	a.mu.Lock()
	defer a.mu.Unlock()

	pg, ok := a.groups[key]
	if !ok {
		pg = &pendingGroup{group: Group{ChatID: item.ChatID, UserID: item.UserID}}
		a.groups[key] = pg
	}

	if len(pg.group.FileIDs) < a.maxItems {
		pg.group.FileIDs = append(pg.group.FileIDs, item.FileID)
	} else {
		pg.group.Dropped++
	}
	if item.Caption != "" {
		pg.group.Caption = item.Caption
	}

	if pg.timer != nil {
		pg.timer.Stop()
	}
	pg.timer = time.AfterFunc(a.debounce, func() {
		a.flush(key)
	})
}

// Pending reports how many albums are still collecting.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.groups)
}

func (a *Aggregator) flush(key string) {
	a.mu.Lock()
	pg, ok := a.groups[key]
	if !ok {
		a.mu.Unlock()
		return
	}
	delete(a.groups, key)
	group := pg.group
	onFlush := a.onFlush
	a.mu.Unlock()

	if onFlush != nil {
		onFlush(group)
	}
}

func makeKey(chatID int64, mediaGroupID string) string {
	return fmt.Sprintf("%d:%s", chatID, mediaGroupID)
}
