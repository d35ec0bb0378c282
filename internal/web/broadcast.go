package web

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"reblock-cli/internal/store"
)

type resourceKey struct {
	kind string
	id   string
}

func (k resourceKey) String() string {
	kind := strings.TrimSpace(k.kind)
	id := strings.TrimSpace(k.id)
	if id == "" {
		return kind
	}
	return kind + ":" + id
}

type resourceHub struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func newResourceHub() *resourceHub {
	return &resourceHub{subs: map[chan struct{}]struct{}{}}
}

func (h *resourceHub) subscribe() (ch chan struct{}, cancel func()) {
	ch = make(chan struct{}, 8)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		close(ch)
	}
}

func (h *resourceHub) broadcast() {
	h.mu.Lock()
	for ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	h.mu.Unlock()
}

// resourceBroadcaster polls the workspace database and wakes subscribers of
// whatever the new events touched.
type resourceBroadcaster struct {
	st       store.Store
	interval time.Duration

	mu      sync.Mutex
	hubs    map[string]*resourceHub
	fp      string
	seen    map[string]struct{}
	seenLRU []string

	stopOnce sync.Once
	stopCh   chan struct{}
}

func newResourceBroadcaster(st store.Store, interval time.Duration) *resourceBroadcaster {
	if interval <= 0 {
		interval = time.Second
	}
	return &resourceBroadcaster{
		st:       st,
		interval: interval,
		hubs:     map[string]*resourceHub{},
		seen:     map[string]struct{}{},
		stopCh:   make(chan struct{}),
	}
}

func (b *resourceBroadcaster) Stop() {
	if b == nil {
		return
	}
	b.stopOnce.Do(func() {
		close(b.stopCh)
	})
}

func (b *resourceBroadcaster) hubFor(key resourceKey) *resourceHub {
	k := key.String()
	if k == "" {
		k = "workspace"
	}
	b.mu.Lock()
	h := b.hubs[k]
	if h == nil {
		h = newResourceHub()
		b.hubs[k] = h
	}
	b.mu.Unlock()
	return h
}

// fingerprint stamps the SQLite file and its WAL; writes from any process
// change one of them.
func (b *resourceBroadcaster) fingerprint() string {
	var modNano, size int64
	for _, p := range []string{b.st.DBPath(), b.st.DBPath() + "-wal"} {
		st, err := os.Stat(p)
		if err != nil {
			continue
		}
		if st.ModTime().UnixNano() > modNano {
			modNano = st.ModTime().UnixNano()
		}
		size += st.Size()
	}
	if modNano == 0 && size == 0 {
		return ""
	}
	return strconv.FormatInt(modNano, 10) + ":" + strconv.FormatInt(size, 10)
}

func (b *resourceBroadcaster) currentFingerprint() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fp
}

func (b *resourceBroadcaster) noteSeen(eventID string) bool {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.seen[eventID]; ok {
		return false
	}
	b.seen[eventID] = struct{}{}
	b.seenLRU = append(b.seenLRU, eventID)
	const capEvents = 1000
	if len(b.seenLRU) > capEvents {
		evict := b.seenLRU[:len(b.seenLRU)-capEvents]
		b.seenLRU = b.seenLRU[len(b.seenLRU)-capEvents:]
		for _, id := range evict {
			delete(b.seen, id)
		}
	}
	return true
}

func (b *resourceBroadcaster) setFingerprint(fp string) {
	b.mu.Lock()
	b.fp = fp
	b.mu.Unlock()
}

func (b *resourceBroadcaster) watchLoop() {
	// Events already in the store when the server starts are not news.
	b.poll(true)

	t := time.NewTicker(b.interval)
	defer t.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-t.C:
		}
		b.poll(false)
	}
}

func (b *resourceBroadcaster) poll(prime bool) {
	fp := b.fingerprint()
	if fp == "" || (!prime && fp == b.currentFingerprint()) {
		return
	}
	b.setFingerprint(fp)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	evs, err := b.st.ReadEvents(ctx, 200)
	if err != nil {
		return
	}

	changed := map[resourceKey]struct{}{}
	for _, ev := range evs {
		if !b.noteSeen(ev.ID) || prime {
			continue
		}
		typ := strings.TrimSpace(ev.Type)
		switch {
		case strings.HasPrefix(typ, "reusable_block."):
			changed[resourceKey{kind: "reusable", id: ev.EntityID}] = struct{}{}
		case strings.HasPrefix(typ, "document."):
			changed[resourceKey{kind: "document", id: ev.EntityID}] = struct{}{}
		}
		// Documents inline reusable blocks, so every change can reach them.
		changed[resourceKey{kind: "workspace"}] = struct{}{}
	}
	for k := range changed {
		b.hubFor(k).broadcast()
	}
}
