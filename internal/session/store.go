package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"saree-studio/internal/design"
	"saree-studio/internal/render"
)

var ErrNotFound = errors.New("session not found")

type Options struct {
	TTL time.Duration
	// OnExpire is called after a session expires or is deleted.
	OnExpire func(id string)
}

// Store keeps design sessions in memory. Every access refreshes the idle TTL;
// sessions are dropped once they have been idle for longer than it.
type Store struct {
	mu    sync.Mutex
	cache *cache.Cache
	ttl   time.Duration
}

func NewStore(opts Options) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}

	c := cache.New(ttl, cleanupInterval(ttl))
	if opts.OnExpire != nil {
		onExpire := opts.OnExpire
		c.OnEvicted(func(key string, _ interface{}) {
			onExpire(key)
		})
	}

	return &Store{cache: c, ttl: ttl}
}

// Create starts a new session with a random ID and the default design.
func (s *Store) Create() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := newSession(uuid.NewString())
	s.cache.Set(sess.ID, sess, cache.DefaultExpiration)
	return sess
}

func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	sess := v.(*Session)
	s.touchLocked(sess)
	return sess, nil
}

// GetOrCreate returns the session stored under key, creating it when absent.
// Chat front-ends key sessions by chat rather than by a random ID.
func (s *Store) GetOrCreate(key string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.cache.Get(key); ok {
		sess := v.(*Session)
		s.touchLocked(sess)
		return sess
	}

	sess := newSession(key)
	s.cache.Set(key, sess, cache.DefaultExpiration)
	return sess
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(id)
}

func (s *Store) Len() int {
	return s.cache.ItemCount()
}

func (s *Store) touchLocked(sess *Session) {
	sess.touch()
	s.cache.Set(sess.ID, sess, cache.DefaultExpiration)
}

func cleanupInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}

// Session is one design session. All fields are guarded by mu; callers work
// on snapshots returned by the accessors.
type Session struct {
	ID string

	mu           sync.Mutex
	state        design.State
	preview      *render.Artifact
	final        *render.Artifact
	motifs       map[design.Region]render.MotifResult
	previewSeq   render.Sequencer
	finalSeq     render.Sequencer
	busy         map[string]bool
	createdAt    time.Time
	lastActivity time.Time
}

func newSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		state:        design.DefaultState(),
		motifs:       make(map[design.Region]render.MotifResult),
		busy:         make(map[string]bool),
		createdAt:    now,
		lastActivity: now,
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// State returns a snapshot of the current design.
func (s *Session) State() design.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update applies fn to a copy of the state and commits the copy only when fn
// succeeds. The committed snapshot is returned.
func (s *Session) Update(fn func(*design.State) error) (design.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	if err := fn(&next); err != nil {
		return s.state, err
	}
	s.state = next
	s.lastActivity = time.Now()
	return s.state, nil
}

// Reset restores the default design and drops every artifact.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = design.DefaultState()
	s.preview = nil
	s.final = nil
	s.motifs = make(map[design.Region]render.MotifResult)
	s.previewSeq.Next()
	s.finalSeq.Next()
}

// BeginPreview tags a new preview request. Only the latest tag may publish.
func (s *Session) BeginPreview() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previewSeq.Next()
}

// SnapshotPreview returns the current state together with a new preview tag.
// Both are taken under one lock, so a newer tag always carries a state at
// least as new.
func (s *Session) SnapshotPreview() (design.State, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.previewSeq.Next()
}

// UpdateAndBeginPreview is Update followed by a preview tag in the same
// critical section. The tag is 0 when fn fails or the committed state is not
// ready to render.
func (s *Session) UpdateAndBeginPreview(fn func(*design.State) error) (design.State, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	if err := fn(&next); err != nil {
		return s.state, 0, err
	}
	s.state = next
	s.lastActivity = time.Now()
	if !next.ReadyToRender() {
		return next, 0, nil
	}
	return next, s.previewSeq.Next(), nil
}

// PublishPreview stores art as the current preview if seq is still the latest
// preview request. Placeholders never replace an earlier preview.
func (s *Session) PublishPreview(seq uint64, art render.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.previewSeq.IsLatest(seq) {
		return render.ErrStale
	}
	if art.Placeholder && s.preview != nil {
		return nil
	}
	s.preview = &art
	return nil
}

func (s *Session) BeginFinal() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalSeq.Next()
}

// SnapshotFinal is SnapshotPreview for final renders.
func (s *Session) SnapshotFinal() (design.State, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.finalSeq.Next()
}

func (s *Session) PublishFinal(seq uint64, art render.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.finalSeq.IsLatest(seq) {
		return render.ErrStale
	}
	if art.Placeholder && s.final != nil {
		return nil
	}
	s.final = &art
	return nil
}

// Preview returns the current preview, if any.
func (s *Session) Preview() (render.Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview == nil {
		return render.Artifact{}, false
	}
	return *s.preview, true
}

func (s *Session) Final() (render.Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.final == nil {
		return render.Artifact{}, false
	}
	return *s.final, true
}

func (s *Session) SetMotifs(res render.MotifResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	images := append([]string(nil), res.Images...)
	messages := append([]string(nil), res.Messages...)
	res.Images, res.Messages = images, messages
	s.motifs[res.Region] = res
}

// Motifs returns the last search result for a region.
func (s *Session) Motifs(r design.Region) (render.MotifResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.motifs[r]
	if !ok {
		return render.MotifResult{}, false
	}
	res.Images = append([]string(nil), res.Images...)
	res.Messages = append([]string(nil), res.Messages...)
	return res, true
}

// Acquire marks a control as busy. It returns false when the control already
// has a call in flight.
func (s *Session) Acquire(control string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy[control] {
		return false
	}
	s.busy[control] = true
	return true
}

func (s *Session) Release(control string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.busy, control)
}
