package window

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/autark/internal/logging"
)

// Enumerator is the OS window-enumeration collaborator. Implementations
// return all current top-level windows in OS-defined order; the tracker
// resolves ties by taking the first match it encounters.
type Enumerator interface {
	Windows() ([]Info, error)
}

// Capturer is the OS bitmap-capture collaborator.
type Capturer interface {
	Capture(info Info) ([]byte, error)
}

// ProcessResolver resolves process metadata for candidate windows.
type ProcessResolver interface {
	// Name returns the executable name for a PID.
	Name(pid int32) (string, error)

	// Alive reports whether the PID still refers to a live process.
	Alive(pid int32) bool
}

const (
	defaultEventBuffer   = 1024
	defaultMinCaptureGap = 50 * time.Millisecond
	defaultCaptureTTL    = 200 * time.Millisecond
)

// Tracker polls for the target window on a fixed interval and owns the
// tracked session. It runs on its own goroutine, independent of any
// other scheduling domain; the session is guarded by its own lock so no
// caller ever needs to hold another component's lock at the same time.
type Tracker struct {
	cfg      DetectionConfig
	enum     Enumerator
	resolver ProcessResolver
	capturer Capturer
	log      *logging.Logger

	mu        sync.Mutex
	session   *Info
	sessionID string
	callbacks []Callback

	// events is sized generously so the polling goroutine is never
	// blocked by a slow async consumer.
	events chan Event

	runMu   sync.Mutex
	stop    chan struct{}
	wg      sync.WaitGroup
	running bool

	capMu      sync.Mutex
	minCapGap  time.Duration
	captureTTL time.Duration
	lastCap    time.Time
	cached     []byte
	cachedAt   time.Time
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithResolver sets the process resolver used for process-name matching
// and liveness checks. Without one, matching falls back to title-only.
func WithResolver(r ProcessResolver) TrackerOption {
	return func(t *Tracker) { t.resolver = r }
}

// WithCapturer sets the bitmap-capture collaborator.
func WithCapturer(c Capturer) TrackerOption {
	return func(t *Tracker) { t.capturer = c }
}

// WithTrackerLogger sets the tracker's logger.
func WithTrackerLogger(log *logging.Logger) TrackerOption {
	return func(t *Tracker) { t.log = log }
}

// WithCaptureThrottle sets the minimum interval between captures and
// the cache TTL within which repeated calls return the same buffer.
func WithCaptureThrottle(minGap, ttl time.Duration) TrackerOption {
	return func(t *Tracker) {
		if minGap > 0 {
			t.minCapGap = minGap
		}
		if ttl > 0 {
			t.captureTTL = ttl
		}
	}
}

// WithEventBuffer sets the event channel capacity.
func WithEventBuffer(n int) TrackerOption {
	return func(t *Tracker) {
		if n > 0 {
			t.events = make(chan Event, n)
		}
	}
}

// NewTracker creates a tracker for the given detection config.
func NewTracker(cfg DetectionConfig, enum Enumerator, opts ...TrackerOption) *Tracker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	t := &Tracker{
		cfg:        cfg,
		enum:       enum,
		log:        logging.Discard,
		events:     make(chan Event, defaultEventBuffer),
		minCapGap:  defaultMinCaptureGap,
		captureTTL: defaultCaptureTTL,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Config returns the tracker's immutable detection config.
func (t *Tracker) Config() DetectionConfig { return t.cfg }

// Events returns the tracker's event channel.
func (t *Tracker) Events() <-chan Event { return t.events }

// AddCallback registers a synchronous event callback. Callbacks run on
// the polling goroutine in registration order.
func (t *Tracker) AddCallback(cb Callback) {
	if cb == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callbacks = append(t.callbacks, cb)
}

// Start launches the polling loop. It is an error to start a running
// tracker.
func (t *Tracker) Start() error {
	t.runMu.Lock()
	defer t.runMu.Unlock()

	if t.running {
		return ErrTrackerRunning
	}
	t.stop = make(chan struct{})
	t.running = true
	t.wg.Add(1)

	go t.pollLoop(t.stop)

	t.log.Info("window detection started, interval %s", t.cfg.Interval)
	return nil
}

// Stop halts the polling loop and waits for it to exit. Safe to call on
// a stopped tracker.
func (t *Tracker) Stop() {
	t.runMu.Lock()
	if !t.running {
		t.runMu.Unlock()
		return
	}
	t.running = false
	close(t.stop)
	t.runMu.Unlock()

	t.wg.Wait()
	t.log.Info("window detection stopped")
}

// IsRunning reports whether the polling loop is active.
func (t *Tracker) IsRunning() bool {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	return t.running
}

func (t *Tracker) pollLoop(stop <-chan struct{}) {
	defer t.wg.Done()

	for {
		t.Poll()
		select {
		case <-stop:
			return
		case <-time.After(t.cfg.Interval):
		}
	}
}

// Poll runs one detection cycle: enumerate, filter, match, diff against
// the tracked session, and emit at most one event. Errors during
// enumeration are logged and the session is left untouched; window loss
// is an event, not an error.
func (t *Tracker) Poll() {
	match, found, err := t.findMatch(t.cfg)
	if err != nil {
		t.log.Warn("window detection: %v", err)
		return
	}

	t.mu.Lock()
	prev := t.session
	switch {
	case found && prev == nil:
		info := match
		t.session = &info
		t.sessionID = uuid.New().String()
		id := t.sessionID
		t.mu.Unlock()
		t.log.Debug("target window found: %q", match.Title)
		t.emit(Event{Kind: Found, Info: match, SessionID: id})
	case found && !sameGeometry(*prev, match):
		info := match
		t.session = &info
		id := t.sessionID
		t.mu.Unlock()
		t.log.Debug("target window updated")
		t.emit(Event{Kind: Updated, Info: match, SessionID: id})
	case !found && prev != nil:
		t.session = nil
		id := t.sessionID
		t.sessionID = ""
		t.mu.Unlock()
		t.log.Debug("target window lost")
		t.emit(Event{Kind: Lost, SessionID: id})
	default:
		t.mu.Unlock()
	}
}

// findMatch enumerates candidates and returns the first one passing the
// filters.
func (t *Tracker) findMatch(cfg DetectionConfig) (Info, bool, error) {
	wins, err := t.enum.Windows()
	if err != nil {
		return Info{}, false, err
	}

	for _, w := range wins {
		if cfg.VisibleOnly && !w.Visible {
			continue
		}
		if cfg.ForegroundOnly && !w.Foreground {
			continue
		}
		if !strings.Contains(w.Title, cfg.TargetTitle) {
			continue
		}
		if cfg.TargetProcess != "" && t.resolver != nil {
			name, err := t.resolver.Name(w.PID)
			if err != nil {
				continue
			}
			if !strings.Contains(strings.ToLower(name), strings.ToLower(cfg.TargetProcess)) {
				continue
			}
		}
		return w, true, nil
	}
	return Info{}, false, nil
}

// emit delivers an event to the channel and then to every callback, in
// registration order. The channel send never blocks; if the buffer is
// somehow full the event is dropped with a warning.
func (t *Tracker) emit(ev Event) {
	select {
	case t.events <- ev:
	default:
		t.log.Warn("window event buffer full, dropping %s", ev.Kind)
	}

	t.mu.Lock()
	callbacks := make([]Callback, len(t.callbacks))
	copy(callbacks, t.callbacks)
	t.mu.Unlock()

	for _, cb := range callbacks {
		cb(ev)
	}
}

// Session returns a copy of the tracked window, if any.
func (t *Tracker) Session() (Info, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil {
		return Info{}, false
	}
	return *t.session, true
}

// SessionID returns the identifier of the tracked session, empty when
// no window is tracked.
func (t *Tracker) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

// HasSession reports whether a window is currently tracked.
func (t *Tracker) HasSession() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session != nil
}

// ScreenToWindow translates a screen point into window-relative
// coordinates against the tracked session.
func (t *Tracker) ScreenToWindow(x, y int) (int, int, bool) {
	info, ok := t.Session()
	if !ok {
		return 0, 0, false
	}
	return info.ScreenToWindow(x, y)
}

// WindowToScreen translates window-relative coordinates to screen
// coordinates against the tracked session.
func (t *Tracker) WindowToScreen(x, y int) (int, int, bool) {
	info, ok := t.Session()
	if !ok {
		return 0, 0, false
	}
	sx, sy := info.WindowToScreen(x, y)
	return sx, sy, true
}

// IsValid reports whether the tracked session still refers to a live
// process. Without a resolver it only reports session presence.
func (t *Tracker) IsValid() bool {
	info, ok := t.Session()
	if !ok {
		return false
	}
	if t.resolver == nil {
		return true
	}
	return t.resolver.Alive(info.PID)
}

// FindByTitle looks for a window whose title contains title. The
// tracked session is checked first; otherwise a one-shot enumeration
// runs with the tracker's other filters unchanged.
func (t *Tracker) FindByTitle(title string) (Info, bool) {
	if info, ok := t.Session(); ok && strings.Contains(info.Title, title) {
		return info, true
	}

	cfg := t.cfg
	cfg.TargetTitle = title
	match, found, err := t.findMatch(cfg)
	if err != nil {
		t.log.Warn("find by title: %v", err)
		return Info{}, false
	}
	return match, found
}

// Refresh clears the tracked session and immediately re-runs detection,
// emitting Found if a match turns up. It does not disturb the polling
// loop.
func (t *Tracker) Refresh() {
	t.mu.Lock()
	t.session = nil
	t.sessionID = ""
	t.mu.Unlock()

	match, found, err := t.findMatch(t.cfg)
	if err != nil {
		t.log.Warn("refresh: %v", err)
		return
	}
	if !found {
		return
	}

	t.mu.Lock()
	info := match
	t.session = &info
	t.sessionID = uuid.New().String()
	id := t.sessionID
	t.mu.Unlock()
	t.emit(Event{Kind: Found, Info: match, SessionID: id})
}

// Capture acquires a bitmap of the tracked window. Calls within the
// cache TTL return the previous buffer without reacquiring; calls
// faster than the throttle interval (and past the cache window) fail
// with ErrCaptureThrottled.
func (t *Tracker) Capture() ([]byte, error) {
	if t.capturer == nil {
		return nil, ErrNoCapturer
	}
	info, ok := t.Session()
	if !ok {
		return nil, ErrWindowNotFound
	}

	t.capMu.Lock()
	defer t.capMu.Unlock()

	now := time.Now()
	if t.cached != nil && now.Sub(t.cachedAt) < t.captureTTL {
		return t.cached, nil
	}
	if !t.lastCap.IsZero() && now.Sub(t.lastCap) < t.minCapGap {
		return nil, ErrCaptureThrottled
	}

	t.lastCap = now
	buf, err := t.capturer.Capture(info)
	if err != nil {
		return nil, err
	}
	t.cached = buf
	t.cachedAt = now
	return buf, nil
}

// Thumbnail captures the tracked window and returns the buffer together
// with dimensions scaled to fit within maxW x maxH. Scaling never
// enlarges.
func (t *Tracker) Thumbnail(maxW, maxH int) ([]byte, int, int, error) {
	info, ok := t.Session()
	if !ok {
		return nil, 0, 0, ErrWindowNotFound
	}

	buf, err := t.Capture()
	if err != nil {
		return nil, 0, 0, err
	}

	scaleX := float64(maxW) / float64(info.Width)
	scaleY := float64(maxH) / float64(info.Height)
	scale := scaleX
	if scaleY < scale {
		scale = scaleY
	}
	if scale > 1 {
		scale = 1
	}
	return buf, int(float64(info.Width) * scale), int(float64(info.Height) * scale), nil
}
