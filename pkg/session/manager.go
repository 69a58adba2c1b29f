// Package session manages the lifecycle of a segmentation provider and
// rejects results that belong to an earlier session.
//
// Every request is tagged with the session id active when it was issued.
// Results arrive on the provider's result channel, possibly after the caller
// stopped waiting, and are cached only if the staleness guard accepts them.
// Callers always read the latest accepted mask, which may belong to an older
// frame than the one just submitted.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/user/maskfx/pkg/pipeline"
	"github.com/user/maskfx/pkg/pixel"
	"github.com/user/maskfx/pkg/ports"
)

var (
	// ErrNotLoaded is returned by Ready before Load has succeeded.
	ErrNotLoaded = errors.New("session: segmenter not loaded")
	// ErrProviderInit wraps a segmenter initialization failure.
	ErrProviderInit = errors.New("session: segmenter initialization failed")
	// ErrClosed is returned by Load after Close.
	ErrClosed = errors.New("session: manager closed")
)

// Policy selects how late results are checked against the current session.
type Policy int

const (
	// PolicyStrict accepts a result only if the manager is enabled and the
	// request's session id equals the current one.
	PolicyStrict Policy = iota
	// PolicyEnabledOnly accepts any result while the manager is enabled.
	// A reset followed by enable between issue and delivery lets a stale
	// result through.
	PolicyEnabledOnly
)

// String returns the config name of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	case PolicyEnabledOnly:
		return "enabled"
	default:
		return "unknown"
	}
}

// ParsePolicy parses a config name into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "strict":
		return PolicyStrict, nil
	case "enabled", "enabled-only":
		return PolicyEnabledOnly, nil
	default:
		return PolicyStrict, fmt.Errorf("unknown staleness policy: %q", s)
	}
}

// DefaultMaskTimeout bounds how long RequestMask waits for a result.
const DefaultMaskTimeout = 200 * time.Millisecond

// Special MaskTimeout values.
const (
	// WaitForever waits until the result arrives or ctx is done.
	WaitForever time.Duration = -1
	// NoWait returns the latest accepted mask without waiting.
	NoWait time.Duration = -2
)

// Options configures a Manager.
type Options struct {
	Policy Policy
	// MaskTimeout bounds the wait for the outstanding request. Zero uses
	// DefaultMaskTimeout. See also WaitForever and NoWait.
	MaskTimeout time.Duration
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		Policy:      PolicyStrict,
		MaskTimeout: DefaultMaskTimeout,
	}
}

// Counters summarizes result handling since the manager was created.
type Counters struct {
	Submitted uint64
	Accepted  uint64
	Rejected  uint64
	Failed    uint64
}

// request is one outstanding provider call.
type request struct {
	session uint64
	seq     int64
	done    chan struct{}
}

// Manager owns a segmenter and the single cached mask slot.
type Manager struct {
	segmenter ports.Segmenter
	logger    ports.Logger
	opts      Options

	mu        sync.Mutex
	loaded    bool
	initErr   error
	enabled   bool
	sessionID uint64
	cached    *pipeline.MaskSample
	pending   *request
	counters  Counters
	closed    chan struct{}
	closeOnce sync.Once
}

// NewManager creates a manager in the initial state: enabled, session 0,
// empty cache. Load must succeed before masks can be requested.
func NewManager(segmenter ports.Segmenter, logger ports.Logger, opts Options) *Manager {
	if opts.MaskTimeout == 0 {
		opts.MaskTimeout = DefaultMaskTimeout
	}
	return &Manager{
		segmenter: segmenter,
		logger:    logger.WithComponent("session"),
		opts:      opts,
		enabled:   true,
		closed:    make(chan struct{}),
	}
}

// Load initializes the segmenter. A failure is kept as a persistent error
// state: Ready keeps returning it and RequestMask always returns nil.
func (m *Manager) Load(ctx context.Context) error {
	select {
	case <-m.closed:
		return ErrClosed
	default:
	}

	m.mu.Lock()
	if m.loaded || m.initErr != nil {
		err := m.initErr
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	m.logger.Debug("Loading segmenter")
	err := m.segmenter.Init(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.initErr = fmt.Errorf("%w: %v", ErrProviderInit, err)
		m.logger.Error("Failed to load segmenter: %s", err)
		return m.initErr
	}
	m.loaded = true
	m.logger.Debug("Segmenter loaded")
	return nil
}

// Ready returns nil once the segmenter is loaded, the persistent
// initialization error if loading failed, or ErrNotLoaded.
func (m *Manager) Ready() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initErr != nil {
		return m.initErr
	}
	if !m.loaded {
		return ErrNotLoaded
	}
	return nil
}

// Enable accepts results again and drops any cached mask.
func (m *Manager) Enable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = true
	m.cached = nil
}

// Reset disables the manager, drops the cached mask and starts a new session.
// Results of requests issued before Reset are rejected when they arrive.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
	m.cached = nil
	m.pending = nil
	m.sessionID++
}

// SessionID returns the current session id.
func (m *Manager) SessionID() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Enabled reports whether results are currently accepted.
func (m *Manager) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// Latest returns the most recently accepted mask, or nil.
func (m *Manager) Latest() *pipeline.MaskSample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cached
}

// Counters returns a snapshot of the result counters.
func (m *Manager) Counters() Counters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters
}

// RequestMask submits frame to the segmenter unless a request is already
// outstanding, waits for the outstanding request up to the mask timeout, and
// returns the latest accepted mask. It returns nil if the manager is not
// loaded, is disabled, or no mask has been accepted in this session yet.
func (m *Manager) RequestMask(ctx context.Context, frame *pixel.Buffer) *pipeline.MaskSample {
	m.mu.Lock()
	if !m.loaded || m.initErr != nil || !m.enabled {
		m.mu.Unlock()
		return nil
	}

	req := m.pending
	if req == nil {
		req = &request{
			session: m.sessionID,
			seq:     frame.Seq,
			done:    make(chan struct{}),
		}
		m.pending = req
		m.counters.Submitted++
		m.mu.Unlock()

		results, err := m.segmenter.Submit(ctx, frame)
		if err != nil {
			m.logger.Warn("Segmenter rejected frame %d: %s", frame.Seq, err)
			m.deliver(req, ports.SegmentResult{Err: err})
			return m.Latest()
		}
		go m.await(req, results)
	} else {
		m.mu.Unlock()
		m.logger.Debug("Request for frame %d still outstanding, reusing it for frame %d", req.seq, frame.Seq)
	}

	m.wait(ctx, req)
	return m.Latest()
}

func (m *Manager) wait(ctx context.Context, req *request) {
	if m.opts.MaskTimeout == NoWait {
		return
	}
	if m.opts.MaskTimeout < 0 {
		select {
		case <-req.done:
		case <-ctx.Done():
		}
		return
	}

	timer := time.NewTimer(m.opts.MaskTimeout)
	defer timer.Stop()
	select {
	case <-req.done:
	case <-ctx.Done():
	case <-timer.C:
		m.logger.Debug("Mask for frame %d not ready after %s, using latest", req.seq, m.opts.MaskTimeout)
	}
}

// await receives the single result of req. It outlives the RequestMask call
// that issued req so late results still reach the guard.
func (m *Manager) await(req *request, results <-chan ports.SegmentResult) {
	select {
	case res, ok := <-results:
		if !ok {
			res = ports.SegmentResult{Err: errors.New("result channel closed without a result")}
		}
		m.deliver(req, res)
	case <-m.closed:
		m.deliver(req, ports.SegmentResult{Err: ErrClosed})
	}
}

// deliver applies the staleness guard and caches accepted masks.
func (m *Manager) deliver(req *request, res ports.SegmentResult) {
	m.mu.Lock()
	if m.pending == req {
		m.pending = nil
	}

	switch {
	case res.Err != nil:
		m.counters.Failed++
		if !errors.Is(res.Err, ErrClosed) {
			m.logger.Warn("Segmentation failed for frame %d: %s", req.seq, res.Err)
		}
	case res.Mask == nil || !res.Mask.Valid():
		m.counters.Failed++
		m.logger.Warn("Segmenter returned an invalid mask for frame %d", req.seq)
	case m.accepts(req):
		m.cached = &pipeline.MaskSample{Buffer: res.Mask, Session: req.session}
		m.counters.Accepted++
	default:
		m.counters.Rejected++
		m.logger.Debug("Dropped stale mask for frame %d from session %d (current %d)", req.seq, req.session, m.sessionID)
	}
	m.mu.Unlock()

	close(req.done)
}

func (m *Manager) accepts(req *request) bool {
	if !m.enabled {
		return false
	}
	if m.opts.Policy == PolicyEnabledOnly {
		return true
	}
	return req.session == m.sessionID
}

// Close releases the segmenter and stops waiting for outstanding results.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.closed)
		m.Reset()
		err = m.segmenter.Close()
	})
	return err
}
