package login

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/qmc/internal/qr"
	"github.com/desertthunder/qmc/internal/shared"
)

var (
	// ErrSuperseded is returned for an attempt replaced by a newer one (or abandoned) before it settled.
	ErrSuperseded = errors.New("login attempt superseded")
	// ErrNoSession is returned by [Poller.Wait] when no attempt has been started.
	ErrNoSession = errors.New("no login session in progress")
	// ErrClosed is returned once the poller has been closed.
	ErrClosed = errors.New("poller closed")
)

// Source is the subset of the plugin client the poller needs.
type Source interface {
	QRCode(ctx context.Context, method string) (string, error)
	CredentialValid(ctx context.Context) (bool, error)
}

// Options configures a [Poller]. Zero values select the defaults.
type Options struct {
	Interval  time.Duration // time between status checks, default [shared.DefaultPollInterval]
	MaxWait   time.Duration // give up after this long without a scan; 0 polls until superseded
	Scheduler Scheduler     // default [TickerScheduler]
	Logger    *log.Logger
	Now       func() time.Time
}

// Poller drives QR login attempts: it fetches a QR code, then checks credential validity on an interval until the credential becomes valid.
//
// At most one poll task exists at a time. Starting a new attempt stops the previous task and cancels its in-flight requests
// before anything else happens; results that still arrive for an old attempt are dropped by comparing generations.
type Poller struct {
	source    Source
	interval  time.Duration
	maxWait   time.Duration
	scheduler Scheduler
	logger    *log.Logger
	now       func() time.Time

	mu         sync.Mutex
	session    Session
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
	task       Task
	subs       map[int]chan Session
	nextSub    int
	closed     bool
}

// NewPoller creates an idle poller reading from source.
func NewPoller(source Source, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = shared.DefaultPollInterval
	}
	if opts.Scheduler == nil {
		opts.Scheduler = TickerScheduler{}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Poller{
		source:    source,
		interval:  opts.Interval,
		maxWait:   opts.MaxWait,
		scheduler: opts.Scheduler,
		logger:    shared.WithLogger(opts.Logger, "component", "poller"),
		now:       opts.Now,
		subs:      make(map[int]chan Session),
	}
}

// Interval returns the configured time between status checks.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// StartLogin begins a new attempt for method, superseding any attempt in progress.
//
// It returns once the QR code has been fetched (status AwaitingScan) or the fetch failed (status Failed, non-nil error).
// Polling continues in the background after a successful return; ctx only bounds the QR request.
func (p *Poller) StartLogin(ctx context.Context, method Method) (Session, error) {
	if !method.Valid() {
		return Session{}, fmt.Errorf("%w: login method must be qq or wx, got %q", shared.ErrInvalidArgument, method)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return Session{}, ErrClosed
	}

	p.stopLocked()
	p.generation++
	gen := p.generation
	p.ctx, p.cancel = context.WithCancel(context.WithoutCancel(ctx))
	sessionCtx := p.ctx

	now := p.now()
	p.session = Session{
		ID:         shared.GenerateID(),
		Generation: gen,
		Method:     method,
		Status:     GeneratingQR,
		StartedAt:  now,
		UpdatedAt:  now,
	}
	p.publishLocked()
	p.mu.Unlock()

	p.logger.Debug("requesting QR code", "method", method, "generation", gen)

	fetchCtx, stopFetch := context.WithCancel(sessionCtx)
	defer stopFetch()
	defer context.AfterFunc(ctx, stopFetch)()

	img, err := p.fetchQR(fetchCtx, method)

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation {
		p.logger.Debug("discarding QR result for superseded attempt", "generation", gen)
		return Session{}, ErrSuperseded
	}

	if err != nil {
		p.logger.Error("failed to generate QR code", "method", method, "err", err)
		p.failLocked(err)
		return p.session, err
	}

	p.session.QRImage = img.Data
	p.session.QRBase64 = img.Base64
	p.session.Status = AwaitingScan
	p.session.UpdatedAt = p.now()
	p.task = p.scheduler.Every(p.interval, func() { p.tick(gen) })
	p.publishLocked()

	p.logger.Info("waiting for QR scan", "method", method, "interval", p.interval)
	return p.session, nil
}

func (p *Poller) fetchQR(ctx context.Context, method Method) (*qr.Image, error) {
	payload, err := p.source.QRCode(ctx, string(method))
	if err != nil {
		return nil, err
	}
	return qr.Decode(payload)
}

// tick performs one status check for generation gen.
func (p *Poller) tick(gen uint64) {
	p.mu.Lock()
	if gen != p.generation || p.session.Status != AwaitingScan {
		p.mu.Unlock()
		return
	}
	if p.maxWait > 0 && p.now().Sub(p.session.StartedAt) >= p.maxWait {
		p.logger.Warn("gave up waiting for QR scan", "max_wait", p.maxWait)
		p.failLocked(fmt.Errorf("%w: no scan within %s", shared.ErrTimeout, p.maxWait))
		p.mu.Unlock()
		return
	}
	ctx := p.ctx
	p.mu.Unlock()

	valid, err := p.source.CredentialValid(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation || p.session.Status != AwaitingScan {
		p.logger.Debug("discarding late status result", "generation", gen)
		return
	}

	p.session.Ticks++
	p.session.UpdatedAt = p.now()

	switch {
	case err != nil:
		p.logger.Warn("credential status check failed", "tick", p.session.Ticks, "err", err)
	case valid:
		p.session.Status = LoggedIn
		p.stopLocked()
		p.logger.Info("login succeeded", "method", p.session.Method, "ticks", p.session.Ticks)
	default:
		p.logger.Debug("credential not valid yet", "tick", p.session.Ticks)
	}
	p.publishLocked()
}

// Abandon stops the active attempt and returns the session to Idle.
//
// It is what leaving the login view does; a settled session is left as it is.
func (p *Poller) Abandon() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	p.generation++

	if !p.session.Status.Active() {
		return
	}
	p.logger.Debug("abandoning login attempt", "id", p.session.ID)
	p.session = Session{Generation: p.generation, Status: Idle, UpdatedAt: p.now()}
	p.publishLocked()
}

// Snapshot returns the current session.
func (p *Poller) Snapshot() Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// Subscribe returns a channel receiving a snapshot after every state change, and a function that ends the subscription.
//
// Sends never block the poller: when the buffer is full the update is dropped, and [Poller.Snapshot] still has the latest state.
func (p *Poller) Subscribe(buffer int) (<-chan Session, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan Session, max(buffer, 1))
	if p.closed {
		close(ch)
		return ch, func() {}
	}

	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch

	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if c, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(c)
		}
	}
}

// Wait blocks until the current attempt logs in or fails, or ctx is done.
//
// It returns [ErrSuperseded] when another attempt replaces the one being waited on.
func (p *Poller) Wait(ctx context.Context) (Session, error) {
	updates, unsubscribe := p.Subscribe(8)
	defer unsubscribe()

	current := p.Snapshot()
	if current.Status == Idle {
		return current, ErrNoSession
	}
	gen := current.Generation

	for {
		if current.Generation != gen {
			return current, ErrSuperseded
		}
		if current.Status.Terminal() {
			return current, current.Err
		}

		select {
		case <-ctx.Done():
			return p.Snapshot(), ctx.Err()
		case _, ok := <-updates:
			if !ok {
				return p.Snapshot(), ErrClosed
			}
			current = p.Snapshot()
		}
	}
}

// Close stops polling and ends every subscription. Later calls to StartLogin fail with [ErrClosed].
func (p *Poller) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	p.stopLocked()
	p.generation++
	for id, ch := range p.subs {
		delete(p.subs, id)
		close(ch)
	}
}

func (p *Poller) failLocked(err error) {
	p.stopLocked()
	p.session.Status = Failed
	p.session.Err = err
	p.session.Message = err.Error()
	p.session.UpdatedAt = p.now()
	p.publishLocked()
}

// stopLocked releases the poll task and aborts requests made for the current attempt.
func (p *Poller) stopLocked() {
	if p.task != nil {
		p.task.Stop()
		p.task = nil
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Poller) publishLocked() {
	for _, ch := range p.subs {
		select {
		case ch <- p.session:
		default:
		}
	}
}
