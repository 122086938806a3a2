package login

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/qmc/internal/qr"
	"github.com/desertthunder/qmc/internal/services"
	"github.com/desertthunder/qmc/internal/shared"
	tu "github.com/desertthunder/qmc/internal/testing"
)

// manualScheduler records tasks and fires them on demand.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	s        *manualScheduler
	interval time.Duration
	fn       func()
	stops    int
}

func (s *manualScheduler) Every(interval time.Duration, fn func()) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTask{s: s, interval: interval, fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

func (t *manualTask) Stop() {
	t.s.mu.Lock()
	t.stops++
	t.s.mu.Unlock()
}

// Active counts tasks that were started and not stopped.
func (s *manualScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if t.stops == 0 {
			n++
		}
	}
	return n
}

// Started counts every task ever scheduled.
func (s *manualScheduler) Started() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stopped counts tasks that received at least one Stop.
func (s *manualScheduler) Stopped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if t.stops > 0 {
			n++
		}
	}
	return n
}

// Fire runs one tick of every active task.
func (s *manualScheduler) Fire() {
	s.mu.Lock()
	var fns []func()
	for _, t := range s.tasks {
		if t.stops == 0 {
			fns = append(fns, t.fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

type statusResult struct {
	valid bool
	err   error
}

// fakeSource serves a fixed QR payload and a queue of status results; the last result repeats.
type fakeSource struct {
	mu          sync.Mutex
	qrPayload   string
	qrErr       error
	results     []statusResult
	onQR        func(call int)
	statusFn    func(ctx context.Context) (bool, error)
	qrCalls     int
	statusCalls int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		qrPayload: `"abc123=="`,
		results:   []statusResult{{valid: false}},
	}
}

func (f *fakeSource) QRCode(ctx context.Context, method string) (string, error) {
	f.mu.Lock()
	f.qrCalls++
	call := f.qrCalls
	hook := f.onQR
	payload, err := f.qrPayload, f.qrErr
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return payload, err
}

func (f *fakeSource) CredentialValid(ctx context.Context) (bool, error) {
	f.mu.Lock()
	f.statusCalls++
	fn := f.statusFn
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return r.valid, r.err
}

func (f *fakeSource) StatusCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls
}

func newTestPoller(src Source, sched Scheduler, opts ...func(*Options)) *Poller {
	o := Options{Interval: 3 * time.Second, Scheduler: sched}
	for _, fn := range opts {
		fn(&o)
	}
	return NewPoller(src, o)
}

func TestStartLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("Awaiting Scan", func(t *testing.T) {
		src := newFakeSource()
		sched := &manualScheduler{}
		p := newTestPoller(src, sched)

		session, err := p.StartLogin(ctx, MethodQQ)
		if err != nil {
			t.Fatalf("StartLogin() error = %v", err)
		}

		if session.Status != AwaitingScan {
			t.Errorf("expected AwaitingScan, got %s", session.Status)
		}
		if session.Method != MethodQQ {
			t.Errorf("expected method qq, got %s", session.Method)
		}
		if session.ID == "" {
			t.Error("expected session ID to be set")
		}
		if session.QRBase64 != "abc123==" {
			t.Errorf("expected normalized payload, got %q", session.QRBase64)
		}
		if !session.HasQR() {
			t.Error("expected decoded QR bytes")
		}
		if sched.Active() != 1 {
			t.Errorf("expected one active task, got %d", sched.Active())
		}
		if sched.tasks[0].interval != 3*time.Second {
			t.Errorf("expected 3s interval, got %v", sched.tasks[0].interval)
		}
	})

	t.Run("Default Interval", func(t *testing.T) {
		p := NewPoller(newFakeSource(), Options{})
		if p.Interval() != 3*time.Second {
			t.Errorf("expected default interval 3s, got %v", p.Interval())
		}
	})

	t.Run("Invalid Method", func(t *testing.T) {
		src := newFakeSource()
		p := newTestPoller(src, &manualScheduler{})

		_, err := p.StartLogin(ctx, Method("email"))
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if src.qrCalls != 0 {
			t.Errorf("expected no QR request, got %d", src.qrCalls)
		}
		if p.Snapshot().Status != Idle {
			t.Errorf("expected Idle, got %s", p.Snapshot().Status)
		}
	})

	t.Run("Restart Cancels Exactly One Task Before New QR Request", func(t *testing.T) {
		src := newFakeSource()
		sched := &manualScheduler{}
		p := newTestPoller(src, sched)

		var activeAtQR []int
		var stoppedAtQR []int
		src.onQR = func(int) {
			activeAtQR = append(activeAtQR, sched.Active())
			stoppedAtQR = append(stoppedAtQR, sched.Stopped())
		}

		if _, err := p.StartLogin(ctx, MethodQQ); err != nil {
			t.Fatalf("first StartLogin() error = %v", err)
		}
		if _, err := p.StartLogin(ctx, MethodWX); err != nil {
			t.Fatalf("second StartLogin() error = %v", err)
		}

		if activeAtQR[1] != 0 {
			t.Errorf("expected previous task stopped before second QR request, %d active", activeAtQR[1])
		}
		if stoppedAtQR[1] != 1 {
			t.Errorf("expected exactly one task stopped before second QR request, got %d", stoppedAtQR[1])
		}
		if sched.tasks[0].stops != 1 {
			t.Errorf("expected first task stopped once, got %d", sched.tasks[0].stops)
		}
		if sched.Active() != 1 {
			t.Errorf("expected one active task, got %d", sched.Active())
		}
		if got := p.Snapshot(); got.Method != MethodWX || got.Generation != 2 {
			t.Errorf("expected second attempt current, got %+v", got)
		}
	})

	t.Run("Active Tasks Never Exceed One", func(t *testing.T) {
		src := newFakeSource()
		sched := &manualScheduler{}
		p := newTestPoller(src, sched)

		for i := range 5 {
			method := MethodQQ
			if i%2 == 1 {
				method = MethodWX
			}
			if _, err := p.StartLogin(ctx, method); err != nil {
				t.Fatalf("StartLogin() error = %v", err)
			}
			if n := sched.Active(); n > 1 {
				t.Fatalf("expected at most one active task, got %d", n)
			}
			sched.Fire()
		}

		if sched.Started() != 5 || sched.Stopped() != 4 {
			t.Errorf("expected 5 started and 4 stopped, got %d and %d", sched.Started(), sched.Stopped())
		}
	})

	t.Run("QR Request Failure", func(t *testing.T) {
		src := newFakeSource()
		src.qrErr = &services.HTTPError{StatusCode: http.StatusInternalServerError, Detail: "获取二维码失败"}
		sched := &manualScheduler{}
		p := newTestPoller(src, sched)

		session, err := p.StartLogin(ctx, MethodQQ)
		if err == nil {
			t.Fatal("expected error")
		}
		if session.Status != Failed {
			t.Errorf("expected Failed, got %s", session.Status)
		}
		if session.Message != "获取二维码失败" {
			t.Errorf("expected detail as message, got %q", session.Message)
		}
		if sched.Started() != 0 {
			t.Errorf("expected no polling after QR failure, got %d tasks", sched.Started())
		}
	})

	t.Run("Malformed QR Payload Does Not Poll", func(t *testing.T) {
		for name, payload := range map[string]string{
			"not base64":   "not base64!!",
			"empty":        "",
			"quoted empty": `""`,
		} {
			t.Run(name, func(t *testing.T) {
				src := newFakeSource()
				src.qrPayload = payload
				sched := &manualScheduler{}
				p := newTestPoller(src, sched)

				session, err := p.StartLogin(ctx, MethodWX)
				if !errors.Is(err, qr.ErrMalformed) {
					t.Errorf("expected ErrMalformed, got %v", err)
				}
				if session.Status != Failed || session.HasQR() {
					t.Errorf("expected Failed without a QR image, got %+v", session)
				}

				sched.Fire()
				if sched.Started() != 0 || sched.Active() != 0 || src.StatusCalls() != 0 {
					t.Errorf("expected no polling, got %d tasks and %d status calls", sched.Started(), src.StatusCalls())
				}
			})
		}
	})

	t.Run("Superseded While QR Request In Flight", func(t *testing.T) {
		src := newFakeSource()
		sched := &manualScheduler{}
		p := newTestPoller(src, sched)

		var innerErr error
		src.onQR = func(call int) {
			if call == 1 {
				_, innerErr = p.StartLogin(ctx, MethodWX)
			}
		}

		_, err := p.StartLogin(ctx, MethodQQ)
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("expected ErrSuperseded, got %v", err)
		}
		if innerErr != nil {
			t.Errorf("inner StartLogin() error = %v", innerErr)
		}
		if got := p.Snapshot(); got.Method != MethodWX || got.Status != AwaitingScan {
			t.Errorf("expected wx attempt awaiting scan, got %s/%s", got.Method, got.Status)
		}
		if sched.Started() != 1 {
			t.Errorf("expected only the newer attempt to poll, got %d tasks", sched.Started())
		}
	})

	t.Run("Caller Context Only Bounds QR Request", func(t *testing.T) {
		src := newFakeSource()
		sched := &manualScheduler{}
		p := newTestPoller(src, sched)

		var pollCtx context.Context
		src.statusFn = func(ctx context.Context) (bool, error) {
			pollCtx = ctx
			return false, nil
		}

		reqCtx, cancel := context.WithCancel(ctx)
		if _, err := p.StartLogin(reqCtx, MethodQQ); err != nil {
			t.Fatalf("StartLogin() error = %v", err)
		}
		cancel()
		sched.Fire()

		if pollCtx == nil || pollCtx.Err() != nil {
			t.Error("expected polling to survive cancellation of the starting context")
		}
	})
}

func TestPollTick(t *testing.T) {
	ctx := context.Background()

	t.Run("Logs In Once After Third Tick", func(t *testing.T) {
		src := newFakeSource()
		src.results = []statusResult{{valid: false}, {valid: false}, {valid: true}}
		sched := &manualScheduler{}
		p := newTestPoller(src, sched)

		updates, unsubscribe := p.Subscribe(32)
		defer unsubscribe()

		if _, err := p.StartLogin(ctx, MethodQQ); err != nil {
			t.Fatalf("StartLogin() error = %v", err)
		}

		for i := 1; i <= 2; i++ {
			sched.Fire()
			if got := p.Snapshot().Status; got != AwaitingScan {
				t.Fatalf("tick %d: expected AwaitingScan, got %s", i, got)
			}
		}

		sched.Fire()
		if got := p.Snapshot(); got.Status != LoggedIn || got.Ticks != 3 {
			t.Fatalf("expected LoggedIn after 3 ticks, got %s after %d", got.Status, got.Ticks)
		}
		if sched.Active() != 0 {
			t.Errorf("expected task stopped after login, %d active", sched.Active())
		}

		sched.Fire()
		sched.Fire()
		if src.StatusCalls() != 3 {
			t.Errorf("expected no further status checks, got %d", src.StatusCalls())
		}

		loggedIn := 0
		for len(updates) > 0 {
			if (<-updates).Status == LoggedIn {
				loggedIn++
			}
		}
		if loggedIn != 1 {
			t.Errorf("expected exactly one LoggedIn notification, got %d", loggedIn)
		}
	})

	t.Run("Transient Failure Keeps Polling", func(t *testing.T) {
		src := newFakeSource()
		src.results = []statusResult{{err: shared.ErrServiceUnavailable}, {valid: false}}
		sched := &manualScheduler{}
		p := newTestPoller(src, sched)

		if _, err := p.StartLogin(ctx, MethodWX); err != nil {
			t.Fatalf("StartLogin() error = %v", err)
		}

		sched.Fire()
		sched.Fire()

		got := p.Snapshot()
		if got.Status != AwaitingScan {
			t.Errorf("expected AwaitingScan, got %s", got.Status)
		}
		if got.Ticks != 2 {
			t.Errorf("expected 2 ticks, got %d", got.Ticks)
		}
		if sched.Active() != 1 {
			t.Errorf("expected polling to continue, %d active", sched.Active())
		}
	})

	t.Run("Late Result From Superseded Attempt Is Ignored", func(t *testing.T) {
		src := newFakeSource()
		sched := &manualScheduler{}
		p := newTestPoller(src, sched)

		entered := make(chan struct{})
		release := make(chan struct{})
		src.statusFn = func(context.Context) (bool, error) {
			close(entered)
			<-release
			return true, nil
		}

		if _, err := p.StartLogin(ctx, MethodQQ); err != nil {
			t.Fatalf("StartLogin() error = %v", err)
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			sched.Fire()
		}()
		<-entered

		src.mu.Lock()
		src.statusFn = nil
		src.mu.Unlock()
		if _, err := p.StartLogin(ctx, MethodWX); err != nil {
			t.Fatalf("second StartLogin() error = %v", err)
		}

		close(release)
		<-done

		got := p.Snapshot()
		if got.Status != AwaitingScan || got.Generation != 2 || got.Ticks != 0 {
			t.Errorf("late result leaked into new attempt: %+v", got)
		}
	})

	t.Run("Superseding Cancels In-Flight Check", func(t *testing.T) {
		src := newFakeSource()
		sched := &manualScheduler{}
		p := newTestPoller(src, sched)

		entered := make(chan struct{})
		src.statusFn = func(ctx context.Context) (bool, error) {
			close(entered)
			<-ctx.Done()
			return false, ctx.Err()
		}

		if _, err := p.StartLogin(ctx, MethodQQ); err != nil {
			t.Fatalf("StartLogin() error = %v", err)
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			sched.Fire()
		}()
		<-entered

		src.mu.Lock()
		src.statusFn = nil
		src.mu.Unlock()
		if _, err := p.StartLogin(ctx, MethodQQ); err != nil {
			t.Fatalf("second StartLogin() error = %v", err)
		}

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("in-flight status check was not cancelled")
		}
		if got := p.Snapshot(); got.Ticks != 0 {
			t.Errorf("cancelled check should not count as a tick, got %d", got.Ticks)
		}
	})

	t.Run("Max Wait", func(t *testing.T) {
		src := newFakeSource()
		sched := &manualScheduler{}
		clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		p := newTestPoller(src, sched, func(o *Options) {
			o.MaxWait = 10 * time.Second
			o.Now = func() time.Time { return clock }
		})

		if _, err := p.StartLogin(ctx, MethodQQ); err != nil {
			t.Fatalf("StartLogin() error = %v", err)
		}

		clock = clock.Add(11 * time.Second)
		sched.Fire()

		got := p.Snapshot()
		if got.Status != Failed || !errors.Is(got.Err, shared.ErrTimeout) {
			t.Errorf("expected timeout failure, got %s (%v)", got.Status, got.Err)
		}
		if src.StatusCalls() != 0 || sched.Active() != 0 {
			t.Errorf("expected polling stopped without a check, calls=%d active=%d", src.StatusCalls(), sched.Active())
		}
	})

	t.Run("No Timeout By Default", func(t *testing.T) {
		src := newFakeSource()
		sched := &manualScheduler{}
		clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		p := newTestPoller(src, sched, func(o *Options) {
			o.Now = func() time.Time { return clock }
		})

		if _, err := p.StartLogin(ctx, MethodQQ); err != nil {
			t.Fatalf("StartLogin() error = %v", err)
		}

		clock = clock.Add(24 * time.Hour)
		sched.Fire()

		if got := p.Snapshot().Status; got != AwaitingScan {
			t.Errorf("expected AwaitingScan, got %s", got)
		}
	})
}

func TestAbandon(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns To Idle", func(t *testing.T) {
		src := newFakeSource()
		sched := &manualScheduler{}
		p := newTestPoller(src, sched)

		if _, err := p.StartLogin(ctx, MethodQQ); err != nil {
			t.Fatalf("StartLogin() error = %v", err)
		}
		p.Abandon()

		got := p.Snapshot()
		if got.Status != Idle || got.HasQR() {
			t.Errorf("expected empty Idle session, got %+v", got)
		}
		if sched.Active() != 0 {
			t.Errorf("expected task stopped, %d active", sched.Active())
		}

		sched.Fire()
		if src.StatusCalls() != 0 {
			t.Errorf("expected no checks after abandon, got %d", src.StatusCalls())
		}
	})

	t.Run("During QR Request", func(t *testing.T) {
		src := newFakeSource()
		sched := &manualScheduler{}
		p := newTestPoller(src, sched)
		src.onQR = func(int) { p.Abandon() }

		_, err := p.StartLogin(ctx, MethodQQ)
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("expected ErrSuperseded, got %v", err)
		}
		if p.Snapshot().Status != Idle || sched.Started() != 0 {
			t.Errorf("expected Idle with no polling")
		}
	})

	t.Run("Keeps Settled Session", func(t *testing.T) {
		src := newFakeSource()
		src.results = []statusResult{{valid: true}}
		sched := &manualScheduler{}
		p := newTestPoller(src, sched)

		if _, err := p.StartLogin(ctx, MethodQQ); err != nil {
			t.Fatalf("StartLogin() error = %v", err)
		}
		sched.Fire()
		p.Abandon()

		if got := p.Snapshot().Status; got != LoggedIn {
			t.Errorf("expected LoggedIn to survive abandon, got %s", got)
		}
	})
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("Receives Transitions In Order", func(t *testing.T) {
		p := newTestPoller(newFakeSource(), &manualScheduler{})
		updates, unsubscribe := p.Subscribe(8)
		defer unsubscribe()

		if _, err := p.StartLogin(ctx, MethodQQ); err != nil {
			t.Fatalf("StartLogin() error = %v", err)
		}

		want := []Status{GeneratingQR, AwaitingScan}
		for i, status := range want {
			got := <-updates
			if got.Status != status {
				t.Errorf("update %d: expected %s, got %s", i, status, got.Status)
			}
		}
	})

	t.Run("Full Buffer Does Not Block", func(t *testing.T) {
		sched := &manualScheduler{}
		p := newTestPoller(newFakeSource(), sched)
		_, unsubscribe := p.Subscribe(1)
		defer unsubscribe()

		if _, err := p.StartLogin(ctx, MethodQQ); err != nil {
			t.Fatalf("StartLogin() error = %v", err)
		}
		for range 10 {
			sched.Fire()
		}
		if got := p.Snapshot().Ticks; got != 10 {
			t.Errorf("expected 10 ticks, got %d", got)
		}
	})

	t.Run("Unsubscribe Closes Channel", func(t *testing.T) {
		p := newTestPoller(newFakeSource(), &manualScheduler{})
		updates, unsubscribe := p.Subscribe(1)
		unsubscribe()
		unsubscribe()

		if _, ok := <-updates; ok {
			t.Error("expected closed channel")
		}
		if _, err := p.StartLogin(ctx, MethodQQ); err != nil {
			t.Fatalf("StartLogin() after unsubscribe error = %v", err)
		}
	})

	t.Run("Close", func(t *testing.T) {
		sched := &manualScheduler{}
		p := newTestPoller(newFakeSource(), sched)
		updates, unsubscribe := p.Subscribe(8)

		if _, err := p.StartLogin(ctx, MethodQQ); err != nil {
			t.Fatalf("StartLogin() error = %v", err)
		}
		p.Close()
		unsubscribe()

		for range updates {
		}
		if sched.Active() != 0 {
			t.Errorf("expected polling stopped on close")
		}
		if _, err := p.StartLogin(ctx, MethodQQ); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	})
}

func TestWait(t *testing.T) {
	ctx := context.Background()

	t.Run("No Session", func(t *testing.T) {
		p := newTestPoller(newFakeSource(), &manualScheduler{})
		if _, err := p.Wait(ctx); !errors.Is(err, ErrNoSession) {
			t.Errorf("expected ErrNoSession, got %v", err)
		}
	})

	t.Run("Logged In", func(t *testing.T) {
		src := newFakeSource()
		src.results = []statusResult{{valid: false}, {valid: true}}
		sched := &manualScheduler{}
		p := newTestPoller(src, sched)

		if _, err := p.StartLogin(ctx, MethodQQ); err != nil {
			t.Fatalf("StartLogin() error = %v", err)
		}

		type result struct {
			session Session
			err     error
		}
		done := make(chan result, 1)
		go func() {
			s, err := p.Wait(ctx)
			done <- result{s, err}
		}()

		deadline := time.After(time.Second)
		for {
			sched.Fire()
			select {
			case r := <-done:
				if r.err != nil || r.session.Status != LoggedIn {
					t.Errorf("expected LoggedIn, got %s (%v)", r.session.Status, r.err)
				}
				return
			case <-deadline:
				t.Fatal("Wait did not return")
			case <-time.After(5 * time.Millisecond):
			}
		}
	})

	t.Run("Failed Session", func(t *testing.T) {
		src := newFakeSource()
		src.qrErr = shared.ErrServiceUnavailable
		p := newTestPoller(src, &manualScheduler{})
		p.StartLogin(ctx, MethodQQ)

		_, err := p.Wait(ctx)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected session error, got %v", err)
		}
	})

	t.Run("Context Done", func(t *testing.T) {
		p := newTestPoller(newFakeSource(), &manualScheduler{})
		if _, err := p.StartLogin(ctx, MethodQQ); err != nil {
			t.Fatalf("StartLogin() error = %v", err)
		}

		waitCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		if _, err := p.Wait(waitCtx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("Superseded", func(t *testing.T) {
		p := newTestPoller(newFakeSource(), &manualScheduler{})
		if _, err := p.StartLogin(ctx, MethodQQ); err != nil {
			t.Fatalf("StartLogin() error = %v", err)
		}

		done := make(chan error, 1)
		go func() {
			_, err := p.Wait(ctx)
			done <- err
		}()

		time.Sleep(10 * time.Millisecond)
		p.Abandon()

		select {
		case err := <-done:
			if !errors.Is(err, ErrSuperseded) {
				t.Errorf("expected ErrSuperseded, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("Wait did not return after abandon")
		}
	})
}

func TestPollerWithPluginService(t *testing.T) {
	plugin := tu.NewFakePlugin()
	plugin.SetStatus(
		tu.Reply{Status: http.StatusOK, Body: `{"valid":false}`},
		tu.Reply{Status: http.StatusOK, Body: `{"valid":false}`},
		tu.Reply{Status: http.StatusOK, Body: `{"valid":true}`},
	)
	svc := services.NewPluginService(plugin.Start(t), nil, nil)
	p := NewPoller(svc, Options{Interval: 10 * time.Millisecond})
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := p.StartLogin(ctx, MethodQQ); err != nil {
		t.Fatalf("StartLogin() error = %v", err)
	}

	session, err := p.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if session.Status != LoggedIn || session.Ticks != 3 {
		t.Errorf("expected LoggedIn after 3 ticks, got %s after %d", session.Status, session.Ticks)
	}

	time.Sleep(50 * time.Millisecond)
	if n := plugin.Calls("/credential/status"); n != 3 {
		t.Errorf("expected polling to stop after success, got %d status calls", n)
	}
	if n := plugin.Calls("/get_qrcode/qq"); n != 1 {
		t.Errorf("expected one QR request, got %d", n)
	}
}
