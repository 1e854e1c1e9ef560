package supervisor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"camtrigger/internal/output"
	"camtrigger/internal/recorder"
	"camtrigger/internal/storage"
	"camtrigger/internal/trigger"
)

// fakeClock はテスト用の手動で進める時計
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeHandle は Finish が呼ばれるまで Wait がブロックするハンドル
type fakeHandle struct {
	pid  int
	done chan struct{}
	once sync.Once
}

func (h *fakeHandle) Pid() int { return h.pid }

func (h *fakeHandle) Wait() error {
	<-h.done
	return nil
}

func (h *fakeHandle) Finish() {
	h.once.Do(func() { close(h.done) })
}

// fakeStarter は起動要求を記録するモック
type fakeStarter struct {
	mu       sync.Mutex
	requests []recorder.Request
	handles  []*fakeHandle
	startErr error
}

func (s *fakeStarter) Start(_ context.Context, req recorder.Request) (recorder.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.startErr != nil {
		return nil, s.startErr
	}
	h := &fakeHandle{pid: 2000 + len(s.handles), done: make(chan struct{})}
	s.requests = append(s.requests, req)
	s.handles = append(s.handles, h)
	return h, nil
}

func (s *fakeStarter) Requests() []recorder.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recorder.Request(nil), s.requests...)
}

func (s *fakeStarter) Handle(i int) *fakeHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handles[i]
}

func (s *fakeStarter) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startErr = err
}

// fakeStorage は容量チェックの結果を固定で返す
type fakeStorage struct {
	err     error
	evicted []string
	calls   int
}

func (f *fakeStorage) CheckStorage() (storage.Result, []string, error) {
	f.calls++
	if f.err != nil {
		return "", nil, f.err
	}
	if len(f.evicted) > 0 {
		return storage.ResultEvicted, f.evicted, nil
	}
	return storage.ResultOK, nil, nil
}

// collectingSink は通知されたイベントを保持する
type collectingSink struct {
	mu     sync.Mutex
	events []recorder.Event
}

func (c *collectingSink) Publish(e recorder.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collectingSink) Events() []recorder.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]recorder.Event(nil), c.events...)
}

type fixture struct {
	sup     *Supervisor
	clock   *fakeClock
	starter *fakeStarter
	rec     *recorder.Launcher
	sink    *collectingSink
	out     *bytes.Buffer
}

func newFixture(t *testing.T, minGap time.Duration) *fixture {
	t.Helper()

	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	starter := &fakeStarter{}
	rec := recorder.NewLauncher(starter, t.TempDir(), false, nil)
	sink := &collectingSink{}
	out := &bytes.Buffer{}

	sup := New(Options{
		DefaultDuration: 10 * time.Second,
		Gate:            trigger.NewGate(minGap, clock),
		Recorder:        rec,
		Sink:            sink,
		Output:          output.NewFormatter(out),
	})

	return &fixture{sup: sup, clock: clock, starter: starter, rec: rec, sink: sink, out: out}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (f *fixture) finishAndReap(t *testing.T, i int) {
	t.Helper()
	f.starter.Handle(i).Finish()
	waitFor(t, func() bool { return f.rec.Active() == 0 })
}

func TestSupervisor_DebounceCluster(t *testing.T) {
	f := newFixture(t, 500*time.Millisecond)
	ctx := context.Background()

	if r := f.sup.handle(ctx, "save"); r.Outcome != OutcomeStarted {
		t.Fatalf("Expected first save to start, got %s", r.Outcome)
	}
	f.finishAndReap(t, 0)

	f.clock.Advance(120 * time.Millisecond)
	if r := f.sup.handle(ctx, "save"); r.Outcome != OutcomeDebounced {
		t.Errorf("Expected save 120ms later to be debounced, got %s", r.Outcome)
	}

	f.clock.Advance(580 * time.Millisecond)
	if r := f.sup.handle(ctx, "save"); r.Outcome != OutcomeStarted {
		t.Errorf("Expected save 700ms after the first to start, got %s", r.Outcome)
	}

	if got := len(f.starter.Requests()); got != 2 {
		t.Errorf("Expected 2 launches, got %d", got)
	}
}

func TestSupervisor_FirstSaveAlwaysAccepted(t *testing.T) {
	f := newFixture(t, time.Hour)

	if r := f.sup.handle(context.Background(), "save"); r.Outcome != OutcomeStarted {
		t.Errorf("Expected first save to start regardless of min gap, got %s", r.Outcome)
	}
}

func TestSupervisor_SingleFlight(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	f.sup.handle(ctx, "save")
	if r := f.sup.handle(ctx, "save"); r.Outcome != OutcomeBusy {
		t.Errorf("Expected second save to be dropped while recording, got %s", r.Outcome)
	}
	if r := f.sup.handle(ctx, "status"); r.Message != "Status: recording" {
		t.Errorf("Expected recording status, got %q", r.Message)
	}
	if got := len(f.starter.Requests()); got != 1 {
		t.Fatalf("Launcher must be invoked once, got %d", got)
	}

	f.finishAndReap(t, 0)

	if r := f.sup.handle(ctx, "status"); r.Message != "Status: idle" {
		t.Errorf("Expected idle status after exit, got %q", r.Message)
	}
}

func TestSupervisor_DurationOverride(t *testing.T) {
	testCases := []struct {
		name string
		line string
		want time.Duration
	}{
		{"既定値", "save", 10 * time.Second},
		{"上書き", "save 2500", 2500 * time.Millisecond},
		{"数値でない", "save abc", 10 * time.Second},
		{"負の値", "save -5", 10 * time.Second},
		{"桁あふれ", "save 18446744073710", 10 * time.Second},
		{"桁あふれで負", "save 9999999999999", 10 * time.Second},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, 0)
			f.sup.handle(context.Background(), tc.line)

			reqs := f.starter.Requests()
			if len(reqs) != 1 {
				t.Fatalf("Expected 1 launch, got %d", len(reqs))
			}
			if reqs[0].Duration != tc.want {
				t.Errorf("録画時間が一致しません: got %v, want %v", reqs[0].Duration, tc.want)
			}
		})
	}

	// 上書きは1回限りで既定値は変わらない
	f := newFixture(t, 0)
	ctx := context.Background()
	f.sup.handle(ctx, "save 2500")
	f.finishAndReap(t, 0)
	f.sup.handle(ctx, "save")
	if got := f.starter.Requests()[1].Duration; got != 10*time.Second {
		t.Errorf("Expected default duration after override, got %v", got)
	}
}

func TestSupervisor_UnknownCommand(t *testing.T) {
	f := newFixture(t, 500*time.Millisecond)
	before := f.sup.opts.Gate.Last()

	r := f.sup.handle(context.Background(), "foobar")
	if !strings.Contains(r.Message, "Unknown command: foobar") {
		t.Errorf("Expected echoed unknown command, got %q", r.Message)
	}
	if !strings.Contains(r.Message, "save [ms]") {
		t.Errorf("Expected hint with valid commands, got %q", r.Message)
	}
	if f.rec.Active() != 0 {
		t.Error("Unknown command must not change the active count")
	}
	if !f.sup.opts.Gate.Last().Equal(before) {
		t.Error("Unknown command must not change the last trigger time")
	}
	if f.sup.stopRequested {
		t.Error("Unknown command must not stop the loop")
	}
}

func TestSupervisor_EmptyLineIsNoop(t *testing.T) {
	f := newFixture(t, 0)

	r := f.sup.handle(context.Background(), "   ")
	if r.Message != "" {
		t.Errorf("Expected no message for empty line, got %q", r.Message)
	}
	f.sup.print(r)
	if f.out.Len() != 0 {
		t.Errorf("Expected no output for empty line, got %q", f.out.String())
	}
}

func TestSupervisor_LaunchFailureIsRecovered(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	f.starter.SetError(errors.New("executable file not found"))
	r := f.sup.handle(ctx, "save")
	if r.Outcome != OutcomeFailed {
		t.Fatalf("Expected failed outcome, got %s", r.Outcome)
	}
	if f.rec.Active() != 0 {
		t.Errorf("Expected 0 active after failed launch, got %d", f.rec.Active())
	}

	events := f.sink.Events()
	if len(events) != 1 || events[0].Type != recorder.EventFailed {
		t.Errorf("Expected one failed event, got %+v", events)
	}

	f.starter.SetError(nil)
	if r := f.sup.handle(ctx, "save"); r.Outcome != OutcomeStarted {
		t.Errorf("Expected loop to keep accepting saves, got %s", r.Outcome)
	}
}

func TestSupervisor_StorageCheck(t *testing.T) {
	t.Run("容量不足で開始しない", func(t *testing.T) {
		f := newFixture(t, 0)
		st := &fakeStorage{err: storage.ErrInsufficientSpace}
		f.sup.opts.Storage = st

		r := f.sup.handle(context.Background(), "save")
		if r.Outcome != OutcomeRefused {
			t.Errorf("Expected refused outcome, got %s", r.Outcome)
		}
		if len(f.starter.Requests()) != 0 {
			t.Error("Launcher must not be invoked when the storage check fails")
		}
	})

	t.Run("削除後に開始", func(t *testing.T) {
		f := newFixture(t, 0)
		st := &fakeStorage{evicted: []string{"/clips/clip-20240101-000000.mp4"}}
		f.sup.opts.Storage = st

		if r := f.sup.handle(context.Background(), "save"); r.Outcome != OutcomeStarted {
			t.Errorf("Expected started outcome, got %s", r.Outcome)
		}
		if st.calls != 1 {
			t.Errorf("Expected 1 storage check, got %d", st.calls)
		}
	})
}

func TestSupervisor_StartedEvent(t *testing.T) {
	f := newFixture(t, 0)

	r := f.sup.handle(context.Background(), "save 1500")
	events := f.sink.Events()
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Type != recorder.EventStarted || events[0].Recording.ID != r.Recording.ID {
		t.Errorf("Unexpected event: %+v", events[0])
	}
}

func TestSupervisor_QuitWaitsForRecording(t *testing.T) {
	f := newFixture(t, 0)

	done := make(chan error, 1)
	go func() {
		done <- f.sup.Run(context.Background(), strings.NewReader("save\nquit\nsave\n"))
	}()

	waitFor(t, func() bool { return f.sup.State() == StateDraining })

	select {
	case <-done:
		t.Fatal("Run returned while a recording was still active")
	case <-time.After(100 * time.Millisecond):
	}

	f.starter.Handle(0).Finish()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the recording finished")
	}

	if f.sup.State() != StateTerminated {
		t.Errorf("Expected terminated state, got %s", f.sup.State())
	}
	if got := len(f.starter.Requests()); got != 1 {
		t.Errorf("No save may be dispatched after quit, got %d launches", got)
	}
}

func TestSupervisor_SignalInterruptsReadAndDrains(t *testing.T) {
	f := newFixture(t, 0)
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- f.sup.Run(ctx, pr)
	}()

	if _, err := pw.Write([]byte("save\n")); err != nil {
		t.Fatalf("書き込みに失敗しました: %v", err)
	}
	waitFor(t, func() bool { return f.rec.Active() == 1 })

	// 入力待ちでブロックしている状態でシグナルを模擬する
	cancel()
	waitFor(t, func() bool { return f.sup.State() == StateDraining })

	select {
	case <-done:
		t.Fatal("Run returned before the in-flight recording finished")
	case <-time.After(100 * time.Millisecond):
	}

	f.starter.Handle(0).Finish()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the recording finished")
	}
}

func TestSupervisor_SignalDuringDrainingStillWaits(t *testing.T) {
	f := newFixture(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- f.sup.Run(ctx, strings.NewReader("save\nquit\n"))
	}()

	waitFor(t, func() bool { return f.sup.State() == StateDraining })
	if f.rec.Active() != 1 {
		t.Fatalf("Expected 1 active recording while draining, got %d", f.rec.Active())
	}

	// 終了処理中に届いたシグナルでは録画の完了待ちを打ち切らない
	cancel()

	select {
	case <-done:
		t.Fatal("Run returned after a signal during draining while a recording was still active")
	case <-time.After(150 * time.Millisecond):
	}
	if f.sup.State() != StateDraining {
		t.Errorf("Expected draining state, got %s", f.sup.State())
	}

	f.starter.Handle(0).Finish()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the recording finished")
	}

	if f.sup.State() != StateTerminated {
		t.Errorf("Expected terminated state, got %s", f.sup.State())
	}
}

func TestSupervisor_Submit(t *testing.T) {
	f := newFixture(t, 0)
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx := context.Background()
	done := make(chan error, 1)
	go func() {
		done <- f.sup.Run(ctx, pr)
	}()

	r, err := f.sup.Submit(ctx, "save 1")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if r.Outcome != OutcomeStarted || r.Recording == nil {
		t.Fatalf("Expected started recording, got %+v", r)
	}
	if r.Recording.Duration != time.Millisecond {
		t.Errorf("Expected 1ms duration, got %v", r.Recording.Duration)
	}

	r, _ = f.sup.Submit(ctx, "status")
	if r.Message != "Status: recording" {
		t.Errorf("Expected recording status, got %q", r.Message)
	}

	snap := f.sup.Snapshot()
	if snap.State != StateRunning || snap.Active != 1 || !snap.Recording {
		t.Errorf("Unexpected snapshot: %+v", snap)
	}

	f.finishAndReap(t, 0)

	r, _ = f.sup.Submit(ctx, "status")
	if r.Message != "Status: idle" {
		t.Errorf("Expected idle status, got %q", r.Message)
	}

	if _, err := f.sup.Submit(ctx, "quit"); err != nil {
		t.Fatalf("Submit quit failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after quit")
	}

	if _, err := f.sup.Submit(ctx, "save"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Expected ErrNotRunning after shutdown, got %v", err)
	}
}

func TestSupervisor_RunPrintsReplies(t *testing.T) {
	f := newFixture(t, 0)

	if err := f.sup.Run(context.Background(), strings.NewReader("foobar\n\nstatus\nhelp\n")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got := f.out.String()
	for _, want := range []string{"Unknown command: foobar", "Status: idle", "Commands: save [ms] | status | quit"} {
		if !strings.Contains(got, want) {
			t.Errorf("出力に %q が含まれていません: %q", want, got)
		}
	}
	if f.sup.State() != StateTerminated {
		t.Errorf("Expected EOF to terminate the loop, got %s", f.sup.State())
	}
}
