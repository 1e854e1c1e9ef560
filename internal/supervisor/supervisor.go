package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"camtrigger/internal/command"
	"camtrigger/internal/output"
	"camtrigger/internal/recorder"
	"camtrigger/internal/trigger"
)

// Supervisor はコマンドループと終了処理を管理する
type Supervisor struct {
	opts Options

	requests chan request
	stopped  chan struct{} // running を抜けた時にクローズされる
	stopOnce sync.Once

	// stopRequested は Run のゴルーチンだけが読み書きする
	stopRequested bool

	mu    sync.RWMutex
	state State
}

// New は新しいSupervisorを作成する
func New(opts Options) *Supervisor {
	if opts.Gate == nil {
		opts.Gate = trigger.NewGate(0, nil)
	}
	if opts.Sink == nil {
		opts.Sink = recorder.NopSink{}
	}
	if opts.Output == nil {
		opts.Output = output.NewFormatter(io.Discard)
	}

	return &Supervisor{
		opts:     opts,
		requests: make(chan request),
		stopped:  make(chan struct{}),
		state:    StateRunning,
	}
}

// Run は入力が終了するか終了要求を受けるまでコマンドを処理し、
// その後実行中の録画が全て終了するまで待つ
func (s *Supervisor) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go s.readLines(in, lines)

	for !s.stopRequested {
		select {
		case <-ctx.Done():
			log.Println("終了シグナルを受信しました")
			s.stopRequested = true

		case line, ok := <-lines:
			if !ok {
				log.Println("入力が終了しました")
				s.stopRequested = true
				continue
			}
			s.print(s.handle(ctx, line))

		case req := <-s.requests:
			req.reply <- s.handle(ctx, req.line)
		}
	}

	s.beginDrain()

	if n := s.opts.Recorder.Active(); n > 0 {
		log.Printf("実行中の録画の終了を待っています (%d件)", n)
	}
	s.opts.Recorder.Drain()

	s.setState(StateTerminated)
	log.Println("全ての録画が終了しました")
	return nil
}

// Submit は他のゴルーチンからコマンドを実行し、その結果を返す
func (s *Supervisor) Submit(ctx context.Context, line string) (Reply, error) {
	req := request{line: line, reply: make(chan Reply, 1)}

	select {
	case s.requests <- req:
	case <-s.stopped:
		return Reply{}, ErrNotRunning
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}

	select {
	case reply := <-req.reply:
		return reply, nil
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// State は現在の状態を返す
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot は現在状態を返す
func (s *Supervisor) Snapshot() Snapshot {
	active := s.opts.Recorder.Active()
	return Snapshot{
		State:       s.State(),
		Active:      active,
		Recording:   active > 0,
		Anomalies:   s.opts.Recorder.Anomalies(),
		LastTrigger: s.opts.Gate.Last(),
	}
}

// readLines は入力を1行ずつ lines に送る
func (s *Supervisor) readLines(in io.Reader, lines chan<- string) {
	defer close(lines)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-s.stopped:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("入力の読み取りに失敗: %v", err)
	}
}

// handle は1行のコマンドを処理する
func (s *Supervisor) handle(ctx context.Context, line string) Reply {
	cmd := command.Parse(line)
	reply := Reply{Command: cmd.Kind.String()}

	switch cmd.Kind {
	case command.KindNone:
		// 空行は何もしない

	case command.KindQuit:
		log.Println("ユーザーコマンドにより終了します")
		s.stopRequested = true
		reply.Message = "Exiting on user command."

	case command.KindStatus:
		reply.Message = "Status: " + s.statusWord()

	case command.KindHelp:
		reply.Message = "Commands: " + command.Usage

	case command.KindSave:
		return s.save(ctx, cmd)

	default:
		reply.level = output.LevelWarning
		reply.Message = fmt.Sprintf("Unknown command: %s\nType: %s", cmd.Text, command.Usage)
	}

	return reply
}

// save はデバウンス、単一録画、容量の各チェックを経て録画を開始する
func (s *Supervisor) save(ctx context.Context, cmd command.Command) Reply {
	reply := Reply{Command: cmd.Kind.String()}

	duration := s.opts.DefaultDuration
	if cmd.Duration > 0 {
		duration = cmd.Duration
	}

	if !s.opts.Gate.Accept() {
		reply.Outcome = OutcomeDebounced
		reply.Message = fmt.Sprintf("debounce: ignored (gap < %d ms)", s.opts.Gate.MinGap().Milliseconds())
		reply.quiet = true
		s.debugf("デバウンスにより無視しました (間隔 < %dms)", s.opts.Gate.MinGap().Milliseconds())
		return reply
	}

	if s.opts.Recorder.Active() > 0 {
		reply.Outcome = OutcomeBusy
		reply.Message = "ignored: a recording is already running"
		reply.quiet = true
		s.debugf("録画が既に実行中のため無視しました")
		return reply
	}

	if s.opts.Storage != nil {
		if err := s.checkStorage(); err != nil {
			log.Printf("エラー: 容量チェックに失敗したため録画を開始しません: %v", err)
			reply.Outcome = OutcomeRefused
			reply.Message = err.Error()
			reply.level = output.LevelError
			return reply
		}
	}

	rec, err := s.opts.Recorder.Launch(ctx, duration)
	if err != nil {
		log.Printf("エラー: 録画の起動に失敗しました: %v", err)
		s.opts.Sink.Publish(recorder.Event{
			Type:  recorder.EventFailed,
			Error: err.Error(),
			Time:  time.Now(),
		})
		reply.Outcome = OutcomeFailed
		reply.Message = err.Error()
		reply.level = output.LevelError
		return reply
	}

	s.opts.Sink.Publish(recorder.Event{
		Type:      recorder.EventStarted,
		Recording: rec,
		Time:      rec.StartedAt,
	})

	reply.Outcome = OutcomeStarted
	reply.Recording = rec
	reply.level = output.LevelSuccess
	reply.Message = fmt.Sprintf("Recording %d ms to %s", duration.Milliseconds(), rec.Path)
	return reply
}

func (s *Supervisor) checkStorage() error {
	result, evicted, err := s.opts.Storage.CheckStorage()
	if err != nil {
		return err
	}
	if len(evicted) > 0 {
		log.Printf("空き容量確保のため %d 件のクリップを削除しました (%s)", len(evicted), result)
	}
	return nil
}

func (s *Supervisor) statusWord() string {
	if s.opts.Recorder.Active() > 0 {
		return "recording"
	}
	return "idle"
}

// beginDrain は running を抜けて新しいコマンドの受付を止める
func (s *Supervisor) beginDrain() {
	s.stopOnce.Do(func() {
		s.setState(StateDraining)
		close(s.stopped)
	})
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *Supervisor) print(reply Reply) {
	if reply.quiet {
		return
	}
	s.opts.Output.Print(reply.level, reply.Message)
}

func (s *Supervisor) debugf(format string, args ...any) {
	if s.opts.Verbose {
		log.Printf(format, args...)
	}
}
