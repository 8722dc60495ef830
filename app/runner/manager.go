package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/platevue/venue-comb/app/config"
)

var _ ManagerInterface = (*Manager)(nil)

// ErrRunInProgress is returned when a run is enqueued while a run with
// the same name is already waiting or executing.
var ErrRunInProgress = errors.New("run already in progress")

// Manager executes runs one at a time in the background. Runs hit a
// shared provider quota and a single SQLite writer, so serializing them
// keeps both the pacing and the outcome rows coherent.
type Manager struct {
	runner      *Runner
	configCache *config.Cache
	runTimeout  time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	queue       chan Request

	mu      sync.Mutex
	pending map[string]bool
	active  string
}

func NewManager(runner *Runner, configCache *config.Cache, runTimeout time.Duration) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		runner:      runner,
		configCache: configCache,
		runTimeout:  runTimeout,
		ctx:         ctx,
		cancel:      cancel,
		queue:       make(chan Request, 32),
		pending:     make(map[string]bool),
	}
}

func (m *Manager) Start() {
	m.wg.Add(1)
	go m.worker()
}

// Stop cancels the context and waits for the worker. The queue is never
// closed: a concurrent Enqueue may still attempt a send after cancellation,
// and sending on an open channel is safe while sending on a closed one
// panics.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
}

// Enqueue queues a run for background execution. Duplicate names are
// rejected while the earlier request is still waiting or executing.
func (m *Manager) Enqueue(request Request) error {
	if err := m.ctx.Err(); err != nil {
		return err
	}
	if _, err := m.configCache.GetConfig(request.RunName); err != nil {
		return err
	}

	m.mu.Lock()
	if m.pending[request.RunName] || m.active == request.RunName {
		m.mu.Unlock()
		return ErrRunInProgress
	}
	m.pending[request.RunName] = true
	m.mu.Unlock()

	select {
	case m.queue <- request:
		return nil
	case <-m.ctx.Done():
		m.clearPending(request.RunName)
		return m.ctx.Err()
	default:
		m.clearPending(request.RunName)
		return fmt.Errorf("run queue is full")
	}
}

// ActiveRun returns the name of the currently executing run, or an empty
// string when the manager is idle.
func (m *Manager) ActiveRun() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *Manager) worker() {
	defer m.wg.Done()

	for {
		select {
		case request := <-m.queue:
			m.executeRun(request)

		case <-m.ctx.Done():
			return
		}
	}
}

func (m *Manager) executeRun(request Request) {
	m.mu.Lock()
	delete(m.pending, request.RunName)
	m.active = request.RunName
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.active = ""
		m.mu.Unlock()
	}()

	runConfig, err := m.configCache.GetConfig(request.RunName)
	if err != nil {
		slog.Error("Run config disappeared before execution", "run", request.RunName, "error", err)
		return
	}

	runCtx, cancel := context.WithTimeout(m.ctx, m.runTimeout)
	defer cancel()

	started := time.Now()
	summary, err := m.runner.Run(runCtx, runConfig, request.Resume)
	if err != nil {
		slog.Error("Run execution failed", "run", request.RunName, "duration", time.Since(started).String(), "error", err)
		return
	}

	slog.Info("Run execution finished", "run", request.RunName, "duration", time.Since(started).String(),
		"matched", summary.Matched, "not_found", summary.NotFound, "failed", summary.Failed)
}

func (m *Manager) clearPending(runName string) {
	m.mu.Lock()
	delete(m.pending, runName)
	m.mu.Unlock()
}
