package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/luispater/pagechain/internal/browser/launch"
	"github.com/luispater/pagechain/internal/config"
	"github.com/luispater/pagechain/internal/runner"
	"github.com/luispater/pagechain/internal/utils"
	log "github.com/sirupsen/logrus"
)

// ChainProcessor implements TaskProcessor by running chains on the browser session.
type ChainProcessor struct {
	runner    *runner.RunnerManager
	session   *launch.Session
	history   *utils.Ring[*RunRecord]
	appConfig *config.AppConfig

	mu        sync.Mutex
	current   string
	cancel    context.CancelFunc
	cancelled map[string]bool
}

// NewChainProcessor creates a new chain processor keeping up to historySize runs.
func NewChainProcessor(appConfig *config.AppConfig, r *runner.RunnerManager, session *launch.Session, historySize int) *ChainProcessor {
	return &ChainProcessor{
		runner:    r,
		session:   session,
		history:   utils.NewRing[*RunRecord](historySize),
		appConfig: appConfig,
		cancelled: make(map[string]bool),
	}
}

// ProcessTask runs the chain of task.
func (cp *ChainProcessor) ProcessTask(ctx context.Context, task *RequestTask) *TaskResponse {
	log.Debugf("Starting to process task %s", task.ID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !cp.begin(task.ID, cancel) {
		err := fmt.Errorf("chain %s: %w", task.Chain, runner.ErrAborted)
		cp.record(task, nil, err)
		return &TaskResponse{Error: err}
	}
	defer cp.end()

	if cp.appConfig.Runner.FreshSession {
		if err := cp.session.Reset(); err != nil {
			log.Warnf("Error resetting browser session: %v", err)
		}
	}

	result, err := cp.runner.Run(ctx, task.Chain, cp.session.Driver, task.Params)
	cp.record(task, result, err)
	if err != nil {
		log.Debugf("Chain %s of task %s failed: %v", task.Chain, task.ID, err)
	}
	return &TaskResponse{
		Success: err == nil,
		Result:  result,
		Error:   err,
	}
}

func (cp *ChainProcessor) begin(id string, cancel context.CancelFunc) bool {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if cp.cancelled[id] {
		delete(cp.cancelled, id)
		return false
	}
	cp.current = id
	cp.cancel = cancel
	return true
}

func (cp *ChainProcessor) end() {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.current = ""
	cp.cancel = nil
}

// Cancel stops the run of task id, or drops it when it is still queued. Finished
// tasks are left alone.
func (cp *ChainProcessor) Cancel(id string) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if cp.current == id && cp.cancel != nil {
		log.Debugf("Cancelling running task %s", id)
		cp.cancel()
		return
	}
	if _, done := cp.Run(id); done {
		return
	}
	cp.cancelled[id] = true
}

func (cp *ChainProcessor) record(task *RequestTask, result *runner.RunnerResult, err error) {
	record := &RunRecord{
		ID:        task.ID,
		Chain:     task.Chain,
		Success:   err == nil,
		CreatedAt: task.CreatedAt,
	}
	if err != nil {
		record.Error = err.Error()
	}
	if result != nil {
		record.Pages = result.Pages
		record.Final = result.Final
		record.URL = result.URL
		record.Title = result.Title
		record.Params = result.Params
		record.DurationMs = result.Duration.Milliseconds()
	}
	if cp.history.Push(record) {
		log.Debugf("Run history full, dropped the oldest run")
	}
}

// History returns the recorded runs, newest first.
func (cp *ChainProcessor) History() []*RunRecord {
	return cp.history.Newest()
}

// Run returns the recorded run with id.
func (cp *ChainProcessor) Run(id string) (*RunRecord, bool) {
	return cp.history.Find(func(r *RunRecord) bool { return r.ID == id })
}

// waitTimeout bounds how long a handler waits for a queued run.
func (cp *ChainProcessor) waitTimeout(steps int) time.Duration {
	perPage := time.Duration(cp.appConfig.Page.Timeout * float64(time.Second))
	return time.Minute + time.Duration(steps+1)*2*perPage
}
