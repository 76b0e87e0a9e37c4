package cache

import (
	"sync"
	"time"

	"dockout/infrastructure/workflow"
)

// WorkflowRunCache stores in-memory workflow runs by run id. Runs are lost
// on restart.
type WorkflowRunCache struct {
	mu   sync.RWMutex
	runs map[string]*workflow.Run
}

func NewWorkflowRunCache() *WorkflowRunCache {
	return &WorkflowRunCache{runs: make(map[string]*workflow.Run)}
}

func (c *WorkflowRunCache) Add(run *workflow.Run) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs[run.ID()] = run
}

func (c *WorkflowRunCache) Find(id string) (*workflow.Run, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	run, ok := c.runs[id]
	return run, ok
}

// FindOrCreate returns the run for id, creating and storing a new one when
// id is unknown. created reports whether a new run was made.
func (c *WorkflowRunCache) FindOrCreate(id string) (run *workflow.Run, created bool) {
	if id != "" {
		if run, ok := c.Find(id); ok {
			return run, false
		}
	}
	run = workflow.NewRun()
	c.Add(run)
	return run, true
}

func (c *WorkflowRunCache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.runs, id)
}

// Evict drops runs idle for longer than maxIdle and returns how many went.
func (c *WorkflowRunCache) Evict(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for id, run := range c.runs {
		if run.Snapshot().UpdatedAt.Before(cutoff) {
			delete(c.runs, id)
			n++
		}
	}
	return n
}

func (c *WorkflowRunCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.runs)
}
