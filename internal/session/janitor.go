package session

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Janitor periodically removes idle sessions
type Janitor struct {
	manager  *Manager
	interval time.Duration
	logger   *logrus.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewJanitor(manager *Manager, interval time.Duration, logger *logrus.Logger) *Janitor {
	if logger == nil {
		logger = logrus.New()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{
		manager:  manager,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the sweep loop
func (j *Janitor) Start() {
	j.wg.Add(1)
	go j.run()
}

func (j *Janitor) run() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopChan:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *Janitor) sweep() {
	if n := j.manager.Expire(); n > 0 {
		j.logger.WithFields(logrus.Fields{
			"expired":   n,
			"remaining": j.manager.Len(),
		}).Info("Expired idle search sessions")
	}
}

// Stop gracefully stops the janitor
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() { close(j.stopChan) })
	j.wg.Wait()
}
