package services

import (
	"handsoff/internal/dispatch"
	"handsoff/internal/models"
	"handsoff/internal/structures"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// AlertObserver receives alert edges. Calls arrive on the dispatch queue,
// never on the goroutine that reported the detection.
type AlertObserver interface {
	AlertStarted()
	AlertStopped()
}

// ObserverToken identifies a registration; pass it to RemoveObserver.
type ObserverToken uint64

type AlertCoordinatorInterface interface {
	ReportDetection(d models.Detection)
	ReportTouchDetected()
	AddObserver(observer AlertObserver) ObserverToken
	RemoveObserver(token ObserverToken)
	Active() bool
}

type observation struct {
	token    ObserverToken
	observer AlertObserver
	live     atomic.Bool
}

type AlertCoordinator struct {
	mu         sync.Mutex
	clock      clockwork.Clock
	queue      *dispatch.Queue
	window     time.Duration
	threshold  float64
	lastSignal time.Time
	stopTimer  clockwork.Timer
	observers  []*observation
	nextToken  ObserverToken
}

func NewAlertCoordinator(conf *structures.Config, clk clockwork.Clock, queue *dispatch.Queue) AlertCoordinatorInterface {
	return &AlertCoordinator{
		clock:     clk,
		queue:     queue,
		window:    conf.Alert.DebounceWindow,
		threshold: conf.Alert.ConfidenceThreshold,
	}
}

// ReportDetection forwards confident touches. Not-touching events are
// dropped: the alert ends only when the debounce window passes quietly.
func (c *AlertCoordinator) ReportDetection(d models.Detection) {
	if !d.Touching || d.Confidence < c.threshold {
		return
	}
	c.ReportTouchDetected()
}

func (c *AlertCoordinator) ReportTouchDetected() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastSignal = c.clock.Now()
	if c.stopTimer != nil {
		return
	}
	c.stopTimer = c.clock.AfterFunc(c.window, c.stopTimerFired)
	c.queue.Async(func() { c.notify(AlertObserver.AlertStarted) })
}

func (c *AlertCoordinator) stopTimerFired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopTimer == nil {
		return
	}
	elapsed := c.clock.Now().Sub(c.lastSignal)
	if elapsed < c.window {
		c.stopTimer.Reset(c.window - elapsed)
		return
	}
	c.stopTimer.Stop()
	c.stopTimer = nil
	c.queue.Async(func() { c.notify(AlertObserver.AlertStopped) })
}

func (c *AlertCoordinator) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopTimer != nil
}

func (c *AlertCoordinator) AddObserver(observer AlertObserver) ObserverToken {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextToken++
	o := &observation{token: c.nextToken, observer: observer}
	o.live.Store(true)
	c.observers = append(c.observers, o)
	return o.token
}

// RemoveObserver only marks the observation dead; notify purges it.
func (c *AlertCoordinator) RemoveObserver(token ObserverToken) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, o := range c.observers {
		if o.token == token {
			o.live.Store(false)
			o.observer = nil
			return
		}
	}
}

func (c *AlertCoordinator) liveObservers() []*observation {
	c.mu.Lock()
	defer c.mu.Unlock()

	live := c.observers[:0]
	for _, o := range c.observers {
		if o.live.Load() {
			live = append(live, o)
		}
	}
	for i := len(live); i < len(c.observers); i++ {
		c.observers[i] = nil
	}
	c.observers = live

	out := make([]*observation, len(live))
	copy(out, live)
	return out
}

func (c *AlertCoordinator) notify(edge func(AlertObserver)) {
	for _, o := range c.liveObservers() {
		c.mu.Lock()
		observer := o.observer
		c.mu.Unlock()
		if observer == nil || !o.live.Load() {
			continue
		}
		edge(observer)
	}
}
