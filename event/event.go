// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	EventQueueSize      = 100
	AsyncQueueSize      = 1000
	AsyncWorkerPoolSize = 4
)

type EventType string

type EventSubscriberId int

type EventHandlerFunc func(Event)

type Event struct {
	Timestamp time.Time
	Data      any
	Type      EventType
}

func NewEvent(eventType EventType, eventData any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      eventData,
	}
}

type asyncEvent struct {
	eventType EventType
	event     Event
}

// EventBus fans events out to subscribers by type. Publish delivers
// synchronously in the caller's goroutine, so events of one type reach each
// subscriber in publish order.
type EventBus struct {
	subscribers map[EventType]map[EventSubscriberId]*subscriber
	metrics     *eventMetrics
	logger      *slog.Logger
	lastSubId   EventSubscriberId
	mu          sync.RWMutex
	asyncQueue  chan asyncEvent
	stopCh      chan struct{}
	workerWg    sync.WaitGroup
	handlerWg   sync.WaitGroup
	stopOnce    sync.Once
	stopped     bool
}

// NewEventBus creates a new EventBus and starts its async worker pool
func NewEventBus(
	promRegistry prometheus.Registerer,
	logger *slog.Logger,
) *EventBus {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e := &EventBus{
		subscribers: make(map[EventType]map[EventSubscriberId]*subscriber),
		logger:      logger.With("component", "event"),
		asyncQueue:  make(chan asyncEvent, AsyncQueueSize),
		stopCh:      make(chan struct{}),
	}
	if promRegistry != nil {
		e.initMetrics(promRegistry)
	}
	for range AsyncWorkerPoolSize {
		e.workerWg.Add(1)
		go e.asyncWorker()
	}
	return e
}

func (e *EventBus) asyncWorker() {
	defer e.workerWg.Done()
	for {
		select {
		case <-e.stopCh:
			return
		case ae := <-e.asyncQueue:
			e.Publish(ae.eventType, ae.event)
		}
	}
}

// subscriber is a channel-backed delivery target. A delivery blocked on a
// full queue is abandoned when the subscriber is closed, and ch is closed
// only after in-flight deliveries have returned.
type subscriber struct {
	ch       chan Event
	done     chan struct{}
	inflight sync.WaitGroup
	mu       sync.Mutex
	closed   bool
}

func newSubscriber() *subscriber {
	return &subscriber{
		ch:   make(chan Event, EventQueueSize),
		done: make(chan struct{}),
	}
}

func (s *subscriber) deliver(evt Event) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()
	select {
	case s.ch <- evt:
		return true
	case <-s.done:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()
	s.inflight.Wait()
	close(s.ch)
}

// Subscribe allows a consumer to receive events of a particular type via a channel.
// The returned channel is closed by Unsubscribe or Stop. Publish blocks while
// the channel's queue is full, until it is read or the subscription ends.
func (e *EventBus) Subscribe(
	eventType EventType,
) (EventSubscriberId, <-chan Event) {
	sub, subId := e.subscribe(eventType, false)
	return subId, sub.ch
}

// SubscribeFunc allows a consumer to receive events of a particular type via a callback function.
// The callback runs in a dedicated goroutine, one event at a time.
func (e *EventBus) SubscribeFunc(
	eventType EventType,
	handlerFunc EventHandlerFunc,
) EventSubscriberId {
	sub, subId := e.subscribe(eventType, true)
	if subId == 0 {
		return 0
	}
	go func() {
		defer e.handlerWg.Done()
		for evt := range sub.ch {
			handlerFunc(evt)
		}
	}()
	return subId
}

// subscribe registers a new subscriber. When withHandler is set, the handler
// goroutine is accounted for while the lock is held so Stop cannot miss it.
func (e *EventBus) subscribe(
	eventType EventType,
	withHandler bool,
) (*subscriber, EventSubscriberId) {
	sub := newSubscriber()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		sub.close()
		return sub, 0
	}
	e.lastSubId++
	subId := e.lastSubId
	if _, ok := e.subscribers[eventType]; !ok {
		e.subscribers[eventType] = make(map[EventSubscriberId]*subscriber)
	}
	e.subscribers[eventType][subId] = sub
	if withHandler {
		e.handlerWg.Add(1)
	}
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType)).Inc()
	}
	return sub, subId
}

// Unsubscribe stops delivery of events for a particular type for an existing subscriber
func (e *EventBus) Unsubscribe(eventType EventType, subId EventSubscriberId) {
	e.mu.Lock()
	var sub *subscriber
	if evtTypeSubs, ok := e.subscribers[eventType]; ok {
		if s, ok := evtTypeSubs[subId]; ok {
			sub = s
			delete(evtTypeSubs, subId)
			if len(evtTypeSubs) == 0 {
				delete(e.subscribers, eventType)
			}
			if e.metrics != nil {
				e.metrics.subscribers.WithLabelValues(string(eventType)).Dec()
			}
		}
	}
	e.mu.Unlock()
	if sub != nil {
		sub.close()
	}
}

// Publish sends an event of a particular type to all subscribers. It blocks
// while any subscriber queue is full.
func (e *EventBus) Publish(eventType EventType, evt Event) {
	type subItem struct {
		id  EventSubscriberId
		sub *subscriber
	}
	e.mu.RLock()
	subs := e.subscribers[eventType]
	subList := make([]subItem, 0, len(subs))
	for id, sub := range subs {
		subList = append(subList, subItem{id: id, sub: sub})
	}
	e.mu.RUnlock()
	for _, item := range subList {
		if !item.sub.deliver(evt) {
			if e.metrics != nil {
				e.metrics.deliveryErrors.WithLabelValues(string(eventType)).Inc()
			}
			e.logger.Debug(
				"event not delivered, subscriber closed",
				"type", eventType,
				"subscriber_id", item.id,
			)
		}
	}
	if e.metrics != nil {
		e.metrics.eventsTotal.WithLabelValues(string(eventType)).Inc()
	}
}

// PublishAsync enqueues an event for delivery by the worker pool and returns
// immediately. It returns false if the bus is stopped or the queue is full.
func (e *EventBus) PublishAsync(eventType EventType, evt Event) bool {
	e.mu.RLock()
	stopped := e.stopped
	e.mu.RUnlock()
	if stopped {
		return false
	}
	select {
	case e.asyncQueue <- asyncEvent{eventType: eventType, event: evt}:
		return true
	default:
		e.logger.Warn(
			"async event queue full, dropping event",
			"type", eventType,
		)
		if e.metrics != nil {
			e.metrics.asyncDropped.WithLabelValues(string(eventType)).Inc()
		}
		return false
	}
}

// Stop halts the worker pool, closes all subscriber channels and waits for
// SubscribeFunc handlers to return. Queued async events are discarded.
// Stop is idempotent; a stopped bus accepts no new subscribers.
func (e *EventBus) Stop() {
	e.stopOnce.Do(func() {
		e.mu.Lock()
		e.stopped = true
		subsCopy := e.subscribers
		e.subscribers = make(map[EventType]map[EventSubscriberId]*subscriber)
		e.mu.Unlock()
		for _, evtTypeSubs := range subsCopy {
			for _, sub := range evtTypeSubs {
				sub.close()
			}
		}
		close(e.stopCh)
		e.workerWg.Wait()
		if e.metrics != nil {
			e.metrics.subscribers.Reset()
		}
	})
	e.handlerWg.Wait()
}
