// Package queue implements the handoff primitive between the acquisition
// loop and its consumers. The acquisition goroutine is the sole pusher;
// consumers subscribe by name and pop frames in the order lines were read
// from the device
package queue

import (
	"sync"
	"time"

	bg "github.com/SSSOCPaulCote/blunderguard"
	"github.com/splotd/splotd/parser"
)

const (
	ErrAlreadySubscribed = bg.Error("subscriber with given name already subscribed")
)

type (
	// Frame is one acquired line with its parse result and read timestamp
	Frame struct {
		Timestamp time.Time
		Raw       string
		Batch     parser.Batch
	}
	QueueListener struct {
		IsConnected bool
		Signal      chan int
	}
	Queue struct {
		queue     []*Frame
		listeners map[string]*QueueListener
		sync.RWMutex
	}
)

// NewQueue instantiates a new Queue struct
func NewQueue() *Queue {
	return &Queue{
		queue:     []*Frame{},
		listeners: make(map[string]*QueueListener),
	}
}

// Pop returns the first frame in the queue and deletes it from the queue.
// Returns nil when the queue is empty
func (q *Queue) Pop() *Frame {
	q.Lock()
	defer q.Unlock()
	var item *Frame
	if len(q.queue) > 0 {
		item = q.queue[0]
		q.queue = q.queue[1:]
	}
	return item
}

// Push adds a new frame to the back of the queue and signals every connected
// listener with the new queue length. Listeners that unsubscribed are dropped
// and their signal channels closed
func (q *Queue) Push(f *Frame) {
	q.Lock()
	defer q.Unlock()
	q.queue = append(q.queue, f)
	newListenerMap := make(map[string]*QueueListener)
	for n, l := range q.listeners {
		if !l.IsConnected {
			close(l.Signal)
			continue
		}
		select {
		case l.Signal <- len(q.queue):
		default: // listener is behind, it will drain on its next signal
		}
		newListenerMap[n] = l
	}
	q.listeners = newListenerMap
}

// Subscribe returns a channel which receives a signal whenever a new frame is
// pushed, along with an unsubscribe function
func (q *Queue) Subscribe(name string) (chan int, func(), error) {
	q.Lock()
	defer q.Unlock()
	if _, ok := q.listeners[name]; ok {
		return nil, nil, ErrAlreadySubscribed
	}
	q.listeners[name] = &QueueListener{IsConnected: true, Signal: make(chan int, 2)}
	unsub := func() {
		q.Lock()
		defer q.Unlock()
		if l, ok := q.listeners[name]; ok {
			l.IsConnected = false
		}
	}
	return q.listeners[name].Signal, unsub, nil
}
