package inbox

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ashureev/socialdash/internal/fixtures"
	"github.com/google/uuid"
)

const (
	maxMessageLen    = 2000
	maxThreadHistory = 200
)

var (
	// ErrEmptyMessage is returned when a message has no text.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrMessageTooLong is returned when a message exceeds the size limit.
	ErrMessageTooLong = errors.New("message is too long")
	// ErrUnknownThread is returned for a thread id that is not in the inbox.
	ErrUnknownThread = errors.New("unknown thread")
)

// Message is one direct message.
type Message struct {
	ID     string    `json:"id"`
	Thread string    `json:"thread"`
	Text   string    `json:"text"`
	Mine   bool      `json:"mine"`
	SentAt time.Time `json:"sent_at"`
}

// Conversations keeps each device's DM threads in memory.
// Every thread starts from the same greeting. A device is only stored once
// it sends a message.
type Conversations struct {
	mu       sync.Mutex
	threads  map[string]struct{}
	greeting []fixtures.Message
	byDevice map[string]*deviceInbox
	now      func() time.Time
}

type deviceInbox struct {
	threads  map[string][]Message
	lastSent time.Time
}

// NewConversations creates an inbox over the given threads.
func NewConversations(threads []fixtures.Thread, greeting []fixtures.Message) *Conversations {
	known := make(map[string]struct{}, len(threads))
	for _, t := range threads {
		known[t.ID] = struct{}{}
	}
	return &Conversations{
		threads:  known,
		greeting: greeting,
		byDevice: make(map[string]*deviceInbox),
		now:      time.Now,
	}
}

// HasThread reports whether threadID exists.
func (c *Conversations) HasThread(threadID string) bool {
	_, ok := c.threads[threadID]
	return ok
}

// Messages returns a copy of the thread's history for the device.
func (c *Conversations) Messages(deviceID, threadID string) ([]Message, error) {
	if !c.HasThread(threadID) {
		return nil, ErrUnknownThread
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if inbox, ok := c.byDevice[deviceID]; ok {
		if history, ok := inbox.threads[threadID]; ok {
			out := make([]Message, len(history))
			copy(out, history)
			return out, nil
		}
	}
	return c.greetingFor(threadID), nil
}

// Append adds an outgoing message to the thread.
func (c *Conversations) Append(deviceID, threadID, text string) (Message, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return Message{}, ErrEmptyMessage
	case utf8.RuneCountInString(text) > maxMessageLen:
		return Message{}, ErrMessageTooLong
	case !c.HasThread(threadID):
		return Message{}, ErrUnknownThread
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	inbox, ok := c.byDevice[deviceID]
	if !ok {
		inbox = &deviceInbox{threads: make(map[string][]Message)}
		c.byDevice[deviceID] = inbox
	}
	history, ok := inbox.threads[threadID]
	if !ok {
		history = c.greetingFor(threadID)
	}

	msg := Message{ID: newMessageID(), Thread: threadID, Text: text, Mine: true, SentAt: now}
	history = append(history, msg)
	if len(history) > maxThreadHistory {
		history = history[len(history)-maxThreadHistory:]
	}
	inbox.threads[threadID] = history
	inbox.lastSent = now
	return msg, nil
}

// Forget drops every thread for the device.
func (c *Conversations) Forget(deviceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byDevice, deviceID)
}

// EvictIdle drops devices that have not sent a message for longer than idle
// and returns how many were removed.
func (c *Conversations) EvictIdle(idle time.Duration) int {
	cutoff := c.now().Add(-idle)
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for deviceID, inbox := range c.byDevice {
		if inbox.lastSent.Before(cutoff) {
			delete(c.byDevice, deviceID)
			evicted++
		}
	}
	return evicted
}

// Devices returns how many devices have stored history.
func (c *Conversations) Devices() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byDevice)
}

// greetingFor builds the opening messages of a thread. Ids are stable so
// repeated renders of an untouched thread agree.
func (c *Conversations) greetingFor(threadID string) []Message {
	history := make([]Message, 0, len(c.greeting))
	for i, g := range c.greeting {
		history = append(history, Message{
			ID:     "greeting-" + threadID + "-" + strconv.Itoa(i),
			Thread: threadID,
			Text:   g.Text,
			Mine:   g.From == "me",
		})
	}
	return history
}

func newMessageID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
