package client

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

var (
	// ErrChatNotFound is returned for an id the book does not hold.
	ErrChatNotFound = errors.New("chat not found")
	// ErrEmptyMessage is returned by Send for blank text.
	ErrEmptyMessage = errors.New("message is empty")
)

// Sender relays one framed message and returns the reply.
type Sender interface {
	Send(ctx context.Context, message string) (string, error)
}

// Entry is a chat together with its id.
type Entry struct {
	ID string
	Chat
}

// Book is the set of chats a user keeps. Every mutation is written
// through to the store.
type Book struct {
	mu    sync.Mutex
	store Store
	relay Sender
	chats map[string]Chat
	now   func() time.Time
}

// OpenBook loads the chats currently in store.
func OpenBook(store Store, relay Sender) (*Book, error) {
	chats, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Book{store: store, relay: relay, chats: chats, now: time.Now}, nil
}

// WithClock replaces the time source used for ids and timestamps.
func (b *Book) WithClock(now func() time.Time) *Book {
	b.now = now
	return b
}

// Create adds an empty chat and returns its id. An empty title means
// NewChatTitle.
func (b *Book) Create(title string) (string, error) {
	if strings.TrimSpace(title) == "" {
		title = NewChatTitle
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	at := b.now()
	id := NewChatID(at)
	for {
		if _, taken := b.chats[id]; !taken {
			break
		}
		at = at.Add(time.Millisecond)
		id = NewChatID(at)
	}
	b.chats[id] = Chat{Title: title, Messages: []Message{}}
	return id, b.saveLocked()
}

// Get returns a copy of one chat.
func (b *Book) Get(id string) (Chat, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.chats[id]
	if !ok {
		return Chat{}, false
	}
	c.Messages = append([]Message(nil), c.Messages...)
	return c, true
}

// List returns every chat, oldest first.
func (b *Book) List() []Entry {
	return b.Search("")
}

// Search returns the chats whose title contains query, ignoring case.
func (b *Book) Search(query string) []Entry {
	query = strings.ToLower(query)

	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Entry
	for id, c := range b.chats {
		if query != "" && !strings.Contains(strings.ToLower(c.Title), query) {
			continue
		}
		c.Messages = append([]Message(nil), c.Messages...)
		out = append(out, Entry{ID: id, Chat: c})
	}
	// ids embed creation millis, so shorter ids are older
	slices.SortFunc(out, func(x, y Entry) int {
		if len(x.ID) != len(y.ID) {
			return len(x.ID) - len(y.ID)
		}
		return strings.Compare(x.ID, y.ID)
	})
	return out
}

// Rename sets the title of chat id.
func (b *Book) Rename(id, title string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.chats[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrChatNotFound, id)
	}
	c.Title = title
	b.chats[id] = c
	return b.saveLocked()
}

// Delete removes chat id.
func (b *Book) Delete(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.chats[id]; !ok {
		return fmt.Errorf("%w: %s", ErrChatNotFound, id)
	}
	delete(b.chats, id)
	return b.saveLocked()
}

// Clear removes every chat.
func (b *Book) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chats = map[string]Chat{}
	return b.saveLocked()
}

// Send appends text to the chat, relays it framed with the chat title and
// appends the reply. When the relay fails ErrorReply is appended instead and
// the relay error is returned alongside it.
func (b *Book) Send(ctx context.Context, id, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}

	b.mu.Lock()
	c, ok := b.chats[id]
	if !ok {
		b.mu.Unlock()
		return Message{}, fmt.Errorf("%w: %s", ErrChatNotFound, id)
	}
	framed := FrameMessage(c.Title, text)
	if c.Title == NewChatTitle && len(c.Messages) == 0 {
		c.Title = text
	}
	c.Messages = append(c.Messages, Message{Sender: SenderUser, Message: text, Timestamp: b.now().UTC()})
	b.chats[id] = c
	saveErr := b.saveLocked()
	b.mu.Unlock()
	if saveErr != nil {
		return Message{}, saveErr
	}

	reply, relayErr := b.relay.Send(ctx, framed)
	bot := Message{Sender: SenderBot, Message: reply, Timestamp: b.now().UTC()}
	if relayErr != nil {
		bot.Message = ErrorReply
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok = b.chats[id]
	if !ok {
		// deleted while waiting for the reply
		return bot, relayErr
	}
	c.Messages = append(c.Messages, bot)
	b.chats[id] = c
	if err := b.saveLocked(); err != nil && relayErr == nil {
		return bot, err
	}
	return bot, relayErr
}

// Start creates a chat titled option and sends option as its first message.
func (b *Book) Start(ctx context.Context, option string) (string, Message, error) {
	id, err := b.Create(option)
	if err != nil {
		return "", Message{}, err
	}
	reply, err := b.Send(ctx, id, option)
	return id, reply, err
}

func (b *Book) saveLocked() error {
	if err := b.store.Save(b.chats); err != nil {
		return fmt.Errorf("failed to save chats: %w", err)
	}
	return nil
}
