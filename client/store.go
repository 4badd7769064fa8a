package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists the whole chat mapping at once.
type Store interface {
	Load() (map[string]Chat, error)
	Save(chats map[string]Chat) error
}

// storeFile is the on-disk layout, kept compatible with the browser's
// localStorage value.
type storeFile struct {
	ChatHistory map[string]Chat `json:"chatHistory"`
}

// FileStore keeps chats in a single JSON file.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load returns an empty mapping when the file does not exist yet.
func (s *FileStore) Load() (map[string]Chat, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Chat{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read chat store: %w", err)
	}

	var f storeFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse chat store %s: %w", s.Path, err)
	}
	if f.ChatHistory == nil {
		f.ChatHistory = map[string]Chat{}
	}
	return f.ChatHistory, nil
}

// Save writes to a temp file and renames it over the old one.
func (s *FileStore) Save(chats map[string]Chat) error {
	if chats == nil {
		chats = map[string]Chat{}
	}
	data, err := json.MarshalIndent(storeFile{ChatHistory: chats}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode chat store: %w", err)
	}

	if dir := filepath.Dir(s.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create chat store dir: %w", err)
		}
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write chat store: %w", err)
	}
	return os.Rename(tmp, s.Path)
}

// MemoryStore keeps chats for the life of the process.
type MemoryStore struct {
	mu    sync.Mutex
	chats map[string]Chat
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chats: map[string]Chat{}}
}

func (s *MemoryStore) Load() (map[string]Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneChats(s.chats), nil
}

func (s *MemoryStore) Save(chats map[string]Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = cloneChats(chats)
	return nil
}

func cloneChats(in map[string]Chat) map[string]Chat {
	out := make(map[string]Chat, len(in))
	for id, c := range in {
		c.Messages = append([]Message(nil), c.Messages...)
		out[id] = c
	}
	return out
}
