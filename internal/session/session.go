// Package session persists conversations under ~/.vibe/sessions so a
// conversation and its budget accounting survive process restarts.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vibe-cli/vibe/internal/llm"
	"github.com/vibe-cli/vibe/internal/usage"
)

const (
	// MaxSessions caps how many sessions are retained on disk.
	MaxSessions = 10
	// CurrentSessionLink is the symlink that tracks the active session.
	CurrentSessionLink = "current.json"
)

// Session is one saved conversation. Usage is persisted alongside the
// messages so a resumed session keeps its budget accounting.
type Session struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Model     string        `json:"model"`
	Messages  []llm.Message `json:"messages"`
	Usage     usage.Totals  `json:"usage"`
}

// Info summarizes a session for listings.
type Info struct {
	ID        string
	UpdatedAt time.Time
	Model     string
	Preview   string
	MsgCount  int
}

// Store reads and writes session files in one directory.
type Store struct {
	dir string
	log *zap.Logger
}

// NewStore opens the default store under the user's home directory.
func NewStore(log *zap.Logger) (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewStoreAt(filepath.Join(home, ".vibe", "sessions"), log)
}

// NewStoreAt opens a store rooted at dir, creating it if needed.
func NewStoreAt(dir string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &Store{dir: dir, log: log.Named("session")}, nil
}

// Save writes the session, points the current symlink at it, and prunes
// old sessions past the retention cap.
func (s *Store) Save(sess *Session) error {
	if sess.ID == "" {
		return fmt.Errorf("session has no ID")
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	sess.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.WriteFile(s.path(sess.ID), data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	if err := s.updateCurrentLink(sess.ID); err != nil {
		return fmt.Errorf("failed to update current link: %w", err)
	}

	if err := s.pruneOld(); err != nil {
		s.log.Warn("failed to prune old sessions", zap.Error(err))
	}
	return nil
}

// Load reads a session by ID.
func (s *Store) Load(id string) (*Session, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("session not found: %s", id)
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	return &sess, nil
}

// Current returns the session the current symlink points at, or nil when
// there is none.
func (s *Store) Current() (*Session, error) {
	linkPath := filepath.Join(s.dir, CurrentSessionLink)

	target, err := os.Readlink(linkPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read current session link: %w", err)
	}

	id := strings.TrimSuffix(filepath.Base(target), ".json")
	sess, err := s.Load(id)
	if err != nil {
		// Stale link; drop it rather than failing every startup.
		_ = os.Remove(linkPath)
		return nil, nil
	}
	return sess, nil
}

// List returns saved sessions, most recently updated first.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") || name == CurrentSessionLink {
			continue
		}
		// Skip the symlink even when ReadDir reports it as a file.
		if entry.Type()&os.ModeSymlink != 0 {
			continue
		}

		sess, err := s.Load(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}

		info := Info{
			ID:        sess.ID,
			UpdatedAt: sess.UpdatedAt,
			Model:     sess.Model,
			MsgCount:  len(sess.Messages),
		}
		for _, msg := range sess.Messages {
			if msg.Role == "user" {
				info.Preview = truncate(msg.Content, 50)
				break
			}
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})
	return infos, nil
}

// Delete removes a session and clears the current symlink if it pointed
// there.
func (s *Store) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("session not found: %s", id)
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}

	linkPath := filepath.Join(s.dir, CurrentSessionLink)
	if target, err := os.Readlink(linkPath); err == nil {
		if strings.TrimSuffix(filepath.Base(target), ".json") == id {
			_ = os.Remove(linkPath)
		}
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *Store) updateCurrentLink(id string) error {
	linkPath := filepath.Join(s.dir, CurrentSessionLink)
	_ = os.Remove(linkPath)
	return os.Symlink(id+".json", linkPath)
}

func (s *Store) pruneOld() error {
	infos, err := s.List()
	if err != nil {
		return err
	}
	if len(infos) <= MaxSessions {
		return nil
	}
	for i := MaxSessions; i < len(infos); i++ {
		_ = os.Remove(s.path(infos[i].ID))
	}
	return nil
}

func truncate(str string, maxLen int) string {
	str = strings.TrimSpace(strings.ReplaceAll(str, "\n", " "))
	if len(str) <= maxLen {
		return str
	}
	return str[:maxLen-3] + "..."
}

// FormatRelativeTime renders a timestamp for session listings.
func FormatRelativeTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		if t.Year() == now.Year() {
			return t.Format("Jan 2")
		}
		return t.Format("Jan 2, 2006")
	}
}
