package store

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Defaults applied when no settings file exists yet.
var defaultWatchlist = []string{"NVDA", "LUNR"}

const (
	defaultIntervalMinutes = 60
	defaultLanguage        = "zh"

	minIntervalMinutes = 5
	maxIntervalMinutes = 1440
)

// settingsRecord is the durable JSON layout. It must round-trip exactly
// through save/load.
type settingsRecord struct {
	Watchlist       []string          `json:"watchlist"`
	IntervalMinutes int               `json:"interval_minutes"`
	Language        string            `json:"language"`
	LastSent        map[string]string `json:"last_sent"`
}

// Settings holds the per-deployment mutable preferences: the watchlist,
// polling interval, language and per-symbol last-notification timestamps.
// Every mutation persists the full record synchronously before returning;
// a failed write rolls the in-memory state back so callers never observe
// partially-persisted state. One mutex guards the whole object, which is
// enough at human command rates.
type Settings struct {
	mu   sync.Mutex
	path string

	watchlist []string
	interval  int
	language  string
	lastSent  map[string]time.Time
}

// LoadSettings reads the settings file, falling back to built-in defaults
// when it is absent or unreadable.
func LoadSettings(path string) *Settings {
	s := &Settings{
		path:      path,
		watchlist: append([]string(nil), defaultWatchlist...),
		interval:  defaultIntervalMinutes,
		language:  defaultLanguage,
		lastSent:  map[string]time.Time{},
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var rec settingsRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return s
	}

	if rec.Watchlist != nil {
		s.watchlist = rec.Watchlist
	}
	if rec.IntervalMinutes != 0 {
		s.interval = clampInterval(rec.IntervalMinutes)
	}
	if rec.Language != "" {
		s.language = rec.Language
	}
	for sym, ts := range rec.LastSent {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			s.lastSent[sym] = t
		}
	}
	return s
}

// save persists the current state. Caller must hold the mutex.
func (s *Settings) save() error {
	rec := settingsRecord{
		Watchlist:       s.watchlist,
		IntervalMinutes: s.interval,
		Language:        s.language,
		LastSent:        map[string]string{},
	}
	// An emptied watchlist must come back empty, not as the defaults:
	// a nil slice would serialize as null, which load treats as absent.
	if rec.Watchlist == nil {
		rec.Watchlist = []string{}
	}
	for sym, t := range s.lastSent {
		rec.LastSent[sym] = t.Format(time.RFC3339)
	}

	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0644)
}

// Watchlist returns a copy of the ordered watchlist.
func (s *Settings) Watchlist() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.watchlist...)
}

// AddToWatchlist appends an upper-cased symbol. Returns false when the
// symbol is already present.
func (s *Settings) AddToWatchlist(symbol string) (bool, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	s.mu.Lock()
	defer s.mu.Unlock()

	if lo.Contains(s.watchlist, symbol) {
		return false, nil
	}
	s.watchlist = append(s.watchlist, symbol)
	if err := s.save(); err != nil {
		s.watchlist = s.watchlist[:len(s.watchlist)-1]
		return false, fmt.Errorf("persist watchlist: %w", err)
	}
	return true, nil
}

// RemoveFromWatchlist drops a symbol. Returns false when it was absent.
func (s *Settings) RemoveFromWatchlist(symbol string) (bool, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, sym := range s.watchlist {
		if sym == symbol {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}
	prev := s.watchlist
	s.watchlist = append(append([]string(nil), prev[:idx]...), prev[idx+1:]...)
	if err := s.save(); err != nil {
		s.watchlist = prev
		return false, fmt.Errorf("persist watchlist: %w", err)
	}
	return true, nil
}

// IntervalMinutes returns the current polling interval in minutes.
func (s *Settings) IntervalMinutes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Interval returns the current polling interval as a duration.
func (s *Settings) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes()) * time.Minute
}

// SetInterval clamps minutes to [5, 1440], persists, and returns the value
// actually stored.
func (s *Settings) SetInterval(minutes int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.interval
	s.interval = clampInterval(minutes)
	if err := s.save(); err != nil {
		s.interval = prev
		return prev, fmt.Errorf("persist interval: %w", err)
	}
	return s.interval, nil
}

// Language returns the current reply language ("zh" or "en").
func (s *Settings) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// SetLanguage persists a canonical language code.
func (s *Settings) SetLanguage(lang string) error {
	if lang != "zh" && lang != "en" {
		return fmt.Errorf("unsupported language '%s'", lang)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.language
	s.language = lang
	if err := s.save(); err != nil {
		s.language = prev
		return fmt.Errorf("persist language: %w", err)
	}
	return nil
}

// ParseLanguage maps a user-supplied token and its aliases to a canonical
// language code. ok is false for unrecognized tokens.
func ParseLanguage(token string) (lang string, ok bool) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "zh", "cn", "chinese", "中文":
		return "zh", true
	case "en", "english":
		return "en", true
	}
	return "", false
}

// LastSent returns when the symbol was last notified, if ever.
func (s *Settings) LastSent(symbol string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.lastSent[symbol]
	return t, ok
}

// SetLastSent records a successful delivery. Timestamps never move
// backwards; a stale value is ignored.
func (s *Settings) SetLastSent(symbol string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.lastSent[symbol]; ok && t.Before(existing) {
		return nil
	}
	prev, had := s.lastSent[symbol]
	s.lastSent[symbol] = t
	if err := s.save(); err != nil {
		if had {
			s.lastSent[symbol] = prev
		} else {
			delete(s.lastSent, symbol)
		}
		return fmt.Errorf("persist last_sent: %w", err)
	}
	return nil
}

// ResetLastSent clears a symbol's throttle state. The only path that may
// rewind a last-sent timestamp.
func (s *Settings) ResetLastSent(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.lastSent[symbol]
	if !had {
		return nil
	}
	delete(s.lastSent, symbol)
	if err := s.save(); err != nil {
		s.lastSent[symbol] = prev
		return fmt.Errorf("persist last_sent: %w", err)
	}
	return nil
}

// ShouldSend reports whether the throttle gate allows a notification for
// the symbol at time now. Symbols never notified are always eligible.
func (s *Settings) ShouldSend(symbol string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.lastSent[symbol]
	if !ok {
		return true
	}
	return now.Sub(last) >= time.Duration(s.interval)*time.Minute
}

func clampInterval(minutes int) int {
	if minutes < minIntervalMinutes {
		return minIntervalMinutes
	}
	if minutes > maxIntervalMinutes {
		return maxIntervalMinutes
	}
	return minutes
}
