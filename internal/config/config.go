package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"bugwatch/internal/transport"
)

// Values is the runtime-mutable part of the configuration. A copy is taken
// under the store lock on every read, so loops always see a consistent
// snapshot; changes apply on their next cycle.
type Values struct {
	BugsChatID        int64
	ReportsChatID     int64
	LeaderboardChatID int64

	UpdateInterval time.Duration

	ReportsEnabled bool
	ReportHour     int
	ReportMinute   int

	LeaderboardEnabled bool
	LeaderboardWeekday int // 0=Monday .. 6=Sunday
	LeaderboardHour    int
	LeaderboardMinute  int
	LeaderboardDays    int

	Mapping *Mapping
}

// Store holds runtime configuration behind a lock. All mutation goes through
// setters so every change is logged and echoed to the .env file; nothing here
// survives a restart except those echoes.
type Store struct {
	mu   sync.RWMutex
	v    Values
	last transport.MessageRef // last bugs message; zero value = unset

	envPath string
	log     zerolog.Logger
}

func NewStore(v Values, envPath string, log zerolog.Logger) *Store {
	if v.UpdateInterval <= 0 {
		v.UpdateInterval = DefaultUpdateInterval
	}
	if v.LeaderboardDays <= 0 {
		v.LeaderboardDays = DefaultLeaderboardDays
	}
	if v.Mapping == nil {
		v.Mapping = NewMapping(nil)
	}
	return &Store{v: v, envPath: envPath, log: log}
}

// Snapshot returns a copy of the current values.
func (s *Store) Snapshot() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v
}

func (s *Store) UpdateInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.UpdateInterval
}

func (s *Store) ReportsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.ReportsEnabled
}

func (s *Store) LeaderboardEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.LeaderboardEnabled
}

func (s *Store) BugsChat() (transport.ChatTarget, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transport.ChatTarget{ChatID: s.v.BugsChatID}, s.v.BugsChatID != 0
}

func (s *Store) ReportsChat() (transport.ChatTarget, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transport.ChatTarget{ChatID: s.v.ReportsChatID}, s.v.ReportsChatID != 0
}

func (s *Store) NameMapping() *Mapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.Mapping
}

// LastBugsMessage returns the stored reference of the most recent bugs
// message, if any.
func (s *Store) LastBugsMessage() (transport.MessageRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.last.MessageID != 0
}

func (s *Store) SetLastBugsMessage(ref transport.MessageRef) {
	s.mu.Lock()
	s.last = ref
	s.mu.Unlock()
}

func (s *Store) ClearLastBugsMessage() {
	s.mu.Lock()
	s.last = transport.MessageRef{}
	s.mu.Unlock()
}

// SetBugsChat changes the bugs chat and drops the stored message reference:
// a message id from a different chat must never be edited or deleted.
func (s *Store) SetBugsChat(id int64) error {
	if id == 0 {
		return fmt.Errorf("bugs chat id must not be zero")
	}
	s.mu.Lock()
	old := s.v.BugsChatID
	s.v.BugsChatID = id
	if old != id {
		s.last = transport.MessageRef{}
	}
	s.mu.Unlock()
	s.log.Info().Int64("old", old).Int64("new", id).Msg("bugs chat changed")
	return s.echo(envBugsChat, fmt.Sprint(id))
}

func (s *Store) SetReportsChat(id int64) error {
	if id == 0 {
		return fmt.Errorf("reports chat id must not be zero")
	}
	s.mu.Lock()
	old := s.v.ReportsChatID
	s.v.ReportsChatID = id
	s.mu.Unlock()
	s.log.Info().Int64("old", old).Int64("new", id).Msg("reports chat changed")
	return s.echo(envReportsChat, fmt.Sprint(id))
}

func (s *Store) SetLeaderboardChat(id int64) error {
	if id == 0 {
		return fmt.Errorf("leaderboard chat id must not be zero")
	}
	s.mu.Lock()
	old := s.v.LeaderboardChatID
	s.v.LeaderboardChatID = id
	s.mu.Unlock()
	s.log.Info().Int64("old", old).Int64("new", id).Msg("leaderboard chat changed")
	return s.echo(envLeaderboardChat, fmt.Sprint(id))
}

func (s *Store) SetUpdateInterval(d time.Duration) error {
	if d < time.Minute {
		return fmt.Errorf("update interval must be at least 1 minute, got %s", d)
	}
	s.mu.Lock()
	old := s.v.UpdateInterval
	s.v.UpdateInterval = d
	s.mu.Unlock()
	s.log.Info().Dur("old", old).Dur("new", d).Msg("update interval changed")
	return s.echo(envUpdateInterval, fmt.Sprint(int(d.Seconds())))
}

// Apply replaces the runtime values wholesale (used by the .env watcher).
// The bugs-message invariant is preserved: a bugs chat change clears the
// stored reference.
func (s *Store) Apply(v Values) {
	if v.Mapping == nil {
		v.Mapping = NewMapping(nil)
	}
	s.mu.Lock()
	if v.BugsChatID != s.v.BugsChatID {
		s.last = transport.MessageRef{}
	}
	s.v = v
	s.mu.Unlock()
}
