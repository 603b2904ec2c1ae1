package discovery

import (
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Game is one advertised joinable game as observed by this process.
type Game struct {
	DisplayName     string
	HostDisplayName string
	IsPublic        bool
	JoinCode        string
	HostAddress     string
	Port            int
	PlayerCount     int
	MaxPlayers      int
	SessionID       string
	ObservedAt      time.Time
}

// Address returns the host:port a client dials to join.
func (g Game) Address() string {
	return net.JoinHostPort(g.HostAddress, strconv.Itoa(g.Port))
}

// GameFromPresence snapshots p as seen from host at now.
func GameFromPresence(p Presence, host string, now time.Time) Game {
	return Game{
		DisplayName:     p.CaseTitle,
		HostDisplayName: p.HostDisplayName,
		IsPublic:        p.IsPublic,
		JoinCode:        p.JoinCode,
		HostAddress:     host,
		Port:            int(p.TCPPort),
		PlayerCount:     p.PlayerCount,
		MaxPlayers:      p.MaxPlayers,
		SessionID:       p.SessionID,
		ObservedAt:      now,
	}
}

// Registry stores advertised games by session id. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	items map[string]Game
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Game)}
}

// Upsert replaces the entry for g.SessionID wholesale. Any other session advertising
// the same join code is evicted so codes stay unique among current games.
func (r *Registry) Upsert(g Game) {
	key := strings.TrimSpace(g.SessionID)
	if key == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.items {
		if id != key && strings.EqualFold(existing.JoinCode, g.JoinCode) {
			delete(r.items, id)
		}
	}
	r.items[key] = g
}

func (r *Registry) Get(sessionID string) (Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.items[strings.TrimSpace(sessionID)]
	return g, ok
}

// FindByCode is a case-insensitive join code lookup over current entries.
func (r *Registry) FindByCode(code string) (Game, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Game{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, g := range r.items {
		if strings.EqualFold(g.JoinCode, code) {
			return g, true
		}
	}
	return Game{}, false
}

// List returns every entry ordered by display name then session id.
func (r *Registry) List() []Game {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Game, 0, len(r.items))
	for _, g := range r.items {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out
}

// Public returns List filtered to games advertised as public.
func (r *Registry) Public() []Game {
	all := r.List()
	out := all[:0]
	for _, g := range all {
		if g.IsPublic {
			out = append(out, g)
		}
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = make(map[string]Game)
}
