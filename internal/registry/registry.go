// Package registry coordinates the process-wide shared chat state: which
// rooms exist, who is in them, and which nicknames are reserved. It is the
// only state in the system touched by more than one goroutine, so every
// operation runs under a single mutex; partial visibility of a join/leave
// pair is the bug class this package exists to prevent.
package registry

import (
	"errors"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// ErrNicknameTaken is returned when another live member holds the requested
// nickname.
var ErrNicknameTaken = errors.New("nickname already in use")

// Member is the registry's view of a session. Enqueue must not block: it
// reports false when the member's outgoing buffer is full or its transport is
// gone, and the registry treats such members as disconnected.
type Member interface {
	ID() string
	Enqueue(line string) bool
}

// RoomInfo is one row of a room listing.
type RoomInfo struct {
	Name    string
	Members int
}

// Registry maps room names to member sets and nicknames to members. All
// methods are safe for concurrent use; none of them performs transport I/O
// while holding the lock beyond a non-blocking enqueue.
type Registry struct {
	mu       sync.Mutex
	rooms    map[string]map[string]Member
	nicks    map[string]Member
	nickByID map[string]string
	roomByID map[string]string
	defaults map[string]struct{}
}

// New creates a Registry with the given permanent default rooms already
// present. Default rooms survive their last member leaving; any other room is
// reclaimed when it empties.
func New(defaultRooms []string) *Registry {
	r := &Registry{
		rooms:    make(map[string]map[string]Member),
		nicks:    make(map[string]Member),
		nickByID: make(map[string]string),
		roomByID: make(map[string]string),
		defaults: make(map[string]struct{}, len(defaultRooms)),
	}
	for _, name := range defaultRooms {
		r.defaults[name] = struct{}{}
		r.rooms[name] = make(map[string]Member)
	}
	return r
}

// ReserveNickname associates name with the member, failing if another live
// member holds it. On success any prior name held by the same member is
// released in the same critical section.
func (r *Registry) ReserveNickname(name string, m Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if holder, ok := r.nicks[name]; ok && holder.ID() != m.ID() {
		return ErrNicknameTaken
	}
	if prior, ok := r.nickByID[m.ID()]; ok {
		delete(r.nicks, prior)
	}
	r.nicks[name] = m
	r.nickByID[m.ID()] = name
	return nil
}

// Join adds the member to the named room, creating it if absent. Any previous
// membership is removed in the same critical section, so no concurrent reader
// can observe the member in two rooms or in none mid-move. It returns the
// nicknames of the room's members as of the join, the joiner included.
func (r *Registry) Join(room string, m Member) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeFromRoom(m)

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]Member)
		r.rooms[room] = members
	}
	members[m.ID()] = m
	r.roomByID[m.ID()] = room

	return r.memberNicknames(members)
}

// Leave removes the member from its current room. It reports the room left
// and false if the member was not in any room.
func (r *Registry) Leave(m Member) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeFromRoom(m)
}

// Release removes every trace of the member: room membership and nickname
// reservation. It is idempotent and returns the nickname and room the member
// held, if any, so the caller can announce the departure without touching
// session state from a foreign goroutine.
func (r *Registry) Release(m Member) (nick, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, _ = r.removeFromRoom(m)
	if n, ok := r.nickByID[m.ID()]; ok {
		nick = n
		delete(r.nicks, n)
		delete(r.nickByID, m.ID())
	}
	return nick, room
}

// RoomOf reports the member's current room.
func (r *Registry) RoomOf(m Member) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.roomByID[m.ID()]
	return room, ok
}

// FindByNickname resolves a nickname to its live member.
func (r *Registry) FindByNickname(name string) (Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.nicks[name]
	return m, ok
}

// ListRooms returns every room with its member count, ordered by name.
func (r *Registry) ListRooms() []RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := lo.MapToSlice(r.rooms, func(name string, members map[string]Member) RoomInfo {
		return RoomInfo{Name: name, Members: len(members)}
	})
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// ListMembers returns the nicknames of a room's members, sorted, and whether
// the room exists.
func (r *Registry) ListMembers(room string) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		return nil, false
	}
	return r.memberNicknames(members), true
}

// Broadcast delivers line to every member of the room except exclude. The
// member set is snapshotted under the lock; enqueueing happens against the
// snapshot, so a member leaving mid-broadcast may still receive the line
// (best-effort delivery, not transactional). Members whose enqueue fails are
// returned for teardown; one dead member never blocks delivery to the rest.
func (r *Registry) Broadcast(room, line string, exclude Member) []Member {
	r.mu.Lock()
	members, ok := r.rooms[room]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	snapshot := lo.Values(members)
	r.mu.Unlock()

	var failed []Member
	for _, m := range snapshot {
		if exclude != nil && m.ID() == exclude.ID() {
			continue
		}
		if !m.Enqueue(line) {
			failed = append(failed, m)
		}
	}
	return failed
}

// removeFromRoom detaches the member from its room, reclaiming the room if it
// is empty and not a default. Caller holds the lock.
func (r *Registry) removeFromRoom(m Member) (string, bool) {
	room, ok := r.roomByID[m.ID()]
	if !ok {
		return "", false
	}
	delete(r.roomByID, m.ID())
	members, exists := r.rooms[room]
	if !exists {
		return room, true
	}
	delete(members, m.ID())
	if len(members) == 0 {
		if _, permanent := r.defaults[room]; !permanent {
			delete(r.rooms, room)
		}
	}
	return room, true
}

// memberNicknames resolves a member set to sorted nicknames. Caller holds the
// lock. Members that never reserved a nickname cannot be in a room, so every
// lookup hits.
func (r *Registry) memberNicknames(members map[string]Member) []string {
	nicks := lo.MapToSlice(members, func(id string, _ Member) string {
		return r.nickByID[id]
	})
	sort.Strings(nicks)
	return nicks
}
