package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/diagnosis/campus-connect/internal/domain"
	"github.com/google/uuid"
)

// MemoryChatRepository is the in-process ChatRepository used with USER_STORE=memory.
type MemoryChatRepository struct {
	mu       sync.Mutex
	rooms    map[uuid.UUID]domain.Room
	codes    map[string]uuid.UUID
	members  map[uuid.UUID]map[string]bool
	messages map[uuid.UUID][]domain.Message
	now      func() time.Time
}

func NewMemoryChatRepository() *MemoryChatRepository {
	return &MemoryChatRepository{
		rooms:    make(map[uuid.UUID]domain.Room),
		codes:    make(map[string]uuid.UUID),
		members:  make(map[uuid.UUID]map[string]bool),
		messages: make(map[uuid.UUID][]domain.Message),
		now:      time.Now,
	}
}

func (r *MemoryChatRepository) ListRoomsForUser(_ context.Context, email string, filter domain.LabelFilter) ([]domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Room
	for id, members := range r.members {
		if !members[email] {
			continue
		}
		room := r.rooms[id]
		if filter.Match(room.Label) {
			out = append(out, room)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryChatRepository) CreateRoom(_ context.Context, room *domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.codes[room.InviteCode]; taken {
		return ErrDuplicateKey
	}
	room.CreatedAt = r.now()
	r.rooms[room.ID] = *room
	r.codes[room.InviteCode] = room.ID
	return nil
}

func (r *MemoryChatRepository) FindRoomByID(_ context.Context, id uuid.UUID) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok {
		return nil, nil
	}
	return &room, nil
}

func (r *MemoryChatRepository) FindRoomByInviteCode(_ context.Context, code string) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.codes[code]
	if !ok {
		return nil, nil
	}
	room := r.rooms[id]
	return &room, nil
}

func (r *MemoryChatRepository) AddMember(_ context.Context, roomID uuid.UUID, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.members[roomID] == nil {
		r.members[roomID] = make(map[string]bool)
	}
	r.members[roomID][email] = true
	return nil
}

func (r *MemoryChatRepository) IsMember(_ context.Context, roomID uuid.UUID, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members[roomID][email], nil
}

func (r *MemoryChatRepository) ListMessages(_ context.Context, roomID uuid.UUID, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := r.messages[roomID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (r *MemoryChatRepository) CreateMessage(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg.CreatedAt = r.now()
	r.messages[msg.RoomID] = append(r.messages[msg.RoomID], *msg)
	return nil
}
