package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/diagnosis/campus-connect/internal/domain"
	"github.com/diagnosis/campus-connect/internal/repository"
	"github.com/diagnosis/campus-connect/pkg/events"
	"github.com/diagnosis/campus-connect/pkg/logger"
	"github.com/google/uuid"
)

// inviteAlphabet leaves out characters that are easy to misread (0/O, 1/I/L).
const inviteAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const maxInviteAttempts = 5

var ErrInviteCodeExhausted = errors.New("could not generate a unique invite code")

type ChatService interface {
	ListRooms(ctx context.Context, email, label string) ([]domain.Room, error)
	CreateRoom(ctx context.Context, email string, req *domain.CreateRoomRequest) (*domain.Room, error)
	JoinRoom(ctx context.Context, email string, req *domain.JoinRoomRequest) (*domain.Room, error)
	ListMessages(ctx context.Context, email string, roomID uuid.UUID, limit int) ([]domain.Message, error)
	SendMessage(ctx context.Context, email string, roomID uuid.UUID, req *domain.SendMessageRequest) (*domain.Message, error)
}

type chatService struct {
	chat       repository.ChatRepository
	profiles   repository.ProfileRepository
	eventBus   events.Publisher
	inviteCode func() (string, error)
}

func NewChatService(chat repository.ChatRepository, profiles repository.ProfileRepository, eventBus events.Publisher) ChatService {
	return &chatService{
		chat:       chat,
		profiles:   profiles,
		eventBus:   eventBus,
		inviteCode: generateInviteCode,
	}
}

func generateInviteCode() (string, error) {
	size := big.NewInt(int64(len(inviteAlphabet)))
	out := make([]byte, domain.InviteCodeLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		out[i] = inviteAlphabet[n.Int64()]
	}
	return string(out), nil
}

// touch keeps the member's profile row and last-seen time current.
func (s *chatService) touch(ctx context.Context, email string) {
	if err := s.profiles.Touch(ctx, email); err != nil {
		logger.WarnContext(ctx, "Failed to record profile activity", "error", err, "email", email)
	}
}

func (s *chatService) ListRooms(ctx context.Context, email, label string) ([]domain.Room, error) {
	filter, err := domain.ParseLabelFilter(label)
	if err != nil {
		return nil, invalid(err)
	}

	rooms, err := s.chat.ListRoomsForUser(ctx, email, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	if rooms == nil {
		rooms = []domain.Room{}
	}
	return rooms, nil
}

func (s *chatService) CreateRoom(ctx context.Context, email string, req *domain.CreateRoomRequest) (*domain.Room, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}
	s.touch(ctx, email)

	room := &domain.Room{
		ID:        uuid.New(),
		Name:      req.Name,
		Label:     req.Label,
		CreatedBy: email,
	}

	created := false
	for attempt := 0; attempt < maxInviteAttempts && !created; attempt++ {
		code, err := s.inviteCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate invite code: %w", err)
		}
		room.InviteCode = code

		err = s.chat.CreateRoom(ctx, room)
		switch {
		case err == nil:
			created = true
		case errors.Is(err, repository.ErrDuplicateKey):
			logger.DebugContext(ctx, "Invite code collision, retrying", "attempt", attempt+1)
		default:
			return nil, fmt.Errorf("failed to create room: %w", err)
		}
	}
	if !created {
		return nil, ErrInviteCodeExhausted
	}

	if err := s.chat.AddMember(ctx, room.ID, email); err != nil {
		return nil, fmt.Errorf("failed to add room creator: %w", err)
	}

	logger.InfoContext(ctx, "Room created", "room_id", room.ID, "created_by", email)
	events.Emit(ctx, s.eventBus, events.RoomCreated, events.RoomCreatedEvent{
		RoomID:    room.ID.String(),
		Name:      room.Name,
		Label:     labelString(room.Label),
		CreatedBy: email,
	})
	return room, nil
}

func (s *chatService) JoinRoom(ctx context.Context, email string, req *domain.JoinRoomRequest) (*domain.Room, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}
	s.touch(ctx, email)

	room, err := s.chat.FindRoomByInviteCode(ctx, req.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to find room: %w", err)
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}

	if err := s.chat.AddMember(ctx, room.ID, email); err != nil {
		return nil, fmt.Errorf("failed to join room: %w", err)
	}

	events.Emit(ctx, s.eventBus, events.MemberJoined, events.MemberJoinedEvent{
		RoomID: room.ID.String(),
		Email:  email,
	})
	return room, nil
}

// requireMember resolves the room and checks that email belongs to it.
func (s *chatService) requireMember(ctx context.Context, email string, roomID uuid.UUID) error {
	room, err := s.chat.FindRoomByID(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to find room: %w", err)
	}
	if room == nil {
		return ErrRoomNotFound
	}

	ok, err := s.chat.IsMember(ctx, roomID, email)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !ok {
		return ErrNotRoomMember
	}
	return nil
}

func (s *chatService) ListMessages(ctx context.Context, email string, roomID uuid.UUID, limit int) ([]domain.Message, error) {
	if err := s.requireMember(ctx, email, roomID); err != nil {
		return nil, err
	}

	msgs, err := s.chat.ListMessages(ctx, roomID, domain.ClampMessagesLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}

func (s *chatService) SendMessage(ctx context.Context, email string, roomID uuid.UUID, req *domain.SendMessageRequest) (*domain.Message, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.requireMember(ctx, email, roomID); err != nil {
		return nil, err
	}
	s.touch(ctx, email)

	msg := &domain.Message{
		ID:          uuid.New(),
		RoomID:      roomID,
		UserEmail:   email,
		MessageType: domain.MessageText,
	}
	if req.File != nil {
		// file messages carry the public URL as their content
		url := req.File.URL
		msg.MessageType = domain.MessageFile
		msg.Content = &url
		msg.File = req.File
	} else {
		content := req.Content
		msg.Content = &content
	}

	if err := s.chat.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	evt := events.MessageCreatedEvent{
		MessageID:   msg.ID.String(),
		RoomID:      roomID.String(),
		UserEmail:   email,
		MessageType: string(msg.MessageType),
		Content:     msg.Content,
		CreatedAt:   msg.CreatedAt.UnixMilli(),
	}
	if msg.File != nil {
		evt.FileURL = &msg.File.URL
	}
	events.Emit(ctx, s.eventBus, events.MessageCreated, evt)
	return msg, nil
}

func labelString(l *domain.ChatLabel) *string {
	if l == nil {
		return nil
	}
	s := string(*l)
	return &s
}
