package service

import (
	"context"
	"testing"

	"github.com/diagnosis/campus-connect/internal/domain"
	"github.com/diagnosis/campus-connect/internal/repository"
	"github.com/diagnosis/campus-connect/pkg/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChat() (*chatService, *recordingBus, *repository.MemoryProfileRepository) {
	bus := &recordingBus{}
	profiles := repository.NewMemoryProfileRepository()
	svc := NewChatService(repository.NewMemoryChatRepository(), profiles, bus).(*chatService)
	return svc, bus, profiles
}

func TestGenerateInviteCode(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateInviteCode()
		require.NoError(t, err)
		require.Len(t, code, domain.InviteCodeLength)
		for _, r := range code {
			assert.Contains(t, inviteAlphabet, string(r))
		}
	}
}

func TestChatService_CreateJoinAndMessage(t *testing.T) {
	ctx := context.Background()
	svc, bus, profiles := newTestChat()

	label := domain.LabelTeamMatch
	room, err := svc.CreateRoom(ctx, "a@iitk.ac.in", &domain.CreateRoomRequest{Name: "  Hackathon  ", Label: &label})
	require.NoError(t, err)
	assert.Equal(t, "Hackathon", room.Name)
	assert.Len(t, room.InviteCode, domain.InviteCodeLength)

	p, err := profiles.FindByEmail(ctx, "a@iitk.ac.in")
	require.NoError(t, err)
	assert.NotNil(t, p)

	_, err = svc.ListMessages(ctx, "b@iitk.ac.in", room.ID, 0)
	assert.ErrorIs(t, err, ErrNotRoomMember)

	joined, err := svc.JoinRoom(ctx, "b@iitk.ac.in", &domain.JoinRoomRequest{Code: " " + toLower(room.InviteCode) + " "})
	require.NoError(t, err)
	assert.Equal(t, room.ID, joined.ID)

	msg, err := svc.SendMessage(ctx, "b@iitk.ac.in", room.ID, &domain.SendMessageRequest{Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, domain.MessageText, msg.MessageType)

	file, err := svc.SendMessage(ctx, "a@iitk.ac.in", room.ID, &domain.SendMessageRequest{
		File: &domain.FileMeta{URL: "https://cdn/x.pdf", Name: "x.pdf", Type: "application/pdf", Size: 10, StoragePath: "r/x.pdf"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MessageFile, file.MessageType)
	assert.Equal(t, "https://cdn/x.pdf", *file.Content)

	msgs, err := svc.ListMessages(ctx, "a@iitk.ac.in", room.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", *msgs[0].Content)

	rooms, err := svc.ListRooms(ctx, "b@iitk.ac.in", "team-match")
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
	rooms, err = svc.ListRooms(ctx, "b@iitk.ac.in", "none")
	require.NoError(t, err)
	assert.Empty(t, rooms)

	assert.Equal(t, []string{events.RoomCreated, events.MemberJoined, events.MessageCreated, events.MessageCreated}, bus.published())
}

func TestChatService_Errors(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestChat()

	_, err := svc.JoinRoom(ctx, "a@iitk.ac.in", &domain.JoinRoomRequest{Code: "NOPE123"})
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = svc.ListMessages(ctx, "a@iitk.ac.in", uuid.New(), 10)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = svc.ListRooms(ctx, "a@iitk.ac.in", "bogus")
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)

	bad := domain.ChatLabel("bogus")
	_, err = svc.CreateRoom(ctx, "a@iitk.ac.in", &domain.CreateRoomRequest{Name: "x", Label: &bad})
	assert.ErrorAs(t, err, &vErr)
}

func TestChatService_InviteCodeCollisionRetries(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestChat()

	codes := []string{"AAAAAAA", "AAAAAAA", "BBBBBBB"}
	svc.inviteCode = func() (string, error) {
		c := codes[0]
		if len(codes) > 1 {
			codes = codes[1:]
		}
		return c, nil
	}

	first, err := svc.CreateRoom(ctx, "a@iitk.ac.in", &domain.CreateRoomRequest{Name: "one"})
	require.NoError(t, err)
	assert.Equal(t, "AAAAAAA", first.InviteCode)

	second, err := svc.CreateRoom(ctx, "a@iitk.ac.in", &domain.CreateRoomRequest{Name: "two"})
	require.NoError(t, err)
	assert.Equal(t, "BBBBBBB", second.InviteCode)
}

func TestChatService_InviteCodeExhausted(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestChat()
	svc.inviteCode = func() (string, error) { return "SAMECOD", nil }

	_, err := svc.CreateRoom(ctx, "a@iitk.ac.in", &domain.CreateRoomRequest{Name: "one"})
	require.NoError(t, err)

	_, err = svc.CreateRoom(ctx, "a@iitk.ac.in", &domain.CreateRoomRequest{Name: "two"})
	assert.ErrorIs(t, err, ErrInviteCodeExhausted)
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
