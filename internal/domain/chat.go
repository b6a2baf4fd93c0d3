package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ChatLabel string

const (
	LabelTeamMatch  ChatLabel = "team-match"
	LabelMentorMesh ChatLabel = "mentor-mesh"
	LabelLabHub     ChatLabel = "lab-hub"
	LabelAdmin      ChatLabel = "admin"
)

var validLabels = map[ChatLabel]bool{
	LabelTeamMatch:  true,
	LabelMentorMesh: true,
	LabelLabHub:     true,
	LabelAdmin:      true,
}

func (l ChatLabel) IsValid() bool {
	return validLabels[l]
}

// LabelFilter selects rooms by label. All matches every room, None matches
// unlabeled rooms only, otherwise Label must equal.
type LabelFilter struct {
	All   bool
	None  bool
	Label ChatLabel
}

// ParseLabelFilter accepts "", "all", "none" or a label name.
func ParseLabelFilter(raw string) (LabelFilter, error) {
	switch v := strings.ToLower(strings.TrimSpace(raw)); v {
	case "", "all":
		return LabelFilter{All: true}, nil
	case "none":
		return LabelFilter{None: true}, nil
	default:
		l := ChatLabel(v)
		if !l.IsValid() {
			return LabelFilter{}, fmt.Errorf("invalid label %q", raw)
		}
		return LabelFilter{Label: l}, nil
	}
}

func (f LabelFilter) Match(label *ChatLabel) bool {
	switch {
	case f.All:
		return true
	case f.None:
		return label == nil
	default:
		return label != nil && *label == f.Label
	}
}

type MessageType string

const (
	MessageText MessageType = "text"
	MessageFile MessageType = "file"
)

type Room struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Label      *ChatLabel `json:"label"`
	InviteCode string     `json:"invite_code"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
}

// FileMeta describes an attachment already uploaded to external storage.
type FileMeta struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Size        int64  `json:"size"`
	StoragePath string `json:"path"`
}

type Message struct {
	ID          uuid.UUID   `json:"id"`
	RoomID      uuid.UUID   `json:"room_id"`
	UserEmail   string      `json:"user_email"`
	Content     *string     `json:"content"`
	MessageType MessageType `json:"message_type"`
	File        *FileMeta   `json:"file,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

type CreateRoomRequest struct {
	Name  string     `json:"name"`
	Label *ChatLabel `json:"label"`
}

type JoinRoomRequest struct {
	Code string `json:"code"`
}

type SendMessageRequest struct {
	Content string    `json:"content"`
	File    *FileMeta `json:"file,omitempty"`
}

const (
	maxRoomNameLength    = 80
	maxMessageLength     = 4000
	InviteCodeLength     = 7
	DefaultMessagesLimit = 50
	MaxMessagesLimit     = 200
)

func (r *CreateRoomRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	if r.Label != nil && *r.Label == "" {
		r.Label = nil
	}
}

func (r *CreateRoomRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("room name is required")
	}
	if len(r.Name) > maxRoomNameLength {
		return fmt.Errorf("room name must be at most %d characters", maxRoomNameLength)
	}
	if r.Label != nil && !r.Label.IsValid() {
		return fmt.Errorf("invalid label")
	}
	return nil
}

func (r *JoinRoomRequest) Normalize() {
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
}

func (r *JoinRoomRequest) Validate() error {
	if r.Code == "" {
		return fmt.Errorf("invite code is required")
	}
	return nil
}

func (r *SendMessageRequest) Normalize() {
	r.Content = strings.TrimSpace(r.Content)
	if r.File != nil {
		r.File.Name = strings.TrimSpace(r.File.Name)
		r.File.URL = strings.TrimSpace(r.File.URL)
	}
}

func (r *SendMessageRequest) Validate() error {
	if r.File != nil {
		if r.File.URL == "" || r.File.Name == "" {
			return fmt.Errorf("file url and name are required")
		}
		if r.File.Size < 0 {
			return fmt.Errorf("invalid file size")
		}
		return nil
	}
	if r.Content == "" {
		return fmt.Errorf("message content is required")
	}
	if len(r.Content) > maxMessageLength {
		return fmt.Errorf("message must be at most %d characters", maxMessageLength)
	}
	return nil
}

// ClampMessagesLimit applies the default and the upper bound to a requested page size.
func ClampMessagesLimit(limit int) int {
	if limit <= 0 {
		return DefaultMessagesLimit
	}
	if limit > MaxMessagesLimit {
		return MaxMessagesLimit
	}
	return limit
}
