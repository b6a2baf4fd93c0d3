package repository

import (
	"context"
	"errors"
	"time"

	"github.com/diagnosis/campus-connect/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChatRepository interface {
	// ListRoomsForUser returns the rooms email belongs to, newest first.
	ListRoomsForUser(ctx context.Context, email string, filter domain.LabelFilter) ([]domain.Room, error)
	// CreateRoom inserts room. An invite code collision returns ErrDuplicateKey.
	CreateRoom(ctx context.Context, room *domain.Room) error
	FindRoomByID(ctx context.Context, id uuid.UUID) (*domain.Room, error)
	FindRoomByInviteCode(ctx context.Context, code string) (*domain.Room, error)
	AddMember(ctx context.Context, roomID uuid.UUID, email string) error
	IsMember(ctx context.Context, roomID uuid.UUID, email string) (bool, error)
	// ListMessages returns the latest limit messages of a room, oldest first.
	ListMessages(ctx context.Context, roomID uuid.UUID, limit int) ([]domain.Message, error)
	CreateMessage(ctx context.Context, msg *domain.Message) error
}

type chatRepository struct {
	pool *pgxpool.Pool
}

func NewChatRepository(pool *pgxpool.Pool) ChatRepository {
	return &chatRepository{pool: pool}
}

const roomCols = `r.id, r.name, r.label, r.invite_code, r.created_by, r.created_at`

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var (
		room  domain.Room
		label *string
	)
	if err := row.Scan(&room.ID, &room.Name, &label, &room.InviteCode, &room.CreatedBy, &room.CreatedAt); err != nil {
		return nil, err
	}
	if label != nil {
		l := domain.ChatLabel(*label)
		room.Label = &l
	}
	return &room, nil
}

func labelArg(l *domain.ChatLabel) *string {
	if l == nil {
		return nil
	}
	s := string(*l)
	return &s
}

func (r *chatRepository) ListRoomsForUser(ctx context.Context, email string, filter domain.LabelFilter) ([]domain.Room, error) {
	q := `SELECT ` + roomCols + `
		FROM rooms r
		JOIN room_members m ON m.room_id = r.id
		WHERE m.user_email = $1`
	args := []any{email}
	switch {
	case filter.All:
	case filter.None:
		q += ` AND r.label IS NULL`
	default:
		q += ` AND r.label = $2`
		args = append(args, string(filter.Label))
	}
	q += ` ORDER BY r.created_at DESC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *room)
	}
	return out, rows.Err()
}

func (r *chatRepository) CreateRoom(ctx context.Context, room *domain.Room) error {
	const q = `
		INSERT INTO rooms (id, name, label, invite_code, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := r.pool.QueryRow(ctx, q, room.ID, room.Name, labelArg(room.Label), room.InviteCode, room.CreatedBy).Scan(&room.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	return err
}

func (r *chatRepository) FindRoomByID(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	const q = `SELECT ` + roomCols + ` FROM rooms r WHERE r.id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	room, err := scanRoom(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return room, err
}

func (r *chatRepository) FindRoomByInviteCode(ctx context.Context, code string) (*domain.Room, error) {
	const q = `SELECT ` + roomCols + ` FROM rooms r WHERE r.invite_code = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	room, err := scanRoom(r.pool.QueryRow(ctx, q, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return room, err
}

func (r *chatRepository) AddMember(ctx context.Context, roomID uuid.UUID, email string) error {
	const q = `
		INSERT INTO room_members (room_id, user_email)
		VALUES ($1, $2)
		ON CONFLICT (room_id, user_email) DO NOTHING`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, roomID, email)
	return err
}

func (r *chatRepository) IsMember(ctx context.Context, roomID uuid.UUID, email string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM room_members WHERE room_id = $1 AND user_email = $2)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var ok bool
	err := r.pool.QueryRow(ctx, q, roomID, email).Scan(&ok)
	return ok, err
}

func (r *chatRepository) ListMessages(ctx context.Context, roomID uuid.UUID, limit int) ([]domain.Message, error) {
	const q = `
		SELECT id, room_id, user_email, content, message_type,
			file_url, file_name, file_type, file_size, storage_path, created_at
		FROM (
			SELECT * FROM messages WHERE room_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) latest
		ORDER BY created_at ASC`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var (
			m                                 domain.Message
			msgType                           string
			fileURL, fileName, fileType, path *string
			fileSize                          *int64
		)
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserEmail, &m.Content, &msgType,
			&fileURL, &fileName, &fileType, &fileSize, &path, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.MessageType = domain.MessageType(msgType)
		if fileURL != nil {
			m.File = &domain.FileMeta{URL: *fileURL}
			if fileName != nil {
				m.File.Name = *fileName
			}
			if fileType != nil {
				m.File.Type = *fileType
			}
			if fileSize != nil {
				m.File.Size = *fileSize
			}
			if path != nil {
				m.File.StoragePath = *path
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *chatRepository) CreateMessage(ctx context.Context, msg *domain.Message) error {
	const q = `
		INSERT INTO messages (id, room_id, user_email, content, message_type,
			file_url, file_name, file_type, file_size, storage_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var fileURL, fileName, fileType, path *string
	var fileSize *int64
	if f := msg.File; f != nil {
		fileURL, fileName, fileType, path = &f.URL, &f.Name, &f.Type, &f.StoragePath
		fileSize = &f.Size
	}

	return r.pool.QueryRow(ctx, q, msg.ID, msg.RoomID, msg.UserEmail, msg.Content, string(msg.MessageType),
		fileURL, fileName, fileType, fileSize, path).Scan(&msg.CreatedAt)
}
