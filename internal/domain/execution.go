package domain

import (
	"time"

	"github.com/google/uuid"
)

// TeamMember — участник команды выезда.
//
// Флага "лидер" нет: лидер — участник с самым ранним JoinedAt.
// Seq разрешает совпадения JoinedAt по порядку вставки.
type TeamMember struct {
	RunID    uuid.UUID `json:"run_id"`
	UserID   uuid.UUID `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
	Seq      int64     `json:"-"`
}

// RunStopDelivery — что команда сделала на остановке.
// Одна строка на пару (run, location), повторный визит перезаписывает.
type RunStopDelivery struct {
	ID             uuid.UUID `json:"id"`
	RunID          uuid.UUID `json:"run_id"`
	LocationID     uuid.UUID `json:"location_id"`
	MealsDelivered int       `json:"meals_delivered"`
	Notes          string    `json:"notes,omitempty"`
	RecordedBy     uuid.UUID `json:"recorded_by"`
	VisitedAt      time.Time `json:"visited_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FriendSighting — запись "friend замечен на остановке". Только добавление.
type FriendSighting struct {
	ID              uuid.UUID  `json:"id"`
	FriendID        uuid.UUID  `json:"friend_id"`
	LocationID      uuid.UUID  `json:"location_id"`
	RunID           *uuid.UUID `json:"run_id,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	RecordedBy      uuid.UUID  `json:"recorded_by"`
	ClientRequestID string     `json:"client_request_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ExpectedFriend — friend, которого ожидают на остановке
// (по последнему его появлению именно там).
type ExpectedFriend struct {
	FriendID   uuid.UUID `json:"friend_id"`
	FriendName string    `json:"friend_name"`
	LocationID uuid.UUID `json:"location_id"`
	LastSeenAt time.Time `json:"last_seen_at"`
	Notes      string    `json:"notes,omitempty"`
}
