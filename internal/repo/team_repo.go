package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Outreach/internal/domain"
)

// TeamRepo — репозиторий состава команд.
type TeamRepo struct {
	db DBTX
}

// NewTeamRepo создаёт новый TeamRepo.
func NewTeamRepo(db DBTX) *TeamRepo {
	return &TeamRepo{db: db}
}

// Add добавляет участника. Повторное добавление не создаёт второй строки.
func (r *TeamRepo) Add(ctx context.Context, m *domain.TeamMember) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO team_members (run_id, user_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_id, user_id) DO NOTHING
		RETURNING seq
	`, m.RunID, m.UserID, m.JoinedAt).Scan(&m.Seq)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("insert team member: %w", err)
	}

	// Уже в команде — отдаём сохранённую запись
	err = r.db.QueryRow(ctx, `
		SELECT seq, joined_at FROM team_members WHERE run_id = $1 AND user_id = $2
	`, m.RunID, m.UserID).Scan(&m.Seq, &m.JoinedAt)
	if err != nil {
		return notFound(err, "team member")
	}
	return ErrAlreadyExists
}

// Remove удаляет участника.
func (r *TeamRepo) Remove(ctx context.Context, runID, userID uuid.UUID) error {
	result, err := r.db.Exec(ctx, `
		DELETE FROM team_members WHERE run_id = $1 AND user_id = $2
	`, runID, userID)
	if err != nil {
		return fmt.Errorf("delete team member: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List возвращает команду; первый элемент — лидер.
func (r *TeamRepo) List(ctx context.Context, runID uuid.UUID) ([]domain.TeamMember, error) {
	rows, err := r.db.Query(ctx, `
		SELECT run_id, user_id, joined_at, seq
		FROM team_members
		WHERE run_id = $1
		ORDER BY joined_at ASC, seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list team: %w", err)
	}
	return collect(rows, func(row pgx.Row) (*domain.TeamMember, error) {
		var m domain.TeamMember
		if err := row.Scan(&m.RunID, &m.UserID, &m.JoinedAt, &m.Seq); err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		return &m, nil
	})
}
