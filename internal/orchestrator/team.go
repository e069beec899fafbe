package orchestrator

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shaiso/Outreach/internal/domain"
	"github.com/shaiso/Outreach/internal/engine"
	"github.com/shaiso/Outreach/internal/mq"
	"github.com/shaiso/Outreach/internal/repo"
)

// AddMember добавляет пользователя в команду выезда.
// Повторное добавление возвращает существующую запись, joined_at не меняется.
func (o *Orchestrator) AddMember(ctx context.Context, runID, userID uuid.UUID) (*domain.TeamMember, error) {
	if userID == uuid.Nil {
		return nil, o.finish("add_member", ErrUserRequired)
	}

	m := &domain.TeamMember{RunID: runID, UserID: userID, JoinedAt: o.now()}
	joined := false
	err := o.store.InTx(ctx, func(r repo.Repos) error {
		if _, err := loadRun(ctx, r, runID, false); err != nil {
			return err
		}

		err := r.Team.Add(ctx, m)
		if errors.Is(err, repo.ErrAlreadyExists) {
			return nil
		}
		if err != nil {
			return err
		}
		joined = true
		return nil
	})
	if err := o.finish("add_member", err, "run_id", runID, "user_id", userID); err != nil {
		return nil, err
	}

	if joined {
		o.publish(ctx, mq.Event{Key: mq.RoutingKeyTeamJoined, RunID: runID, UserID: userID})
	}
	return m, nil
}

// RemoveMember удаляет пользователя из команды. Если это был лидер,
// лидером становится следующий по joined_at.
func (o *Orchestrator) RemoveMember(ctx context.Context, runID, userID uuid.UUID) error {
	err := o.store.InTx(ctx, func(r repo.Repos) error {
		if _, err := loadRun(ctx, r, runID, false); err != nil {
			return err
		}
		return notFound(r.Team.Remove(ctx, runID, userID), "team member", userID)
	})
	if err := o.finish("remove_member", err, "run_id", runID, "user_id", userID); err != nil {
		return err
	}

	o.publish(ctx, mq.Event{Key: mq.RoutingKeyTeamLeft, RunID: runID, UserID: userID})
	return nil
}

// ListTeam возвращает команду по joined_at; первый элемент — лидер.
func (o *Orchestrator) ListTeam(ctx context.Context, runID uuid.UUID) ([]domain.TeamMember, error) {
	r := o.store.Repos()

	list := func() ([]domain.TeamMember, error) {
		if _, err := loadRun(ctx, r, runID, false); err != nil {
			return nil, err
		}
		members, err := r.Team.List(ctx, runID)
		if err != nil {
			return nil, err
		}
		return engine.OrderMembers(members), nil
	}

	members, err := list()
	if err := o.finish("list_team", err, "run_id", runID); err != nil {
		return nil, err
	}
	return members, nil
}

// Lead возвращает лидера команды — участника с самым ранним joined_at.
func (o *Orchestrator) Lead(ctx context.Context, runID uuid.UUID) (*domain.TeamMember, error) {
	members, err := o.ListTeam(ctx, runID)
	if err != nil {
		return nil, err
	}

	lead, ok := engine.Lead(members)
	if !ok {
		return nil, domain.NewNotFoundError("team lead", runID)
	}
	return &lead, nil
}
