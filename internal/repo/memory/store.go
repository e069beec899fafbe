// Package memory — хранилище в памяти процесса.
//
// Реализует repo.Store с той же семантикой, что и PostgreSQL: транзакция
// работает над копией состояния и публикует её только при успехе.
// Используется в тестах и в демо-режиме API (STORE=memory).
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shaiso/Outreach/internal/domain"
	"github.com/shaiso/Outreach/internal/repo"
)

type deliveryKey struct {
	run      uuid.UUID
	location uuid.UUID
}

// state — всё содержимое хранилища.
type state struct {
	routes     map[uuid.UUID]domain.Route
	locations  map[uuid.UUID]domain.Location
	friends    map[uuid.UUID]domain.Friend
	runs       map[uuid.UUID]domain.Run
	requests   map[uuid.UUID]domain.Request
	history    []domain.StatusHistory
	team       []domain.TeamMember
	deliveries map[deliveryKey]domain.RunStopDelivery
	sightings  []domain.FriendSighting
	seq        int64
}

func newState() *state {
	return &state{
		routes:     make(map[uuid.UUID]domain.Route),
		locations:  make(map[uuid.UUID]domain.Location),
		friends:    make(map[uuid.UUID]domain.Friend),
		runs:       make(map[uuid.UUID]domain.Run),
		requests:   make(map[uuid.UUID]domain.Request),
		deliveries: make(map[deliveryKey]domain.RunStopDelivery),
	}
}

func (s *state) clone() *state {
	c := &state{
		routes:     make(map[uuid.UUID]domain.Route, len(s.routes)),
		locations:  make(map[uuid.UUID]domain.Location, len(s.locations)),
		friends:    make(map[uuid.UUID]domain.Friend, len(s.friends)),
		runs:       make(map[uuid.UUID]domain.Run, len(s.runs)),
		requests:   make(map[uuid.UUID]domain.Request, len(s.requests)),
		history:    append([]domain.StatusHistory(nil), s.history...),
		team:       append([]domain.TeamMember(nil), s.team...),
		deliveries: make(map[deliveryKey]domain.RunStopDelivery, len(s.deliveries)),
		sightings:  append([]domain.FriendSighting(nil), s.sightings...),
		seq:        s.seq,
	}
	for k, v := range s.routes {
		c.routes[k] = v
	}
	for k, v := range s.locations {
		c.locations[k] = v
	}
	for k, v := range s.friends {
		c.friends[k] = v
	}
	for k, v := range s.runs {
		c.runs[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.deliveries {
		c.deliveries[k] = v
	}
	return c
}

func (s *state) nextSeq() int64 {
	s.seq++
	return s.seq
}

// Store — repo.Store в памяти.
//
// Писатели сериализуются мьютексом tx, поэтому FOR UPDATE здесь не нужен:
// пока fn выполняется, других писателей нет. Читатели не ждут открытую
// транзакцию и видят последнее закоммиченное состояние, как в Postgres.
type Store struct {
	tx sync.Mutex
	mu sync.Mutex
	st *state
}

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{st: newState()}
}

// Repos возвращает репозитории в режиме автокоммита.
//
// Запись через них нельзя вызывать изнутри InTx: мьютекс не реентерабельный.
func (s *Store) Repos() repo.Repos {
	return newRepos(&view{store: s})
}

// InTx выполняет fn над копией состояния. Ошибка отбрасывает копию.
func (s *Store) InTx(ctx context.Context, fn func(r repo.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.tx.Lock()
	defer s.tx.Unlock()

	s.mu.Lock()
	work := s.st.clone()
	s.mu.Unlock()

	if err := fn(newRepos(&view{tx: work})); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = work
	s.mu.Unlock()
	return nil
}

// TryAdvisoryLock всегда успешен: в одном процессе лидер один.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	return true, nil
}

// AdvisoryUnlock ничего не делает.
func (s *Store) AdvisoryUnlock(ctx context.Context, key int64) error {
	return nil
}

// view — доступ к состоянию: либо к копии транзакции, либо к общему под мьютексом.
type view struct {
	store *Store
	tx    *state
}

func (v *view) read(fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.st)
}

// write — как read, но вне транзакции ещё и ждёт открытую транзакцию,
// чтобы её коммит не затёр запись.
func (v *view) write(fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.tx.Lock()
	defer v.store.tx.Unlock()
	return v.read(fn)
}

func newRepos(v *view) repo.Repos {
	return repo.Repos{
		Runs:       &runRepo{v: v},
		Routes:     &routeRepo{v: v},
		Requests:   &requestRepo{v: v},
		Team:       &teamRepo{v: v},
		Deliveries: &deliveryRepo{v: v},
		Sightings:  &sightingRepo{v: v},
	}
}
