package memory

import (
	"github.com/google/uuid"
	"github.com/shaiso/Outreach/internal/domain"
)

// Справочные данные (маршруты, остановки, friends) ведутся вне движка,
// поэтому у repo.Store нет для них методов записи. Эти функции
// наполняют хранилище в тестах и в демо-режиме.

// AddRoute добавляет маршрут вместе с остановками.
func (s *Store) AddRoute(route domain.Route, stops ...domain.Location) {
	s.tx.Lock()
	defer s.tx.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.routes[route.ID] = route
	for _, loc := range stops {
		loc.RouteID = route.ID
		s.st.locations[loc.ID] = loc
	}
}

// AddFriend добавляет friend.
func (s *Store) AddFriend(f domain.Friend) {
	s.tx.Lock()
	defer s.tx.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.friends[f.ID] = f
}

// Friend возвращает friend по ID.
func (s *Store) Friend(id uuid.UUID) (domain.Friend, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.st.friends[id]
	return f, ok
}
