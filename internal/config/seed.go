package config

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/Outreach/internal/domain"
)

// Seed — маршруты и friends для демо-режима на хранилище в памяти.
//
//	seed:
//	  routes:
//	    - name: AACo
//	      stops:
//	        - name: Library
//	        - name: Park
//	  friends:
//	    - name: Jay
type Seed struct {
	Routes  []SeedRoute  `yaml:"routes"`
	Friends []SeedFriend `yaml:"friends"`
}

// SeedRoute — маршрут; порядок остановок задаётся порядком в списке.
type SeedRoute struct {
	ID    string     `yaml:"id"`
	Name  string     `yaml:"name"`
	Stops []SeedStop `yaml:"stops"`
}

// SeedStop — остановка маршрута.
type SeedStop struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// SeedFriend — friend.
type SeedFriend struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Nickname string `yaml:"nickname"`
}

// SeedTarget — хранилище, принимающее справочные данные. Реализация — *memory.Store.
type SeedTarget interface {
	AddRoute(route domain.Route, stops ...domain.Location)
	AddFriend(f domain.Friend)
}

// Apply записывает справочные данные в target. Пустой id генерируется.
func (s *Seed) Apply(target SeedTarget) error {
	for i, r := range s.Routes {
		routeID, err := seedID(r.ID)
		if err != nil {
			return fmt.Errorf("seed.routes[%d].id: %w", i, err)
		}
		if r.Name == "" {
			return fmt.Errorf("seed.routes[%d].name is required", i)
		}

		stops := make([]domain.Location, 0, len(r.Stops))
		for j, st := range r.Stops {
			stopID, err := seedID(st.ID)
			if err != nil {
				return fmt.Errorf("seed.routes[%d].stops[%d].id: %w", i, j, err)
			}
			stops = append(stops, domain.Location{
				ID:         stopID,
				Name:       st.Name,
				Address:    st.Address,
				RouteOrder: j + 1,
			})
		}
		target.AddRoute(domain.Route{ID: routeID, Name: r.Name}, stops...)
	}

	for i, f := range s.Friends {
		id, err := seedID(f.ID)
		if err != nil {
			return fmt.Errorf("seed.friends[%d].id: %w", i, err)
		}
		if f.Name == "" {
			return fmt.Errorf("seed.friends[%d].name is required", i)
		}
		target.AddFriend(domain.Friend{ID: id, Name: f.Name, Nickname: f.Nickname})
	}
	return nil
}

func seedID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.New(), nil
	}
	return uuid.Parse(s)
}
