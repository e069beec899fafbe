package domain

import (
	"time"

	"github.com/google/uuid"
)

// Route — маршрут: упорядоченный список остановок.
// Справочные данные, движок их только читает.
type Route struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Location — остановка на маршруте.
//
// RouteOrder задаёт порядок обхода и уникален в пределах маршрута.
// Совпадения считаются ошибкой данных и разрешаются по порядку вставки.
type Location struct {
	ID         uuid.UUID `json:"id"`
	RouteID    uuid.UUID `json:"route_id"`
	Name       string    `json:"name"`
	Address    string    `json:"address,omitempty"`
	RouteOrder int       `json:"route_order"`
	CreatedAt  time.Time `json:"created_at"`
}

// Friend — постоянный клиент, которого команда встречает на маршруте.
type Friend struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Nickname    string     `json:"nickname,omitempty"`
	LastContact *time.Time `json:"last_contact,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
