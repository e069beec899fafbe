package repo

import "errors"

// Ошибки репозиториев. Orchestrator переводит их в доменные.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — нарушена уникальность: повтор client_request_id
	// или участник уже в команде.
	ErrAlreadyExists = errors.New("already exists")
)
