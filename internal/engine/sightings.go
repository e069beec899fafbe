package engine

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shaiso/Outreach/internal/domain"
)

type friendAtLocation struct {
	friend   uuid.UUID
	location uuid.UUID
}

// LatestSightings оставляет по одной (самой свежей) записи на пару (friend, location).
// names — имена friends для ответа; отсутствующее имя остаётся пустым.
//
// Результат отсортирован по LastSeenAt от новых к старым.
func LatestSightings(sightings []domain.FriendSighting, names map[uuid.UUID]string) []domain.ExpectedFriend {
	latest := make(map[friendAtLocation]domain.FriendSighting)
	for _, s := range sightings {
		key := friendAtLocation{friend: s.FriendID, location: s.LocationID}
		prev, ok := latest[key]
		if !ok || s.CreatedAt.After(prev.CreatedAt) {
			latest[key] = s
		}
	}

	out := make([]domain.ExpectedFriend, 0, len(latest))
	for _, s := range latest {
		out = append(out, domain.ExpectedFriend{
			FriendID:   s.FriendID,
			FriendName: names[s.FriendID],
			LocationID: s.LocationID,
			LastSeenAt: s.CreatedAt,
			Notes:      s.Notes,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastSeenAt.Equal(out[j].LastSeenAt) {
			return out[i].LastSeenAt.After(out[j].LastSeenAt)
		}
		return out[i].FriendName < out[j].FriendName
	})
	return out
}
