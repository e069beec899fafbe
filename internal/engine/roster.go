package engine

import (
	"sort"

	"github.com/shaiso/Outreach/internal/domain"
)

// OrderMembers сортирует команду по времени вступления (при равенстве — по Seq).
// Индекс 0 результата — лидер. Входной слайс не меняется.
func OrderMembers(members []domain.TeamMember) []domain.TeamMember {
	ordered := make([]domain.TeamMember, len(members))
	copy(ordered, members)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.Seq < b.Seq
	})
	return ordered
}

// Lead возвращает лидера команды.
// ok=false для пустой команды.
func Lead(members []domain.TeamMember) (domain.TeamMember, bool) {
	if len(members) == 0 {
		return domain.TeamMember{}, false
	}
	return OrderMembers(members)[0], true
}
