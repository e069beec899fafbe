package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/shaiso/Outreach/internal/repo"
)

// pendingWrites — отметки времени записей ленты изменений, чьи
// транзакции ещё не закоммичены в этом процессе.
//
// Курсор ChangesSince не поднимается выше самой ранней такой отметки:
// иначе запись, закоммиченная после опроса, оказалась бы позади курсора
// и не попала бы ни в один следующий ответ.
type pendingWrites struct {
	mu     sync.Mutex
	next   uint64
	stamps map[uint64]time.Time
}

// stamp берёт отметку времени для записи и держит её до вызова release.
func (p *pendingWrites) stamp(now func() time.Time) (time.Time, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stamps == nil {
		p.stamps = make(map[uint64]time.Time)
	}
	p.next++
	id := p.next
	t := now()
	p.stamps[id] = t

	return t, func() {
		p.mu.Lock()
		delete(p.stamps, id)
		p.mu.Unlock()
	}
}

// floor возвращает now или самую раннюю незакоммиченную отметку.
func (p *pendingWrites) floor(now func() time.Time) time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	t := now()
	for _, s := range p.stamps {
		if s.Before(t) {
			t = s
		}
	}
	return t
}

// inFeedTx выполняет fn в транзакции с отметкой времени, взятой после
// начала транзакции. Пока транзакция не завершена, отметка держит курсор
// ленты изменений.
func (o *Orchestrator) inFeedTx(ctx context.Context, fn func(r repo.Repos, now time.Time) error) error {
	var release func()
	err := o.store.InTx(ctx, func(r repo.Repos) error {
		if release != nil {
			release()
		}
		var now time.Time
		now, release = o.pending.stamp(o.now)
		return fn(r, now)
	})
	if release != nil {
		release()
	}
	return err
}

// feedCursor вычисляет курсор следующего опроса: каждая запись с отметкой
// не позже курсора уже видна читателю. Учитывает открытые транзакции
// других процессов, если хранилище о них знает, и ChangeFeedLag.
func (o *Orchestrator) feedCursor(ctx context.Context) (time.Time, error) {
	var open *time.Time
	if w, ok := o.store.(repo.OpenTxWatcher); ok {
		t, err := w.OldestOpenTx(ctx)
		if err != nil {
			return time.Time{}, err
		}
		open = t
	}

	cursor := o.pending.floor(o.now)
	if open != nil && open.Before(cursor) {
		cursor = *open
	}

	// Отметки хранятся с точностью до микросекунд; запись с отметкой,
	// равной floor, должна остаться строго после курсора.
	return cursor.Add(-o.changeFeedLag - time.Microsecond), nil
}
