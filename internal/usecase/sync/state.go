package sync

import (
	"hash/fnv"
	"time"

	"tg-preview-feed/internal/domain"
)

// fingerprintWidth — сколько новейших постов участвует в отпечатке.
const fingerprintWidth = 5

// Phase — фаза жизненного цикла представления ленты.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseReady
	PhaseFetchingMore
)

// PollOutcome — решение, принятое по результату очередного опроса.
type PollOutcome int

const (
	// OutcomeUnchanged — лента не изменилась, состояние не трогаем.
	OutcomeUnchanged PollOutcome = iota
	// OutcomeRefreshed — появились новые посты и зритель у верха: полная замена.
	OutcomeRefreshed
	// OutcomePendingNew — новые посты есть, но зритель листает: копим счётчик.
	OutcomePendingNew
	// OutcomeMergedEdits — те же посты с изменёнными полями влиты на месте.
	OutcomeMergedEdits
	// OutcomeUpdateAvailable — правки есть, но зритель не у верха.
	OutcomeUpdateAvailable
)

// State — явное состояние представления ленты. Все переходы — чистые
// функции от (состояние, вход), чтобы ветвление опроса тестировалось
// отдельно от сети и отрисовки.
type State struct {
	Phase       Phase
	Posts       []domain.Post
	Cursor      *string
	HasMore     bool
	Fingerprint uint64
	NearTop     bool
	Pending     int
}

// NewState возвращает состояние до первой загрузки.
// Зритель считается находящимся у верха ленты.
func NewState() State {
	return State{Phase: PhaseLoading, NearTop: true}
}

// Fingerprint сворачивает новейший срез постов в одно значение.
// Два отпечатка равны тогда и только тогда, когда кортежи
// (id, media, text, publishedAt) первых пяти постов попарно совпадают.
func Fingerprint(posts []domain.Post) uint64 {
	h := fnv.New64a()
	for i, post := range posts {
		if i == fingerprintWidth {
			break
		}
		_, _ = h.Write([]byte(post.ID))
		_, _ = h.Write([]byte{0})
		if post.Media != nil {
			_, _ = h.Write([]byte(*post.Media))
		}
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(post.Text))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(post.PublishedAt.UTC().Format(time.RFC3339Nano)))
		_, _ = h.Write([]byte{0x1e})
	}
	return h.Sum64()
}

// ApplyInitial заменяет состояние свежезагруженной первой страницей.
func ApplyInitial(state State, page domain.FeedPage) State {
	state.Phase = PhaseReady
	state.Posts = page.Posts
	state.Cursor = page.NextBefore
	state.HasMore = page.HasMore
	state.Fingerprint = Fingerprint(page.Posts)
	state.Pending = 0
	return state
}

// ApplyPoll применяет результат периодического опроса первой страницы.
func ApplyPoll(state State, page domain.FeedPage) (State, PollOutcome) {
	fresh := Fingerprint(page.Posts)

	if hasNewIDs(state.Posts, page.Posts) {
		if state.NearTop {
			return ApplyInitial(state, page), OutcomeRefreshed
		}
		state.Pending = pendingCount(state.Posts, page.Posts)
		return state, OutcomePendingNew
	}

	if fresh != state.Fingerprint {
		if state.NearTop {
			state.Posts = mergeEdits(state.Posts, page.Posts)
			state.Fingerprint = Fingerprint(state.Posts)
			return state, OutcomeMergedEdits
		}
		return state, OutcomeUpdateAvailable
	}

	return state, OutcomeUnchanged
}

// ApplyScroll фиксирует положение зрителя относительно верха ленты.
func ApplyScroll(state State, nearTop bool) State {
	state.NearTop = nearTop
	return state
}

// StartLoadMore переводит состояние в дозагрузку. Возвращает false,
// когда дозагрузка не нужна: она уже идёт, курсора нет или история кончилась.
func StartLoadMore(state State) (State, bool) {
	if state.Phase != PhaseReady || state.Cursor == nil || !state.HasMore {
		return state, false
	}
	state.Phase = PhaseFetchingMore
	return state, true
}

// ApplyLoadMore приклеивает следующую страницу, отбрасывая уже
// известные идентификаторы.
func ApplyLoadMore(state State, page domain.FeedPage) State {
	seen := make(map[string]struct{}, len(state.Posts))
	for _, post := range state.Posts {
		seen[post.ID] = struct{}{}
	}
	for _, post := range page.Posts {
		if _, ok := seen[post.ID]; ok {
			continue
		}
		seen[post.ID] = struct{}{}
		state.Posts = append(state.Posts, post)
	}
	state.Cursor = page.NextBefore
	state.HasMore = page.HasMore && page.NextBefore != nil
	state.Phase = PhaseReady
	return state
}

// AbortLoadMore возвращает состояние в Ready после неудачной дозагрузки.
func AbortLoadMore(state State) State {
	if state.Phase == PhaseFetchingMore {
		state.Phase = PhaseReady
	}
	return state
}

// AcknowledgePending сбрасывает счётчик отложенных обновлений;
// вызывающий после этого повторяет начальную загрузку.
func AcknowledgePending(state State) State {
	state.Pending = 0
	return state
}

// hasNewIDs проверяет, появился ли среди новейших пяти свежих постов
// идентификатор, которого нет среди новейших пяти удерживаемых.
func hasNewIDs(held, fresh []domain.Post) bool {
	known := make(map[string]struct{}, fingerprintWidth)
	for i, post := range held {
		if i == fingerprintWidth {
			break
		}
		known[post.ID] = struct{}{}
	}
	for i, post := range fresh {
		if i == fingerprintWidth {
			break
		}
		if _, ok := known[post.ID]; !ok {
			return true
		}
	}
	return false
}

// pendingCount считает, на сколько позиций свежая страница опередила
// удерживаемую: смещение прежнего новейшего поста в свежем списке,
// либо 1, если он там вовсе не встречается.
func pendingCount(held, fresh []domain.Post) int {
	if len(held) == 0 {
		return 1
	}
	newest := held[0].ID
	for i, post := range fresh {
		if post.ID == newest {
			return i
		}
	}
	return 1
}

// mergeEdits переносит изменённые поля свежих постов в удерживаемые
// с теми же идентификаторами, не меняя состав и порядок списка —
// так медиа остальных постов не перезагружаются.
func mergeEdits(held, fresh []domain.Post) []domain.Post {
	byID := make(map[string]domain.Post, len(fresh))
	for _, post := range fresh {
		byID[post.ID] = post
	}
	merged := make([]domain.Post, len(held))
	copy(merged, held)
	for i, post := range merged {
		updated, ok := byID[post.ID]
		if !ok {
			continue
		}
		merged[i] = updated
	}
	return merged
}
