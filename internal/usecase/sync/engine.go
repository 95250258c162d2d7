package sync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tg-preview-feed/internal/domain"
)

// FeedClient — порт границы ингестии, откуда движок тянет страницы.
type FeedClient interface {
	FetchPage(ctx context.Context, before string) (domain.FeedPage, error)
}

// Events — необязательные колбэки для подписчиков движка.
type Events struct {
	OnRefresh         func(State)
	OnPendingNew      func(int)
	OnEditsMerged     func(State)
	OnUpdateAvailable func()
	OnAppended        func(State)
	OnInitialError    func(error)
}

type fetchKind int

const (
	fetchInitial fetchKind = iota
	fetchPoll
	fetchMore
)

type fetchResult struct {
	kind fetchKind
	page domain.FeedPage
	err  error
}

type scrollEvent struct {
	nearTop    bool
	nearBottom bool
}

type visibilityEvent struct{ visible bool }

type refreshEvent struct{}

// Engine гоняет конечный автомат State по входам: тикам опроса,
// скроллу и явному обновлению. Все входы обрабатываются одной
// горутиной; сетевые запросы уходят в фоне и возвращаются в тот же
// цикл, перекрытия отсекаются булевыми флагами. Отмена начатых
// запросов не распространяется: устаревший ответ просто отбрасывается.
type Engine struct {
	id       uuid.UUID
	client   FeedClient
	interval time.Duration
	log      zerolog.Logger
	events   Events

	inbox chan any

	mu      sync.Mutex
	current State
}

// NewEngine создаёт движок синхронизации одного представления ленты.
func NewEngine(client FeedClient, interval time.Duration, events Events, log zerolog.Logger) *Engine {
	id := uuid.New()
	return &Engine{
		id:       id,
		client:   client,
		interval: interval,
		log:      log.With().Str("view", id.String()).Logger(),
		events:   events,
		inbox:    make(chan any, 16),
		current:  NewState(),
	}
}

// State возвращает снимок текущего состояния.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Scroll сообщает движку положение зрителя в ленте.
func (e *Engine) Scroll(nearTop, nearBottom bool) {
	e.post(scrollEvent{nearTop: nearTop, nearBottom: nearBottom})
}

// SetVisible включает и выключает фоновый опрос вместе с видимостью
// представления.
func (e *Engine) SetVisible(visible bool) {
	e.post(visibilityEvent{visible: visible})
}

// Refresh — явное обновление: сбрасывает счётчик отложенных постов
// и повторяет начальную загрузку.
func (e *Engine) Refresh() {
	e.post(refreshEvent{})
}

func (e *Engine) post(ev any) {
	select {
	case e.inbox <- ev:
	default:
		// Переполненный ящик значит, что цикл уже остановлен
		// или завален входами; событие можно потерять.
	}
}

// Run крутит цикл до отмены контекста.
func (e *Engine) Run(ctx context.Context) {
	state := NewState()
	visible := true
	pollInFlight := false
	moreInFlight := false

	commit := func() {
		e.mu.Lock()
		e.current = state
		e.mu.Unlock()
	}

	startFetch := func(kind fetchKind, before string) {
		go func() {
			page, err := e.client.FetchPage(ctx, before)
			e.post(fetchResult{kind: kind, page: page, err: err})
		}()
	}

	startFetch(fetchInitial, "")
	pollInFlight = true

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if !visible || pollInFlight {
				continue
			}
			pollInFlight = true
			if state.Phase == PhaseLoading {
				startFetch(fetchInitial, "")
			} else {
				startFetch(fetchPoll, "")
			}

		case ev := <-e.inbox:
			switch ev := ev.(type) {
			case visibilityEvent:
				visible = ev.visible

			case scrollEvent:
				state = ApplyScroll(state, ev.nearTop)
				commit()
				if ev.nearBottom && !moreInFlight {
					next, ok := StartLoadMore(state)
					if ok {
						state = next
						moreInFlight = true
						commit()
						startFetch(fetchMore, *state.Cursor)
					}
				}

			case refreshEvent:
				state = AcknowledgePending(state)
				commit()
				if !pollInFlight {
					pollInFlight = true
					startFetch(fetchInitial, "")
				}

			case fetchResult:
				switch ev.kind {
				case fetchInitial:
					pollInFlight = false
					if ev.err != nil {
						e.log.Error().Err(ev.err).Msg("sync: начальная загрузка не удалась")
						if e.events.OnInitialError != nil {
							e.events.OnInitialError(ev.err)
						}
						continue
					}
					state = ApplyInitial(state, ev.page)
					commit()
					if e.events.OnRefresh != nil {
						e.events.OnRefresh(state)
					}

				case fetchPoll:
					pollInFlight = false
					if ev.err != nil {
						// Фоновый опрос падает молча: экран остаётся как был.
						e.log.Warn().Err(ev.err).Msg("sync: опрос не удался")
						continue
					}
					var outcome PollOutcome
					state, outcome = ApplyPoll(state, ev.page)
					commit()
					e.notify(outcome, state)

				case fetchMore:
					moreInFlight = false
					if ev.err != nil {
						e.log.Warn().Err(ev.err).Msg("sync: дозагрузка не удалась")
						state = AbortLoadMore(state)
						commit()
						continue
					}
					state = ApplyLoadMore(state, ev.page)
					commit()
					if e.events.OnAppended != nil {
						e.events.OnAppended(state)
					}
				}
			}
		}
	}
}

func (e *Engine) notify(outcome PollOutcome, state State) {
	switch outcome {
	case OutcomeRefreshed:
		if e.events.OnRefresh != nil {
			e.events.OnRefresh(state)
		}
	case OutcomePendingNew:
		if e.events.OnPendingNew != nil {
			e.events.OnPendingNew(state.Pending)
		}
	case OutcomeMergedEdits:
		if e.events.OnEditsMerged != nil {
			e.events.OnEditsMerged(state)
		}
	case OutcomeUpdateAvailable:
		if e.events.OnUpdateAvailable != nil {
			e.events.OnUpdateAvailable()
		}
	}
}
