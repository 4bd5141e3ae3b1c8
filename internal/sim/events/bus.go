package events

import (
	"log"
	"sort"
	"sync"
)

// Handler receives events synchronously. Handlers must filter on the
// payload's side and battle id themselves; the bus does no pre-filtering.
type Handler func(Event)

// SubscriptionID identifies one registered handler for later removal.
type SubscriptionID uint64

type subscriber struct {
	id      SubscriptionID
	handler Handler
}

// Bus is a synchronous pub/sub channel with global and battle-scoped
// subscriber sets. Within one Emit call, handlers run in subscription
// registration order; a panicking handler is caught and logged at the
// per-handler boundary and never blocks delivery to the rest.
type Bus struct {
	mu     sync.Mutex
	nextID SubscriptionID
	global map[EventType][]subscriber
	scoped map[string]map[EventType][]subscriber // battle id -> type -> handlers

	// Reverse index so Unsubscribe stays O(handlers of one type).
	index map[SubscriptionID]subKey
}

type subKey struct {
	battleID  string // empty for global subscriptions
	eventType EventType
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{
		global: make(map[EventType][]subscriber),
		scoped: make(map[string]map[EventType][]subscriber),
		index:  make(map[SubscriptionID]subKey),
	}
}

// Subscribe registers a global handler for one event kind.
func (b *Bus) Subscribe(t EventType, h Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.global[t] = append(b.global[t], subscriber{id: id, handler: h})
	b.index[id] = subKey{eventType: t}
	return id
}

// SubscribeBattle registers a handler that only receives events carrying
// the given battle id.
func (b *Bus) SubscribeBattle(battleID string, t EventType, h Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	byType, ok := b.scoped[battleID]
	if !ok {
		byType = make(map[EventType][]subscriber)
		b.scoped[battleID] = byType
	}
	byType[t] = append(byType[t], subscriber{id: id, handler: h})
	b.index[id] = subKey{battleID: battleID, eventType: t}
	return id
}

// Unsubscribe removes a handler. Safe on unknown ids.
func (b *Bus) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key, ok := b.index[id]
	if !ok {
		return
	}
	delete(b.index, id)

	if key.battleID == "" {
		b.global[key.eventType] = removeSubscriber(b.global[key.eventType], id)
		return
	}
	byType, ok := b.scoped[key.battleID]
	if !ok {
		return
	}
	byType[key.eventType] = removeSubscriber(byType[key.eventType], id)
	if len(byType[key.eventType]) == 0 {
		delete(byType, key.eventType)
	}
	if len(byType) == 0 {
		delete(b.scoped, key.battleID)
	}
}

// DropBattle removes every battle-scoped subscription for a battle id.
// Idempotent, safe on unknown ids.
func (b *Bus) DropBattle(battleID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	byType, ok := b.scoped[battleID]
	if !ok {
		return
	}
	for _, subs := range byType {
		for _, s := range subs {
			delete(b.index, s.id)
		}
	}
	delete(b.scoped, battleID)
}

// Emit delivers an event to global and battle-scoped subscribers of its
// type, merged into registration order. Delivery is synchronous: Emit
// returns after the last handler has run.
func (b *Bus) Emit(ev Event) {
	b.mu.Lock()
	subs := make([]subscriber, 0, 4)
	subs = append(subs, b.global[ev.Type]...)
	if byType, ok := b.scoped[ev.BattleID]; ok {
		subs = append(subs, byType[ev.Type]...)
	}
	b.mu.Unlock()

	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })

	for _, s := range subs {
		b.dispatch(s, ev)
	}
}

// dispatch runs one handler behind a recover boundary.
func (b *Bus) dispatch(s subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠️ event handler %d panicked on %s: %v", s.id, ev.Type, r)
		}
	}()
	s.handler(ev)
}

func removeSubscriber(subs []subscriber, id SubscriptionID) []subscriber {
	n := 0
	for _, s := range subs {
		if s.id != id {
			subs[n] = s
			n++
		}
	}
	return subs[:n]
}

// SubscriberCount returns the number of live subscriptions, for tests
// and teardown verification.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.index)
}
