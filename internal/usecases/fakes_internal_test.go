package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/volatiletech/null/v8"

	"dao-ledger.backend/internal/domain/entities"
	domainerrors "dao-ledger.backend/internal/domain/errors"
	"dao-ledger.backend/internal/domain/repositories"
)

// fakeHost is an in-memory chat host. Timelines open with the newest
// `window` events loaded and page backward through the rest.
type fakeHost struct {
	mu       sync.Mutex
	rooms    map[string]*entities.Room
	parents  map[string][]string
	events   map[string][]*entities.RoomEvent
	state    map[string]json.RawMessage
	power    map[string]*entities.PowerLevels
	names    map[string]string
	window   int
	seq      int
	sendErr  error
	pageErr  error
	pageHook func(ctx context.Context) error
	pages    int
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		rooms:   make(map[string]*entities.Room),
		parents: make(map[string][]string),
		events:  make(map[string][]*entities.RoomEvent),
		state:   make(map[string]json.RawMessage),
		power:   make(map[string]*entities.PowerLevels),
		names:   make(map[string]string),
		window:  20,
	}
}

func (h *fakeHost) addRoom(id, name string, kind entities.RoomKind, parent string) *entities.Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := &entities.Room{ID: id, Name: name, Kind: kind, CreatedAt: time.Now().UTC()}
	h.rooms[id] = r
	if parent != "" {
		h.parents[id] = append(h.parents[id], parent)
	}
	return r
}

func (h *fakeHost) appendEvent(roomID string, ev *entities.RoomEvent) *entities.RoomEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	if ev.ID == "" {
		ev.ID = fmt.Sprintf("$ev%d", h.seq)
	}
	ev.RoomID = roomID
	h.events[roomID] = append(h.events[roomID], ev)
	return ev
}

func (h *fakeHost) appendRecord(roomID string, rec entities.TransactionRecord) *entities.RoomEvent {
	raw, _ := json.Marshal(entities.MessageContent{MsgType: entities.MsgTypeText, Body: "record", TransactionData: &rec})
	return h.appendEvent(roomID, &entities.RoomEvent{Type: entities.EventTypeMessage, Sender: "@ledger:test", Content: raw})
}

func (h *fakeHost) appendNoise(roomID string, n int) {
	for i := 0; i < n; i++ {
		raw, _ := json.Marshal(entities.MessageContent{MsgType: entities.MsgTypeText, Body: "chatter"})
		h.appendEvent(roomID, &entities.RoomEvent{Type: entities.EventTypeMessage, Sender: "@chat:test", Content: raw})
	}
}

func (h *fakeHost) records(roomID string) []*entities.TransactionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*entities.TransactionRecord
	for _, ev := range h.events[roomID] {
		if rec, ok := ev.Transaction(); ok {
			out = append(out, rec)
		}
	}
	return out
}

type fakeTimeline struct {
	h     *fakeHost
	all   []*entities.RoomEvent
	start int
}

func (t *fakeTimeline) Events() []*entities.RoomEvent {
	return t.all[t.start:]
}

func (t *fakeTimeline) PaginateBackward(ctx context.Context, limit int) (int, error) {
	t.h.mu.Lock()
	t.h.pages++
	hook, pageErr := t.h.pageHook, t.h.pageErr
	t.h.mu.Unlock()
	if hook != nil {
		if err := hook(ctx); err != nil {
			return 0, err
		}
	}
	if pageErr != nil {
		return 0, pageErr
	}
	n := limit
	if n > t.start {
		n = t.start
	}
	t.start -= n
	return n, nil
}

func (h *fakeHost) Timeline(_ context.Context, roomID string) (repositories.RoomTimeline, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		return nil, domainerrors.ErrNotFound
	}
	all := append([]*entities.RoomEvent(nil), h.events[roomID]...)
	start := len(all) - h.window
	if start < 0 {
		start = 0
	}
	return &fakeTimeline{h: h, all: all, start: start}, nil
}

func (h *fakeHost) SendEvent(_ context.Context, roomID, senderID, eventType string, content interface{}) (string, error) {
	if h.sendErr != nil {
		return "", h.sendErr
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return "", err
	}
	ev := h.appendEvent(roomID, &entities.RoomEvent{Type: eventType, Sender: senderID, Content: raw})
	return ev.ID, nil
}

func (h *fakeHost) FetchEvent(_ context.Context, roomID, eventID string) (*entities.RoomEvent, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ev := range h.events[roomID] {
		if ev.ID == eventID {
			return ev, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

func (h *fakeHost) PowerLevels(_ context.Context, roomID string) (*entities.PowerLevels, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.power[roomID], nil
}

func (h *fakeHost) Room(_ context.Context, roomID string) (*entities.Room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[roomID]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	return r, nil
}

func (h *fakeHost) Parents(_ context.Context, roomID string) ([]*entities.Room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*entities.Room
	for _, id := range h.parents[roomID] {
		if r, ok := h.rooms[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (h *fakeHost) Children(_ context.Context, roomID string) ([]*entities.Room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*entities.Room
	for child, ps := range h.parents {
		for _, p := range ps {
			if p == roomID {
				out = append(out, h.rooms[child])
			}
		}
	}
	return out, nil
}

func (h *fakeHost) RoomsByKind(_ context.Context, kind entities.RoomKind) ([]*entities.Room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*entities.Room
	for _, r := range h.rooms {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out, nil
}

func stateKey(roomID, eventType, key string) string {
	return roomID + "|" + eventType + "|" + key
}

func (h *fakeHost) GetState(_ context.Context, roomID, eventType, key string, out interface{}) (bool, error) {
	h.mu.Lock()
	raw, ok := h.state[stateKey(roomID, eventType, key)]
	h.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (h *fakeHost) PutState(_ context.Context, roomID, eventType, key, _ string, content interface{}) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.state[stateKey(roomID, eventType, key)] = raw
	h.mu.Unlock()
	return nil
}

func (h *fakeHost) DisplayName(_ context.Context, userID string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.names[userID], nil
}

// memKV is a map-backed KVStore
type memKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	setErr error
	sets   int
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.sets++
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// setGuard is a map-backed DedupGuard
type setGuard struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func newSetGuard() *setGuard {
	return &setGuard{seen: make(map[string]bool)}
}

func (g *setGuard) Acquire(_ context.Context, key string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seen[key] {
		return false, nil
	}
	g.seen[key] = true
	return true, nil
}

func (g *setGuard) Seen(_ context.Context, key string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seen[key], nil
}

// stubRecoverer returns fixed balances per address
type stubRecoverer map[string]float64

func (s stubRecoverer) RecoverBalance(_ context.Context, _ string, address string) float64 {
	return s[address]
}

func toRecord(to string, recipientBalance float64) entities.TransactionRecord {
	return entities.TransactionRecord{
		Type:             "PoC: general",
		From:             "Acme minting",
		To:               to,
		Amount:           10,
		Balance:          null.Float64From(recipientBalance),
		RecipientBalance: null.Float64From(recipientBalance),
		Timestamp:        entities.NewTimestamp(time.UnixMilli(1700000000000)),
	}
}

func transferRecord(from, to string, senderBalance, recipientBalance float64) entities.TransactionRecord {
	return entities.TransactionRecord{
		Type:             entities.TransferRecordType,
		From:             from,
		To:               to,
		Amount:           1,
		Balance:          null.Float64From(senderBalance),
		SenderBalance:    null.Float64From(senderBalance),
		RecipientBalance: null.Float64From(recipientBalance),
		Timestamp:        entities.NewTimestamp(time.UnixMilli(1700000000000)),
	}
}

var errBoom = errors.New("boom")

const (
	addrA = "0x00000000000000000000000000000000000000aa"
	addrB = "0x00000000000000000000000000000000000000bb"
	addrC = "0x00000000000000000000000000000000000000cc"

	abandonPhrase = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
)

// daoTree builds DAO "Acme" with DCA, GOV, ledger and one contribution room
func daoTree(h *fakeHost) {
	h.addRoom("!dao", "Acme", entities.RoomKindDAO, "")
	h.addRoom("!dca", "DCA", entities.RoomKindDCA, "!dao")
	h.addRoom("!gov", "GOV", entities.RoomKindGOV, "!dao")
	h.addRoom("!ledger", "ledger", entities.RoomKindLedger, "!dao")
	room := h.addRoom("!room", "general", entities.RoomKindContribution, "!dca")
	room.Topic = "Share your work. Kudos Value: 10"
}
