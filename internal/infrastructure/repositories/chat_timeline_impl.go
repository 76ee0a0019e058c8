package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"

	"dao-ledger.backend/internal/domain/entities"
	domainerrors "dao-ledger.backend/internal/domain/errors"
	domainRepos "dao-ledger.backend/internal/domain/repositories"
	"dao-ledger.backend/internal/infrastructure/models"
	"dao-ledger.backend/pkg/utils"
)

// chatTimeline is a window over a room's events, oldest first
type chatTimeline struct {
	db     *gorm.DB
	roomID string
	events []*entities.RoomEvent
	oldest int64
}

func (t *chatTimeline) Events() []*entities.RoomEvent {
	return t.events
}

func (t *chatTimeline) PaginateBackward(ctx context.Context, limit int) (int, error) {
	if limit <= 0 || t.oldest <= 1 {
		return 0, nil
	}
	var ms []models.RoomEvent
	if err := t.db.WithContext(ctx).
		Where("room_id = ? AND seq < ?", t.roomID, t.oldest).
		Order("seq DESC").
		Limit(limit).
		Find(&ms).Error; err != nil {
		return 0, fmt.Errorf("%w: %v", domainerrors.ErrPaginationFailed, err)
	}
	if len(ms) == 0 {
		t.oldest = 0
		return 0, nil
	}

	older := make([]*entities.RoomEvent, 0, len(ms)+len(t.events))
	for i := len(ms) - 1; i >= 0; i-- {
		older = append(older, toEventEntity(&ms[i]))
	}
	t.events = append(older, t.events...)
	t.oldest = ms[len(ms)-1].Seq
	return len(ms), nil
}

// Timeline loads the newest events of a room
func (r *ChatRepository) Timeline(ctx context.Context, roomID string) (domainRepos.RoomTimeline, error) {
	if _, err := r.Room(ctx, roomID); err != nil {
		return nil, err
	}
	var ms []models.RoomEvent
	if err := GetDB(ctx, r.db).
		Where("room_id = ?", roomID).
		Order("seq DESC").
		Limit(r.initialWindow).
		Find(&ms).Error; err != nil {
		return nil, err
	}

	t := &chatTimeline{db: r.db, roomID: roomID, events: make([]*entities.RoomEvent, 0, len(ms))}
	for i := len(ms) - 1; i >= 0; i-- {
		t.events = append(t.events, toEventEntity(&ms[i]))
	}
	if len(ms) > 0 {
		t.oldest = ms[len(ms)-1].Seq
	}
	return t, nil
}

func (r *ChatRepository) FetchEvent(ctx context.Context, roomID, eventID string) (*entities.RoomEvent, error) {
	var m models.RoomEvent
	if err := GetDB(ctx, r.db).Where("id = ? AND room_id = ?", eventID, roomID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toEventEntity(&m), nil
}

func (r *ChatRepository) SendEvent(ctx context.Context, roomID, senderID, eventType string, content interface{}) (string, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domainerrors.ErrInvalidInput, err)
	}
	var ev *entities.RoomEvent
	err = r.write(ctx, func(ctx context.Context) error {
		var err error
		ev, err = r.appendEvent(ctx, roomID, senderID, eventType, nil, raw)
		return err
	})
	if err != nil {
		return "", err
	}
	return ev.ID, nil
}

// appendEvent assigns the next sequence number of the room. Callers hold writeMu.
func (r *ChatRepository) appendEvent(ctx context.Context, roomID, senderID, eventType string, stateKey *string, content []byte) (*entities.RoomEvent, error) {
	if _, err := r.Room(ctx, roomID); err != nil {
		return nil, err
	}
	db := GetDB(ctx, r.db)

	var last int64
	if err := db.Model(&models.RoomEvent{}).
		Where("room_id = ?", roomID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&last).Error; err != nil {
		return nil, err
	}

	m := &models.RoomEvent{
		ID:             utils.NewEventID(),
		RoomID:         roomID,
		Seq:            last + 1,
		Type:           eventType,
		Sender:         senderID,
		StateKey:       null.StringFromPtr(stateKey),
		Content:        string(content),
		OriginServerTS: r.now().UTC(),
	}
	if err := db.Create(m).Error; err != nil {
		return nil, err
	}
	return toEventEntity(m), nil
}

func toEventEntity(m *models.RoomEvent) *entities.RoomEvent {
	return &entities.RoomEvent{
		ID:             m.ID,
		RoomID:         m.RoomID,
		Type:           m.Type,
		Sender:         m.Sender,
		StateKey:       m.StateKey,
		Content:        json.RawMessage(m.Content),
		OriginServerTS: m.OriginServerTS,
	}
}
