package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dao-ledger.backend/internal/domain/entities"
	domainerrors "dao-ledger.backend/internal/domain/errors"
	domainRepos "dao-ledger.backend/internal/domain/repositories"
	"dao-ledger.backend/internal/infrastructure/models"
	"dao-ledger.backend/pkg/utils"
)

const defaultInitialWindow = 50

// ChatRepository is the local chat store: rooms, the space hierarchy,
// room timelines, room state and user profiles.
type ChatRepository struct {
	db            *gorm.DB
	uow           domainRepos.UnitOfWork
	initialWindow int

	// serializes writers so sequence numbers stay dense per room
	writeMu sync.Mutex
	now     func() time.Time
}

var _ domainRepos.ChatHost = (*ChatRepository)(nil)

func NewChatRepository(db *gorm.DB, uow domainRepos.UnitOfWork, initialWindow int) *ChatRepository {
	if initialWindow <= 0 {
		initialWindow = defaultInitialWindow
	}
	return &ChatRepository{db: db, uow: uow, initialWindow: initialWindow, now: time.Now}
}

func (r *ChatRepository) write(ctx context.Context, fn func(ctx context.Context) error) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.uow.Do(ctx, fn)
}

func (r *ChatRepository) Room(ctx context.Context, roomID string) (*entities.Room, error) {
	var m models.Room
	if err := GetDB(ctx, r.db).Where("id = ?", roomID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toRoomEntity(&m), nil
}

func (r *ChatRepository) Parents(ctx context.Context, roomID string) ([]*entities.Room, error) {
	var ms []models.Room
	if err := GetDB(ctx, r.db).
		Model(&models.Room{}).
		Joins("JOIN room_relations ON room_relations.parent_id = rooms.id").
		Where("room_relations.child_id = ?", roomID).
		Order("rooms.created_at ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return r.toRoomEntities(ms), nil
}

func (r *ChatRepository) Children(ctx context.Context, roomID string) ([]*entities.Room, error) {
	var ms []models.Room
	if err := GetDB(ctx, r.db).
		Model(&models.Room{}).
		Joins("JOIN room_relations ON room_relations.child_id = rooms.id").
		Where("room_relations.parent_id = ?", roomID).
		Order("rooms.created_at ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return r.toRoomEntities(ms), nil
}

func (r *ChatRepository) RoomsByKind(ctx context.Context, kind entities.RoomKind) ([]*entities.Room, error) {
	var ms []models.Room
	if err := GetDB(ctx, r.db).
		Where("kind = ?", string(kind)).
		Order("created_at ASC, id ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return r.toRoomEntities(ms), nil
}

// CreateRoom stores room and, when parentID is set, links it under that space
func (r *ChatRepository) CreateRoom(ctx context.Context, room *entities.Room, parentID string) error {
	return r.write(ctx, func(ctx context.Context) error {
		return r.createRoom(ctx, room, parentID)
	})
}

func (r *ChatRepository) createRoom(ctx context.Context, room *entities.Room, parentID string) error {
	if strings.TrimSpace(room.Name) == "" || !room.Kind.Valid() {
		return domainerrors.ErrInvalidInput
	}
	if room.ID == "" {
		room.ID = utils.NewRoomID()
	}
	m := r.toRoomModel(room)
	db := GetDB(ctx, r.db)
	if err := db.Create(m).Error; err != nil {
		return err
	}
	room.CreatedAt = m.CreatedAt
	if parentID == "" {
		return nil
	}
	return r.addChild(ctx, parentID, room.ID)
}

// AddChild links an existing room under a space
func (r *ChatRepository) AddChild(ctx context.Context, parentID, childID string) error {
	return r.write(ctx, func(ctx context.Context) error {
		return r.addChild(ctx, parentID, childID)
	})
}

func (r *ChatRepository) addChild(ctx context.Context, parentID, childID string) error {
	parent, err := r.Room(ctx, parentID)
	if err != nil {
		return err
	}
	if !parent.Kind.IsSpace() {
		return fmt.Errorf("%w: %s is not a space", domainerrors.ErrInvalidInput, parentID)
	}
	rel := &models.RoomRelation{ParentID: parentID, ChildID: childID}
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(rel).Error
}

// ProvisionDAO creates a DAO space with its contribution space, governance
// space, ledger room and contribution rooms in one transaction.
func (r *ChatRepository) ProvisionDAO(ctx context.Context, in entities.ProvisionDAOInput) (*entities.ProvisionedDAO, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || strings.TrimSpace(in.OwnerID) == "" {
		return nil, domainerrors.ErrInvalidInput
	}
	contributionRooms := in.ContributionRooms
	if len(contributionRooms) == 0 {
		contributionRooms = []string{"general"}
	}

	out := &entities.ProvisionedDAO{}
	err := r.write(ctx, func(ctx context.Context) error {
		out.DAO = &entities.Room{Name: name, Kind: entities.RoomKindDAO}
		if err := r.createRoom(ctx, out.DAO, ""); err != nil {
			return err
		}
		out.DCA = &entities.Room{Name: name + " Contributions", Kind: entities.RoomKindDCA}
		out.GOV = &entities.Room{Name: name + " Governance", Kind: entities.RoomKindGOV}
		out.Ledger = &entities.Room{Name: name + " Ledger", Kind: entities.RoomKindLedger}
		for _, room := range []*entities.Room{out.DCA, out.GOV, out.Ledger} {
			if err := r.createRoom(ctx, room, out.DAO.ID); err != nil {
				return err
			}
		}

		for _, roomName := range contributionRooms {
			room := &entities.Room{Name: roomName, Kind: entities.RoomKindContribution}
			if in.ContributionValue > 0 {
				room.Topic = "Kudos Value: " + entities.FormatAmount(in.ContributionValue)
			}
			if err := r.createRoom(ctx, room, out.DCA.ID); err != nil {
				return err
			}
			out.Contributions = append(out.Contributions, room)
		}

		levels := entities.PowerLevels{Users: map[string]int{in.OwnerID: 100}}
		if in.VerificationLevel > 0 {
			level := in.VerificationLevel
			levels.Verification = &level
		}
		for _, room := range append([]*entities.Room{out.DAO, out.DCA, out.GOV, out.Ledger}, out.Contributions...) {
			if err := r.putState(ctx, room.ID, entities.StateTypePowerLevels, "", in.OwnerID, levels); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ChatRepository) DisplayName(ctx context.Context, userID string) (string, error) {
	var m models.UserProfile
	if err := GetDB(ctx, r.db).Where("user_id = ?", userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return m.DisplayName, nil
}

func (r *ChatRepository) SetDisplayName(ctx context.Context, userID, displayName string) error {
	m := &models.UserProfile{UserID: userID, DisplayName: displayName, UpdatedAt: r.now()}
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "updated_at"}),
	}).Create(m).Error
}

func (r *ChatRepository) PowerLevels(ctx context.Context, roomID string) (*entities.PowerLevels, error) {
	var levels entities.PowerLevels
	ok, err := r.GetState(ctx, roomID, entities.StateTypePowerLevels, "", &levels)
	if err != nil || !ok {
		return nil, err
	}
	return &levels, nil
}

func (r *ChatRepository) GetState(ctx context.Context, roomID, eventType, stateKey string, out interface{}) (bool, error) {
	var m models.RoomState
	err := GetDB(ctx, r.db).
		Where("room_id = ? AND event_type = ? AND state_key = ?", roomID, eventType, stateKey).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(m.Content), out); err != nil {
		return false, fmt.Errorf("decode %s state of %s: %w", eventType, roomID, err)
	}
	return true, nil
}

// PutState replaces the state content and records the change on the timeline
func (r *ChatRepository) PutState(ctx context.Context, roomID, eventType, stateKey, senderID string, content interface{}) error {
	return r.write(ctx, func(ctx context.Context) error {
		return r.putState(ctx, roomID, eventType, stateKey, senderID, content)
	})
}

func (r *ChatRepository) putState(ctx context.Context, roomID, eventType, stateKey, senderID string, content interface{}) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("%w: %v", domainerrors.ErrInvalidInput, err)
	}
	ev, err := r.appendEvent(ctx, roomID, senderID, eventType, &stateKey, raw)
	if err != nil {
		return err
	}
	m := &models.RoomState{
		RoomID:    roomID,
		EventType: eventType,
		StateKey:  stateKey,
		EventID:   ev.ID,
		Content:   string(raw),
		UpdatedAt: ev.OriginServerTS,
	}
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "event_type"}, {Name: "state_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"event_id", "content", "updated_at"}),
	}).Create(m).Error
}

func (r *ChatRepository) toRoomEntity(m *models.Room) *entities.Room {
	return &entities.Room{
		ID:                m.ID,
		Name:              m.Name,
		Topic:             m.Topic,
		Kind:              entities.RoomKind(m.Kind),
		ContributionValue: m.ContributionValue,
		CreatedAt:         m.CreatedAt,
	}
}

func (r *ChatRepository) toRoomEntities(ms []models.Room) []*entities.Room {
	items := make([]*entities.Room, 0, len(ms))
	for i := range ms {
		items = append(items, r.toRoomEntity(&ms[i]))
	}
	return items
}

func (r *ChatRepository) toRoomModel(e *entities.Room) *models.Room {
	return &models.Room{
		ID:                e.ID,
		Name:              e.Name,
		Topic:             e.Topic,
		Kind:              string(e.Kind),
		ContributionValue: e.ContributionValue,
		CreatedAt:         e.CreatedAt,
	}
}
