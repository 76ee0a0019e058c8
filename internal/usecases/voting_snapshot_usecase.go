package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"dao-ledger.backend/internal/domain/entities"
	domainerrors "dao-ledger.backend/internal/domain/errors"
	"dao-ledger.backend/internal/domain/repositories"
	"dao-ledger.backend/pkg/logger"
)

type snapshotLedger interface {
	FindLedgerRoom(ctx context.Context, scopeID string) (*entities.Room, error)
	AllWalletAddresses(ctx context.Context, roomID string) ([]string, error)
	LatestBalance(ctx context.Context, roomID, address string) float64
}

type snapshotHost interface {
	repositories.SpaceHierarchy
	repositories.StateStore
}

// VotingSnapshotUsecase freezes ledger balances as voting power when an
// agenda is opened
type VotingSnapshotUsecase struct {
	host   snapshotHost
	ledger snapshotLedger
	now    func() time.Time
}

func NewVotingSnapshotUsecase(host snapshotHost, ledger snapshotLedger) *VotingSnapshotUsecase {
	return &VotingSnapshotUsecase{host: host, ledger: ledger, now: time.Now}
}

// Create builds a snapshot covering every address in the DAO ledger above
// the governance space
func (u *VotingSnapshotUsecase) Create(ctx context.Context, agendaRoomID string, in entities.CreateSnapshotInput) (*entities.AgendaVotingSnapshot, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrInvalidInput, err)
	}
	dao, err := parentOfKind(ctx, u.host, in.GovSpaceID, entities.RoomKindDAO)
	if err != nil {
		return nil, err
	}
	if dao == nil {
		return nil, fmt.Errorf("%w: governance space %s has no DAO", domainerrors.ErrNotFound, in.GovSpaceID)
	}
	ledger, err := u.ledger.FindLedgerRoom(ctx, dao.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrLedgerUnavailable, err)
	}
	if ledger == nil {
		return nil, fmt.Errorf("%w: no ledger room for %s", domainerrors.ErrLedgerUnavailable, dao.ID)
	}

	addresses, err := u.ledger.AllWalletAddresses(ctx, ledger.ID)
	if err != nil {
		return nil, err
	}

	ts := u.now().UnixMilli()
	snap := &entities.AgendaVotingSnapshot{
		AgendaRoomID:      agendaRoomID,
		AgendaName:        in.AgendaName,
		SnapshotTimestamp: ts,
		WalletSnapshots:   make([]entities.VoterSnapshot, 0, len(addresses)),
	}
	for _, addr := range addresses {
		bal := u.ledger.LatestBalance(ctx, ledger.ID, addr)
		power := votingPower(bal)
		snap.WalletSnapshots = append(snap.WalletSnapshots, entities.VoterSnapshot{
			WalletAddress: addr,
			Balance:       bal,
			VotingPower:   power,
			Timestamp:     ts,
		})
		snap.TotalVotingPower += power
	}

	logger.Info(ctx, "Voting snapshot created",
		zap.String("agenda_id", agendaRoomID),
		zap.Int("voters", len(snap.WalletSnapshots)),
		zap.Int64("total_power", snap.TotalVotingPower),
	)
	return snap, nil
}

// Save stores the snapshot as agenda room state
func (u *VotingSnapshotUsecase) Save(ctx context.Context, senderID string, snap *entities.AgendaVotingSnapshot) error {
	if snap == nil || strings.TrimSpace(snap.AgendaRoomID) == "" {
		return fmt.Errorf("%w: snapshot needs an agenda room", domainerrors.ErrInvalidInput)
	}
	return u.host.PutState(ctx, snap.AgendaRoomID, entities.StateTypeVotingSnapshot, "", senderID,
		entities.VotingSnapshotContent{Snapshot: snap})
}

// CreateAndSave is Create followed by Save
func (u *VotingSnapshotUsecase) CreateAndSave(ctx context.Context, agendaRoomID, senderID string, in entities.CreateSnapshotInput) (*entities.AgendaVotingSnapshot, error) {
	snap, err := u.Create(ctx, agendaRoomID, in)
	if err != nil {
		return nil, err
	}
	if err := u.Save(ctx, senderID, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Load returns the agenda's stored snapshot, or ErrNotFound
func (u *VotingSnapshotUsecase) Load(ctx context.Context, agendaRoomID string) (*entities.AgendaVotingSnapshot, error) {
	var content entities.VotingSnapshotContent
	found, err := u.host.GetState(ctx, agendaRoomID, entities.StateTypeVotingSnapshot, "", &content)
	if err != nil {
		return nil, err
	}
	if !found || content.Snapshot == nil {
		return nil, fmt.Errorf("%w: no voting snapshot for %s", domainerrors.ErrNotFound, agendaRoomID)
	}
	return content.Snapshot, nil
}

// VotingPower is address' frozen power on the agenda, 0 when absent
func (u *VotingSnapshotUsecase) VotingPower(ctx context.Context, agendaRoomID, address string) (int64, error) {
	snap, err := u.Load(ctx, agendaRoomID)
	if err != nil {
		return 0, err
	}
	return snap.VotingPowerOf(address), nil
}
