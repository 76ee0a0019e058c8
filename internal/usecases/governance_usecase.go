package usecases

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"dao-ledger.backend/internal/domain/entities"
	domainerrors "dao-ledger.backend/internal/domain/errors"
	"dao-ledger.backend/internal/domain/repositories"
	"dao-ledger.backend/pkg/logger"
)

type governanceHost interface {
	repositories.SpaceHierarchy
	repositories.StateStore
}

type governanceLedger interface {
	RecoverBalance(ctx context.Context, scopeID, address string) float64
}

type addressResolver interface {
	AddressFor(scopeID string) (string, bool)
}

// GovernanceUsecase covers agenda gating and contribution-space settings
type GovernanceUsecase struct {
	host      governanceHost
	ledger    governanceLedger
	wallets   addressResolver
	allowSelf bool
}

func NewGovernanceUsecase(host governanceHost, ledger governanceLedger, wallets addressResolver, allowSelfDefault bool) *GovernanceUsecase {
	return &GovernanceUsecase{host: host, ledger: ledger, wallets: wallets, allowSelf: allowSelfDefault}
}

// CanCreateAgenda checks the governance space's token requirement against
// the local wallet's balance in the parent DAO ledger
func (u *GovernanceUsecase) CanCreateAgenda(ctx context.Context, govSpaceID string) (*entities.AgendaPermission, error) {
	var content entities.GovSettingsContent
	found, err := u.host.GetState(ctx, govSpaceID, entities.StateTypeGovSettings, "", &content)
	if err != nil {
		return nil, err
	}
	if !found || content.Settings == nil {
		return &entities.AgendaPermission{CanCreate: true}, nil
	}
	required := content.Settings.BTokenRequired

	var current float64
	dao, err := parentOfKind(ctx, u.host, govSpaceID, entities.RoomKindDAO)
	if err != nil {
		logger.Warn(ctx, "DAO lookup for governance space failed", zap.String("gov_id", govSpaceID), zap.Error(err))
	}
	if dao != nil {
		if addr, ok := u.wallets.AddressFor(dao.ID); ok {
			current = u.ledger.RecoverBalance(ctx, dao.ID, addr)
		}
	}

	perm := &entities.AgendaPermission{
		CanCreate: current >= required,
		Required:  required,
		Current:   current,
	}
	if !perm.CanCreate {
		perm.Message = fmt.Sprintf(agendaPermissionMessageTemplate, required, current)
	}
	return perm, nil
}

// GovSettings returns the governance space settings, nil when unset
func (u *GovernanceUsecase) GovSettings(ctx context.Context, govSpaceID string) (*entities.GovSettings, error) {
	var content entities.GovSettingsContent
	if _, err := u.host.GetState(ctx, govSpaceID, entities.StateTypeGovSettings, "", &content); err != nil {
		return nil, err
	}
	return content.Settings, nil
}

func (u *GovernanceUsecase) SetGovSettings(ctx context.Context, govSpaceID, senderID string, settings entities.GovSettings) error {
	if settings.BTokenRequired < 0 {
		return fmt.Errorf("%w: bTokenRequired must not be negative", domainerrors.ErrInvalidInput)
	}
	if err := u.requireKind(ctx, govSpaceID, entities.RoomKindGOV); err != nil {
		return err
	}
	return u.host.PutState(ctx, govSpaceID, entities.StateTypeGovSettings, "", senderID,
		entities.GovSettingsContent{Settings: &settings})
}

// DCASettings returns the contribution space settings with defaults applied
func (u *GovernanceUsecase) DCASettings(ctx context.Context, dcaSpaceID string) (*entities.DCASettings, error) {
	var s entities.DCASettings
	if _, err := u.host.GetState(ctx, dcaSpaceID, entities.StateTypeDCASettings, "", &s); err != nil {
		return nil, err
	}
	allow := s.SelfVerificationAllowed(u.allowSelf)
	return &entities.DCASettings{AllowSelfVerification: &allow}, nil
}

func (u *GovernanceUsecase) SetDCASettings(ctx context.Context, dcaSpaceID, senderID string, settings entities.DCASettings) error {
	if err := u.requireKind(ctx, dcaSpaceID, entities.RoomKindDCA); err != nil {
		return err
	}
	return u.host.PutState(ctx, dcaSpaceID, entities.StateTypeDCASettings, "", senderID, settings)
}

// ToggleSelfVerification flips the self-approval flag and returns the new value
func (u *GovernanceUsecase) ToggleSelfVerification(ctx context.Context, dcaSpaceID, senderID string) (bool, error) {
	cur, err := u.DCASettings(ctx, dcaSpaceID)
	if err != nil {
		return false, err
	}
	next := !*cur.AllowSelfVerification
	if err := u.SetDCASettings(ctx, dcaSpaceID, senderID, entities.DCASettings{AllowSelfVerification: &next}); err != nil {
		return false, err
	}
	return next, nil
}

func (u *GovernanceUsecase) requireKind(ctx context.Context, roomID string, kind entities.RoomKind) error {
	room, err := u.host.Room(ctx, roomID)
	if err != nil {
		return err
	}
	if room.Kind != kind {
		return fmt.Errorf("%w: %s is not a %s space", domainerrors.ErrInvalidInput, roomID, kind)
	}
	return nil
}
