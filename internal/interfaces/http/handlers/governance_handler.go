package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"dao-ledger.backend/internal/domain/entities"
	domainerrors "dao-ledger.backend/internal/domain/errors"
	"dao-ledger.backend/internal/interfaces/http/response"
)

type governanceService interface {
	CanCreateAgenda(ctx context.Context, govSpaceID string) (*entities.AgendaPermission, error)
	GovSettings(ctx context.Context, govSpaceID string) (*entities.GovSettings, error)
	SetGovSettings(ctx context.Context, govSpaceID, senderID string, settings entities.GovSettings) error
	DCASettings(ctx context.Context, dcaSpaceID string) (*entities.DCASettings, error)
	SetDCASettings(ctx context.Context, dcaSpaceID, senderID string, settings entities.DCASettings) error
	ToggleSelfVerification(ctx context.Context, dcaSpaceID, senderID string) (bool, error)
}

type snapshotService interface {
	CreateAndSave(ctx context.Context, agendaRoomID, senderID string, in entities.CreateSnapshotInput) (*entities.AgendaVotingSnapshot, error)
	Load(ctx context.Context, agendaRoomID string) (*entities.AgendaVotingSnapshot, error)
	VotingPower(ctx context.Context, agendaRoomID, address string) (int64, error)
}

// GovernanceHandler serves space settings and agenda voting snapshots
type GovernanceHandler struct {
	governance governanceService
	snapshots  snapshotService
}

func NewGovernanceHandler(governance governanceService, snapshots snapshotService) *GovernanceHandler {
	return &GovernanceHandler{governance: governance, snapshots: snapshots}
}

// AgendaPermission
// GET /api/v1/gov/:govId/agenda-permission
func (h *GovernanceHandler) AgendaPermission(c *gin.Context) {
	perm, err := h.governance.CanCreateAgenda(c.Request.Context(), c.Param("govId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"permission": perm})
}

// GetGovSettings returns null settings when none were saved
// GET /api/v1/gov/:govId/settings
func (h *GovernanceHandler) GetGovSettings(c *gin.Context) {
	settings, err := h.governance.GovSettings(c.Request.Context(), c.Param("govId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"settings": settings})
}

// PutGovSettings
// PUT /api/v1/gov/:govId/settings
func (h *GovernanceHandler) PutGovSettings(c *gin.Context) {
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}
	var input entities.GovSettings
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}
	if input.BTokenRequired < 0 {
		response.Error(c, domainerrors.BadRequest("bTokenRequired must not be negative"))
		return
	}
	if err := h.governance.SetGovSettings(c.Request.Context(), c.Param("govId"), accountID, input); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"settings": input})
}

// GetDCASettings
// GET /api/v1/dca/:dcaId/settings
func (h *GovernanceHandler) GetDCASettings(c *gin.Context) {
	settings, err := h.governance.DCASettings(c.Request.Context(), c.Param("dcaId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"settings": settings})
}

// PutDCASettings
// PUT /api/v1/dca/:dcaId/settings
func (h *GovernanceHandler) PutDCASettings(c *gin.Context) {
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}
	var input entities.DCASettings
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}
	if err := h.governance.SetDCASettings(c.Request.Context(), c.Param("dcaId"), accountID, input); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"settings": input})
}

// ToggleSelfVerification flips the self-verification flag of a contribution space
// POST /api/v1/dca/:dcaId/settings/toggle-self
func (h *GovernanceHandler) ToggleSelfVerification(c *gin.Context) {
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}
	allowed, err := h.governance.ToggleSelfVerification(c.Request.Context(), c.Param("dcaId"), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"allowSelfVerification": allowed})
}

// CreateSnapshot freezes the voting power of every ledger address
// POST /api/v1/agendas/:roomId/snapshot
func (h *GovernanceHandler) CreateSnapshot(c *gin.Context) {
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}
	var input entities.CreateSnapshotInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}
	snap, err := h.snapshots.CreateAndSave(c.Request.Context(), c.Param("roomId"), accountID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"snapshot": snap})
}

// GetSnapshot
// GET /api/v1/agendas/:roomId/snapshot
func (h *GovernanceHandler) GetSnapshot(c *gin.Context) {
	snap, err := h.snapshots.Load(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"snapshot": snap})
}

// VotingPower
// GET /api/v1/agendas/:roomId/voting-power?address=
func (h *GovernanceHandler) VotingPower(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		response.Error(c, domainerrors.BadRequest("address is required"))
		return
	}
	power, err := h.snapshots.VotingPower(c.Request.Context(), c.Param("roomId"), address)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"address": address, "votingPower": power})
}
