package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"dao-ledger.backend/internal/domain/entities"
	domainerrors "dao-ledger.backend/internal/domain/errors"
	"dao-ledger.backend/internal/interfaces/http/middleware"
	"dao-ledger.backend/internal/interfaces/http/response"
	"dao-ledger.backend/internal/usecases"
	"dao-ledger.backend/pkg/utils"
)

type transferService interface {
	Send(ctx context.Context, scopeID, accountID string, in entities.TransferInput) (*entities.TransferResult, error)
}

type historyService interface {
	History(ctx context.Context, scopeID, address string) ([]entities.HistoryEntry, error)
	ProtocolBalances(ctx context.Context) ([]entities.ProtocolBalance, error)
}

type contributionService interface {
	HandleReaction(ctx context.Context, ev *entities.RoomEvent) *usecases.AwardOutcome
	CanVerify(ctx context.Context, roomID, targetEventID, verifierID string) entities.VerifyPermission
	SubmitContribution(ctx context.Context, roomID, userID, body string) (string, error)
}

type reactionHost interface {
	SendEvent(ctx context.Context, roomID, senderID, eventType string, content interface{}) (string, error)
	FetchEvent(ctx context.Context, roomID, eventID string) (*entities.RoomEvent, error)
}

// LedgerHandler covers transfers, history and contribution verification
type LedgerHandler struct {
	transfers     transferService
	history       historyService
	contributions contributionService
	host          reactionHost
}

func NewLedgerHandler(transfers transferService, history historyService, contributions contributionService, host reactionHost) *LedgerHandler {
	return &LedgerHandler{
		transfers:     transfers,
		history:       history,
		contributions: contributions,
		host:          host,
	}
}

func accountOrAbort(c *gin.Context) (string, bool) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("account not found in token"))
	}
	return accountID, ok
}

// Transfer moves tokens from the local wallet of a DAO
// POST /api/v1/daos/:daoId/transfers
func (h *LedgerHandler) Transfer(c *gin.Context) {
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}

	var input entities.TransferInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	result, err := h.transfers.Send(c.Request.Context(), c.Param("daoId"), accountID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"transfer": result})
}

// History lists ledger records touching an address, newest first
// GET /api/v1/daos/:daoId/history?address=&page=&limit=
func (h *LedgerHandler) History(c *gin.Context) {
	var pagination utils.PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	entries, err := h.history.History(c.Request.Context(), c.Param("daoId"), c.Query("address"))
	if err != nil {
		response.Error(c, err)
		return
	}

	page, meta := utils.PageOf(entries, utils.GetPaginationParams(pagination.Page, pagination.Limit))
	response.Success(c, http.StatusOK, gin.H{
		"items": page,
		"meta":  meta,
	})
}

// ProtocolBalances reports the recovered balance of every local wallet
// GET /api/v1/protocol-balances
func (h *LedgerHandler) ProtocolBalances(c *gin.Context) {
	balances, err := h.history.ProtocolBalances(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"balances": balances})
}

// SubmitContribution posts a contribution message tagged with the caller's wallet address
// POST /api/v1/rooms/:roomId/contributions
func (h *LedgerHandler) SubmitContribution(c *gin.Context) {
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}

	var input struct {
		Body string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	eventID, err := h.contributions.SubmitContribution(c.Request.Context(), c.Param("roomId"), accountID, input.Body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"eventId": eventID})
}

// React posts a reaction and runs it through contribution verification
// POST /api/v1/rooms/:roomId/reactions
func (h *LedgerHandler) React(c *gin.Context) {
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}

	var input struct {
		EventID      string `json:"eventId" binding:"required"`
		Key          string `json:"key"`
		Verification bool   `json:"verification"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}
	if input.Key == "" {
		input.Key = "✅"
	}

	ctx := c.Request.Context()
	roomID := c.Param("roomId")
	reactionID, err := h.host.SendEvent(ctx, roomID, accountID, entities.EventTypeReaction, entities.ReactionContent{
		RelatesTo: entities.Relation{
			RelType: entities.RelTypeAnnotation,
			EventID: input.EventID,
			Key:     input.Key,
		},
		Verification: input.Verification,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	ev, err := h.host.FetchEvent(ctx, roomID, reactionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"eventId": reactionID,
		"outcome": h.contributions.HandleReaction(ctx, ev),
	})
}

// VerifyPermission tells the caller whether they may verify an event
// GET /api/v1/rooms/:roomId/events/:eventId/verify-permission
func (h *LedgerHandler) VerifyPermission(c *gin.Context) {
	accountID, ok := accountOrAbort(c)
	if !ok {
		return
	}
	perm := h.contributions.CanVerify(c.Request.Context(), c.Param("roomId"), c.Param("eventId"), accountID)
	response.Success(c, http.StatusOK, gin.H{"permission": perm})
}
