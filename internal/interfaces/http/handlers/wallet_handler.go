package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"dao-ledger.backend/internal/domain/entities"
	domainerrors "dao-ledger.backend/internal/domain/errors"
	"dao-ledger.backend/internal/interfaces/http/response"
)

type walletService interface {
	GenerateMnemonic() (string, error)
	ValidateMnemonic(phrase string) bool
	Create(ctx context.Context, in entities.CreateWalletInput) (*entities.Wallet, error)
	Restore(ctx context.Context, in entities.RestoreWalletInput) (*entities.Wallet, error)
	Get(scopeID string) (*entities.Wallet, bool)
	List() []entities.WalletSummary
	Delete(ctx context.Context, scopeID string) (bool, error)
	UpdateCurrency(ctx context.Context, scopeID, currency string) error
	RefreshBalance(ctx context.Context, scopeID string) (float64, bool, error)
	TotalBalance() float64
	Export(scopeID string) ([]byte, error)
	RestoreFromBackup(ctx context.Context, data []byte) (*entities.Wallet, error)
	ClearAll(ctx context.Context) error
}

// WalletHandler exposes the device wallet store
type WalletHandler struct {
	wallets walletService
}

func NewWalletHandler(wallets walletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

// GenerateMnemonic returns a fresh 12-word phrase
// POST /api/v1/wallets/mnemonic
func (h *WalletHandler) GenerateMnemonic(c *gin.Context) {
	phrase, err := h.wallets.GenerateMnemonic()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"mnemonic": phrase})
}

// ValidateMnemonic
// POST /api/v1/wallets/mnemonic/validate
func (h *WalletHandler) ValidateMnemonic(c *gin.Context) {
	var input struct {
		Mnemonic string `json:"mnemonic" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"valid": h.wallets.ValidateMnemonic(input.Mnemonic)})
}

// CreateWallet creates a wallet for a DAO. The phrase is only returned here.
// POST /api/v1/wallets
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	var input entities.CreateWalletInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	w, err := h.wallets.Create(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{
		"wallet":   w.Summary(),
		"mnemonic": w.Mnemonic,
	})
}

// RestoreWallet rebuilds a wallet from its phrase and recovers its balance
// POST /api/v1/wallets/restore
func (h *WalletHandler) RestoreWallet(c *gin.Context) {
	var input entities.RestoreWalletInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	w, err := h.wallets.Restore(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"wallet": w.Summary()})
}

// ListWallets
// GET /api/v1/wallets
func (h *WalletHandler) ListWallets(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"wallets":      h.wallets.List(),
		"totalBalance": h.wallets.TotalBalance(),
	})
}

// GetWallet
// GET /api/v1/wallets/:daoId
func (h *WalletHandler) GetWallet(c *gin.Context) {
	w, ok := h.wallets.Get(c.Param("daoId"))
	if !ok {
		response.Error(c, domainerrors.ErrWalletNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"wallet": w.Summary()})
}

// DeleteWallet
// DELETE /api/v1/wallets/:daoId
func (h *WalletHandler) DeleteWallet(c *gin.Context) {
	removed, err := h.wallets.Delete(c.Request.Context(), c.Param("daoId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !removed {
		response.Error(c, domainerrors.ErrWalletNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Wallet deleted"})
}

// UpdateCurrency
// PUT /api/v1/wallets/:daoId/currency
func (h *WalletHandler) UpdateCurrency(c *gin.Context) {
	var input entities.UpdateCurrencyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}
	if err := h.wallets.UpdateCurrency(c.Request.Context(), c.Param("daoId"), input.Currency); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Currency updated"})
}

// RefreshBalance re-reads the wallet balance from the DAO ledger
// POST /api/v1/wallets/:daoId/refresh
func (h *WalletHandler) RefreshBalance(c *gin.Context) {
	balance, changed, err := h.wallets.RefreshBalance(c.Request.Context(), c.Param("daoId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"balance": balance, "changed": changed})
}

// ExportWallet returns a backup including the recovery phrase
// GET /api/v1/wallets/:daoId/export
func (h *WalletHandler) ExportWallet(c *gin.Context) {
	data, err := h.wallets.Export(c.Param("daoId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/json", data)
}

// ImportWallet restores a wallet from an export
// POST /api/v1/wallets/import
func (h *WalletHandler) ImportWallet(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil || len(data) == 0 {
		response.Error(c, domainerrors.BadRequest("backup body is required"))
		return
	}
	w, err := h.wallets.RestoreFromBackup(c.Request.Context(), data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"wallet": w.Summary()})
}

// ClearWallets removes every wallet from the device
// DELETE /api/v1/wallets
func (h *WalletHandler) ClearWallets(c *gin.Context) {
	if err := h.wallets.ClearAll(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "All wallets removed"})
}
