package entities

import (
	"time"
)

// Wallet is a device-local wallet scoped to one DAO. The JSON field names
// are the persisted format and must stay stable.
type Wallet struct {
	DaoID             string    `json:"daoId"`
	DaoName           string    `json:"daoName"`
	Mnemonic          string    `json:"mnemonic"`
	Address           string    `json:"address"`
	PrivateKey        string    `json:"privateKey"`
	Currency          string    `json:"currency"`
	Balance           float64   `json:"balance"`
	ContributionValue float64   `json:"contributionValue"`
	CreatedAt         time.Time `json:"createdAt"`
}

// WalletSummary is the secret-free view handed to listeners and API clients
type WalletSummary struct {
	DaoID             string    `json:"daoId"`
	DaoName           string    `json:"daoName"`
	Address           string    `json:"address"`
	Currency          string    `json:"currency"`
	Balance           float64   `json:"balance"`
	ContributionValue float64   `json:"contributionValue"`
	CreatedAt         time.Time `json:"createdAt"`
}

func (w *Wallet) Summary() WalletSummary {
	return WalletSummary{
		DaoID:             w.DaoID,
		DaoName:           w.DaoName,
		Address:           w.Address,
		Currency:          w.Currency,
		Balance:           w.Balance,
		ContributionValue: w.ContributionValue,
		CreatedAt:         w.CreatedAt,
	}
}

// WalletBackup is the export format. It contains the recovery phrase.
type WalletBackup struct {
	Version           int       `json:"version"`
	DaoID             string    `json:"daoId"`
	DaoName           string    `json:"daoName"`
	Mnemonic          string    `json:"mnemonic"`
	Address           string    `json:"address"`
	Currency          string    `json:"currency"`
	ContributionValue float64   `json:"contributionValue"`
	ExportedAt        time.Time `json:"exportedAt"`
}

// ProtocolBalance is one DAO's ledger balance for a local address
type ProtocolBalance struct {
	DaoID   string  `json:"daoId"`
	DaoName string  `json:"daoName"`
	Address string  `json:"address"`
	Balance float64 `json:"balance"`
}

// CreateWalletInput represents input for creating a DAO wallet
type CreateWalletInput struct {
	DaoID             string  `json:"daoId" binding:"required" validate:"required"`
	DaoName           string  `json:"daoName"`
	Currency          string  `json:"currency" validate:"omitempty,max=16"`
	ContributionValue float64 `json:"contributionValue" validate:"gte=0"`
}

// RestoreWalletInput represents input for restoring a wallet from a phrase
type RestoreWalletInput struct {
	DaoID             string  `json:"daoId" binding:"required" validate:"required"`
	DaoName           string  `json:"daoName"`
	Currency          string  `json:"currency" validate:"omitempty,max=16"`
	ContributionValue float64 `json:"contributionValue" validate:"gte=0"`
	Mnemonic          string  `json:"mnemonic" binding:"required" validate:"required"`
}

// UpdateCurrencyInput changes a wallet's display unit
type UpdateCurrencyInput struct {
	Currency string `json:"currency" binding:"required" validate:"required,max=16"`
}
