package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"dao-ledger.backend/internal/domain/entities"
	domainerrors "dao-ledger.backend/internal/domain/errors"
	"dao-ledger.backend/internal/domain/repositories"
	"dao-ledger.backend/pkg/crypto"
	"dao-ledger.backend/pkg/logger"
	"dao-ledger.backend/pkg/metrics"
	"dao-ledger.backend/pkg/utils"
)

type transferWallets interface {
	Get(scopeID string) (*entities.Wallet, bool)
	SetBalance(ctx context.Context, scopeID string, value float64) error
}

// TransferUsecase sends tokens from a local wallet to another address
type TransferUsecase struct {
	sender  repositories.MessageSender
	ledger  balanceLookup
	wallets transferWallets
	unit    string
	now     func() time.Time
}

func NewTransferUsecase(sender repositories.MessageSender, ledger balanceLookup, wallets transferWallets, unit string) *TransferUsecase {
	if unit == "" {
		unit = DefaultUnit
	}
	return &TransferUsecase{
		sender:  sender,
		ledger:  ledger,
		wallets: wallets,
		unit:    unit,
		now:     time.Now,
	}
}

// Send records a transfer in the scope's ledger and updates the sender's
// cached balance. Unlike mint recording, an append failure is returned.
func (u *TransferUsecase) Send(ctx context.Context, scopeID, accountID string, in entities.TransferInput) (*entities.TransferResult, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrInvalidInput, err)
	}
	recipient := strings.TrimSpace(in.Recipient)
	if !common.IsHexAddress(recipient) {
		return nil, fmt.Errorf("%w: recipient is not a wallet address", domainerrors.ErrInvalidInput)
	}

	w, ok := u.wallets.Get(scopeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domainerrors.ErrWalletNotFound, scopeID)
	}
	if strings.EqualFold(w.Address, recipient) {
		return nil, domainerrors.ErrSelfTransfer
	}
	if in.Amount > w.Balance {
		return nil, fmt.Errorf("%w: balance %s%s, requested %s%s", domainerrors.ErrInsufficientFunds,
			entities.FormatAmount(w.Balance), u.unit, entities.FormatAmount(in.Amount), u.unit)
	}

	ledger, err := u.ledger.FindLedgerRoom(ctx, scopeID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrLedgerUnavailable, err)
	}
	if ledger == nil {
		return nil, fmt.Errorf("%w: no ledger room for %s", domainerrors.ErrLedgerUnavailable, scopeID)
	}

	senderNew := w.Balance - in.Amount
	recipientNew := u.ledger.BoundedLatestBalance(ctx, ledger.ID, recipient) + in.Amount

	rec := &entities.TransactionRecord{
		Type:             entities.TransferRecordType,
		From:             w.Address,
		To:               recipient,
		Amount:           in.Amount,
		Balance:          null.Float64From(senderNew),
		SenderBalance:    null.Float64From(senderNew),
		RecipientBalance: null.Float64From(recipientNew),
		Verifier:         utils.Localpart(accountID),
		VerifierUserID:   accountID,
		Timestamp:        entities.NewTimestamp(u.now()),
	}
	if rec.VerifierUserID == "" {
		rec.VerifierUserID = "unknown"
	}
	hash, err := crypto.RandomTxHash()
	if err != nil {
		return nil, fmt.Errorf("failed to generate tx hash: %w", err)
	}
	rec.TxHash = hash
	rec.DataToSign = rec.CanonicalString()
	rec.Signature = crypto.Sign(w.PrivateKey, w.Address, rec.DataToSign)

	msg, err := ledgerMessage(rec, u.unit)
	if err != nil {
		return nil, err
	}
	eventID, err := u.sender.SendEvent(ctx, ledger.ID, accountID, entities.EventTypeMessage, msg)
	if err != nil {
		metrics.AppendFailures.WithLabelValues(string(entities.RecordKindTransfer)).Inc()
		logger.Error(ctx, "Transfer append failed",
			zap.String("ledger_id", ledger.ID), zap.String("tx_hash", rec.TxHash), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrAppendFailed, err)
	}

	if err := u.wallets.SetBalance(ctx, scopeID, senderNew); err != nil {
		// the ledger already holds the record; the next refresh repairs the cache
		logger.Error(ctx, "Sender balance update failed after transfer",
			zap.String("dao_id", scopeID), zap.Error(err))
	}

	logger.Info(ctx, "Transfer recorded",
		zap.String("dao_id", scopeID),
		zap.String("from", w.Address),
		zap.String("to", recipient),
		zap.Float64("amount", in.Amount),
		zap.String("event_id", eventID),
	)
	return &entities.TransferResult{
		EventID:          eventID,
		SenderBalance:    senderNew,
		RecipientBalance: recipientNew,
		Record:           *rec,
	}, nil
}
