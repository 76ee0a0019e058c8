package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dao-ledger.backend/internal/domain/entities"
	domainerrors "dao-ledger.backend/internal/domain/errors"
	"dao-ledger.backend/pkg/crypto"
)

type transferFixture struct {
	host    *fakeHost
	wallets *WalletStore
	uc      *TransferUsecase
	wallet  *entities.Wallet
}

func newTransferFixture(t *testing.T, startBalance float64) *transferFixture {
	t.Helper()
	h := newFakeHost()
	daoTree(h)
	scanner := NewLedgerScanner(h, ScanConfig{BalanceTimeout: time.Second})
	addr := abandonAddress(t)
	if startBalance > 0 {
		h.appendRecord("!ledger", toRecord(addr, startBalance))
	}
	wallets := NewWalletStore(newMemKV(), crypto.NewKeyring(), scanner, WalletDefaults{})
	w, err := wallets.Restore(context.Background(), entities.RestoreWalletInput{DaoID: "!dao", Mnemonic: abandonPhrase})
	require.NoError(t, err)
	uc := NewTransferUsecase(h, scanner, wallets, "")
	uc.now = func() time.Time { return time.UnixMilli(1760000000000) }
	return &transferFixture{host: h, wallets: wallets, uc: uc, wallet: w}
}

func TestTransfer_Success(t *testing.T) {
	f := newTransferFixture(t, 100)
	ctx := context.Background()
	f.host.appendRecord("!ledger", toRecord(addrB, 7))

	res, err := f.uc.Send(ctx, "!dao", "@alice:example.org", entities.TransferInput{Recipient: addrB, Amount: 30})
	require.NoError(t, err)
	assert.Equal(t, 70.0, res.SenderBalance)
	assert.Equal(t, 37.0, res.RecipientBalance)
	assert.NotEmpty(t, res.EventID)

	rec := res.Record
	assert.Equal(t, entities.TransferRecordType, rec.Type)
	assert.Equal(t, f.wallet.Address, rec.From)
	assert.Equal(t, "alice", rec.Verifier)
	assert.Equal(t, "@alice:example.org", rec.VerifierUserID)
	assert.Regexp(t, `^[0-9a-z]{6}$`, rec.TxHash)
	assert.True(t, crypto.Verify(f.wallet.PrivateKey, f.wallet.Address, rec.DataToSign, rec.Signature))

	w, _ := f.wallets.Get("!dao")
	assert.Equal(t, 70.0, w.Balance)

	scanner := NewLedgerScanner(f.host, ScanConfig{})
	assert.Equal(t, 70.0, scanner.LatestBalance(ctx, "!ledger", f.wallet.Address))
	assert.Equal(t, 37.0, scanner.LatestBalance(ctx, "!ledger", addrB))
}

func TestTransfer_Rejections(t *testing.T) {
	f := newTransferFixture(t, 10)
	ctx := context.Background()

	cases := []struct {
		name  string
		scope string
		in    entities.TransferInput
		want  error
	}{
		{"bad recipient", "!dao", entities.TransferInput{Recipient: "carol", Amount: 1}, domainerrors.ErrInvalidInput},
		{"zero amount", "!dao", entities.TransferInput{Recipient: addrB, Amount: 0}, domainerrors.ErrInvalidInput},
		{"negative amount", "!dao", entities.TransferInput{Recipient: addrB, Amount: -5}, domainerrors.ErrInvalidInput},
		{"unknown wallet", "!nope", entities.TransferInput{Recipient: addrB, Amount: 1}, domainerrors.ErrWalletNotFound},
		{"self", "!dao", entities.TransferInput{Recipient: f.wallet.Address, Amount: 1}, domainerrors.ErrSelfTransfer},
		{"too much", "!dao", entities.TransferInput{Recipient: addrB, Amount: 11}, domainerrors.ErrInsufficientFunds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.uc.Send(ctx, tc.scope, "@alice:example.org", tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Len(t, f.host.records("!ledger"), 1)
}

func TestTransfer_NoLedger(t *testing.T) {
	f := newTransferFixture(t, 10)
	delete(f.host.parents, "!ledger")

	_, err := f.uc.Send(context.Background(), "!dao", "@alice:example.org", entities.TransferInput{Recipient: addrB, Amount: 1})
	assert.ErrorIs(t, err, domainerrors.ErrLedgerUnavailable)
}

func TestTransfer_AppendFailureLeavesBalance(t *testing.T) {
	f := newTransferFixture(t, 10)
	f.host.sendErr = errBoom

	_, err := f.uc.Send(context.Background(), "!dao", "@alice:example.org", entities.TransferInput{Recipient: addrB, Amount: 4})
	assert.ErrorIs(t, err, domainerrors.ErrAppendFailed)
	w, _ := f.wallets.Get("!dao")
	assert.Equal(t, 10.0, w.Balance)
}
