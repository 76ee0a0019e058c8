package entities

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
)

func TestTransactionRecord_BalanceFor(t *testing.T) {
	transfer := TransactionRecord{
		Type:             TransferRecordType,
		From:             "0xAAA",
		To:               "0xbbb",
		Balance:          null.Float64From(7),
		SenderBalance:    null.Float64From(7),
		RecipientBalance: null.Float64From(13),
	}
	got, ok := transfer.BalanceFor("0xaaa")
	assert.True(t, ok)
	assert.Equal(t, 7.0, got)

	got, ok = transfer.BalanceFor("0xBBB")
	assert.True(t, ok)
	assert.Equal(t, 13.0, got)

	_, ok = transfer.BalanceFor("0xccc")
	assert.False(t, ok)

	legacy := TransactionRecord{From: "0x1", To: "0x2", Balance: null.Float64From(4)}
	got, ok = legacy.BalanceFor("0x2")
	assert.True(t, ok)
	assert.Equal(t, 4.0, got)

	empty := TransactionRecord{From: "0x1", To: "0x2"}
	_, ok = empty.BalanceFor("0x2")
	assert.False(t, ok)
}

func TestTransactionRecord_KindAndCanonical(t *testing.T) {
	ts := NewTimestamp(time.UnixMilli(1700000000123))
	r := TransactionRecord{
		Type:      "PoC: Research",
		From:      "Acme minting",
		To:        "0xabc",
		Amount:    2.5,
		Timestamp: ts,
		TxHash:    "0000beef",
	}
	assert.Equal(t, RecordKindMint, r.Kind())
	assert.Equal(t, "PoC: Research|Acme minting|0xabc|2.5|1700000000123|0000beef", r.CanonicalString())

	r.Type = TransferRecordType
	assert.Equal(t, RecordKindTransfer, r.Kind())
	assert.True(t, r.Touches("0xABC"))
	assert.False(t, r.Touches("0xdef"))
}

func TestTimestamp_JSON(t *testing.T) {
	ts := NewTimestamp(time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC))
	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, "1714557600123", string(data))

	var fromMillis Timestamp
	require.NoError(t, json.Unmarshal(data, &fromMillis))
	assert.True(t, ts.Equal(fromMillis.Time))

	var fromISO Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2024-05-01T10:00:00.123Z"`), &fromISO))
	assert.True(t, ts.Equal(fromISO.Time))

	var bad Timestamp
	assert.Error(t, json.Unmarshal([]byte(`true`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &bad))

	var zero Timestamp
	require.NoError(t, json.Unmarshal([]byte(`null`), &zero))
	assert.True(t, zero.IsZero())
}

func TestRoomEvent_Transaction(t *testing.T) {
	ev := RoomEvent{
		Type:    EventTypeMessage,
		Content: json.RawMessage(`{"msgtype":"m.text","body":"x","transaction_data":{"type":"PoC:transfer","from":"0x1","to":"0x2","amount":3,"senderBalance":null,"recipientBalance":9,"timestamp":"2024-01-01T00:00:00.000Z","txHash":"abc123"}}`),
	}
	rec, ok := ev.Transaction()
	require.True(t, ok)
	assert.Equal(t, 3.0, rec.Amount)
	assert.False(t, rec.SenderBalance.Valid)
	assert.Equal(t, 9.0, rec.RecipientBalance.Float64)

	plain := RoomEvent{Type: EventTypeMessage, Content: json.RawMessage(`{"msgtype":"m.text","body":"hi"}`)}
	_, ok = plain.Transaction()
	assert.False(t, ok)

	reaction := RoomEvent{Type: EventTypeReaction, Content: json.RawMessage(`{"transaction_data":{}}`)}
	_, ok = reaction.Transaction()
	assert.False(t, ok)
}

func TestRoomEvent_TransactionMalformedFieldKeepsBalances(t *testing.T) {
	ev := RoomEvent{
		Type:    EventTypeMessage,
		Content: json.RawMessage(`{"msgtype":"m.text","body":"x","transaction_data":{"type":"PoC: general","from":"Acme minting","to":"0x2","amount":"5","balance":12,"recipientBalance":12,"timestamp":"yesterday"}}`),
	}
	rec, ok := ev.Transaction()
	require.True(t, ok)
	assert.Equal(t, "0x2", rec.To)
	assert.Equal(t, 12.0, rec.RecipientBalance.Float64)
	assert.Equal(t, 0.0, rec.Amount)
	assert.True(t, rec.Timestamp.IsZero())

	broken := RoomEvent{Type: EventTypeMessage, Content: json.RawMessage(`{"msgtype":"m.text","transaction_data":"nope"}`)}
	_, ok = broken.Transaction()
	assert.False(t, ok)
}

func TestRoomEvent_ReactionAndWalletAddress(t *testing.T) {
	ev := RoomEvent{
		Type:    EventTypeReaction,
		Content: json.RawMessage(`{"m.relates_to":{"rel_type":"m.annotation","event_id":"$e1","key":"✅"},"verification":true}`),
	}
	r, ok := ev.Reaction()
	require.True(t, ok)
	assert.Equal(t, RelTypeAnnotation, r.RelatesTo.RelType)
	assert.Equal(t, "$e1", r.RelatesTo.EventID)
	assert.True(t, r.Verification)

	msg := RoomEvent{Type: EventTypeMessage, Content: json.RawMessage(`{"body":"did work","wallet_address":"0xabc"}`)}
	assert.Equal(t, "0xabc", msg.WalletAddress())
	assert.Equal(t, "", (&RoomEvent{}).WalletAddress())
}

func TestPowerLevels(t *testing.T) {
	def := 10
	verification := 50
	p := PowerLevels{Users: map[string]int{"@admin:x": 100}, UsersDefault: &def, Verification: &verification}
	assert.Equal(t, 100, p.UserLevel("@admin:x"))
	assert.Equal(t, 10, p.UserLevel("@other:x"))
	assert.Equal(t, 50, p.VerificationLevel(25))

	var empty PowerLevels
	assert.Equal(t, 0, empty.UserLevel("@a:x"))
	assert.Equal(t, 25, empty.VerificationLevel(25))
}

func TestDCASettings(t *testing.T) {
	var nilSettings *DCASettings
	assert.True(t, nilSettings.SelfVerificationAllowed(true))
	off := false
	assert.False(t, (&DCASettings{AllowSelfVerification: &off}).SelfVerificationAllowed(true))
	assert.False(t, (&DCASettings{}).SelfVerificationAllowed(false))
}

func TestWalletJSONRoundTrip(t *testing.T) {
	w := Wallet{
		DaoID:             "!dao:x",
		DaoName:           "Acme",
		Mnemonic:          "abandon about",
		Address:           "0xabc",
		PrivateKey:        "ff",
		Currency:          "B",
		Balance:           12.5,
		ContributionValue: 1,
		CreatedAt:         time.Date(2024, 1, 2, 3, 4, 5, 6000000, time.UTC),
	}
	data, err := json.Marshal([]Wallet{w})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"daoId":"!dao:x"`)
	assert.Contains(t, string(data), `"privateKey":"ff"`)

	var back []Wallet
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []Wallet{w}, back)

	s := w.Summary()
	assert.Equal(t, w.Address, s.Address)
	sj, _ := json.Marshal(s)
	assert.NotContains(t, string(sj), "mnemonic")
	assert.NotContains(t, string(sj), "privateKey")
}

func TestVotingPowerOf(t *testing.T) {
	s := AgendaVotingSnapshot{WalletSnapshots: []VoterSnapshot{{WalletAddress: "0xAbC", VotingPower: 12}}}
	assert.Equal(t, int64(12), s.VotingPowerOf("0xabc"))
	assert.Equal(t, int64(0), s.VotingPowerOf("0xdef"))
}

func TestRoomKind(t *testing.T) {
	assert.True(t, RoomKindLedger.Valid())
	assert.False(t, RoomKind("space").Valid())
	assert.True(t, RoomKindDCA.IsSpace())
	assert.False(t, RoomKindLedger.IsSpace())
}
