package entities

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
)

const (
	// TransferRecordType is the type of every peer transfer
	TransferRecordType = "PoC:transfer"
	// MintRecordPrefix prefixes mint types: "PoC: <contribution room>"
	MintRecordPrefix = "PoC: "
	// MintSenderSuffix is appended to the DAO name in a mint's from field
	MintSenderSuffix = " minting"
)

// RecordKind classifies a ledger record
type RecordKind string

const (
	RecordKindMint     RecordKind = "mint"
	RecordKindTransfer RecordKind = "transfer"
)

// TransactionRecord is the structured payload carried by a ledger message.
// Balance is the legacy single balance field; newer records also carry
// SenderBalance and RecipientBalance.
type TransactionRecord struct {
	Type             string       `json:"type"`
	From             string       `json:"from"`
	To               string       `json:"to"`
	Amount           float64      `json:"amount"`
	Balance          null.Float64 `json:"balance"`
	SenderBalance    null.Float64 `json:"senderBalance"`
	RecipientBalance null.Float64 `json:"recipientBalance"`
	Verifier         string       `json:"verifier"`
	VerifierUserID   string       `json:"verifierUserId"`
	Timestamp        Timestamp    `json:"timestamp"`
	TxHash           string       `json:"txHash"`
	Signature        string       `json:"signature,omitempty"`
	DataToSign       string       `json:"dataToSign,omitempty"`
}

// UnmarshalJSON decodes field by field when the record as a whole does not
// decode, so one malformed field does not hide the balances of the record.
func (r *TransactionRecord) UnmarshalJSON(data []byte) error {
	type plain TransactionRecord
	var p plain
	if err := json.Unmarshal(data, &p); err == nil {
		*r = TransactionRecord(p)
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var out TransactionRecord
	targets := map[string]interface{}{
		"type":             &out.Type,
		"from":             &out.From,
		"to":               &out.To,
		"amount":           &out.Amount,
		"balance":          &out.Balance,
		"senderBalance":    &out.SenderBalance,
		"recipientBalance": &out.RecipientBalance,
		"verifier":         &out.Verifier,
		"verifierUserId":   &out.VerifierUserID,
		"timestamp":        &out.Timestamp,
		"txHash":           &out.TxHash,
		"signature":        &out.Signature,
		"dataToSign":       &out.DataToSign,
	}
	for name, dst := range targets {
		if raw, ok := fields[name]; ok {
			_ = json.Unmarshal(raw, dst)
		}
	}
	*r = out
	return nil
}

func (r *TransactionRecord) Kind() RecordKind {
	if r.Type == TransferRecordType {
		return RecordKindTransfer
	}
	return RecordKindMint
}

// CanonicalString is the pipe-joined form that gets signed
func (r *TransactionRecord) CanonicalString() string {
	return strings.Join([]string{
		r.Type,
		r.From,
		r.To,
		FormatAmount(r.Amount),
		strconv.FormatInt(r.Timestamp.UnixMilli(), 10),
		r.TxHash,
	}, "|")
}

// Touches reports whether address is the sender or the recipient
func (r *TransactionRecord) Touches(address string) bool {
	return strings.EqualFold(r.To, address) || strings.EqualFold(r.From, address)
}

// BalanceFor returns the post-transaction balance this record states for
// address. The recipient side wins when both sides match.
func (r *TransactionRecord) BalanceFor(address string) (float64, bool) {
	switch {
	case strings.EqualFold(r.To, address):
		return firstValid(r.RecipientBalance, r.Balance)
	case strings.EqualFold(r.From, address):
		return firstValid(r.SenderBalance, r.Balance)
	}
	return 0, false
}

func firstValid(values ...null.Float64) (float64, bool) {
	for _, v := range values {
		if v.Valid {
			return v.Float64, true
		}
	}
	return 0, false
}

// FormatAmount renders a number the shortest way that round-trips
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Timestamp is written as Unix milliseconds. Older transfer records carry an
// RFC 3339 string, which is accepted on read.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Millisecond)}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(t.UnixMilli(), 10)), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return err
		}
		t.Time = parsed.UTC()
		return nil
	}
	ms, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return errors.New("timestamp must be a number or an RFC 3339 string")
	}
	t.Time = time.UnixMilli(int64(ms)).UTC()
	return nil
}

// LedgerEntry is a decoded record together with the event that carried it
type LedgerEntry struct {
	EventID string            `json:"eventId"`
	Record  TransactionRecord `json:"record"`
}

// HistoryEntry is a ledger record seen from one address
type HistoryEntry struct {
	EventID   string            `json:"eventId"`
	Direction string            `json:"direction"`
	Balance   null.Float64      `json:"balance"`
	Record    TransactionRecord `json:"record"`
}

const (
	DirectionIssued   = "issued"
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

// TransferInput is a request to move tokens out of a local wallet
type TransferInput struct {
	Recipient string  `json:"recipient" binding:"required" validate:"required"`
	Amount    float64 `json:"amount" binding:"required" validate:"gt=0"`
}

// TransferResult reports the outcome of a transfer
type TransferResult struct {
	EventID          string            `json:"eventId"`
	SenderBalance    float64           `json:"senderBalance"`
	RecipientBalance float64           `json:"recipientBalance"`
	Record           TransactionRecord `json:"record"`
}
