package usecases

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"dao-ledger.backend/internal/domain/entities"
)

const ledgerMessageHeading = "🏦 TRANSACTION RECORD 🏦"

// ledgerMessage renders a record as the text + HTML message posted to a
// ledger room. The record itself travels in transaction_data.
func ledgerMessage(rec *entities.TransactionRecord, unit string) (*entities.MessageContent, error) {
	pretty, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction record: %w", err)
	}

	rows := [][2]string{
		{"Type", rec.Type},
		{"From", rec.From},
		{"To", rec.To},
		{"Amount", entities.FormatAmount(rec.Amount) + unit},
	}
	if rec.Kind() == entities.RecordKindTransfer {
		rows = append(rows,
			[2]string{"Sender Balance", balanceCell(rec.SenderBalance.Float64, rec.SenderBalance.Valid, unit)},
			[2]string{"Recipient Balance", balanceCell(rec.RecipientBalance.Float64, rec.RecipientBalance.Valid, unit)},
		)
	} else {
		rows = append(rows, [2]string{"Balance", balanceCell(rec.Balance.Float64, rec.Balance.Valid, unit)})
	}
	rows = append(rows,
		[2]string{"Verifier", rec.Verifier},
		[2]string{"Verifier ID", "<code>" + html.EscapeString(rec.VerifierUserID) + "</code>"},
		[2]string{"Timestamp", rec.Timestamp.UTC().Format(time.RFC3339Nano)},
		[2]string{"TX Hash", "<code>" + html.EscapeString(rec.TxHash) + "</code>"},
		[2]string{"Digital Signature", "<code>" + html.EscapeString(shortSignature(rec.Signature)) + "</code>"},
		[2]string{"Signature Status", signatureStatus(rec.Signature)},
	)

	var b strings.Builder
	b.WriteString("<h3>" + ledgerMessageHeading + "</h3>\n")
	b.WriteString(`<table border="1" style="border-collapse: collapse; width: 100%;">` + "\n")
	for _, r := range rows {
		value := r[1]
		if !strings.HasPrefix(value, "<code>") {
			value = html.EscapeString(value)
		}
		fmt.Fprintf(&b, "<tr><td><b>%s</b></td><td>%s</td></tr>\n", r[0], value)
	}
	b.WriteString("</table>")

	return &entities.MessageContent{
		MsgType:         entities.MsgTypeText,
		Body:            ledgerMessageHeading + "\n" + string(pretty),
		Format:          entities.FormatCustomHTML,
		FormattedBody:   b.String(),
		TransactionData: rec,
	}, nil
}

func balanceCell(v float64, ok bool, unit string) string {
	if !ok {
		return "N/A"
	}
	return entities.FormatAmount(v) + unit
}

func shortSignature(sig string) string {
	if sig == "" {
		return "N/A"
	}
	if len(sig) > 32 {
		return sig[:32] + "..."
	}
	return sig
}

func signatureStatus(sig string) string {
	if sig == "" {
		return "❌ Unsigned"
	}
	return "✅ Signed"
}
