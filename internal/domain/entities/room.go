package entities

import (
	"encoding/json"
	"time"

	"github.com/volatiletech/null/v8"
)

// RoomKind is the structured tag a room carries from provisioning
type RoomKind string

const (
	RoomKindDAO          RoomKind = "dao"
	RoomKindDCA          RoomKind = "dca"
	RoomKindGOV          RoomKind = "gov"
	RoomKindLedger       RoomKind = "ledger"
	RoomKindContribution RoomKind = "contribution"
	RoomKindAgenda       RoomKind = "agenda"
	RoomKindRoom         RoomKind = "room"
)

func (k RoomKind) Valid() bool {
	switch k {
	case RoomKindDAO, RoomKindDCA, RoomKindGOV, RoomKindLedger, RoomKindContribution, RoomKindAgenda, RoomKindRoom:
		return true
	}
	return false
}

// IsSpace reports whether rooms of this kind hold child rooms
func (k RoomKind) IsSpace() bool {
	return k == RoomKindDAO || k == RoomKindDCA || k == RoomKindGOV
}

// Room is a chat room or space
type Room struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Topic             string       `json:"topic"`
	Kind              RoomKind     `json:"kind"`
	ContributionValue null.Float64 `json:"contributionValue"`
	CreatedAt         time.Time    `json:"createdAt"`
}

// Chat event and state types
const (
	EventTypeMessage  = "m.room.message"
	EventTypeReaction = "m.reaction"

	StateTypePowerLevels    = "m.room.power_levels"
	StateTypeDCASettings    = "org.polarius.dca.settings"
	StateTypeGovSettings    = "org.matrix.msc3381.space.gov_settings"
	StateTypeVotingSnapshot = "org.matrix.msc3381.agenda.voting_snapshot"

	RelTypeAnnotation = "m.annotation"

	MsgTypeText      = "m.text"
	FormatCustomHTML = "org.matrix.custom.html"
)

// RoomEvent is one event on a room timeline
type RoomEvent struct {
	ID             string          `json:"eventId"`
	RoomID         string          `json:"roomId"`
	Type           string          `json:"type"`
	Sender         string          `json:"sender"`
	StateKey       null.String     `json:"stateKey"`
	Content        json.RawMessage `json:"content"`
	OriginServerTS time.Time       `json:"originServerTs"`
}

// MessageContent is the body of an m.room.message event
type MessageContent struct {
	MsgType         string             `json:"msgtype"`
	Body            string             `json:"body"`
	Format          string             `json:"format,omitempty"`
	FormattedBody   string             `json:"formatted_body,omitempty"`
	WalletAddress   string             `json:"wallet_address,omitempty"`
	TransactionData *TransactionRecord `json:"transaction_data,omitempty"`
}

// Relation is the m.relates_to block
type Relation struct {
	RelType string `json:"rel_type"`
	EventID string `json:"event_id"`
	Key     string `json:"key,omitempty"`
}

// ReactionContent is the body of an m.reaction event. Verification marks
// the reaction as a contribution approval.
type ReactionContent struct {
	RelatesTo    Relation `json:"m.relates_to"`
	Verification bool     `json:"verification"`
}

// Transaction decodes the ledger record carried by a message, if any
func (e *RoomEvent) Transaction() (*TransactionRecord, bool) {
	if e.Type != EventTypeMessage || len(e.Content) == 0 {
		return nil, false
	}
	var content MessageContent
	if err := json.Unmarshal(e.Content, &content); err != nil || content.TransactionData == nil {
		return nil, false
	}
	return content.TransactionData, true
}

func (e *RoomEvent) Reaction() (*ReactionContent, bool) {
	if e.Type != EventTypeReaction || len(e.Content) == 0 {
		return nil, false
	}
	var content ReactionContent
	if err := json.Unmarshal(e.Content, &content); err != nil {
		return nil, false
	}
	return &content, true
}

// WalletAddress returns the contributor address a message was posted with
func (e *RoomEvent) WalletAddress() string {
	if len(e.Content) == 0 {
		return ""
	}
	var content struct {
		WalletAddress string `json:"wallet_address"`
	}
	if err := json.Unmarshal(e.Content, &content); err != nil {
		return ""
	}
	return content.WalletAddress
}

// PowerLevels is the m.room.power_levels content subset used here
type PowerLevels struct {
	Users        map[string]int `json:"users,omitempty"`
	UsersDefault *int           `json:"users_default,omitempty"`
	Verification *int           `json:"verification,omitempty"`
}

func (p *PowerLevels) UserLevel(userID string) int {
	if lvl, ok := p.Users[userID]; ok {
		return lvl
	}
	if p.UsersDefault != nil {
		return *p.UsersDefault
	}
	return 0
}

func (p *PowerLevels) VerificationLevel(defaultLevel int) int {
	if p.Verification != nil {
		return *p.Verification
	}
	return defaultLevel
}

// DCASettings is stored on the contribution space
type DCASettings struct {
	AllowSelfVerification *bool `json:"allowSelfVerification,omitempty"`
}

func (s *DCASettings) SelfVerificationAllowed(defaultValue bool) bool {
	if s == nil || s.AllowSelfVerification == nil {
		return defaultValue
	}
	return *s.AllowSelfVerification
}

// GovSettingsContent is the state content of the governance space
type GovSettingsContent struct {
	Settings *GovSettings `json:"settings"`
}

type GovSettings struct {
	BTokenRequired float64 `json:"bTokenRequired"`
}

// AgendaPermission is the answer to "may this user open an agenda"
type AgendaPermission struct {
	CanCreate bool    `json:"canCreate"`
	Required  float64 `json:"required"`
	Current   float64 `json:"current"`
	Message   string  `json:"message,omitempty"`
}

// VerifyPermission drives the disabled state of the verify action
type VerifyPermission struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// ProvisionDAOInput describes a DAO room tree to create
type ProvisionDAOInput struct {
	Name              string
	OwnerID           string
	ContributionRooms []string
	ContributionValue float64
	VerificationLevel int
}

// ProvisionedDAO lists the room ids created for a DAO
type ProvisionedDAO struct {
	DAO           *Room   `json:"dao"`
	DCA           *Room   `json:"dca"`
	GOV           *Room   `json:"gov"`
	Ledger        *Room   `json:"ledger"`
	Contributions []*Room `json:"contributions"`
}
