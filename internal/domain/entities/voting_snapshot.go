package entities

import "strings"

// VoterSnapshot is one address' balance frozen at agenda creation
type VoterSnapshot struct {
	WalletAddress string  `json:"walletAddress"`
	Balance       float64 `json:"balance"`
	VotingPower   int64   `json:"votingPower"`
	Timestamp     int64   `json:"timestamp"`
}

// AgendaVotingSnapshot is saved as state on the agenda room
type AgendaVotingSnapshot struct {
	AgendaRoomID      string          `json:"agendaRoomId"`
	AgendaName        string          `json:"agendaName"`
	SnapshotTimestamp int64           `json:"snapshotTimestamp"`
	TotalVotingPower  int64           `json:"totalVotingPower"`
	WalletSnapshots   []VoterSnapshot `json:"walletSnapshots"`
}

// VotingPowerOf returns the frozen power of address, 0 when absent
func (s *AgendaVotingSnapshot) VotingPowerOf(address string) int64 {
	for _, ws := range s.WalletSnapshots {
		if strings.EqualFold(ws.WalletAddress, address) {
			return ws.VotingPower
		}
	}
	return 0
}

// VotingSnapshotContent wraps the snapshot in the state event body
type VotingSnapshotContent struct {
	Snapshot *AgendaVotingSnapshot `json:"snapshot"`
}

// CreateSnapshotInput requests a snapshot for an agenda room
type CreateSnapshotInput struct {
	GovSpaceID string `json:"govSpaceId" binding:"required" validate:"required"`
	AgendaName string `json:"agendaName"`
}
