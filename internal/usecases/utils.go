package usecases

import (
	"math"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"dao-ledger.backend/internal/domain/entities"
)

// validate checks usecase inputs against their validate tags
var validate = validator.New()

// votingPower floors a balance to whole tokens; negatives count as zero
func votingPower(balance float64) int64 {
	if balance <= 0 {
		return 0
	}
	return int64(math.Floor(balance))
}

func sameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func sortProtocolBalances(list []entities.ProtocolBalance) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Balance > list[j].Balance
	})
}
