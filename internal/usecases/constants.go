package usecases

import "time"

// Defaults applied when configuration leaves a value unset
const (
	DefaultUnit                     = "B"
	DefaultWalletContributionValue  = 1
	DefaultAwardContributionValue   = 10
	DefaultVerificationThreshold    = 25
	DefaultMaxPaginationRounds      = 10
	DefaultPageSize                 = 50
	DefaultBalanceTimeout           = 5 * time.Second
	agendaPermissionMessageTemplate = "You need at least %vB tokens to create an agenda. Current balance: %.2fB"
)
