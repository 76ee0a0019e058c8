package usecases

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"dao-ledger.backend/internal/domain/entities"
	domainerrors "dao-ledger.backend/internal/domain/errors"
	"dao-ledger.backend/internal/domain/repositories"
	"dao-ledger.backend/pkg/crypto"
	"dao-ledger.backend/pkg/logger"
	"dao-ledger.backend/pkg/metrics"
)

// AwardStage names where a verification stopped
type AwardStage string

const (
	StageValidating AwardStage = "validating"
	StageLocating   AwardStage = "locating"
	StageChecking   AwardStage = "checking"
	StageRecording  AwardStage = "recording"
	StageCrediting  AwardStage = "crediting"
	StageDone       AwardStage = "done"
)

// AwardStatus is the result at that stage
type AwardStatus string

const (
	AwardIgnored   AwardStatus = "ignored"
	AwardDuplicate AwardStatus = "duplicate"
	AwardDenied    AwardStatus = "denied"
	AwardAborted   AwardStatus = "aborted"
	AwardCompleted AwardStatus = "completed"
)

// AwardOutcome describes what one verification event did
type AwardOutcome struct {
	Stage         AwardStage                  `json:"stage"`
	Status        AwardStatus                 `json:"status"`
	Reason        string                      `json:"reason,omitempty"`
	Record        *entities.TransactionRecord `json:"record,omitempty"`
	LedgerEventID string                      `json:"ledgerEventId,omitempty"`
	Credited      bool                        `json:"credited"`
}

// AwarderConfig tunes the verification checks
type AwarderConfig struct {
	Threshold                int
	AllowSelf                bool
	Cooldown                 time.Duration
	DefaultContributionValue float64
	Unit                     string
}

var kudosValuePattern = regexp.MustCompile(`(?i)Kudos Value:\s*(\d+)`)

type balanceLookup interface {
	FindLedgerRoom(ctx context.Context, scopeID string) (*entities.Room, error)
	BoundedLatestBalance(ctx context.Context, roomID, address string) float64
}

type walletBook interface {
	Get(scopeID string) (*entities.Wallet, bool)
	FindByAddress(scopeID, address string) (*entities.Wallet, bool)
	CreditBalance(ctx context.Context, scopeID string, delta float64) (float64, error)
}

// ContributionAwarder turns verification reactions in contribution rooms
// into ledger mint records and local wallet credits.
type ContributionAwarder struct {
	host    repositories.ChatHost
	ledger  balanceLookup
	wallets walletBook
	dedup   repositories.DedupGuard
	cfg     AwarderConfig
	now     func() time.Time

	cooldownMu sync.Mutex
	cooldowns  map[string]time.Time
}

func NewContributionAwarder(host repositories.ChatHost, ledger balanceLookup, wallets walletBook, dedup repositories.DedupGuard, cfg AwarderConfig) *ContributionAwarder {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultVerificationThreshold
	}
	if cfg.DefaultContributionValue <= 0 {
		cfg.DefaultContributionValue = DefaultAwardContributionValue
	}
	if cfg.Unit == "" {
		cfg.Unit = DefaultUnit
	}
	return &ContributionAwarder{
		host:      host,
		ledger:    ledger,
		wallets:   wallets,
		dedup:     dedup,
		cfg:       cfg,
		now:       time.Now,
		cooldowns: make(map[string]time.Time),
	}
}

// awardContext is the resolved DAO chain of a contribution room
type awardContext struct {
	room   *entities.Room
	dca    *entities.Room
	dao    *entities.Room
	ledger *entities.Room
	value  float64
}

// HandleReaction processes one timeline event. Failures never propagate;
// the outcome says where the event stopped.
func (a *ContributionAwarder) HandleReaction(ctx context.Context, ev *entities.RoomEvent) *AwardOutcome {
	out := a.handle(ctx, ev)
	metrics.AwardOutcomes.WithLabelValues(string(out.Stage), string(out.Status)).Inc()
	return out
}

func (a *ContributionAwarder) handle(ctx context.Context, ev *entities.RoomEvent) *AwardOutcome {
	reaction, ok := ev.Reaction()
	if !ok {
		return ignored(StageValidating, "not a reaction")
	}
	if reaction.RelatesTo.RelType != entities.RelTypeAnnotation {
		return ignored(StageValidating, "not an annotation")
	}
	if !reaction.Verification {
		return ignored(StageValidating, "not a verification")
	}
	targetID := reaction.RelatesTo.EventID
	if targetID == "" {
		return ignored(StageValidating, "missing target event")
	}

	dca, err := parentOfKind(ctx, a.host, ev.RoomID, entities.RoomKindDCA)
	if err != nil || dca == nil {
		return ignored(StageValidating, "not a contribution room")
	}

	key := dedupKey(targetID, ev.Sender)
	seen, err := a.dedup.Seen(ctx, key)
	if err != nil {
		logger.Warn(ctx, "Verification dedup check failed", zap.String("event_id", targetID), zap.Error(err))
		return &AwardOutcome{Stage: StageValidating, Status: AwardAborted, Reason: "dedup unavailable"}
	}
	if seen {
		return duplicate(ctx, targetID, ev.Sender)
	}

	target, err := a.host.FetchEvent(ctx, ev.RoomID, targetID)
	if err != nil {
		logger.Warn(ctx, "Verified event could not be fetched",
			zap.String("room_id", ev.RoomID), zap.String("event_id", targetID), zap.Error(err))
		return aborted(StageValidating, "target event unavailable")
	}
	contributorAddr := target.WalletAddress()
	if contributorAddr == "" {
		logger.Info(ctx, "Verified message carries no wallet address", zap.String("event_id", targetID))
		return aborted(StageValidating, "no wallet address")
	}

	actx, err := a.locate(ctx, ev.RoomID, dca)
	if err != nil {
		logger.Warn(ctx, "DAO context could not be resolved", zap.String("room_id", ev.RoomID), zap.Error(err))
		return aborted(StageLocating, "dao context unresolved")
	}

	if reason := a.check(ctx, actx, ev.Sender, target.Sender); reason != "" {
		logger.Info(ctx, "Verification denied",
			zap.String("verifier", ev.Sender), zap.String("contributor", target.Sender), zap.String("reason", reason))
		return &AwardOutcome{Stage: StageChecking, Status: AwardDenied, Reason: reason}
	}

	// claimed only after the checks pass; denied attempts leave no key
	first, err := a.dedup.Acquire(ctx, key)
	if err != nil {
		logger.Warn(ctx, "Verification dedup claim failed", zap.String("event_id", targetID), zap.Error(err))
		return &AwardOutcome{Stage: StageChecking, Status: AwardAborted, Reason: "dedup unavailable"}
	}
	if !first {
		return duplicate(ctx, targetID, ev.Sender)
	}

	out := &AwardOutcome{Stage: StageDone, Status: AwardCompleted}
	if actx.ledger != nil {
		out.Record, out.LedgerEventID = a.record(ctx, actx, contributorAddr, ev.Sender)
	} else {
		logger.Warn(ctx, "No ledger room for DAO, crediting without a record", zap.String("dao_id", actx.dao.ID))
	}

	if _, ok := a.wallets.FindByAddress(actx.dao.ID, contributorAddr); ok {
		if _, err := a.wallets.CreditBalance(ctx, actx.dao.ID, actx.value); err != nil {
			logger.Error(ctx, "Local wallet credit failed", zap.String("dao_id", actx.dao.ID), zap.Error(err))
		} else {
			out.Credited = true
		}
	}
	a.armCooldown(target.Sender, actx.dao.ID)

	logger.Info(ctx, "Contribution awarded",
		zap.String("dao_id", actx.dao.ID),
		zap.String("contributor", target.Sender),
		zap.String("address", contributorAddr),
		zap.Float64("amount", actx.value),
		zap.Bool("credited", out.Credited),
	)
	return out
}

// CanVerify runs the authority, self-approval and cooldown checks without
// side effects so a client can disable the verify action up front.
func (a *ContributionAwarder) CanVerify(ctx context.Context, roomID, targetEventID, verifierID string) entities.VerifyPermission {
	dca, err := parentOfKind(ctx, a.host, roomID, entities.RoomKindDCA)
	if err != nil || dca == nil {
		return entities.VerifyPermission{Reason: "not a contribution room"}
	}
	if seen, err := a.dedup.Seen(ctx, dedupKey(targetEventID, verifierID)); err == nil && seen {
		return entities.VerifyPermission{Reason: "already verified"}
	}
	target, err := a.host.FetchEvent(ctx, roomID, targetEventID)
	if err != nil {
		return entities.VerifyPermission{Reason: "message not found"}
	}
	if target.WalletAddress() == "" {
		return entities.VerifyPermission{Reason: "message has no wallet address"}
	}
	actx, err := a.locate(ctx, roomID, dca)
	if err != nil {
		return entities.VerifyPermission{Reason: "dao context unresolved"}
	}
	if reason := a.check(ctx, actx, verifierID, target.Sender); reason != "" {
		return entities.VerifyPermission{Reason: reason}
	}
	return entities.VerifyPermission{Allowed: true}
}

// SubmitContribution posts a message in a contribution room tagged with
// the poster's wallet address for the owning DAO
func (a *ContributionAwarder) SubmitContribution(ctx context.Context, roomID, userID, body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", fmt.Errorf("%w: body is required", domainerrors.ErrInvalidInput)
	}
	dca, err := parentOfKind(ctx, a.host, roomID, entities.RoomKindDCA)
	if err != nil {
		return "", err
	}
	if dca == nil {
		return "", fmt.Errorf("%w: %s is not a contribution room", domainerrors.ErrInvalidInput, roomID)
	}
	dao, err := parentOfKind(ctx, a.host, dca.ID, entities.RoomKindDAO)
	if err != nil {
		return "", err
	}
	if dao == nil {
		return "", fmt.Errorf("%w: contribution space has no DAO", domainerrors.ErrNotFound)
	}
	w, ok := a.wallets.Get(dao.ID)
	if !ok {
		return "", fmt.Errorf("%w: %s", domainerrors.ErrWalletNotFound, dao.ID)
	}
	return a.host.SendEvent(ctx, roomID, userID, entities.EventTypeMessage, &entities.MessageContent{
		MsgType:       entities.MsgTypeText,
		Body:          body,
		WalletAddress: w.Address,
	})
}

func (a *ContributionAwarder) locate(ctx context.Context, roomID string, dca *entities.Room) (*awardContext, error) {
	room, err := a.host.Room(ctx, roomID)
	if err != nil {
		return nil, err
	}
	dao, err := parentOfKind(ctx, a.host, dca.ID, entities.RoomKindDAO)
	if err != nil {
		return nil, err
	}
	if dao == nil {
		return nil, errors.New("contribution space has no DAO parent")
	}
	ledger, err := a.ledger.FindLedgerRoom(ctx, dao.ID)
	if err != nil {
		logger.Warn(ctx, "Ledger lookup failed", zap.String("dao_id", dao.ID), zap.Error(err))
		ledger = nil
	}
	return &awardContext{
		room:   room,
		dca:    dca,
		dao:    dao,
		ledger: ledger,
		value:  a.contributionValue(room),
	}, nil
}

func (a *ContributionAwarder) contributionValue(room *entities.Room) float64 {
	if room.ContributionValue.Valid && room.ContributionValue.Float64 > 0 {
		return room.ContributionValue.Float64
	}
	if m := kudosValuePattern.FindStringSubmatch(room.Topic); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return float64(v)
		}
	}
	return a.cfg.DefaultContributionValue
}

// check returns an empty string when the verifier may approve
func (a *ContributionAwarder) check(ctx context.Context, actx *awardContext, verifierID, contributorID string) string {
	if !a.hasAuthority(ctx, verifierID, actx.dao.ID, actx.room.ID) {
		return "insufficient power level"
	}
	if verifierID == contributorID && !a.selfAllowed(ctx, actx.dca.ID) {
		return "self verification is disabled"
	}
	if a.onCooldown(contributorID, actx.dao.ID) {
		return "contribution on cooldown"
	}
	return ""
}

func (a *ContributionAwarder) hasAuthority(ctx context.Context, userID string, roomIDs ...string) bool {
	for _, id := range roomIDs {
		pl, err := a.host.PowerLevels(ctx, id)
		if err != nil {
			logger.Warn(ctx, "Power levels unavailable", zap.String("room_id", id), zap.Error(err))
			continue
		}
		if pl == nil {
			continue
		}
		if pl.UserLevel(userID) >= pl.VerificationLevel(a.cfg.Threshold) {
			return true
		}
	}
	return false
}

func (a *ContributionAwarder) selfAllowed(ctx context.Context, dcaID string) bool {
	var settings entities.DCASettings
	found, err := a.host.GetState(ctx, dcaID, entities.StateTypeDCASettings, "", &settings)
	if err != nil {
		logger.Warn(ctx, "DCA settings unavailable", zap.String("dca_id", dcaID), zap.Error(err))
		return a.cfg.AllowSelf
	}
	if !found {
		return a.cfg.AllowSelf
	}
	return settings.SelfVerificationAllowed(a.cfg.AllowSelf)
}

func (a *ContributionAwarder) onCooldown(userID, daoID string) bool {
	if a.cfg.Cooldown <= 0 {
		return false
	}
	a.cooldownMu.Lock()
	defer a.cooldownMu.Unlock()
	last, ok := a.cooldowns[cooldownKey(userID, daoID)]
	return ok && a.now().Sub(last) < a.cfg.Cooldown
}

func (a *ContributionAwarder) armCooldown(userID, daoID string) {
	a.cooldownMu.Lock()
	a.cooldowns[cooldownKey(userID, daoID)] = a.now()
	a.cooldownMu.Unlock()
}

// record appends the mint to the ledger. An append failure is logged and
// counted; the caller still credits the local wallet.
func (a *ContributionAwarder) record(ctx context.Context, actx *awardContext, to, verifierID string) (*entities.TransactionRecord, string) {
	current := a.ledger.BoundedLatestBalance(ctx, actx.ledger.ID, to)
	next := current + actx.value

	verifierName, err := a.host.DisplayName(ctx, verifierID)
	if err != nil || verifierName == "" {
		verifierName = verifierID
	}

	ts := entities.NewTimestamp(a.now())
	rec := &entities.TransactionRecord{
		Type:             entities.MintRecordPrefix + actx.room.Name,
		From:             actx.dao.Name + entities.MintSenderSuffix,
		To:               to,
		Amount:           actx.value,
		Balance:          null.Float64From(next),
		RecipientBalance: null.Float64From(next),
		Verifier:         verifierName,
		VerifierUserID:   verifierID,
		Timestamp:        ts,
	}
	rec.TxHash = crypto.StringHash(fmt.Sprintf("%s-%s-%d", to, entities.FormatAmount(actx.value), ts.UnixMilli()))
	rec.DataToSign = rec.CanonicalString()
	rec.Signature = crypto.UnsignedSignature
	if w, ok := a.wallets.Get(actx.dao.ID); ok {
		rec.Signature = crypto.Sign(w.PrivateKey, w.Address, rec.DataToSign)
	} else {
		logger.Warn(ctx, "No local wallet for DAO, recording unsigned", zap.String("dao_id", actx.dao.ID))
	}

	msg, err := ledgerMessage(rec, a.cfg.Unit)
	if err != nil {
		metrics.AppendFailures.WithLabelValues(string(entities.RecordKindMint)).Inc()
		logger.Error(ctx, "Mint record could not be rendered", zap.Error(err))
		return rec, ""
	}
	eventID, err := a.host.SendEvent(ctx, actx.ledger.ID, verifierID, entities.EventTypeMessage, msg)
	if err != nil {
		metrics.AppendFailures.WithLabelValues(string(entities.RecordKindMint)).Inc()
		logger.Error(ctx, "Ledger append failed, continuing with wallet credit",
			zap.String("ledger_id", actx.ledger.ID),
			zap.Error(fmt.Errorf("%w: %v", domainerrors.ErrAppendFailed, err)),
		)
		return rec, ""
	}
	return rec, eventID
}

func dedupKey(targetEventID, verifierID string) string {
	return targetEventID + "-" + verifierID
}

func cooldownKey(userID, daoID string) string {
	return userID + ":" + daoID
}

func duplicate(ctx context.Context, targetID, verifierID string) *AwardOutcome {
	logger.Info(ctx, "Verification already processed",
		zap.String("event_id", targetID), zap.String("verifier", verifierID))
	return &AwardOutcome{Stage: StageValidating, Status: AwardDuplicate, Reason: "already processed"}
}

func ignored(stage AwardStage, reason string) *AwardOutcome {
	return &AwardOutcome{Stage: stage, Status: AwardIgnored, Reason: reason}
}

func aborted(stage AwardStage, reason string) *AwardOutcome {
	return &AwardOutcome{Stage: stage, Status: AwardAborted, Reason: reason}
}
