package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"dao-ledger.backend/internal/domain/entities"
	domainerrors "dao-ledger.backend/internal/domain/errors"
	"dao-ledger.backend/internal/domain/repositories"
	"dao-ledger.backend/pkg/logger"
	"dao-ledger.backend/pkg/metrics"
)

// ScanConfig bounds how much history a scan may load
type ScanConfig struct {
	MaxRounds      int
	PageSize       int
	BalanceTimeout time.Duration
}

func (c ScanConfig) withDefaults() ScanConfig {
	if c.MaxRounds <= 0 {
		c.MaxRounds = DefaultMaxPaginationRounds
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.BalanceTimeout <= 0 {
		c.BalanceTimeout = DefaultBalanceTimeout
	}
	return c
}

type ledgerHost interface {
	repositories.TimelineProvider
	repositories.SpaceHierarchy
}

// LedgerScanner reconstructs balances by replaying ledger room history.
// History problems never surface as errors; the balance falls back to 0.
type LedgerScanner struct {
	host ledgerHost
	cfg  ScanConfig
}

func NewLedgerScanner(host ledgerHost, cfg ScanConfig) *LedgerScanner {
	return &LedgerScanner{host: host, cfg: cfg.withDefaults()}
}

// FindLedgerRoom returns the ledger child of a DAO space, or nil
func (s *LedgerScanner) FindLedgerRoom(ctx context.Context, scopeID string) (*entities.Room, error) {
	return childOfKind(ctx, s.host, scopeID, entities.RoomKindLedger)
}

// RecoverBalance is the latest balance of address in the scope's ledger
func (s *LedgerScanner) RecoverBalance(ctx context.Context, scopeID, address string) float64 {
	ledger, err := s.FindLedgerRoom(ctx, scopeID)
	if err != nil {
		logger.Warn(ctx, "Ledger lookup failed", zap.String("scope_id", scopeID), zap.Error(err))
		return 0
	}
	if ledger == nil {
		return 0
	}
	return s.LatestBalance(ctx, ledger.ID, address)
}

// LatestBalance scans newest to oldest and returns the balance stated by the
// first record touching address, paging backward within the configured
// bounds when the loaded window has none.
func (s *LedgerScanner) LatestBalance(ctx context.Context, roomID, address string) float64 {
	tl, err := s.host.Timeline(ctx, roomID)
	if err != nil {
		logger.Warn(ctx, "Ledger timeline unavailable", zap.String("room_id", roomID), zap.Error(err))
		metrics.LedgerScans.WithLabelValues("default").Inc()
		return 0
	}

	if bal, ok := latestBalanceIn(tl.Events(), address); ok {
		metrics.LedgerScans.WithLabelValues("found").Inc()
		metrics.PaginationRounds.Observe(0)
		return bal
	}

	for round := 1; round <= s.cfg.MaxRounds; round++ {
		if ctx.Err() != nil {
			break
		}
		added, err := tl.PaginateBackward(ctx, s.cfg.PageSize)
		if err != nil {
			metrics.PaginationFailures.Inc()
			logger.Warn(ctx, "Ledger pagination failed, treating history as exhausted",
				zap.String("room_id", roomID),
				zap.Int("round", round),
				zap.Error(fmt.Errorf("%w: %v", domainerrors.ErrPaginationFailed, err)),
			)
			break
		}
		if added <= 0 {
			break
		}
		events := tl.Events()
		if added > len(events) {
			added = len(events)
		}
		if bal, ok := latestBalanceIn(events[:added], address); ok {
			metrics.LedgerScans.WithLabelValues("found").Inc()
			metrics.PaginationRounds.Observe(float64(round))
			return bal
		}
	}

	metrics.LedgerScans.WithLabelValues("default").Inc()
	return 0
}

// BoundedLatestBalance is LatestBalance limited by the configured timeout;
// a scan that does not finish in time counts as 0.
func (s *LedgerScanner) BoundedLatestBalance(ctx context.Context, roomID, address string) float64 {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.BalanceTimeout)
	defer cancel()

	result := make(chan float64, 1)
	go func() {
		result <- s.LatestBalance(ctx, roomID, address)
	}()

	select {
	case bal := <-result:
		return bal
	case <-ctx.Done():
		metrics.LedgerScans.WithLabelValues("timeout").Inc()
		logger.Warn(ctx, "Ledger balance lookup timed out",
			zap.String("room_id", roomID),
			zap.String("address", address),
			zap.Duration("timeout", s.cfg.BalanceTimeout),
		)
		return 0
	}
}

// Records returns every decodable record in the bounded history, newest first
func (s *LedgerScanner) Records(ctx context.Context, roomID string) ([]entities.LedgerEntry, error) {
	events, err := s.loadHistory(ctx, roomID)
	if err != nil {
		return nil, err
	}
	out := make([]entities.LedgerEntry, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		if rec, ok := events[i].Transaction(); ok {
			out = append(out, entities.LedgerEntry{EventID: events[i].ID, Record: *rec})
		}
	}
	return out, nil
}

// AllWalletAddresses lists every well-formed address seen as a sender or
// recipient, newest first. Mint sentinels are skipped.
func (s *LedgerScanner) AllWalletAddresses(ctx context.Context, roomID string) ([]string, error) {
	entries, err := s.Records(ctx, roomID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []string
	add := func(addr string) {
		if !common.IsHexAddress(addr) {
			return
		}
		key := strings.ToLower(addr)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	for _, e := range entries {
		add(e.Record.From)
		add(e.Record.To)
	}
	return out, nil
}

func (s *LedgerScanner) loadHistory(ctx context.Context, roomID string) ([]*entities.RoomEvent, error) {
	tl, err := s.host.Timeline(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrLedgerUnavailable, err)
	}
	for round := 1; round <= s.cfg.MaxRounds; round++ {
		if ctx.Err() != nil {
			break
		}
		added, err := tl.PaginateBackward(ctx, s.cfg.PageSize)
		if err != nil {
			metrics.PaginationFailures.Inc()
			logger.Warn(ctx, "Ledger pagination failed during full scan",
				zap.String("room_id", roomID), zap.Int("round", round), zap.Error(err))
			break
		}
		if added <= 0 {
			break
		}
	}
	return tl.Events(), nil
}

func latestBalanceIn(events []*entities.RoomEvent, address string) (float64, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		rec, ok := events[i].Transaction()
		if !ok {
			continue
		}
		if bal, ok := rec.BalanceFor(address); ok {
			return bal, true
		}
	}
	return 0, false
}

func childOfKind(ctx context.Context, h repositories.SpaceHierarchy, parentID string, kind entities.RoomKind) (*entities.Room, error) {
	children, err := h.Children(ctx, parentID)
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		if c.Kind == kind {
			return c, nil
		}
	}
	return nil, nil
}

func parentOfKind(ctx context.Context, h repositories.SpaceHierarchy, roomID string, kind entities.RoomKind) (*entities.Room, error) {
	parents, err := h.Parents(ctx, roomID)
	if err != nil {
		return nil, err
	}
	for _, p := range parents {
		if p.Kind == kind {
			return p, nil
		}
	}
	return nil, nil
}
