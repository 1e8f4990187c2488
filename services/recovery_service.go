// services/recovery_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"salonpro-pos/models"
	"salonpro-pos/repository"
)

var unfinishedStates = []models.SaleState{models.SaleApplyingStock, models.SaleCompensating}

type SweepReport struct {
	Examined    int
	Compensated int
	Skipped     int
	Failed      int
	// Unreconciled counts sales whose stock left but whose payment was never recorded.
	Unreconciled int
}

// RecoveryService finishes sales that were interrupted while applying stock:
// a crashed process, a timed-out request, or a compensation that could not
// complete. It reverses whatever the sale had applied.
type RecoveryService struct {
	attempts   repository.SaleAttemptRepository
	ledger     *Ledger
	staleAfter time.Duration
	now        func() time.Time
	cron       *cron.Cron
}

func NewRecoveryService(attempts repository.SaleAttemptRepository, ledger *Ledger, staleAfter time.Duration) *RecoveryService {
	if staleAfter <= 0 {
		staleAfter = 5 * time.Minute
	}
	return &RecoveryService{
		attempts:   attempts,
		ledger:     ledger,
		staleAfter: staleAfter,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// StartScheduler runs SweepOnce on schedule (cron expression or @every).
func (s *RecoveryService) StartScheduler(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := s.SweepOnce(context.Background()); err != nil {
			log.Printf("[recovery] sweep failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("recovery schedule %q: %w", schedule, err)
	}
	c.Start()
	s.cron = c
	log.Printf("[recovery] scheduler started (%s, stale after %s)", schedule, s.staleAfter)
	return nil
}

// Stop halts the scheduler and waits for a running sweep.
func (s *RecoveryService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

func (s *RecoveryService) SweepOnce(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	cutoff := s.now().Add(-s.staleAfter)

	stale, err := s.attempts.ListStaleSaleAttempts(ctx, unfinishedStates, cutoff)
	if err != nil {
		return report, fmt.Errorf("list stale sales: %w", err)
	}
	for _, a := range stale {
		report.Examined++
		switch err := s.recover(ctx, a); {
		case err == nil:
			report.Compensated++
		case errors.Is(err, repository.ErrStateMismatch):
			// the sale moved on by itself
			report.Skipped++
		default:
			report.Failed++
			log.Printf("[recovery] sale %s (org %s): %v", a.ID, a.OrgID, err)
		}
	}

	unreconciled, err := s.attempts.ListStaleSaleAttempts(ctx,
		[]models.SaleState{models.SaleNeedsReconciliation}, cutoff)
	if err != nil {
		return report, fmt.Errorf("list unreconciled sales: %w", err)
	}
	report.Unreconciled = len(unreconciled)

	if report.Examined > 0 || report.Unreconciled > 0 {
		log.Printf("[recovery] examined=%d compensated=%d skipped=%d failed=%d unreconciled=%d",
			report.Examined, report.Compensated, report.Skipped, report.Failed, report.Unreconciled)
	}
	return report, nil
}

func (s *RecoveryService) recover(ctx context.Context, a models.SaleAttempt) error {
	if a.State == models.SaleApplyingStock {
		if err := s.attempts.TransitionSaleAttempt(ctx, a.OrgID, a.ID,
			[]models.SaleState{models.SaleApplyingStock}, models.SaleCompensating, "claimed by recovery"); err != nil {
			return err
		}
	}
	reversals, err := s.ledger.ReverseSale(ctx, a.OrgID, a.ID, fmt.Sprintf("recovery reversal of sale %s", a.ID))
	if err != nil {
		return err
	}
	if err := s.attempts.TransitionSaleAttempt(ctx, a.OrgID, a.ID,
		[]models.SaleState{models.SaleCompensating}, models.SaleCompensated, ""); err != nil &&
		!errors.Is(err, repository.ErrStateMismatch) {
		return err
	}
	log.Printf("[recovery] sale %s: reversed %d line(s)", a.ID, len(reversals))
	return nil
}
