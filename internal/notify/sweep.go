package notify

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/pista1997/CertReg/internal/certificate"
)

// Store is the persistence surface the sweep needs.
type Store interface {
	// ListExpiring returns certificates with expiry_date <= cutoff that have
	// not been notified yet and have an email address.
	ListExpiring(ctx context.Context, cutoff time.Time) ([]certificate.Certificate, error)
	MarkNotificationSent(ctx context.Context, id int64) error
}

// Result is the per-certificate outcome of one sweep.
type Result struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Status        string `json:"status"`
	Email         string `json:"email"`
	DaysRemaining int    `json:"daysRemaining"`
	Error         string `json:"error,omitempty"`
}

// Report summarizes one sweep run.
type Report struct {
	Message      string   `json:"message"`
	TotalChecked int      `json:"totalChecked"`
	SuccessCount int      `json:"successCount"`
	FailureCount int      `json:"failureCount"`
	Results      []Result `json:"results"`
}

// Sweeper scans for certificates nearing expiry and sends one notification
// per certificate per eligibility window. The sweep is externally triggered;
// retry happens only by repetition, because a failed send leaves the
// notification flag unset.
type Sweeper struct {
	store      Store
	mailer     Mailer
	windowDays int
}

// NewSweeper creates a Sweeper. windowDays <= 0 falls back to 30.
func NewSweeper(store Store, mailer Mailer, windowDays int) *Sweeper {
	if windowDays <= 0 {
		windowDays = 30
	}
	return &Sweeper{store: store, mailer: mailer, windowDays: windowDays}
}

// Run executes one sweep as of now. Per-certificate failures go into the
// report; only a store listing failure aborts the run.
func (s *Sweeper) Run(ctx context.Context, now time.Time) (*Report, error) {
	cutoff := now.AddDate(0, 0, s.windowDays)
	expiring, err := s.store.ListExpiring(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list expiring: %w", err)
	}

	report := &Report{
		TotalChecked: len(expiring),
		Results:      []Result{},
	}
	if len(expiring) == 0 {
		report.Message = "Žiadne certifikáty na odoslanie notifikácií"
		return report, nil
	}

	for _, cert := range expiring {
		daysRemaining := int(math.Ceil(cert.ExpiryDate.Sub(now).Hours() / 24))
		res := Result{
			ID:            cert.ID,
			Name:          cert.Name,
			Email:         *cert.EmailAddress,
			DaysRemaining: daysRemaining,
		}

		err := s.mailer.SendExpiryNotification(ctx, Notification{
			CertificateName: cert.Name,
			ExpiryDate:      cert.ExpiryDate,
			DaysRemaining:   daysRemaining,
			RecipientEmail:  *cert.EmailAddress,
		})
		if err != nil {
			slog.Error("expiry notification failed", "certificate_id", cert.ID, "error", err)
			res.Status = "failed"
			res.Error = err.Error()
			report.FailureCount++
			report.Results = append(report.Results, res)
			continue
		}

		if err := s.store.MarkNotificationSent(ctx, cert.ID); err != nil {
			// The email went out but the flag did not stick; the next sweep
			// will send a duplicate rather than lose the reminder.
			slog.Error("marking notification failed", "certificate_id", cert.ID, "error", err)
			res.Status = "failed"
			res.Error = err.Error()
			report.FailureCount++
			report.Results = append(report.Results, res)
			continue
		}

		res.Status = "success"
		report.SuccessCount++
		report.Results = append(report.Results, res)
	}

	report.Message = fmt.Sprintf("Kontrola dokončená. Úspešne: %d, Chyby: %d",
		report.SuccessCount, report.FailureCount)
	return report, nil
}
