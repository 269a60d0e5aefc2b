package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pista1997/CertReg/internal/certificate"
	"github.com/pista1997/CertReg/internal/importer"
)

const certificateColumns = `id, name, valid_from, expiry_date, email_address, thumbprint, notification_sent, created_at, updated_at`

// CertificateParams carries the mutable fields for create and update.
type CertificateParams struct {
	Name         string
	ValidFrom    *time.Time
	ExpiryDate   time.Time
	EmailAddress *string
	Thumbprint   *string
}

func scanCertificate(row pgx.Row) (certificate.Certificate, error) {
	var c certificate.Certificate
	err := row.Scan(&c.ID, &c.Name, &c.ValidFrom, &c.ExpiryDate, &c.EmailAddress,
		&c.Thumbprint, &c.NotificationSent, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// ListCertificates returns every certificate, soonest expiry first.
func (s *Store) ListCertificates(ctx context.Context) ([]certificate.Certificate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+certificateColumns+` FROM certificates ORDER BY expiry_date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	certs := []certificate.Certificate{}
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		certs = append(certs, c)
	}
	return certs, rows.Err()
}

// CreateCertificate inserts a new certificate and returns the stored row.
func (s *Store) CreateCertificate(ctx context.Context, p CertificateParams) (certificate.Certificate, error) {
	c, err := scanCertificate(s.pool.QueryRow(ctx,
		`INSERT INTO certificates (name, valid_from, expiry_date, email_address, thumbprint)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+certificateColumns,
		p.Name, p.ValidFrom, p.ExpiryDate, p.EmailAddress, p.Thumbprint))
	if err != nil {
		return certificate.Certificate{}, fmt.Errorf("create certificate: %w", err)
	}
	return c, nil
}

// UpdateCertificate replaces the mutable fields and resets the notification
// flag: a changed expiry may put the certificate back in notification scope.
func (s *Store) UpdateCertificate(ctx context.Context, id int64, p CertificateParams) (certificate.Certificate, error) {
	c, err := scanCertificate(s.pool.QueryRow(ctx,
		`UPDATE certificates
		 SET name = $2, valid_from = $3, expiry_date = $4, email_address = $5,
		     notification_sent = FALSE, updated_at = now()
		 WHERE id = $1
		 RETURNING `+certificateColumns,
		id, p.Name, p.ValidFrom, p.ExpiryDate, p.EmailAddress))
	if errors.Is(err, pgx.ErrNoRows) {
		return certificate.Certificate{}, ErrNotFound
	}
	if err != nil {
		return certificate.Certificate{}, fmt.Errorf("update certificate %d: %w", id, err)
	}
	return c, nil
}

// DeleteCertificate removes one certificate by id.
func (s *Store) DeleteCertificate(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM certificates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete certificate %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ImportCertificates runs one import batch in a single transaction: the
// clear step per policy, then the inserts. Readers never observe the table
// between the delete and the re-insert. Each insert runs under a savepoint
// so one bad row is reported and rolled back without aborting the batch;
// this follows how Postgres poisons a whole transaction on any statement
// error otherwise.
func (s *Store) ImportCertificates(ctx context.Context, clear importer.ClearPolicy, certs []certificate.Certificate) (importer.StoreResult, error) {
	var result importer.StoreResult

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback(ctx)

	switch clear {
	case importer.ClearAll:
		if _, err := tx.Exec(ctx, `DELETE FROM certificates`); err != nil {
			return result, fmt.Errorf("clear certificates: %w", err)
		}
	case importer.ClearImported:
		if _, err := tx.Exec(ctx, `DELETE FROM certificates WHERE thumbprint IS NOT NULL`); err != nil {
			return result, fmt.Errorf("clear imported certificates: %w", err)
		}
	}

	for i, c := range certs {
		sp := fmt.Sprintf("sp_%d", i)
		if _, err := tx.Exec(ctx, "SAVEPOINT "+sp); err != nil {
			return result, fmt.Errorf("savepoint row %d: %w", i, err)
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO certificates (name, valid_from, expiry_date, email_address, thumbprint)
			 VALUES ($1, $2, $3, $4, $5)`,
			c.Name, c.ValidFrom, c.ExpiryDate, c.EmailAddress, c.Thumbprint)
		if err != nil {
			if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+sp); rbErr != nil {
				return result, fmt.Errorf("rollback savepoint row %d: %w", i, rbErr)
			}
			result.Failed = append(result.Failed, importer.InsertFailure{Index: i, Err: err})
			continue
		}
		if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+sp); err != nil {
			return result, fmt.Errorf("release savepoint row %d: %w", i, err)
		}
		result.Inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return importer.StoreResult{}, fmt.Errorf("commit import: %w", err)
	}
	return result, nil
}

// ListExpiring returns certificates in notification scope: expiring on or
// before the cutoff, not yet notified, and carrying an email address.
func (s *Store) ListExpiring(ctx context.Context, cutoff time.Time) ([]certificate.Certificate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+certificateColumns+` FROM certificates
		 WHERE expiry_date <= $1 AND notification_sent = FALSE AND email_address IS NOT NULL
		 ORDER BY expiry_date ASC, id ASC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list expiring certificates: %w", err)
	}
	defer rows.Close()

	certs := []certificate.Certificate{}
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		certs = append(certs, c)
	}
	return certs, rows.Err()
}

// MarkNotificationSent flips the notification flag after a successful send.
func (s *Store) MarkNotificationSent(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE certificates SET notification_sent = TRUE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark notification sent %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
