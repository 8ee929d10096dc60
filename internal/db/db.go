// Package db keeps an audit trail of scan runs in Postgres. The full
// result artifacts live on disk (and optionally in object storage); only
// the run row and its outcome go to SQL.
package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct{ Pool *pgxpool.Pool }

func Open(ctx context.Context, url string) (*Store, error) {
	p, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: p}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Pool.Ping(ctx)
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS iac_scan_runs (
  id UUID PRIMARY KEY,
  scan_name TEXT NOT NULL,
  scan_uuid TEXT,
  status TEXT NOT NULL CHECK (status IN ('started','finished','failed')),
  failed_checks INTEGER,
  error_msg TEXT,
  report_bucket TEXT,
  report_key TEXT,
  started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_iac_scan_runs_started ON iac_scan_runs (started_at);
`)
	return err
}

// InsertRun records the start of a pipeline run before anything is
// uploaded, so aborted runs still leave a row behind.
func (s *Store) InsertRun(ctx context.Context, id, scanName string) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO iac_scan_runs (id, scan_name, status)
		VALUES ($1::uuid, $2, 'started')
	`, id, scanName)
	return err
}

// SetScanUUID attaches the service-assigned scan identity to the run row
// as soon as the upload is acknowledged.
func (s *Store) SetScanUUID(ctx context.Context, id, scanUUID string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE iac_scan_runs
		SET scan_uuid=$2
		WHERE id=$1::uuid
	`, id, scanUUID)
	return err
}

func (s *Store) MarkFinished(ctx context.Context, id string, failedChecks int, reportBucket, reportKey string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE iac_scan_runs
		SET status='finished', finished_at=now(),
		    failed_checks=$2,
		    report_bucket=NULLIF($3, ''), report_key=NULLIF($4, '')
		WHERE id=$1::uuid
	`, id, failedChecks, reportBucket, reportKey)
	return err
}

func (s *Store) MarkFailed(ctx context.Context, id, errMsg string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE iac_scan_runs
		SET status='failed', finished_at=now(), error_msg=$2
		WHERE id=$1::uuid
		  AND status='started'
	`, id, errMsg)
	return err
}
