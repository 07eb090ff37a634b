package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"appupdates/internal/domain"
)

const releaseColumns = `code, created, filename, stable, beta, notice`

// CreateRelease inserts a new release. The version code must be unused.
func (s *Store) CreateRelease(ctx context.Context, r domain.Release) error {
	if err := domain.ValidateVersionCode(r.Code); err != nil {
		return err
	}
	created := r.Created
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO releases (`+releaseColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		r.Code, created.UTC().Format(time.RFC3339Nano), r.Filename, r.Stable, r.Beta, r.Notice,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ReleaseExists(r.Code)
		}
		return fmt.Errorf("insert release: %w", err)
	}
	return nil
}

// ReleaseExists reports whether a release with the code is stored.
func (s *Store) ReleaseExists(ctx context.Context, code int) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM releases WHERE code = ?`, code).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check release: %w", err)
	}
	return n > 0, nil
}

// Release returns the release with the given version code.
func (s *Store) Release(ctx context.Context, code int) (domain.Release, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+releaseColumns+` FROM releases WHERE code = ?`, code)
	r, err := scanRelease(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Release{}, domain.ReleaseNotFound(code)
	}
	return r, err
}

// Latest returns up to limit releases, newest version code first.
func (s *Store) Latest(ctx context.Context, limit int) ([]domain.Release, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+releaseColumns+` FROM releases ORDER BY code DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}
	defer rows.Close()

	var out []domain.Release
	for rows.Next() {
		r, err := scanRelease(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ChannelRelease returns the release promoted on the channel.
func (s *Store) ChannelRelease(ctx context.Context, ch domain.Channel) (domain.Release, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT %s FROM releases WHERE %s = 1 ORDER BY code DESC LIMIT 1`,
		releaseColumns, ch.Column()))
	r, err := scanRelease(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Release{}, domain.ChannelEmpty(ch)
	}
	return r, err
}

// PromoteRelease makes code the only release on the channel.
func (s *Store) PromoteRelease(ctx context.Context, ch domain.Channel, code int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin promote: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	col := ch.Column()
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE releases SET %[1]s = 0 WHERE %[1]s = 1`, col)); err != nil {
		return fmt.Errorf("clear %s flag: %w", ch, err)
	}
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE releases SET %s = 1 WHERE code = ?`, col), code)
	if err != nil {
		return fmt.Errorf("set %s flag: %w", ch, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ReleaseNotFound(code)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit promote: %w", err)
	}
	return nil
}

// SetNotice replaces the changelog text of a release.
func (s *Store) SetNotice(ctx context.Context, code int, notice string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE releases SET notice = ? WHERE code = ?`, notice, code)
	if err != nil {
		return fmt.Errorf("update notice: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ReleaseNotFound(code)
	}
	return nil
}

// DeleteRelease removes a release row. Deleting a missing release is not an error.
func (s *Store) DeleteRelease(ctx context.Context, code int) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM releases WHERE code = ?`, code); err != nil {
		return fmt.Errorf("delete release: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRelease(row scanner) (domain.Release, error) {
	var (
		r       domain.Release
		created string
	)
	if err := row.Scan(&r.Code, &created, &r.Filename, &r.Stable, &r.Beta, &r.Notice); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Release{}, err
		}
		return domain.Release{}, fmt.Errorf("scan release: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return domain.Release{}, fmt.Errorf("parse release %d created: %w", r.Code, err)
	}
	r.Created = t
	return r, nil
}
