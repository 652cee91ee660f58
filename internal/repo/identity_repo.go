package repo

import (
	"context"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/votegate/internal/model"
	appErr "github.com/xxxsen/votegate/internal/pkg/errors"
)

type IdentityRepo struct {
	conn
}

func NewIdentityRepo(db DBTX, driver string) *IdentityRepo {
	return &IdentityRepo{conn: newConn(db, driver)}
}

func (r *IdentityRepo) WithTx(tx DBTX) *IdentityRepo {
	return &IdentityRepo{conn: conn{db: tx, bindType: r.bindType}}
}

// CreateIgnore inserts identities, skipping emails already on the roster.
// It returns how many rows were actually added.
func (r *IdentityRepo) CreateIgnore(ctx context.Context, items []model.Identity) (int64, error) {
	var inserted int64
	err := RunInTx(ctx, r.db, func(tx DBTX) error {
		for _, item := range items {
			data := map[string]interface{}{
				"email":        item.Email,
				"display_name": item.DisplayName,
				"ctime":        item.Ctime,
			}
			sqlStr, args, err := builder.BuildInsert("identities", []map[string]interface{}{data})
			if err != nil {
				return err
			}
			sqlStr, args = r.finalize(sqlStr+" ON CONFLICT (email) DO NOTHING", args)
			result, err := tx.ExecContext(ctx, sqlStr, args...)
			if err != nil {
				return err
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return err
			}
			inserted += affected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (r *IdentityRepo) Exists(ctx context.Context, email string) (bool, error) {
	where := map[string]interface{}{"email": email, "_limit": []uint{0, 1}}
	sqlStr, args, err := builder.BuildSelect("identities", where, []string{"email"})
	if err != nil {
		return false, err
	}
	sqlStr, args = r.finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return false, err
	}
	defer func() { _ = rows.Close() }()
	return rows.Next(), rows.Err()
}

func (r *IdentityRepo) Delete(ctx context.Context, email string) error {
	where := map[string]interface{}{"email": email}
	sqlStr, args, err := builder.BuildDelete("identities", where)
	if err != nil {
		return err
	}
	sqlStr, args = r.finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *IdentityRepo) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, "SELECT COUNT(*) FROM identities")
}

// ListRoster returns every identity, newest first, flagged with its submission status.
func (r *IdentityRepo) ListRoster(ctx context.Context) ([]model.RosterEntry, error) {
	sqlStr := `SELECT i.email, i.display_name, CASE WHEN s.id IS NOT NULL THEN 1 ELSE 0 END
		FROM identities i LEFT JOIN submissions s ON s.email = i.email
		ORDER BY i.ctime DESC, i.email ASC`
	rows, err := r.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var list []model.RosterEntry
	for rows.Next() {
		var entry model.RosterEntry
		var submitted int
		if err := rows.Scan(&entry.Email, &entry.DisplayName, &submitted); err != nil {
			return nil, err
		}
		entry.HasSubmitted = submitted == 1
		list = append(list, entry)
	}
	return list, rows.Err()
}
