package repo

import (
	"context"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/votegate/internal/model"
	appErr "github.com/xxxsen/votegate/internal/pkg/errors"
)

var otpColumns = []string{"id", "email", "code", "used", "ctime", "expires_at"}

// OTPRepo is the ledger of issued one-time codes. Rows are only ever flagged used,
// never deleted, so the issuance history stays auditable.
type OTPRepo struct {
	conn
}

func NewOTPRepo(db DBTX, driver string) *OTPRepo {
	return &OTPRepo{conn: newConn(db, driver)}
}

func (r *OTPRepo) WithTx(tx DBTX) *OTPRepo {
	return &OTPRepo{conn: conn{db: tx, bindType: r.bindType}}
}

// Replace retires every code of the identity and records code as its only live one.
// Both steps commit together.
func (r *OTPRepo) Replace(ctx context.Context, code *model.OneTimeCode) error {
	return RunInTx(ctx, r.db, func(tx DBTX) error {
		if r.isPostgres() {
			// serializes concurrent issuance for one email; released on commit
			if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", code.Email); err != nil {
				return err
			}
		}
		if _, err := r.markUsed(ctx, tx, map[string]interface{}{"email": code.Email, "used": 0}); err != nil {
			return err
		}
		data := map[string]interface{}{
			"id":         code.ID,
			"email":      code.Email,
			"code":       code.Code,
			"used":       code.Used,
			"ctime":      code.Ctime,
			"expires_at": code.ExpiresAt,
		}
		sqlStr, args, err := builder.BuildInsert("otp_codes", []map[string]interface{}{data})
		if err != nil {
			return err
		}
		sqlStr, args = r.finalize(sqlStr, args)
		_, err = tx.ExecContext(ctx, sqlStr, args...)
		return err
	})
}

// Consume flips the matching live code to used. The match and the flip are one
// conditional UPDATE, so two callers racing on the same code cannot both win.
// Any other live code of the identity is retired in the same transaction.
// A wrong, expired or already used code all yield ErrNotFound.
func (r *OTPRepo) Consume(ctx context.Context, email, code string, now int64) error {
	return RunInTx(ctx, r.db, func(tx DBTX) error {
		affected, err := r.markUsed(ctx, tx, map[string]interface{}{
			"email":        email,
			"code":         code,
			"used":         0,
			"expires_at >": now,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			return appErr.ErrNotFound
		}
		_, err = r.markUsed(ctx, tx, map[string]interface{}{"email": email, "used": 0})
		return err
	})
}

// ConsumeAll retires every outstanding code.
func (r *OTPRepo) ConsumeAll(ctx context.Context) (int64, error) {
	return r.markUsed(ctx, r.db, map[string]interface{}{"used": 0})
}

func (r *OTPRepo) LatestByEmail(ctx context.Context, email string) (*model.OneTimeCode, error) {
	where := map[string]interface{}{"email": email, "_orderby": "ctime desc", "_limit": []uint{0, 1}}
	list, err := r.list(ctx, where)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, appErr.ErrNotFound
	}
	return list[0], nil
}

func (r *OTPRepo) ListByEmail(ctx context.Context, email string) ([]*model.OneTimeCode, error) {
	return r.list(ctx, map[string]interface{}{"email": email, "_orderby": "ctime asc"})
}

// CountActive counts codes of the identity that would still verify at now.
func (r *OTPRepo) CountActive(ctx context.Context, email string, now int64) (int64, error) {
	return r.count(ctx, "SELECT COUNT(*) FROM otp_codes WHERE email = ? AND used = 0 AND expires_at > ?", email, now)
}

func (r *OTPRepo) list(ctx context.Context, where map[string]interface{}) ([]*model.OneTimeCode, error) {
	sqlStr, args, err := builder.BuildSelect("otp_codes", where, otpColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = r.finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var list []*model.OneTimeCode
	for rows.Next() {
		var item model.OneTimeCode
		if err := rows.Scan(&item.ID, &item.Email, &item.Code, &item.Used, &item.Ctime, &item.ExpiresAt); err != nil {
			return nil, err
		}
		list = append(list, &item)
	}
	return list, rows.Err()
}

func (r *OTPRepo) markUsed(ctx context.Context, q DBTX, where map[string]interface{}) (int64, error) {
	sqlStr, args, err := builder.BuildUpdate("otp_codes", where, map[string]interface{}{"used": 1})
	if err != nil {
		return 0, err
	}
	sqlStr, args = r.finalize(sqlStr, args)
	result, err := q.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
