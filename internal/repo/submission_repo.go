package repo

import (
	"context"
	"fmt"
	"slices"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/votegate/internal/model"
	"github.com/xxxsen/votegate/internal/pkg/dbutil"
	appErr "github.com/xxxsen/votegate/internal/pkg/errors"
)

// AnswerColumns are the fixed answer slots of a submission, in question order.
var AnswerColumns = []string{"answer1", "answer2"}

type SubmissionRepo struct {
	conn
}

func NewSubmissionRepo(db DBTX, driver string) *SubmissionRepo {
	return &SubmissionRepo{conn: newConn(db, driver)}
}

func (r *SubmissionRepo) WithTx(tx DBTX) *SubmissionRepo {
	return &SubmissionRepo{conn: conn{db: tx, bindType: r.bindType}}
}

// Create inserts the submission. The unique index on email is what makes a second
// submission for the same identity fail; it is reported as ErrConflict.
func (r *SubmissionRepo) Create(ctx context.Context, item *model.Submission) error {
	data := map[string]interface{}{
		"id":      item.ID,
		"email":   item.Email,
		"answer1": item.Answer1,
		"answer2": item.Answer2,
		"ctime":   item.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("submissions", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = r.finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *SubmissionRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	where := map[string]interface{}{"email": email, "_limit": []uint{0, 1}}
	sqlStr, args, err := builder.BuildSelect("submissions", where, []string{"id"})
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

func (r *SubmissionRepo) List(ctx context.Context) ([]model.Submission, error) {
	where := map[string]interface{}{"_orderby": "ctime desc"}
	sqlStr, args, err := builder.BuildSelect("submissions", where, []string{"id", "email", "answer1", "answer2", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = r.finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var list []model.Submission
	for rows.Next() {
		var item model.Submission
		if err := rows.Scan(&item.ID, &item.Email, &item.Answer1, &item.Answer2, &item.Ctime); err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	return list, rows.Err()
}

func (r *SubmissionRepo) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, "SELECT COUNT(*) FROM submissions")
}

// Tally counts submissions per distinct value of one answer column.
func (r *SubmissionRepo) Tally(ctx context.Context, column string) (map[string]int64, error) {
	if !slices.Contains(AnswerColumns, column) {
		return nil, fmt.Errorf("unknown answer column %q", column)
	}
	sqlStr := fmt.Sprintf("SELECT %s, COUNT(*) FROM submissions GROUP BY %s", column, column)
	rows, err := r.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := make(map[string]int64)
	for rows.Next() {
		var value string
		var total int64
		if err := rows.Scan(&value, &total); err != nil {
			return nil, err
		}
		out[value] = total
	}
	return out, rows.Err()
}

func (r *SubmissionRepo) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM submissions")
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
