// Package ordering keeps the order_num column of a sibling set dense: the
// values are exactly 1..N, each used once.
//
// Every function takes the caller's transaction. Callers must Lock the
// parent first and should Verify before committing.
package ordering

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/mbolis/formify/model"
	"github.com/pkg/errors"
)

// Sentinel is where a moving row is parked. It lies outside 1..N+1 for any
// sibling set SQLite can hold, and it is positive so the sign-flip shift
// never touches it.
const Sentinel = math.MaxInt32

type Sequence struct {
	Table       string
	Parent      string
	ParentTable string
}

var (
	Fields = Sequence{Table: "field", Parent: "form_id", ParentTable: "form"}
	Steps  = Sequence{Table: "process_step", Parent: "process_id", ParentTable: "process"}
)

// Lock touches the parent's updated_at, which takes the write lock on the
// parent row for the rest of the transaction. The parent's version is left
// alone: it guards the parent's own columns, not its children.
func (s Sequence) Lock(ctx context.Context, tx *sql.Tx, parent any) error {
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET updated_at = ?
		WHERE id = ?`, s.ParentTable),
		time.Now().UTC(),
		parent,
	)
	if err != nil {
		return errors.Wrapf(err, "ordering.lock.%s", s.ParentTable)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "ordering.lock.%s.verify", s.ParentTable)
	}
	if n < 1 {
		return model.Missing(s.ParentTable, parent)
	}
	return nil
}

func (s Sequence) Count(ctx context.Context, tx *sql.Tx, parent any) (n int, err error) {
	err = tx.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*) FROM %s WHERE %s = ?`, s.Table, s.Parent),
		parent,
	).Scan(&n)
	err = errors.Wrapf(err, "ordering.count.%s", s.Table)
	return
}

// Next returns the order number for a sibling appended at the end.
func (s Sequence) Next(ctx context.Context, tx *sql.Tx, parent any) (n int, err error) {
	err = tx.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COALESCE(MAX(order_num), 0) + 1 FROM %s WHERE %s = ? AND order_num < ?`, s.Table, s.Parent),
		parent,
		Sentinel,
	).Scan(&n)
	err = errors.Wrapf(err, "ordering.next.%s", s.Table)
	return
}

// MakeRoom frees position n for a new sibling by shifting every sibling at
// n or later one step towards the end. n may be at most count+1.
func (s Sequence) MakeRoom(ctx context.Context, tx *sql.Tx, parent any, n int) error {
	count, err := s.Count(ctx, tx, parent)
	if err != nil {
		return err
	}
	if n < 1 {
		return model.Invalid("Order number must be at least 1.")
	}
	if n > count+1 {
		return model.Invalid("Order number cannot exceed %d.", count+1)
	}
	if n == count+1 {
		return nil
	}
	return s.shift(ctx, tx, parent, n, count, +1)
}

// Close compacts the siblings after the row at position d has been deleted.
func (s Sequence) Close(ctx context.Context, tx *sql.Tx, parent any, d int) error {
	var last int
	err := tx.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COALESCE(MAX(order_num), 0) FROM %s WHERE %s = ?`, s.Table, s.Parent),
		parent,
	).Scan(&last)
	if err != nil {
		return errors.Wrapf(err, "ordering.close.%s", s.Table)
	}
	if last <= d {
		return nil
	}
	return s.shift(ctx, tx, parent, d+1, last, -1)
}

// Move places row id at position n, shifting the siblings in between by one.
// It returns the row's previous position.
func (s Sequence) Move(ctx context.Context, tx *sql.Tx, parent, id any, n int) (old int, err error) {
	err = tx.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT order_num FROM %s WHERE id = ? AND %s = ?`, s.Table, s.Parent),
		id,
		parent,
	).Scan(&old)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.Missing(s.Table, id)
	}
	if err != nil {
		return 0, errors.Wrapf(err, "ordering.move.%s.get", s.Table)
	}

	if n < 1 {
		return old, model.Invalid("Order number must be at least 1.")
	}
	count, err := s.Count(ctx, tx, parent)
	if err != nil {
		return old, err
	}
	if n > count {
		return old, model.Invalid("Order number cannot exceed %d.", count)
	}
	if n == old {
		return old, nil
	}

	if err = s.set(ctx, tx, id, Sentinel); err != nil {
		return old, err
	}
	if n > old {
		err = s.shift(ctx, tx, parent, old+1, n, -1)
	} else {
		err = s.shift(ctx, tx, parent, n, old-1, +1)
	}
	if err != nil {
		return old, err
	}
	return old, s.set(ctx, tx, id, n)
}

// Verify fails with a model.IntegrityError unless the siblings' order numbers
// are exactly 1..N.
func (s Sequence) Verify(ctx context.Context, tx *sql.Tx, parent any) error {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`
		SELECT order_num FROM %s WHERE %s = ? ORDER BY order_num`, s.Table, s.Parent),
		parent,
	)
	if err != nil {
		return errors.Wrapf(err, "ordering.verify.%s", s.Table)
	}
	defer rows.Close()

	var orders []int
	dense := true
	for rows.Next() {
		var o int
		if err = rows.Scan(&o); err != nil {
			return errors.Wrapf(err, "ordering.verify.%s.scan", s.Table)
		}
		orders = append(orders, o)
		if o != len(orders) {
			dense = false
		}
	}
	if err = rows.Err(); err != nil {
		return errors.Wrapf(err, "ordering.verify.%s.rows", s.Table)
	}
	if !dense {
		return &model.IntegrityError{Table: s.Table, Parent: fmt.Sprint(parent), Orders: orders}
	}
	return nil
}

func (s Sequence) set(ctx context.Context, tx *sql.Tx, id any, n int) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET order_num = ? WHERE id = ?`, s.Table),
		n,
		id,
	)
	return errors.Wrapf(err, "ordering.set.%s", s.Table)
}

// shift adds delta to every order_num in [from, to]. The rows pass through
// negative values first, so no two siblings share a value at any point even
// when (parent, order_num) is checked row by row.
func (s Sequence) shift(ctx context.Context, tx *sql.Tx, parent any, from, to, delta int) error {
	if from > to {
		return nil
	}
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET order_num = -(order_num + ?)
		WHERE %s = ?
			AND order_num BETWEEN ? AND ?`, s.Table, s.Parent),
		delta,
		parent,
		from,
		to,
	)
	if err != nil {
		return errors.Wrapf(err, "ordering.shift.%s", s.Table)
	}
	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET order_num = -order_num
		WHERE %s = ?
			AND order_num < 0`, s.Table, s.Parent),
		parent,
	)
	return errors.Wrapf(err, "ordering.shift.%s.flip", s.Table)
}
