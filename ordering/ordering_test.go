package ordering

import (
	"context"
	"database/sql"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mbolis/formify/database"
	"github.com/mbolis/formify/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db     *sql.DB
	formID uuid.UUID
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenPath(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	now := time.Now().UTC()
	_, err = db.Exec(`INSERT INTO user (id, username, password_hash) VALUES (1, 'owner', x'00')`)
	require.NoError(t, err)

	formID := uuid.New()
	_, err = db.Exec(`
		INSERT INTO form (id, title, created_by, created_at, updated_at)
		VALUES (?, 'test', 1, ?, ?)`, formID, now, now)
	require.NoError(t, err)

	return &fixture{db: db, formID: formID}
}

func (f *fixture) tx(t *testing.T, fn func(tx *sql.Tx) error) error {
	t.Helper()
	return database.WithTx(context.Background(), f.db, func(tx *sql.Tx) error {
		if err := Fields.Lock(context.Background(), tx, f.formID); err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			return err
		}
		return Fields.Verify(context.Background(), tx, f.formID)
	})
}

func (f *fixture) add(t *testing.T, label string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := f.tx(t, func(tx *sql.Tx) error {
		n, err := Fields.Next(context.Background(), tx, f.formID)
		if err != nil {
			return err
		}
		return insertField(tx, id, f.formID, label, n)
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) insertAt(t *testing.T, label string, n int) (uuid.UUID, error) {
	t.Helper()
	id := uuid.New()
	err := f.tx(t, func(tx *sql.Tx) error {
		if err := Fields.MakeRoom(context.Background(), tx, f.formID, n); err != nil {
			return err
		}
		return insertField(tx, id, f.formID, label, n)
	})
	return id, err
}

func (f *fixture) remove(t *testing.T, id uuid.UUID) {
	t.Helper()
	err := f.tx(t, func(tx *sql.Tx) error {
		var d int
		if err := tx.QueryRow(`DELETE FROM field WHERE id = ? RETURNING order_num`, id).Scan(&d); err != nil {
			return err
		}
		return Fields.Close(context.Background(), tx, f.formID, d)
	})
	require.NoError(t, err)
}

func (f *fixture) move(t *testing.T, id uuid.UUID, n int) error {
	t.Helper()
	return f.tx(t, func(tx *sql.Tx) error {
		_, err := Fields.Move(context.Background(), tx, f.formID, id, n)
		return err
	})
}

// labels returns the field labels in order_num order.
func (f *fixture) labels(t *testing.T) []string {
	t.Helper()
	rows, err := f.db.Query(`SELECT label, order_num FROM field WHERE form_id = ? ORDER BY order_num`, f.formID)
	require.NoError(t, err)
	defer rows.Close()

	labels := []string{}
	for rows.Next() {
		var label string
		var order int
		require.NoError(t, rows.Scan(&label, &order))
		require.Equal(t, len(labels)+1, order, "order_num must be dense")
		labels = append(labels, label)
	}
	require.NoError(t, rows.Err())
	return labels
}

func insertField(tx *sql.Tx, id, formID uuid.UUID, label string, n int) error {
	now := time.Now().UTC()
	_, err := tx.Exec(`
		INSERT INTO field (id, form_id, label, field_type, order_num, created_at, updated_at)
		VALUES (?, ?, ?, 'text', ?, ?, ?)`,
		id, formID, label, n, now, now)
	return err
}

func TestNext_StartsAtOne(t *testing.T) {
	f := setup(t)
	f.add(t, "A")
	f.add(t, "B")
	f.add(t, "C")
	assert.Equal(t, []string{"A", "B", "C"}, f.labels(t))
}

func TestClose_DeleteMiddle(t *testing.T) {
	f := setup(t)
	f.add(t, "A")
	b := f.add(t, "B")
	f.add(t, "C")

	f.remove(t, b)

	assert.Equal(t, []string{"A", "C"}, f.labels(t))
}

func TestMove_Up(t *testing.T) {
	f := setup(t)
	f.add(t, "A")
	f.add(t, "B")
	c := f.add(t, "C")

	require.NoError(t, f.move(t, c, 1))

	assert.Equal(t, []string{"C", "A", "B"}, f.labels(t))
}

func TestMove_Down(t *testing.T) {
	f := setup(t)
	a := f.add(t, "A")
	f.add(t, "B")
	f.add(t, "C")
	f.add(t, "D")

	require.NoError(t, f.move(t, a, 3))

	assert.Equal(t, []string{"B", "C", "A", "D"}, f.labels(t))
}

func TestMove_SamePositionIsNoop(t *testing.T) {
	f := setup(t)
	f.add(t, "A")
	b := f.add(t, "B")
	f.add(t, "C")

	require.NoError(t, f.move(t, b, 2))

	assert.Equal(t, []string{"A", "B", "C"}, f.labels(t))
}

func TestMove_Symmetry(t *testing.T) {
	f := setup(t)
	ids := []uuid.UUID{f.add(t, "A"), f.add(t, "B"), f.add(t, "C"), f.add(t, "D"), f.add(t, "E")}
	original := f.labels(t)

	for o := 1; o <= len(ids); o++ {
		for n := 1; n <= len(ids); n++ {
			id := idAt(t, f, o)
			require.NoError(t, f.move(t, id, n))
			require.NoError(t, f.move(t, id, o))
			require.Equal(t, original, f.labels(t), "move %d -> %d -> %d", o, n, o)
		}
	}
}

func TestMove_OutOfRange(t *testing.T) {
	f := setup(t)
	a := f.add(t, "A")
	f.add(t, "B")

	err := f.move(t, a, 0)
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
	assert.Contains(t, err.Error(), "at least 1")

	err = f.move(t, a, 3)
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
	assert.Contains(t, err.Error(), "cannot exceed 2")

	assert.Equal(t, []string{"A", "B"}, f.labels(t))
}

func TestMove_UnknownRow(t *testing.T) {
	f := setup(t)
	f.add(t, "A")

	err := f.move(t, uuid.New(), 1)
	require.Error(t, err)
	assert.True(t, model.IsNotFound(err))
}

func TestMakeRoom_InsertInMiddle(t *testing.T) {
	f := setup(t)
	f.add(t, "A")
	f.add(t, "B")

	_, err := f.insertAt(t, "X", 2)
	require.NoError(t, err)
	_, err = f.insertAt(t, "Y", 4)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "X", "B", "Y"}, f.labels(t))

	_, err = f.insertAt(t, "Z", 6)
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
}

func TestLock_UnknownParent(t *testing.T) {
	f := setup(t)
	err := database.WithTx(context.Background(), f.db, func(tx *sql.Tx) error {
		return Fields.Lock(context.Background(), tx, uuid.New())
	})
	require.Error(t, err)
	assert.True(t, model.IsNotFound(err))
}

func TestVerify_DetectsGap(t *testing.T) {
	f := setup(t)
	f.add(t, "A")
	now := time.Now().UTC()
	_, err := f.db.Exec(`
		INSERT INTO field (id, form_id, label, field_type, order_num, created_at, updated_at)
		VALUES (?, ?, 'gap', 'text', 3, ?, ?)`, uuid.New(), f.formID, now, now)
	require.NoError(t, err)

	err = database.WithTx(context.Background(), f.db, func(tx *sql.Tx) error {
		return Fields.Verify(context.Background(), tx, f.formID)
	})
	require.Error(t, err)
	assert.True(t, model.IsIntegrity(err))
}

// TestDensity_RandomOperations drives the sequence with random inserts,
// deletes and moves, mirroring them on a slice, and checks both agree.
func TestDensity_RandomOperations(t *testing.T) {
	f := setup(t)
	rng := rand.New(rand.NewSource(42))

	var mirror []uuid.UUID
	labelOf := map[uuid.UUID]string{}
	next := 0

	for i := 0; i < 150; i++ {
		switch op := rng.Intn(4); {
		case op == 0 || len(mirror) == 0:
			next++
			label := string(rune('a'+next%26)) + uuid.NewString()[:4]
			id := f.add(t, label)
			labelOf[id] = label
			mirror = append(mirror, id)
		case op == 1:
			pos := rng.Intn(len(mirror))
			f.remove(t, mirror[pos])
			mirror = append(mirror[:pos], mirror[pos+1:]...)
		case op == 2:
			next++
			label := "i" + uuid.NewString()[:6]
			pos := rng.Intn(len(mirror) + 1)
			id, err := f.insertAt(t, label, pos+1)
			require.NoError(t, err)
			labelOf[id] = label
			mirror = append(mirror[:pos], append([]uuid.UUID{id}, mirror[pos:]...)...)
		default:
			from := rng.Intn(len(mirror))
			to := rng.Intn(len(mirror))
			id := mirror[from]
			require.NoError(t, f.move(t, id, to+1))
			mirror = append(mirror[:from], mirror[from+1:]...)
			mirror = append(mirror[:to], append([]uuid.UUID{id}, mirror[to:]...)...)
		}

		want := make([]string, len(mirror))
		for j, id := range mirror {
			want[j] = labelOf[id]
		}
		require.Equal(t, want, f.labels(t), "after step %d", i)
	}
}

func idAt(t *testing.T, f *fixture, n int) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	require.NoError(t, f.db.QueryRow(`SELECT id FROM field WHERE form_id = ? AND order_num = ?`, f.formID, n).Scan(&id))
	return id
}
