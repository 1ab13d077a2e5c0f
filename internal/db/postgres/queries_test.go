package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type boolRow struct {
	v   bool
	err error
}

func (r boolRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*bool)) = r.v
	return nil
}

// fakeTx реализует только методы, которые вызывает ExecMigrationSQL.
type fakeTx struct {
	pgx.Tx
	exists     bool
	execErr    error
	execs      []string
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	return boolRow{v: tx.exists}
}

func (tx *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	tx.execs = append(tx.execs, sql)
	return pgconn.CommandTag{}, tx.execErr
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	if !tx.committed {
		tx.rolledBack = true
	}
	return nil
}

type fakeBeginner struct {
	tx *fakeTx
}

func (b fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	return b.tx, nil
}

func TestExecMigrationSQL_Applies(t *testing.T) {
	tx := &fakeTx{}
	applied, err := ExecMigrationSQL(context.Background(), fakeBeginner{tx}, 1, "CREATE TABLE x ()")
	require.NoError(t, err)

	assert.True(t, applied)
	assert.True(t, tx.committed)
	require.Len(t, tx.execs, 2)
	assert.Equal(t, "CREATE TABLE x ()", tx.execs[0])
}

func TestExecMigrationSQL_SkipsApplied(t *testing.T) {
	tx := &fakeTx{exists: true}
	applied, err := ExecMigrationSQL(context.Background(), fakeBeginner{tx}, 1, "CREATE TABLE x ()")
	require.NoError(t, err)

	assert.False(t, applied)
	assert.Empty(t, tx.execs)
	assert.True(t, tx.rolledBack)
}

func TestExecMigrationSQL_RollsBackOnError(t *testing.T) {
	boom := errors.New("syntax error")
	tx := &fakeTx{execErr: boom}
	_, err := ExecMigrationSQL(context.Background(), fakeBeginner{tx}, 2, "BROKEN")

	require.ErrorIs(t, err, boom)
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}
