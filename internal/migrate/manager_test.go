package migrate

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	sql := `-- roles; fixed set
create table roles (role_key text primary key);
insert into roles values ('a;b');
create function touch() returns trigger as $$
begin
  new.updated_at = now();
  return new;
end;
$$ language plpgsql;
`
	stmts := splitStatements(sql)
	var real []string
	for _, s := range stmts {
		if !isBlank(s) {
			real = append(real, s)
		}
	}
	require.Len(t, real, 3)
	assert.Contains(t, real[0], "create table roles")
	assert.Contains(t, real[1], "'a;b'")
	assert.Contains(t, real[2], "language plpgsql")
}

func TestIsBlank(t *testing.T) {
	assert.True(t, isBlank("  \n-- only a comment\n"))
	assert.False(t, isBlank("-- c\nselect 1"))
}

func TestCollectSQLSortsByName(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_b.up.sql":   {Data: []byte("select 2;")},
		"0001_a.up.sql":   {Data: []byte("select 1;")},
		"0001_a.down.sql": {Data: []byte("select 0;")},
		"README.md":       {Data: []byte("x")},
	}
	files, err := collectSQL(fsys, ".up.sql")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "0001_a.up.sql", files[0].Base)
	assert.Equal(t, "0002_b.up.sql", files[1].Base)

	none, err := collectSQL(nil, ".sql")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpSkipsApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fsys := fstest.MapFS{
		"0001_init.up.sql":   {Data: []byte("create table a (id int);")},
		"0002_more.up.sql":   {Data: []byte("create table b (id int); create table c (id int);")},
		"0002_more.down.sql": {Data: []byte("drop table c; drop table b;")},
	}
	mgr := NewManager(db, fsys, nil)

	mock.ExpectExec(`create table if not exists schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`create table if not exists schema_seeds`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`select name from schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_init.up.sql"))
	mock.ExpectBegin()
	mock.ExpectExec(`create table b`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`create table c`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`insert into schema_migrations`).WithArgs("0002_more.up.sql", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, mgr.Up(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDownWithNothingApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mgr := NewManager(db, fstest.MapFS{}, nil)
	mock.ExpectExec(`create table if not exists schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`create table if not exists schema_seeds`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`select name from schema_migrations`).WillReturnRows(sqlmock.NewRows([]string{"name"}))

	assert.ErrorIs(t, mgr.Down(context.Background()), ErrNothingToRollback)
	require.NoError(t, mock.ExpectationsWereMet())
}
