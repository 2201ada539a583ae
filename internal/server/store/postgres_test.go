package store

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botkeeper/botkeeper/internal/common"
	"github.com/botkeeper/botkeeper/internal/server/records"
)

func TestPostgresStore_Load(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	doc1, _ := json.Marshal(records.User{ID: "1", Username: "ann", Email: "a@x.com"})
	doc2, _ := json.Marshal(records.User{ID: "2", Username: "bob", Email: "b@x.com"})

	mock.ExpectQuery(regexp.QuoteMeta("SELECT doc FROM user_records ORDER BY pos")).
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow(doc1).AddRow(doc2))

	s := NewPostgresStoreWithDB(db)
	users, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "a@x.com", users[0].Email)
	assert.Equal(t, "b@x.com", users[1].Email)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadCorruptDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT doc FROM user_records ORDER BY pos")).
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow([]byte("{broken")))

	s := NewPostgresStoreWithDB(db)
	_, err = s.Load(context.Background())
	require.ErrorIs(t, err, common.ErrCorruptStore)
}

func TestPostgresStore_SaveRewritesTableTransactionally(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	users := []records.User{
		{ID: "1", Username: "ann", Email: "a@x.com"},
		{ID: "2", Username: "bob", Email: "b@x.com"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_records")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	insert := regexp.QuoteMeta("INSERT INTO user_records (pos, email, doc) VALUES ($1, $2, $3)")
	mock.ExpectExec(insert).WithArgs(0, "a@x.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insert).WithArgs(1, "b@x.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s := NewPostgresStoreWithDB(db)
	require.NoError(t, s.Save(context.Background(), users))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRollsBackOnInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_records")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_records")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	s := NewPostgresStoreWithDB(db)
	err = s.Save(context.Background(), []records.User{{ID: "1", Email: "a@x.com"}})
	require.ErrorIs(t, err, common.ErrStoreUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}
