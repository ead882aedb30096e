package eventarchive

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entries = []redis.XMessage{
	{ID: "1-0", Values: map[string]interface{}{
		"kind": "room_created", "room_id": "0012345", "peer_id": "", "role": "", "at": "1700000000000",
	}},
	{ID: "2-0", Values: map[string]interface{}{
		"kind": "peer_joined", "room_id": "0012345", "peer_id": "p1", "role": "host", "at": "1700000000500",
	}},
}

var insertRe = regexp.QuoteMeta("INSERT INTO room_events")

func TestPersist_CommitsBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(insertRe).
		WithArgs("1-0", "room_created", "0012345", "", "", time.UnixMilli(1_700_000_000_000).UTC()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertRe).
		WithArgs("2-0", "peer_joined", "0012345", "p1", "host", time.UnixMilli(1_700_000_000_500).UTC()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, persist(context.Background(), db, entries))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersist_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(insertRe).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	assert.Error(t, persist(context.Background(), db, entries))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStep_AdvancesCursorAfterPersist(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	rdc, redisMock := redismock.NewClientMock()

	a := &archiver{rdc: rdc, db: db, stream: "signal_events", lastID: "0-0"}

	redisMock.ExpectXRead(a.readArgs()).SetVal([]redis.XStream{{Stream: "signal_events", Messages: entries}})
	sqlMock.ExpectBegin()
	sqlMock.ExpectExec(insertRe).WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectExec(insertRe).WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectCommit()

	require.NoError(t, a.step(context.Background()))
	assert.Equal(t, "2-0", a.lastID)

	redisMock.ExpectXRead(a.readArgs()).RedisNil()
	require.NoError(t, a.step(context.Background()))
	assert.Equal(t, "2-0", a.lastID)

	assert.NoError(t, redisMock.ExpectationsWereMet())
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestLoop_StopsDuringRetryBackoff(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	rdc, redisMock := redismock.NewClientMock()

	a := &archiver{rdc: rdc, db: db, stream: "signal_events", lastID: "0-0"}
	redisMock.ExpectXRead(a.readArgs()).SetErr(errors.New("connection refused"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.loop(ctx, time.Hour)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond) // let the first read fail
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("archiver kept sleeping after cancel")
	}
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestWait(t *testing.T) {
	assert.True(t, wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.False(t, wait(ctx, time.Hour))
	assert.Less(t, time.Since(start), time.Second)
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS room_events")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, EnsureSchema(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
