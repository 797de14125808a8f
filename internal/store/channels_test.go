package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"kith/api/internal/channel"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func expectReplacePhones(mock sqlmock.Sqlmock, entries []ChannelRow) {
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM contact_channels`).
		WithArgs("usr_1", "per_1", "phone").
		WillReturnResult(sqlmock.NewResult(0, int64(len(entries))))
	for i, entry := range entries {
		mock.ExpectExec(`INSERT INTO contact_channels`).
			WithArgs("usr_1", "per_1", "phone", entry.Prefix, entry.Value, entry.Type, entry.Preferred, i).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()
}

func TestReplaceChannelsDeletesThenInsertsInOneTx(t *testing.T) {
	store, mock := newMockStore(t)

	entries := []ChannelRow{
		{Prefix: "+1", Value: "5551234", Type: "home", Preferred: true},
		{Prefix: "+44", Value: "20777", Type: "work"},
	}
	expectReplacePhones(mock, entries)

	if err := store.ReplaceChannels(context.Background(), "usr_1", "per_1", channel.KindPhone, entries); err != nil {
		t.Fatalf("ReplaceChannels failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReplaceChannelsIsIdempotent(t *testing.T) {
	store, mock := newMockStore(t)

	entries := []ChannelRow{{Prefix: "+1", Value: "5551234", Type: "home", Preferred: true}}
	expectReplacePhones(mock, entries)
	expectReplacePhones(mock, entries)

	for i := 0; i < 2; i++ {
		if err := store.ReplaceChannels(context.Background(), "usr_1", "per_1", channel.KindPhone, entries); err != nil {
			t.Fatalf("replace %d failed: %v", i+1, err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReplaceChannelsEmptyListClears(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM contact_channels`).
		WithArgs("usr_1", "per_1", "email").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	if err := store.ReplaceChannels(context.Background(), "usr_1", "per_1", channel.KindEmail, nil); err != nil {
		t.Fatalf("ReplaceChannels failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReplaceChannelsRollsBackOnInsertFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM contact_channels`).
		WithArgs("usr_1", "per_1", "phone").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO contact_channels`).
		WillReturnError(errors.New("value too long"))
	mock.ExpectRollback()

	entries := []ChannelRow{{Prefix: "+1", Value: "5551234", Type: "home"}}
	err := store.ReplaceChannels(context.Background(), "usr_1", "per_1", channel.KindPhone, entries)
	if err == nil {
		t.Fatal("expected an error")
	}
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Errorf("expected a PersistenceError, got %T", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expected rollback, not commit: %v", err)
	}
}

func TestAttachChannelsReadsInSortOrder(t *testing.T) {
	store, mock := newMockStore(t)
	mock.MatchExpectationsInOrder(false)

	phoneRows := sqlmock.NewRows([]string{"person_id", "prefix", "value", "channel_type", "preferred"}).
		AddRow("per_1", "+1", "5551234", "home", true).
		AddRow("per_1", "+44", "20777", "work", false)
	mock.ExpectQuery(`ORDER BY sort_order ASC, created_at ASC`).
		WithArgs("usr_1", "phone", "per_1").
		WillReturnRows(phoneRows)

	emailRows := sqlmock.NewRows([]string{"person_id", "prefix", "value", "channel_type", "preferred"})
	mock.ExpectQuery(`ORDER BY sort_order ASC, created_at ASC`).
		WithArgs("usr_1", "email", "per_1").
		WillReturnRows(emailRows)

	sets, err := store.AttachChannels(context.Background(), "usr_1", []string{"per_1"})
	if err != nil {
		t.Fatalf("AttachChannels failed: %v", err)
	}

	set := sets["per_1"]
	if len(set.Phones) != 2 || set.Phones[0].Value != "5551234" || set.Phones[1].Value != "20777" {
		t.Errorf("expected phones in stored order, got %+v", set.Phones)
	}
	if set.Emails == nil || len(set.Emails) != 0 {
		t.Errorf("expected an empty email list, got %+v", set.Emails)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAttachChannelsEmptyInputSkipsQuery(t *testing.T) {
	store, mock := newMockStore(t)

	sets, err := store.AttachChannels(context.Background(), "usr_1", nil)
	if err != nil {
		t.Fatalf("AttachChannels failed: %v", err)
	}
	if len(sets) != 0 {
		t.Errorf("expected an empty map, got %+v", sets)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected queries: %v", err)
	}
}
