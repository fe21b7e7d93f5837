package recordingdb

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ridecare/ridecare/internal/core/recording"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func generateMockDB() (*gorm.DB, sqlmock.Sqlmock, error) {
	db, mock, err := sqlmock.New()
	if err != nil {
		return nil, nil, err
	}
	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	if err != nil {
		return nil, nil, err
	}
	return gdb.Debug(), mock, nil
}

func TestRecordingGet(t *testing.T) {
	db, mock, err := generateMockDB()
	if err != nil {
		t.Fatal(err)
	}
	recDB := NewRecording(db)

	mock.ExpectQuery(`SELECT \* FROM "recordings" WHERE id=\$1 (.+) LIMIT \$2`).
		WithArgs("r1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "device_id", "snapshot_paths"}).
			AddRow("r1", "dev-7", `["r1_1614592805000.jpeg"]`))

	var out recording.Recording
	if err := recDB.Get(context.Background(), &out, orm.Where("id=?", "r1")); err != nil {
		t.Fatal(err)
	}
	if out.DeviceID != "dev-7" || len(out.SnapshotPaths) != 1 {
		t.Fatalf("unexpected row %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal("ExpectationsWereMet err:", err)
	}
}

func TestRecordingFind(t *testing.T) {
	db, mock, err := generateMockDB()
	if err != nil {
		t.Fatal(err)
	}
	recDB := NewRecording(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "recordings" WHERE device_id = \$1`).
		WithArgs("dev-7").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT \* FROM "recordings" WHERE device_id = \$1 LIMIT \$2`).
		WithArgs("dev-7", 10).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r1").AddRow("r2"))

	var out []*recording.Recording
	total, err := recDB.Find(context.Background(), &out, pager{limit: 10}, orm.Where("device_id = ?", "dev-7"))
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(out) != 2 || out[1].ID != "r2" {
		t.Fatalf("total %d items %d", total, len(out))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal("ExpectationsWereMet err:", err)
	}
}

func TestRecordingFindEmptySkipsSelect(t *testing.T) {
	db, mock, err := generateMockDB()
	if err != nil {
		t.Fatal(err)
	}
	mock.ExpectQuery(`SELECT count\(\*\) FROM "recordings"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	var out []*recording.Recording
	total, err := NewRecording(db).Find(context.Background(), &out, pager{limit: 10})
	if err != nil || total != 0 {
		t.Fatalf("total %d err %v", total, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal("ExpectationsWereMet err:", err)
	}
}

type pager struct {
	offset, limit int
}

func (p pager) Offset() int { return p.offset }
func (p pager) Limit() int  { return p.limit }
