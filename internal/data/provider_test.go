package data

import (
	"path/filepath"
	"testing"
)

func TestResolveDSN(t *testing.T) {
	wd := "/srv/ridecare"
	cases := []struct {
		dsn        string
		wantDriver string
		wantDSN    string
	}{
		{"", driverSQLite, filepath.Join(wd, DefaultSQLite)},
		{"configs/data.db", driverSQLite, filepath.Join(wd, "configs/data.db")},
		{"/var/lib/ridecare.db", driverSQLite, "/var/lib/ridecare.db"},
		{":memory:", driverSQLite, ":memory:"},
		{"file::memory:?cache=shared", driverSQLite, "file::memory:?cache=shared"},
		{"postgres://u:p@db:5432/ridecare", driverPostgres, "postgres://u:p@db:5432/ridecare"},
		{"mysql://u:p@tcp(db:3306)/ridecare?parseTime=true", driverMySQL, "u:p@tcp(db:3306)/ridecare?parseTime=true"},
	}
	for _, tc := range cases {
		driver, dsn := resolveDSN(tc.dsn, wd)
		if driver != tc.wantDriver || dsn != tc.wantDSN {
			t.Errorf("resolveDSN(%q) = %s %q, want %s %q", tc.dsn, driver, dsn, tc.wantDriver, tc.wantDSN)
		}
	}
}

func TestEnsureDir(t *testing.T) {
	dir := t.TempDir()
	if err := ensureDir(filepath.Join(dir, "nested", "data.db")); err != nil {
		t.Fatal(err)
	}
	if err := ensureDir(":memory:"); err != nil {
		t.Fatal(err)
	}
}
