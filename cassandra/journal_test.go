//go:build cassandra
// +build cassandra

package cassandra

import (
	"testing"
	"time"

	"github.com/netdata/registry"
	"github.com/netdata/registry/helpers"
)

func init() {
	helpers.LoadTestConfig("test-registry.yaml")
}

const (
	testPerson   = "dddddddd-0000-0000-0000-000000000000"
	testMachine1 = "11111111-1111-1111-1111-111111111111"
	testMachine2 = "22222222-2222-2222-2222-222222222222"
)

// getJournal is a convenience function for getting a cassandra journal and
// failing if we couldn't
func getJournal(t *testing.T) *Journal {
	j, err := NewJournal()
	if err != nil {
		t.Fatalf("Failed to create Journal: %v", err)
	}
	return j
}

func TestJournalRoundTrip(t *testing.T) {
	GetTestDB()
	j := getJournal(t)
	defer j.Close()

	records := []registry.Record{
		{Action: registry.ActionAccess, When: 1000, PersonGUID: testPerson,
			MachineGUID: testMachine1, Name: "alpha", URL: "http://a/"},
		{Action: registry.ActionAccess, When: 2000, PersonGUID: testPerson,
			MachineGUID: testMachine2, Name: "beta", URL: "http://b/"},
		{Action: registry.ActionDelete, When: 3000, PersonGUID: testPerson,
			MachineGUID: testMachine1, URL: "http://a/"},
	}
	for _, rec := range records {
		if err := j.WriteRecord(rec); err != nil {
			t.Fatalf("WriteRecord failed: %v", err)
		}
		// now()-based timeuuids order by insert time; keep them apart.
		time.Sleep(5 * time.Millisecond)
	}

	var replayed []registry.Record
	applied, err := j.LoadRecords(func(rec registry.Record) {
		replayed = append(replayed, rec)
	})
	if err != nil {
		t.Fatalf("LoadRecords failed: %v", err)
	}
	if applied != len(records) {
		t.Fatalf("Expected %v records replayed, got %v", len(records), applied)
	}
	for i, rec := range records {
		if replayed[i] != rec {
			t.Errorf("Record %v replayed out of order or mangled:\nExpected: %+v\nGot: %+v",
				i, rec, replayed[i])
		}
	}
}

func TestJournalReplayIntoRegistry(t *testing.T) {
	GetTestDB()
	j := getJournal(t)
	defer j.Close()

	j.WriteRecord(registry.Record{Action: registry.ActionAccess, When: 1000,
		PersonGUID: testPerson, MachineGUID: testMachine1, Name: "alpha", URL: "http://a/"})

	r := registry.New()
	if _, err := j.LoadRecords(r.Apply); err != nil {
		t.Fatalf("LoadRecords failed: %v", err)
	}

	res, err := r.RequestAccess(testPerson, testMachine1, "http://a/", "alpha", 2000)
	if err != nil {
		t.Fatalf("RequestAccess on replayed registry failed: %v", err)
	}
	if len(res.URLs) != 1 || res.URLs[0].URL != "http://a/" {
		t.Errorf("Replayed state is wrong: %+v", res.URLs)
	}
	if stats := r.Statistics(); stats.Persons != 1 || stats.Machines != 1 {
		t.Errorf("Unexpected replayed statistics: %+v", stats)
	}
}

func TestJournalEmptyLoad(t *testing.T) {
	GetTestDB()
	j := getJournal(t)
	defer j.Close()

	applied, err := j.LoadRecords(func(registry.Record) {
		t.Errorf("Apply called on an empty journal")
	})
	if err != nil {
		t.Fatalf("LoadRecords failed: %v", err)
	}
	if applied != 0 {
		t.Errorf("Expected 0 records, got %v", applied)
	}
}
