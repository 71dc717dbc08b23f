// Package cassandra implements the registry mutation journal on top of
// Apache Cassandra, for deployments that want the journal off the local
// disk. It satisfies the registry.Journal interface and adds LoadRecords
// for startup replay.
package cassandra

import (
	"fmt"
	"sort"
	"time"

	"github.com/gocql/gocql"

	"github.com/netdata/registry"
)

// Journal writes one registry_log row per registry mutation.
//
// NewJournal should be used to create one.
type Journal struct {
	cf *gocql.ClusterConfig
	db *gocql.Session
}

// NewJournal creates a Cassandra session and initializes a Journal.
func NewJournal() (*Journal, error) {
	j := &Journal{
		cf: GetConfig(),
	}
	var err error
	j.db, err = j.cf.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create cassandra journal: %v", err)
	}
	return j, nil
}

// WriteRecord implements registry.Journal. It is called with the registry
// lock held, so it must stay a single quick insert.
func (j *Journal) WriteRecord(rec registry.Record) error {
	at := time.Unix(rec.When, 0).UTC()
	return j.db.Query(
		`INSERT INTO registry_log (day, id, action, at, person_guid, machine_guid, name, url)
		 VALUES (?, now(), ?, ?, ?, ?, ?, ?)`,
		at.Format("20060102"), string(rec.Action), at,
		rec.PersonGUID, rec.MachineGUID, rec.Name, rec.URL,
	).Exec()
}

// Close implements registry.Journal.
func (j *Journal) Close() error {
	j.db.Close()
	return nil
}

// LoadRecords reads the whole journal and feeds every record to apply, in
// mutation order. Cassandra returns partitions in token order, so rows are
// collected and sorted by their insert timeuuid before replay; journals
// small enough to replay at boot are small enough to sort in memory.
func (j *Journal) LoadRecords(apply func(rec registry.Record)) (int, error) {
	type row struct {
		id  gocql.UUID
		rec registry.Record
	}
	var rows []row

	var (
		id          gocql.UUID
		action      string
		at          time.Time
		personGUID  string
		machineGUID string
		name        string
		url         string
	)
	iter := j.db.Query(
		`SELECT id, action, at, person_guid, machine_guid, name, url FROM registry_log`,
	).Iter()
	for iter.Scan(&id, &action, &at, &personGUID, &machineGUID, &name, &url) {
		if action == "" {
			continue
		}
		rows = append(rows, row{
			id: id,
			rec: registry.Record{
				Action:      action[0],
				When:        at.Unix(),
				PersonGUID:  personGUID,
				MachineGUID: machineGUID,
				Name:        name,
				URL:         url,
			},
		})
	}
	if err := iter.Close(); err != nil {
		return 0, fmt.Errorf("failed to read registry_log: %v", err)
	}

	sort.Slice(rows, func(a, b int) bool {
		return rows[a].id.Time().Before(rows[b].id.Time())
	})
	for _, r := range rows {
		apply(r.rec)
	}
	return len(rows), nil
}
