package cassandra

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/netdata/registry"
)

const schemaTemplate string = `-- The schema file for the registry journal
--
-- This file gets generated from a Go template so the keyspace and replication
-- can be configured (particularly for testing purposes)
CREATE KEYSPACE {{.Keyspace}}
WITH REPLICATION = { 'class': 'SimpleStrategy', 'replication_factor': {{.ReplicationFactor}} };

-- registry_log is the append-only mutation journal. Every successful access
-- or delete inserts exactly one row here. On startup the registry replays
-- the whole table in insertion order to rebuild the in-memory graph.
CREATE TABLE {{.Keyspace}}.registry_log (
	-- day bucket (YYYYMMDD) the record landed in; partitions the log so a
	-- long-lived registry does not accumulate one unbounded partition
	day text,

	-- timeuuid of the insert, provides total order within a day
	id timeuuid,

	-- 'A' for access, 'D' for delete
	action text,

	-- the mutation timestamp as supplied (and clamped) by the registry core
	at timestamp,

	person_guid text,
	machine_guid text,

	-- machine name reported with the access, may be empty
	name text,

	url text,

	PRIMARY KEY (day, id)
);`

// GetSchema returns the CQL schema for the journal, with the keyspace and
// replication factor substituted from the current config.
func GetSchema() string {
	t, err := template.New("schema").Parse(schemaTemplate)
	if err != nil {
		// A parse failure here means the template constant is broken.
		panic(err.Error())
	}

	var rendered bytes.Buffer
	err = t.Execute(&rendered, registry.Config.Cassandra)
	if err != nil {
		panic(err.Error())
	}
	return rendered.String()
}

// CreateSchema creates the keyspace and journal table. It is used by tests
// and by operators bootstrapping a registry; the daemon itself expects the
// schema to exist already.
func CreateSchema() error {
	rendered := GetSchema()

	// The keyspace does not exist yet, so connect without one.
	cf := GetConfig()
	cf.Keyspace = ""
	db, err := cf.CreateSession()
	if err != nil {
		return fmt.Errorf("failed to connect to cassandra: %v", err)
	}
	defer db.Close()

	for _, stmt := range strings.Split(rendered, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := db.Query(stmt).Exec(); err != nil {
			return fmt.Errorf("failed to execute schema statement %q: %v", stmt, err)
		}
	}
	return nil
}
