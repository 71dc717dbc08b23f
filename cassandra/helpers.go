package cassandra

import (
	"fmt"
	"sync"

	"github.com/gocql/gocql"

	"github.com/netdata/registry"
)

// initdb ensures we only try to create the cassandra schema once
var initdb sync.Once

// GetTestDB ensures that a cassandra schema is loaded and all data is purged
// for testing purposes. It returns a gocql session or panics if anything
// failed. For safety's sake it may ONLY be used if the cassandra keyspace is
// `registry_test` and will panic if it isn't.
func GetTestDB() *gocql.Session {
	if registry.Config.Cassandra.Keyspace != "registry_test" {
		panic(fmt.Sprintf("Running tests requires using the registry_test keyspace (not %v)",
			registry.Config.Cassandra.Keyspace))
	}

	initdb.Do(func() {
		err := CreateSchema()
		if err != nil {
			panic(err.Error())
		}
	})

	config := GetConfig()
	db, err := config.CreateSession()
	if err != nil {
		panic(fmt.Sprintf("Could not connect to local cassandra db: %v", err))
	}

	err = db.Query(`TRUNCATE registry_log`).Exec()
	if err != nil {
		panic(fmt.Sprintf("Failed to truncate table registry_log: %v", err))
	}

	return db
}
