package cassandra

import (
	"time"

	"github.com/gocql/gocql"

	"github.com/netdata/registry"
)

// GetConfig returns a gocql ClusterConfig built from the global registry
// config. Tests and the daemon both go through here so connection tuning
// lives in one place.
func GetConfig() *gocql.ClusterConfig {
	conf := registry.Config.Cassandra

	cf := gocql.NewCluster(conf.Hosts...)
	cf.Keyspace = conf.Keyspace
	cf.ProtoVersion = conf.ProtoVersion
	cf.Port = conf.Port
	cf.NumConns = conf.NumConns

	timeout, err := time.ParseDuration(conf.Timeout)
	if err != nil {
		// This won't happen b/c the duration is checked in Config
		panic(err)
	}
	cf.Timeout = timeout

	return cf
}
