/*
Package registry implements the server side of the netdata registry: an
anonymous identity and cross-link service that lets a web browser visiting
any one monitoring node discover and navigate to the other nodes it has
previously visited.

The registry keeps an in-memory graph of persons (browser identities held in
a cookie), machines (monitoring nodes) and the urls through which those
machines were reached. The api package exposes the graph over HTTP; this
package owns the graph itself, the mutation primitives, and the mutation
journal used for durability.
*/
package registry

import "github.com/juju/loggo/v2"

var log = loggo.GetLogger("registry")
