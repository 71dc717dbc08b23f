package registry

import "math"

// MachineURL records that a machine has been reached at a url, independent
// of which person reached it. It holds a non-owning reference into the url
// intern table.
type MachineURL struct {
	URL    *URL
	FirstT int64
	LastT  int64
	Usages uint32
}

// Machine is one monitoring node, identified by the guid the node generated
// for itself on first start. Name is the latest non-empty name any access
// request reported for it.
type Machine struct {
	GUID   string
	Name   string
	FirstT int64
	LastT  int64
	Usages uint32

	// MachineURLs is this machine's own view of the urls it has been
	// reached at, keyed by interned URL record. Iteration order is
	// undefined; readers that need determinism sort the projection.
	MachineURLs map[*URL]*MachineURL
}

// linkURL upserts the MachineURL edge for u. A fresh edge takes one url
// reference; a repeat visit only bumps usages and advances last_t.
func (m *Machine) linkURL(t *urlTable, u *URL, when int64) (*MachineURL, bool) {
	mu := m.MachineURLs[u]
	if mu != nil {
		if mu.Usages < math.MaxUint32 {
			mu.Usages++
		}
		if when > mu.LastT {
			mu.LastT = when
		}
		return mu, false
	}

	mu = &MachineURL{URL: u, FirstT: when, LastT: when, Usages: 1}
	m.MachineURLs[u] = mu
	t.incref(u)
	return mu, true
}

type machineIndex struct {
	machines map[string]*Machine
}

func newMachineIndex() *machineIndex {
	return &machineIndex{machines: make(map[string]*Machine)}
}

func (mi *machineIndex) find(guid string) *Machine {
	return mi.machines[guid]
}

// getOrCreate returns the machine for guid, allocating it on first
// reference. On a hit the machine's usages and last_t advance; on a miss a
// machine with first_t = last_t = when and an empty name is created.
func (mi *machineIndex) getOrCreate(guid string, when int64) (*Machine, bool) {
	m := mi.machines[guid]
	if m != nil {
		if m.Usages < math.MaxUint32 {
			m.Usages++
		}
		if when > m.LastT {
			m.LastT = when
		}
		return m, false
	}

	m = &Machine{
		GUID:        guid,
		FirstT:      when,
		LastT:       when,
		Usages:      1,
		MachineURLs: make(map[*URL]*MachineURL),
	}
	mi.machines[guid] = m
	return m, true
}

func (mi *machineIndex) count() int {
	return len(mi.machines)
}
