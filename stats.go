package registry

// Rough per-record heap overheads (struct plus map/slice bookkeeping).
// The memory figures exist to feed capacity planning charts; they do not
// need to be exact, only stable and roughly proportional.
const (
	personOverhead     = 96
	machineOverhead    = 112
	urlOverhead        = 48
	personURLOverhead  = 88
	machineURLOverhead = 64
)

// Statistics is a point-in-time snapshot of the registry counters,
// published to the telemetry collaborator. Counts equal the cardinalities
// of the underlying structures; memory figures are approximations.
type Statistics struct {
	Persons      int `json:"persons"`
	Machines     int `json:"machines"`
	URLs         int `json:"urls"`
	PersonsURLs  int `json:"persons_urls"`
	MachinesURLs int `json:"machines_urls"`

	Usages uint64 `json:"usages"`

	PersonsMemory      uint64 `json:"persons_memory"`
	MachinesMemory     uint64 `json:"machines_memory"`
	URLsMemory         uint64 `json:"urls_memory"`
	PersonsURLsMemory  uint64 `json:"persons_urls_memory"`
	MachinesURLsMemory uint64 `json:"machines_urls_memory"`
}

// Statistics walks the graph under the lock and returns a consistent
// snapshot. The walk is linear in the number of entities; statistics are
// sampled on a human timescale, so that is acceptable.
func (r *Registry) Statistics() Statistics {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Statistics{
		Persons:      r.persons.count(),
		Machines:     r.machines.count(),
		URLs:         r.urls.count(),
		PersonsURLs:  r.personsURLsCount,
		MachinesURLs: r.machinesURLsCount,
		Usages:       r.usagesCount,
	}

	for _, p := range r.persons.persons {
		s.PersonsMemory += personOverhead + uint64(len(p.GUID))
		for _, pu := range p.PersonURLs {
			s.PersonsURLsMemory += personURLOverhead + uint64(len(pu.MachineName))
		}
	}
	for _, m := range r.machines.machines {
		s.MachinesMemory += machineOverhead + uint64(len(m.GUID)+len(m.Name))
		s.MachinesURLsMemory += machineURLOverhead * uint64(len(m.MachineURLs))
	}
	for _, u := range r.urls.urls {
		s.URLsMemory += urlOverhead + uint64(len(u.URL))
	}

	return s
}
