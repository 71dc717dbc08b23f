package registry

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// Failures surfaced by the mutation primitives. The api layer maps the
// switch family onto the distinct 43x status codes the web ui expects.
var (
	ErrEmptyURL                = errors.New("registry: empty url")
	ErrBadMachineGUID          = errors.New("registry: malformed machine guid")
	ErrPersonNotFound          = errors.New("registry: person not found")
	ErrMachineNotFound         = errors.New("registry: machine not found")
	ErrPersonURLNotFound       = errors.New("registry: url not found for person")
	ErrNewPersonNotFound       = errors.New("registry: new person not found")
	ErrPersonMachineMissing    = errors.New("registry: person has no access to this machine")
	ErrNewPersonMachineMissing = errors.New("registry: new person has no access to this machine")
)

// futureSlack is how far ahead of the server clock a supplied timestamp may
// run before it is replaced with now.
const futureSlack = 3600

// Registry is the whole in-memory graph: persons, machines, interned urls
// and the edges between them, plus the global counters.
//
// A single mutex covers the graph. Handler work inside the lock is a few
// small map lookups and edge insertions, so reader/writer separation or
// finer locks would add complexity for no measurable gain at the target
// load. Mutations are linearizable; their total order is the lock
// acquisition order.
type Registry struct {
	mu sync.Mutex

	persons  *personIndex
	machines *machineIndex
	urls     *urlTable

	personsURLsCount  int
	machinesURLsCount int
	usagesCount       uint64

	journal Journal

	// now is stubbed in tests
	now func() int64
}

// New creates an empty registry. Tests construct independent instances; the
// daemon creates exactly one at startup.
func New() *Registry {
	return &Registry{
		persons:  newPersonIndex(),
		machines: newMachineIndex(),
		urls:     newURLTable(),
		now:      func() int64 { return time.Now().Unix() },
	}
}

// SetJournal installs the mutation journal. Records are written while the
// registry lock is held, so the journal must not call back into the
// registry. A nil journal disables journaling.
func (r *Registry) SetJournal(j Journal) {
	r.mu.Lock()
	r.journal = j
	r.mu.Unlock()
}

// clampWhen substitutes now for zero, negative, or far-future timestamps.
func clampWhen(when, now int64) int64 {
	if when <= 0 || when > now+futureSlack {
		return now
	}
	return when
}

// PersonURLRow is one row of an access response: the machines and urls a
// person has visited, with the per-edge visit stats.
type PersonURLRow struct {
	MachineGUID string
	URL         string
	LastT       int64
	Usages      uint32
	MachineName string
}

// MachineURLRow is one row of a search response: the urls a machine has
// been reached at, as seen by any person.
type MachineURLRow struct {
	MachineGUID string
	URL         string
	LastT       int64
	Usages      uint32
}

// AccessResult is the outcome of a successful access request.
type AccessResult struct {
	PersonGUID string
	URLs       []PersonURLRow
}

// RequestAccess records that the person identified by personGUID reached
// the machine machineGUID at url. Machine, url and person are all created
// lazily on first reference; an empty or malformed personGUID mints a fresh
// identity. It returns the person's guid (possibly new) and the person's
// full url list, snapshotted under the lock.
func (r *Registry) RequestAccess(personGUID, machineGUID, url, name string, when int64) (*AccessResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.access(personGUID, machineGUID, url, name, when, true)
	if err != nil {
		return nil, err
	}

	res := &AccessResult{
		PersonGUID: p.GUID,
		URLs:       make([]PersonURLRow, 0, len(p.PersonURLs)),
	}
	for _, pu := range p.PersonURLs {
		res.URLs = append(res.URLs, PersonURLRow{
			MachineGUID: pu.Machine.GUID,
			URL:         pu.URL.URL,
			LastT:       pu.LastT,
			Usages:      pu.Usages,
			MachineName: pu.MachineName,
		})
	}
	return res, nil
}

// access is the core mutator, shared by RequestAccess and journal replay.
// Replay passes journal=false so records are not written twice.
func (r *Registry) access(personGUID, machineGUID, url, name string, when int64, journal bool) (*Person, error) {
	when = clampWhen(when, r.now())

	if !ValidGUID(machineGUID) {
		return nil, ErrBadMachineGUID
	}
	if url == "" {
		return nil, ErrEmptyURL
	}
	if max := Config.Registry.MaxURLLength; max > 0 && len(url) > max {
		url = url[:max]
	}
	if max := Config.Registry.MaxNameLength; max > 0 && len(name) > max {
		name = name[:max]
	}

	m, _ := r.machines.getOrCreate(machineGUID, when)
	if name != "" && name != m.Name {
		m.Name = name
	}

	u := r.urls.intern(url)
	p, _ := r.persons.getOrCreate(personGUID, when)

	if _, created := m.linkURL(r.urls, u, when); created {
		r.machinesURLsCount++
	}
	if _, created := p.linkURL(r.urls, u, m, when); created {
		r.personsURLsCount++
	}
	r.usagesCount++

	if journal {
		r.writeRecord(Record{
			Action:      ActionAccess,
			When:        when,
			PersonGUID:  p.GUID,
			MachineGUID: m.GUID,
			Name:        name,
			URL:         url,
		})
	}
	return p, nil
}

// RequestDelete removes the person's first edge (in sorted order) whose url
// string equals deleteURL, across any machine. The person and machine stay
// alive; the machine's own MachineURL for that url is deliberately left
// untouched, matching the long-observed behavior of the registry.
func (r *Registry) RequestDelete(personGUID, machineGUID, url, deleteURL string, when int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.delete(personGUID, machineGUID, url, deleteURL, when, true)
}

func (r *Registry) delete(personGUID, machineGUID, url, deleteURL string, when int64, journal bool) error {
	when = clampWhen(when, r.now())

	p := r.persons.find(personGUID)
	if p == nil {
		return ErrPersonNotFound
	}

	i, pu := p.firstURLByString(deleteURL)
	if pu == nil {
		return ErrPersonURLNotFound
	}

	p.unlinkURL(r.urls, i)
	r.personsURLsCount--
	if when > p.LastT {
		p.LastT = when
	}

	if journal {
		r.writeRecord(Record{
			Action:      ActionDelete,
			When:        when,
			PersonGUID:  personGUID,
			MachineGUID: machineGUID,
			URL:         deleteURL,
		})
	}
	return nil
}

// RequestSearch returns the urls the target machine has been reached at, as
// seen by any person. The caller must be a known person, but no edge
// between the caller and the target is required: anyone holding a valid
// cookie can enumerate any known machine's urls. That is the observed
// behavior of the original service and is preserved as-is.
//
// Rows are sorted by url for deterministic output; the underlying index is
// unordered.
func (r *Registry) RequestSearch(personGUID, machineGUID, url, forMachine string, when int64) ([]MachineURLRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p := r.persons.find(personGUID); p == nil {
		return nil, ErrPersonNotFound
	}
	if !ValidGUID(forMachine) {
		return nil, ErrMachineNotFound
	}
	m := r.machines.find(forMachine)
	if m == nil {
		return nil, ErrMachineNotFound
	}

	rows := make([]MachineURLRow, 0, len(m.MachineURLs))
	for _, mu := range m.MachineURLs {
		rows = append(rows, MachineURLRow{
			MachineGUID: m.GUID,
			URL:         mu.URL.URL,
			LastT:       mu.LastT,
			Usages:      mu.Usages,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].URL < rows[j].URL })
	return rows, nil
}

// RequestSwitch moves the browser from one identity to another. Both
// persons and the machine must already exist, and both persons must have at
// least one edge to the machine -- proof that both cookies have been seen
// on this node. Nothing is merged or deleted; on success the caller simply
// sets the new person's cookie.
func (r *Registry) RequestSwitch(personGUID, machineGUID, url, newPersonGUID string, when int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	op := r.persons.find(personGUID)
	if op == nil {
		return "", ErrPersonNotFound
	}
	np := r.persons.find(newPersonGUID)
	if np == nil {
		return "", ErrNewPersonNotFound
	}
	m := r.machines.find(machineGUID)
	if m == nil {
		return "", ErrMachineNotFound
	}
	if !op.hasMachine(m) {
		return "", ErrPersonMachineMissing
	}
	if !np.hasMachine(m) {
		return "", ErrNewPersonMachineMissing
	}

	return np.GUID, nil
}

// writeRecord hands one mutation record to the journal, if one is
// installed. Journal failures are logged and otherwise ignored: losing a
// journal line must never fail the request that produced it.
func (r *Registry) writeRecord(rec Record) {
	if r.journal == nil {
		return
	}
	if err := r.journal.WriteRecord(rec); err != nil {
		log.Errorf("failed to journal %c record for person %v: %v", rec.Action, rec.PersonGUID, err)
	}
}

// Apply replays one journal record into the graph without journaling it
// again. Journal implementations call it during startup replay. Replay
// failures are logged and skipped; a partially corrupt journal should not
// prevent startup.
func (r *Registry) Apply(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	switch rec.Action {
	case ActionAccess:
		_, err = r.access(rec.PersonGUID, rec.MachineGUID, rec.URL, rec.Name, rec.When, false)
	case ActionDelete:
		err = r.delete(rec.PersonGUID, rec.MachineGUID, "", rec.URL, rec.When, false)
	default:
		log.Warningf("skipping journal record with unknown action %q", rec.Action)
		return
	}
	if err != nil {
		log.Warningf("skipping journal %c record for person %v: %v", rec.Action, rec.PersonGUID, err)
	}
}
