package registry

import (
	"math"
	"sort"
)

// PersonURL is the edge recording that a person visited a machine at a url.
// The same person and url reached through two different machines are two
// distinct edges. MachineName is a snapshot of the machine's name at the
// time of the last visit, so responses can show it without another lookup.
type PersonURL struct {
	URL         *URL
	Machine     *Machine
	MachineName string
	FirstT      int64
	LastT       int64
	Usages      uint32
}

// Person is an anonymous browser identity. The guid lives in the
// netdata_registry_id cookie; possession of the cookie is the only
// credential there is.
type Person struct {
	GUID   string
	FirstT int64
	LastT  int64
	Usages uint32

	// PersonURLs is kept sorted ascending by (url string, machine guid).
	// That order is what access responses return and what the delete
	// tie-break follows.
	PersonURLs []*PersonURL
}

// searchURL returns the insertion index for the (u, m) key and the edge at
// that index if it matches.
func (p *Person) searchURL(u *URL, m *Machine) (int, *PersonURL) {
	i := sort.Search(len(p.PersonURLs), func(i int) bool {
		pu := p.PersonURLs[i]
		if pu.URL.URL != u.URL {
			return pu.URL.URL >= u.URL
		}
		return pu.Machine.GUID >= m.GUID
	})
	if i < len(p.PersonURLs) {
		pu := p.PersonURLs[i]
		if pu.URL == u && pu.Machine == m {
			return i, pu
		}
	}
	return i, nil
}

// linkURL upserts the PersonURL edge for (u, m). A fresh edge takes one url
// reference; a repeat visit bumps usages, advances last_t and refreshes the
// machine name snapshot.
func (p *Person) linkURL(t *urlTable, u *URL, m *Machine, when int64) (*PersonURL, bool) {
	i, pu := p.searchURL(u, m)
	if pu != nil {
		if pu.Usages < math.MaxUint32 {
			pu.Usages++
		}
		if when > pu.LastT {
			pu.LastT = when
		}
		pu.MachineName = m.Name
		return pu, false
	}

	pu = &PersonURL{
		URL:         u,
		Machine:     m,
		MachineName: m.Name,
		FirstT:      when,
		LastT:       when,
		Usages:      1,
	}
	p.PersonURLs = append(p.PersonURLs, nil)
	copy(p.PersonURLs[i+1:], p.PersonURLs[i:])
	p.PersonURLs[i] = pu
	t.incref(u)
	return pu, true
}

// firstURLByString returns the first edge (in sorted order) whose url
// string equals s, across any machine.
func (p *Person) firstURLByString(s string) (int, *PersonURL) {
	for i, pu := range p.PersonURLs {
		if pu.URL.URL == s {
			return i, pu
		}
	}
	return -1, nil
}

// unlinkURL removes the edge at index i and drops its url reference.
func (p *Person) unlinkURL(t *urlTable, i int) {
	pu := p.PersonURLs[i]
	copy(p.PersonURLs[i:], p.PersonURLs[i+1:])
	p.PersonURLs[len(p.PersonURLs)-1] = nil
	p.PersonURLs = p.PersonURLs[:len(p.PersonURLs)-1]
	t.decref(pu.URL)
}

// hasMachine reports whether any of the person's edges references m.
func (p *Person) hasMachine(m *Machine) bool {
	for _, pu := range p.PersonURLs {
		if pu.Machine == m {
			return true
		}
	}
	return false
}

type personIndex struct {
	persons map[string]*Person
}

func newPersonIndex() *personIndex {
	return &personIndex{persons: make(map[string]*Person)}
}

func (pi *personIndex) find(guid string) *Person {
	return pi.persons[guid]
}

// getOrCreate resolves guid to a person, minting identity as needed. An
// empty or malformed guid gets a freshly generated one. A well formed but
// unknown guid is created as-is: the server stays tolerant to stale or
// recovered cookies, which is why no authentication is needed -- the cookie
// is the identity.
func (pi *personIndex) getOrCreate(guid string, when int64) (*Person, bool) {
	if !ValidGUID(guid) {
		guid = GenerateGUID()
	}

	p := pi.persons[guid]
	if p != nil {
		if p.Usages < math.MaxUint32 {
			p.Usages++
		}
		if when > p.LastT {
			p.LastT = when
		}
		return p, false
	}

	p = &Person{
		GUID:   guid,
		FirstT: when,
		LastT:  when,
		Usages: 1,
	}
	pi.persons[guid] = p
	return p, true
}

func (pi *personIndex) count() int {
	return len(pi.persons)
}
