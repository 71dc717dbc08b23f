package registry

import "math"

// URL is one interned url string. Every edge in the graph points at the
// single URL record held in the intern table, so equal urls are stored once
// no matter how many persons and machines reference them. Usages counts the
// referencing edges; when it drops to zero the record is removed from the
// table.
type URL struct {
	URL    string
	Usages uint32
}

// urlTable is the intern table. Keys are byte-for-byte equal url strings;
// no normalization is applied, because the exact url a browser used to
// reach a machine is the thing being recorded.
type urlTable struct {
	urls map[string]*URL
}

func newURLTable() *urlTable {
	return &urlTable{urls: make(map[string]*URL)}
}

// intern returns the URL record for s, allocating one with zero usages if s
// has not been seen before. Callers that store the returned record in an
// edge must follow up with incref.
func (t *urlTable) intern(s string) *URL {
	u := t.urls[s]
	if u == nil {
		u = &URL{URL: s}
		t.urls[s] = u
	}
	return u
}

// find returns the interned record for s, or nil.
func (t *urlTable) find(s string) *URL {
	return t.urls[s]
}

// incref counts one more edge referencing u, saturating at the maximum
// representable value.
func (t *urlTable) incref(u *URL) {
	if u.Usages < math.MaxUint32 {
		u.Usages++
	}
}

// decref drops one edge reference. The last decref removes u from the
// table; anything still holding the pointer keeps it alive, but new interns
// of the same string will allocate a fresh record.
func (t *urlTable) decref(u *URL) {
	if u.Usages > 0 {
		u.Usages--
	}
	if u.Usages == 0 {
		delete(t.urls, u.URL)
	}
}

func (t *urlTable) count() int {
	return len(t.urls)
}
