package registry

import (
	"math"
	"testing"
)

func TestURLInterning(t *testing.T) {
	tab := newURLTable()

	u1 := tab.intern("http://a/")
	u2 := tab.intern("http://a/")
	if u1 != u2 {
		t.Errorf("Expected intern to return the same record for equal urls")
	}
	if u1.Usages != 0 {
		t.Errorf("Expected fresh url to have 0 usages, got %v", u1.Usages)
	}
	if tab.count() != 1 {
		t.Errorf("Expected 1 interned url, got %v", tab.count())
	}

	// No normalization: these are three distinct keys.
	tab.intern("http://a")
	tab.intern("HTTP://a/")
	if tab.count() != 3 {
		t.Errorf("Expected 3 interned urls, got %v", tab.count())
	}
}

func TestURLRefcounting(t *testing.T) {
	tab := newURLTable()

	u := tab.intern("http://a/")
	tab.incref(u)
	tab.incref(u)
	if u.Usages != 2 {
		t.Errorf("Expected 2 usages, got %v", u.Usages)
	}

	tab.decref(u)
	if tab.find("http://a/") == nil {
		t.Errorf("Url should still be interned with 1 usage left")
	}

	tab.decref(u)
	if tab.find("http://a/") != nil {
		t.Errorf("Url should be collected when usages reach zero")
	}
	if tab.count() != 0 {
		t.Errorf("Expected empty table, got %v entries", tab.count())
	}

	// A new intern after collection allocates a fresh record.
	u2 := tab.intern("http://a/")
	if u2 == u {
		t.Errorf("Expected a fresh record after collection")
	}
}

func TestURLUsagesSaturate(t *testing.T) {
	tab := newURLTable()

	u := tab.intern("http://a/")
	u.Usages = math.MaxUint32
	tab.incref(u)
	if u.Usages != math.MaxUint32 {
		t.Errorf("Expected usages to saturate at max, got %v", u.Usages)
	}
}
