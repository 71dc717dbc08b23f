package registry

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Journal actions. Only graph mutations are journaled; switch changes
// nothing server-side and hello/search are reads.
const (
	ActionAccess byte = 'A'
	ActionDelete byte = 'D'
)

// Record is one append-only registry mutation.
type Record struct {
	Action      byte
	When        int64
	PersonGUID  string
	MachineGUID string
	Name        string
	URL         string
}

// Journal receives one record per successful mutation. WriteRecord is
// invoked while the registry lock is held, so implementations must be quick
// and must not call back into the registry.
type Journal interface {
	WriteRecord(rec Record) error
	Close() error
}

// FileJournal is the default journal: an append-only tab-separated text
// file, one line per mutation. The format is
//
//	action \t hex-timestamp \t person \t machine \t name \t url
//
// Tabs and newlines inside name are folded to spaces so the line structure
// survives; urls never contain either.
type FileJournal struct {
	path string
	f    *os.File
	w    *bufio.Writer
}

// NewFileJournal opens (creating if needed) the journal at path for
// appending.
func NewFileJournal(path string) (*FileJournal, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %v: %v", path, err)
	}
	return &FileJournal{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

// WriteRecord appends one record and flushes it. The registry holds its
// lock while calling, so the flat file needs no locking of its own.
func (j *FileJournal) WriteRecord(rec Record) error {
	_, err := fmt.Fprintf(j.w, "%c\t%08x\t%s\t%s\t%s\t%s\n",
		rec.Action, rec.When, rec.PersonGUID, rec.MachineGUID,
		foldWhitespace(rec.Name), rec.URL)
	if err != nil {
		return err
	}
	return j.w.Flush()
}

// Close flushes and closes the underlying file.
func (j *FileJournal) Close() error {
	if err := j.w.Flush(); err != nil {
		j.f.Close()
		return err
	}
	return j.f.Close()
}

func foldWhitespace(s string) string {
	if !strings.ContainsAny(s, "\t\n\r") {
		return s
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\r':
			return ' '
		}
		return r
	}, s)
}

// LoadFileJournal replays the journal at path into r, returning the number
// of records applied. A missing file is not an error (first boot).
// Malformed lines are logged and skipped; one bad line must not discard the
// rest of the history.
func LoadFileJournal(path string, r *Registry) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to open journal %v: %v", path, err)
	}
	defer f.Close()

	applied := 0
	lineno := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if line == "" {
			continue
		}
		rec, err := parseRecord(line)
		if err != nil {
			log.Warningf("journal %v line %d: %v", path, lineno, err)
			continue
		}
		r.Apply(rec)
		applied++
	}
	if err := scanner.Err(); err != nil {
		return applied, fmt.Errorf("failed reading journal %v: %v", path, err)
	}

	log.Infof("replayed %d journal records from %v", applied, path)
	return applied, nil
}

func parseRecord(line string) (Record, error) {
	fields := strings.SplitN(line, "\t", 6)
	if len(fields) != 6 || len(fields[0]) != 1 {
		return Record{}, fmt.Errorf("malformed record %q", line)
	}
	when, err := strconv.ParseInt(fields[1], 16, 64)
	if err != nil {
		return Record{}, fmt.Errorf("malformed timestamp in record %q: %v", line, err)
	}
	return Record{
		Action:      fields[0][0],
		When:        when,
		PersonGUID:  fields[2],
		MachineGUID: fields[3],
		Name:        fields[4],
		URL:         fields[5],
	}, nil
}

// CompactFileJournal rewrites the journal at path as one access record per
// live person edge, replacing the full mutation history with the state it
// produces. Call it after LoadFileJournal and before NewFileJournal so the
// file stops growing without bound across restarts. The rewrite goes
// through a temp file and a rename, so a crash mid-compaction leaves either
// the old journal or the new one, never a torn file.
func CompactFileJournal(path string, r *Registry) error {
	tmp := path + ".compacting"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %v: %v", tmp, err)
	}
	w := bufio.NewWriter(f)

	r.mu.Lock()
	for _, p := range r.persons.persons {
		for _, pu := range p.PersonURLs {
			_, err = fmt.Fprintf(w, "%c\t%08x\t%s\t%s\t%s\t%s\n",
				ActionAccess, pu.LastT, p.GUID, pu.Machine.GUID,
				foldWhitespace(pu.MachineName), pu.URL.URL)
			if err != nil {
				break
			}
		}
		if err != nil {
			break
		}
	}
	r.mu.Unlock()

	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %v: %v", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace journal %v: %v", path, err)
	}
	return nil
}
