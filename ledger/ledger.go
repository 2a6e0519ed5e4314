package ledger

import (
	"sync"
	"time"
)

// Entry is a status that never reached the compliance authority.
type Entry struct {
	CaseID            string
	AccountIdentifier string
	Status            string
	Err               string
	At                time.Time
}

// Ledger collects lost status reports until an operator alert drains them.
// It is append-only from the processing side; nothing is ever re-reported.
type Ledger struct {
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
}

func New() *Ledger {
	return &Ledger{now: time.Now}
}

func (l *Ledger) Record(caseID, accountIdentifier, status string, err error) {
	e := Entry{
		CaseID:            caseID,
		AccountIdentifier: accountIdentifier,
		Status:            status,
		At:                l.now(),
	}
	if err != nil {
		e.Err = err.Error()
	}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Drain returns every recorded entry in recording order and empties the ledger.
func (l *Ledger) Drain() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := l.entries
	l.entries = nil
	return entries
}
