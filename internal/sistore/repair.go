package sistore

import (
	"database/sql"
	"log"
	"sync"
)

// maxRepairTries is the try ceiling after which a stuck repair entry is
// dropped without ever having succeeded.
const maxRepairTries = 3

type repairEntry struct {
	stmt  string
	args  []any
	tries int
}

// repairQueue absorbs the order-dependency between a BAT's
// transport-to-bouquet linking UPDATE and the Transport row it targets not
// having been written yet. It is drained by an audit tick.
type repairQueue struct {
	mu      sync.Mutex
	entries []repairEntry
}

func newRepairQueue() *repairQueue {
	return &repairQueue{}
}

// Enqueue records a SQL statement to retry later. Used when an UPDATE
// linking a Transport row to its bouquet_fk affects zero rows because the
// Transport row does not exist yet.
func (q *repairQueue) Enqueue(stmt string, args ...any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, repairEntry{stmt: stmt, args: args})
}

// Drain runs every outstanding entry against db once. An entry that reports
// a changed row is dropped as fixed; one that reaches maxRepairTries without
// ever succeeding is dropped and logged as abandoned.
func (q *repairQueue) Drain(db *sql.DB) {
	q.mu.Lock()
	entries := q.entries
	q.entries = nil
	q.mu.Unlock()

	var retained []repairEntry
	for _, e := range entries {
		res, err := db.Exec(e.stmt, e.args...)
		if err != nil {
			log.Printf("sistore: repair entry failed: %v", err)
		} else if n, _ := res.RowsAffected(); n > 0 {
			continue // fixed
		}
		e.tries++
		if e.tries >= maxRepairTries {
			log.Printf("sistore: repair entry abandoned after %d tries: %s", e.tries, e.stmt)
			continue
		}
		retained = append(retained, e)
	}

	q.mu.Lock()
	q.entries = append(retained, q.entries...)
	q.mu.Unlock()
}

// Len reports the number of outstanding repair entries, for metrics.
func (q *repairQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
