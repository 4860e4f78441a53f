package sistore

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

// staleEventGrace is how far in the past an event's end time must fall
// before the audit purges it.
const staleEventGrace = time.Hour

// Audit runs the periodic maintenance pass the scan controller schedules:
// purge events that ended more than an hour ago, drain the deferred repair
// queue, (if tdtObserved) check for a stale store, and VACUUM the store. A
// stale store is dropped and recreated, and the VACUUM is then skipped.
// The store mutex is held for the whole pass, the same mutex every upsert
// takes, so an audit never interleaves with a version-guarded write.
func (s *Store) Audit(now time.Time, tdtObserved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.purgeStaleEventsLocked(now); err != nil {
		return fmt.Errorf("sistore: audit purge events: %w", err)
	}

	s.repair.Drain(s.db)

	if tdtObserved {
		stale, err := s.isStaleLocked(now)
		if err != nil {
			return fmt.Errorf("sistore: audit stale check: %w", err)
		}
		if stale {
			log.Printf("sistore: latest EIT start_time is behind wall clock after a TDT was observed, recreating schema")
			if err := s.dropAndRecreateLocked(); err != nil {
				return fmt.Errorf("sistore: audit stale recreate: %w", err)
			}
			return nil
		}
	}

	if _, err := s.db.Exec(`VACUUM`); err != nil {
		return fmt.Errorf("sistore: audit vacuum: %w", err)
	}
	return nil
}

func (s *Store) purgeStaleEventsLocked(now time.Time) error {
	cutoff := now.Add(-staleEventGrace).Unix()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM EventComponent WHERE event_fk IN
		(SELECT id FROM Event WHERE start_time_unix + duration_sec < ?)`, cutoff); err != nil {
		return fmt.Errorf("purge event components: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM EventItem WHERE event_fk IN
		(SELECT id FROM Event WHERE start_time_unix + duration_sec < ?)`, cutoff); err != nil {
		return fmt.Errorf("purge event items: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM Event WHERE start_time_unix + duration_sec < ?`, cutoff); err != nil {
		return fmt.Errorf("purge events: %w", err)
	}
	return tx.Commit()
}

// isStaleLocked reports whether the latest known event's start time has
// already passed wall-clock now — i.e. the store hasn't been refreshed in a
// long time even though a clock reference (TDT) has arrived.
func (s *Store) isStaleLocked(now time.Time) (bool, error) {
	var latest sql.NullInt64
	err := s.db.QueryRow(`SELECT MAX(start_time_unix) FROM Event`).Scan(&latest)
	if err != nil {
		return false, err
	}
	if !latest.Valid {
		return false, nil
	}
	return latest.Int64 < now.Unix(), nil
}
