package sistore

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/spartridge/dvbsi/internal/dvbsi"
)

// UpsertNIT persists nit behind a version guard: a version bump on a NIT
// drops and recreates the whole schema, since the NIT carries
// network-wide topology.
func (s *Store) UpsertNIT(nit dvbsi.NIT) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pk int64
	var version byte
	err := s.db.QueryRow(`SELECT id, version FROM Network WHERE network_id = ?`, nit.NetworkID).Scan(&pk, &version)
	switch {
	case err == sql.ErrNoRows:
		return s.insertNIT(nit)
	case err != nil:
		return fmt.Errorf("sistore: lookup network: %w", err)
	case version == nit.Version:
		return nil
	default:
		if err := s.dropAndRecreateLocked(); err != nil {
			return fmt.Errorf("sistore: drop schema on NIT version change: %w", err)
		}
		return s.insertNIT(nit)
	}
}

func (s *Store) insertNIT(nit dvbsi.NIT) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("sistore: insert NIT: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO Network(network_id, version) VALUES(?, ?)`, nit.NetworkID, nit.Version)
	if err != nil {
		return fmt.Errorf("sistore: insert network row: %w", err)
	}
	networkPK, _ := res.LastInsertId()

	for _, d := range nit.Descriptors {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO NitDescriptor(network_fk, tag, data) VALUES(?, ?, ?)`,
			networkPK, d.Tag, d.Data); err != nil {
			return fmt.Errorf("sistore: insert nit descriptor: %w", err)
		}
	}

	for _, ts := range nit.Streams {
		tsPK, err := upsertTransport(tx, ts.TSID, ts.OriginalNetworkID, networkPK, 0)
		if err != nil {
			return err
		}
		for _, d := range ts.Descriptors {
			if _, err := tx.Exec(`INSERT OR IGNORE INTO NitTransportDescriptor(transport_fk, tag, data) VALUES(?, ?, ?)`,
				tsPK, d.Tag, d.Data); err != nil {
				return fmt.Errorf("sistore: insert nit transport descriptor: %w", err)
			}
		}
	}

	return tx.Commit()
}

// upsertTransport finds or creates the Transport row for (originalNetworkID,
// tsID), optionally patching network_fk/bouquet_fk when non-zero.
func upsertTransport(tx *sql.Tx, tsID, originalNetworkID uint16, networkFK, bouquetFK int64) (int64, error) {
	var pk int64
	err := tx.QueryRow(`SELECT id FROM Transport WHERE original_network_id = ? AND ts_id = ?`,
		originalNetworkID, tsID).Scan(&pk)
	if err == sql.ErrNoRows {
		res, err := tx.Exec(`INSERT INTO Transport(ts_id, original_network_id, network_fk, bouquet_fk) VALUES(?, ?, NULLIF(?, 0), NULLIF(?, 0))`,
			tsID, originalNetworkID, networkFK, bouquetFK)
		if err != nil {
			return 0, fmt.Errorf("sistore: insert transport: %w", err)
		}
		return res.LastInsertId()
	}
	if err != nil {
		return 0, fmt.Errorf("sistore: lookup transport: %w", err)
	}
	if networkFK != 0 {
		if _, err := tx.Exec(`UPDATE Transport SET network_fk = ? WHERE id = ?`, networkFK, pk); err != nil {
			return 0, fmt.Errorf("sistore: patch transport network_fk: %w", err)
		}
	}
	if bouquetFK != 0 {
		if _, err := tx.Exec(`UPDATE Transport SET bouquet_fk = ? WHERE id = ?`, bouquetFK, pk); err != nil {
			return 0, fmt.Errorf("sistore: patch transport bouquet_fk: %w", err)
		}
	}
	return pk, nil
}

// UpsertBAT persists bat. On version change, the prior Bouquet row (and its
// cascaded descriptor/link rows) are deleted before the new version is
// written. Transport rows the new BAT lists are linked via
// bouquet_fk; a Transport row not yet written enqueues a deferred repair.
func (s *Store) UpsertBAT(bat dvbsi.BAT) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pk int64
	var version byte
	err := s.db.QueryRow(`SELECT id, version FROM Bouquet WHERE bouquet_id = ?`, bat.BouquetID).Scan(&pk, &version)
	switch {
	case err == sql.ErrNoRows:
		// fall through to insert
	case err != nil:
		return fmt.Errorf("sistore: lookup bouquet: %w", err)
	case version == bat.Version:
		return nil
	default:
		if err := deleteBouquet(s.db, pk); err != nil {
			return err
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("sistore: insert BAT: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO Bouquet(bouquet_id, version) VALUES(?, ?)`, bat.BouquetID, bat.Version)
	if err != nil {
		return fmt.Errorf("sistore: insert bouquet row: %w", err)
	}
	bouquetPK, _ := res.LastInsertId()

	for _, d := range bat.Descriptors {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO BatDescriptor(bouquet_fk, tag, data) VALUES(?, ?, ?)`,
			bouquetPK, d.Tag, d.Data); err != nil {
			return fmt.Errorf("sistore: insert bat descriptor: %w", err)
		}
	}

	for _, ts := range bat.Streams {
		var transportPK int64
		lookupErr := tx.QueryRow(`SELECT id FROM Transport WHERE original_network_id = ? AND ts_id = ?`,
			ts.OriginalNetworkID, ts.TSID).Scan(&transportPK)
		if lookupErr == sql.ErrNoRows {
			s.repair.Enqueue(
				`UPDATE Transport SET bouquet_fk = (SELECT id FROM Bouquet WHERE bouquet_id = ?) WHERE original_network_id = ? AND ts_id = ?`,
				bat.BouquetID, ts.OriginalNetworkID, ts.TSID)
			continue
		}
		if lookupErr != nil {
			return fmt.Errorf("sistore: lookup transport for bat link: %w", lookupErr)
		}
		if _, err := tx.Exec(`UPDATE Transport SET bouquet_fk = ? WHERE id = ?`, bouquetPK, transportPK); err != nil {
			return fmt.Errorf("sistore: link transport to bouquet: %w", err)
		}
		for _, d := range ts.Descriptors {
			if _, err := tx.Exec(`INSERT OR IGNORE INTO BatTransportDescriptor(transport_fk, tag, data) VALUES(?, ?, ?)`,
				transportPK, d.Tag, d.Data); err != nil {
				return fmt.Errorf("sistore: insert bat transport descriptor: %w", err)
			}
		}
	}

	return tx.Commit()
}

func deleteBouquet(db *sql.DB, bouquetPK int64) error {
	if _, err := db.Exec(`DELETE FROM BatTransportDescriptor WHERE transport_fk IN
		(SELECT id FROM Transport WHERE bouquet_fk = ?)`, bouquetPK); err != nil {
		return fmt.Errorf("sistore: purge bat transport descriptors: %w", err)
	}
	if _, err := db.Exec(`UPDATE Transport SET bouquet_fk = NULL WHERE bouquet_fk = ?`, bouquetPK); err != nil {
		return fmt.Errorf("sistore: unlink transports from bouquet: %w", err)
	}
	if _, err := db.Exec(`DELETE FROM BatDescriptor WHERE bouquet_fk = ?`, bouquetPK); err != nil {
		return fmt.Errorf("sistore: delete bat descriptors: %w", err)
	}
	if _, err := db.Exec(`DELETE FROM Bouquet WHERE id = ?`, bouquetPK); err != nil {
		return fmt.Errorf("sistore: delete bouquet: %w", err)
	}
	return nil
}

// UpsertSDT persists sdt. On version change, the prior Transport's service
// rows (and their cascaded component/event rows) are deleted first.
func (s *Store) UpsertSDT(sdt dvbsi.SDT) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("sistore: upsert SDT: %w", err)
	}
	defer tx.Rollback()

	transportPK, err := upsertTransport(tx, sdt.TransportStreamID, sdt.OriginalNetworkID, 0, 0)
	if err != nil {
		return err
	}

	rows, err := tx.Query(`SELECT id FROM Service WHERE transport_fk = ? AND version != ?`, transportPK, sdt.Version)
	if err != nil {
		return fmt.Errorf("sistore: lookup prior-version services: %w", err)
	}
	stalePKs, pk := []int64{}, int64(0)
	for rows.Next() && rows.Scan(&pk) == nil {
		stalePKs = append(stalePKs, pk)
	}
	rows.Close()
	for _, pk := range stalePKs {
		if err := deleteServiceRows(tx, pk); err != nil {
			return err
		}
	}

	for _, svc := range sdt.Services {
		var servicePK int64
		var version byte
		lookupErr := tx.QueryRow(`SELECT id, version FROM Service WHERE transport_fk = ? AND service_id = ?`,
			transportPK, svc.ServiceID).Scan(&servicePK, &version)
		if lookupErr == nil && version == sdt.Version {
			continue
		}
		if lookupErr == nil {
			if err := deleteServiceRows(tx, servicePK); err != nil {
				return err
			}
		} else if lookupErr != sql.ErrNoRows {
			return fmt.Errorf("sistore: lookup service: %w", lookupErr)
		}

		res, err := tx.Exec(`INSERT INTO Service(transport_fk, service_id, version, eit_schedule_flag, eit_pf_flag, running_status, free_ca_mode)
			VALUES(?, ?, ?, ?, ?, ?, ?)`,
			transportPK, svc.ServiceID, sdt.Version, svc.EITScheduleFlag, svc.EITPfFlag, svc.RunningStatus, svc.FreeCAMode)
		if err != nil {
			return fmt.Errorf("sistore: insert service: %w", err)
		}
		servicePK, _ = res.LastInsertId()

		for _, d := range svc.Descriptors {
			if _, err := tx.Exec(`INSERT OR IGNORE INTO ServiceComponent(service_fk, tag, data) VALUES(?, ?, ?)`,
				servicePK, d.Tag, d.Data); err != nil {
				return fmt.Errorf("sistore: insert service component: %w", err)
			}
		}
	}

	return tx.Commit()
}

func deleteServiceRows(tx *sql.Tx, servicePK int64) error {
	if _, err := tx.Exec(`DELETE FROM EventComponent WHERE event_fk IN (SELECT id FROM Event WHERE service_fk = ?)`, servicePK); err != nil {
		return fmt.Errorf("sistore: delete event components: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM EventItem WHERE event_fk IN (SELECT id FROM Event WHERE service_fk = ?)`, servicePK); err != nil {
		return fmt.Errorf("sistore: delete event items: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM Event WHERE service_fk = ?`, servicePK); err != nil {
		return fmt.Errorf("sistore: delete events: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM ServiceComponent WHERE service_fk = ?`, servicePK); err != nil {
		return fmt.Errorf("sistore: delete service components: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM Service WHERE id = ?`, servicePK); err != nil {
		return fmt.Errorf("sistore: delete service: %w", err)
	}
	return nil
}

// UpsertEIT persists eit. Each event row is keyed by (service, event_id,
// is_present_following) so the present/following instance and the schedule
// instance of the same event id coexist. An existing row on that key is
// deleted and reinserted on every delivery: the EIT version is neither
// stored nor compared, so a repeated delivery of the same version rewrites
// the same rows instead of being skipped.
func (s *Store) UpsertEIT(tableID byte, eit dvbsi.EIT) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("sistore: upsert EIT: %w", err)
	}
	defer tx.Rollback()

	var servicePK int64
	err = tx.QueryRow(`SELECT s.id FROM Service s JOIN Transport t ON t.id = s.transport_fk
		WHERE t.original_network_id = ? AND t.ts_id = ? AND s.service_id = ?`,
		eit.NetworkID, eit.TransportStreamID, eit.ServiceID).Scan(&servicePK)
	if err == sql.ErrNoRows {
		log.Printf("sistore: EIT for unknown service (onid=%d tsid=%d sid=%d), dropping", eit.NetworkID, eit.TransportStreamID, eit.ServiceID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("sistore: lookup service for EIT: %w", err)
	}

	isPF := isPresentFollowingTableID(tableID)

	for _, ev := range eventsOf(eit) {
		var eventPK int64
		err := tx.QueryRow(`SELECT id FROM Event WHERE service_fk = ? AND event_id = ? AND is_present_following = ?`,
			servicePK, ev.EventID, isPF).Scan(&eventPK)
		if err == nil {
			if _, delErr := tx.Exec(`DELETE FROM EventComponent WHERE event_fk = ?`, eventPK); delErr != nil {
				return fmt.Errorf("sistore: delete event components: %w", delErr)
			}
			if _, delErr := tx.Exec(`DELETE FROM EventItem WHERE event_fk = ?`, eventPK); delErr != nil {
				return fmt.Errorf("sistore: delete event items: %w", delErr)
			}
			if _, delErr := tx.Exec(`DELETE FROM Event WHERE id = ?`, eventPK); delErr != nil {
				return fmt.Errorf("sistore: delete event: %w", delErr)
			}
		} else if err != sql.ErrNoRows {
			return fmt.Errorf("sistore: lookup event: %w", err)
		}

		res, err := tx.Exec(`INSERT INTO Event(service_fk, event_id, is_present_following, start_time_unix, duration_sec, running_status, free_ca_mode)
			VALUES(?, ?, ?, ?, ?, ?, ?)`,
			servicePK, ev.EventID, isPF, ev.startUnix, ev.durationSec, ev.runningStatus, ev.freeCAMode)
		if err != nil {
			return fmt.Errorf("sistore: insert event: %w", err)
		}
		eventPK, _ = res.LastInsertId()

		for _, d := range ev.descriptors {
			if d.Tag == dvbsi.TagShortEvent {
				if se, ok := dvbsi.DecodeShortEvent(d); ok {
					if _, err := tx.Exec(`INSERT INTO EventItem(event_fk, description, text) VALUES(?, ?, ?)`,
						eventPK, se.EventName, se.Text); err != nil {
						return fmt.Errorf("sistore: insert event item: %w", err)
					}
				}
			}
			if _, err := tx.Exec(`INSERT OR IGNORE INTO EventComponent(event_fk, tag, data) VALUES(?, ?, ?)`,
				eventPK, d.Tag, d.Data); err != nil {
				return fmt.Errorf("sistore: insert event component: %w", err)
			}
		}
	}

	return tx.Commit()
}

// eitEventRow is the subset of an Event's fields the relational layer
// stores, pre-decoded from the on-wire BCD forms dvbsi leaves raw.
type eitEventRow struct {
	EventID       uint16
	startUnix     int64
	durationSec   int64
	runningStatus byte
	freeCAMode    bool
	descriptors   []dvbsi.Descriptor
}

func eventsOf(eit dvbsi.EIT) []eitEventRow {
	out := make([]eitEventRow, 0, len(eit.Events))
	for _, e := range eit.Events {
		out = append(out, eitEventRow{
			EventID:       e.EventID,
			startUnix:     e.StartTime().Unix(),
			durationSec:   int64(e.Duration().Seconds()),
			runningStatus: e.RunningStatus,
			freeCAMode:    e.FreeCAMode,
			descriptors:   e.Descriptors,
		})
	}
	return out
}

func isPresentFollowingTableID(tableID byte) bool {
	return tableID == dvbsi.TableIDEITPFActual || tableID == dvbsi.TableIDEITPFOther
}
