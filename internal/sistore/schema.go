package sistore

// schemaDDL creates the normalised relational snapshot: one parent row
// per natural key, 1:N descriptor side-tables, and the parsed projection
// tables the public API's database-backed variants join against.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS Network (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	network_id  INTEGER NOT NULL,
	version     INTEGER NOT NULL,
	UNIQUE(network_id)
);

CREATE TABLE IF NOT EXISTS NitDescriptor (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	network_fk INTEGER NOT NULL REFERENCES Network(id),
	tag        INTEGER NOT NULL,
	data       BLOB NOT NULL,
	UNIQUE(network_fk, tag, data)
);

CREATE TABLE IF NOT EXISTS Bouquet (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	bouquet_id  INTEGER NOT NULL,
	version     INTEGER NOT NULL,
	UNIQUE(bouquet_id)
);

CREATE TABLE IF NOT EXISTS BatDescriptor (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	bouquet_fk  INTEGER NOT NULL REFERENCES Bouquet(id),
	tag         INTEGER NOT NULL,
	data        BLOB NOT NULL,
	UNIQUE(bouquet_fk, tag, data)
);

CREATE TABLE IF NOT EXISTS Transport (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	ts_id               INTEGER NOT NULL,
	original_network_id INTEGER NOT NULL,
	network_fk          INTEGER REFERENCES Network(id),
	bouquet_fk          INTEGER REFERENCES Bouquet(id),
	UNIQUE(original_network_id, ts_id)
);

CREATE TABLE IF NOT EXISTS NitTransportDescriptor (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	transport_fk INTEGER NOT NULL REFERENCES Transport(id),
	tag          INTEGER NOT NULL,
	data         BLOB NOT NULL,
	UNIQUE(transport_fk, tag, data)
);

CREATE TABLE IF NOT EXISTS BatTransportDescriptor (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	transport_fk INTEGER NOT NULL REFERENCES Transport(id),
	tag          INTEGER NOT NULL,
	data         BLOB NOT NULL,
	UNIQUE(transport_fk, tag, data)
);

CREATE TABLE IF NOT EXISTS Service (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	transport_fk        INTEGER NOT NULL REFERENCES Transport(id),
	service_id          INTEGER NOT NULL,
	version             INTEGER NOT NULL,
	eit_schedule_flag   INTEGER NOT NULL,
	eit_pf_flag         INTEGER NOT NULL,
	running_status      INTEGER NOT NULL,
	free_ca_mode        INTEGER NOT NULL,
	UNIQUE(transport_fk, service_id)
);

CREATE TABLE IF NOT EXISTS ServiceComponent (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	service_fk  INTEGER NOT NULL REFERENCES Service(id),
	tag         INTEGER NOT NULL,
	data        BLOB NOT NULL,
	UNIQUE(service_fk, tag, data)
);

CREATE TABLE IF NOT EXISTS Event (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	service_fk      INTEGER NOT NULL REFERENCES Service(id),
	event_id        INTEGER NOT NULL,
	is_present_following INTEGER NOT NULL,
	start_time_unix INTEGER NOT NULL,
	duration_sec    INTEGER NOT NULL,
	running_status  INTEGER NOT NULL,
	free_ca_mode    INTEGER NOT NULL,
	UNIQUE(service_fk, event_id, is_present_following)
);

CREATE TABLE IF NOT EXISTS EventItem (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	event_fk    INTEGER NOT NULL REFERENCES Event(id),
	description TEXT NOT NULL,
	text        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS EventComponent (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	event_fk   INTEGER NOT NULL REFERENCES Event(id),
	tag        INTEGER NOT NULL,
	data       BLOB NOT NULL,
	UNIQUE(event_fk, tag, data)
);

CREATE TABLE IF NOT EXISTS ScanSettings (
	variable TEXT PRIMARY KEY,
	value    TEXT NOT NULL
);
`

// dropAllDDL tears down the catalogue tables in child-before-parent order,
// for the "drop and recreate" paths: NIT version change, scan-settings
// change, stale-store audit. ScanSettings is deliberately kept: the
// persisted settings snapshot must survive a topology-driven reset, or the
// next boot would see a spurious settings change and reset the schema
// again. ClearSettings wipes it explicitly when needed.
const dropAllDDL = `
DROP TABLE IF EXISTS EventComponent;
DROP TABLE IF EXISTS EventItem;
DROP TABLE IF EXISTS Event;
DROP TABLE IF EXISTS ServiceComponent;
DROP TABLE IF EXISTS Service;
DROP TABLE IF EXISTS BatTransportDescriptor;
DROP TABLE IF EXISTS NitTransportDescriptor;
DROP TABLE IF EXISTS Transport;
DROP TABLE IF EXISTS BatDescriptor;
DROP TABLE IF EXISTS Bouquet;
DROP TABLE IF EXISTS NitDescriptor;
DROP TABLE IF EXISTS Network;
`
