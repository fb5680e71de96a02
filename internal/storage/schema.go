package storage

const schema = `
-- A single row holding the collection creation time; day numbers count from it.
CREATE TABLE IF NOT EXISTS col (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    crt INTEGER NOT NULL -- unix seconds, start of day 0
);

-- Note types with their ordered field names as a JSON array.
CREATE TABLE IF NOT EXISTS notetypes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    fields TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS decks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);

-- The 'sources' table tracks markdown deck sources, a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local', -- local | git
    last_scanned DATETIME
);

-- Field values are joined with 0x1f in note type order; tags are space padded.
CREATE TABLE IF NOT EXISTS notes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    guid TEXT NOT NULL UNIQUE,
    mid INTEGER NOT NULL,
    flds TEXT NOT NULL,
    tags TEXT NOT NULL DEFAULT ' ',
    source_id INTEGER,

    FOREIGN KEY(mid) REFERENCES notetypes(id),
    FOREIGN KEY(source_id) REFERENCES sources(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS cards (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    nid INTEGER NOT NULL,
    did INTEGER NOT NULL,
    ord INTEGER NOT NULL DEFAULT 0,
    due INTEGER NOT NULL,
    queue INTEGER NOT NULL DEFAULT 0, -- 0: New, 1: Learning, 2: Review
    type INTEGER NOT NULL DEFAULT 0,
    ivl INTEGER NOT NULL DEFAULT 0,
    stability REAL NOT NULL DEFAULT 0,
    difficulty REAL NOT NULL DEFAULT 0,

    FOREIGN KEY(nid) REFERENCES notes(id) ON DELETE CASCADE,
    FOREIGN KEY(did) REFERENCES decks(id)
);

CREATE INDEX IF NOT EXISTS idx_cards_nid ON cards(nid);
CREATE INDEX IF NOT EXISTS idx_cards_due ON cards(due);
CREATE INDEX IF NOT EXISTS idx_notes_source ON notes(source_id);
`
