package sqlitestore

// All migrations use IF NOT EXISTS to be idempotent.

const migrationInstruments = `
CREATE TABLE IF NOT EXISTS instruments (
    pos INTEGER NOT NULL,
    isin TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    type TEXT NOT NULL DEFAULT '',
    region TEXT NOT NULL DEFAULT '',
    replication TEXT NOT NULL DEFAULT '',
    distribution TEXT NOT NULL DEFAULT '',
    ter REAL NOT NULL DEFAULT 0
);
`

const migrationProfiles = `
CREATE TABLE IF NOT EXISTS profiles (
    pos INTEGER NOT NULL,
    isin TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    fund_size REAL NOT NULL DEFAULT 0,
    ter REAL NOT NULL DEFAULT 0,
    replication TEXT NOT NULL DEFAULT '',
    legal_structure TEXT NOT NULL DEFAULT '',
    fund_currency TEXT NOT NULL DEFAULT '',
    inception TEXT NOT NULL DEFAULT '',
    distribution TEXT NOT NULL DEFAULT '',
    distribution_interval TEXT NOT NULL DEFAULT '',
    domicile TEXT NOT NULL DEFAULT '',
    structure TEXT NOT NULL DEFAULT '',
    provider TEXT NOT NULL DEFAULT '',
    custodian TEXT NOT NULL DEFAULT '',
    auditor TEXT NOT NULL DEFAULT ''
);
`

const migrationPriceBatches = `
CREATE TABLE IF NOT EXISTS price_batches (
    id TEXT PRIMARY KEY,
    created_at DATETIME NOT NULL,
    observations INTEGER NOT NULL
);
`

const migrationPrices = `
CREATE TABLE IF NOT EXISTS prices (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    isin TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    price REAL NOT NULL,
    currency TEXT NOT NULL,
    date TEXT NOT NULL,
    batch_id TEXT NOT NULL REFERENCES price_batches(id)
);
`

const migrationCrypto = `
CREATE TABLE IF NOT EXISTS crypto (
    pos INTEGER NOT NULL,
    name TEXT NOT NULL,
    symbol TEXT NOT NULL,
    price REAL NOT NULL,
    volume_24h REAL NOT NULL,
    change_1h REAL NOT NULL,
    change_24h REAL NOT NULL,
    change_7d REAL NOT NULL,
    currency TEXT NOT NULL,
    date TEXT NOT NULL DEFAULT ''
);
`

const migrationIndexes = `
CREATE INDEX IF NOT EXISTS idx_prices_date ON prices(date);
CREATE INDEX IF NOT EXISTS idx_prices_isin ON prices(isin);
`

var migrations = []string{
	migrationInstruments,
	migrationProfiles,
	migrationPriceBatches,
	migrationPrices,
	migrationCrypto,
	migrationIndexes,
}
