package sqlinline

const QCreateLedgerRecords = `--sql dc81fc4c-5f8d-4d2c-94ea-abe1c1d8593a
create table if not exists ledger_records (
    seq bigserial not null,
    id text not null,
    collection text not null,
    payload jsonb not null,
    created_at timestamptz not null,
    primary key (collection, id)
);
`

const QCreateLedgerUsers = `--sql 83780e65-5253-49a3-9304-7cb5ac1d3e16
create table if not exists ledger_users (
    username text primary key,
    password_hash text not null,
    role text not null,
    created_at timestamptz not null
);
`

const QCreateFeedback = `--sql fde8987e-4ae2-4ef0-a1a2-57cf7fe783c4
create table if not exists feedback (
    id text primary key,
    payload jsonb not null,
    created_at timestamptz not null
);
`

// PostgresSchema is applied in order at start-up.
var PostgresSchema = []string{QCreateLedgerRecords, QCreateLedgerUsers, QCreateFeedback}
