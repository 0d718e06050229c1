package sqlinline

// SQLite dialect of the same tables. The seq column doubles as rowid.

const QSQLiteCreateLedgerRecords = `--sql 4ce9a107-d9fc-4b83-85bd-04bfed38cc20
create table if not exists ledger_records (
    seq integer primary key autoincrement,
    id text not null,
    collection text not null,
    payload text not null,
    created_at text not null,
    unique (collection, id)
);
`

const QSQLiteCreateLedgerUsers = `--sql 0be3728f-24dd-43f7-a786-82f22a39c335
create table if not exists ledger_users (
    username text primary key,
    password_hash text not null,
    role text not null,
    created_at text not null
);
`

const QSQLiteCreateFeedback = `--sql f65ac7fd-080f-4690-8c92-8fae4789e8e6
create table if not exists feedback (
    id text primary key,
    payload text not null,
    created_at text not null
);
`

const QSQLiteInsertLedgerRecord = `--sql 8209d0da-1b79-4604-9bde-07791d2ea98f
insert into ledger_records (id, collection, payload, created_at)
values (?, ?, ?, ?);
`

const QSQLiteInsertLedgerUser = `--sql 90a837b1-ed24-432d-ab5c-9b650fb4c9ee
insert into ledger_users (username, password_hash, role, created_at)
values (?, ?, ?, ?);
`

const QSQLiteSelectLedgerUser = `--sql 0cc8d7e2-01c5-47f0-93bd-1f5cae728291
select username, password_hash, role, created_at
from ledger_users
where username = ?;
`

const QSQLiteInsertFeedback = `--sql 0a954ab2-9d1b-4223-8e9f-a6b3ed503d46
insert into feedback (id, payload, created_at)
values (?, ?, ?);
`

// SQLiteSchema is applied in order at start-up.
var SQLiteSchema = []string{QSQLiteCreateLedgerRecords, QSQLiteCreateLedgerUsers, QSQLiteCreateFeedback}
