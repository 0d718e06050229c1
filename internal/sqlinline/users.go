package sqlinline

const QInsertLedgerUser = `--sql 3c6f068a-d057-4a6e-826e-1183789d5255
insert into ledger_users (username, password_hash, role, created_at)
values ($1::text, $2::text, $3::text, $4::timestamptz);
`

const QSelectLedgerUser = `--sql ab9940d0-8608-4719-a710-a2a3cfc2effe
select username, password_hash, role, created_at
from ledger_users
where username = $1::text;
`
