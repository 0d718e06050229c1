package sqlinline

const QInsertLedgerRecord = `--sql 2d3636fe-8a07-43d1-be66-6fd5bc6c442d
insert into ledger_records (id, collection, payload, created_at)
values ($1::text, $2::text, $3::jsonb, $4::timestamptz);
`

const QPing = `--sql 6b1e0c47-93f2-4d8a-a5c3-2f9e81d4b70a
select 1;
`

const QListLedgerRecords = `--sql 90ddfdc0-2af6-448e-8c4a-bdae18191d34
select collection, payload
from ledger_records
order by seq asc;
`
