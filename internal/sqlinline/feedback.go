package sqlinline

const QInsertFeedback = `--sql bb7061fa-ca56-47f7-9c4e-d81721b3440e
insert into feedback (id, payload, created_at)
values ($1::text, $2::jsonb, $3::timestamptz);
`

const QListFeedback = `--sql cc803d82-616e-4676-b002-fc75eb6485ae
select payload
from feedback
order by created_at asc;
`
