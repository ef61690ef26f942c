package postgres

const queryServerVersion = `SHOW server_version_num`

const queryStatsEnabled = `SHOW track_counts`

// queryIndexes has two %s placeholders: the last-scan column expression
// (last_idx_scan only exists from PostgreSQL 16) and the schema filter clause.
// Writes are approximated from the owning table: every insert, delete and
// non-HOT update touches every index.
const queryIndexes = `
	SELECT
		n.nspname,
		t.relname,
		ic.relname,
		i.indisunique,
		i.indisprimary,
		pg_get_indexdef(i.indexrelid),
		am.amname,
		GREATEST(ic.reltuples::bigint, 0),
		COALESCE(s.idx_scan, 0),
		COALESCE(s.idx_tup_fetch, 0),
		COALESCE(ts.n_tup_ins, 0),
		COALESCE(ts.n_tup_upd - ts.n_tup_hot_upd, 0),
		COALESCE(ts.n_tup_del, 0),
		%s
	FROM pg_index i
	JOIN pg_class ic ON ic.oid = i.indexrelid
	JOIN pg_class t ON t.oid = i.indrelid
	JOIN pg_namespace n ON n.oid = t.relnamespace
	JOIN pg_am am ON am.oid = ic.relam
	LEFT JOIN pg_stat_user_indexes s ON s.indexrelid = i.indexrelid
	LEFT JOIN pg_stat_user_tables ts ON ts.relid = i.indrelid
	WHERE t.relkind IN ('r', 'm')
		AND %s
	ORDER BY n.nspname, t.relname, ic.relname`

// queryForeignKeys has one %s placeholder for the schema filter clause.
// Column names come out in constraint key order.
const queryForeignKeys = `
	SELECT
		n.nspname,
		t.relname,
		c.conname,
		array_agg(a.attname::text ORDER BY k.ord)
	FROM pg_constraint c
	JOIN pg_class t ON t.oid = c.conrelid
	JOIN pg_namespace n ON n.oid = t.relnamespace
	CROSS JOIN LATERAL unnest(c.conkey) WITH ORDINALITY AS k(attnum, ord)
	JOIN pg_attribute a ON a.attrelid = c.conrelid AND a.attnum = k.attnum
	WHERE c.contype = 'f'
		AND %s
	GROUP BY n.nspname, t.relname, c.conname
	ORDER BY n.nspname, t.relname, c.conname`

// queryTableSizes has one %s placeholder for the schema filter clause.
const queryTableSizes = `
	SELECT
		n.nspname,
		c.relname,
		COALESCE(pg_relation_size(c.oid), 0),
		COALESCE(pg_indexes_size(c.oid), 0)
	FROM pg_class c
	JOIN pg_namespace n ON n.oid = c.relnamespace
	WHERE c.relkind IN ('r', 'm')
		AND %s
	ORDER BY n.nspname, c.relname`
