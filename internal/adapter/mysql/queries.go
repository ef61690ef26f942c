package mysql

const queryPerformanceSchemaEnabled = `SELECT @@performance_schema`

// queryIndexColumns has one %s placeholder for the schema filter clause.
// Rows come out in key order so columns can be appended as they arrive.
// COLUMN_NAME is NULL for functional key parts.
const queryIndexColumns = `
	SELECT
		s.TABLE_SCHEMA,
		s.TABLE_NAME,
		s.INDEX_NAME,
		s.NON_UNIQUE,
		s.COLUMN_NAME,
		COALESCE(s.CARDINALITY, 0),
		s.INDEX_TYPE
	FROM information_schema.STATISTICS s
	WHERE %s
	ORDER BY s.TABLE_SCHEMA, s.TABLE_NAME, s.INDEX_NAME, s.SEQ_IN_INDEX`

// queryIndexUsage has one %s placeholder for the schema filter clause.
const queryIndexUsage = `
	SELECT
		u.OBJECT_SCHEMA,
		u.OBJECT_NAME,
		u.INDEX_NAME,
		u.COUNT_READ,
		u.COUNT_WRITE,
		u.COUNT_FETCH,
		u.COUNT_INSERT,
		u.COUNT_UPDATE,
		u.COUNT_DELETE
	FROM performance_schema.table_io_waits_summary_by_index_usage u
	WHERE u.INDEX_NAME IS NOT NULL
		AND u.OBJECT_TYPE = 'TABLE'
		AND %s`

// queryForeignKeys has one %s placeholder for the schema filter clause.
const queryForeignKeys = `
	SELECT
		k.TABLE_SCHEMA,
		k.TABLE_NAME,
		k.CONSTRAINT_NAME,
		k.COLUMN_NAME
	FROM information_schema.KEY_COLUMN_USAGE k
	WHERE k.REFERENCED_TABLE_NAME IS NOT NULL
		AND %s
	ORDER BY k.TABLE_SCHEMA, k.TABLE_NAME, k.CONSTRAINT_NAME, k.ORDINAL_POSITION`

// queryTableSizes has one %s placeholder for the schema filter clause.
const queryTableSizes = `
	SELECT
		t.TABLE_SCHEMA,
		t.TABLE_NAME,
		COALESCE(t.DATA_LENGTH, 0),
		COALESCE(t.INDEX_LENGTH, 0)
	FROM information_schema.TABLES t
	WHERE t.TABLE_TYPE = 'BASE TABLE'
		AND %s
	ORDER BY t.TABLE_SCHEMA, t.TABLE_NAME`

// --- AHI status ---

const queryAHIVariables = `SHOW GLOBAL VARIABLES LIKE 'innodb_adaptive_hash_index%'`

const queryBufferPoolSize = `SELECT @@innodb_buffer_pool_size`

// queryAHIMetrics has one %s placeholder for the metric-name IN list.
// Disabled metrics are left out so the caller can tell which are missing.
const queryAHIMetrics = `
	SELECT NAME, COUNT
	FROM information_schema.INNODB_METRICS
	WHERE STATUS = 'enabled'
		AND NAME IN (%s)`

const queryInnoDBStatus = `SHOW ENGINE INNODB STATUS`

// stmtEnableMonitor has one %s placeholder for a quoted metric name.
const stmtEnableMonitor = `SET GLOBAL innodb_monitor_enable = %s`
