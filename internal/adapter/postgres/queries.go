package postgres

// queryIndexStats has one %s placeholder for the schema filter clause.
// Column names are resolved in key order so composite indexes keep their
// declared column ordering; expression entries (attnum 0) are excluded and
// reported via has_expression instead.
const queryIndexStats = `
	SELECT
		s.schemaname,
		s.relname,
		s.indexrelname,
		COALESCE((
			SELECT array_agg(a.attname ORDER BY k.ord)
			FROM unnest(i.indkey) WITH ORDINALITY AS k(attnum, ord)
			JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = k.attnum
			WHERE k.attnum > 0
		), '{}') AS columns,
		COALESCE(pg_relation_size(s.indexrelid), 0) AS size_bytes,
		COALESCE(s.idx_scan, 0) AS scans,
		COALESCE(s.idx_tup_read, 0) AS tuples_read,
		COALESCE(s.idx_tup_fetch, 0) AS tuples_fetched,
		i.indisprimary,
		i.indisunique,
		i.indpred IS NOT NULL AS is_partial,
		i.indexprs IS NOT NULL AS has_expression
	FROM pg_stat_user_indexes s
	JOIN pg_index i ON i.indexrelid = s.indexrelid
	WHERE %s
	ORDER BY s.schemaname, s.relname, s.indexrelname`

// queryConstraints has one %s placeholder for the schema filter clause.
const queryConstraints = `
	SELECT
		n.nspname,
		r.relname,
		c.conname,
		CASE c.contype
			WHEN 'c' THEN 'check'
			WHEN 'f' THEN 'foreign_key'
			WHEN 'u' THEN 'unique'
			WHEN 'x' THEN 'exclusion'
		END AS constraint_type,
		COALESCE((
			SELECT array_agg(a.attname ORDER BY k.ord)
			FROM unnest(c.conkey) WITH ORDINALITY AS k(attnum, ord)
			JOIN pg_attribute a ON a.attrelid = c.conrelid AND a.attnum = k.attnum
		), '{}') AS columns,
		COALESCE(rt.relname, '') AS referenced_table
	FROM pg_constraint c
	JOIN pg_class r ON r.oid = c.conrelid
	JOIN pg_namespace n ON n.oid = r.relnamespace
	LEFT JOIN pg_class rt ON rt.oid = c.confrelid
	WHERE c.contype IN ('c', 'f', 'u', 'x')
		AND r.relkind IN ('r', 'p')
		AND %s
	ORDER BY n.nspname, r.relname, c.conname`

// querySchemaReadable probes catalog read privilege on a schema before
// collecting from it. $1 is the schema name.
const querySchemaReadable = `SELECT has_schema_privilege(current_user, $1, 'USAGE')`
