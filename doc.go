// Package presto is a client driver for Presto and Trino distributed SQL
// query engines, speaking the coordinator's polling HTTP protocol: a
// statement is submitted with a POST, each response carries a batch of rows
// plus a nextUri to poll, and the query ends when the engine stops handing
// out continuation URIs, reports an error, or is canceled with a DELETE.
//
// # Getting Started
//
// Open a connection and run a query through a cursor:
//
//	conn, err := presto.Connect(presto.Config{
//	    Host:    "coordinator.example.com",
//	    User:    "etl",
//	    Catalog: "hive",
//	    Schema:  "default",
//	})
//	if err != nil {
//	    log.Fatal().Err(err).Msg("connect failed")
//	}
//
//	cur := conn.Cursor()
//	if err := cur.Execute(ctx, "SELECT * FROM my_table LIMIT 100"); err != nil {
//	    log.Fatal().Err(err).Msg("query failed")
//	}
//	rows, err := cur.FetchAll(ctx)
//
// # Result Consumption
//
// Results can be consumed eagerly with FetchAll, row by row with FetchOne,
// or lazily with Rows or All. All four draw from the same buffered page
// source, polling the coordinator for the next page exactly when the
// buffer runs dry.
//
// # Transactions
//
// A connection configured with a non-autocommit isolation level starts a
// transaction lazily before its first query and threads the transaction id
// through every request of every cursor until Commit or Rollback. Scope
// runs a function with commit-on-success and rollback-on-failure semantics:
//
//	err := conn.Scope(ctx, func(conn *presto.Conn) error {
//	    cur := conn.Cursor()
//	    return cur.Execute(ctx, "INSERT INTO t VALUES (1)")
//	})
//
// # database/sql
//
// The package also registers a "presto" database/sql driver:
//
//	db, err := sql.Open("presto", "presto://user@coordinator:8080/hive/default")
//
// # Retries
//
// Transient transport failures are retried with exponential backoff up to
// Config.MaxAttempts. Statement submissions are never retried once the
// engine may have received them, so a query cannot be duplicated by the
// retry policy.
package presto
