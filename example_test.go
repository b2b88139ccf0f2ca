package presto_test

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	presto "github.com/prestodb/presto-go-client"
)

func ExampleConnect() {
	conn, err := presto.Connect(presto.Config{
		Host:    "localhost",
		Port:    8080,
		User:    "example",
		Catalog: "tpch",
		Schema:  "tiny",
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	defer conn.Close(ctx)

	cur := conn.Cursor()
	if err := cur.Execute(ctx, "select name, nationkey from nation where regionkey = ?", 1); err != nil {
		log.Fatal(err)
	}

	rows, err := cur.FetchAll(ctx)
	if err != nil {
		log.Fatal(err)
	}
	for _, row := range rows {
		fmt.Println(row[0], row[1])
	}
}

func ExampleCursor_All() {
	conn, err := presto.Connect(presto.Config{Host: "localhost", User: "example"})
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()

	cur := conn.Cursor()
	if err := cur.Execute(ctx, "select orderkey from tpch.tiny.orders"); err != nil {
		log.Fatal(err)
	}

	for row, err := range cur.All(ctx) {
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(row[0])
	}
}

func ExampleConn_Scope() {
	conn, err := presto.Connect(presto.Config{
		Host:           "localhost",
		User:           "example",
		IsolationLevel: presto.IsolationReadCommitted,
	})
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()

	err = conn.Scope(ctx, func(conn *presto.Conn) error {
		cur := conn.Cursor()
		if err := cur.Execute(ctx, "insert into events values (1, 'created')"); err != nil {
			return err
		}
		_, err := cur.FetchAll(ctx)
		return err
	})
	if err != nil {
		log.Fatal(err)
	}
}

func Example_databaseSQL() {
	db, err := sql.Open("presto", "presto://example@localhost:8080/tpch/tiny")
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	rows, err := db.Query("select name from nation limit 3")
	if err != nil {
		log.Fatal(err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			log.Fatal(err)
		}
		fmt.Println(name)
	}
}
