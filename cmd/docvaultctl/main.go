package main

import (
	"context"
	"flag"
	"log"

	"github.com/dmitrijs2005/docvault/internal/admincli"
)

func main() {

	serverURL := flag.String("server", "http://localhost:8000", "base URL of the DocVault server")
	flag.Parse()

	ctx := context.Background()
	app := admincli.NewApp(*serverURL)

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
