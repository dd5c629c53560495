// Command mockapi runs the fake fraud-detection and core-banking services
// on one listener for local console development.
package main

import (
	"flag"
	"log"
	"net/http"

	"sentinel/internal/mockapi"
)

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	flag.Parse()

	server := mockapi.NewServer()

	log.Printf("mockapi: listening on %s (demo users: admin/admin123, analyst/analyst123, viewer/viewer123)", *addr)
	if err := http.ListenAndServe(*addr, server.Handler()); err != nil {
		log.Fatalf("mockapi: %v", err)
	}
}
