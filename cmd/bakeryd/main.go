// bakeryd runs the development stand-in for the bakery backend. The
// client is normally pointed at the production API; this exists so the
// CLI and the stores can be exercised locally end to end.
package main

import (
	"io"
	"log"
	"os"

	"bakehouse/internal/devapi"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	dsn := os.Getenv("DEV_DB")
	if dsn == "" {
		dsn = "bakeryd.db"
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "bakehouse-dev-secret"
	}

	// Optional file logging
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", logFile, err)
		} else {
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	db, err := devapi.OpenDB(dsn)
	if err != nil {
		log.Fatal(err)
	}

	app := devapi.New(db, []byte(secret))
	log.Printf("[bakeryd] listening on :%s (db=%s)", port, dsn)
	log.Fatal(app.Fiber.Listen(":" + port))
}
