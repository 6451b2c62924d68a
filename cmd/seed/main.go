package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	username := getenvDefault("SEED_USER_NAME", "demo")
	email := getenvDefault("SEED_USER_EMAIL", "demo@example.com")
	password := getenvDefault("SEED_USER_PASSWORD", "Demo1234!")

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect db: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to ping db: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	query := `
	INSERT INTO users (id, username, email, password, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (email) DO UPDATE SET
	  username = EXCLUDED.username,
	  password = EXCLUDED.password,
	  updated_at = EXCLUDED.updated_at
	RETURNING id
	`

	now := time.Now().UTC()
	var id string
	err = db.QueryRow(query, uuid.New().String(), username, email, string(hash), now, now).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}

	fmt.Printf("Seeded user: username=%s email=%s id=%s\n", username, email, id)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
