//cmd/seeder/main.go
package main

import (
    "database/sql"
    "fmt"
    "log"
    "os"

    "github.com/google/uuid"
    _ "github.com/lib/pq"
)

func main() {
    dsn := os.Getenv("DATABASE_URL")
    db, err := sql.Open("postgres", dsn)
    if err != nil {
        log.Fatal(err)
    }
    defer db.Close()

    schema, err := os.ReadFile("seed/schema.sql")
    if err != nil {
        log.Fatalf("failed to read schema: %v", err)
    }
    if _, err := db.Exec(string(schema)); err != nil {
        log.Fatalf("failed to apply schema: %v", err)
    }
    fmt.Println("Applied: seed/schema.sql")

    accountID := uuid.NewString()

    // Same address on two lists, to exercise the bounce/unsubscribe fan-out.
    contacts := []struct {
        listID, email, firstName, lastName, customFields string
    }{
        {"newsletter", "alice@example.com", "Alice", "Smith", `{"company": "Acme"}`},
        {"product-updates", "alice@example.com", "Alice", "Smith", `{"company": "Acme"}`},
        {"newsletter", "bob@example.com", "Bob", "Jones", `{}`},
        {"", "carol@example.com", "Carol", "White", `{}`},
    }

    for _, c := range contacts {
        _, err := db.Exec(`
            INSERT INTO contacts (account_id, list_id, email, first_name, last_name, custom_fields)
            VALUES ($1, $2, LOWER($3), $4, $5, $6)
            ON CONFLICT DO NOTHING`,
            accountID, c.listID, c.email, c.firstName, c.lastName, c.customFields,
        )
        if err != nil {
            log.Fatalf("failed to seed contact %s: %v", c.email, err)
        }
    }
    fmt.Printf("Seeded %d contacts for account %s\n", len(contacts), accountID)

    _, err = db.Exec(`
        INSERT INTO campaigns (account_id, name, subject, from_email, html_body, text_body, recipients, recipient_count, status)
        VALUES ($1, 'Welcome series #1', 'Welcome to Mailblast', 'hello@mailblast.example',
                '<h1>Hi {first_name}!</h1>', 'Hi {first_name}!',
                ARRAY['alice@example.com', 'bob@example.com', 'carol@example.com'], 3, 'draft')`,
        accountID,
    )
    if err != nil {
        log.Fatalf("failed to seed campaign: %v", err)
    }

    fmt.Println("Database seeding completed successfully!")
}
