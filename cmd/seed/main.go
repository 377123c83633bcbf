package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/teamdeckhq/teamdeck/config"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	var accountID string
	err = db.QueryRow(`
		INSERT INTO accounts (external_identity_id, email, display_name, slug, is_admin)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (external_identity_id) DO UPDATE SET display_name = EXCLUDED.display_name
		RETURNING id
	`, "google-demo-1", "demo@teamdeck.dev", "Demo Admin", "demo-admin").Scan(&accountID)
	if err != nil {
		log.Fatalf("failed to seed account: %v", err)
	}
	fmt.Printf("seeded account: id=%s email=demo@teamdeck.dev\n", accountID)

	var teamID string
	err = db.QueryRow(`
		INSERT INTO teams (slug, name)
		VALUES ('demo-team', 'Demo Team')
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`).Scan(&teamID)
	if err != nil {
		log.Fatalf("failed to seed team: %v", err)
	}
	fmt.Printf("seeded team: id=%s slug=demo-team\n", teamID)

	if _, err := db.Exec(`
		INSERT INTO team_members (team_id, account_id)
		VALUES ($1, $2)
		ON CONFLICT (team_id, account_id) DO NOTHING
	`, teamID, accountID); err != nil {
		log.Fatalf("failed to seed membership: %v", err)
	}
	fmt.Println("seeded team membership")

	if _, err := db.Exec(`
		INSERT INTO invitations (email, team_id, invited_by, accepted)
		VALUES ($1, $2, $3, FALSE)
		ON CONFLICT DO NOTHING
	`, "invited@teamdeck.dev", teamID, accountID); err != nil {
		log.Fatalf("failed to seed invitation: %v", err)
	}
	fmt.Println("seeded pending invitation for invited@teamdeck.dev")
}
