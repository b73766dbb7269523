package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedRoles(db)
	setIDs := seedCatalog(db)
	seedDiscounts(db, setIDs)

	log.Println("Seeding completed successfully!")
}

func seedRoles(db *sql.DB) {
	fmt.Println("Seeding Roles...")
	for _, name := range []string{"admin", "vip", "staff"} {
		if _, err := db.Exec(`INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name); err != nil {
			log.Fatalf("Failed to seed role %s: %v", name, err)
		}
	}
}

func seedCatalog(db *sql.DB) map[string]string {
	fmt.Println("Seeding Catalog...")

	setIDs := map[string]string{}
	sets := []struct {
		Name   string
		Parent string
	}{
		{"Electronics", ""},
		{"Audio", "Electronics"},
		{"Headphones", "Audio"},
		{"Home & Garden", ""},
	}
	for _, s := range sets {
		var parent any
		if s.Parent != "" {
			parent = setIDs[s.Parent]
		}
		var id string
		err := db.QueryRow(`
			INSERT INTO product_sets (name, parent_id) VALUES ($1, $2)
			RETURNING id;
		`, s.Name, parent).Scan(&id)
		if err != nil {
			log.Fatalf("Failed to seed set %s: %v", s.Name, err)
		}
		setIDs[s.Name] = id
	}

	products := []struct {
		Name string
		Set  string
	}{
		{"Wireless Over-Ear Headphones", "Headphones"},
		{"Studio Monitor Headphones", "Headphones"},
		{"Bluetooth Speaker", "Audio"},
		{"Smart Thermostat", "Home & Garden"},
		{"Garden Hose 20m", "Home & Garden"},
	}
	for _, p := range products {
		if _, err := db.Exec(`
			INSERT INTO products (name, set_id) VALUES ($1, $2);
		`, p.Name, setIDs[p.Set]); err != nil {
			log.Fatalf("Failed to seed product %s: %v", p.Name, err)
		}
	}
	return setIDs
}

func seedDiscounts(db *sql.DB, setIDs map[string]string) {
	fmt.Println("Seeding Discounts...")

	// Automatic sale: 20% off everything in Audio during the summer window.
	if _, err := db.Exec(`
		INSERT INTO discounts
			(name, priority, active, percent_bps, target, target_allow_list, target_set_ids, condition_groups)
		VALUES
			('Summer Audio Sale', 10, true, 2000, 'products', true, ARRAY[$1]::uuid[],
			 '[{"conditions": [{"type": "date_between", "start": "2026-06-01T00:00:00Z", "end": "2026-08-31T23:59:59Z", "is_in_range": true}]}]'::jsonb);
	`, setIDs["Audio"]); err != nil {
		log.Fatalf("Failed to seed sale: %v", err)
	}

	// Weekend flash sale on the cheapest cart item. Weekday flags start on Sunday.
	if _, err := db.Exec(`
		INSERT INTO discounts
			(name, priority, active, percent_bps, target, condition_groups)
		VALUES
			('Weekend Cheapest Item', 20, true, 5000, 'cheapest_product',
			 '[{"conditions": [{"type": "weekday_in", "weekdays": [true, false, false, false, false, false, true]}]}]'::jsonb);
	`); err != nil {
		log.Fatalf("Failed to seed flash sale: %v", err)
	}

	// Coupon: 25 off orders above 200, limited to 500 redemptions.
	if _, err := db.Exec(`
		INSERT INTO discounts
			(code, name, priority, active, amount, currency, target, max_uses, condition_groups)
		VALUES
			('WELCOME25', 'Welcome Coupon', 30, true, 2500, 'PLN', 'order_value', 500,
			 '[{"conditions": [{"type": "order_value", "min": 20000, "is_in_range": true}]}]'::jsonb)
		ON CONFLICT (code) DO NOTHING;
	`); err != nil {
		log.Fatalf("Failed to seed coupon: %v", err)
	}

	// Free-shipping coupon, one redemption per user.
	if _, err := db.Exec(`
		INSERT INTO discounts
			(code, name, priority, active, percent_bps, target, condition_groups)
		VALUES
			('FREESHIP', 'Free Shipping First Order', 40, true, 10000, 'shipping_price',
			 '[{"conditions": [{"type": "max_uses_per_user", "max": 1}]}]'::jsonb)
		ON CONFLICT (code) DO NOTHING;
	`); err != nil {
		log.Fatalf("Failed to seed shipping coupon: %v", err)
	}
}
