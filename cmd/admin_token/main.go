package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"fruitRouletteServer/api"
	"fruitRouletteServer/config"

	"github.com/joho/godotenv"
)

func main() {
	subject := flag.String("sub", "operator", "admin identity recorded in the audit log")
	ttl := flag.Duration("ttl", config.AdminTokenTTL, "token lifetime")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env not found")
	}

	secret := os.Getenv("ADMIN_JWT_SECRET")
	if secret == "" {
		log.Fatal("ADMIN_JWT_SECRET not set")
	}

	token, err := api.GenerateAdminToken([]byte(secret), *subject, *ttl)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
