// Command minttoken prints a signed access token for a staff or admin
// account. Accounts live outside this service; operators hand tokens out.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"attendance_app_backend/middleware"
	"attendance_app_backend/models"
)

func main() {
	userID := flag.Int("user", 1, "user id carried in the token")
	role := flag.String("role", models.RoleStaff, "role: staff or admin")
	ttl := flag.Duration("ttl", 30*24*time.Hour, "token lifetime")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	token, err := middleware.NewTokenService([]byte(secret)).GenerateToken(*userID, *role, *ttl)
	if err != nil {
		log.Fatalf("Error generating token: %v", err)
	}
	fmt.Println(token)
}
