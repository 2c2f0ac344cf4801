// Command devtoken mints a bearer token for local testing. The role claim is
// informational; the server always reloads the actor from the users table.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"expenseflow/internal/domain/auth"
	"expenseflow/internal/platform/config"
)

func main() {
	userID := flag.String("user", "", "user id (token subject)")
	role := flag.String("role", string(auth.RoleEmployee), "role claim")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to TOKEN_TTL)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Fatal("JWT_SECRET is required")
	}
	if strings.TrimSpace(*userID) == "" {
		flag.Usage()
		os.Exit(2)
	}
	r := auth.Role(strings.ToUpper(*role))
	if !r.Valid() {
		log.Fatalf("unknown role %q", *role)
	}
	lifetime := cfg.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	token, err := auth.GenerateToken(cfg.JWTSecret, auth.Claims{UserID: *userID, Role: r}, lifetime)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Fprintf(os.Stdout, "%s\n", token)
}
