// Command issue-token mints bearer tokens for crew-ticket-service and
// hashes webhook secrets for EVENTS_WEBHOOK_SECRET_HASH.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/crew-ticket-service/internal/api/dto"
	"github.com/spec-kit/crew-ticket-service/internal/auth"
	"github.com/spec-kit/crew-ticket-service/internal/config"
)

func main() {
	identity := flag.String("identity", "", "identity id the token is issued to")
	organization := flag.String("org", "", "organization id the identity acts in")
	webhookSecret := flag.String("hash-webhook-secret", "", "print the bcrypt hash of this webhook secret and exit")
	flag.Parse()

	if *webhookSecret != "" {
		hashed, err := auth.HashSecret(*webhookSecret, bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("hash webhook secret: %v", err)
		}
		fmt.Println(hashed)
		return
	}

	if *identity == "" || *organization == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	token, expiresAt, err := tokens.GenerateToken(*identity, *organization)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dto.AuthResponse{Token: token, ExpiresAt: expiresAt}); err != nil {
		log.Fatalf("encode token: %v", err)
	}
}
