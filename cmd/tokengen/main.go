// Package main generates a signed bearer token for exercising the
// two-factor API during development. The sub claim carries the user UUID
// the service operates on.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func main() {
	secret := flag.String("secret", "very-secure-jwt-secret", "Secret key for signing the token")
	issuer := flag.String("issuer", "authcore", "Issuer of the token")
	subject := flag.String("subject", "00000000-0000-0000-0000-000000000001", "Subject of the token (user UUID)")
	expiry := flag.Duration("expiry", 30*time.Minute, "Token expiry duration (e.g., 30m, 1h, 24h)")
	outputFormat := flag.String("format", "compact", "Output format: compact or debug")
	flag.Parse()

	if _, err := uuid.Parse(*subject); err != nil {
		fmt.Fprintf(os.Stderr, "Error: subject must be a valid UUID: %v\n", err)
		os.Exit(1)
	}

	now := time.Now()
	expiresAt := now.Add(*expiry)

	claims := jwt.MapClaims{
		"sub": *subject,
		"iss": *issuer,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString([]byte(*secret))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to sign token: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "compact":
		fmt.Println(tokenStr)
	case "debug":
		fmt.Printf("=== Token ===\n%s\n\n", tokenStr)
		claimsJSON, _ := json.MarshalIndent(claims, "", "  ")
		fmt.Printf("=== Claims ===\n%s\n\n", claimsJSON)
		fmt.Printf("Expires: %s\n", expiresAt.Format(time.RFC3339))
	default:
		fmt.Fprintf(os.Stderr, "Error: Unknown output format: %s\n", *outputFormat)
		os.Exit(1)
	}
}
