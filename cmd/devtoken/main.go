// Command devtoken mints a bearer token for local testing against the API.
//
// Usage:
//
//	devtoken -u <owner id> [-t minutes]
//
// The signing secret is read from JWT_SECRET (a .env file is auto-loaded).
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"filevault/internal/auth"
	"filevault/internal/config"
)

func main() {
	cfg := config.Load()

	fs := flag.NewFlagSet("devtoken", flag.ExitOnError)
	userID := fs.String("u", "", "owner id to embed in the token")
	validity := fs.Int("t", 60, "token validity (in minutes)")
	_ = fs.Parse(os.Args[1:])

	if *userID == "" || cfg.Auth.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "usage: JWT_SECRET=... devtoken -u <owner id> [-t minutes]")
		os.Exit(2)
	}

	token, err := auth.GenerateToken(*userID, []byte(cfg.Auth.JWTSecret), time.Duration(*validity)*time.Minute)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
