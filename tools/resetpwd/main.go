// Command resetpwd resets an account's password directly in the database, for
// when the operator locks themselves out.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sethvargo/go-password/password"

	"tokencast/internal/auth"
	"tokencast/internal/database"
)

func main() {
	dbPath := flag.String("db", "data/tokencast.db", "path to the database file")
	username := flag.String("user", "operator", "account to reset")
	flag.Parse()

	db, err := database.NewDB(database.Config{DatabasePath: *dbPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	user, err := db.Users.GetByUsername(ctx, *username)
	if err != nil {
		fmt.Fprintf(os.Stderr, "look up account: %v\n", err)
		os.Exit(1)
	}
	if user == nil {
		fmt.Fprintf(os.Stderr, "no account named %q\n", *username)
		os.Exit(1)
	}

	plain, err := password.Generate(20, 5, 0, false, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate password: %v\n", err)
		os.Exit(1)
	}
	hash, err := auth.HashPassword(plain)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash password: %v\n", err)
		os.Exit(1)
	}

	if err := db.Users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		fmt.Fprintf(os.Stderr, "store password: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("new password for %s: %s\n", *username, plain)
}
