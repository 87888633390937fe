// Command login exchanges a Bluesky handle and App Password for session
// tokens, for use with the post API from scripts or curl.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/blackmichael/bluesky-longpost/internal/bluesky"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		handle   string
		password string
		pds      string
	)

	flag.StringVar(&handle, "handle", envOrDefault("BLUESKY_HANDLE", ""), "BlueSky handle (e.g. user.bsky.social)")
	flag.StringVar(&password, "password", envOrDefault("BLUESKY_APP_PASSWORD", ""), "BlueSky app password")
	flag.StringVar(&pds, "pds", envOrDefault("BLUESKY_PDS_URL", "https://bsky.social"), "PDS service URL")
	flag.Parse()

	if handle == "" || password == "" {
		return fmt.Errorf("--handle and --password are required (or set BLUESKY_HANDLE and BLUESKY_APP_PASSWORD)")
	}

	ctx := context.Background()
	client := bluesky.NewClient(pds, "")

	fmt.Printf("Logging in as %s...\n", handle)
	session, err := client.CreateSession(ctx, handle, password)
	if err != nil {
		return err
	}

	fmt.Printf("Authenticated as %s\n", session.DID)
	fmt.Printf("handle:     %s\n", session.Handle)
	fmt.Printf("accessJwt:  %s\n", session.AccessJwt)
	fmt.Printf("refreshJwt: %s\n", session.RefreshJwt)

	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
