// Command token mints an access token for local development. In production
// tokens come from the identity provider; both sign with JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/rentdesk/internal/middleware"
	"github.com/iliyamo/rentdesk/internal/tenant"
	"github.com/iliyamo/rentdesk/internal/utils"
)

func main() {
	var (
		tid  = flag.Uint64("tenant", 0, "tenant id carried in the tid claim")
		sub  = flag.String("sub", "dev", "token subject")
		role = flag.String("role", middleware.RoleOwner, "OWNER or STAFF")
		ttl  = flag.Duration("ttl", time.Hour, "token lifetime")
	)
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
		os.Exit(2)
	}
	if *tid == 0 {
		fmt.Fprintln(os.Stderr, "-tenant is required")
		os.Exit(2)
	}
	tok, err := utils.NewAccessToken(secret, *sub, tenant.ID(*tid), *role, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok.Token)
}
