package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"ride-dispatch/internal/cli"
)

func main() {
	var (
		userID    = flag.String("user-id", "", "User id (subject)")
		role      = flag.String("role", "DRIVER", "User role: DRIVER | DISPATCHER | CUSTOMER | ADMIN")
		companyID = flag.String("company-id", "", "Company the user acts for")
		secret    = flag.String("secret", "", "JWT HMAC secret (HS256)")
		ttl       = flag.Duration("ttl", 2*time.Hour, "Token lifetime")
	)
	flag.Parse()

	if *userID == "" || *secret == "" || *companyID == "" {
		fmt.Fprintln(os.Stderr, "usage: key --user-id=<id> --role=DRIVER --company-id=<id> --secret='<secret>' [--ttl=2h]")
		os.Exit(2)
	}

	token, claims, err := cli.GenerateUserToken(*secret, *userID, *role, *companyID, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	fmt.Println("TOKEN:")
	fmt.Println(token)
	fmt.Println("\nCLAIMS:")
	fmt.Printf("  sub:     %s\n", claims.Subject)
	fmt.Printf("  role:    %s\n", claims.Role)
	fmt.Printf("  company: %s\n", claims.CompanyID)
	fmt.Printf("  iat:     %s\n", claims.IssuedAt.Time.UTC().Format(time.RFC3339))
	fmt.Printf("  exp:     %s\n", claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
}
