// Command tokengen signs development bearer tokens for the storefront API.
//
//	tokengen -user u1
//	tokengen -admin a1 -username root -role super_admin
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

func main() {
	configDir := flag.String("config", "./configs", "directory holding base.yaml and <env>.yaml")
	envName := flag.String("env", os.Getenv("STOREFRONT_ENV"), "environment overlay name")
	userID := flag.String("user", "", "user id to sign a shopper token for")
	adminID := flag.String("admin", "", "admin id to sign an admin token for")
	username := flag.String("username", "", "admin username")
	role := flag.String("role", domain.RoleAdmin, "admin role: admin or super_admin")
	flag.Parse()

	if (*userID == "") == (*adminID == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -user or -admin is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configDir, *envName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	issuer := auth.NewIssuer([]byte(cfg.Security.JWTSecret), cfg.Security.Issuer, cfg.Security.UserTTL, cfg.Security.AdminTTL)

	var token string
	if *userID != "" {
		token, err = issuer.IssueUser(*userID)
	} else {
		token, err = issuer.IssueAdmin(*adminID, *username, *role)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
