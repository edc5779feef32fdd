// Command goblog-token mints a session token with the configured signing
// material, for local development against goblog-web.
//
//	goblog-token -sub 42 -ttl 30m
//
// The token is printed on stdout; use it as the "authorization" cookie.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/MrEthical07/goBlog/internal/config"
	"github.com/MrEthical07/goBlog/jwt"
)

func main() {
	var (
		subject    = flag.String("sub", "", "subject (backend user id)")
		externalID = flag.String("ext", "", "external identity id")
		ttl        = flag.Duration("ttl", time.Hour, "token lifetime")
	)
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "goblog-token: -sub is required")
		os.Exit(2)
	}

	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		fmt.Fprintf(os.Stderr, "goblog-token: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "goblog-token: %v\n", err)
		os.Exit(1)
	}

	m, err := jwt.NewManager(jwt.Config{
		SigningMethod:  cfg.JWT.SigningMethod,
		Secret:         cfg.JWT.Secret,
		SecretEncoding: cfg.JWT.SecretEncoding,
		PrivateKey:     cfg.JWT.PrivateKey,
		PublicKey:      cfg.JWT.PublicKey,
		Issuer:         cfg.JWT.Issuer,
		Audience:       cfg.JWT.Audience,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "goblog-token: %v\n", err)
		os.Exit(1)
	}

	token, err := m.CreateSession(*subject, *externalID, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "goblog-token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
