// Command organizer-token prints a bearer token for the API when AUTH_ENABLED
// is set. It signs with the same JWT_SIGNING_KEY and JWT_ISSUER as the server.
package main

import (
	"flag"
	"fmt"
	"os"

	jwttoken "aroundtable/internal/jwt_token"
	"aroundtable/internal/platform/config"
	"aroundtable/internal/platform/logger"
)

func main() {
	cfg := config.FromEnv()
	subject := flag.String("subject", "", "organizer the token is issued to (required)")
	ttl := flag.Duration("ttl", cfg.TokenTTL, "token lifetime")
	flag.Parse()

	log := logger.NewWithWriter(os.Stderr, cfg.LogLevel)

	token, err := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer).GenerateToken(*subject, *ttl)
	if err != nil {
		log.Error("failed to issue token", "error", err)
		flag.Usage()
		os.Exit(2)
	}
	fmt.Println(token)
}
