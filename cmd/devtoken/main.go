// Command devtoken prints a bearer token for local testing, signed with the
// configured AUTH_JWT_SECRET.
package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/shiva/tripbook/config"
	"github.com/shiva/tripbook/internal/auth"
	"github.com/shiva/tripbook/internal/model"
)

func main() {
	user := pflag.String("user", "dev-user", "subject (user id) of the token")
	role := pflag.String("role", string(model.RoleCustomer), "customer or admin")
	pflag.Parse()

	r := model.UserRole(*role)
	if r != model.RoleCustomer && r != model.RoleAdmin {
		log.Fatal().Str("role", *role).Msg("role must be customer or admin")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	token, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).
		Issue(model.User{ID: *user, Role: r})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to issue token")
	}
	fmt.Println(token)
}
