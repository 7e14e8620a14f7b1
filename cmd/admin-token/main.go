// Command admin-token mints a back-office access token for an operator.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/stanton-energie/heizoel-backend/pkg/auth"
	"github.com/stanton-energie/heizoel-backend/pkg/config"
	"github.com/stanton-energie/heizoel-backend/pkg/enums"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "admin-token"})
	_ = godotenv.Load()

	operator := flag.String("operator", "", "operator name recorded on status changes and notes")
	role := flag.String("role", string(enums.AdminRoleAdmin), "admin|viewer")
	flag.Parse()

	var jwtCfg config.JWTConfig
	if err := envconfig.Process(config.EnvPrefix, &jwtCfg); err != nil {
		logg.Error(context.Background(), "failed to load jwt config", err)
		os.Exit(1)
	}

	token, err := mint(jwtCfg, *operator, *role, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "mint token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func mint(cfg config.JWTConfig, operator, role string, now time.Time) (string, error) {
	parsed, err := enums.ParseAdminRole(role)
	if err != nil {
		return "", err
	}
	return auth.MintAccessToken(cfg, now, auth.AccessTokenPayload{Operator: operator, Role: parsed})
}
