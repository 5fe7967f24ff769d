package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"

	"autodeposit.backend/internal/config"
	"autodeposit.backend/pkg/jwt"
)

var (
	loadDotenv           = godotenv.Load
	loadCfg              = config.Load
	stdout     io.Writer = os.Stdout
	fatalfFn             = log.Fatalf
)

func run(args []string, cfg *config.Config, out io.Writer) error {
	fs := flag.NewFlagSet("operator-token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	operator := fs.String("operator", "", "operator name recorded in the token")
	role := fs.String("role", jwt.RoleOperator, "role: operator or viewer")
	expiry := fs.Duration("expiry", cfg.JWT.AccessExpiry, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *operator == "" {
		return errors.New("-operator is required")
	}
	if *role != jwt.RoleOperator && *role != jwt.RoleViewer {
		return fmt.Errorf("invalid role: %s (allowed: %s, %s)", *role, jwt.RoleOperator, jwt.RoleViewer)
	}
	if *expiry <= 0 {
		return fmt.Errorf("invalid expiry: %s", *expiry)
	}

	svc := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, *expiry)
	token, err := svc.GenerateToken(*operator, *role)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	fmt.Fprintf(out, "Operator token for %s (%s), valid %s\n", *operator, *role, *expiry)
	fmt.Fprintf(out, "TOKEN=%s\n", token)
	return nil
}

func main() {
	_ = loadDotenv()
	if err := run(os.Args[1:], loadCfg(), stdout); err != nil {
		fatalfFn("operator-token: %v", err)
	}
}
