// cmd/setpassword/main.go
//
// setpassword sets the password of an existing account directly in the
// database. It is the only way for an operator to recover an account
// without going through the email reset flow.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"packshop/internal/config"
	"packshop/internal/db"
	"packshop/internal/logging"
	"packshop/internal/repository"
	"packshop/internal/services"
)

const generatedPasswordLength = 16

func main() {
	email := flag.String("email", "", "email of the account to update")
	generate := flag.Bool("generate", false, "generate a random password and force a change at next login")
	flag.Parse()

	if err := run(*email, *generate, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "setpassword: %v\n", err)
		os.Exit(1)
	}
}

func run(email string, generate bool, in io.Reader, out io.Writer) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("-email is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Environment, "warn")
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	var password string
	if generate {
		password, err = services.GenerateTemporaryPassword(generatedPasswordLength)
		if err != nil {
			return fmt.Errorf("failed to generate password: %w", err)
		}
	} else {
		password, err = readPassword(bufio.NewReader(in), out)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	accounts, err := newAccountService(cfg, database, logger)
	if err != nil {
		return err
	}

	user, err := accounts.SetPassword(ctx, email, password, generate)
	if err != nil {
		var svcErr *services.Error
		if errors.As(err, &svcErr) && len(svcErr.Reasons) > 0 {
			return fmt.Errorf("%s: %s", svcErr.Message, strings.Join(svcErr.Reasons, "; "))
		}
		return err
	}

	fmt.Fprintf(out, "Password updated for %s (%s)\n", user.Email, user.ID)
	if generate {
		fmt.Fprintf(out, "Temporary password: %s\n", password)
		fmt.Fprintln(out, "The user must change it at next login.")
	}
	return nil
}

// newAccountService builds the service with a throwaway signing key: no
// session token is ever issued from this tool.
func newAccountService(cfg *config.Config, database *db.Database, logger *zap.Logger) (*services.AccountService, error) {
	secret, _, err := services.GenerateResetToken()
	if err != nil {
		return nil, err
	}
	return services.NewAccountService(
		repository.NewUserRepository(database.DB),
		services.NewBcryptHasher(cfg.BcryptCost),
		services.NewTokenIssuer(secret, time.Minute),
		logger,
	), nil
}

func readPassword(r *bufio.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "New password: ")
	first, err := readLine(r)
	if err != nil {
		return "", err
	}
	fmt.Fprint(out, "Confirm password: ")
	second, err := readLine(r)
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	if res := services.CheckPasswordPolicy(first); !res.OK {
		return "", fmt.Errorf("password rejected: %s", strings.Join(res.Reasons, "; "))
	}
	return first, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
