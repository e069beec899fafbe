package cli

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/Outreach/internal/api"
)

// NewTokenCmd создаёт команду выпуска bearer-токена для API.
// Секрет должен совпадать с api.jwt_secret сервера.
func NewTokenCmd(outputFn func() *Output) *cobra.Command {
	var (
		secret, user, role string
		ttl                time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an HS256 bearer token for a volunteer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("--secret is required")
			}

			var (
				id  uuid.UUID
				err error
			)
			if user == "" {
				id = uuid.New()
			} else if id, err = uuid.Parse(user); err != nil {
				return errors.New("--user must be a UUID")
			}

			now := time.Now()
			claims := jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(now)}
			if ttl > 0 {
				claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
			}

			token, err := api.NewAuthenticator(secret).Sign(api.Principal{UserID: id, Role: role}, claims)
			if err != nil {
				return err
			}

			outputFn().Print(
				[]string{"USER_ID", "ROLE", "TOKEN"},
				[][]string{{id.String(), role, token}},
				map[string]string{"user_id": id.String(), "role": role, "token": token},
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "Shared HS256 secret (env JWT_SECRET)")
	cmd.Flags().StringVar(&user, "user", "", "User ID (random if empty)")
	cmd.Flags().StringVar(&role, "role", "volunteer", "Role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime, 0 for no expiry")
	return cmd
}
