package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/fieldsales/internal/auth"
	"github.com/odyssey-erp/fieldsales/internal/shared"
)

type tokenFlags struct {
	secret  string
	subject string
	role    string
	zone    string
	name    string
	ttl     time.Duration
}

// mintToken signs a bearer token accepted by the API verifier.
func mintToken(f tokenFlags, now time.Time) (string, error) {
	if f.subject == "" {
		return "", fmt.Errorf("--sub is required")
	}
	role := shared.Role(f.role)
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", f.role)
	}
	claims := map[string]interface{}{
		"sub": f.subject,
		"rol": string(role),
		"iat": now.Unix(),
		"exp": now.Add(f.ttl).Unix(),
	}
	if f.zone != "" {
		if _, err := uuid.Parse(f.zone); err != nil {
			return "", fmt.Errorf("invalid --zone: %w", err)
		}
		claims["zona_id"] = f.zone
	}
	if f.name != "" {
		claims["nombre"] = f.name
	}
	verifier, err := auth.NewVerifier(f.secret, nil)
	if err != nil {
		return "", err
	}
	_, token, err := verifier.JWTAuth().Encode(claims)
	return token, err
}

func newTokenCmd() *cobra.Command {
	var f tokenFlags
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.secret == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				f.secret = cfg.JWTSecret
			}
			token, err := mintToken(f, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.secret, "secret", "", "signing secret (defaults to JWT_SECRET)")
	cmd.Flags().StringVar(&f.subject, "sub", "", "user id")
	cmd.Flags().StringVar(&f.role, "role", string(shared.RoleAdmin), "Administrador, Lider or Visualizador")
	cmd.Flags().StringVar(&f.zone, "zone", "", "zone id, required for leaders")
	cmd.Flags().StringVar(&f.name, "name", "", "display name")
	cmd.Flags().DurationVar(&f.ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
