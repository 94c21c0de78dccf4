package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tair/marketplace-payments/internal/payment/usecase/command"
	"github.com/tair/marketplace-payments/pkg/auth"
)

// operatorClaims authorizes CLI changes as an administrator.
func operatorClaims() *auth.Claims {
	user := os.Getenv("USER")
	if user == "" {
		user = "paymentctl"
	}
	return &auth.Claims{UserID: user, Role: auth.RoleAdmin}
}

func credentialsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage tenant payment credentials",
	}
	cmd.AddCommand(credentialsSetCmd(configPath))
	cmd.AddCommand(credentialsDeactivateCmd(configPath))
	return cmd
}

func credentialsSetCmd(configPath *string) *cobra.Command {
	var tenant, shortCode, consumerKey, consumerSecret, passKey string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store a new active credential set for a tenant",
		Long: `Stores a new active credential set, deactivating the tenant's current one.

Secrets may be given as flags or through MPESA_CONSUMER_KEY,
MPESA_CONSUMER_SECRET and MPESA_PASS_KEY so they stay out of shell history.

Examples:
  paymentctl credentials set --tenant platform --short-code 174379
  paymentctl credentials set --tenant seller-42 --short-code 600100 --pass-key ...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			consumerKey = flagOrEnv(consumerKey, "MPESA_CONSUMER_KEY")
			consumerSecret = flagOrEnv(consumerSecret, "MPESA_CONSUMER_SECRET")
			passKey = flagOrEnv(passKey, "MPESA_PASS_KEY")
			if consumerKey == "" || consumerSecret == "" || passKey == "" {
				return fmt.Errorf("consumer key, consumer secret and pass key are required")
			}

			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			cred, err := a.svc.Credentials.Save(cmd.Context(), command.SaveCredentialCommand{
				Claims:         operatorClaims(),
				TenantID:       tenant,
				ShortCode:      shortCode,
				ConsumerKey:    consumerKey,
				ConsumerSecret: consumerSecret,
				PassKey:        passKey,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Saved credentials %s for tenant %s (short code %s)\n", cred.ID, cred.TenantID, cred.ShortCode)
			return nil
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id")
	cmd.Flags().StringVar(&shortCode, "short-code", "", "business short code")
	cmd.Flags().StringVar(&consumerKey, "consumer-key", "", "consumer key")
	cmd.Flags().StringVar(&consumerSecret, "consumer-secret", "", "consumer secret")
	cmd.Flags().StringVar(&passKey, "pass-key", "", "push payment pass key")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("short-code")

	return cmd
}

func credentialsDeactivateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate [credential-id]",
		Short: "Deactivate a credential set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.svc.Credentials.Deactivate(cmd.Context(), command.DeactivateCredentialCommand{
				Claims: operatorClaims(),
				ID:     args[0],
			}); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deactivated credentials %s\n", args[0])
			return nil
		},
	}
}

func flagOrEnv(value, env string) string {
	if value != "" {
		return value
	}
	return os.Getenv(env)
}
