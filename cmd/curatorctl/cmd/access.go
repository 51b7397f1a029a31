package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/totegamma/curatorgate"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <code>",
	Short: "Redeem an invite code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")

		req := curatorgate.VerifyRequest{Code: &args[0]}
		if email != "" {
			req.Email = &email
		}

		result, err := newClient().Verify(cmd.Context(), token, req)
		if err != nil {
			return err
		}

		if !result.OK {
			return fmt.Errorf("verification failed: %s", result.Reason)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		if result.Session != "" {
			fmt.Fprintln(cmd.OutOrStdout(), "session:", result.Session)
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [scope]",
	Short: "Ask whether the current session has access",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope := ""
		if len(args) == 1 {
			scope = args[0]
		}

		allowed, err := newClient().HasAccess(cmd.Context(), token, scope)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), allowed)
		return nil
	},
}

func init() {
	verifyCmd.Flags().String("email", "", "email to submit with the code")
}
