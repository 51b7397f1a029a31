package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/totegamma/curatorgate"
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a new invite code (admin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		code, _ := flags.GetString("code")
		email, _ := flags.GetString("email")
		scope, _ := flags.GetString("scope")
		ttl, _ := flags.GetDuration("ttl")

		req := curatorgate.IssueRequest{
			Code:       code,
			ScopeID:    scope,
			TTLSeconds: int64(ttl / time.Second),
		}
		if email != "" {
			req.BoundEmail = &email
		}
		if flags.Changed("max-uses") {
			maxUses, _ := flags.GetInt("max-uses")
			req.MaxUses = &maxUses
		}

		issued, err := newClient().IssueCode(cmd.Context(), token, req)
		if err != nil {
			return err
		}
		return printYAML(cmd.OutOrStdout(), issued)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <code>",
	Short: "Show an invite code and its status (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		issued, err := newClient().GetCode(cmd.Context(), token, args[0])
		if err != nil {
			return err
		}
		return printYAML(cmd.OutOrStdout(), issued)
	},
}

func init() {
	issueCmd.Flags().String("code", "", "code to issue (generated when empty)")
	issueCmd.Flags().String("email", "", "bind the code to this email")
	issueCmd.Flags().String("scope", "", "curator scope the code grants")
	issueCmd.Flags().Int("max-uses", 1, "number of redemptions, 0 for unlimited")
	issueCmd.Flags().Duration("ttl", 0, "lifetime of the code, 0 for the server default")
}
