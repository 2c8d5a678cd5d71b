package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type quotaReport struct {
	Identity string `json:"identity"`
	Key      string `json:"key"`
	Outcome  string `json:"outcome"`
	Count    int64  `json:"count"`
	Limit    int64  `json:"limit"`
}

func newQuotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota <identity>",
		Short: "Prints the current gate decision for a client identity",
		Long: `Reads the usage record for a client identity without consuming any of
its allowance and prints the decision as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: runQuota,
	}
}

func runQuota(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	gate := appInstance.GetGate()
	identity := args[0]
	decision := gate.CheckAndReserve(cmd.Context(), identity)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(quotaReport{
		Identity: identity,
		Key:      gate.Key(identity),
		Outcome:  decision.Outcome.String(),
		Count:    decision.Count,
		Limit:    decision.Limit,
	}); err != nil {
		return fmt.Errorf("encode quota report: %w", err)
	}
	return nil
}
