package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/greenloop-app/greenloop/internal/app/ledger"
	"github.com/greenloop-app/greenloop/internal/domain"
	"github.com/greenloop-app/greenloop/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringP("user", "u", "", "User ID or email")
	statsCmd.Flags().StringP("period", "p", "all", "Stats period (day, week, month, year, all)")
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print a ledger summary for a user",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	ref, _ := cmd.Flags().GetString("user")
	period, _ := cmd.Flags().GetString("period")
	if ref == "" {
		return fmt.Errorf("user required: greenloop stats -u <id or email>")
	}
	if !domain.ValidStatsPeriod(period) {
		return fmt.Errorf("unknown period %q", period)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := sqlite.Open(cfg.Storage.Dir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	user, err := db.GetUser(ref)
	if err != nil {
		user, err = db.GetUserByEmail(ref)
	}
	if err != nil {
		return fmt.Errorf("lookup user %q: %w", ref, err)
	}

	svc := ledger.New(ledger.DefaultConfig(), db)
	stats, err := svc.Stats(cmd.Context(), user.ID, period)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "%s <%s>\n\n", user.DisplayName, user.Email)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Period\t%s\n", stats.Period)
	fmt.Fprintf(tw, "Balance\t%d\n", user.Balance)
	fmt.Fprintf(tw, "Transactions\t%d\n", stats.Count)
	fmt.Fprintf(tw, "Earned\t%d\n", stats.Earned)
	fmt.Fprintf(tw, "Spent\t%d\n", stats.Spent)
	fmt.Fprintf(tw, "Net\t%d\n", stats.Net)
	fmt.Fprintf(tw, "Pending\t%d\n", stats.PendingCount)
	fmt.Fprintf(tw, "Mean amount\t%.2f\n", stats.MeanAmount)
	fmt.Fprintf(tw, "Stddev amount\t%.2f\n", stats.StdDevAmount)
	return tw.Flush()
}
