package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/greenloop-app/greenloop/internal/domain"
	"github.com/greenloop-app/greenloop/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(vouchersCmd)
	vouchersCmd.AddCommand(vouchersSeedCmd)
	vouchersCmd.AddCommand(vouchersListCmd)
	vouchersSeedCmd.Flags().StringP("file", "f", "", "Path to voucher TOML definition")
}

var vouchersCmd = &cobra.Command{
	Use:   "vouchers",
	Short: "Manage the voucher catalog",
}

// voucherSeedFile is the TOML shape for `greenloop vouchers seed -f`.
type voucherSeedFile struct {
	Voucher []struct {
		ID         string `toml:"id"`
		Title      string `toml:"title"`
		Partner    string `toml:"partner"`
		Cost       int64  `toml:"cost_credits"`
		StartDate  string `toml:"start_date"` // RFC3339
		EndDate    string `toml:"end_date"`
		Total      *int64 `toml:"total"`
		PerUserCap int64  `toml:"per_user_cap"`
	} `toml:"voucher"`
}

var vouchersSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load voucher offers from a TOML file",
	RunE:  runVouchersSeed,
}

func runVouchersSeed(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	if file == "" {
		return fmt.Errorf("voucher TOML file required: greenloop vouchers seed -f <file>")
	}

	var seed voucherSeedFile
	if _, err := toml.DecodeFile(file, &seed); err != nil {
		return fmt.Errorf("parse voucher file: %w", err)
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

	for _, entry := range seed.Voucher {
		start, err := time.Parse(time.RFC3339, entry.StartDate)
		if err != nil {
			return fmt.Errorf("voucher %q: bad start_date: %w", entry.Title, err)
		}
		end, err := time.Parse(time.RFC3339, entry.EndDate)
		if err != nil {
			return fmt.Errorf("voucher %q: bad end_date: %w", entry.Title, err)
		}

		v := domain.Voucher{
			ID:          entry.ID,
			Title:       entry.Title,
			Partner:     entry.Partner,
			CostCredits: entry.Cost,
			StartDate:   start,
			EndDate:     end,
			Total:       entry.Total,
			PerUserCap:  entry.PerUserCap,
			Active:      true,
			CreatedAt:   time.Now().UTC(),
		}
		if v.ID == "" {
			v.ID = uuid.NewString()
		}
		if v.PerUserCap < 1 {
			v.PerUserCap = 1
		}
		if err := db.UpsertVoucher(v); err != nil {
			return fmt.Errorf("seed voucher %q: %w", v.Title, err)
		}
		fmt.Fprintf(os.Stdout, "seeded %s (%d credits)\n", v.Title, v.CostCredits)
	}
	return nil
}

var vouchersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the voucher catalog",
	RunE:  runVouchersList,
}

func runVouchersList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := sqlite.Open(cfg.Storage.Dir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	vouchers, err := db.ListVouchers()
	if err != nil {
		return err
	}
	if len(vouchers) == 0 {
		fmt.Fprintln(os.Stdout, "No vouchers in the catalog.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCOST\tUSED\tTOTAL\tACTIVE")
	for _, v := range vouchers {
		total := "∞"
		if v.Total != nil {
			total = fmt.Sprintf("%d", *v.Total)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%v\n", v.ID, v.Title, v.CostCredits, v.Used, total, v.Active)
	}
	return tw.Flush()
}
