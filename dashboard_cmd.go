package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/moneyboard/internal/api"
)

func newDashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show balances, budgets, goals and upcoming payments",
		Long: `Show the dashboard summary. With --full, accounts, budgets, goals and
debts are fetched concurrently alongside it and listed in full.`,
		RunE: runDashboard,
	}

	cmd.Flags().Bool("full", false, "also list every account, budget, goal and debt")

	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is reachable",
		RunE:  runHealth,
	}
}

// fullDashboard is the JSON schema for `dashboard --full --json`.
type fullDashboard struct {
	Stats    *api.DashboardStats `json:"stats"`
	Accounts []api.Account       `json:"accounts,omitempty"`
	Budgets  []api.Budget        `json:"budgets,omitempty"`
	Goals    []api.Goal          `json:"goals,omitempty"`
	Debts    []api.Debt          `json:"debts,omitempty"`
}

// fetchDashboard loads the dashboard and, when full is set, the detail lists.
// The requests run concurrently; an expired credential is refreshed once for
// all of them.
func fetchDashboard(ctx context.Context, cc *CLIContext, client *api.Client, full bool) (*fullDashboard, error) {
	var out fullDashboard

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		out.Stats, err = client.Dashboard(ctx)

		return err
	})

	if full {
		g.Go(func() (err error) {
			out.Accounts, err = client.ListAccounts(ctx)

			return err
		})
		g.Go(func() (err error) {
			out.Budgets, err = client.ListBudgets(ctx)

			return err
		})
		g.Go(func() (err error) {
			out.Goals, err = client.ListGoals(ctx)

			return err
		})
		g.Go(func() (err error) {
			out.Debts, err = client.ListDebts(ctx)

			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	cc.Logger.Debug("dashboard loaded", "full", full)

	return &out, nil
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)
	full, _ := cmd.Flags().GetBool("full")

	client, err := cc.requireLogin(ctx)
	if err != nil {
		return err
	}

	d, err := fetchDashboard(ctx, cc, client, full)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		if !full {
			return printJSON(cc.Stdout, d.Stats)
		}

		return printJSON(cc.Stdout, d)
	}

	printDashboard(cc, d)

	return nil
}

func printDashboard(cc *CLIContext, d *fullDashboard) {
	cur := cc.Cfg.Currency
	s := d.Stats
	w := cc.Stdout

	fmt.Fprintf(w, "Balance:   %s across %d accounts\n", formatMoney(s.TotalBalance, cur), s.AccountsCount)
	fmt.Fprintf(w, "Income:    %s\n", formatMoney(s.TotalIncome, cur))
	fmt.Fprintf(w, "Expenses:  %s\n", formatMoney(s.TotalExpenses, cur))
	fmt.Fprintf(w, "Goals:     %d in progress, %d completed\n", s.GoalsSummary.InProgress, s.GoalsSummary.Completed)

	if len(s.BudgetStatus) > 0 {
		fmt.Fprintln(w, "\nBudgets")

		rows := make([][]string, 0, len(s.BudgetStatus))
		for _, b := range s.BudgetStatus {
			rows = append(rows, []string{
				b.CategoryName, formatMoney(b.Spent, cur) + " / " + formatMoney(b.Amount, cur), formatPercent(b.Percentage),
			})
		}

		printTable(w, []string{"CATEGORY", "SPENT", "USED"}, rows)
	}

	if len(s.TopGoals) > 0 {
		fmt.Fprintln(w, "\nTop goals")

		rows := make([][]string, 0, len(s.TopGoals))
		for _, g := range s.TopGoals {
			rows = append(rows, []string{
				g.Name, formatMoney(g.CurrentAmount, cur) + " / " + formatMoney(g.TargetAmount, cur), formatPercent(g.ProgressPercentage),
			})
		}

		printTable(w, []string{"GOAL", "SAVED", "PROGRESS"}, rows)
	}

	if len(s.UpcomingPayments) > 0 {
		fmt.Fprintln(w, "\nUpcoming payments")

		rows := make([][]string, 0, len(s.UpcomingPayments))
		for _, p := range s.UpcomingPayments {
			rows = append(rows, []string{
				p.DebtName, p.NextPaymentDate, formatMoney(p.PaymentAmount, cur), strconv.Itoa(p.DaysUntilDue) + "d",
			})
		}

		printTable(w, []string{"DEBT", "DUE", "AMOUNT", "IN"}, rows)
	}

	if len(s.RecentTransactions) > 0 {
		fmt.Fprintln(w, "\nRecent transactions")
		printTransactions(cc, s.RecentTransactions)
	}

	if d.Accounts != nil {
		fmt.Fprintf(w, "\n%d accounts, %d budgets, %d goals, %d debts\n",
			len(d.Accounts), len(d.Budgets), len(d.Goals), len(d.Debts))
	}
}

func runHealth(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	client, err := cc.Client(ctx)
	if err != nil {
		return err
	}

	h, err := client.Health(ctx)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, h)
	}

	fmt.Fprintf(cc.Stdout, "%s: %s\n", h.Status, h.Message)

	return nil
}
