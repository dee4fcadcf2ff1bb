package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/moneyboard/internal/api"
)

func newBudgetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "budgets",
		Aliases: []string{"budget"},
		Short:   "List and manage budgets",
		RunE:    runBudgetsList,
	}

	add := &cobra.Command{
		Use:   "add <category-id> <amount>",
		Short: "Create a budget for an expense category",
		Args:  cobra.ExactArgs(2),
		RunE:  runBudgetsAdd,
	}
	add.Flags().String("start", "", "period start, YYYY-MM-DD (default: today)")
	add.Flags().String("end", "", "period end, YYYY-MM-DD (default: indefinite)")
	add.Flags().Bool("recurring", false, "renew the budget every period")

	cmd.AddCommand(add)

	for _, s := range []struct{ use, status, short string }{
		{"pause", "Paused", "Pause a budget"},
		{"resume", "Active", "Reactivate a budget"},
		{"archive", "Archived", "Archive a budget"},
	} {
		cmd.AddCommand(&cobra.Command{
			Use:   s.use + " <id>",
			Short: s.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runBudgetStatus(cmd, args[0], s.status)
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deleteByID(cmd, args[0], "budget", (*api.Client).DeleteBudget)
		},
	})

	return cmd
}

func newGoalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "goals",
		Aliases: []string{"goal"},
		Short:   "List and manage savings goals",
		RunE:    runGoalsList,
	}

	add := &cobra.Command{
		Use:   "add <name> <target>",
		Short: "Create a savings goal",
		Args:  cobra.ExactArgs(2),
		RunE:  runGoalsAdd,
	}
	add.Flags().Int("account", 0, "account that holds the savings")
	add.Flags().String("saved", "0", "amount already saved")
	add.Flags().String("deadline", "", "deadline, YYYY-MM-DD")

	cmd.AddCommand(add, &cobra.Command{
		Use:   "progress <id> <amount>",
		Short: "Set the amount saved towards a goal",
		Args:  cobra.ExactArgs(2),
		RunE:  runGoalsProgress,
	})

	for _, s := range []struct{ use, status, short string }{
		{"complete", api.GoalCompleted, "Mark a goal completed"},
		{"cancel", api.GoalCancelled, "Cancel a goal"},
	} {
		cmd.AddCommand(&cobra.Command{
			Use:   s.use + " <id>",
			Short: s.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runGoalStatus(cmd, args[0], s.status)
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deleteByID(cmd, args[0], "goal", (*api.Client).DeleteGoal)
		},
	})

	return cmd
}

func newDebtsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "debts",
		Aliases: []string{"debt"},
		Short:   "List and manage debts",
		RunE:    runDebtsList,
	}

	add := &cobra.Command{
		Use:   "add <creditor> <principal> <annual-rate> <months>",
		Short: "Record a debt",
		Long: `Record a debt. The monthly payment is computed from the principal,
annual rate and term unless --payment is given.

Examples:
  moneyboard debts add "Car loan" 12000 6 24
  moneyboard debts add "Laptop" 1200 10 12 --interest simple`,
		Args: cobra.ExactArgs(4),
		RunE: runDebtsAdd,
	}
	addDebtTermFlags(add)
	add.Flags().String("payment", "", "monthly payment (default: computed)")
	add.Flags().String("start", "", "start date, YYYY-MM-DD (default: today)")

	calc := &cobra.Command{
		Use:   "calc <principal> <annual-rate> <months>",
		Short: "Compute a monthly payment without recording anything",
		Args:  cobra.ExactArgs(3),
		RunE:  runDebtsCalc,
	}
	addDebtTermFlags(calc)

	pay := &cobra.Command{
		Use:   "pay <debt-id> <account-id> <amount>",
		Short: "Record a payment from an account",
		Args:  cobra.ExactArgs(3),
		RunE:  runDebtsPay,
	}
	pay.Flags().String("date", "", "payment date, YYYY-MM-DD (default: today)")

	cmd.AddCommand(add, calc, pay, &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a debt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deleteByID(cmd, args[0], "debt", (*api.Client).DeleteDebt)
		},
	})

	return cmd
}

func addDebtTermFlags(cmd *cobra.Command) {
	cmd.Flags().String("interest", api.InterestAmortized, "interest type: simple or amortized")
}

func newInvestmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "invest",
		Aliases: []string{"investments"},
		Short:   "List investments and move money in or out",
		RunE:    runInvestList,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "contribute <investment-id> <account-id> <amount>",
			Short: "Move money from an account into an investment",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runInvestMove(cmd, args, (*api.Client).Contribute)
			},
		},
		&cobra.Command{
			Use:   "withdraw <investment-id> <account-id> <amount>",
			Short: "Move money from an investment back into an account",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runInvestMove(cmd, args, (*api.Client).Withdraw)
			},
		},
	)

	return cmd
}

// --- budgets ---

func runBudgetsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	client, err := cc.requireLogin(ctx)
	if err != nil {
		return err
	}

	budgets, err := client.ListBudgets(ctx)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, budgets)
	}

	rows := make([][]string, 0, len(budgets))
	for _, b := range budgets {
		period := b.PeriodStart + " .."
		if b.PeriodEnd != nil {
			period += " " + *b.PeriodEnd
		}

		rows = append(rows, []string{
			strconv.Itoa(b.ID), b.CategoryName, b.Status, period,
			formatMoney(b.Spent, cc.Cfg.Currency) + " / " + formatMoney(b.Amount, cc.Cfg.Currency),
			formatPercent(b.Percentage),
		})
	}

	printTable(cc.Stdout, []string{"ID", "CATEGORY", "STATUS", "PERIOD", "SPENT", "USED"}, rows)

	return nil
}

func runBudgetsAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	category, err := parseID(args[0])
	if err != nil {
		return err
	}

	amount, err := parseAmount(args[1])
	if err != nil {
		return err
	}

	in := api.BudgetInput{Category: category, Amount: amount}
	in.PeriodStart, _ = cmd.Flags().GetString("start")
	in.IsRecurring, _ = cmd.Flags().GetBool("recurring")

	if end, _ := cmd.Flags().GetString("end"); end != "" {
		in.PeriodEnd = &end
	}

	client, err := cc.requireLogin(ctx)
	if err != nil {
		return err
	}

	b, err := client.CreateBudget(ctx, in)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, b)
	}

	cc.Statusf("Created budget %d (%s, %s)\n", b.ID, b.CategoryName, formatMoney(b.Amount, cc.Cfg.Currency))

	return nil
}

func runBudgetStatus(cmd *cobra.Command, arg, status string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	id, err := parseID(arg)
	if err != nil {
		return err
	}

	client, err := cc.requireLogin(ctx)
	if err != nil {
		return err
	}

	b, err := client.SetBudgetStatus(ctx, id, status)
	if err != nil {
		return err
	}

	cc.Statusf("Budget %d is now %s\n", b.ID, b.Status)

	return nil
}

// --- goals ---

func runGoalsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	client, err := cc.requireLogin(ctx)
	if err != nil {
		return err
	}

	goals, err := client.ListGoals(ctx)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, goals)
	}

	rows := make([][]string, 0, len(goals))
	for _, g := range goals {
		rows = append(rows, []string{
			strconv.Itoa(g.ID), g.Name, g.Status,
			formatMoney(g.CurrentAmount, cc.Cfg.Currency) + " / " + formatMoney(g.TargetAmount, cc.Cfg.Currency),
			formatPercent(g.ProgressPercentage), deref(g.Deadline),
		})
	}

	printTable(cc.Stdout, []string{"ID", "NAME", "STATUS", "SAVED", "PROGRESS", "DEADLINE"}, rows)

	return nil
}

func runGoalsAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	target, err := parseAmount(args[1])
	if err != nil {
		return err
	}

	savedArg, _ := cmd.Flags().GetString("saved")

	saved, err := parseAmount(savedArg)
	if err != nil {
		return err
	}

	in := api.GoalInput{Name: args[0], TargetAmount: target, CurrentAmount: saved}

	if account, _ := cmd.Flags().GetInt("account"); account != 0 {
		in.Account = &account
	}

	if deadline, _ := cmd.Flags().GetString("deadline"); deadline != "" {
		in.Deadline = &deadline
	}

	client, err := cc.requireLogin(ctx)
	if err != nil {
		return err
	}

	g, err := client.CreateGoal(ctx, in)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, g)
	}

	cc.Statusf("Created goal %d (%s)\n", g.ID, g.Name)

	return nil
}

func runGoalsProgress(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	amount, err := parseAmount(args[1])
	if err != nil {
		return err
	}

	client, err := cc.requireLogin(ctx)
	if err != nil {
		return err
	}

	g, err := client.UpdateGoalProgress(ctx, id, amount)
	if err != nil {
		return err
	}

	cc.Statusf("Goal %d at %s\n", g.ID, formatPercent(g.ProgressPercentage))

	return nil
}

func runGoalStatus(cmd *cobra.Command, arg, status string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	id, err := parseID(arg)
	if err != nil {
		return err
	}

	client, err := cc.requireLogin(ctx)
	if err != nil {
		return err
	}

	g, err := client.SetGoalStatus(ctx, id, status)
	if err != nil {
		return err
	}

	cc.Statusf("Goal %d is now %s\n", g.ID, g.Status)

	return nil
}

// --- debts ---

func runDebtsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	client, err := cc.requireLogin(ctx)
	if err != nil {
		return err
	}

	debts, err := client.ListDebts(ctx)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, debts)
	}

	rows := make([][]string, 0, len(debts))
	for _, d := range debts {
		rows = append(rows, []string{
			strconv.Itoa(d.ID), d.CreditorName, d.Status,
			formatMoney(d.MonthlyPayment, cc.Cfg.Currency),
			formatMoney(d.RemainingBalance, cc.Cfg.Currency),
			fmt.Sprintf("%d/%d", d.PaymentsCount, d.TermMonths),
		})
	}

	printTable(cc.Stdout, []string{"ID", "CREDITOR", "STATUS", "MONTHLY", "REMAINING", "PAID"}, rows)

	return nil
}

// debtTerms parses the shared principal/rate/months arguments.
func debtTerms(cmd *cobra.Command, args []string) (principal, rate decimal.Decimal, months int, interest string, err error) {
	if principal, err = parseAmount(args[0]); err != nil {
		return
	}

	if rate, err = parseAmount(args[1]); err != nil {
		return
	}

	if months, err = strconv.Atoi(args[2]); err != nil || months <= 0 {
		err = fmt.Errorf("invalid term %q: must be a positive number of months", args[2])

		return
	}

	interest, _ = cmd.Flags().GetString("interest")
	if interest != api.InterestSimple && interest != api.InterestAmortized {
		err = fmt.Errorf("--interest must be simple or amortized, got %q", interest)
	}

	return
}

func runDebtsAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	principal, rate, months, interest, err := debtTerms(cmd, args[1:])
	if err != nil {
		return err
	}

	in := api.DebtInput{
		CreditorName:    args[0],
		PrincipalAmount: principal,
		InterestRate:    rate,
		InterestType:    interest,
		TermMonths:      months,
	}
	in.StartDate, _ = cmd.Flags().GetString("start")

	if payment, _ := cmd.Flags().GetString("payment"); payment != "" {
		if in.MonthlyPayment, err = parseAmount(payment); err != nil {
			return err
		}
	}

	client, err := cc.requireLogin(ctx)
	if err != nil {
		return err
	}

	d, err := client.CreateDebt(ctx, in)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, d)
	}

	cc.Statusf("Recorded debt %d (%s, %s/month)\n", d.ID, d.CreditorName, formatMoney(d.MonthlyPayment, cc.Cfg.Currency))

	return nil
}

func runDebtsCalc(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	principal, rate, months, interest, err := debtTerms(cmd, args)
	if err != nil {
		return err
	}

	payment, err := api.MonthlyPayment(principal, rate, months, interest)
	if err != nil {
		return err
	}

	total := payment.Mul(decimal.NewFromInt(int64(months)))

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, map[string]decimal.Decimal{
			"monthly_payment": payment,
			"total_amount":    total,
			"total_interest":  total.Sub(principal),
		})
	}

	fmt.Fprintf(cc.Stdout, "Monthly payment:  %s\n", formatMoney(payment, cc.Cfg.Currency))
	fmt.Fprintf(cc.Stdout, "Total repaid:     %s\n", formatMoney(total, cc.Cfg.Currency))
	fmt.Fprintf(cc.Stdout, "Total interest:   %s\n", formatMoney(total.Sub(principal), cc.Cfg.Currency))

	return nil
}

func runDebtsPay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	debtID, err := parseID(args[0])
	if err != nil {
		return err
	}

	account, err := parseID(args[1])
	if err != nil {
		return err
	}

	amount, err := parseAmount(args[2])
	if err != nil {
		return err
	}

	in := api.DebtPaymentInput{Account: account, Amount: amount}
	in.PaymentDate, _ = cmd.Flags().GetString("date")

	client, err := cc.requireLogin(ctx)
	if err != nil {
		return err
	}

	d, err := client.AddDebtPayment(ctx, debtID, in)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, d)
	}

	cc.Statusf("Paid %s to %s; %s remaining\n",
		formatMoney(amount, cc.Cfg.Currency), d.CreditorName, formatMoney(d.RemainingBalance, cc.Cfg.Currency))

	return nil
}

// --- investments ---

func runInvestList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	client, err := cc.requireLogin(ctx)
	if err != nil {
		return err
	}

	invs, err := client.ListInvestments(ctx)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, invs)
	}

	rows := make([][]string, 0, len(invs))
	for _, inv := range invs {
		target := "-"
		if inv.TargetAmount.Valid {
			target = formatMoney(inv.TargetAmount.Decimal, cc.Cfg.Currency)
		}

		rows = append(rows, []string{
			strconv.Itoa(inv.ID), inv.Name, inv.Status,
			formatMoney(inv.CurrentAmount, cc.Cfg.Currency), target,
			formatMoney(inv.ProjectedFinalValue, cc.Cfg.Currency),
		})
	}

	printTable(cc.Stdout, []string{"ID", "NAME", "STATUS", "CURRENT", "TARGET", "PROJECTED"}, rows)

	return nil
}

type moveFunc func(*api.Client, context.Context, int, api.InvestmentMovement) (*api.MovementResult, error)

func runInvestMove(cmd *cobra.Command, args []string, move moveFunc) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	account, err := parseID(args[1])
	if err != nil {
		return err
	}

	amount, err := parseAmount(args[2])
	if err != nil {
		return err
	}

	client, err := cc.requireLogin(ctx)
	if err != nil {
		return err
	}

	res, err := move(client, ctx, id, api.InvestmentMovement{Account: account, Amount: amount})
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, res)
	}

	cc.Statusf("%s; %s now holds %s\n", res.Message, res.Investment.Name,
		formatMoney(res.Investment.CurrentAmount, cc.Cfg.Currency))

	return nil
}
