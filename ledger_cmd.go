package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/moneyboard/internal/api"
)

func newAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account"},
		Short:   "List and manage accounts",
		RunE:    runAccountsList,
	}

	add := &cobra.Command{
		Use:   "add <name> <type> <balance>",
		Short: "Create an account",
		Long: `Create an account with an opening balance.

Examples:
  moneyboard accounts add Checking Bank 1500
  moneyboard accounts add Wallet Cash 80.50 --currency EUR`,
		Args: cobra.ExactArgs(3),
		RunE: runAccountsAdd,
	}
	add.Flags().String("currency", "", "ISO 4217 currency (default: config currency)")
	add.Flags().String("color", "", "display color, e.g. #2563eb")

	cmd.AddCommand(add, &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE:  runAccountsRm,
	})

	return cmd
}

func newCategoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category"},
		Short:   "List and manage categories",
		RunE:    runCategoriesList,
	}

	add := &cobra.Command{
		Use:   "add <name> <Income|Expense>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(2),
		RunE:  runCategoriesAdd,
	}
	add.Flags().String("icon", "", "icon name")

	cmd.AddCommand(add, &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a category",
		Args:  cobra.ExactArgs(1),
		RunE:  runCategoriesRm,
	})

	return cmd
}

func newTransactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transactions"},
		Short:   "List and record transactions",
		RunE:    runTxList,
	}
	cmd.Flags().Int("account", 0, "only this account")
	cmd.Flags().Int("category", 0, "only this category")
	cmd.Flags().String("type", "", "only Income or Expense")

	add := &cobra.Command{
		Use:   "add <account-id> <Income|Expense> <amount>",
		Short: "Record a transaction",
		Long: `Record a transaction against an account. The account balance is
updated by the backend.

Examples:
  moneyboard tx add 3 Expense 42.10 --category 5 --note "Groceries"
  moneyboard tx add 3 Income 3200 --date 2026-01-31`,
		Args: cobra.ExactArgs(3),
		RunE: runTxAdd,
	}
	add.Flags().Int("category", 0, "category ID")
	add.Flags().String("note", "", "description")
	add.Flags().String("date", "", "transaction date, YYYY-MM-DD (default: today)")

	cmd.AddCommand(add, &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE:  runTxRm,
	})

	return cmd
}

// parseID parses a positive numeric ID argument.
func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid ID %q", arg)
	}

	return id, nil
}

// parseAmount parses a decimal amount argument.
func parseAmount(arg string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(arg)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", arg)
	}

	return d, nil
}

// parseKind accepts income/expense in any case.
func parseKind(arg string) (string, error) {
	switch strings.ToLower(arg) {
	case "income":
		return api.TypeIncome, nil
	case "expense":
		return api.TypeExpense, nil
	default:
		return "", fmt.Errorf("type must be Income or Expense, got %q", arg)
	}
}

func runAccountsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	client, err := cc.requireLogin(ctx)
	if err != nil {
		return err
	}

	accounts, err := client.ListAccounts(ctx)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, accounts)
	}

	rows := make([][]string, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, []string{
			strconv.Itoa(a.ID), a.Name, a.Type,
			formatMoney(a.Balance, a.Currency),
			formatMoney(a.AvailableBalance, a.Currency),
		})
	}

	printTable(cc.Stdout, []string{"ID", "NAME", "TYPE", "BALANCE", "AVAILABLE"}, rows)

	return nil
}

func runAccountsAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	balance, err := parseAmount(args[2])
	if err != nil {
		return err
	}

	currency, _ := cmd.Flags().GetString("currency")
	if currency == "" {
		currency = cc.Cfg.Currency
	}

	color, _ := cmd.Flags().GetString("color")

	client, err := cc.requireLogin(ctx)
	if err != nil {
		return err
	}

	a, err := client.CreateAccount(ctx, api.AccountInput{
		Name: args[0], Type: args[1], Balance: balance, Currency: currency, Color: color,
	})
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, a)
	}

	cc.Statusf("Created account %d (%s, %s)\n", a.ID, a.Name, formatMoney(a.Balance, a.Currency))

	return nil
}

func runAccountsRm(cmd *cobra.Command, args []string) error {
	return deleteByID(cmd, args[0], "account", (*api.Client).DeleteAccount)
}

func runCategoriesList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	client, err := cc.requireLogin(ctx)
	if err != nil {
		return err
	}

	cats, err := client.ListCategories(ctx)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, cats)
	}

	rows := make([][]string, 0, len(cats))
	for _, c := range cats {
		owner := "custom"
		if c.UserID == nil {
			owner = "built-in"
		}

		rows = append(rows, []string{strconv.Itoa(c.ID), c.Name, c.Type, owner})
	}

	printTable(cc.Stdout, []string{"ID", "NAME", "TYPE", "KIND"}, rows)

	return nil
}

func runCategoriesAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	kind, err := parseKind(args[1])
	if err != nil {
		return err
	}

	in := api.CategoryInput{Name: args[0], Type: kind}
	if icon, _ := cmd.Flags().GetString("icon"); icon != "" {
		in.Icon = &icon
	}

	client, err := cc.requireLogin(ctx)
	if err != nil {
		return err
	}

	c, err := client.CreateCategory(ctx, in)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, c)
	}

	cc.Statusf("Created category %d (%s)\n", c.ID, c.Name)

	return nil
}

func runCategoriesRm(cmd *cobra.Command, args []string) error {
	return deleteByID(cmd, args[0], "category", (*api.Client).DeleteCategory)
}

func runTxList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	var f api.TransactionFilter

	f.Account, _ = cmd.Flags().GetInt("account")
	f.Category, _ = cmd.Flags().GetInt("category")

	if kind, _ := cmd.Flags().GetString("type"); kind != "" {
		var err error
		if f.Type, err = parseKind(kind); err != nil {
			return err
		}
	}

	client, err := cc.requireLogin(ctx)
	if err != nil {
		return err
	}

	txs, err := client.ListTransactions(ctx, f)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, txs)
	}

	printTransactions(cc, txs)

	return nil
}

func printTransactions(cc *CLIContext, txs []api.Transaction) {
	rows := make([][]string, 0, len(txs))
	for _, t := range txs {
		amount := formatMoney(t.Amount, cc.Cfg.Currency)
		if t.Type == api.TypeExpense {
			amount = "-" + amount
		}

		category := t.CategoryName
		if category == "" {
			category = "-"
		}

		rows = append(rows, []string{
			strconv.Itoa(t.ID), t.TransactionDate, t.AccountName, category, amount, deref(t.Description),
		})
	}

	printTable(cc.Stdout, []string{"ID", "DATE", "ACCOUNT", "CATEGORY", "AMOUNT", "NOTE"}, rows)
}

func runTxAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	account, err := parseID(args[0])
	if err != nil {
		return err
	}

	kind, err := parseKind(args[1])
	if err != nil {
		return err
	}

	amount, err := parseAmount(args[2])
	if err != nil {
		return err
	}

	in := api.TransactionInput{Account: account, Type: kind, Amount: amount}
	in.Description, _ = cmd.Flags().GetString("note")
	in.TransactionDate, _ = cmd.Flags().GetString("date")

	if category, _ := cmd.Flags().GetInt("category"); category != 0 {
		in.Category = &category
	}

	client, err := cc.requireLogin(ctx)
	if err != nil {
		return err
	}

	t, err := client.CreateTransaction(ctx, in)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, t)
	}

	cc.Statusf("Recorded transaction %d\n", t.ID)

	return nil
}

func runTxRm(cmd *cobra.Command, args []string) error {
	return deleteByID(cmd, args[0], "transaction", (*api.Client).DeleteTransaction)
}

// deleteByID runs a delete call for a numeric ID argument.
func deleteByID(cmd *cobra.Command, arg, noun string, del func(*api.Client, context.Context, int) error) error {
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

	if err := del(client, ctx, id); err != nil {
		return err
	}

	cc.Statusf("Deleted %s %d\n", noun, id)

	return nil
}
