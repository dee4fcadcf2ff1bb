package fakeapi

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tonimelisma/moneyboard/internal/api"
)

var builtinCategories = []struct {
	name, kind, icon string
}{
	{"Salary", api.TypeIncome, "briefcase"},
	{"Freelance", api.TypeIncome, "laptop"},
	{"Groceries", api.TypeExpense, "cart"},
	{"Rent", api.TypeExpense, "home"},
	{"Transport", api.TypeExpense, "bus"},
	{"Utilities", api.TypeExpense, "bolt"},
	{"Debt Payment", api.TypeExpense, "credit-card"},
	{"Savings", api.TypeExpense, "piggy-bank"},
}

func (s *Server) seedCategories() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range builtinCategories {
		icon := c.icon
		id := s.newID()
		s.categories[id] = &api.Category{ID: id, Name: c.name, Type: c.kind, Icon: &icon}
	}
}

// categoryByName returns a built-in category ID. Callers hold s.mu.
func (s *Server) categoryByName(name string) *int {
	for id, c := range s.categories {
		if c.UserID == nil && c.Name == name {
			return &id
		}
	}

	return nil
}

func (s *Server) seedDemo() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.addUser(DemoEmail, DemoPassword, "Demo", "User")
	if err != nil {
		return err
	}

	checking := s.insertAccount(u.ID, api.AccountInput{
		Name: "Checking", Type: "Bank", Balance: decimal.NewFromInt(2500), Currency: "USD", Color: "#2563eb",
	})
	savings := s.insertAccount(u.ID, api.AccountInput{
		Name: "Savings", Type: "Bank", Balance: decimal.NewFromInt(10000), Currency: "USD", Color: "#16a34a",
	})

	monthStart := time.Now().Format("2006-01") + "-01"

	for _, t := range []api.TransactionInput{
		{Account: checking.ID, Category: s.categoryByName("Salary"), Type: api.TypeIncome, Amount: decimal.NewFromInt(3200), Description: "Monthly salary", TransactionDate: monthStart},
		{Account: checking.ID, Category: s.categoryByName("Rent"), Type: api.TypeExpense, Amount: decimal.NewFromInt(1100), Description: "Rent", TransactionDate: monthStart},
		{Account: checking.ID, Category: s.categoryByName("Groceries"), Type: api.TypeExpense, Amount: decimal.RequireFromString("184.35"), Description: "Weekly shop", TransactionDate: today()},
	} {
		if _, msg := s.insertTransaction(u.ID, t); msg != "" {
			return fmt.Errorf("fakeapi: seeding demo data: %s", msg)
		}
	}

	s.insertBudget(u.ID, api.BudgetInput{
		Category: *s.categoryByName("Groceries"), Amount: decimal.NewFromInt(600), PeriodStart: monthStart, Status: "Active",
	})

	s.insertGoal(u.ID, api.GoalInput{
		Name: "Holiday", Account: &savings.ID, TargetAmount: decimal.NewFromInt(3000), CurrentAmount: decimal.NewFromInt(750), Status: api.GoalInProgress,
	})

	payment, err := api.MonthlyPayment(decimal.NewFromInt(12000), decimal.NewFromInt(6), 24, api.InterestAmortized)
	if err != nil {
		return err
	}

	s.insertDebt(u.ID, api.DebtInput{
		CreditorName: "Car loan", PrincipalAmount: decimal.NewFromInt(12000), InterestRate: decimal.NewFromInt(6),
		InterestType: api.InterestAmortized, TermMonths: 24, MonthlyPayment: payment, StartDate: monthStart,
	})

	id := s.newID()
	institution := "Index Fund Co"
	s.investments[id] = &api.Investment{
		ID:                 id,
		User:               u.ID,
		InvestmentType:     "goal",
		Name:               "Emergency fund",
		InitialAmount:      decimal.NewFromInt(1000),
		CurrentAmount:      decimal.NewFromInt(1000),
		TargetAmount:       decimal.NewNullDecimal(decimal.NewFromInt(6000)),
		InstitutionName:    &institution,
		ExpectedReturnRate: decimal.NewNullDecimal(decimal.NewFromInt(4)),
		StartDate:          monthStart,
		Status:             "active",
		CreatedAt:          now(),
		UpdatedAt:          now(),
	}
	s.refreshInvestment(s.investments[id])

	return nil
}
