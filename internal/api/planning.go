package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// ListBudgets returns budgets with their spending progress.
func (c *Client) ListBudgets(ctx context.Context) ([]Budget, error) {
	var budgets []Budget
	if err := c.call(ctx, http.MethodGet, "/budgets/", nil, &budgets); err != nil {
		return nil, err
	}

	return budgets, nil
}

// CreateBudget creates a budget. An empty Status defaults to "Active".
func (c *Client) CreateBudget(ctx context.Context, in BudgetInput) (*Budget, error) {
	if in.Status == "" {
		in.Status = "Active"
	}

	var b Budget
	if err := c.call(ctx, http.MethodPost, "/budgets/", in, &b); err != nil {
		return nil, err
	}

	return &b, nil
}

// SetBudgetStatus switches a budget between Active, Paused and Archived.
func (c *Client) SetBudgetStatus(ctx context.Context, id int, status string) (*Budget, error) {
	var b Budget

	path := fmt.Sprintf("/budgets/%d/toggle_status/", id)
	if err := c.call(ctx, http.MethodPost, path, map[string]string{"status": status}, &b); err != nil {
		return nil, err
	}

	return &b, nil
}

// DeleteBudget deletes a budget.
func (c *Client) DeleteBudget(ctx context.Context, id int) error {
	return c.call(ctx, http.MethodDelete, itemPath("budgets", id), nil, nil)
}

// ListGoals returns savings goals.
func (c *Client) ListGoals(ctx context.Context) ([]Goal, error) {
	var goals []Goal
	if err := c.call(ctx, http.MethodGet, "/goals/", nil, &goals); err != nil {
		return nil, err
	}

	return goals, nil
}

// CreateGoal creates a goal in progress.
func (c *Client) CreateGoal(ctx context.Context, in GoalInput) (*Goal, error) {
	in.Status = GoalInProgress

	var g Goal
	if err := c.call(ctx, http.MethodPost, "/goals/", in, &g); err != nil {
		return nil, err
	}

	return &g, nil
}

// UpdateGoalProgress sets the amount saved towards a goal.
func (c *Client) UpdateGoalProgress(ctx context.Context, id int, amount decimal.Decimal) (*Goal, error) {
	return c.patchGoal(ctx, id, map[string]any{"current_amount": amount})
}

// SetGoalStatus marks a goal completed or cancelled.
func (c *Client) SetGoalStatus(ctx context.Context, id int, status string) (*Goal, error) {
	return c.patchGoal(ctx, id, map[string]any{"status": status})
}

func (c *Client) patchGoal(ctx context.Context, id int, fields map[string]any) (*Goal, error) {
	var g Goal
	if err := c.call(ctx, http.MethodPatch, itemPath("goals", id), fields, &g); err != nil {
		return nil, err
	}

	return &g, nil
}

// DeleteGoal deletes a goal.
func (c *Client) DeleteGoal(ctx context.Context, id int) error {
	return c.call(ctx, http.MethodDelete, itemPath("goals", id), nil, nil)
}

// ListDebts returns debts with their repayment progress.
func (c *Client) ListDebts(ctx context.Context) ([]Debt, error) {
	var debts []Debt
	if err := c.call(ctx, http.MethodGet, "/debts/", nil, &debts); err != nil {
		return nil, err
	}

	return debts, nil
}

// CreateDebt creates a debt. A zero MonthlyPayment is computed from the
// principal, rate and term.
func (c *Client) CreateDebt(ctx context.Context, in DebtInput) (*Debt, error) {
	if in.MonthlyPayment.IsZero() {
		payment, err := MonthlyPayment(in.PrincipalAmount, in.InterestRate, in.TermMonths, in.InterestType)
		if err != nil {
			return nil, err
		}

		in.MonthlyPayment = payment
	}

	var d Debt
	if err := c.call(ctx, http.MethodPost, "/debts/", in, &d); err != nil {
		return nil, err
	}

	return &d, nil
}

// AddDebtPayment records a payment from an account and returns the updated debt.
func (c *Client) AddDebtPayment(ctx context.Context, id int, in DebtPaymentInput) (*Debt, error) {
	var d Debt

	path := fmt.Sprintf("/debts/%d/add_payment/", id)
	if err := c.call(ctx, http.MethodPost, path, in, &d); err != nil {
		return nil, err
	}

	return &d, nil
}

// DeleteDebt deletes a debt.
func (c *Client) DeleteDebt(ctx context.Context, id int) error {
	return c.call(ctx, http.MethodDelete, itemPath("debts", id), nil, nil)
}

var errInvalidTerm = errors.New("api: debt term must be at least one month")

// MonthlyPayment returns the installment for a debt, rounded to cents.
// annualRate is a percentage. Simple interest spreads principal plus flat
// interest evenly; amortized uses the standard annuity formula.
func MonthlyPayment(principal, annualRate decimal.Decimal, months int, interestType string) (decimal.Decimal, error) {
	if months <= 0 {
		return decimal.Zero, errInvalidTerm
	}

	n := decimal.NewFromInt(int64(months))
	hundred := decimal.NewFromInt(100)
	twelve := decimal.NewFromInt(12)

	switch interestType {
	case InterestSimple:
		interest := principal.Mul(annualRate.Div(hundred)).Mul(n.Div(twelve))

		return principal.Add(interest).Div(n).Round(2), nil
	case InterestAmortized:
		if annualRate.IsZero() {
			return principal.Div(n).Round(2), nil
		}

		r := annualRate.Div(hundred).Div(twelve)
		growth := decimal.NewFromInt(1).Add(r).Pow(n)

		return principal.Mul(r.Mul(growth)).Div(growth.Sub(decimal.NewFromInt(1))).Round(2), nil
	default:
		return decimal.Zero, fmt.Errorf("api: unknown interest type %q", interestType)
	}
}

// ListInvestments returns investments and insurance policies.
func (c *Client) ListInvestments(ctx context.Context) ([]Investment, error) {
	var inv []Investment
	if err := c.call(ctx, http.MethodGet, "/investments/", nil, &inv); err != nil {
		return nil, err
	}

	return inv, nil
}

// Contribute moves money from an account into an investment.
func (c *Client) Contribute(ctx context.Context, id int, m InvestmentMovement) (*MovementResult, error) {
	return c.move(ctx, id, "contribute", m)
}

// Withdraw moves money from an investment back into an account.
func (c *Client) Withdraw(ctx context.Context, id int, m InvestmentMovement) (*MovementResult, error) {
	return c.move(ctx, id, "withdraw", m)
}

func (c *Client) move(ctx context.Context, id int, action string, m InvestmentMovement) (*MovementResult, error) {
	var res MovementResult

	path := fmt.Sprintf("/investments/%d/%s/", id, action)
	if err := c.call(ctx, http.MethodPost, path, m, &res); err != nil {
		return nil, err
	}

	return &res, nil
}

// Dashboard returns the aggregate figures for the home screen.
func (c *Client) Dashboard(ctx context.Context) (*DashboardStats, error) {
	var s DashboardStats
	if err := c.call(ctx, http.MethodGet, "/dashboard/", nil, &s); err != nil {
		return nil, err
	}

	return &s, nil
}

// Health checks that the backend is up. It needs no credentials.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := NewRequest(http.MethodGet, "/health/", nil)
	if err != nil {
		return nil, err
	}

	req.anonymous = true

	var h Health
	if err := c.do(ctx, req, &h); err != nil {
		return nil, err
	}

	return &h, nil
}
