package api

import (
	"github.com/shopspring/decimal"
)

// Transaction and category types.
const (
	TypeIncome  = "Income"
	TypeExpense = "Expense"
)

// User is the authenticated account holder.
type User struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	CreatedAt string `json:"created_at"`
}

// LoginCredentials is the body of POST /auth/login/.
type LoginCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by POST /auth/login/.
type LoginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    User   `json:"user"`
}

// RegisterData is the body of POST /auth/register/.
type RegisterData struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
}

// RegisterResponse is returned by POST /auth/register/.
type RegisterResponse struct {
	User    User      `json:"user"`
	Tokens  tokenPair `json:"tokens"`
	Message string    `json:"message"`
}

// UpdateProfileData is the body of PATCH /auth/user/. Empty fields are not sent.
type UpdateProfileData struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// ChangePasswordData is the body of POST /auth/change-password/.
type ChangePasswordData struct {
	OldPassword        string `json:"old_password"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

// Account is a bank account, cash wallet, card or investment account.
type Account struct {
	ID               int             `json:"id"`
	User             int             `json:"user"`
	Name             string          `json:"name"`
	Type             string          `json:"type"`
	Balance          decimal.Decimal `json:"balance"`
	Currency         string          `json:"currency"`
	Color            string          `json:"color"`
	CommittedToGoals decimal.Decimal `json:"committed_to_goals"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	CreatedAt        string          `json:"created_at"`
}

// AccountInput creates or updates an account.
type AccountInput struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
	Color    string          `json:"color,omitempty"`
}

// Category classifies transactions. UserID is nil for built-in categories.
type Category struct {
	ID     int     `json:"id"`
	UserID *int    `json:"user_id"`
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	Icon   *string `json:"icon"`
}

// CategoryInput creates or updates a category.
type CategoryInput struct {
	Name string  `json:"name"`
	Type string  `json:"type"`
	Icon *string `json:"icon"`
}

// Transaction is a single income or expense entry.
type Transaction struct {
	ID              int             `json:"id"`
	UserID          int             `json:"user_id"`
	AccountID       int             `json:"account_id"`
	AccountName     string          `json:"account_name"`
	CategoryID      *int            `json:"category_id"`
	CategoryName    string          `json:"category_name"`
	CategoryIcon    *string         `json:"category_icon"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Description     *string         `json:"description"`
	TransactionDate string          `json:"transaction_date"`
	CreatedAt       string          `json:"created_at"`
}

// TransactionInput creates or updates a transaction.
type TransactionInput struct {
	Account         int             `json:"account"`
	Category        *int            `json:"category"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	TransactionDate string          `json:"transaction_date"`
}

// TransactionFilter narrows a transaction listing. Zero fields are ignored.
type TransactionFilter struct {
	Account  int
	Category int
	Type     string
}

// Budget caps spending in one category over a period. PeriodEnd is nil for
// indefinite budgets.
type Budget struct {
	ID           int             `json:"id"`
	UserID       int             `json:"user_id"`
	CategoryID   int             `json:"category_id"`
	CategoryName string          `json:"category_name"`
	CategoryIcon *string         `json:"category_icon"`
	Amount       decimal.Decimal `json:"amount"`
	PeriodStart  string          `json:"period_start"`
	PeriodEnd    *string         `json:"period_end"`
	IsRecurring  bool            `json:"is_recurring"`
	Status       string          `json:"status"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
	Spent        decimal.Decimal `json:"spent"`
	Remaining    decimal.Decimal `json:"remaining"`
	Percentage   float64         `json:"percentage"`
	DaysLeft     *int            `json:"days_left"`
	HistoryCount int             `json:"history_count"`
	IsIndefinite bool            `json:"is_indefinite"`
}

// BudgetInput creates a budget.
type BudgetInput struct {
	Category    int             `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	PeriodStart string          `json:"period_start"`
	PeriodEnd   *string         `json:"period_end"`
	IsRecurring bool            `json:"is_recurring"`
	Status      string          `json:"status"`
}

// Goal statuses.
const (
	GoalInProgress = "In Progress"
	GoalCompleted  = "Completed"
	GoalCancelled  = "Cancelled"
)

// Goal is a savings target, optionally backed by an account.
type Goal struct {
	ID                 int             `json:"id"`
	UserID             int             `json:"user_id"`
	AccountID          *int            `json:"account_id"`
	AccountName        *string         `json:"account_name"`
	Name               string          `json:"name"`
	TargetAmount       decimal.Decimal `json:"target_amount"`
	CurrentAmount      decimal.Decimal `json:"current_amount"`
	Deadline           *string         `json:"deadline"`
	Status             string          `json:"status"`
	ProgressPercentage float64         `json:"progress_percentage"`
	CreatedAt          string          `json:"created_at"`
}

// GoalInput creates a goal.
type GoalInput struct {
	Name          string          `json:"name"`
	Account       *int            `json:"account"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	Deadline      *string         `json:"deadline"`
	Status        string          `json:"status"`
}

// Interest types for debts.
const (
	InterestSimple    = "simple"
	InterestAmortized = "amortized"
)

// Debt is a loan being paid down in monthly installments.
type Debt struct {
	ID               int             `json:"id"`
	UserID           int             `json:"user_id"`
	CreditorName     string          `json:"creditor_name"`
	PrincipalAmount  decimal.Decimal `json:"principal_amount"`
	InterestRate     decimal.Decimal `json:"interest_rate"`
	InterestType     string          `json:"interest_type"`
	TermMonths       int             `json:"term_months"`
	MonthlyPayment   decimal.Decimal `json:"monthly_payment"`
	AmountPaid       decimal.Decimal `json:"amount_paid"`
	StartDate        string          `json:"start_date"`
	Status           string          `json:"status"`
	Notes            *string         `json:"notes"`
	CreatedAt        string          `json:"created_at"`
	TotalInterest    decimal.Decimal `json:"total_interest"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	PaymentProgress  float64         `json:"payment_progress"`
	PaymentsCount    int             `json:"payments_count"`
}

// DebtInput creates a debt. MonthlyPayment is filled in by CreateDebt when zero.
type DebtInput struct {
	CreditorName    string          `json:"creditor_name"`
	PrincipalAmount decimal.Decimal `json:"principal_amount"`
	InterestRate    decimal.Decimal `json:"interest_rate"`
	InterestType    string          `json:"interest_type"`
	TermMonths      int             `json:"term_months"`
	MonthlyPayment  decimal.Decimal `json:"monthly_payment"`
	StartDate       string          `json:"start_date"`
	Notes           *string         `json:"notes"`
}

// DebtPaymentInput is the body of POST /debts/{id}/add_payment/.
type DebtPaymentInput struct {
	Account     int             `json:"account"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date"`
	Notes       *string         `json:"notes"`
}

// Investment is a goal-type investment or an insurance policy.
type Investment struct {
	ID                  int                 `json:"id"`
	User                int                 `json:"user"`
	InvestmentType      string              `json:"investment_type"`
	Name                string              `json:"name"`
	Account             *int                `json:"account"`
	AccountName         *string             `json:"account_name"`
	InitialAmount       decimal.Decimal     `json:"initial_amount"`
	CurrentAmount       decimal.Decimal     `json:"current_amount"`
	TargetAmount        decimal.NullDecimal `json:"target_amount"`
	InstitutionName     *string             `json:"institution_name"`
	ExpectedReturnRate  decimal.NullDecimal `json:"expected_return_rate"`
	StartDate           string              `json:"start_date"`
	Deadline            *string             `json:"deadline"`
	Status              string              `json:"status"`
	Notes               *string             `json:"notes"`
	ProgressPercentage  float64             `json:"progress_percentage"`
	ProjectedFinalValue decimal.Decimal     `json:"projected_final_value"`
	CreatedAt           string              `json:"created_at"`
	UpdatedAt           string              `json:"updated_at"`
}

// InvestmentMovement is the body of the contribute and withdraw actions.
type InvestmentMovement struct {
	Amount  decimal.Decimal `json:"amount"`
	Account int             `json:"account"`
	Notes   string          `json:"notes,omitempty"`
}

// MovementResult is returned by the contribute and withdraw actions.
type MovementResult struct {
	Investment    Investment `json:"investment"`
	TransactionID int        `json:"transaction_id"`
	Message       string     `json:"message"`
}

// GoalsSummary counts goals by status.
type GoalsSummary struct {
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}

// DashboardBudget is one row of the dashboard budget status.
type DashboardBudget struct {
	ID           int             `json:"id"`
	CategoryName string          `json:"category_name"`
	Amount       decimal.Decimal `json:"amount"`
	Spent        decimal.Decimal `json:"spent"`
	Percentage   float64         `json:"percentage"`
}

// DashboardGoal is one of the dashboard's top goals.
type DashboardGoal struct {
	ID                 int             `json:"id"`
	Name               string          `json:"name"`
	TargetAmount       decimal.Decimal `json:"target_amount"`
	CurrentAmount      decimal.Decimal `json:"current_amount"`
	ProgressPercentage float64         `json:"progress_percentage"`
}

// DashboardPayment is an upcoming debt payment.
type DashboardPayment struct {
	ID              int             `json:"id"`
	DebtName        string          `json:"debt_name"`
	NextPaymentDate string          `json:"next_payment_date"`
	PaymentAmount   decimal.Decimal `json:"payment_amount"`
	DaysUntilDue    int             `json:"days_until_due"`
}

// DashboardStats is the aggregate returned by GET /dashboard/.
type DashboardStats struct {
	TotalBalance       decimal.Decimal    `json:"total_balance"`
	TotalIncome        decimal.Decimal    `json:"total_income"`
	TotalExpenses      decimal.Decimal    `json:"total_expenses"`
	AccountsCount      int                `json:"accounts_count"`
	RecentTransactions []Transaction      `json:"recent_transactions"`
	GoalsSummary       GoalsSummary       `json:"goals_summary"`
	BudgetStatus       []DashboardBudget  `json:"budget_status"`
	TopGoals           []DashboardGoal    `json:"top_goals"`
	UpcomingPayments   []DashboardPayment `json:"upcoming_payments"`
}

// Health is returned by GET /health/.
type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
