package fakeapi

import (
	"net/http"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tonimelisma/moneyboard/internal/api"
)

var validBudgetStatus = map[string]bool{"Active": true, "Paused": true, "Archived": true}

// --- budgets ---

// insertBudget stores a budget. Callers hold s.mu.
func (s *Server) insertBudget(owner int, in api.BudgetInput) *api.Budget {
	b := &api.Budget{
		ID:          s.newID(),
		UserID:      owner,
		CategoryID:  in.Category,
		Amount:      in.Amount,
		PeriodStart: in.PeriodStart,
		PeriodEnd:   in.PeriodEnd,
		IsRecurring: in.IsRecurring,
		Status:      in.Status,
		CreatedAt:   now(),
		UpdatedAt:   now(),
	}

	if b.PeriodStart == "" {
		b.PeriodStart = today()
	}

	s.budgets[b.ID] = b
	s.refreshBudget(b)

	return b
}

// refreshBudget recomputes spending against the budget period. Callers hold s.mu.
func (s *Server) refreshBudget(b *api.Budget) {
	if c, ok := s.categories[b.CategoryID]; ok {
		b.CategoryName, b.CategoryIcon = c.Name, c.Icon
	}

	spent := decimal.Zero

	for _, t := range s.transactions {
		if t.UserID != b.UserID || t.Type != api.TypeExpense || t.CategoryID == nil || *t.CategoryID != b.CategoryID {
			continue
		}

		if t.TransactionDate < b.PeriodStart || (b.PeriodEnd != nil && t.TransactionDate > *b.PeriodEnd) {
			continue
		}

		spent = spent.Add(t.Amount)
	}

	b.Spent = spent
	b.Remaining = b.Amount.Sub(spent)
	b.Percentage = percent(spent, b.Amount)
	b.IsIndefinite = b.PeriodEnd == nil
	b.DaysLeft = nil

	if b.PeriodEnd != nil {
		if end, err := time.Parse(dateLayout, *b.PeriodEnd); err == nil {
			days := max(int(time.Until(end).Hours()/24), 0)
			b.DaysLeft = &days
		}
	}
}

func (s *Server) listBudgets(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []api.Budget{}

	for _, b := range s.budgets {
		if b.UserID == userID(r) {
			s.refreshBudget(b)
			out = append(out, *b)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createBudget(w http.ResponseWriter, r *http.Request) {
	var in api.BudgetInput
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[in.Category]

	switch {
	case !ok || (c.UserID != nil && *c.UserID != userID(r)):
		writeError(w, http.StatusBadRequest, "Invalid category.")

		return
	case c.Type != api.TypeExpense:
		writeError(w, http.StatusBadRequest, "Budgets can only track expense categories.")

		return
	case !in.Amount.IsPositive():
		writeError(w, http.StatusBadRequest, "Amount must be positive.")

		return
	case !validBudgetStatus[in.Status]:
		writeError(w, http.StatusBadRequest, "Invalid status.")

		return
	}

	writeJSON(w, http.StatusCreated, s.insertBudget(userID(r), in))
}

func (s *Server) toggleBudget(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if !decode(w, r, &body) {
		return
	}

	if !validBudgetStatus[body.Status] {
		writeError(w, http.StatusBadRequest, "Invalid status.")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.budgets[pathID(r)]
	if !ok || b.UserID != userID(r) {
		writeError(w, http.StatusNotFound, "Not found.")

		return
	}

	b.Status = body.Status
	b.UpdatedAt = now()
	s.refreshBudget(b)

	writeJSON(w, http.StatusOK, b)
}

func (s *Server) deleteBudget(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.budgets[pathID(r)]
	if !ok || b.UserID != userID(r) {
		writeError(w, http.StatusNotFound, "Not found.")

		return
	}

	delete(s.budgets, b.ID)
	w.WriteHeader(http.StatusNoContent)
}

// --- goals ---

// insertGoal stores a goal. Callers hold s.mu.
func (s *Server) insertGoal(owner int, in api.GoalInput) *api.Goal {
	g := &api.Goal{
		ID:            s.newID(),
		UserID:        owner,
		AccountID:     in.Account,
		Name:          in.Name,
		TargetAmount:  in.TargetAmount,
		CurrentAmount: in.CurrentAmount,
		Deadline:      in.Deadline,
		Status:        in.Status,
		CreatedAt:     now(),
	}

	if g.Status == "" {
		g.Status = api.GoalInProgress
	}

	s.goals[g.ID] = g
	s.refreshGoal(g)

	return g
}

// refreshGoal recomputes progress and the backing account name. Callers hold s.mu.
func (s *Server) refreshGoal(g *api.Goal) {
	g.ProgressPercentage = min(percent(g.CurrentAmount, g.TargetAmount), 100)
	g.AccountName = nil

	if g.AccountID != nil {
		if a, ok := s.accounts[*g.AccountID]; ok {
			name := a.Name
			g.AccountName = &name
		}
	}
}

func (s *Server) listGoals(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []api.Goal{}

	for _, g := range s.goals {
		if g.UserID == userID(r) {
			s.refreshGoal(g)
			out = append(out, *g)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createGoal(w http.ResponseWriter, r *http.Request) {
	var in api.GoalInput
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case in.Name == "":
		writeJSON(w, http.StatusBadRequest, map[string][]string{"name": {"This field is required."}})

		return
	case !in.TargetAmount.IsPositive():
		writeError(w, http.StatusBadRequest, "Target amount must be positive.")

		return
	case in.Account != nil && s.ownedAccount(userID(r), *in.Account) == nil:
		writeError(w, http.StatusBadRequest, "Invalid account.")

		return
	}

	writeJSON(w, http.StatusCreated, s.insertGoal(userID(r), in))
}

// goalPatch holds the writable fields of a goal update.
type goalPatch struct {
	Name          *string          `json:"name"`
	TargetAmount  *decimal.Decimal `json:"target_amount"`
	CurrentAmount *decimal.Decimal `json:"current_amount"`
	Deadline      *string          `json:"deadline"`
	Status        *string          `json:"status"`
}

func (s *Server) updateGoal(w http.ResponseWriter, r *http.Request) {
	var p goalPatch
	if !decode(w, r, &p) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.goals[pathID(r)]
	if !ok || g.UserID != userID(r) {
		writeError(w, http.StatusNotFound, "Not found.")

		return
	}

	if p.Status != nil {
		switch *p.Status {
		case api.GoalInProgress, api.GoalCompleted, api.GoalCancelled:
			g.Status = *p.Status
		default:
			writeError(w, http.StatusBadRequest, "Invalid status.")

			return
		}
	}

	if p.CurrentAmount != nil {
		if p.CurrentAmount.IsNegative() {
			writeError(w, http.StatusBadRequest, "Amount cannot be negative.")

			return
		}

		g.CurrentAmount = *p.CurrentAmount
	}

	if p.Name != nil {
		g.Name = *p.Name
	}

	if p.TargetAmount != nil {
		g.TargetAmount = *p.TargetAmount
	}

	if p.Deadline != nil {
		g.Deadline = p.Deadline
	}

	s.refreshGoal(g)

	writeJSON(w, http.StatusOK, g)
}

func (s *Server) deleteGoal(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.goals[pathID(r)]
	if !ok || g.UserID != userID(r) {
		writeError(w, http.StatusNotFound, "Not found.")

		return
	}

	delete(s.goals, g.ID)
	w.WriteHeader(http.StatusNoContent)
}

// --- debts ---

// insertDebt stores a debt. Callers hold s.mu.
func (s *Server) insertDebt(owner int, in api.DebtInput) *api.Debt {
	d := &api.Debt{
		ID:              s.newID(),
		UserID:          owner,
		CreditorName:    in.CreditorName,
		PrincipalAmount: in.PrincipalAmount,
		InterestRate:    in.InterestRate,
		InterestType:    in.InterestType,
		TermMonths:      in.TermMonths,
		MonthlyPayment:  in.MonthlyPayment,
		StartDate:       in.StartDate,
		Status:          "Active",
		Notes:           in.Notes,
		CreatedAt:       now(),
	}

	if d.StartDate == "" {
		d.StartDate = today()
	}

	s.debts[d.ID] = d
	refreshDebt(d)

	return d
}

func refreshDebt(d *api.Debt) {
	d.TotalAmount = d.MonthlyPayment.Mul(decimal.NewFromInt(int64(d.TermMonths))).Round(2)
	d.TotalInterest = d.TotalAmount.Sub(d.PrincipalAmount)
	d.RemainingBalance = decimal.Max(d.TotalAmount.Sub(d.AmountPaid), decimal.Zero)
	d.PaymentProgress = min(percent(d.AmountPaid, d.TotalAmount), 100)

	if d.RemainingBalance.IsZero() {
		d.Status = "Paid"
	}
}

// nextPayment returns the due date of the next installment.
func nextPayment(d *api.Debt) (time.Time, bool) {
	start, err := time.Parse(dateLayout, d.StartDate)
	if err != nil {
		return time.Time{}, false
	}

	return start.AddDate(0, d.PaymentsCount+1, 0), true
}

func (s *Server) listDebts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []api.Debt{}

	for _, d := range s.debts {
		if d.UserID == userID(r) {
			out = append(out, *d)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createDebt(w http.ResponseWriter, r *http.Request) {
	var in api.DebtInput
	if !decode(w, r, &in) {
		return
	}

	switch {
	case in.CreditorName == "":
		writeJSON(w, http.StatusBadRequest, map[string][]string{"creditor_name": {"This field is required."}})

		return
	case in.TermMonths <= 0 || !in.PrincipalAmount.IsPositive():
		writeError(w, http.StatusBadRequest, "Principal and term must be positive.")

		return
	case in.InterestType != api.InterestSimple && in.InterestType != api.InterestAmortized:
		writeError(w, http.StatusBadRequest, "Invalid interest type.")

		return
	}

	if in.MonthlyPayment.IsZero() {
		payment, err := api.MonthlyPayment(in.PrincipalAmount, in.InterestRate, in.TermMonths, in.InterestType)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())

			return
		}

		in.MonthlyPayment = payment
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	writeJSON(w, http.StatusCreated, s.insertDebt(userID(r), in))
}

func (s *Server) addDebtPayment(w http.ResponseWriter, r *http.Request) {
	var in api.DebtPaymentInput
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.debts[pathID(r)]
	if !ok || d.UserID != userID(r) {
		writeError(w, http.StatusNotFound, "Not found.")

		return
	}

	if d.Status == "Paid" {
		writeError(w, http.StatusBadRequest, "Debt is already paid off.")

		return
	}

	desc := "Payment: " + d.CreditorName
	if in.Notes != nil && *in.Notes != "" {
		desc = *in.Notes
	}

	if _, msg := s.insertTransaction(d.UserID, api.TransactionInput{
		Account:         in.Account,
		Category:        s.categoryByName("Debt Payment"),
		Type:            api.TypeExpense,
		Amount:          in.Amount,
		Description:     desc,
		TransactionDate: in.PaymentDate,
	}); msg != "" {
		writeError(w, http.StatusBadRequest, msg)

		return
	}

	d.AmountPaid = d.AmountPaid.Add(in.Amount)
	d.PaymentsCount++
	refreshDebt(d)

	writeJSON(w, http.StatusOK, d)
}

func (s *Server) deleteDebt(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.debts[pathID(r)]
	if !ok || d.UserID != userID(r) {
		writeError(w, http.StatusNotFound, "Not found.")

		return
	}

	delete(s.debts, d.ID)
	w.WriteHeader(http.StatusNoContent)
}

// --- investments ---

// refreshInvestment recomputes progress and the projected value. Callers hold s.mu.
func (s *Server) refreshInvestment(inv *api.Investment) {
	inv.ProgressPercentage = 0
	if inv.TargetAmount.Valid {
		inv.ProgressPercentage = min(percent(inv.CurrentAmount, inv.TargetAmount.Decimal), 100)
	}

	inv.ProjectedFinalValue = inv.CurrentAmount
	if inv.ExpectedReturnRate.Valid {
		growth := inv.ExpectedReturnRate.Decimal.Div(decimal.NewFromInt(100)).Add(decimal.NewFromInt(1))
		inv.ProjectedFinalValue = inv.CurrentAmount.Mul(growth).Round(2)
	}

	inv.AccountName = nil

	if inv.Account != nil {
		if a, ok := s.accounts[*inv.Account]; ok {
			name := a.Name
			inv.AccountName = &name
		}
	}
}

func (s *Server) listInvestments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []api.Investment{}

	for _, inv := range s.investments {
		if inv.User == userID(r) {
			s.refreshInvestment(inv)
			out = append(out, *inv)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) contribute(w http.ResponseWriter, r *http.Request) {
	s.moveInvestment(w, r, true)
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	s.moveInvestment(w, r, false)
}

// moveInvestment moves money between an account and an investment, recording
// the account side as a transaction.
func (s *Server) moveInvestment(w http.ResponseWriter, r *http.Request, contribute bool) {
	var m api.InvestmentMovement
	if !decode(w, r, &m) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.investments[pathID(r)]
	if !ok || inv.User != userID(r) {
		writeError(w, http.StatusNotFound, "Not found.")

		return
	}

	a := s.ownedAccount(inv.User, m.Account)

	switch {
	case a == nil:
		writeError(w, http.StatusBadRequest, "Invalid account.")

		return
	case !m.Amount.IsPositive():
		writeError(w, http.StatusBadRequest, "Amount must be positive.")

		return
	case contribute && a.Balance.LessThan(m.Amount):
		writeError(w, http.StatusBadRequest, "Insufficient funds in account.")

		return
	case !contribute && inv.CurrentAmount.LessThan(m.Amount):
		writeError(w, http.StatusBadRequest, "Insufficient funds in investment.")

		return
	}

	kind, desc, message := api.TypeExpense, "Contribution: "+inv.Name, "Contribution recorded"
	if !contribute {
		kind, desc, message = api.TypeIncome, "Withdrawal: "+inv.Name, "Withdrawal recorded"
	}

	if m.Notes != "" {
		desc = m.Notes
	}

	t, msg := s.insertTransaction(inv.User, api.TransactionInput{
		Account:     a.ID,
		Category:    s.categoryByName("Savings"),
		Type:        kind,
		Amount:      m.Amount,
		Description: desc,
	})
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)

		return
	}

	if contribute {
		inv.CurrentAmount = inv.CurrentAmount.Add(m.Amount)
	} else {
		inv.CurrentAmount = inv.CurrentAmount.Sub(m.Amount)
	}

	inv.UpdatedAt = now()
	s.refreshInvestment(inv)

	writeJSON(w, http.StatusOK, api.MovementResult{Investment: *inv, TransactionID: t.ID, Message: message})
}

// --- dashboard ---

const (
	recentTransactions = 5
	topGoals           = 3
)

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	stats := api.DashboardStats{
		RecentTransactions: []api.Transaction{},
		BudgetStatus:       []api.DashboardBudget{},
		TopGoals:           []api.DashboardGoal{},
		UpcomingPayments:   []api.DashboardPayment{},
	}

	for _, a := range s.accounts {
		if a.User == owner {
			stats.TotalBalance = stats.TotalBalance.Add(a.Balance)
			stats.AccountsCount++
		}
	}

	for _, t := range s.transactions {
		if t.UserID != owner {
			continue
		}

		if t.Type == api.TypeIncome {
			stats.TotalIncome = stats.TotalIncome.Add(t.Amount)
		} else {
			stats.TotalExpenses = stats.TotalExpenses.Add(t.Amount)
		}

		s.decorateTransaction(t)
		stats.RecentTransactions = append(stats.RecentTransactions, *t)
	}

	sortNewestFirst(stats.RecentTransactions)
	stats.RecentTransactions = stats.RecentTransactions[:min(len(stats.RecentTransactions), recentTransactions)]

	for _, b := range s.budgets {
		if b.UserID != owner || b.Status != "Active" {
			continue
		}

		s.refreshBudget(b)
		stats.BudgetStatus = append(stats.BudgetStatus, api.DashboardBudget{
			ID: b.ID, CategoryName: b.CategoryName, Amount: b.Amount, Spent: b.Spent, Percentage: b.Percentage,
		})
	}

	sort.Slice(stats.BudgetStatus, func(i, j int) bool { return stats.BudgetStatus[i].ID < stats.BudgetStatus[j].ID })

	for _, g := range s.goals {
		if g.UserID != owner {
			continue
		}

		switch g.Status {
		case api.GoalInProgress:
			stats.GoalsSummary.InProgress++

			s.refreshGoal(g)
			stats.TopGoals = append(stats.TopGoals, api.DashboardGoal{
				ID: g.ID, Name: g.Name, TargetAmount: g.TargetAmount, CurrentAmount: g.CurrentAmount, ProgressPercentage: g.ProgressPercentage,
			})
		case api.GoalCompleted:
			stats.GoalsSummary.Completed++
		}
	}

	sort.Slice(stats.TopGoals, func(i, j int) bool {
		return stats.TopGoals[i].ProgressPercentage > stats.TopGoals[j].ProgressPercentage
	})
	stats.TopGoals = stats.TopGoals[:min(len(stats.TopGoals), topGoals)]

	for _, d := range s.debts {
		if d.UserID != owner || d.Status != "Active" {
			continue
		}

		due, ok := nextPayment(d)
		if !ok {
			continue
		}

		stats.UpcomingPayments = append(stats.UpcomingPayments, api.DashboardPayment{
			ID:              d.ID,
			DebtName:        d.CreditorName,
			NextPaymentDate: due.Format(dateLayout),
			PaymentAmount:   d.MonthlyPayment,
			DaysUntilDue:    int(time.Until(due).Hours() / 24),
		})
	}

	sort.Slice(stats.UpcomingPayments, func(i, j int) bool {
		return stats.UpcomingPayments[i].NextPaymentDate < stats.UpcomingPayments[j].NextPaymentDate
	})

	writeJSON(w, http.StatusOK, stats)
}
