package fakeapi

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/tonimelisma/moneyboard/internal/api"
)

// --- accounts ---

// insertAccount stores a new account. Callers hold s.mu.
func (s *Server) insertAccount(owner int, in api.AccountInput) *api.Account {
	a := &api.Account{
		ID:        s.newID(),
		User:      owner,
		Name:      in.Name,
		Type:      in.Type,
		Balance:   in.Balance,
		Currency:  in.Currency,
		Color:     in.Color,
		CreatedAt: now(),
	}

	if a.Currency == "" {
		a.Currency = "USD"
	}

	s.accounts[a.ID] = a
	s.refreshAccount(a)

	return a
}

// refreshAccount recomputes the amounts committed to goals. Callers hold s.mu.
func (s *Server) refreshAccount(a *api.Account) {
	committed := decimal.Zero

	for _, g := range s.goals {
		if g.AccountID != nil && *g.AccountID == a.ID && g.Status == api.GoalInProgress {
			committed = committed.Add(g.CurrentAmount)
		}
	}

	a.CommittedToGoals = committed
	a.AvailableBalance = a.Balance.Sub(committed)
}

// ownedAccount returns the caller's account or nil. Callers hold s.mu.
func (s *Server) ownedAccount(owner, id int) *api.Account {
	a, ok := s.accounts[id]
	if !ok || a.User != owner {
		return nil
	}

	return a
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []api.Account{}

	for _, a := range s.accounts {
		if a.User == userID(r) {
			s.refreshAccount(a)
			out = append(out, *a)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.ownedAccount(userID(r), pathID(r))
	if a == nil {
		writeError(w, http.StatusNotFound, "Not found.")

		return
	}

	s.refreshAccount(a)
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var in api.AccountInput
	if !decode(w, r, &in) {
		return
	}

	if in.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"name": {"This field is required."}})

		return
	}

	s.mu.Lock()
	a := s.insertAccount(userID(r), in)
	out := *a
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.ownedAccount(userID(r), pathID(r))
	if a == nil {
		writeError(w, http.StatusNotFound, "Not found.")

		return
	}

	updated := *a
	if err := json.Unmarshal(body, &updated); err != nil {
		writeError(w, http.StatusBadRequest, "JSON parse error: "+err.Error())

		return
	}

	// Identity and ownership are not writable.
	updated.ID, updated.User, updated.CreatedAt = a.ID, a.User, a.CreatedAt
	*a = updated
	s.refreshAccount(a)

	writeJSON(w, http.StatusOK, a)
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.ownedAccount(userID(r), pathID(r))
	if a == nil {
		writeError(w, http.StatusNotFound, "Not found.")

		return
	}

	for _, t := range s.transactions {
		if t.AccountID == a.ID {
			writeError(w, http.StatusConflict, "Account has transactions and cannot be deleted.")

			return
		}
	}

	delete(s.accounts, a.ID)
	w.WriteHeader(http.StatusNoContent)
}

// --- categories ---

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []api.Category{}

	for _, c := range s.categories {
		if c.UserID == nil || *c.UserID == userID(r) {
			out = append(out, *c)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var in api.CategoryInput
	if !decode(w, r, &in) {
		return
	}

	if in.Type != api.TypeIncome && in.Type != api.TypeExpense {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"type": {`"` + in.Type + `" is not a valid choice.`}})

		return
	}

	owner := userID(r)

	s.mu.Lock()
	c := &api.Category{ID: s.newID(), UserID: &owner, Name: in.Name, Type: in.Type, Icon: in.Icon}
	s.categories[c.ID] = c
	out := *c
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[pathID(r)]

	switch {
	case !ok:
		writeError(w, http.StatusNotFound, "Not found.")
	case c.UserID == nil:
		writeError(w, http.StatusForbidden, "Built-in categories cannot be deleted.")
	case *c.UserID != userID(r):
		writeError(w, http.StatusNotFound, "Not found.")
	default:
		delete(s.categories, c.ID)
		w.WriteHeader(http.StatusNoContent)
	}
}

// --- transactions ---

// signed returns the balance effect of a transaction.
func signed(kind string, amount decimal.Decimal) decimal.Decimal {
	if kind == api.TypeIncome {
		return amount
	}

	return amount.Neg()
}

// insertTransaction validates and stores a transaction, applying it to the
// account balance. A non-empty message reports a validation failure.
// Callers hold s.mu.
func (s *Server) insertTransaction(owner int, in api.TransactionInput) (*api.Transaction, string) {
	a := s.ownedAccount(owner, in.Account)
	if a == nil {
		return nil, "Invalid account."
	}

	if in.Type != api.TypeIncome && in.Type != api.TypeExpense {
		return nil, "Invalid transaction type."
	}

	if !in.Amount.IsPositive() {
		return nil, "Amount must be positive."
	}

	t := &api.Transaction{
		ID:              s.newID(),
		UserID:          owner,
		AccountID:       a.ID,
		Type:            in.Type,
		Amount:          in.Amount,
		TransactionDate: in.TransactionDate,
		CreatedAt:       now(),
	}

	if t.TransactionDate == "" {
		t.TransactionDate = today()
	}

	if in.Description != "" {
		desc := in.Description
		t.Description = &desc
	}

	if in.Category != nil {
		c, ok := s.categories[*in.Category]
		if !ok {
			return nil, "Invalid category."
		}

		t.CategoryID = &c.ID
	}

	a.Balance = a.Balance.Add(signed(t.Type, t.Amount))
	s.transactions[t.ID] = t
	s.decorateTransaction(t)

	return t, ""
}

// decorateTransaction fills the denormalized names. Callers hold s.mu.
func (s *Server) decorateTransaction(t *api.Transaction) {
	if a, ok := s.accounts[t.AccountID]; ok {
		t.AccountName = a.Name
	}

	t.CategoryName, t.CategoryIcon = "", nil

	if t.CategoryID != nil {
		if c, ok := s.categories[*t.CategoryID]; ok {
			t.CategoryName, t.CategoryIcon = c.Name, c.Icon
		}
	}
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	account, _ := strconv.Atoi(q.Get("account"))
	category, _ := strconv.Atoi(q.Get("category"))
	kind := q.Get("type")

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []api.Transaction{}

	for _, t := range s.transactions {
		switch {
		case t.UserID != userID(r):
			continue
		case account != 0 && t.AccountID != account:
			continue
		case category != 0 && (t.CategoryID == nil || *t.CategoryID != category):
			continue
		case kind != "" && t.Type != kind:
			continue
		}

		s.decorateTransaction(t)
		out = append(out, *t)
	}

	sortNewestFirst(out)

	writeJSON(w, http.StatusOK, out)
}

func sortNewestFirst(ts []api.Transaction) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].TransactionDate != ts[j].TransactionDate {
			return ts[i].TransactionDate > ts[j].TransactionDate
		}

		return ts[i].ID > ts[j].ID
	})
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var in api.TransactionInput
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	t, msg := s.insertTransaction(userID(r), in)

	var out api.Transaction
	if t != nil {
		out = *t
	}
	s.mu.Unlock()

	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)

		return
	}

	writeJSON(w, http.StatusCreated, out)
}

// transactionPatch holds the writable fields of a transaction update.
type transactionPatch struct {
	Account         *int             `json:"account"`
	Category        *int             `json:"category"`
	Type            *string          `json:"type"`
	Amount          *decimal.Decimal `json:"amount"`
	Description     *string          `json:"description"`
	TransactionDate *string          `json:"transaction_date"`
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request) {
	var p transactionPatch
	if !decode(w, r, &p) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[pathID(r)]
	if !ok || t.UserID != userID(r) {
		writeError(w, http.StatusNotFound, "Not found.")

		return
	}

	in := api.TransactionInput{
		Account:         t.AccountID,
		Category:        t.CategoryID,
		Type:            t.Type,
		Amount:          t.Amount,
		TransactionDate: t.TransactionDate,
	}

	if t.Description != nil {
		in.Description = *t.Description
	}

	if p.Account != nil {
		in.Account = *p.Account
	}

	if p.Category != nil {
		in.Category = p.Category
	}

	if p.Type != nil {
		in.Type = *p.Type
	}

	if p.Amount != nil {
		in.Amount = *p.Amount
	}

	if p.Description != nil {
		in.Description = *p.Description
	}

	if p.TransactionDate != nil {
		in.TransactionDate = *p.TransactionDate
	}

	// Replace the old entry: revert its balance effect, then insert anew
	// under the same ID. A rejected update restores the original.
	s.revertTransaction(t)

	updated, msg := s.insertTransaction(t.UserID, in)
	if msg != "" {
		s.restoreTransaction(t)
		writeError(w, http.StatusBadRequest, msg)

		return
	}

	delete(s.transactions, updated.ID)
	updated.ID, updated.CreatedAt = t.ID, t.CreatedAt
	s.transactions[t.ID] = updated

	writeJSON(w, http.StatusOK, updated)
}

// revertTransaction removes t and undoes its balance effect. Callers hold s.mu.
func (s *Server) revertTransaction(t *api.Transaction) {
	if a, ok := s.accounts[t.AccountID]; ok {
		a.Balance = a.Balance.Sub(signed(t.Type, t.Amount))
	}

	delete(s.transactions, t.ID)
}

// restoreTransaction re-applies a reverted transaction. Callers hold s.mu.
func (s *Server) restoreTransaction(t *api.Transaction) {
	if a, ok := s.accounts[t.AccountID]; ok {
		a.Balance = a.Balance.Add(signed(t.Type, t.Amount))
	}

	s.transactions[t.ID] = t
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[pathID(r)]
	if !ok || t.UserID != userID(r) {
		writeError(w, http.StatusNotFound, "Not found.")

		return
	}

	s.revertTransaction(t)
	w.WriteHeader(http.StatusNoContent)
}
