package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/moneyboard/internal/credstore"
)

func TestMonthlyPayment(t *testing.T) {
	tests := []struct {
		name      string
		principal string
		rate      string
		months    int
		kind      string
		want      string
	}{
		{"simple", "1200", "10", 12, InterestSimple, "110"},
		{"simple zero rate", "1000", "0", 4, InterestSimple, "250"},
		{"amortized", "1000", "12", 12, InterestAmortized, "88.85"},
		{"amortized zero rate", "1200", "0", 12, InterestAmortized, "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MonthlyPayment(decimal.RequireFromString(tt.principal), decimal.RequireFromString(tt.rate), tt.months, tt.kind)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestMonthlyPayment_Invalid(t *testing.T) {
	_, err := MonthlyPayment(decimal.NewFromInt(100), decimal.Zero, 0, InterestSimple)
	require.ErrorIs(t, err, errInvalidTerm)

	_, err = MonthlyPayment(decimal.NewFromInt(100), decimal.Zero, 12, "compound")
	require.Error(t, err)
}

func TestCreateDebt_FillsMonthlyPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/debts/", r.URL.Path)

		var in DebtInput
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "110", in.MonthlyPayment.String())

		writeJSON(w, http.StatusCreated, Debt{ID: 7, CreditorName: in.CreditorName, MonthlyPayment: in.MonthlyPayment})
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, credstore.Pair{Access: "a1", Refresh: "r1"})

	d, err := c.CreateDebt(context.Background(), DebtInput{
		CreditorName:    "Bank",
		PrincipalAmount: decimal.NewFromInt(1200),
		InterestRate:    decimal.NewFromInt(10),
		InterestType:    InterestSimple,
		TermMonths:      12,
		StartDate:       "2026-01-01",
	})
	require.NoError(t, err)
	assert.Equal(t, 7, d.ID)
}

func TestListTransactions_Filter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("account"))
		assert.Equal(t, TypeExpense, r.URL.Query().Get("type"))
		assert.False(t, r.URL.Query().Has("category"))

		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": 1, "account_id": 3, "type": "Expense", "amount": "12.50", "transaction_date": "2026-10-01"},
		})
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, credstore.Pair{Access: "a1", Refresh: "r1"})

	txns, err := c.ListTransactions(context.Background(), TransactionFilter{Account: 3, Type: TypeExpense})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "12.5", txns[0].Amount.String())
}

func TestDashboard_DecodesDecimals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"total_balance":"1520.75","total_income":"3000.00","total_expenses":"1479.25",` +
			`"accounts_count":2,"goals_summary":{"in_progress":1,"completed":2}}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, credstore.Pair{Access: "a1", Refresh: "r1"})

	s, err := c.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1520.75", s.TotalBalance.String())
	assert.Equal(t, 2, s.AccountsCount)
	assert.Equal(t, 2, s.GoalsSummary.Completed)
}

func TestDeleteAccount_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/accounts/4/", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, credstore.Pair{Access: "a1", Refresh: "r1"})

	require.NoError(t, c.DeleteAccount(context.Background(), 4))
}
