//go:build e2e

package e2e

import (
	"encoding/json"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestE2E_SessionLifecycle(t *testing.T) {
	login(t)

	t.Run("whoami", func(t *testing.T) {
		stdout, _ := runCLI(t, "", "whoami", "--json")

		var out map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.Equal(t, email, out["email"])
	})

	t.Run("status", func(t *testing.T) {
		stdout, _ := runCLI(t, "", "status", "--json")

		var out map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.Equal(t, true, out["logged_in"])
		assert.Equal(t, "up", out["backend"])
	})

	t.Run("refresh_after_expiry", func(t *testing.T) {
		if external {
			t.Skip("access lifetime of an external backend is unknown")
		}

		time.Sleep(accessTTL + 500*time.Millisecond)

		stdout, stderr := runCLI(t, "", "whoami", "--json")
		assert.Contains(t, stdout, email)
		assert.NotContains(t, stderr, "logged out")
	})

	t.Run("logout", func(t *testing.T) {
		runCLI(t, "", "logout")

		_, stderr, err := runCLIRaw("", "whoami")
		require.Error(t, err)
		assert.Contains(t, stderr, "moneyboard login")
	})
}

func TestE2E_LedgerRoundTrip(t *testing.T) {
	login(t)
	t.Cleanup(func() { _, _, _ = runCLIRaw("", "logout") })

	name := fmt.Sprintf("e2e-%d", time.Now().UnixNano())

	stdout, _ := runCLI(t, "", "accounts", "add", name, "Cash", "100", "--json")

	var account struct {
		ID      int    `json:"id"`
		Balance string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &account))
	require.NotZero(t, account.ID)

	accountID := strconv.Itoa(account.ID)

	stdout, _ = runCLI(t, "", "tx", "add", accountID, "Expense", "25.50", "--note", "e2e", "--json")

	var tx struct {
		ID int `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &tx))

	balance := func() string {
		out, _ := runCLI(t, "", "accounts", "--json")

		var accounts []struct {
			ID      int    `json:"id"`
			Balance string `json:"balance"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &accounts))

		for _, a := range accounts {
			if a.ID == account.ID {
				return a.Balance
			}
		}

		t.Fatalf("account %d not listed", account.ID)

		return ""
	}

	assert.Equal(t, "74.5", balance())

	_, stderr := runCLI(t, "", "tx", "rm", strconv.Itoa(tx.ID))
	assert.Contains(t, stderr, "Deleted")
	assert.Equal(t, "100", balance())

	_, stderr = runCLI(t, "", "accounts", "rm", accountID)
	assert.Contains(t, stderr, "Deleted")
}

// TestE2E_DashboardFullAfterExpiry fans five requests out with an expired
// access token. All of them must succeed on one refresh.
func TestE2E_DashboardFullAfterExpiry(t *testing.T) {
	if external {
		t.Skip("access lifetime of an external backend is unknown")
	}

	login(t)
	t.Cleanup(func() { _, _, _ = runCLIRaw("", "logout") })

	time.Sleep(accessTTL + 500*time.Millisecond)

	stdout, _ := runCLI(t, "", "dashboard", "--full", "--json")

	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Contains(t, out, "stats")
	assert.Contains(t, out, "accounts")
}

func TestE2E_DebtCalcNeedsNoLogin(t *testing.T) {
	stdout, _ := runCLI(t, "", "debts", "calc", "12000", "6", "24", "--json")

	var out map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "531.85", out["monthly_payment"])
}
