package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ListAccounts returns every account of the current user.
func (c *Client) ListAccounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	if err := c.call(ctx, http.MethodGet, "/accounts/", nil, &accounts); err != nil {
		return nil, err
	}

	return accounts, nil
}

// GetAccount returns one account.
func (c *Client) GetAccount(ctx context.Context, id int) (*Account, error) {
	var a Account
	if err := c.call(ctx, http.MethodGet, itemPath("accounts", id), nil, &a); err != nil {
		return nil, err
	}

	return &a, nil
}

// CreateAccount creates an account. The owner is taken from the credential.
func (c *Client) CreateAccount(ctx context.Context, in AccountInput) (*Account, error) {
	var a Account
	if err := c.call(ctx, http.MethodPost, "/accounts/", in, &a); err != nil {
		return nil, err
	}

	return &a, nil
}

// UpdateAccount applies a partial update. fields holds JSON field names.
func (c *Client) UpdateAccount(ctx context.Context, id int, fields map[string]any) (*Account, error) {
	var a Account
	if err := c.call(ctx, http.MethodPatch, itemPath("accounts", id), fields, &a); err != nil {
		return nil, err
	}

	return &a, nil
}

// DeleteAccount deletes an account.
func (c *Client) DeleteAccount(ctx context.Context, id int) error {
	return c.call(ctx, http.MethodDelete, itemPath("accounts", id), nil, nil)
}

// ListCategories returns built-in and user categories.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var cats []Category
	if err := c.call(ctx, http.MethodGet, "/categories/", nil, &cats); err != nil {
		return nil, err
	}

	return cats, nil
}

// CreateCategory creates a user category.
func (c *Client) CreateCategory(ctx context.Context, in CategoryInput) (*Category, error) {
	var cat Category
	if err := c.call(ctx, http.MethodPost, "/categories/", in, &cat); err != nil {
		return nil, err
	}

	return &cat, nil
}

// DeleteCategory deletes a user category.
func (c *Client) DeleteCategory(ctx context.Context, id int) error {
	return c.call(ctx, http.MethodDelete, itemPath("categories", id), nil, nil)
}

// ListTransactions returns transactions matching f.
func (c *Client) ListTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, error) {
	req, err := NewRequest(http.MethodGet, "/transactions/", nil)
	if err != nil {
		return nil, err
	}

	req.Query = f.values()

	var txns []Transaction
	if err := c.do(ctx, req, &txns); err != nil {
		return nil, err
	}

	return txns, nil
}

// CreateTransaction records an income or expense.
func (c *Client) CreateTransaction(ctx context.Context, in TransactionInput) (*Transaction, error) {
	var t Transaction
	if err := c.call(ctx, http.MethodPost, "/transactions/", in, &t); err != nil {
		return nil, err
	}

	return &t, nil
}

// UpdateTransaction applies a partial update.
func (c *Client) UpdateTransaction(ctx context.Context, id int, fields map[string]any) (*Transaction, error) {
	var t Transaction
	if err := c.call(ctx, http.MethodPatch, itemPath("transactions", id), fields, &t); err != nil {
		return nil, err
	}

	return &t, nil
}

// DeleteTransaction deletes a transaction.
func (c *Client) DeleteTransaction(ctx context.Context, id int) error {
	return c.call(ctx, http.MethodDelete, itemPath("transactions", id), nil, nil)
}

func (f TransactionFilter) values() url.Values {
	v := url.Values{}

	if f.Account != 0 {
		v.Set("account", strconv.Itoa(f.Account))
	}

	if f.Category != 0 {
		v.Set("category", strconv.Itoa(f.Category))
	}

	if f.Type != "" {
		v.Set("type", f.Type)
	}

	return v
}

// itemPath returns the detail path for a collection item, e.g. "/accounts/3/".
func itemPath(collection string, id int) string {
	return fmt.Sprintf("/%s/%d/", collection, id)
}
