package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tonimelisma/moneyboard/internal/api"
	"github.com/tonimelisma/moneyboard/internal/credstore"
	"github.com/tonimelisma/moneyboard/internal/usermsg"
)

// Client opens the configured credential store and returns an API client
// bound to it. The store stays open until Close.
func (cc *CLIContext) Client(ctx context.Context) (*api.Client, error) {
	if cc.client != nil {
		return cc.client, nil
	}

	if cc.Cfg == nil {
		return nil, fmt.Errorf("no configuration loaded")
	}

	store, err := credstore.Open(ctx, cc.Cfg.CredentialStore, cc.Cfg.CredentialFile(), cc.Logger)
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}

	client := api.NewClient(cc.Cfg.APIURL, &http.Client{}, store, cc.Logger, cc.Cfg.UserAgent)
	client.SetTimeout(cc.Cfg.Timeout())
	client.OnSessionEnd(func(cause error) {
		cc.Logger.Info("session ended", slog.String("cause", cause.Error()))
		cc.Statusf("%s\n", usermsg.LoggedOut(cc.Lang))
	})

	cc.store, cc.client = store, client

	return client, nil
}

// requireLogin returns a client, failing early with ErrNotLoggedIn when no
// credentials are stored.
func (cc *CLIContext) requireLogin(ctx context.Context) (*api.Client, error) {
	client, err := cc.Client(ctx)
	if err != nil {
		return nil, err
	}

	if !client.Authenticated(ctx) {
		return nil, api.ErrNotLoggedIn
	}

	return client, nil
}
