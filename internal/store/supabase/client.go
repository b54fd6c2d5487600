// Package supabase implements the persistence gateway against a hosted
// Supabase project, speaking PostgREST over HTTP to the profiles table.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"

	"github.com/sayhello/sayhello/internal/directory"
	"github.com/sayhello/sayhello/internal/store"
)

const profilesTable = "/profiles"

// Config carries the project endpoint and the access key. Both come from
// process configuration; when they are empty the client is still built
// (startup only warns) and every request fails with a transport error.
type Config struct {
	URL string
	Key string
}

// Client is the hosted gateway. Safe for concurrent use.
type Client struct {
	rest *resty.Client
}

// New builds a client for the project's PostgREST endpoint.
func New(cfg Config) *Client {
	rest := resty.New().
		SetBaseURL(cfg.URL+"/rest/v1").
		SetHeader("apikey", cfg.Key).
		SetAuthToken(cfg.Key).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
	return &Client{rest: rest}
}

// pgError is the PostgREST error body.
type pgError struct {
	Message string `json:"message"`
	Details string `json:"details"`
	Code    string `json:"code"`
}

// List fetches every row of the profiles table.
func (c *Client) List(ctx context.Context) ([]directory.Profile, error) {
	var rows []store.Row
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("select", "*").
		SetResult(&rows).
		Get(profilesTable)
	if err := c.check("list", resp, err); err != nil {
		return nil, err
	}
	return store.FromRows(rows, time.Now()), nil
}

// Save updates the row matching the profile's existing id, or inserts a
// new row (id omitted, backend-assigned) when the profile is new. The
// authoritative row is returned in both cases.
func (c *Client) Save(ctx context.Context, p directory.Profile) (directory.Profile, error) {
	var rows []store.Row
	req := c.rest.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(store.ToRow(p, false)).
		SetResult(&rows)

	var (
		resp *resty.Response
		err  error
	)
	if p.ID.Existing() {
		resp, err = req.SetQueryParam("id", "eq."+p.ID.String()).Patch(profilesTable)
	} else {
		resp, err = req.Post(profilesTable)
	}
	if err := c.check("save", resp, err); err != nil {
		return directory.Profile{}, err
	}
	if len(rows) == 0 {
		return directory.Profile{}, store.ErrNotFound
	}
	return store.FromRow(rows[0], time.Now()), nil
}

// Remove deletes the row with the given id.
func (c *Client) Remove(ctx context.Context, id string) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("id", "eq."+id).
		Delete(profilesTable)
	return c.check("remove", resp, err)
}

// BulkSave partitions the input by identifier state: rows with existing
// ids are upserted by id, the rest are inserted with backend-assigned
// ids. The two batches are issued concurrently; results come back
// upserts-first. Empty input returns empty output with no request.
func (c *Client) BulkSave(ctx context.Context, profiles []directory.Profile) ([]directory.Profile, error) {
	if len(profiles) == 0 {
		return []directory.Profile{}, nil
	}

	var withID, withoutID []store.Row
	for _, p := range profiles {
		if p.ID.Existing() {
			withID = append(withID, store.ToRow(p, true))
		} else {
			withoutID = append(withoutID, store.ToRow(p, false))
		}
	}

	var upserted, inserted []store.Row
	g, gctx := errgroup.WithContext(ctx)
	if len(withID) > 0 {
		g.Go(func() error {
			resp, err := c.rest.R().
				SetContext(gctx).
				SetHeader("Prefer", "resolution=merge-duplicates,return=representation").
				SetBody(withID).
				SetResult(&upserted).
				Post(profilesTable)
			return c.check("bulk upsert", resp, err)
		})
	}
	if len(withoutID) > 0 {
		g.Go(func() error {
			resp, err := c.rest.R().
				SetContext(gctx).
				SetHeader("Prefer", "return=representation").
				SetBody(withoutID).
				SetResult(&inserted).
				Post(profilesTable)
			return c.check("bulk insert", resp, err)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := time.Now()
	results := store.FromRows(upserted, now)
	return append(results, store.FromRows(inserted, now)...), nil
}

// check folds a resty response into the gateway error contract.
func (c *Client) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return &store.TransportError{Op: op, Message: err.Error()}
	}
	if resp.IsError() {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode())
		var pgErr pgError
		if jsonErr := json.Unmarshal(resp.Body(), &pgErr); jsonErr == nil && pgErr.Message != "" {
			msg = pgErr.Message
		}
		return &store.TransportError{Op: op, Status: resp.StatusCode(), Message: msg}
	}
	return nil
}
