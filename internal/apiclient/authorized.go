package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"admin-console/internal/models"
)

// Authorized issues calls on behalf of one admin token.
type Authorized struct {
	c     *Client
	token string
}

func (a *Authorized) call(ctx context.Context, method, path string, body, out any) (string, error) {
	if a.token == "" {
		return "", ErrNoToken
	}
	return a.c.do(ctx, method, path, a.token, body, out)
}

func get[T any](ctx context.Context, a *Authorized, path string) (T, error) {
	var out T
	_, err := a.call(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func send[R any](ctx context.Context, a *Authorized, method, path string, body any) (*R, error) {
	out := new(R)
	if _, err := a.call(ctx, method, path, body, out); err != nil {
		return nil, err
	}
	return out, nil
}

// save resolves a Save to POST collection or PUT collection/{id}.
func save[T, R any](ctx context.Context, a *Authorized, collection string, op Save[T]) (*R, error) {
	if op.IsUpdate() {
		return send[R](ctx, a, http.MethodPut, itemPath(collection, op.ID()), op.Body)
	}
	return send[R](ctx, a, http.MethodPost, collection, op.Body)
}

func (a *Authorized) remove(ctx context.Context, collection string, id models.ID) error {
	_, err := a.call(ctx, http.MethodDelete, itemPath(collection, id), nil, nil)
	return err
}

func itemPath(collection string, id models.ID) string {
	return collection + "/" + url.PathEscape(id.String())
}

// Logout invalidates the token upstream.
func (a *Authorized) Logout(ctx context.Context) error {
	_, err := a.call(ctx, http.MethodPost, "/auth/logout", struct{}{}, nil)
	return err
}
