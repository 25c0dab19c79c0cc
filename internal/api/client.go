// internal/api/client.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"loyalty-admin/internal/common/errors"
	apihttp "loyalty-admin/internal/common/http"
	"loyalty-admin/internal/common/logger"
	"loyalty-admin/internal/customers"
	"loyalty-admin/internal/dispatch"
	"loyalty-admin/internal/models"
	"loyalty-admin/internal/permission"
)

const (
	customersPath     = "/api/customers"
	notificationsPath = "/api/notifications/send"
)

// Client talks to the loyalty platform REST API. It is both a customer
// source and a notification submitter.
type Client struct {
	http   *apihttp.Client
	logger logger.Logger
}

func New(baseURL, token string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		http:   apihttp.NewClient(baseURL, token, timeout),
		logger: logger.Component(log, "api-client"),
	}
}

// ==========================
// Customers
// ==========================

// FetchCustomers loads the whole customer population. The API answers with
// either a bare array or an object holding it under "customers" or "data".
func (c *Client) FetchCustomers(ctx context.Context) ([]models.Customer, error) {
	raw, err := c.http.Do(ctx, http.MethodGet, customersPath, nil)
	if err != nil {
		return nil, errors.NewCustomerFetchError("api", err)
	}

	records, err := decodeCustomerList(raw)
	if err != nil {
		return nil, errors.NewCustomerFetchError("api", err)
	}

	out := customers.NormalizeAll(records)
	c.logger.Debug("Fetched customers", map[string]interface{}{"count": len(out)})
	return out, nil
}

func decodeCustomerList(raw []byte) ([]customers.Record, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []customers.Record
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode customers: %w", err)
		}
		return list, nil
	}

	var envelope struct {
		Customers []customers.Record `json:"customers"`
		Data      []customers.Record `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode customers: %w", err)
	}
	if envelope.Customers != nil {
		return envelope.Customers, nil
	}
	return envelope.Data, nil
}

// ==========================
// Notifications
// ==========================

// SubmitNotification posts the whole request in one call. Any 2xx body is
// interpreted by dispatch.ParseResponse; other failures are returned as
// errors for the dispatcher to report as transport failures.
func (c *Client) SubmitNotification(ctx context.Context, req models.NotificationRequest) (dispatch.Response, error) {
	raw, err := c.http.Do(ctx, http.MethodPost, notificationsPath, req)
	if err != nil {
		return nil, fmt.Errorf("api.SubmitNotification: %w", err)
	}
	return dispatch.ParseResponse(raw), nil
}

// ==========================
// Principals
// ==========================

type wirePrincipal struct {
	MongoID     string                 `json:"_id"`
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Username    string                 `json:"username"`
	Email       string                 `json:"email"`
	Permissions map[string]interface{} `json:"permissions"`
}

func principalPath(kind models.PrincipalKind, id string) (string, error) {
	if _, ok := permission.ForPrincipal(kind); !ok {
		return "", errors.NewInvalidPrincipalError(string(kind))
	}
	return fmt.Sprintf("/api/%ss/%s", kind, url.PathEscape(id)), nil
}

// GetPrincipal loads an admin or employee. Permission values other than a
// literal true are read as false.
func (c *Client) GetPrincipal(ctx context.Context, kind models.PrincipalKind, id string) (*models.Principal, error) {
	path, err := principalPath(kind, id)
	if err != nil {
		return nil, err
	}

	var w wirePrincipal
	if err := c.http.Get(ctx, path, &w); err != nil {
		return nil, fmt.Errorf("api.GetPrincipal: %w", err)
	}

	return &models.Principal{
		ID:          firstNonEmpty(w.MongoID, w.ID),
		Kind:        kind,
		Name:        firstNonEmpty(w.Name, w.Username),
		Email:       w.Email,
		Permissions: permission.FromLoose(w.Permissions),
	}, nil
}

// UpdatePrincipalPermissions persists the full catalog map for a principal,
// so every capability is written explicitly true or false.
func (c *Client) UpdatePrincipalPermissions(ctx context.Context, kind models.PrincipalKind, id string, perms permission.Map) error {
	path, err := principalPath(kind, id)
	if err != nil {
		return err
	}
	catalog, _ := permission.ForPrincipal(kind)

	body := map[string]interface{}{"permissions": permission.Normalize(perms, catalog)}
	if err := c.http.Put(ctx, path+"/permissions", body, nil); err != nil {
		return fmt.Errorf("api.UpdatePrincipalPermissions: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
