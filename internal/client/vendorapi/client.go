// Package vendorapi is a client for the upstream vendor REST API.
package vendorapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"vendordesk/internal/domain"
)

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 64 << 10

// Client performs authenticated calls against the vendor API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// New builds a Client. A zero timeout leaves the transport default in place.
func New(baseURL string, timeout time.Duration, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type ordersResponse struct {
	Orders []domain.Order `json:"orders"`
}

type orderResponse struct {
	Order domain.Order `json:"order"`
}

type vendorResponse struct {
	Vendor domain.Vendor `json:"vendor"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// VendorOrders lists the orders attributable to vendorID.
func (c *Client) VendorOrders(ctx context.Context, token, vendorID string) ([]domain.Order, error) {
	var out ordersResponse
	path := "/api/orders/vendor/" + url.PathEscape(vendorID)
	if err := c.doJSON(ctx, "fetch orders", http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	for i := range out.Orders {
		normalizeOrder(&out.Orders[i])
	}
	return out.Orders, nil
}

// UpdateOrderStatus changes an order's status and returns the server's view of the order.
func (c *Client) UpdateOrderStatus(ctx context.Context, token, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	var out orderResponse
	path := "/api/orders/" + url.PathEscape(orderID) + "/status"
	body := map[string]string{"status": string(status)}
	if err := c.doJSON(ctx, "update order status", http.MethodPut, path, token, body, &out); err != nil {
		return nil, err
	}
	normalizeOrder(&out.Order)
	return &out.Order, nil
}

// Profile fetches the authenticated vendor's record.
func (c *Client) Profile(ctx context.Context, token string) (*domain.Vendor, error) {
	var out vendorResponse
	if err := c.doJSON(ctx, "fetch profile", http.MethodGet, "/api/vendor/profile", token, nil, &out); err != nil {
		return nil, err
	}
	return &out.Vendor, nil
}

// UpdateProfile submits the full profile and an optional shop image as one multipart request.
func (c *Client) UpdateProfile(ctx context.Context, token string, in domain.ProfileUpdate, image *domain.Upload) (*domain.Vendor, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("data", string(payload)); err != nil {
		return nil, fmt.Errorf("write profile field: %w", err)
	}
	if image != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="shopImage"; filename=%q`, image.Filename))
		ct := image.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("create image part: %w", err)
		}
		if _, err := part.Write(image.Data); err != nil {
			return nil, fmt.Errorf("write image part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, "/api/vendor/profile", token, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out vendorResponse
	if err := c.do(req, "update profile", &out); err != nil {
		return nil, err
	}
	return &out.Vendor, nil
}

// SetOnline sets the vendor's online flag and returns the updated record.
func (c *Client) SetOnline(ctx context.Context, token string, online bool) (*domain.Vendor, error) {
	var out vendorResponse
	body := map[string]bool{"isOnline": online}
	if err := c.doJSON(ctx, "set online status", http.MethodPatch, "/api/vendor/status", token, body, &out); err != nil {
		return nil, err
	}
	return &out.Vendor, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path, token string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		r = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, token, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, op, out)
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, body io.Reader) (*http.Request, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.ErrUnauthenticated
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, op string, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Printf("vendorapi: %s method=%s path=%s error=%v", op, req.Method, req.URL.Path, err)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	c.logger.Printf("vendorapi: %s method=%s path=%s status=%d duration=%s", op, req.Method, req.URL.Path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return remoteError(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func remoteError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := ""
	var body errorResponse
	if err := json.Unmarshal(raw, &body); err == nil {
		msg = body.Message
		if msg == "" {
			msg = body.Error
		}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", domain.ErrUnauthenticated, &domain.RemoteError{Op: op, StatusCode: resp.StatusCode, Message: msg})
	}
	return &domain.RemoteError{Op: op, StatusCode: resp.StatusCode, Message: strings.TrimSpace(msg)}
}

func normalizeOrder(o *domain.Order) {
	if st, ok := domain.ParseOrderStatus(string(o.Status)); ok {
		o.Status = st
	}
}
