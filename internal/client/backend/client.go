// Package backend клиент хостингового бэкенда Kuitter: аутентификация,
// REST-доступ к хранилищу записей и вызов серверных функций.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrFunctionFailed серверная функция вернула ошибку в поле error.
	ErrFunctionFailed = errors.New("function failed")
	// ErrUnexpectedStatus бэкенд ответил кодом вне 2xx без описания ошибки.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrNoSession запрос требует сессию, а её нет.
	ErrNoSession = errors.New("no session")
)

const maxErrorBody = 4 << 10

// TokenSource отдаёт текущий access-токен.
type TokenSource interface {
	AccessToken() string
}

// Client HTTP-клиент бэкенда.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewClient создаёт клиент. timeout ограничивает каждый запрос целиком.
func NewClient(baseURL, anonKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, token string, body any) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
		rd = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

// apiError поля ошибок, которые встречаются в ответах бэкенда.
type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e apiError) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// do выполняет запрос и декодирует успешный ответ в out, если out не nil.
// Ответ вне 2xx превращается в ErrFunctionFailed с текстом ошибки или в ErrUnexpectedStatus.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.text() != "" {
			return &StatusError{Code: resp.StatusCode, Message: apiErr.text(), err: ErrFunctionFailed}
		}
		return &StatusError{Code: resp.StatusCode, Message: resp.Status, err: ErrUnexpectedStatus}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// StatusError ответ бэкенда вне 2xx.
type StatusError struct {
	Code    int
	Message string
	err     error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.err, e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return e.err }
