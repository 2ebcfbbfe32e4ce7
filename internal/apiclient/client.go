// Package apiclient talks to a fabricrest server. Every chaincode call takes
// the Session it runs under, so a client can serve several users at once.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrUnauthorized is returned when the server rejects the session token.
var ErrUnauthorized = errors.New("unauthorized")

// User identifies an org member.
type User struct {
	Username string `json:"username"`
	OrgName  string `json:"orgName"`
}

// Session carries the bearer token of a signed-in user.
type Session struct {
	Token string
}

// AuthResponse is the reply of the user routes. Message is either a text
// or, after a login, an object holding the token.
type AuthResponse struct {
	Success bool            `json:"success"`
	Message json.RawMessage `json:"message"`
	Token   string          `json:"token,omitempty"`
}

// Text returns the message when it is a string.
func (r *AuthResponse) Text() string {
	var s string
	if err := json.Unmarshal(r.Message, &s); err != nil {
		return string(r.Message)
	}
	return s
}

// Session returns the session the response grants, if any.
func (r *AuthResponse) Session() (Session, bool) {
	if !r.Success {
		return Session{}, false
	}
	if r.Token != "" {
		return Session{Token: r.Token}, true
	}
	var msg struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(r.Message, &msg); err == nil && msg.Token != "" {
		return Session{Token: msg.Token}, true
	}
	return Session{}, false
}

// Envelope is the reply of the chaincode and ledger routes.
type Envelope struct {
	Result    json.RawMessage `json:"result"`
	Error     *string         `json:"error"`
	ErrorData *string         `json:"errorData"`
}

// Failed reports whether the envelope carries an error.
func (e *Envelope) Failed() bool {
	return e.Error != nil
}

// Err converts a failed envelope into an error.
func (e *Envelope) Err() error {
	if !e.Failed() {
		return nil
	}
	data := ""
	if e.ErrorData != nil {
		data = *e.ErrorData
	}
	return errors.Errorf("%s: %s", *e.Error, data)
}

// InvokeRequest submits a transaction.
type InvokeRequest struct {
	ChannelName   string
	ChaincodeName string
	Fcn           string
	Args          []string
	Peers         []string
	Transient     map[string]interface{}
}

// QueryRequest evaluates a transaction. Args is the JSON array text sent
// in the query string.
type QueryRequest struct {
	ChannelName   string
	ChaincodeName string
	Fcn           string
	Args          string
	Peer          string
}

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register enrolls a user. A successful response carries a session.
func (c *Client) Register(ctx context.Context, user User) (*AuthResponse, error) {
	return c.auth(ctx, "/users", user)
}

// Login signs in a user the server already enrolled.
func (c *Client) Login(ctx context.Context, user User) (*AuthResponse, error) {
	return c.auth(ctx, "/users/login", user)
}

func (c *Client) auth(ctx context.Context, path string, user User) (*AuthResponse, error) {
	resp := new(AuthResponse)
	if err := c.do(ctx, http.MethodPost, path, nil, user, nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// InvokeChaincode submits a transaction as the session's user.
func (c *Client) InvokeChaincode(ctx context.Context, session Session, req InvokeRequest) (*Envelope, error) {
	body := struct {
		Fcn       string                 `json:"fcn"`
		Args      []string               `json:"args"`
		Peers     []string               `json:"peers,omitempty"`
		Transient map[string]interface{} `json:"transient,omitempty"`
	}{req.Fcn, req.Args, req.Peers, req.Transient}
	if body.Args == nil {
		body.Args = []string{}
	}

	env := new(Envelope)
	path := chaincodePath("", req.ChannelName, req.ChaincodeName)
	if err := c.do(ctx, http.MethodPost, path, nil, body, &session, env); err != nil {
		return nil, err
	}
	return env, nil
}

// QueryChaincode evaluates a transaction as the session's user.
func (c *Client) QueryChaincode(ctx context.Context, session Session, req QueryRequest) (*Envelope, error) {
	query := url.Values{"fcn": {req.Fcn}, "args": {req.Args}}
	if req.Peer != "" {
		query.Set("peer", req.Peer)
	}

	env := new(Envelope)
	path := chaincodePath("", req.ChannelName, req.ChaincodeName)
	if err := c.do(ctx, http.MethodGet, path, query, nil, &session, env); err != nil {
		return nil, err
	}
	return env, nil
}

// QueryQSCC runs a ledger metadata query as the session's user.
func (c *Client) QueryQSCC(ctx context.Context, session Session, req QueryRequest) (*Envelope, error) {
	query := url.Values{"fcn": {req.Fcn}, "args": {req.Args}}

	env := new(Envelope)
	path := chaincodePath("/qscc", req.ChannelName, req.ChaincodeName)
	if err := c.do(ctx, http.MethodGet, path, query, nil, &session, env); err != nil {
		return nil, err
	}
	return env, nil
}

func chaincodePath(prefix, channel, chaincode string) string {
	return fmt.Sprintf("%s/channels/%s/chaincodes/%s", prefix, url.PathEscape(channel), url.PathEscape(chaincode))
}

// do sends the request and decodes the reply into out. Error statuses are
// still decoded when the body has the expected shape.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, session *Session, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode request")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return errors.Wrapf(err, "failed to build request for %s", path)
	}
	req.Header.Set("Content-Type", "application/json")
	if session != nil && session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+session.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "failed to read response of %s", path)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return errors.Wrapf(ErrUnauthorized, "%s %s", method, path)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Errorf("HTTP error! status: %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}
