// Package unisphere is the REST client for the Unisphere for PowerMax
// management endpoint. It is the only process boundary of this tool: host
// state is fetched from it on every run and mutations go through it.
package unisphere

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/avolkov/unihost/internal/flags"
)

// ErrNotFound is returned by GetHost when no host with the given name
// exists on the array. It is a valid state, not a failure.
var ErrNotFound = errors.New("host not found")

// minSupportedMajor is the oldest Unisphere major version the REST paths
// used here are known to work against.
const minSupportedMajor = 9

// Params carries the connection settings for a Unisphere endpoint.
type Params struct {
	Host       string
	Port       int
	Username   string
	Password   string
	Serial     string // symmetrix serial number, scopes every host call
	APIVersion string // REST path version segment, e.g. "100"
	VerifyCert bool
	Timeout    time.Duration
	RateLimit  float64 // requests per second towards the endpoint
}

// Client talks to one Unisphere endpoint for one array.
type Client struct {
	base       string
	serial     string
	apiVersion string
	username   string
	password   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Unisphere client. The connection is not probed until
// Connect is called.
func NewClient(p Params) *Client {
	if p.Port == 0 {
		p.Port = 8443
	}
	if p.Timeout == 0 {
		p.Timeout = 120 * time.Second
	}
	if p.APIVersion == "" {
		p.APIVersion = "100"
	}
	if p.RateLimit == 0 {
		p.RateLimit = 10.0
	}

	// Arrays commonly ship self-signed certs; verification is opt-in.
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !p.VerifyCert},
	}

	return &Client{
		base:       fmt.Sprintf("https://%s:%d/univmax/restapi", p.Host, p.Port),
		serial:     p.Serial,
		apiVersion: p.APIVersion,
		username:   p.Username,
		password:   p.Password,
		httpClient: &http.Client{
			Timeout:   p.Timeout,
			Transport: transport,
		},
		limiter: rate.NewLimiter(rate.Limit(p.RateLimit), int(p.RateLimit)),
	}
}

// Connect probes the endpoint and rejects Unisphere versions older than the
// supported major version.
func (c *Client) Connect(ctx context.Context) error {
	version, err := c.Version(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to unisphere: %w", err)
	}

	major, err := majorVersion(version)
	if err != nil {
		return fmt.Errorf("unisphere reported unparsable version %q: %w", version, err)
	}
	if major < minSupportedMajor {
		return fmt.Errorf("unisphere version %s is not supported, need V%d or newer",
			version, minSupportedMajor)
	}

	log.Info().Str("endpoint", c.base).Str("version", version).Msg("Connected to Unisphere")
	return nil
}

// Close releases the client's connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Version returns the Unisphere version string, e.g. "V10.0.1.5".
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.request(ctx, http.MethodGet, c.base+"/version", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.responseError("get version", "", resp)
	}

	var out struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Version, nil
}

func majorVersion(version string) (int, error) {
	v := strings.TrimPrefix(strings.TrimSpace(version), "V")
	head, _, _ := strings.Cut(v, ".")
	return strconv.Atoi(head)
}

func (c *Client) hostURL(name string) string {
	url := fmt.Sprintf("%s/%s/sloprovisioning/symmetrix/%s/host",
		c.base, c.apiVersion, c.serial)
	if name != "" {
		url += "/" + name
	}
	return url
}

// request sends one rate-limited request with basic auth and an optional
// JSON body.
func (c *Client) request(ctx context.Context, method, url string, body any) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

// responseError turns a non-2xx response into an error carrying the
// Unisphere message when one is present.
func (c *Client) responseError(op, host string, resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	msg := strings.TrimSpace(string(raw))
	var apiErr apiError
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
		msg = apiErr.Message
	}

	if host != "" {
		return fmt.Errorf("%s %q: unisphere returned %d: %s", op, host, resp.StatusCode, msg)
	}
	return fmt.Errorf("%s: unisphere returned %d: %s", op, resp.StatusCode, msg)
}

// GetHost fetches a host by name. Returns ErrNotFound when the array has no
// such host.
func (c *Client) GetHost(ctx context.Context, name string) (*Host, error) {
	resp, err := c.request(ctx, http.MethodGet, c.hostURL(name), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.responseError("get host", name, resp)
	}

	var host Host
	if err := json.NewDecoder(resp.Body).Decode(&host); err != nil {
		return nil, err
	}
	return &host, nil
}

// CreateHost creates a host with the given initiators and flag set. Both
// are optional: an empty host with array-default flags is valid.
func (c *Client) CreateHost(ctx context.Context, name string, initiators []string, hostFlags *flags.Set) error {
	param := createHostParam{
		HostID:      name,
		InitiatorID: initiators,
	}
	if hostFlags != nil {
		param.HostFlags = flagsPayload(*hostFlags)
	}

	resp, err := c.request(ctx, http.MethodPost, c.hostURL(""), param)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return c.responseError("create host", name, resp)
	}

	log.Debug().Str("host", name).Int("initiators", len(initiators)).Msg("Host created")
	return nil
}

func (c *Client) modify(ctx context.Context, op, name string, action editHostAction) error {
	resp, err := c.request(ctx, http.MethodPut, c.hostURL(name), editHostParam{EditHostAction: action})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.responseError(op, name, resp)
	}
	return nil
}

// AddInitiators adds initiators to an existing host.
func (c *Client) AddInitiators(ctx context.Context, name string, ids []string) error {
	return c.modify(ctx, "add initiators to host", name, editHostAction{
		AddInitiator: &initiatorParam{Initiator: ids},
	})
}

// RemoveInitiators removes initiators from an existing host.
func (c *Client) RemoveInitiators(ctx context.Context, name string, ids []string) error {
	return c.modify(ctx, "remove initiators from host", name, editHostAction{
		RemoveInitiator: &initiatorParam{Initiator: ids},
	})
}

// SetHostFlags replaces the full flag set of a host.
func (c *Client) SetHostFlags(ctx context.Context, name string, hostFlags flags.Set) error {
	return c.modify(ctx, "set host flags", name, editHostAction{
		SetHostFlags: &hostFlagsParam{HostFlags: flagsPayload(hostFlags)},
	})
}

// RenameHost renames a host. Names are case sensitive on the array.
func (c *Client) RenameHost(ctx context.Context, name, newName string) error {
	return c.modify(ctx, "rename host", name, editHostAction{
		Rename: &renameParam{NewHostName: newName},
	})
}

// DeleteHost deletes a host. The array rejects deletion while the host is
// referenced by a masking view; that surfaces here as an error.
func (c *Client) DeleteHost(ctx context.Context, name string) error {
	resp, err := c.request(ctx, http.MethodDelete, c.hostURL(name), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.responseError("delete host", name, resp)
	}

	log.Debug().Str("host", name).Msg("Host deleted")
	return nil
}
