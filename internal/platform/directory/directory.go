package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
)

// ClinicAddress mirrors the address block returned by the clinic service.
type ClinicAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	ZipCode string `json:"zipCode"`
}

type clinicBody struct {
	Name          string         `json:"name"`
	Status        string         `json:"status"`
	ClinicAddress *ClinicAddress `json:"clinicAddress"`
}

// ClinicInfo is the result of a clinic lookup. Country is empty when the
// clinic service is not configured or returned no address.
type ClinicInfo struct {
	Exists  bool
	Name    string
	Country string
}

type Config struct {
	ClinicURL     string
	DepartmentURL string
	CacheSize     int
	CacheTTL      time.Duration
	Timeout       time.Duration
}

// Client looks up clinics and departments in their owning services. Both
// positive and negative answers are cached. An unconfigured base URL makes
// the corresponding lookup report "exists" without a network call.
type Client struct {
	clinicURL     string
	departmentURL string
	http          *http.Client
	clinics       *expirable.LRU[uuid.UUID, ClinicInfo]
	departments   *expirable.LRU[uuid.UUID, bool]
	logger        zerolog.Logger
}

func New(cfg Config, logger zerolog.Logger) *Client {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 512
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	c := &Client{
		clinicURL:     strings.TrimRight(cfg.ClinicURL, "/"),
		departmentURL: strings.TrimRight(cfg.DepartmentURL, "/"),
		http:          &http.Client{Timeout: cfg.Timeout},
		clinics:       expirable.NewLRU[uuid.UUID, ClinicInfo](cfg.CacheSize, nil, cfg.CacheTTL),
		departments:   expirable.NewLRU[uuid.UUID, bool](cfg.CacheSize, nil, cfg.CacheTTL),
		logger:        logger.With().Str("component", "directory").Logger(),
	}
	if c.clinicURL == "" {
		c.logger.Warn().Msg("clinic service url not set, clinic checks are skipped")
	}
	if c.departmentURL == "" {
		c.logger.Warn().Msg("department service url not set, department checks are skipped")
	}
	return c
}

// LookupClinic fetches the clinic and its address country.
func (c *Client) LookupClinic(ctx context.Context, id uuid.UUID) (ClinicInfo, error) {
	if c.clinicURL == "" {
		return ClinicInfo{Exists: true}, nil
	}
	if info, ok := c.clinics.Get(id); ok {
		return info, nil
	}

	var body clinicBody
	found, err := c.get(ctx, fmt.Sprintf("%s/api/Clinic/%s", c.clinicURL, id), &body)
	if err != nil {
		return ClinicInfo{}, err
	}

	info := ClinicInfo{Exists: found}
	if found {
		info.Name = body.Name
		if body.ClinicAddress != nil {
			info.Country = body.ClinicAddress.Country
		}
	}
	c.clinics.Add(id, info)
	return info, nil
}

// DepartmentExists reports whether the department service knows id.
func (c *Client) DepartmentExists(ctx context.Context, id uuid.UUID) (bool, error) {
	if c.departmentURL == "" {
		return true, nil
	}
	if ok, hit := c.departments.Get(id); hit {
		return ok, nil
	}

	found, err := c.get(ctx, fmt.Sprintf("%s/api/Department/%s", c.departmentURL, id), nil)
	if err != nil {
		return false, err
	}
	c.departments.Add(id, found)
	return found, nil
}

// get returns false for 404 and an error for other non-2xx responses, so
// transient upstream failures are never cached as "missing".
func (c *Client) get(ctx context.Context, url string, out interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("directory lookup %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.logger.Debug().Str("url", url).Msg("directory miss")
		return false, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return false, fmt.Errorf("directory lookup %s: unexpected status %d", url, resp.StatusCode)
	}

	if out == nil {
		return true, nil
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false, fmt.Errorf("read directory response: %w", err)
	}
	if len(data) == 0 {
		return true, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode directory response: %w", err)
	}
	return true, nil
}
