package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrMissingConfig is returned when the Jira connection settings are
// incomplete. The bot still starts; Jira-backed features just fail cleanly.
var ErrMissingConfig = errors.New("jira configuration incomplete")

const (
	searchPageSize = 100
	// Hard cap on issues fetched by a paginated search, so a runaway JQL
	// cannot pull the whole project into memory.
	searchMaxTotal = 1000

	jqlDateTime = "2006-01-02 15:04"
	jqlDate     = "2006-01-02"
)

type Config struct {
	Server   string // base URL, no trailing slash
	Username string
	APIToken string
	Project  string
	BugJQL   string // optional override for the open-bugs query

	Timeout    time.Duration // per-request HTTP timeout
	RatePerSec float64       // client-side request rate limit
}

// Client is a minimal Jira Cloud REST v2 client: basic auth, JQL search with
// pagination, and a rate limiter so refresh bursts do not trip the API.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) (*Client, error) {
	var missing []string
	if strings.TrimSpace(cfg.Server) == "" {
		missing = append(missing, "JIRA_SERVER")
	}
	if strings.TrimSpace(cfg.Username) == "" {
		missing = append(missing, "JIRA_USERNAME")
	}
	if strings.TrimSpace(cfg.APIToken) == "" {
		missing = append(missing, "JIRA_API_TOKEN")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 2
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		log:     log,
	}, nil
}

// Myself verifies connectivity and credentials.
func (c *Client) Myself(ctx context.Context) (User, error) {
	var out struct {
		DisplayName  string `json:"displayName"`
		EmailAddress string `json:"emailAddress"`
	}
	if err := c.get(ctx, "/rest/api/2/myself", nil, &out); err != nil {
		return User{}, err
	}
	return User{DisplayName: out.DisplayName, Email: out.EmailAddress}, nil
}

// SearchOpenBugs fetches the current open-bug list. A custom JQL override
// takes precedence; otherwise active bugs of the configured project are
// returned, with a simpler fallback query when the primary search fails
// (some Jira instances reject ORDER BY on missing fields).
func (c *Client) SearchOpenBugs(ctx context.Context) ([]Issue, error) {
	if jql := strings.TrimSpace(c.cfg.BugJQL); jql != "" {
		return c.searchPage(ctx, jql, 0, searchPageSize)
	}
	if strings.TrimSpace(c.cfg.Project) == "" {
		return nil, fmt.Errorf("%w: missing JIRA_PROJECT", ErrMissingConfig)
	}

	issues, err := c.searchPage(ctx, openBugsJQL(c.cfg.Project), 0, searchPageSize)
	if err == nil {
		return issues, nil
	}
	c.log.Warn().Err(err).Msg("bug search failed, retrying with fallback query")
	return c.searchPage(ctx, fallbackBugsJQL(c.cfg.Project), 0, 50)
}

// SearchCompleted returns issues whose status changed to Done inside
// [start, end). Timestamps are rendered in their own location, which the
// caller sets to the civil timezone.
func (c *Client) SearchCompleted(ctx context.Context, start, end time.Time) ([]Issue, error) {
	if strings.TrimSpace(c.cfg.Project) == "" {
		return nil, fmt.Errorf("%w: missing JIRA_PROJECT", ErrMissingConfig)
	}
	jql := completedJQL(c.cfg.Project, start, end)
	return c.searchAll(ctx, jql)
}

// SearchResolvedBetween returns all issues resolved in [start, end],
// paginated and capped.
func (c *Client) SearchResolvedBetween(ctx context.Context, start, end time.Time) ([]Issue, error) {
	if strings.TrimSpace(c.cfg.Project) == "" {
		return nil, fmt.Errorf("%w: missing JIRA_PROJECT", ErrMissingConfig)
	}
	jql := resolvedRangeJQL(c.cfg.Project, start, end)
	return c.searchAll(ctx, jql)
}

// searchAll pages through a JQL search until a short page or the hard cap.
func (c *Client) searchAll(ctx context.Context, jql string) ([]Issue, error) {
	var all []Issue
	startAt := 0
	for {
		page, err := c.searchPage(ctx, jql, startAt, searchPageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		if len(page) < searchPageSize {
			break
		}
		startAt += len(page)
		if len(all) >= searchMaxTotal {
			c.log.Warn().Int("cap", searchMaxTotal).Str("jql", jql).Msg("search hit result cap, truncating")
			all = all[:searchMaxTotal]
			break
		}
	}
	return all, nil
}

func (c *Client) searchPage(ctx context.Context, jql string, startAt, maxResults int) ([]Issue, error) {
	q := url.Values{}
	q.Set("jql", jql)
	q.Set("startAt", strconv.Itoa(startAt))
	q.Set("maxResults", strconv.Itoa(maxResults))
	q.Set("fields", "summary,status,issuetype,assignee,resolutiondate")

	var out searchResponse
	if err := c.get(ctx, "/rest/api/2/search", q, &out); err != nil {
		return nil, err
	}

	issues := make([]Issue, 0, len(out.Issues))
	for _, raw := range out.Issues {
		issues = append(issues, raw.toIssue())
	}
	return issues, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.cfg.Server + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.APIToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("jira %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("jira %s: http %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type searchResponse struct {
	Issues []rawIssue `json:"issues"`
	Total  int        `json:"total"`
}

type rawIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
		Status  struct {
			Name string `json:"name"`
		} `json:"status"`
		IssueType struct {
			Name string `json:"name"`
		} `json:"issuetype"`
		Assignee *struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
		ResolutionDate string `json:"resolutiondate"`
	} `json:"fields"`
}

func (r rawIssue) toIssue() Issue {
	is := Issue{
		Key:     r.Key,
		Summary: r.Fields.Summary,
		Status:  r.Fields.Status.Name,
		Type:    r.Fields.IssueType.Name,
	}
	if r.Fields.Assignee != nil {
		is.Assignee = r.Fields.Assignee.DisplayName
	}
	if r.Fields.ResolutionDate != "" {
		// Jira renders resolutiondate as "2006-01-02T15:04:05.000-0700".
		if t, err := time.Parse("2006-01-02T15:04:05.000-0700", r.Fields.ResolutionDate); err == nil {
			is.Resolved = t
		}
	}
	return is
}
