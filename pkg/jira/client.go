package jira

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a thin REST v3 client for the issue tracker: issue search for
// ingestion, priority lookup, and ticket creation from conversations.
type Client struct {
	baseURL  string
	user     string
	apiToken string
	client   *http.Client
}

func NewClient(baseURL, user, apiToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		user:     user,
		apiToken: apiToken,
		client:   &http.Client{Timeout: timeout},
	}
}

// Issue is the subset of tracker issue fields the system consumes.
type Issue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary     string          `json:"summary"`
		Description json.RawMessage `json:"description"`
		Assignee    *struct {
			DisplayName string `json:"displayName"`
			AccountID   string `json:"accountId"`
		} `json:"assignee"`
		Status struct {
			Name string `json:"name"`
		} `json:"status"`
		Created        string `json:"created"`
		Updated        string `json:"updated"`
		DueDate        string `json:"duedate"`
		ResolutionDate string `json:"resolutiondate"`
	} `json:"fields"`
}

// Priority is one tracker priority level.
type Priority struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SearchIssues pages through all issues of a project with the given fields.
func (c *Client) SearchIssues(ctx context.Context, projectKey string, fields []string) ([]Issue, error) {
	var res struct {
		Issues []Issue `json:"issues"`
	}
	params := url.Values{
		"jql":        {fmt.Sprintf("project = %s", projectKey)},
		"fields":     {strings.Join(fields, ",")},
		"maxResults": {"100"},
		"startAt":    {"0"},
	}
	if err := c.get(ctx, "/rest/api/3/search/jql", params, &res); err != nil {
		return nil, err
	}
	return res.Issues, nil
}

// Priorities returns all priority levels defined in the tracker.
func (c *Client) Priorities(ctx context.Context) ([]Priority, error) {
	var priorities []Priority
	if err := c.get(ctx, "/rest/api/3/priority", nil, &priorities); err != nil {
		return nil, err
	}
	return priorities, nil
}

// Projects lists the tracker projects visible to the configured account.
func (c *Client) Projects(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/rest/api/3/project", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// CreateIssueInput describes a ticket to create from a conversation.
type CreateIssueInput struct {
	ProjectKey        string
	Title             string
	Description       string
	PriorityID        string
	IssueType         string
	Labels            []string
	DueDate           string // YYYY-MM-DD
	AssigneeAccountID string
}

// CreatedIssue is the tracker's reply to an issue creation.
type CreatedIssue struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

// CreateIssue creates a ticket, wrapping the plain-text description in the
// tracker's document format.
func (c *Client) CreateIssue(ctx context.Context, in CreateIssueInput) (*CreatedIssue, error) {
	if in.IssueType == "" {
		in.IssueType = "Task"
	}

	fields := map[string]any{
		"project":     map[string]any{"key": in.ProjectKey},
		"summary":     in.Title,
		"issuetype":   map[string]any{"name": in.IssueType},
		"description": adfParagraph(in.Description),
	}
	if in.PriorityID != "" {
		fields["priority"] = map[string]any{"id": in.PriorityID}
	}
	if len(in.Labels) > 0 {
		fields["labels"] = in.Labels
	}
	if in.DueDate != "" {
		fields["duedate"] = in.DueDate
	}
	if in.AssigneeAccountID != "" {
		fields["assignee"] = map[string]any{"accountId": in.AssigneeAccountID}
	}

	var created CreatedIssue
	if err := c.post(ctx, "/rest/api/3/issue", map[string]any{"fields": fields}, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// AddComment appends a comment to an issue.
func (c *Client) AddComment(ctx context.Context, issueKey, comment string) error {
	path := fmt.Sprintf("/rest/api/3/issue/%s/comment", issueKey)
	return c.post(ctx, path, map[string]any{"body": adfParagraph(comment)}, nil)
}

// Transition is one workflow move available on an issue.
type Transition struct {
	ID string `json:"id"`
	To struct {
		Name string `json:"name"`
	} `json:"to"`
}

// TransitionIssue moves an issue to the workflow status whose name matches,
// case-insensitive. Unknown status names return an error without mutating.
func (c *Client) TransitionIssue(ctx context.Context, issueKey, statusName string) error {
	path := fmt.Sprintf("/rest/api/3/issue/%s/transitions", issueKey)

	var available struct {
		Transitions []Transition `json:"transitions"`
	}
	if err := c.get(ctx, path, nil, &available); err != nil {
		return err
	}

	for _, t := range available.Transitions {
		if strings.EqualFold(t.To.Name, statusName) {
			return c.post(ctx, path, map[string]any{"transition": map[string]any{"id": t.ID}}, nil)
		}
	}
	return fmt.Errorf("no transition to status %q on %s", statusName, issueKey)
}

// adfParagraph wraps plain text in the minimal Atlassian Document Format
// structure the v3 API requires.
func adfParagraph(text string) map[string]any {
	return map[string]any{
		"type":    "doc",
		"version": 1,
		"content": []map[string]any{{
			"type": "paragraph",
			"content": []map[string]any{{
				"type": "text",
				"text": text,
			}},
		}},
	}
}

// DescriptionText flattens an ADF description (or a legacy plain string) into
// plain text for indexing.
func DescriptionText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}

	var doc struct {
		Content []struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}

	var parts []string
	for _, block := range doc.Content {
		for _, node := range block.Content {
			if node.Type == "text" && node.Text != "" {
				parts = append(parts, node.Text)
			}
		}
	}
	return strings.Join(parts, " ")
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	return c.do(ctx, http.MethodGet, endpoint, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.baseURL+path, encoded, out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+
		base64.StdEncoding.EncodeToString([]byte(c.user+":"+c.apiToken)))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("tracker request failed: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("tracker error %d: %s", res.StatusCode, string(raw))
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode tracker response: %w", err)
		}
	}
	return nil
}
