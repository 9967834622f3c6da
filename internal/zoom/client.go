// Package zoom provides the API client for the Zoom endpoints used by zoom-to-drive
package zoom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/meetops/zoom-to-drive/internal/logging"
)

// defaultPageSize is used for all paged list endpoints
const defaultPageSize = 300

// Client implements the Zoom API operations consumed by the transfer pipeline
type Client struct {
	apiClient      *AuthenticatedClient
	downloadClient *RetryHTTPClient
	auth           Authenticator
	baseURL        string
	pageDelay      time.Duration
}

// NewClient creates a new Zoom API client. List and detail calls go through
// the plain authenticated client (a failed page truncates its window, no
// retries); downloads go through the retry client.
func NewClient(apiClient *AuthenticatedClient, downloadClient *RetryHTTPClient, auth Authenticator, baseURL string, pageDelay time.Duration) *Client {
	return &Client{
		apiClient:      apiClient,
		downloadClient: downloadClient,
		auth:           auth,
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		pageDelay:      pageDelay,
	}
}

// ListMembers retrieves all account members using page-number pagination
func (c *Client) ListMembers(ctx context.Context) ([]Member, error) {
	var members []Member

	for pageNumber := 1; ; pageNumber++ {
		endpoint := fmt.Sprintf("%s/users?status=active&page_size=%d&page_number=%d",
			c.baseURL, defaultPageSize, pageNumber)

		var result ListUsersResponse
		if err := c.getJSON(ctx, endpoint, &result); err != nil {
			return nil, fmt.Errorf("failed to list members (page %d): %w", pageNumber, err)
		}

		members = append(members, result.Users...)

		if len(result.Users) == 0 || pageNumber >= result.PageCount {
			break
		}
		c.throttle()
	}

	return members, nil
}

// ListAllRecordings retrieves a member's cloud recordings over [from, to],
// splitting the range into windows the API accepts and paging each window.
// A failed page logs, truncates that window only and leaves already-collected
// recordings in the result: best-effort, partial-success.
func (c *Client) ListAllRecordings(ctx context.Context, userID string, from, to time.Time) RecordingsResult {
	var result RecordingsResult

	for _, window := range splitWindows(from, to, maxWindowDays) {
		for pageNumber := 1; ; pageNumber++ {
			endpoint := fmt.Sprintf("%s/users/%s/recordings?from=%s&to=%s&page_size=%d&page_number=%d",
				c.baseURL,
				url.PathEscape(userID),
				window.From.Format("2006-01-02"),
				window.To.Format("2006-01-02"),
				defaultPageSize,
				pageNumber)

			var page ListRecordingsResponse
			if err := c.getJSON(ctx, endpoint, &page); err != nil {
				logging.Warn("Recording fetch failed for %s window %s..%s page %d: %v",
					userID, window.From.Format("2006-01-02"), window.To.Format("2006-01-02"), pageNumber, err)
				result.Partial = true
				result.Errors = append(result.Errors, err)
				break
			}

			result.Recordings = append(result.Recordings, page.Meetings...)

			if len(page.Meetings) == 0 || pageNumber >= page.PageCount {
				break
			}
			c.throttle()
		}
	}

	return result
}

// ListAllSummaries retrieves account-wide AI meeting summaries over [from, to]
// using windowed, token-based pagination with the same partial-success policy
// as ListAllRecordings.
func (c *Client) ListAllSummaries(ctx context.Context, from, to time.Time) SummariesResult {
	var result SummariesResult

	for _, window := range splitWindows(from, to, maxWindowDays) {
		nextPageToken := ""
		for {
			params := url.Values{}
			params.Set("from", window.From.UTC().Format(time.RFC3339))
			params.Set("to", window.To.UTC().Add(24*time.Hour-time.Second).Format(time.RFC3339))
			params.Set("page_size", strconv.Itoa(defaultPageSize))
			if nextPageToken != "" {
				params.Set("next_page_token", nextPageToken)
			}
			endpoint := fmt.Sprintf("%s/meetings/meeting_summaries?%s", c.baseURL, params.Encode())

			var page ListSummariesResponse
			if err := c.getJSON(ctx, endpoint, &page); err != nil {
				logging.Warn("Summary fetch failed for window %s..%s: %v",
					window.From.Format("2006-01-02"), window.To.Format("2006-01-02"), err)
				result.Partial = true
				result.Errors = append(result.Errors, err)
				break
			}

			result.Summaries = append(result.Summaries, page.Summaries...)

			if page.NextPageToken == "" || len(page.Summaries) == 0 {
				break
			}
			nextPageToken = page.NextPageToken
			c.throttle()
		}
	}

	return result
}

// GetMeetingSummary retrieves the full AI summary content for one session
func (c *Client) GetMeetingSummary(ctx context.Context, meetingUUID string) (*SummaryDetail, error) {
	// Session keys may contain slashes; query-escape to keep them in one path segment
	endpoint := fmt.Sprintf("%s/meetings/%s/meeting_summary", c.baseURL, url.QueryEscape(meetingUUID))

	var detail SummaryDetail
	if err := c.getJSON(ctx, endpoint, &detail); err != nil {
		return nil, fmt.Errorf("failed to get meeting summary for %s: %w", meetingUUID, err)
	}

	return &detail, nil
}

// DeleteMeetingRecordings moves a meeting's cloud recordings to trash at the
// source. Success is 200 or 204.
func (c *Client) DeleteMeetingRecordings(ctx context.Context, meetingUUID string) error {
	endpoint := fmt.Sprintf("%s/meetings/%s/recordings?action=trash", c.baseURL, url.QueryEscape(meetingUUID))

	req, err := http.NewRequestWithContext(ctx, "DELETE", endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}

	resp, err := c.apiClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("delete failed with status %d: %s", resp.StatusCode, resp.Status)
	}

	return nil
}

// DownloadFile downloads a recording file from the provided download URL,
// streaming the content into writer. The bearer token is appended as a query
// parameter; download URLs may redirect.
func (c *Client) DownloadFile(ctx context.Context, downloadURL string, writer io.Writer) error {
	token, err := c.auth.GetAccessToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token for download: %w", err)
	}

	parsed, err := url.Parse(downloadURL)
	if err != nil {
		return fmt.Errorf("invalid download URL: %w", err)
	}
	query := parsed.Query()
	query.Set("access_token", token.AccessToken)
	parsed.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", parsed.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download failed with status %d: %s", resp.StatusCode, resp.Status)
	}

	if _, err := io.Copy(writer, resp.Body); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}

	return nil
}

// getJSON performs an authenticated GET and decodes the JSON response
func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.apiClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		if apiErr := parseAPIError(resp.StatusCode, body); apiErr != nil {
			return apiErr
		}
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// throttle enforces the fixed inter-page delay
func (c *Client) throttle() {
	if c.pageDelay > 0 {
		time.Sleep(c.pageDelay)
	}
}
