package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const wikipediaAPIURL = "https://en.wikipedia.org/w/api.php"

// BiographyLookup returns a short factual description of a named person or
// subject. It is only ever consulted while building a character system
// prompt.
type BiographyLookup interface {
	Lookup(ctx context.Context, name string, sentences int) (string, error)
}

// WikipediaClient implements BiographyLookup against the MediaWiki API.
type WikipediaClient struct {
	client  *http.Client
	baseURL string
}

// NewWikipediaClient creates a lookup client. A nil client gets a default
// one with a short deadline; biography lookups are small requests.
func NewWikipediaClient(client *http.Client) *WikipediaClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WikipediaClient{client: client, baseURL: wikipediaAPIURL}
}

// Search returns the titles of the top n articles matching the query.
func (c *WikipediaClient) Search(ctx context.Context, query string, n int) ([]string, error) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"format":   {"json"},
		"srlimit":  {strconv.Itoa(n)},
		"srsearch": {query},
		"srwhat":   {"text"},
		"srprop":   {""},
	}

	var result struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := c.get(ctx, params, &result); err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(result.Query.Search))
	for _, hit := range result.Query.Search {
		titles = append(titles, hit.Title)
	}
	return titles, nil
}

// Lookup searches for the best-matching article and returns the first
// sentences of its plain-text extract.
func (c *WikipediaClient) Lookup(ctx context.Context, name string, sentences int) (string, error) {
	titles, err := c.Search(ctx, name, 1)
	if err != nil {
		return "", err
	}
	if len(titles) == 0 {
		return "", fmt.Errorf("no article found for %q", name)
	}

	params := url.Values{
		"action":        {"query"},
		"prop":          {"extracts"},
		"exsentences":   {strconv.Itoa(sentences)},
		"exlimit":       {"1"},
		"explaintext":   {"1"},
		"formatversion": {"2"},
		"format":        {"json"},
		"titles":        {titles[0]},
	}

	var result struct {
		Query struct {
			Pages []struct {
				Extract string `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := c.get(ctx, params, &result); err != nil {
		return "", err
	}
	if len(result.Query.Pages) == 0 {
		return "", fmt.Errorf("no extract found for %q", titles[0])
	}
	return result.Query.Pages[0].Extract, nil
}

func (c *WikipediaClient) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build lookup request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lookup request failed: %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read lookup response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode lookup response: %w", err)
	}
	return nil
}
