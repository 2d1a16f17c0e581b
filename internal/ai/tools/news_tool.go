package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sashabaranov/go-openai/jsonschema"
)

type NewsArgs struct {
	Query      string `json:"query"`
	NumResults int    `json:"num_results"`
}

// NewsTool searches recent articles through NewsAPI
type NewsTool struct {
	BaseTool
	client   *http.Client
	endpoint string
	apiKey   string
}

func NewNewsTool(opts Options) *NewsTool {
	return &NewsTool{
		BaseTool: BaseTool{
			ToolName:        "news_agent",
			ToolDescription: "Fetches the latest news articles for a given query.",
			ToolParameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"query":       {Type: jsonschema.String, Description: "The search term for news articles."},
					"num_results": {Type: jsonschema.Integer, Description: "Number of articles to return (1-20). Default is 5."},
				},
				Required: []string{"query"},
			},
			ToolDefaults: map[string]any{"num_results": 5},
		},
		client:   opts.httpClient(),
		endpoint: opts.APIs.NewsAPIURL,
		apiKey:   opts.APIs.NewsAPIKey,
	}
}

type newsResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Description string `json:"description"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// plainText strips markup that some publishers leave in descriptions
func plainText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return CleanString(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return CleanString(fragment)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func (t *NewsTool) Execute(ctx context.Context, args string) (string, error) {
	var p NewsArgs
	if err := decodeArgs(t.Name(), args, &p); err != nil {
		return "", err
	}
	if t.apiKey == "" {
		return "", errors.New("NEWS_API_KEY is not configured")
	}
	if p.NumResults < 1 || p.NumResults > 20 {
		return "", fmt.Errorf("num_results must be between 1 and 20, got %d", p.NumResults)
	}

	params := url.Values{
		"q":        {p.Query},
		"language": {"en"},
		"sortBy":   {"publishedAt"},
		"apiKey":   {t.apiKey},
		"pageSize": {strconv.Itoa(p.NumResults)},
	}

	var resp newsResponse
	if err := fetchJSON(ctx, t.client, t.endpoint, params, nil, &resp); err != nil {
		return "", err
	}
	if resp.Status != "ok" {
		return "", fmt.Errorf("newsapi error %s: %s", resp.Code, resp.Message)
	}
	if len(resp.Articles) == 0 {
		return fmt.Sprintf("No news articles found for %q.", p.Query), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n", p.Query)
	for i, article := range resp.Articles {
		if i >= p.NumResults {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(article.Title))
		if article.Source.Name != "" {
			fmt.Fprintf(&b, "   Source: %s\n", article.Source.Name)
		}
		if desc := plainText(article.Description); desc != "" {
			fmt.Fprintf(&b, "   %s\n", TruncateString(desc, 280))
		}
		fmt.Fprintf(&b, "   URL: %s\n", article.URL)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
