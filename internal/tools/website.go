package tools

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

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/google/jsonschema-go/jsonschema"
)

// maxPageBytes bounds how much of a page is downloaded.
const maxPageBytes = 2 << 20

// ReadWebsiteInput is the argument object for the read_website tool.
type ReadWebsiteInput struct {
	URL string `json:"url" jsonschema_description:"The URL of the page to read (http or https)"`
}

// NewReadWebsite builds the read_website tool. Pages are reduced to
// readable article text; pages readability cannot parse fall back to
// the stripped text of the document body.
func NewReadWebsite(client *http.Client) (Tool, error) {
	schema, err := jsonschema.For[ReadWebsiteInput](nil)
	if err != nil {
		return Tool{}, fmt.Errorf("schema for read_website: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	return Tool{
		Name:        "read_website",
		Description: "Fetch a web page and return its readable text content.",
		Schema:      schema,
		Run: func(ctx context.Context, args json.RawMessage) (string, error) {
			var input ReadWebsiteInput
			if err := json.Unmarshal(args, &input); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			return readWebsite(ctx, client, input.URL)
		},
	}, nil
}

func readWebsite(ctx context.Context, client *http.Client, rawURL string) (string, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if pageURL.Scheme != "http" && pageURL.Scheme != "https" {
		return "", errors.New("only http and https URLs are supported")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "folio-chat/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("The page returned HTTP %d.", resp.StatusCode), nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", pageURL.Host, err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		text := strings.TrimSpace(article.TextContent)
		if article.Title != "" {
			return article.Title + "\n\n" + text, nil
		}
		return text, nil
	}

	// readability gave up, fall back to the stripped body text.
	return bodyText(body)
}

func bodyText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if text == "" {
		return "The page contained no readable text.", nil
	}
	return text, nil
}
