package tooling

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

type queryResponse struct {
	TotalSize      int               `json:"totalSize"`
	Done           bool              `json:"done"`
	NextRecordsURL string            `json:"nextRecordsUrl"`
	Records        []json.RawMessage `json:"records"`
}

// query выполняет SOQL через Tooling API и дописывает все записи в out,
// проходя по страницам nextRecordsUrl.
func query[T any](ctx context.Context, c *Client, soql string, out *[]T) error {
	path := c.basePath() + "/query/?q=" + url.QueryEscape(soql)

	for {
		var resp queryResponse
		if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
			return err
		}

		for _, raw := range resp.Records {
			var rec T
			if err := json.Unmarshal(raw, &rec); err != nil {
				return fmt.Errorf("parse record failed: %w", err)
			}
			*out = append(*out, rec)
		}

		if resp.Done || resp.NextRecordsURL == "" {
			return nil
		}
		path = resp.NextRecordsURL
	}
}

var soqlReplacer = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func escapeSOQL(s string) string {
	return soqlReplacer.Replace(s)
}
