package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hafizbahtiar/console/internal/client"
	"github.com/spf13/cobra"
)

// apiCmd sends raw requests through the authenticated client, so refresh on
// 401 and envelope errors behave as they do for every other command.
func (a *app) apiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Call a backend endpoint directly",
	}
	cmd.AddCommand(
		a.apiMethodCmd(http.MethodGet),
		a.apiMethodCmd(http.MethodPost),
		a.apiMethodCmd(http.MethodPatch),
		a.apiMethodCmd(http.MethodDelete),
	)
	return cmd
}

func (a *app) apiMethodCmd(method string) *cobra.Command {
	var (
		query   []string
		extract bool
	)

	cmd := &cobra.Command{
		Use:   strings.ToLower(method) + " <path> [json-body]",
		Short: method + " a backend path",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := client.RequestOptions{ExtractData: extract}

			if len(args) == 2 {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("body is not valid JSON")
				}
				opts.Body = json.RawMessage(args[1])
			}

			q, err := parseQuery(query)
			if err != nil {
				return err
			}
			opts.Query = q

			ctx := cmd.Context()
			if err := a.connect(ctx); err != nil {
				return err
			}

			var out json.RawMessage
			if err := a.api.Do(ctx, method, args[0], opts, &out); err != nil {
				return present(err, "Request failed.")
			}
			return printJSON(cmd, out)
		},
	}

	cmd.Flags().StringArrayVarP(&query, "query", "q", nil, "Query parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&extract, "data", false, "Print only the data member of a wrapped response")
	return cmd
}

func parseQuery(pairs []string) (url.Values, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	q := url.Values{}
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("query %q must be key=value", p)
		}
		q.Add(key, value)
	}
	return q, nil
}

func printJSON(cmd *cobra.Command, raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, err = cmd.OutOrStdout().Write(append(raw, '\n'))
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(cmd.OutOrStdout())
	return err
}
