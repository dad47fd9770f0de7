package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BerryBytes/portalctl/cmd/auth"
	"github.com/BerryBytes/portalctl/internal/adminapi"
	promptutils "github.com/BerryBytes/portalctl/utils/prompt"
	"github.com/spf13/cobra"
)

// Requester is the part of the admin API client the commands use.
type Requester interface {
	Do(ctx context.Context, method, path string, query url.Values, body, out any) error
	List(ctx context.Context, resource string, opts adminapi.ListOptions, out any) error
	Get(ctx context.Context, resource, id string, out any) error
}

// Resources are the admin pages offered when list is run without a resource.
var Resources = []string{"users", "investments", "withdrawals", "forums", "tasks", "products", "categories", "spins", "banks"}

type AdminDependencies struct {
	Auth auth.AuthDependencies
	API  func(ctx context.Context) (Requester, error)
}

func NewAdminCmd(deps AdminDependencies) *cobra.Command {
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage the admin session and call the admin API",
		Long: `Admin commands use a separate session that is never refreshed. Once the
admin token expires, log in again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	adminCmd.AddCommand(auth.NewAuthCommands(deps.Auth)...)
	adminCmd.AddCommand(listCmd(deps), getCmd(deps), requestCmd(deps))

	return adminCmd
}

func listCmd(deps AdminDependencies) *cobra.Command {
	listCmd := &cobra.Command{
		Use:          "list [RESOURCE]",
		Short:        "List records of an admin resource",
		Example:      "  portalctl admin list withdrawals --status pending --from 2026-01-01",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := listOptions(cmd)
			if err != nil {
				return err
			}

			var resource string
			if len(args) == 1 {
				resource = args[0]
			} else {
				resource, err = deps.Auth.Prompter.PromptForSelection("Resource", Resources)
				if errors.Is(err, promptutils.ErrInterrupted) {
					return nil
				} else if err != nil {
					return err
				}
			}

			api, err := deps.API(cmd.Context())
			if err != nil {
				return err
			}

			var out json.RawMessage
			if err := api.List(cmd.Context(), resource, opts, &out); err != nil {
				return describe(err)
			}
			return printJSON(cmd, out)
		},
	}

	listCmd.Flags().Int("page", 0, "Page number")
	listCmd.Flags().Int("limit", 0, "Records per page")
	listCmd.Flags().String("search", "", "Search term")
	listCmd.Flags().String("status", "", "Status filter")
	listCmd.Flags().String("from", "", "Start date (YYYY-MM-DD)")
	listCmd.Flags().String("to", "", "End date (YYYY-MM-DD)")

	return listCmd
}

func listOptions(cmd *cobra.Command) (adminapi.ListOptions, error) {
	var opts adminapi.ListOptions
	var err error

	if opts.Page, err = cmd.Flags().GetInt("page"); err != nil {
		return opts, err
	}
	if opts.Limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return opts, err
	}
	if opts.Search, err = cmd.Flags().GetString("search"); err != nil {
		return opts, err
	}
	if opts.Status, err = cmd.Flags().GetString("status"); err != nil {
		return opts, err
	}

	for name, target := range map[string]*time.Time{"from": &opts.From, "to": &opts.To} {
		raw, err := cmd.Flags().GetString(name)
		if err != nil {
			return opts, err
		}
		if raw == "" {
			continue
		}
		if *target, err = time.Parse(time.DateOnly, raw); err != nil {
			return opts, fmt.Errorf("invalid --%s date %q: expected YYYY-MM-DD", name, raw)
		}
	}
	return opts, nil
}

func getCmd(deps AdminDependencies) *cobra.Command {
	return &cobra.Command{
		Use:          "get RESOURCE ID",
		Short:        "Show one record of an admin resource",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := deps.API(cmd.Context())
			if err != nil {
				return err
			}

			var out json.RawMessage
			if err := api.Get(cmd.Context(), args[0], args[1], &out); err != nil {
				return describe(err)
			}
			return printJSON(cmd, out)
		},
	}
}

func requestCmd(deps AdminDependencies) *cobra.Command {
	requestCmd := &cobra.Command{
		Use:          "request METHOD PATH",
		Short:        "Send a raw request to the admin API",
		Example:      "  portalctl admin request POST /admin/withdrawals/42/approve --data '{\"note\":\"ok\"}'",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			method := strings.ToUpper(args[0])
			path := args[1]
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}

			data, err := cmd.Flags().GetString("data")
			if err != nil {
				return fmt.Errorf("could not get data flag: %w", err)
			}
			pairs, err := cmd.Flags().GetStringArray("query")
			if err != nil {
				return fmt.Errorf("could not get query flag: %w", err)
			}

			query := url.Values{}
			for _, pair := range pairs {
				key, value, ok := strings.Cut(pair, "=")
				if !ok || key == "" {
					return fmt.Errorf("invalid query %q: expected key=value", pair)
				}
				query.Add(key, value)
			}

			yes, err := cmd.Flags().GetBool("yes")
			if err != nil {
				return fmt.Errorf("could not get yes flag: %w", err)
			}
			if method == http.MethodDelete && !yes &&
				!deps.Auth.Prompter.PromptForConfirmation(fmt.Sprintf("Delete %s?", path)) {
				cmd.Println("Aborted.")
				return nil
			}

			var body any
			if data != "" {
				if !json.Valid([]byte(data)) {
					return errors.New("--data is not valid JSON")
				}
				body = json.RawMessage(data)
			}

			api, err := deps.API(cmd.Context())
			if err != nil {
				return err
			}

			var out json.RawMessage
			if err := api.Do(cmd.Context(), method, path, query, body, &out); err != nil {
				return describe(err)
			}
			if len(out) == 0 {
				cmd.Println(http.StatusText(http.StatusOK))
				return nil
			}
			return printJSON(cmd, out)
		},
	}

	requestCmd.Flags().StringP("data", "d", "", "JSON request body")
	requestCmd.Flags().StringArrayP("query", "q", nil, "Query parameter as key=value (repeatable)")
	requestCmd.Flags().BoolP("yes", "y", false, "Do not ask before DELETE requests")

	return requestCmd
}

func describe(err error) error {
	switch {
	case errors.Is(err, adminapi.ErrNotAuthenticated):
		return fmt.Errorf("%w: run 'portalctl admin login' first", err)
	case errors.Is(err, adminapi.ErrUnauthorized):
		return fmt.Errorf("%w: the admin session has been cleared, log in again", err)
	}
	return err
}

func printJSON(cmd *cobra.Command, data json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return fmt.Errorf("failed to format response: %w", err)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), buf.String())
	return err
}
