package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	appconfig "github.com/wolfman30/salon-booking/internal/config"
	"github.com/wolfman30/salon-booking/internal/salonapi"
	"github.com/wolfman30/salon-booking/internal/wizard"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

type cli struct {
	identityURL string
	salonURL    string
	appCode     string
	token       string
	out         string
	timezone    string
	timeout     time.Duration

	stdout io.Writer
}

// envOr reads the CLI-only settings that the service config does not carry.
func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (c *cli) client() *salonapi.Client {
	return salonapi.NewClient(salonapi.Options{
		IdentityBaseURL: c.identityURL,
		SalonBaseURL:    c.salonURL,
		AppCode:         c.appCode,
		Timeout:         c.timeout,
		Logger:          logging.NewWithWriter("error", io.Discard),
	})
}

func (c *cli) salon() (*salonapi.SalonAPI, error) {
	if strings.TrimSpace(c.token) == "" {
		return nil, fmt.Errorf("missing access token (flag --token or env SALON_ACCESS_TOKEN)")
	}
	return c.client().Salon(salonapi.StaticToken(c.token)), nil
}

// emit prints v as indented JSON, or calls text for the tabular form.
func (c *cli) emit(v any, text func(w *tabwriter.Writer)) error {
	if c.out == "json" {
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	cfg := appconfig.Load()
	c := &cli{
		identityURL: cfg.IdentityBaseURL,
		salonURL:    cfg.SalonBaseURL,
		appCode:     cfg.AppCode,
		token:       envOr("SALON_ACCESS_TOKEN", ""),
		out:         envOr("SALONCTL_OUT", "text"),
		timezone:    cfg.Timezone,
		timeout:     30 * time.Second,
		stdout:      stdout,
	}

	root := &cobra.Command{
		Use:           "salonctl",
		Short:         "Operator CLI for the salon API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.out != "json" && c.out != "text" {
				return fmt.Errorf("unknown output format %q (json|text)", c.out)
			}
			return nil
		},
	}
	root.SetOut(stdout)

	flags := root.PersistentFlags()
	flags.StringVar(&c.identityURL, "identity-url", c.identityURL, "identity API base URL (env IDENTITY_API_BASE_URL)")
	flags.StringVar(&c.salonURL, "salon-url", c.salonURL, "salon API base URL (env SALON_API_BASE_URL)")
	flags.StringVar(&c.appCode, "app-code", c.appCode, "application code header (env APP_CODE)")
	flags.StringVar(&c.token, "token", c.token, "access token (env SALON_ACCESS_TOKEN)")
	flags.StringVar(&c.out, "out", c.out, "output format: json|text")
	flags.DurationVar(&c.timeout, "timeout", c.timeout, "per-request timeout")

	root.AddCommand(
		loginCmd(c),
		sitesCmd(c),
		servicesCmd(c),
		staffCmd(c),
		customersCmd(c),
		ordersCmd(c),
		bookCmd(c),
	)
	return root
}

func loginCmd(c *cli) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange credentials for a token pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}
			tokens, err := c.client().Identity().Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			return c.emit(tokens, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "export SALON_ACCESS_TOKEN=%s\n", tokens.AccessToken)
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "account username")
	cmd.Flags().StringVar(&password, "password", envOr("SALON_PASSWORD", ""), "account password (env SALON_PASSWORD)")
	return cmd
}

func sitesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List salon sites",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.salon()
			if err != nil {
				return err
			}
			sites, err := api.ListSites(cmd.Context())
			if err != nil {
				return err
			}
			return c.emit(sites, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "ID\tCODE\tNAME")
				for _, s := range sites {
					fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, dash(s.Code), s.Name)
				}
			})
		},
	}
}

func servicesCmd(c *cli) *cobra.Command {
	var site string
	cmd := &cobra.Command{
		Use:   "services",
		Short: "List services, optionally for one site",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.salon()
			if err != nil {
				return err
			}
			services, err := api.ListServices(cmd.Context(), site)
			if err != nil {
				return err
			}
			return c.emit(services, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tDURATION")
				for _, s := range services {
					fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.Name, minutes(s.DurationMinutes))
				}
			})
		},
	}
	cmd.Flags().StringVar(&site, "site", "", "site id")
	return cmd
}

func staffCmd(c *cli) *cobra.Command {
	var site string
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "List stylists, optionally for one site",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.salon()
			if err != nil {
				return err
			}
			staff, err := api.ListStaff(cmd.Context(), site)
			if err != nil {
				return err
			}
			return c.emit(staff, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "ID\tCODE\tNAME")
				for _, s := range staff {
					fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, dash(s.Code), s.Name)
				}
			})
		},
	}
	cmd.Flags().StringVar(&site, "site", "", "site id")
	return cmd
}

func pageFlags(cmd *cobra.Command, q *salonapi.PageQuery) {
	cmd.Flags().IntVar(&q.Page, "page", 1, "page number (1-based)")
	cmd.Flags().IntVar(&q.Size, "size", salonapi.DefaultPageSize, "page size")
}

func footer(w io.Writer, page, totalPages, total int) {
	fmt.Fprintf(w, "\npage %d/%d (%d total)\n", page, max(totalPages, 1), total)
}

func customersCmd(c *cli) *cobra.Command {
	var (
		q       salonapi.PageQuery
		keyword string
	)
	cmd := &cobra.Command{
		Use:   "customers",
		Short: "Page through customers",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.salon()
			if err != nil {
				return err
			}
			if keyword != "" {
				q.Filters = map[string]any{"keyword": keyword}
			}
			page, err := api.CustomerPage(cmd.Context(), q)
			if err != nil {
				return err
			}
			return c.emit(page, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "CODE\tNAME\tPHONE\tEMAIL")
				for _, cu := range page.Items {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", dash(cu.Code), cu.Name, dash(cu.Phone), dash(cu.Email))
				}
				footer(w, page.Page, page.TotalPages, page.Total)
			})
		},
	}
	pageFlags(cmd, &q)
	cmd.Flags().StringVar(&keyword, "q", "", "search keyword")
	return cmd
}

func ordersCmd(c *cli) *cobra.Command {
	var (
		q    salonapi.PageQuery
		site string
	)
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Page through orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.salon()
			if err != nil {
				return err
			}
			loc, err := time.LoadLocation(c.timezone)
			if err != nil {
				return fmt.Errorf("timezone: %w", err)
			}
			if site != "" {
				q.Filters = map[string]any{"siteId": site}
			}
			page, err := api.OrderPage(cmd.Context(), q)
			if err != nil {
				return err
			}
			return c.emit(page, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "CODE\tCUSTOMER\tSTATUS\tTOTAL\tCREATED")
				for _, o := range page.Items {
					name := "Walk-in"
					if o.Customer != nil && o.Customer.Name != "" {
						name = o.Customer.Name
					}
					created := "-"
					if !o.CreatedAt.IsZero() {
						created = o.CreatedAt.In(loc).Format("2006-01-02 15:04")
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%s\n", dash(o.Code), name, dash(o.Status), o.TotalAmount, created)
				}
				footer(w, page.Page, page.TotalPages, page.Total)
			})
		},
	}
	pageFlags(cmd, &q)
	cmd.Flags().StringVar(&site, "site", "", "site id")
	return cmd
}

func bookCmd(c *cli) *cobra.Command {
	var (
		site, customerID, staff string
		services                []string
		date, clock, note       string
	)
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Create a booking for a customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if site == "" || customerID == "" || len(services) == 0 {
				return fmt.Errorf("--site, --customer and at least one --service are required")
			}
			api, err := c.salon()
			if err != nil {
				return err
			}
			loc, err := time.LoadLocation(c.timezone)
			if err != nil {
				return fmt.Errorf("timezone: %w", err)
			}
			day, err := wizard.ParseDate(date)
			if err != nil {
				return err
			}
			hour, minute, err := wizard.ParseTimeLabel(clock)
			if err != nil {
				return err
			}
			draft := wizard.Draft{
				SiteID:     site,
				ServiceIDs: map[string]struct{}{},
				StylistID:  staff,
				Note:       note,
			}
			for _, id := range services {
				if id = strings.TrimSpace(id); id != "" {
					draft.ServiceIDs[id] = struct{}{}
				}
			}
			at := wizard.EncodeTimestamp(wizard.ComposeInstant(day, hour, minute, loc))

			ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
			defer cancel()
			res, err := api.CreateBooking(ctx, wizard.BuildRequest(draft, customerID, at))
			if err != nil {
				return err
			}
			return c.emit(res, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "booking %s created (status %s)\n", res.ID, dash(res.Status))
			})
		},
	}
	cmd.Flags().StringVar(&site, "site", "", "site id")
	cmd.Flags().StringVar(&customerID, "customer", "", "customer id")
	cmd.Flags().StringVar(&staff, "staff", "", "stylist id (optional)")
	cmd.Flags().StringSliceVar(&services, "service", nil, "service id (repeatable)")
	cmd.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD")
	cmd.Flags().StringVar(&clock, "time", "", `time such as "10:00 AM", "10:00 SA" or "14:30"`)
	cmd.Flags().StringVar(&note, "note", "", "booking note")
	return cmd
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func minutes(m int) string {
	if m <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d min", m)
}
