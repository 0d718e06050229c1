package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli"

	"lifelink/internal/adapter/repo"
	"lifelink/internal/auth"
	"lifelink/internal/domain"
	"lifelink/internal/feedback"
	"lifelink/internal/infra"
	"lifelink/internal/ledger"
	"lifelink/pkg/zip"
)

type metadata struct {
	w        io.Writer
	stores   *repo.Stores
	ledger   *ledger.Service
	auth     *auth.Service
	feedback *feedback.Service
}

func newApp(w io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "ledgerctl"
	app.Usage = "inspect the relief ledger and manage accounts"
	app.Writer = w
	app.Metadata = map[string]interface{}{}

	app.Commands = []cli.Command{
		{
			Name:   "stats",
			Usage:  "print ledger statistics",
			Action: runStats,
		},
		{
			Name:      "verify",
			Usage:     "look up a donation or dispatch by id",
			ArgsUsage: "ID",
			Action:    runVerify,
		},
		{
			Name:   "audit",
			Usage:  "dump the full ledger as JSON",
			Action: runAudit,
		},
		{
			Name:  "add-user",
			Usage: "create an account without the admin registration code",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "username, u", Usage: "*account `NAME`"},
				cli.StringFlag{Name: "password, p", Usage: "*account `PASSWORD`"},
				cli.StringFlag{Name: "role, r", Value: string(domain.UserRolePublic), Usage: " `ROLE` [admin|ngo|govt|auditor|public]"},
			},
			Action: runAddUser,
		},
		{
			Name:   "feedback",
			Usage:  "list feedback submissions",
			Action: runFeedback,
		},
		{
			Name:  "export",
			Usage: "write the ledger and feedback to a zip archive",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "output, o", Value: "lifelink-export.zip", Usage: " archive `FILE`"},
			},
			Action: runExport,
		},
	}

	app.Before = func(c *cli.Context) error {
		return setup(c.App)
	}
	app.After = func(c *cli.Context) error {
		if m, ok := c.App.Metadata["config"].(*metadata); ok && m.stores != nil {
			return m.stores.Close()
		}
		return nil
	}
	return app
}

func setup(app *cli.App) error {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if level == "" {
		level = "warn"
	}
	logger := infra.NewLogger("cli", level).With().Str("cmd", "ledgerctl").Logger()

	stores, err := repo.Open(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	policy := auth.NewPolicyStore(auth.DefaultPolicy(), logger)
	if cfg.RolePolicyFile != "" {
		if policy, err = auth.LoadPolicyFile(cfg.RolePolicyFile, logger); err != nil {
			_ = stores.Close()
			return err
		}
	}

	app.Metadata["config"] = &metadata{
		w:      app.Writer,
		stores: stores,
		// The CLI never mirrors; it only reads records.
		ledger:   ledger.NewService(stores.Ledger, nil, logger, ledger.Options{PublicBaseURL: cfg.PublicBaseURL}),
		auth:     auth.NewService(stores.Users, auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL), policy, logger, auth.Options{AdminCode: cfg.AdminRegistrationCode}),
		feedback: feedback.NewService(stores.Feedback, logger),
	}
	return nil
}

func meta(c *cli.Context) *metadata {
	return c.App.Metadata["config"].(*metadata)
}

func runStats(c *cli.Context) error {
	m := meta(c)
	doc, err := m.ledger.Ledger(context.Background())
	if err != nil {
		return err
	}
	s := doc.Statistics
	tw := tabwriter.NewWriter(m.w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "donations\t%d\n", s.DonationCount)
	fmt.Fprintf(tw, "total donated\t%s\n", s.TotalDonations)
	for code, amount := range s.DonationsByCurrency {
		fmt.Fprintf(tw, "  %s\t%s\n", code, amount)
	}
	fmt.Fprintf(tw, "dispatches\t%d\n", s.TotalSupplies)
	fmt.Fprintf(tw, "units dispatched\t%d\n", s.SupplyQuantity)
	for status, n := range s.SupplyDistribution {
		fmt.Fprintf(tw, "  %s\t%d\n", status, n)
	}
	fmt.Fprintf(tw, "last updated\t%s\n", doc.Metadata.LastUpdated.Format("2006-01-02 15:04:05 MST"))
	return tw.Flush()
}

func runVerify(c *cli.Context) error {
	id := strings.TrimSpace(c.Args().First())
	if id == "" {
		return errors.New("verify: record ID is required")
	}
	m := meta(c)
	found, err := m.ledger.Verify(context.Background(), id)
	if err != nil {
		return err
	}
	printJSON(m.w, found)
	fmt.Fprintln(m.w, m.ledger.VerifyURL(id))
	return nil
}

func runAudit(c *cli.Context) error {
	m := meta(c)
	doc, err := m.ledger.Ledger(context.Background())
	if err != nil {
		return err
	}
	printJSON(m.w, doc)
	return nil
}

func runAddUser(c *cli.Context) error {
	username := strings.TrimSpace(c.String("username"))
	password := c.String("password")
	if username == "" || password == "" {
		return errors.New("add-user: --username and --password are required")
	}
	m := meta(c)
	user, err := m.auth.AddUser(context.Background(), username, password, c.String("role"))
	if err != nil {
		return err
	}
	fmt.Fprintf(m.w, "user %s created with role %s\n", user.Username, user.Role)
	return nil
}

func runFeedback(c *cli.Context) error {
	m := meta(c)
	items, err := m.feedback.List(context.Background())
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(m.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tFROM\tSUBJECT\tCREATED")
	for _, fb := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s <%s>\t%s\t%s\n", fb.ID, fb.Type, fb.Name, fb.Email, fb.Subject, fb.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func runExport(c *cli.Context) error {
	m := meta(c)
	ctx := context.Background()
	doc, err := m.ledger.Ledger(ctx)
	if err != nil {
		return err
	}
	items, err := m.feedback.List(ctx)
	if err != nil {
		return err
	}
	if items == nil {
		items = []domain.Feedback{}
	}
	ledgerJSON, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	feedbackJSON, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	archive, err := zip.Archive([]zip.File{
		{Name: "ledger.json", Data: ledgerJSON, Modified: now},
		{Name: "feedback.json", Data: feedbackJSON, Modified: now},
	})
	if err != nil {
		return err
	}
	out := c.String("output")
	if err := os.WriteFile(out, archive, 0o600); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	fmt.Fprintf(m.w, "exported %d donations, %d dispatches and %d feedback entries to %s\n",
		len(doc.Donations), len(doc.Supplies), len(items), out)
	return nil
}

func printJSON(w io.Writer, v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "error: %s\n", err)
		return
	}
	fmt.Fprintf(w, "%s\n", b)
}
