package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"qrattend/internal/app"
	"qrattend/internal/auth"
	"qrattend/internal/config"
	"qrattend/internal/qr"
	"qrattend/internal/schedule"
	"qrattend/migrations"
)

var (
	newApp = app.New // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	cfg config.App
	out io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate                                 - apply pending database migrations")
	fmt.Fprintln(cli.out, "  sweep [-at RFC3339]                     - record absences for sessions that ended without a scan")
	fmt.Fprintln(cli.out, "  token -slot ID [-date YYYY-MM-DD] [-png FILE] - issue an attendance token")
	fmt.Fprintln(cli.out, "  bearer -teacher ID [-role ROLE] [-ttl DURATION] - sign an API bearer token")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	sweepCmd := flag.NewFlagSet("sweep", flag.ContinueOnError)
	sweepAt := sweepCmd.String("at", "", "Sweep as of this instant (RFC 3339). Defaults to now.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenSlot := tokenCmd.Int64("slot", 0, "Teaching slot id.")
	tokenDate := tokenCmd.String("date", "", "Session date (YYYY-MM-DD). Defaults to today.")
	tokenPNG := tokenCmd.String("png", "", "Also write the QR code to this PNG file.")

	bearerCmd := flag.NewFlagSet("bearer", flag.ContinueOnError)
	bearerTeacher := bearerCmd.Int64("teacher", 0, "Teacher id (JWT subject).")
	bearerRole := bearerCmd.String("role", auth.RoleTeacher, "Role claim: teacher or admin.")
	bearerTTL := bearerCmd.Duration("ttl", 24*time.Hour, "Token lifetime.")

	for _, fs := range []*flag.FlagSet{sweepCmd, tokenCmd, bearerCmd} {
		fs.SetOutput(cli.out)
	}

	ctx := context.Background()
	switch args[1] {
	case "migrate":
		return cli.migrate(ctx)
	case "sweep":
		if err := sweepCmd.Parse(args[2:]); err != nil {
			return err
		}
		asOf := time.Now()
		if *sweepAt != "" {
			t, err := time.Parse(time.RFC3339, *sweepAt)
			if err != nil {
				return fmt.Errorf("-at: %w", err)
			}
			asOf = t
		}
		return cli.sweep(ctx, asOf)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenSlot <= 0 {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(ctx, *tokenSlot, *tokenDate, *tokenPNG)
	case "bearer":
		if err := bearerCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *bearerTeacher <= 0 {
			bearerCmd.Usage()
			return errHelp
		}
		return cli.bearer(*bearerTeacher, *bearerRole, *bearerTTL)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) migrate(ctx context.Context) error {
	a, err := newApp(ctx, cli.cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.DB == nil {
		return errors.New("migrate needs STORE_BACKEND=postgres")
	}
	if err := migrations.Up(ctx, a.DB.Client.DB); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "migrations up to date")
	return nil
}

func (cli *commandLine) sweep(ctx context.Context, asOf time.Time) error {
	a, err := newApp(ctx, cli.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Sweeper.Sweep(ctx, asOf)
	if err != nil {
		return err
	}
	return cli.printJSON(res)
}

func (cli *commandLine) token(ctx context.Context, slotID int64, date, pngPath string) error {
	a, err := newApp(ctx, cli.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if date == "" {
		date, _ = schedule.Today(time.Now(), cli.cfg.Location())
	}
	issued, err := a.Service.IssueFor(ctx, slotID, date)
	if err != nil {
		return err
	}
	if pngPath != "" {
		if err := qr.WriteFile(issued.Token, qr.DefaultSize, pngPath); err != nil {
			return err
		}
	}
	return cli.printJSON(map[string]any{
		"token":        issued.Token,
		"session_date": issued.SessionDate,
		"valid_until":  issued.ExpiresAt,
		"slot_id":      issued.Slot.ID,
		"subject":      issued.Slot.Subject,
		"png":          pngPath,
	})
}

func (cli *commandLine) bearer(teacherID int64, role string, ttl time.Duration) error {
	if role != auth.RoleTeacher && role != auth.RoleAdmin {
		return fmt.Errorf("unknown role %q", role)
	}
	tok, exp, err := auth.Issue(teacherID, role, cli.cfg.JWTIssuer, cli.cfg.JWTSigningKey, ttl)
	if err != nil {
		return err
	}
	return cli.printJSON(map[string]any{"access_token": tok, "expires_at": exp.Unix()})
}

func (cli *commandLine) printJSON(v any) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
