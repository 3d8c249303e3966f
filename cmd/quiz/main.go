package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/stemsi/learning-portal/internal/client"
	"github.com/stemsi/learning-portal/internal/config"
	"github.com/stemsi/learning-portal/internal/logger"
	"github.com/stemsi/learning-portal/internal/model"
	"github.com/stemsi/learning-portal/internal/service"
	"github.com/stemsi/learning-portal/internal/session"
	"github.com/stemsi/learning-portal/internal/validator"
	"golang.org/x/term"
)

const usage = `Usage: quiz <command>

Commands:
  login            sign in with email and password
  logout           sign out and forget the tokens
  dashboard        show assessment stats
  list             list your assessments
  take <id>        take an assessment
  profile          show your profile and edit permission
  request-edit     ask for permission to edit your profile
  notifications    show your inbox
`

// app bundles what every command needs.
type app struct {
	in    *bufio.Reader
	log   zerolog.Logger
	store session.Store

	auth          *service.AuthService
	dashboard     *service.DashboardService
	assessments   *service.AssessmentService
	profiles      *service.ProfileService
	notifications *service.NotificationService
}

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(2)
	}

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()
	if cfg.SessionStore == config.SessionStoreMemory {
		// A memory store would forget the login between invocations.
		cfg.SessionStore = config.SessionStoreFile
	}

	// ─── Initialize Logger ─────────────────────────────────────────────
	// Logs go to stderr so they never interleave with prompts on stdout.
	log := logger.Setup(logger.Options{Level: cfg.LogLevel, Format: "pretty", File: cfg.LogFile, Out: os.Stderr})
	validator.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := session.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open session store")
	}
	defer closeStore()

	api := client.New(cfg.BackendURL, store, client.WithTimeout(cfg.BackendTimeout), client.WithLogger(log))
	a := &app{
		in:            bufio.NewReader(os.Stdin),
		log:           log,
		store:         store,
		auth:          service.NewAuthService(api, store, log),
		dashboard:     service.NewDashboardService(api),
		assessments:   service.NewAssessmentService(api, nil, log),
		profiles:      service.NewProfileService(api, store, log),
		notifications: service.NewNotificationService(api, nil, log),
	}
	defer a.assessments.Shutdown()

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Println("Error:", describe(err))
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx)
	case "logout":
		if err := a.auth.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil
	case "dashboard":
		return a.showDashboard(ctx)
	case "list":
		return a.list(ctx)
	case "take":
		if len(args) != 1 {
			return errors.New("usage: quiz take <id>")
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("assessment id must be a number")
		}
		return a.take(ctx, id)
	case "profile":
		return a.showProfile(ctx)
	case "request-edit":
		return a.requestEdit(ctx)
	case "notifications":
		return a.showNotifications(ctx)
	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// ─── CLI Input ─────────────────────────────────────────────────────

func (a *app) prompt(label string) string {
	fmt.Print(label)
	line, _ := a.in.ReadString('\n')
	return strings.TrimSpace(line)
}

func (a *app) login(ctx context.Context) error {
	info, err := a.auth.Session(ctx)
	if err != nil {
		return err
	}

	label := "Email: "
	if info.RememberedEmail != "" {
		label = fmt.Sprintf("Email [%s]: ", info.RememberedEmail)
	}
	email := a.prompt(label)
	if email == "" {
		email = info.RememberedEmail
	}

	fmt.Print("Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // Newline after password input
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	remember := strings.EqualFold(a.prompt("Remember email? [y/N]: "), "y")

	req := model.StudentLoginRequest{Email: email, Password: string(bytePassword), RememberMe: remember}
	if fields := validator.Struct(req); fields != nil {
		return &service.FieldError{Fields: fields}
	}
	if _, err := a.auth.Login(ctx, req); err != nil {
		return err
	}
	fmt.Println("Logged in.")

	prompt, err := a.profiles.CompletionPrompt(ctx)
	if err == nil && prompt.Show {
		if prompt.Mode == "create" {
			fmt.Println("Your profile is incomplete. Please complete it in the portal.")
		} else {
			fmt.Println("You have permission to update your profile.")
		}
	}
	return nil
}

func (a *app) showDashboard(ctx context.Context) error {
	d, err := a.dashboard.GetDashboardData(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Assessments: %d total, %d completed, %d pending\n",
		d.Stats.TotalAssessments, d.Stats.CompletedAssessments, d.PendingAssessments)
	fmt.Printf("Average score: %.1f\n", d.Stats.AverageScore)
	for _, act := range d.RecentActivities {
		fmt.Println("  -", act.Description)
	}
	return nil
}

func (a *app) list(ctx context.Context) error {
	list, err := a.assessments.ListAssessments(ctx)
	if err != nil {
		return err
	}
	m := list.Metrics
	fmt.Printf("%d assessments: %d pending, %d in progress, %d completed (avg best %.1f)\n\n",
		m.Total, m.Pending, m.InProgress, m.Completed, m.AverageBestScore)

	printGroup := func(title string, items []model.AssessmentSummary) {
		if len(items) == 0 {
			return
		}
		fmt.Println(title)
		for _, s := range items {
			line := fmt.Sprintf("  [%d] %s (%d min, %d marks)", s.ID, s.Title, s.DurationMinutes, s.TotalMarks)
			if s.BestScore != nil {
				line += fmt.Sprintf(" best %.1f", *s.BestScore)
			}
			fmt.Println(line)
		}
	}
	printGroup("Pending", list.Pending)
	printGroup("In progress", list.InProgress)
	printGroup("Completed", list.Completed)
	return nil
}

func (a *app) showProfile(ctx context.Context) error {
	v, err := a.profiles.GetProfile(ctx)
	if err != nil {
		return err
	}
	p := v.Profile
	fmt.Printf("%s <%s>\n", p.Username, p.UserEmail)
	fmt.Printf("Student ID: %s  Batch: %s  Department: %s\n", p.StudentID, p.Batch, p.Department)
	for _, f := range v.Fields {
		fmt.Printf("  %-13s %s\n", f.Name+":", f.Value)
	}
	fmt.Println()
	fmt.Println(v.Status)
	return nil
}

func (a *app) requestEdit(ctx context.Context) error {
	reason := a.prompt("Why do you need to update your profile? ")
	msg, err := a.profiles.RequestPermission(ctx, reason)
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func (a *app) showNotifications(ctx context.Context) error {
	inbox, err := a.notifications.Fetch(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d unread\n", inbox.UnreadCount)
	for _, n := range inbox.Notifications {
		mark := " "
		if !n.IsRead {
			mark = "*"
		}
		fmt.Printf("%s %s (%s)\n    %s\n", mark, n.Title, n.Age, n.Message)
	}
	if inbox.UnreadCount > 0 && strings.EqualFold(a.prompt("Mark all as read? [y/N]: "), "y") {
		if _, err := a.notifications.MarkAllRead(ctx); err != nil {
			return err
		}
	}
	return nil
}

// describe renders an error for the terminal.
func describe(err error) string {
	var fieldErr *service.FieldError
	var reqErr *service.RequestError
	switch {
	case errors.Is(err, client.ErrSessionMissing):
		return "not logged in; run `quiz login`"
	case errors.Is(err, client.ErrUnauthorized):
		return "your session has expired; run `quiz login`"
	case errors.As(err, &fieldErr):
		parts := make([]string, 0, len(fieldErr.Fields))
		for _, msg := range fieldErr.Fields {
			parts = append(parts, msg)
		}
		return strings.Join(parts, "; ")
	case errors.As(err, &reqErr):
		return reqErr.Message
	}
	return client.Message(err, err.Error())
}
