package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/farmlink/marketplace/pkg/client"
	"github.com/farmlink/marketplace/pkg/toast"
	"github.com/farmlink/marketplace/pkg/userstore"
)

const usage = `usage: farmlinkctl [flags] <command>

commands:
  whoami   print the signed-in user
  unread   print the unread message count
  status   print user, unread messages and subscription status
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

// session is the client-side state of one CLI invocation.
type session struct {
	api    *client.Client
	users  *userstore.Store
	toasts *toast.Notifier
	out    io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("farmlinkctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	baseURL := fs.String("url", envOr("FARMLINK_URL", "http://localhost:8000"), "API base URL")
	token := fs.String("token", os.Getenv("FARMLINK_TOKEN"), "bearer access token")
	locale := fs.String("locale", os.Getenv("FARMLINK_LOCALE"), "locale cookie value (en, hi, ta)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("exactly one command is required")
	}

	api, err := client.New(*baseURL, client.WithToken(*token), client.WithLocale(*locale))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return err
	}

	s := &session{
		api:   api,
		users: userstore.New(),
		toasts: toast.NewNotifier(toast.WithRenderer(func(t toast.Toast) {
			if t.Visible {
				fmt.Fprintf(stderr, "[%s] %s\n", t.Severity, t.Message)
			}
		})),
		out: stdout,
	}

	var cmdErr error
	switch cmd := strings.ToLower(fs.Arg(0)); cmd {
	case "whoami":
		cmdErr = s.whoami(ctx)
	case "unread":
		cmdErr = s.unread(ctx)
	case "status":
		cmdErr = s.status(ctx)
	default:
		fs.Usage()
		cmdErr = fmt.Errorf("unknown command %q", cmd)
	}

	if cmdErr != nil {
		s.toasts.Show(cmdErr.Error(), toast.Error)
	}
	return cmdErr
}

// loadUser rehydrates the user store from the API. A 401 leaves the store signed out.
func (s *session) loadUser(ctx context.Context) error {
	s.users.SetLoading(true)

	me, err := s.api.Me(ctx)
	if err != nil {
		s.users.Logout()
		if client.IsUnauthorized(err) {
			return nil
		}
		return err
	}

	s.users.SetUser(&userstore.User{
		ID:           me.ID,
		FullName:     me.FullName,
		Email:        me.Email,
		Phone:        me.Phone,
		Role:         me.Role,
		ProfileImage: me.ProfileImage,
		Locale:       me.Locale,
	})
	return nil
}

func (s *session) whoami(ctx context.Context) error {
	if err := s.loadUser(ctx); err != nil {
		return err
	}

	state := s.users.Snapshot()
	if !state.SignedIn() {
		fmt.Fprintln(s.out, "not signed in")
		return nil
	}
	fmt.Fprintf(s.out, "%s <%s> role=%s locale=%s\n", state.User.FullName, state.User.Email, state.User.Role, state.User.Locale)
	return nil
}

func (s *session) unread(ctx context.Context) error {
	count, err := s.api.UnreadCount(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "unread messages: %d\n", count)
	return nil
}

func (s *session) status(ctx context.Context) error {
	if err := s.whoami(ctx); err != nil {
		return err
	}
	if err := s.unread(ctx); err != nil {
		return err
	}

	if !s.users.Snapshot().SignedIn() {
		s.toasts.Show("sign in to see your subscription", toast.Info)
		return nil
	}

	status, err := s.api.SubscriptionStatus(ctx)
	if err != nil {
		return err
	}

	if !status.IsActive {
		fmt.Fprintln(s.out, "subscription: inactive")
		s.toasts.Show("no active subscription", toast.Warning)
		return nil
	}

	plan := ""
	if status.Subscription != nil {
		plan = status.Subscription.Plan
	}
	fmt.Fprintf(s.out, "subscription: %s, %d days remaining\n", plan, status.DaysRemaining)
	s.toasts.Show("subscription active", toast.Success)
	return nil
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
