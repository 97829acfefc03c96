package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/internhub/portal/internal/apiclient"
	"github.com/internhub/portal/internal/session"
	"github.com/internhub/portal/internal/storage"
	"github.com/internhub/portal/internal/user"
)

// Default backend base URL; can override with PORTALCTL_SERVER env var or -server flag.
var serverBaseURL = "http://localhost:8080/project1"

func main() {
	cmd := flag.String("cmd", "status", "Command: login|logout|whoami|status|get")
	serverFlag := flag.String("server", "", "Override backend base URL (e.g. https://portal.example.com/project1)")
	storeFlag := flag.String("store", "", "Session file (default: <user config dir>/portalctl/session.json)")
	username := flag.String("user", "", "Username (for login); password is read from PORTALCTL_PASSWORD")
	path := flag.String("path", "", "Backend path (for get), e.g. /internships")
	timeout := flag.Duration("timeout", apiclient.DefaultTimeout, "Backend request timeout")
	verbose := flag.Bool("v", false, "Log requests to stderr")
	flag.Parse()

	if env := os.Getenv("PORTALCTL_SERVER"); env != "" {
		serverBaseURL = strings.TrimRight(env, "/")
	}
	if *serverFlag != "" {
		serverBaseURL = strings.TrimRight(*serverFlag, "/")
	}

	logger := zap.NewNop()
	if *verbose {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	c, err := newCLI(*storeFlag, *timeout, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	ctx := context.Background()
	switch *cmd {
	case "login":
		err = c.login(ctx, *username, os.Getenv("PORTALCTL_PASSWORD"))
	case "logout":
		err = c.logout(ctx)
	case "whoami":
		err = c.whoami(ctx)
	case "status":
		err = c.status(ctx)
	case "get":
		err = c.get(ctx, *path)
	default:
		err = fmt.Errorf("unknown command %q", *cmd)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type cli struct {
	transport *apiclient.Transport
	store     *storage.FileStore
	session   *session.Service
}

func newCLI(storePath string, timeout time.Duration, logger *zap.Logger) (*cli, error) {
	if storePath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate config dir: %w", err)
		}
		storePath = filepath.Join(dir, "portalctl", "session.json")
	}

	transport, err := apiclient.NewTransport(serverBaseURL, timeout, apiclient.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	store := storage.NewFileStore(storePath)
	provider := session.NewProvider(
		store,
		session.NewAuthAPI(transport),
		user.NewRepository(transport),
		session.WithLogger(logger),
		session.WithTimeout(timeout),
	)

	return &cli{transport: transport, store: store, session: provider.Session("")}, nil
}

func (c *cli) login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return errors.New("-user and PORTALCTL_PASSWORD are required")
	}

	res, err := c.session.Login(ctx, username, password)
	if err != nil {
		return err
	}

	fmt.Printf("Logged in as %s (roles: %s)\n", username, joinRoles(res.Roles))
	return nil
}

func (c *cli) logout(ctx context.Context) error {
	if err := c.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("Logged out")
	return nil
}

func (c *cli) whoami(ctx context.Context) error {
	account := c.session.CurrentUser(ctx)
	if account == nil {
		return errors.New("not logged in; run: portalctl -cmd login -user <name>")
	}
	return printJSON(account)
}

func (c *cli) status(ctx context.Context) error {
	fmt.Printf("Session:  %s\n", c.store.Path())

	claims := c.session.Claims(ctx)
	if claims == nil {
		fmt.Println("No session")
		return nil
	}

	state := "valid"
	if c.session.IsExpired(ctx) {
		state = "expired"
	}
	fmt.Printf("Subject:  %s\n", claims.Subject)
	fmt.Printf("Issuer:   %s\n", claims.Issuer)
	fmt.Printf("Scope:    %s\n", strings.Join(claims.Scope, " "))
	if claims.HasExpiry() {
		fmt.Printf("Expires:  %s (%s)\n", claims.ExpiresAt.Local().Format(time.RFC1123), state)
	} else {
		fmt.Printf("Expires:  never set (%s)\n", state)
	}
	return nil
}

func (c *cli) get(ctx context.Context, path string) error {
	if path == "" {
		return errors.New("-path required")
	}

	resp, err := apiclient.New(c.transport, c.session).Get(ctx, path, nil)
	if errors.Is(err, apiclient.ErrSessionExpired) {
		return errors.New("session expired; run: portalctl -cmd login -user <name>")
	}
	var se *apiclient.StatusError
	if errors.As(err, &se) {
		fmt.Fprintf(os.Stderr, "%s\n", se.Body)
		return err
	}
	if err != nil {
		return err
	}

	var v interface{}
	if json.Unmarshal(resp.Body, &v) == nil {
		return printJSON(v)
	}
	_, err = os.Stdout.Write(resp.Body)
	return err
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func joinRoles(roles []user.Role) string {
	if len(roles) == 0 {
		return "none"
	}
	s := make([]string, len(roles))
	for i, r := range roles {
		s[i] = string(r)
	}
	return strings.Join(s, ", ")
}
