package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/tallyhq/tally/internal/client/config"
	"github.com/tallyhq/tally/internal/client/localstore"
	"github.com/tallyhq/tally/internal/client/remote"
	"github.com/tallyhq/tally/internal/client/stores"
	"github.com/tallyhq/tally/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// App is the interactive shell over the domain stores. It owns the remote
// client for auth and receipt uploads; everything else goes through the
// store manager.
type App struct {
	config   *config.Config
	client   *remote.HTTPClient
	manager  *stores.Manager
	logger   logging.Logger
	userName string
	reader   *bufio.Reader
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	repos, err := localstore.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err.Error())
		return nil, err
	}

	client := remote.NewHTTPClient(c.ServerBaseURL)
	manager := stores.NewManager(repos, client, logger)

	if err := manager.Load(ctx); err != nil {
		return nil, err
	}

	return &App{
		config:  c,
		client:  client,
		manager: manager,
		logger:  logger,
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.manager.Close()
	a.Root(ctx)
}

func (a *App) mode() Mode {
	if a.manager.Online() {
		return ModeOnline
	}
	return ModeOffline
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}
