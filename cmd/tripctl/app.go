package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kjstillabower/trip-planner/internal/apiclient"
	"github.com/kjstillabower/trip-planner/internal/authbus"
	"github.com/kjstillabower/trip-planner/internal/cache"
	"github.com/kjstillabower/trip-planner/internal/config"
	"github.com/kjstillabower/trip-planner/internal/forecast"
	"github.com/kjstillabower/trip-planner/internal/geocode"
	"github.com/kjstillabower/trip-planner/internal/invite"
	"github.com/kjstillabower/trip-planner/internal/observability"
	"github.com/kjstillabower/trip-planner/internal/presentation"
	"github.com/kjstillabower/trip-planner/internal/schema"
	"github.com/kjstillabower/trip-planner/internal/session"
	"github.com/kjstillabower/trip-planner/internal/storage"
)

const reloginPrompt = "Your session has expired. Run `tripctl login` to sign in again."

type deps struct {
	out        io.Writer
	errOut     io.Writer
	loadConfig func() (*config.Config, error)
	newLogger  func() (*zap.Logger, error)
	now        func() time.Time
}

// app is the composition root shared by every command of one invocation.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	out       io.Writer
	errOut    io.Writer
	now       func() time.Time
	bus       *authbus.Bus
	refresher session.Refresher
	sessions  *session.Manager
	api       *apiclient.Client
	pending   *invite.PendingStore
	detach    []func()
}

func newApp(d deps) (*app, error) {
	cfg, err := d.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := d.newLogger()
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.TripctlHome == "" {
		return nil, errors.New("no home directory for tripctl state; set TRIPCTL_HOME")
	}
	store, err := storage.NewFileStorage(cfg.TripctlHome)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		out:    d.out,
		errOut: d.errOut,
		now:    d.now,
		bus:    authbus.NewBus(logger),
	}
	a.detach = append(a.detach, a.bus.Subscribe(a.promptOnce()))

	a.refresher = session.NewGoTrueRefresher(cfg.AuthURL, cfg.AuthAnonKey, cfg.TripAPITimeout)
	a.sessions = session.NewManager(store, a.refresher, logger)

	a.api, err = apiclient.New(apiclient.Config{
		BaseURL: cfg.TripAPIURL,
		APIKey:  cfg.TripAPIKey,
		Timeout: cfg.TripAPITimeout,
	}, a.sessions, a.bus, logger)
	if err != nil {
		return nil, fmt.Errorf("trip API: %w", err)
	}

	a.pending = invite.NewPendingStore(store, logger)
	claimer := invite.NewClaimer(a.pending, a.api, logger)
	a.detach = append(a.detach, claimer.Attach(a.sessions, a.reportClaim))
	return a, nil
}

func (a *app) close() {
	for _, fn := range a.detach {
		fn()
	}
	if err := observability.FlushTelemetry(context.Background(), a.logger); err != nil {
		fmt.Fprintln(a.errOut, mutedStyle.Render(err.Error()))
	}
}

// promptOnce returns the auth-required listener. However many requests fail
// in one invocation, the user sees the prompt once.
func (a *app) promptOnce() func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			fmt.Fprintln(a.errOut, warnStyle.Render(reloginPrompt))
		})
	}
}

func (a *app) reportClaim(inv schema.PendingInvite, err error) {
	if err != nil {
		fmt.Fprintf(a.errOut, "%s %s\n", warnStyle.Render("Could not join plan "+inv.PlanID+"."), presentation.Message(presentation.Classify(err)))
		return
	}
	fmt.Fprintln(a.out, "Joined plan "+inv.PlanID+".")
}

// fail turns err into the copy the user sees, keeping the detail in the log.
func (a *app) fail(action string, err error) error {
	a.logger.Debug(action+" failed",
		zap.String("category", string(apiclient.CategorizeError(err))),
		zap.Error(err),
	)
	return fmt.Errorf("%s: %s", action, presentation.Message(presentation.Classify(err)))
}

func (a *app) newResolver() *forecast.Resolver {
	chain := geocode.NewDefaultChain(geocode.Config{
		NominatimURL: a.cfg.NominatimURL,
		UserAgent:    a.cfg.GeocodingUserAgent,
		GoogleURL:    a.cfg.GoogleGeocodeURL,
		GoogleAPIKey: a.cfg.GeocodingAPIKey,
		Timeout:      a.cfg.GeocodingTimeout,
	}, a.logger)
	return forecast.NewResolver(
		chain,
		forecast.NewOpenMeteoClient(a.cfg.ForecastURL, a.cfg.ForecastTimeout),
		cache.NewInMemoryCache(),
		forecast.Config{CacheTTL: a.cfg.CacheTTL, CoalesceTimeout: a.cfg.CoalesceTimeout},
		a.logger,
	)
}

// run executes one tripctl invocation and releases the app afterwards, even
// when the command failed.
func run(d deps, args []string) error {
	root, cleanup := newRootCmd(d)
	defer cleanup()
	root.SetArgs(args)
	return root.Execute()
}

func newRootCmd(d deps) (*cobra.Command, func()) {
	var a *app
	root := &cobra.Command{
		Use:           "tripctl",
		Short:         "Plan trips from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp(d)
			return err
		},
	}
	root.SetOut(d.out)
	root.SetErr(d.errOut)

	get := func() *app { return a }
	root.AddCommand(
		newLoginCmd(get),
		newLogoutCmd(get),
		newMeCmd(get),
		newPlansCmd(get),
		newItemsCmd(get),
		newParticipantsCmd(get),
		newInviteCmd(get),
		newForecastCmd(get),
	)
	return root, func() {
		if a != nil {
			a.close()
		}
	}
}
