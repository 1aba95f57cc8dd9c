package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kjstillabower/trip-planner/internal/presentation"
	"github.com/kjstillabower/trip-planner/internal/schema"
	"github.com/kjstillabower/trip-planner/internal/session"
)

type appFunc func() *app

func newLoginCmd(get appFunc) *cobra.Command {
	var accessToken, refreshToken string
	var signup bool
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Start a session from identity-provider tokens",
		Long: "Start a session from the tokens issued by the identity provider. With only\n" +
			"--refresh-token the session is obtained through the refresh grant. A pending\n" +
			"invite is claimed once the session is in place.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if accessToken == "" && refreshToken == "" {
				return errors.New("provide --access-token or --refresh-token")
			}

			s := session.Session{AccessToken: accessToken, RefreshToken: refreshToken}
			if accessToken == "" {
				var err error
				s, err = a.refresher.Refresh(cmd.Context(), refreshToken)
				if err != nil {
					return a.fail("sign in", err)
				}
			}

			event := session.EventSignedIn
			if signup {
				event = session.EventSignedUp
			}
			if err := a.sessions.SignIn(cmd.Context(), s, event); err != nil {
				return err
			}
			if s.User.Email != "" {
				fmt.Fprintln(a.out, "Signed in as "+titleStyle.Render(s.User.Email)+".")
			} else {
				fmt.Fprintln(a.out, "Signed in.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&accessToken, "access-token", "", "access token from the identity provider")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "refresh token from the identity provider")
	cmd.Flags().BoolVar(&signup, "signup", false, "announce the session as a new sign-up")
	return cmd
}

func newLogoutCmd(get appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			a.sessions.SignOut(cmd.Context())
			fmt.Fprintln(a.out, "Signed out.")
			return nil
		},
	}
}

func newMeCmd(get appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			me, err := a.api.FetchMe(cmd.Context())
			if err != nil {
				return a.fail("load profile", err)
			}
			fmt.Fprintln(a.out, titleStyle.Render(orDash(me.Email)))
			fmt.Fprintln(a.out, mutedStyle.Render("id "+me.ID))
			return nil
		},
	}
}

func newPlansCmd(get appFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "List and inspect plans",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			plans, err := a.api.FetchPlans(cmd.Context())
			if err != nil {
				return a.fail("load plans", err)
			}
			if len(plans) == 0 {
				renderEmpty(a.out, "No plans yet.")
				return nil
			}
			rows := make([][]string, 0, len(plans))
			for _, p := range plans {
				rows = append(rows, []string{p.PlanID, p.Title, dateRange(p.StartDate, p.EndDate), orDash(p.Status)})
			}
			renderTable(a.out, []string{"ID", "TITLE", "DATES", "STATUS"}, rows)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <planID>",
		Short: "Show one plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			p, err := a.api.FetchPlan(cmd.Context(), args[0])
			if err != nil {
				return a.fail("load plan", err)
			}
			fmt.Fprintln(a.out, titleStyle.Render(p.Title))
			if p.Description != "" {
				fmt.Fprintln(a.out, p.Description)
			}
			renderTable(a.out, []string{"FIELD", "VALUE"}, [][]string{
				{"id", p.PlanID},
				{"status", orDash(p.Status)},
				{"dates", dateRange(p.StartDate, p.EndDate)},
				{"location", describeLocation(p.Location)},
			})
			return nil
		},
	})
	return cmd
}

func newItemsCmd(get appFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Work with a plan's packing and food list",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list <planID>",
		Short: "List the items of a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			items, err := a.api.FetchItems(cmd.Context(), args[0])
			if err != nil {
				return a.fail("load items", err)
			}
			if len(items) == 0 {
				renderEmpty(a.out, "No items yet.")
				return nil
			}
			rows := make([][]string, 0, len(items))
			for _, it := range items {
				qty := strconv.Itoa(it.Quantity)
				if it.Unit != "" {
					qty += " " + it.Unit
				}
				rows = append(rows, []string{it.Name, it.Category, qty, it.Status})
			}
			renderTable(a.out, []string{"NAME", "CATEGORY", "QTY", "STATUS"}, rows)
			return nil
		},
	})
	return cmd
}

func newParticipantsCmd(get appFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "participants",
		Short: "Work with the people on a plan",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list <planID>",
		Short: "List the participants of a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			people, err := a.api.FetchParticipants(cmd.Context(), args[0])
			if err != nil {
				return a.fail("load participants", err)
			}
			if len(people) == 0 {
				renderEmpty(a.out, "Nobody has joined yet.")
				return nil
			}
			rows := make([][]string, 0, len(people))
			for _, p := range people {
				name := p.DisplayName
				if name == "" {
					name = p.Name
					if p.LastName != "" {
						name += " " + p.LastName
					}
				}
				rows = append(rows, []string{name, p.Role, orDash(p.RSVPStatus)})
			}
			renderTable(a.out, []string{"NAME", "ROLE", "RSVP"}, rows)
			return nil
		},
	})
	return cmd
}

func newInviteCmd(get appFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Follow invite links",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "open <planID> <token>",
		Short: "Open an invite link",
		Long: "Open an invite link. When signed in, the invite is claimed right away.\n" +
			"Otherwise the invite is previewed and kept until the next login.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			planID, token := args[0], args[1]

			if _, ok := a.sessions.Current(); ok {
				if _, err := a.api.ClaimInvite(cmd.Context(), planID, token); err != nil {
					return a.fail("join plan", err)
				}
				fmt.Fprintln(a.out, "Joined plan "+planID+".")
				return nil
			}

			inv, err := a.api.FetchInvite(cmd.Context(), planID, token)
			if err != nil {
				return a.fail("open invite", err)
			}
			a.pending.Store(planID, token)

			fmt.Fprintln(a.out, titleStyle.Render(inv.Plan.Title))
			fmt.Fprintln(a.out, mutedStyle.Render(dateRange(inv.Plan.StartDate, inv.Plan.EndDate)+" · "+describeLocation(inv.Plan.Location)))
			fmt.Fprintf(a.out, "You are invited as %s (%s).\n", inv.Participant.Name, inv.Participant.Role)
			fmt.Fprintln(a.out, "Run `tripctl login` to accept.")
			return nil
		},
	})
	return cmd
}

func newForecastCmd(get appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "forecast <planID>",
		Short: "Show the daily forecast for a plan's location and dates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			p, err := a.api.FetchPlan(cmd.Context(), args[0])
			if err != nil {
				return a.fail("load plan", err)
			}

			var loc schema.Location
			if p.Location != nil {
				loc = *p.Location
			}
			if state, ok := presentation.Precheck(loc, p.StartDate, p.EndDate, a.now()); !ok {
				renderEmpty(a.out, presentation.Describe(state))
				return nil
			}

			fc, err := a.newResolver().Resolve(cmd.Context(), loc, p.StartDate, p.EndDate)
			if state := presentation.ForecastStateFor(err); state != presentation.StateReady {
				a.logger.Debug("forecast failed", zap.Error(err))
				renderEmpty(a.out, presentation.Describe(state))
				return nil
			}

			fmt.Fprintln(a.out, titleStyle.Render(p.Title)+" "+mutedStyle.Render(describeLocation(p.Location)))
			rows := make([][]string, 0, len(fc.Days))
			for _, d := range fc.Days {
				rows = append(rows, []string{
					d.Date,
					fmt.Sprintf("%.1f°", d.TemperatureMax),
					fmt.Sprintf("%.1f°", d.TemperatureMin),
					fmt.Sprintf("%.1f mm", d.PrecipitationSum),
					strconv.Itoa(d.WeatherCode),
				})
			}
			renderTable(a.out, []string{"DATE", "HIGH", "LOW", "PRECIP", "CODE"}, rows)
			return nil
		},
	}
}
