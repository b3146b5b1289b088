package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/kuitter-gate/internal/models"
)

var (
	loginEmail    string
	loginPassword string
	routeFrom     string

	profileType         string
	profileUsername     string
	profileFromSettings bool

	answers      []string
	goals        []string
	timelineDays int
	themeToggle  bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	RunE: func(cmd *cobra.Command, _ []string) error {
		password := loginPassword
		if password == "" {
			password = os.Getenv("KUITTER_PASSWORD")
		}
		if loginEmail == "" || password == "" {
			return errors.New("email and password are required")
		}
		d, _, err := app.Login(cmd.Context(), loginEmail, password)
		if err != nil {
			return err
		}
		printDecision(cmd.OutOrStdout(), d)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear everything stored on this device",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := app.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "logged out")
		return nil
	},
}

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Mount a screen and print where the gate sends the user",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var from models.Route
		if err := from.UnmarshalText([]byte(routeFrom)); err != nil {
			return err
		}
		d, _, err := app.Show(cmd.Context(), from)
		printDecision(cmd.OutOrStdout(), d)
		return err
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the subscription and trial state of this device",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st := app.Status(cmd.Context())
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "status: %s\n", st.Status)
		if st.StartedAt != nil {
			fmt.Fprintf(w, "trial started: %s\n", st.StartedAt.Format(time.RFC3339))
		}
		if st.Status == models.StatusTrial && !st.Fallback {
			fmt.Fprintf(w, "time remaining: %s\n", st.TimeRemaining.Round(time.Second))
		}
		if st.Fallback {
			fmt.Fprintln(w, "local storage unavailable, trial assumed")
		}
		return nil
	},
}

var activateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Record a purchase and leave the paywall",
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, _, err := app.Activate(cmd.Context())
		if err != nil {
			return err
		}
		printDecision(cmd.OutOrStdout(), d)
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Profile visibility and username",
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Choose profile visibility and username",
	RunE: func(cmd *cobra.Command, _ []string) error {
		req := models.ProfileTypeRequest{ProfileType: profileType, Username: profileUsername}
		route, navigated, err := app.SaveProfile(cmd.Context(), req, profileFromSettings)
		if err != nil {
			return err
		}
		if !navigated {
			fmt.Fprintf(cmd.OutOrStdout(), "saved, staying on %s\n", models.RouteVisibility)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved, next: %s\n", route)
		return nil
	},
}

var usernameCmd = &cobra.Command{
	Use:   "username",
	Short: "Username tools",
}

var usernameCheckCmd = &cobra.Command{
	Use:   "check NAME",
	Short: "Check whether a username is valid and free",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := app.CheckUsername(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is available\n", strings.ToLower(args[0]))
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is already taken\n", strings.ToLower(args[0]))
		return nil
	},
}

var onboardingCmd = &cobra.Command{
	Use:   "onboarding",
	Short: "Onboarding questionnaire",
}

var onboardingAnswersCmd = &cobra.Command{
	Use:   "answers",
	Short: "Submit onboarding answers, e.g. --answer substance=alcohol,nicotine",
	RunE: func(cmd *cobra.Command, _ []string) error {
		parsed, err := parseAnswers(answers)
		if err != nil {
			return err
		}
		route, _, err := app.SaveAnswers(cmd.Context(), models.OnboardingAnswersRequest{Answers: parsed})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved, next: %s\n", route)
		return nil
	},
}

var onboardingStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show onboarding progress",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := app.Onboarding(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "answers: %t\ngoals: %t\ncomplete: %t\n",
			st.AnsweredQuestions, st.RecoveryGoalsSet, st.Complete())
		return nil
	},
}

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Recovery goals",
}

var goalsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set recovery goals and a timeline",
	RunE: func(cmd *cobra.Command, _ []string) error {
		req := models.RecoveryGoalsRequest{Goals: goals, TimelineDays: timelineDays}
		route, _, err := app.SaveGoals(cmd.Context(), req)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved, next: %s\n", route)
		return nil
	},
}

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Show or toggle the color theme",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !themeToggle {
			fmt.Fprintln(cmd.OutOrStdout(), app.Theme(cmd.Context()))
			return nil
		}
		t, err := app.ToggleTheme(cmd.Context())
		fmt.Fprintln(cmd.OutOrStdout(), t)
		return err
	},
}

// parseAnswers разбирает пары question=option1,option2.
func parseAnswers(pairs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(pairs))
	for _, p := range pairs {
		q, opts, ok := strings.Cut(p, "=")
		q = strings.TrimSpace(q)
		if !ok || q == "" || strings.TrimSpace(opts) == "" {
			return nil, fmt.Errorf("answer %q must look like question=option[,option]", p)
		}
		for _, o := range strings.Split(opts, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out[q] = append(out[q], o)
			}
		}
	}
	return out, nil
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password (default $KUITTER_PASSWORD)")

	routeCmd.Flags().StringVar(&routeFrom, "from", models.RouteNone.String(), "screen the user is on")

	profileSetCmd.Flags().StringVar(&profileType, "type", "", "public or anonymous")
	profileSetCmd.Flags().StringVar(&profileUsername, "username", "", "username")
	profileSetCmd.Flags().BoolVar(&profileFromSettings, "from-settings", false, "return to settings after saving")
	profileCmd.AddCommand(profileSetCmd)

	usernameCmd.AddCommand(usernameCheckCmd)

	onboardingAnswersCmd.Flags().StringArrayVar(&answers, "answer", nil, "question=option[,option], repeatable")
	onboardingCmd.AddCommand(onboardingAnswersCmd, onboardingStatusCmd)

	goalsSetCmd.Flags().StringArrayVar(&goals, "goal", nil, "recovery goal, repeatable")
	goalsSetCmd.Flags().IntVar(&timelineDays, "timeline", 30, "timeline in days: 7, 30, 90, 180 or 365")
	goalsCmd.AddCommand(goalsSetCmd)

	themeCmd.Flags().BoolVar(&themeToggle, "toggle", false, "switch between dark and light")
}
