// Command console is the terminal entry point for the Sentinel admin
// console. It restores the saved session (or signs in with the provided
// credentials), prints a dashboard snapshot, and exits.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"sentinel/config"
	"sentinel/internal/gateway"
	"sentinel/services/authapi"
	"sentinel/services/dashboard"
	"sentinel/services/fraud"
	"sentinel/services/session"
)

func main() {
	var (
		username = flag.String("username", "", "sign in as this user (prompts for password)")
		logout   = flag.Bool("logout", false, "clear the saved session and exit")
		wait     = flag.Bool("wait", false, "wait for the fraud API to become healthy before fetching")
	)
	flag.Parse()

	cfg := config.FromEnv()
	setupLogging(cfg)

	tokens, err := session.NewTokenStore(afero.NewOsFs(), cfg.DataDir)
	if err != nil {
		log.Fatalf("console: token store: %v", err)
	}

	authClient := authapi.NewClient(cfg.AuthBaseURL)
	authClient.SetTimeout(cfg.HTTPTimeout)
	sessions := session.NewService(authClient, tokens)

	if *logout {
		sessions.Logout()
		fmt.Println("Signed out.")
		return
	}

	transport := &gateway.Transport{
		Tokens:    tokens,
		Refresher: authClient,
		OnSessionExpired: func() {
			fmt.Fprintln(os.Stderr, "Session expired; sign in again with -username.")
		},
	}
	fraudClient := fraud.NewClient(cfg.APIBaseURL, transport)
	fraudClient.SetTimeout(cfg.HTTPTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sessions.Rehydrate(ctx)

	if !sessions.IsAuthenticated() {
		if *username == "" {
			fmt.Fprintln(os.Stderr, "Not signed in. Run with -username to sign in.")
			os.Exit(1)
		}
		password, err := promptPassword(os.Stdin, os.Stderr)
		if err != nil {
			log.Fatalf("console: read password: %v", err)
		}
		if err := sessions.Login(ctx, *username, password); err != nil {
			fmt.Fprintf(os.Stderr, "Sign-in failed: %v\n", err)
			os.Exit(1)
		}
	}

	user := sessions.User()
	fmt.Printf("Signed in as %s (%s)\n\n", user.Username, user.Role)

	if *wait {
		if err := fraudClient.WaitReady(ctx); err != nil {
			log.Fatalf("console: fraud API not ready: %v", err)
		}
	}

	snap := dashboard.NewService(fraudClient).Fetch(ctx)
	printSnapshot(os.Stdout, snap)
	if snap.Err != nil {
		fmt.Fprintf(os.Stderr, "\nSome panels failed to load: %v\n", snap.Err)
		os.Exit(1)
	}
}

func setupLogging(cfg config.Config) {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	if cfg.LogFile == "" {
		return
	}
	log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}))
}

func promptPassword(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Password: ")
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printSnapshot(w io.Writer, snap *dashboard.Snapshot) {
	if snap.Stats != nil {
		fmt.Fprintf(w, "Alerts: %d total, average score %.1f\n", snap.Stats.Total, snap.Stats.AverageScore)
		for status, count := range snap.Stats.ByStatus {
			fmt.Fprintf(w, "  %-10s %d\n", status, count)
		}
		fmt.Fprintln(w)
	}

	if len(snap.DailyVolume) > 0 {
		fmt.Fprintln(w, "Daily volume:")
		for _, day := range snap.DailyVolume {
			fmt.Fprintf(w, "  %s  %d\n", day.Date, day.Alerts)
		}
		fmt.Fprintln(w)
	}

	if snap.RecentAlerts != nil && len(snap.RecentAlerts.Items) > 0 {
		fmt.Fprintln(w, "Recent alerts:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  ID\tCUSTOMER\tSCORE\tDECISION\tSTATUS")
		for _, alert := range snap.RecentAlerts.Items {
			fmt.Fprintf(tw, "  %s\t%s\t%.0f\t%s\t%s\n",
				shortID(alert.ID), alert.CustomerID, alert.RiskScore, alert.Decision, alert.Status)
		}
		tw.Flush()
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
