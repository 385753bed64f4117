// signstream: interactive client for live ASL recognition
//
// Captures webcam frames, streams them to the recognition service over
// WebSocket, and prints recognition updates as they arrive.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/signstream/go-signstream/internal/config"
	"github.com/signstream/go-signstream/internal/log"
	"github.com/signstream/go-signstream/pkg/backend"
	"github.com/signstream/go-signstream/pkg/capture"
	"github.com/signstream/go-signstream/pkg/identity"
	"github.com/signstream/go-signstream/pkg/recognition"
	"github.com/signstream/go-signstream/pkg/session"
	"github.com/signstream/go-signstream/pkg/transport"
)

func main() {
	// A .env file is optional; variables already set win over it.
	_ = godotenv.Load()

	device := flag.Int("device", 0, "Camera device index")
	remote := flag.String("remote", "", "WebRTC signalling URL for a remote camera")
	serviceURL := flag.String("service", config.ServiceURL(), "Recognition service base URL")
	fps := flag.Int("fps", session.DefaultConfig().Framerate, "Frames per second to stream")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		log.Init("debug")
	} else {
		log.Init("warn")
	}

	wsURL, err := recognition.URL(*serviceURL)
	if err != nil {
		fmt.Printf("❌ Bad service URL: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("🤟 SignStream")
	fmt.Println("   Live ASL recognition client")
	fmt.Printf("   Service: %s\n", wsURL)
	fmt.Println()

	var source capture.Source
	if *remote != "" {
		fmt.Printf("📡 Using remote camera via %s\n", *remote)
		source = capture.NewRemote(*remote)
	} else {
		cam, err := capture.NewCamera(capture.WithDevice(*device))
		if err != nil {
			fmt.Printf("❌ Camera configuration: %v\n", err)
			os.Exit(1)
		}
		source = cam
	}

	channel, err := transport.NewClient(transport.WithURL(wsURL))
	if err != nil {
		fmt.Printf("❌ Transport configuration: %v\n", err)
		os.Exit(1)
	}

	ctrl, err := session.New(source, channel, session.WithFramerate(*fps))
	if err != nil {
		fmt.Printf("❌ Session configuration: %v\n", err)
		os.Exit(1)
	}

	ctrl.OnUpdate(newSnapshotPrinter())

	app := &client{
		ctrl:    ctrl,
		channel: channel,
		wsURL:   wsURL,
	}
	app.initIdentity()

	// Ctrl+C stops the session before exiting.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n👋 Stopping...")
		_ = ctrl.Stop()
		os.Exit(0)
	}()

	app.repl()

	_ = ctrl.Stop()
	fmt.Println("👋 Goodbye!")
}

// client bundles the pieces the command loop drives.
type client struct {
	ctrl    *session.Controller
	channel *transport.Client
	wsURL   string

	idp  *identity.Google
	jobs *backend.Client
}

// initIdentity wires the optional Google login and the backend client
// behind it. Both stay nil without OAuth credentials in the environment.
func (a *client) initIdentity() {
	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return
	}

	idp, err := identity.NewGoogle(identity.GoogleConfig{
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})
	if err != nil {
		fmt.Printf("⚠️  Google login unavailable: %v\n", err)
		return
	}

	jobs, err := backend.New(idp, backend.WithBaseURL(config.BackendURL()))
	if err != nil {
		fmt.Printf("⚠️  Backend unavailable: %v\n", err)
		return
	}

	a.idp = idp
	a.jobs = jobs
	if idp.Authenticated() {
		fmt.Println("🔓 Signed in from a previous session")
	}
}

func (a *client) repl() {
	fmt.Println("Commands: start, pause, resume, reset, status, stop, login, logout, jobs <keywords>, quit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)

		switch strings.ToLower(parts[0]) {
		case "start":
			a.start()
		case "pause":
			if err := a.ctrl.Pause(); err != nil {
				fmt.Printf("⚠️  %v\n", err)
			}
		case "resume":
			if err := a.ctrl.Resume(); err != nil {
				fmt.Printf("⚠️  %v\n", err)
			}
		case "reset":
			a.ctrl.Reset()
		case "status":
			a.printStatus()
		case "stop":
			if err := a.ctrl.Stop(); err != nil {
				fmt.Printf("⚠️  %v\n", err)
			}
		case "login":
			a.login(scanner)
		case "logout":
			a.logout()
		case "jobs":
			a.searchJobs(strings.Join(parts[1:], " "))
		case "quit", "exit":
			return
		default:
			fmt.Printf("Unknown command %q\n", parts[0])
		}
	}
}

// start brings the session up and translates failures into messages
// that say which part failed.
func (a *client) start() {
	err := a.ctrl.Start(context.Background())
	if err == nil {
		fmt.Println("✅ Session active. Sign away!")
		return
	}

	switch {
	case capture.IsPermissionDenied(err):
		fmt.Println("❌ Camera permission denied. Check the OS camera settings.")
	case capture.IsDeviceUnavailable(err):
		fmt.Println("❌ Camera unavailable. Is another application using it?")
	case transport.IsConnectionError(err):
		fmt.Printf("❌ Could not reach the recognition service at %s\n", a.wsURL)
	default:
		fmt.Printf("❌ Start failed: %v\n", err)
	}
}

func (a *client) printStatus() {
	snap := a.ctrl.Snapshot()
	stats := a.channel.Stats()

	fmt.Printf("   State:      %s\n", snap.State)
	if snap.SessionID != "" {
		fmt.Printf("   Session:    %s\n", snap.SessionID)
	}
	fmt.Printf("   Sentence:   %q\n", snap.Sentence)
	fmt.Printf("   Analyzed:   %q\n", snap.AnalyzedSentence)
	if snap.Prediction != "" {
		fmt.Printf("   Prediction: %s (%.0f%%)\n", snap.Prediction, snap.Confidence*100)
	}
	if snap.RemoteError != "" {
		fmt.Printf("   Service:    ⚠️  %s\n", snap.RemoteError)
	}
	if snap.Cause != nil {
		fmt.Printf("   Error:      %v\n", snap.Cause)
	}
	fmt.Printf("   Frames:     %d sent, %d dropped\n", stats.FramesSent, stats.FramesDropped)
	fmt.Printf("   Events:     %d received, %d malformed\n", stats.EventsReceived, stats.EventsDropped)
}

// login runs the OAuth consent flow in the terminal and syncs the
// profile to the backend.
func (a *client) login(scanner *bufio.Scanner) {
	if a.idp == nil {
		fmt.Println("⚠️  Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET to enable login")
		return
	}

	ctx := context.Background()

	if !a.idp.Authenticated() {
		fmt.Println("Open this URL in a browser and authorize SignStream:")
		fmt.Println()
		fmt.Println("  " + a.idp.AuthURL())
		fmt.Println()
		fmt.Print("Paste the code parameter from the callback URL: ")
		if !scanner.Scan() {
			return
		}
		code := strings.TrimSpace(scanner.Text())
		if code == "" {
			fmt.Println("⚠️  No code entered")
			return
		}
		if err := a.idp.Exchange(ctx, code); err != nil {
			fmt.Printf("❌ Login failed: %v\n", err)
			return
		}
	}

	profile, err := a.idp.Profile(ctx)
	if err != nil {
		fmt.Printf("❌ Could not fetch profile: %v\n", err)
		return
	}
	fmt.Printf("✅ Signed in as %s <%s>\n", profile.Name, profile.Email)

	if err := a.jobs.UpsertProfile(ctx, profile); err != nil {
		fmt.Printf("⚠️  Profile sync failed: %v\n", err)
	}
}

func (a *client) logout() {
	if a.idp == nil {
		return
	}
	if err := a.idp.Disconnect(); err != nil {
		fmt.Printf("⚠️  %v\n", err)
		return
	}
	fmt.Println("✅ Signed out")
}

// searchJobs runs a keyword search against the backend and lists the
// results.
func (a *client) searchJobs(keywords string) {
	if a.jobs == nil {
		fmt.Println("⚠️  Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET to enable job search")
		return
	}
	if keywords == "" {
		fmt.Println("Usage: jobs <keywords>")
		return
	}

	postings, err := a.jobs.SearchJobs(context.Background(), backend.JobQuery{Keywords: keywords})
	if err != nil {
		fmt.Printf("❌ Job search failed: %v\n", err)
		return
	}
	if len(postings) == 0 {
		fmt.Println("No matching jobs found")
		return
	}

	for i, job := range postings {
		fmt.Printf("%2d. %s at %s (%s)\n", i+1, job.Title, job.Company, job.Location)
		if job.Salary != nil {
			fmt.Printf("    💰 %s\n", *job.Salary)
		}
		fmt.Printf("    %s\n", job.URL)
	}
}

// newSnapshotPrinter returns an OnUpdate callback that prints a line
// whenever something the user can see changed. Confidence alone moving
// between frames does not warrant a reprint.
func newSnapshotPrinter() func(session.Snapshot) {
	var mu sync.Mutex
	var last string

	return func(snap session.Snapshot) {
		key := fmt.Sprintf("%d|%s|%s|%s|%s", snap.State, snap.Sentence, snap.AnalyzedSentence, snap.Prediction, snap.RemoteError)

		mu.Lock()
		changed := key != last
		last = key
		mu.Unlock()
		if !changed {
			return
		}

		switch snap.State {
		case session.StateError:
			fmt.Printf("\n💥 Session error: %v\n> ", snap.Cause)
			return
		case session.StateIdle, session.StateConnecting:
			return
		}

		line := ""
		if snap.Prediction != "" {
			line = fmt.Sprintf("🔮 %s (%.0f%%)", snap.Prediction, snap.Confidence*100)
		}
		if snap.Sentence != "" {
			line += fmt.Sprintf("  🔤 %s", snap.Sentence)
		}
		if snap.AnalyzedSentence != "" {
			line += fmt.Sprintf("  💬 %s", snap.AnalyzedSentence)
		}
		if snap.RemoteError != "" {
			line += fmt.Sprintf("  ⚠️  %s", snap.RemoteError)
		}
		if line == "" {
			return
		}
		fmt.Printf("\n%s\n> ", line)
	}
}
