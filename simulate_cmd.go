package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/autoplay/internal/config"
	"github.com/dgnsrekt/autoplay/internal/sim"
	"github.com/dgnsrekt/autoplay/pkg/autoplay"
	"github.com/dgnsrekt/autoplay/pkg/platform"
	"github.com/dgnsrekt/autoplay/ui"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const iosUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148"

var (
	simUserAgent   string
	simMobile      bool
	simGesture     string
	simGestureWait time.Duration
	simClips       int
	simHide        bool
	simInteractive bool

	simulateCmd = &cobra.Command{
		Use:   "simulate",
		Short: "Run the unlock flow against a simulated browser policy",
		Long: paragraph(fmt.Sprintf("\n%s a page that blocks audible playback until a user gesture. "+
			"Clips are attempted before and after the gesture so every strategy can be seen.", keyword("Simulate"))),
		Example: paragraph("autoplay simulate\nautoplay simulate --mobile --gesture-after 2s\nautoplay simulate --interactive"),
		Args:    cobra.NoArgs,
		RunE:    runSimulate,
	}
)

func init() {
	simulateCmd.Flags().StringVar(&simUserAgent, "ua", "", "user agent of the simulated page")
	simulateCmd.Flags().BoolVar(&simMobile, "mobile", false, "simulate an iPhone")
	simulateCmd.Flags().StringVar(&simGesture, "gesture", string(autoplay.GestureClick), "gesture to deliver")
	simulateCmd.Flags().DurationVar(&simGestureWait, "gesture-after", time.Second, "deliver the gesture after this long (0 never delivers one)")
	simulateCmd.Flags().IntVar(&simClips, "clips", 2, "number of clips to autoplay")
	simulateCmd.Flags().BoolVar(&simHide, "hide", false, "hide and show the page after unlocking")
	simulateCmd.Flags().BoolVarP(&simInteractive, "interactive", "i", false, "deliver gestures from the keyboard in a tui")
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfg, e, err := loadConfig()
	if err != nil {
		return err
	}

	ua := userAgent(simUserAgent).UserAgent()
	if simMobile {
		ua = iosUserAgent
	}
	kind := autoplay.GestureKind(simGesture)
	if !slices.Contains(autoplay.UnlockGestures, kind) {
		return fmt.Errorf("unknown gesture %q", simGesture)
	}

	host := sim.NewHost(ua)
	clock := clockwork.NewRealClock()
	st, err := newStack(cfg, e, stackOptions{
		backend:    host.Policy,
		gestures:   host.Gestures,
		visibility: host.Visibility,
		platform:   platform.Static(ua),
		clock:      clock,
	})
	if err != nil {
		return err
	}
	defer st.coord.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	live := newLiveDefaults(cfg)
	live.watch(ctx)

	clips := make([]*sim.Clip, simClips)
	for i := range clips {
		clips[i] = host.Policy.NewClip(fmt.Sprintf("clip-%d", i+1))
	}

	if simInteractive {
		return runSimulateTUI(ctx, cfg, st, host, clips, live)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "platform: %s\n", keyword(st.coord.Platform().String()))

	fmt.Fprintln(w, "\nbefore any gesture:")
	if err := attemptAll(ctx, w, st.engine, clips, live); err != nil {
		return err
	}

	u := st.coord.EnsureUnlocked()
	if simGestureWait > 0 {
		clock.AfterFunc(simGestureWait, func() { host.Gesture(kind) })
		fmt.Fprintf(w, "\nwaiting for %s in %s\n", kind, simGestureWait)
	} else {
		fmt.Fprintf(w, "\nwaiting up to %s for a gesture that never comes\n", cfg.Unlock.Timeout)
	}
	if !u.Wait(ctx) {
		fmt.Fprintf(w, "unlock: %s\n", st.coord.State())
		return fmt.Errorf("audio stayed locked: %w", autoplay.ErrGestureTimeout)
	}
	fmt.Fprintf(w, "unlock: %s\n", keyword(st.coord.State().String()))

	fmt.Fprintln(w, "\nafter the gesture:")
	if err := attemptAll(ctx, w, st.engine, clips, live); err != nil {
		return err
	}

	if simHide {
		host.Hide()
		fmt.Fprintf(w, "\npage hidden: context %s\n", st.coord.SharedContext().State())
		host.Show()
		fmt.Fprintf(w, "page shown:  context %s\n", st.coord.SharedContext().State())
	}
	return nil
}

// attemptAll autoplays every clip concurrently and prints one line per clip.
func attemptAll(ctx context.Context, w io.Writer, engine *autoplay.Engine, clips []*sim.Clip, live *liveDefaults) error {
	lines := make([]string, len(clips))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for i, clip := range clips {
		i, clip := i, clip
		g.Go(func() error {
			fellBack := false
			opts := append(live.Options(), autoplay.WithOnFallback(func() { fellBack = true }))
			ok := engine.AttemptAutoplay(ctx, clip, opts...)

			line := fmt.Sprintf("  %s: blocked, fallback=%t", clip.Name(), fellBack)
			switch {
			case ok && clip.Muted():
				line = fmt.Sprintf("  %s: %s", clip.Name(), keyword("playing (muted start)"))
			case ok:
				line = fmt.Sprintf("  %s: %s", clip.Name(), keyword("playing"))
			}
			log.Debug("Simulated autoplay", "clip", clip.Name(), "ok", ok, "plays", clip.Plays())

			mu.Lock()
			lines[i] = line
			mu.Unlock()
			return ctx.Err()
		})
	}
	err := g.Wait()
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	return err //nolint:wrapcheck
}

func runSimulateTUI(ctx context.Context, cfg *config.Config, st *stack, host *sim.Host, clips []*sim.Clip, live *liveDefaults) error {
	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	uiCfg.Coordinator = st.coord
	uiCfg.Engine = st.engine
	uiCfg.Gestures = ui.EmitterFunc(host.Gesture)
	uiCfg.Visibility = host.Visibility
	uiCfg.Options = live.Options
	uiCfg.SuspendOnBlur = cfg.Audio.SuspendOnBlur
	for _, clip := range clips {
		uiCfg.Tracks = append(uiCfg.Tracks, ui.Track{
			Name: clip.Name(),
			Open: func() (autoplay.Clip, error) { return clip, nil },
		})
	}
	return ui.Run(ctx, uiCfg) //nolint:wrapcheck
}
