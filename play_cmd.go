package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/autoplay/internal/audio"
	"github.com/dgnsrekt/autoplay/internal/config"
	"github.com/dgnsrekt/autoplay/internal/events"
	"github.com/dgnsrekt/autoplay/pkg/autoplay"
	"github.com/dgnsrekt/autoplay/ui"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

var (
	playUserAgent string
	playMouse     bool

	playCmd = &cobra.Command{
		Use:   "play FILE.wav...",
		Short: "Play WAV files once audio has been unlocked",
		Long: paragraph(fmt.Sprintf("\n%s WAV files through the speakers. Audio unlocks on the first key press "+
			"or click in the tui. Without a terminal, each line read from stdin counts as a key press.", keyword("Play"))),
		Example: paragraph("autoplay play intro.wav\necho | autoplay play intro.wav voice.wav"),
		Args:    cobra.MinimumNArgs(1),
		RunE:    runPlay,
	}
)

func init() {
	playCmd.Flags().StringVar(&playUserAgent, "ua", "", "user agent used for platform detection")
	playCmd.Flags().BoolVarP(&playMouse, "mouse", "m", false, "treat mouse clicks as gestures")
}

type loadedClip struct {
	name string
	pcm  *audio.PCM
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, e, err := loadConfig()
	if err != nil {
		return err
	}

	format := audio.Format{
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
		BufferSize: cfg.Audio.BufferSize,
	}
	loaded, err := loadClips(args, format)
	if err != nil {
		return err
	}

	backend := audio.NewBackend(format)
	gestures := events.NewGestureBus()
	visibility := events.NewVisibilityBus()
	st, err := newStack(cfg, e, stackOptions{
		backend:    backend,
		gestures:   gestures,
		visibility: visibility,
		platform:   userAgent(playUserAgent),
	})
	if err != nil {
		return err
	}
	defer st.coord.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	live := newLiveDefaults(cfg)
	live.watch(ctx)

	if term.IsTerminal(int(os.Stdout.Fd())) {
		return runPlayTUI(ctx, cfg, st, backend, gestures, visibility, loaded, live)
	}
	return runPlayHeadless(ctx, cmd.OutOrStdout(), st, backend, gestures, loaded, live)
}

func loadClips(paths []string, format audio.Format) ([]loadedClip, error) {
	clips := make([]loadedClip, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("unable to open file: %w", err)
		}
		pcm, err := audio.DecodeWAV(f, format)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		log.Debug("Loaded clip", "path", path, "duration", pcm.Duration)
		clips = append(clips, loadedClip{name: filepath.Base(path), pcm: pcm})
	}
	return clips, nil
}

func openClip(backend *audio.Backend, pcm *audio.PCM) (autoplay.Clip, error) {
	clip, err := backend.NewClip(pcm)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return clip, nil
}

func runPlayTUI(ctx context.Context, cfg *config.Config, st *stack, backend *audio.Backend,
	gestures *events.GestureBus, visibility *events.VisibilityBus, loaded []loadedClip, live *liveDefaults,
) error {
	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	uiCfg.Coordinator = st.coord
	uiCfg.Engine = st.engine
	uiCfg.Gestures = gestures
	uiCfg.Visibility = visibility
	uiCfg.Options = live.Options
	uiCfg.EnableMouse = playMouse
	uiCfg.SuspendOnBlur = cfg.Audio.SuspendOnBlur
	uiCfg.ExitWhenDone = true
	for _, c := range loaded {
		uiCfg.Tracks = append(uiCfg.Tracks, ui.Track{
			Name: c.name,
			Open: func() (autoplay.Clip, error) { return openClip(backend, c.pcm) },
		})
	}
	return ui.Run(ctx, uiCfg) //nolint:wrapcheck
}

// runPlayHeadless unlocks on the first stdin line, then plays every clip
// concurrently and waits for them to finish.
func runPlayHeadless(ctx context.Context, w io.Writer, st *stack, backend *audio.Backend,
	gestures *events.GestureBus, loaded []loadedClip, live *liveDefaults,
) error {
	u := st.coord.EnsureUnlocked()
	if !u.Result() {
		fmt.Fprintln(w, "press enter to enable audio")
		go emitLines(os.Stdin, gestures)
	}
	if !u.Wait(ctx) {
		return fmt.Errorf("audio stayed locked: %w", autoplay.ErrGestureTimeout)
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range loaded {
		c := c
		g.Go(func() error {
			clip, err := backend.NewClip(c.pcm)
			if err != nil {
				return fmt.Errorf("%s: %w", c.name, err)
			}
			defer clip.Close() //nolint:errcheck

			opts := append(live.Options(), autoplay.WithOnFallback(func() {
				log.Warn("Clip could not autoplay", "clip", c.name)
			}))
			if !st.engine.AttemptAutoplay(ctx, clip, opts...) {
				mu.Lock()
				fmt.Fprintf(w, "%s: blocked\n", c.name)
				mu.Unlock()
				return nil
			}

			mu.Lock()
			fmt.Fprintf(w, "%s: playing (%s)\n", c.name, clip.Duration())
			mu.Unlock()
			return clip.Wait(ctx) //nolint:wrapcheck
		})
	}
	return g.Wait() //nolint:wrapcheck
}

// emitLines turns each line read from r into a key-down gesture.
func emitLines(r io.Reader, gestures *events.GestureBus) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if n := gestures.Emit(autoplay.GestureKeyDown); n == 0 {
			log.Debug("Gesture reached no listeners")
		}
	}
}
