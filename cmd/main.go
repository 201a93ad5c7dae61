package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"air-firmware/pkg/api"
	"air-firmware/pkg/camconfig"
	"air-firmware/pkg/config"
	"air-firmware/pkg/globals"
	"air-firmware/pkg/logger"
	"air-firmware/pkg/platform"
	"air-firmware/pkg/relaycomm"
	"air-firmware/pkg/system"
	"air-firmware/pkg/wifi"
)

type options struct {
	log         *logger.Options
	root        string
	listen      string
	relayURL    string
	board       string
	settleDelay time.Duration
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{log: logger.NewOptions()}
	fs := afero.NewOsFs()

	cmd := &cobra.Command{
		Use:          "air-firmware",
		Short:        "Air unit firmware: camera OS configuration and wifi card capabilities",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			globals.SetRoot(opts.root)
			return logger.Init(opts.log, fs)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(fs, opts)
		},
	}

	flags := cmd.PersistentFlags()
	opts.log.AddFlags(flags)
	flags.StringVar(&opts.root, "root", "", "Prefix for every host path, for images mounted elsewhere.")
	flags.StringVar(&opts.board, "board", "", "Skip board detection and use this board (e.g. 'rpi_4b', 'rpi_3b').")
	flags.DurationVar(&opts.settleDelay, "settle-delay", 3*time.Second, "Delay between a camera change and the reboot.")
	cmd.Flags().StringVar(&opts.listen, "listen", ":8090", "Address of the local HTTP API.")
	cmd.Flags().StringVar(&opts.relayURL, "relay-url", "", "Relay websocket URL, overrides relayUrl from config.json.")

	cmd.AddCommand(newCamConfigCommand(fs, opts), newWifiCommand(fs, opts))
	return cmd
}

func detectPlatform(fs afero.Fs, opts *options) (platform.Platform, error) {
	if opts.board == "" {
		return platform.Detect(fs), nil
	}
	board, err := platform.ParseBoard(opts.board)
	if err != nil {
		return platform.Platform{}, err
	}
	p := platform.Platform{Type: platform.PlatformRaspberryPi, Board: board}
	switch board {
	case platform.BoardGenericX86:
		p.Type = platform.PlatformX86
	case platform.BoardJetsonNano:
		p.Type = platform.PlatformJetson
	}
	return p, nil
}

func newCamConfigHandler(fs afero.Fs, p platform.Platform, opts *options, rebooter system.Rebooter) *camconfig.Handler {
	log := logger.Named("camconfig")
	return camconfig.NewHandler(camconfig.Options{
		FS:          fs,
		Platform:    p,
		Store:       camconfig.NewStore(fs, globals.CamConfigPath, log),
		Rebooter:    rebooter,
		Log:         log,
		SettleDelay: opts.settleDelay,
	})
}

func discoverCards(fs afero.Fs) []wifi.WiFiCard {
	log := logger.Named("wifi")
	cards, err := wifi.Discover(fs, system.ExecRunner{})
	if err != nil {
		log.Warnf("Wifi card discovery failed: %v", err)
		return nil
	}
	log.Infof("Wifi cards %s", wifi.DebugCards(cards))
	if err := wifi.WriteManifest(fs, globals.WifiManifestPath, cards); err != nil {
		log.Warnf("%v", err)
	}
	return cards
}

func serve(fs afero.Fs, opts *options) error {
	log := logger.Named("main")
	defer logger.Sync()
	log.Infof("Starting %s", globals.FirmwareVersion)

	if err := config.Init(fs); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	p, err := detectPlatform(fs, opts)
	if err != nil {
		return err
	}
	log.Infof("Platform %s", p)
	if p.Type != platform.PlatformRaspberryPi {
		log.Warn("Camera configuration changes only work on Raspberry Pi boards")
	}

	rebooter := system.SystemdRebooter{Runner: system.ExecRunner{}}
	cards := discoverCards(fs)
	camHandler := newCamConfigHandler(fs, p, opts, rebooter)
	log.Infof("Camera configuration %s", camHandler.Current())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	server := api.NewServer(api.Deps{
		CamConfig: camHandler,
		Platform:  p,
		Cards:     func() []wifi.WiFiCard { return cards },
	})
	g.Go(func() error {
		return server.ListenAndServe(ctx, opts.listen)
	})

	relayURL := opts.relayURL
	if relayURL == "" {
		relayURL = config.Get().GetString("relayUrl")
	}
	if relayURL != "" {
		relaycomm.Init()
		relay := relaycomm.Get()
		relaycomm.RegisterHandlers(relay, relaycomm.Deps{
			CamConfig: camHandler,
			Platform:  p,
			Cards:     func() []wifi.WiFiCard { return cards },
			Rebooter:  rebooter,
		})
		if err := relay.Start(relayURL); err != nil {
			log.Errorf("Failed to start relay comm: %v", err)
		} else {
			g.Go(func() error {
				<-ctx.Done()
				relay.Stop()
				return nil
			})
		}
	}

	g.Go(func() error {
		select {
		case r := <-camHandler.Done():
			if r.Err != nil {
				log.Warnf("Camera configuration %s not applied: %v", r.Config, r.Err)
			}
		case <-ctx.Done():
		}
		return nil
	})

	return g.Wait()
}
