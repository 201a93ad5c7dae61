package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"air-firmware/pkg/camconfig"
	"air-firmware/pkg/globals"
	"air-firmware/pkg/logger"
	"air-firmware/pkg/system"
)

type skipReboot struct{}

func (skipReboot) Reboot() {
	logger.Named("camconfig").Info("Reboot skipped, restart the unit to use the new camera configuration")
}

func newCamConfigCommand(fs afero.Fs, opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "camconfig",
		Short: "Inspect or change the camera OS configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the known camera configurations",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, c := range camconfig.All() {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", int(c), c)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the active camera configuration",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			c := camconfig.NewStore(fs, globals.CamConfigPath, logger.Named("camconfig")).Load()
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", int(c), c)
		},
	})

	var noReboot bool
	set := &cobra.Command{
		Use:   "set <id|name>",
		Short: "Switch the camera configuration and reboot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer logger.Sync()
			value, err := parseCamConfigArg(args[0])
			if err != nil {
				return err
			}
			p, err := detectPlatform(fs, opts)
			if err != nil {
				return err
			}

			var rebooter system.Rebooter = system.SystemdRebooter{Runner: system.ExecRunner{}}
			if noReboot {
				rebooter = skipReboot{}
			}
			h := newCamConfigHandler(fs, p, opts, rebooter)

			err = h.Submit(value)
			if errors.Is(err, camconfig.ErrNoOp) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already active\n", h.Current())
				return nil
			}
			if err != nil {
				return err
			}
			r := <-h.Done()
			if r.Err != nil {
				return r.Err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s applied\n", r.Config)
			return nil
		},
	}
	set.Flags().BoolVar(&noReboot, "no-reboot", false, "Write the new configuration but do not reboot.")
	cmd.AddCommand(set)

	return cmd
}

// parseCamConfigArg accepts either the numeric id or the configuration name.
// Out of range ids are passed through so the handler reports them.
func parseCamConfigArg(arg string) (int, error) {
	if v, err := strconv.Atoi(arg); err == nil {
		return v, nil
	}
	c, err := camconfig.ParseName(arg)
	if err != nil {
		return 0, err
	}
	return int(c), nil
}
