package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"air-firmware/pkg/globals"
	"air-firmware/pkg/logger"
	"air-firmware/pkg/system"
	"air-firmware/pkg/wifi"
)

func newWifiCommand(fs afero.Fs, opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wifi",
		Short: "Inspect the wifi cards of the unit",
	}

	var fromManifest bool
	cards := &cobra.Command{
		Use:   "cards",
		Short: "Print the detected wifi cards as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := loadCards(fs, fromManifest)
			if err != nil {
				return err
			}
			data, err := wifi.MarshalCards(list)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cards.Flags().BoolVar(&fromManifest, "manifest", false, "Read the cards from the manifest instead of probing.")
	cmd.AddCommand(cards)

	cmd.AddCommand(&cobra.Command{
		Use:   "supports <interface> <frequency>",
		Short: "Check whether a card can use a frequency in MHz",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			freq, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid frequency %q: %w", args[1], err)
			}
			p, err := detectPlatform(fs, opts)
			if err != nil {
				return err
			}
			list, err := loadCards(fs, false)
			if err != nil {
				return err
			}
			for _, c := range list {
				if c.DeviceName == args[0] {
					fmt.Fprintln(cmd.OutOrStdout(), wifi.SupportsFrequency(p, c, uint32(freq)))
					return nil
				}
			}
			return fmt.Errorf("no wifi card %s", args[0])
		},
	})

	return cmd
}

func loadCards(fs afero.Fs, fromManifest bool) ([]wifi.WiFiCard, error) {
	if fromManifest {
		return wifi.ReadManifest(fs, globals.WifiManifestPath)
	}
	cards, err := wifi.Discover(fs, system.ExecRunner{})
	if err != nil {
		return nil, err
	}
	logger.Named("wifi").Debugf("Wifi cards %s", wifi.DebugCards(cards))
	return cards, nil
}
