package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/liamg/vulnscan/scan"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var sweepParallelism = scan.DefaultSweepConcurrency
var sweepRate int
var showDevices bool

func init() {
	sweepCmd.Flags().IntVarP(&sweepParallelism, "workers", "w", sweepParallelism, "Maximum simultaneous pings")
	sweepCmd.Flags().IntVarP(&sweepRate, "rate", "r", sweepRate, "Maximum pings per second (0 for no limit)")
	sweepCmd.Flags().BoolVarP(&showDevices, "devices", "d", showDevices, "Show MAC address, manufacturer and name of live local hosts")
	rootCmd.AddCommand(sweepCmd)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep [network]",
	Short: "Find live hosts in a network with ICMP echo requests",
	Long:  `Pings every usable host address of a network such as 192.168.1.0/24 in parallel and lists the hosts that reply.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {

		hosts, err := scan.ExpandNetwork(args[0])
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		startTime := time.Now()
		log.Debugf("Sweeping %d hosts in %s...", len(hosts), args[0])

		sweeper := scan.NewSweeper(scan.NewICMPPinger(), sweepRate)

		alive, err := sweeper.Sweep(ctx, hosts, seconds(timeoutSeconds), sweepParallelism)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		if showDevices {
			devices := scan.LookupDevices(ctx, alive)
			if jsonOutput {
				printJSON(devices)
				return
			}
			for _, d := range devices {
				fmt.Printf("%s%s%s%s\n", pad(d.IP, 18), pad(d.MAC, 20), pad(d.Manufacturer, 32), d.Name)
			}
		} else {
			if jsonOutput {
				printJSON(alive)
				return
			}
			for _, ip := range alive {
				fmt.Println(ip)
			}
		}

		fmt.Printf("\n%d of %d hosts up, sweep complete in %s.\n", len(alive), len(hosts), time.Since(startTime).String())
	},
}

func pad(input string, length int) string {
	for len(input) < length {
		input += " "
	}
	return input
}
