package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/liamg/vulnscan/scan"
	"github.com/liamg/vulnscan/version"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var debug bool
var jsonOutput bool
var timeoutSeconds = scan.DefaultTimeout.Seconds()
var parallelism = 200
var bannerParallelism int
var portSelection = "1-1024"
var grabAllPorts bool
var versionRequested bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "verbose", "v", debug, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", jsonOutput, "Output results as JSON")
	rootCmd.PersistentFlags().Float64VarP(&timeoutSeconds, "timeout", "t", timeoutSeconds, "Timeout in seconds for each connection attempt or ping")
	rootCmd.Flags().BoolVarP(&versionRequested, "version", "", versionRequested, "Output version information and exit")
	rootCmd.Flags().IntVarP(&parallelism, "workers", "w", parallelism, "Maximum simultaneous connection attempts")
	rootCmd.Flags().IntVarP(&bannerParallelism, "banner-workers", "", bannerParallelism, "Maximum simultaneous banner grabs (default min(workers, 200))")
	rootCmd.Flags().StringVarP(&portSelection, "ports", "p", portSelection, "Ports to scan. Comma separated, can use hyphens e.g. 22,80,443,8080-8090. Use - or -p- for all ports")
	rootCmd.Flags().BoolVarP(&grabAllPorts, "banner-all", "", grabAllPorts, "Attempt banner grabs on every selected port, not only those found open")
}

var rootCmd = &cobra.Command{
	Use:   "vulnscan [target...]",
	Short: "vulnscan is a port scanner and service identifier",
	Long:  `A TCP connect scanner that grabs banners and guesses the services behind open ports, with an ICMP sweep for finding live hosts.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			log.SetLevel(log.DebugLevel)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {

		if versionRequested {
			fmt.Printf("vulnscan %s\n", version.String())
			return
		}

		if len(args) == 0 {
			fmt.Println("Please specify a target")
			os.Exit(1)
		}

		ports, err := scan.ParsePorts(portSelection)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		startTime := time.Now()

		if !jsonOutput {
			fmt.Printf("\nStarting scan at %s\n\n", startTime.String())
		}
		log.Debugf("Scanning %d ports in %d ranges...", ports.Count(), len(ports))

		var reports []scan.Report

		for _, target := range args {

			log.Debugf("Scanning target %s...", target)

			scanner := scan.NewConnectScanner(scan.ConnectConfig{
				Timeout:           seconds(timeoutSeconds),
				Concurrency:       parallelism,
				BannerConcurrency: bannerParallelism,
				GrabAllPorts:      grabAllPorts,
				OnOpen: func(port int) {
					log.WithField("host", target).Infof("Port found open: %d", port)
				},
			})

			report, err := scanner.Scan(ctx, target, ports)
			if err != nil {
				fmt.Println(err)
				os.Exit(1)
			}

			if jsonOutput {
				reports = append(reports, report)
				continue
			}

			fmt.Println(report.String())
		}

		if jsonOutput {
			printJSON(reports)
			return
		}

		fmt.Printf("Scan complete in %s.\n", time.Since(startTime).String())
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func printJSON(v interface{}) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
