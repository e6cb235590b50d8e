package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/liamg/vulnscan/api"
	"github.com/liamg/vulnscan/scan"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var listenAddr = "127.0.0.1:8080"
var allowedOrigins []string

func init() {
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", listenAddr, "Address for the HTTP API to listen on")
	serveCmd.Flags().StringSliceVarP(&allowedOrigins, "allow-origin", "", allowedOrigins, "Extra browser origins allowed to call the API, e.g. http://localhost:3000")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve scans and sweeps over an HTTP API",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		server := &http.Server{
			Addr:              listenAddr,
			Handler:           api.NewAPIServer(api.DefaultScannerFactory, scan.NewICMPPinger(), allowedOrigins...).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errChan := make(chan error, 1)
		go func() {
			log.Infof("Starting API server on %s", listenAddr)
			errChan <- server.ListenAndServe()
		}()

		select {
		case err := <-errChan:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Println(err)
				os.Exit(1)
			}
		case <-ctx.Done():
			log.Infof("Shutting down API server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Errorf("Error shutting down API server: %s", err)
			}
		}
	},
}
