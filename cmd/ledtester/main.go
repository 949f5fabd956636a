package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"ledtester/config"
	"ledtester/internal/api"
	"ledtester/internal/serial"
	"ledtester/internal/ws"
	"ledtester/pkg/arduino"
)

var rootCmd = &cobra.Command{
	Use:   "ledtester",
	Short: "Web test harness for the Arduino LED controller",
	Long: `ledtester serves a local web page and a small HTTP API that forward
JSON commands to an Arduino LED controller over a serial link and relay
the board's replies back to the browser.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web interface",
	Long:  `Open the serial link to the controller and serve the test page and API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Config
		cfg, err := config.Load(cmd.Flags())
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		// 2. Serial link
		log.Printf("Connecting to Arduino on %s at %d baud...", cfg.SerialPort, cfg.BaudRate)
		scfg := serial.DefaultConfig(cfg.SerialPort)
		scfg.Baud = cfg.BaudRate
		port, err := serial.Open(scfg)
		if err != nil {
			log.Printf("Failed to connect to Arduino: %v", err)
			log.Printf("Serving anyway; endpoints will report the board as disconnected")
		} else {
			// The board resets when the port opens and prints its boot
			// banner; wait it out. The banner itself is discarded by the
			// input flush before the first command.
			time.Sleep(cfg.BootDelay)
			log.Printf("Connected to Arduino on %s", cfg.SerialPort)
		}

		// 3. Transport adapter
		client := arduino.NewClient(port, arduino.Options{
			ReadTimeout:     cfg.ReadTimeout,
			SettleDelay:     cfg.SettleDelay,
			HelpSettleDelay: cfg.HelpSettleDelay,
		})
		defer client.Close()

		// 4. Console hub + HTTP handler
		hub := ws.NewHub()
		handler := api.NewHandler(client, hub, cfg)

		r := gin.Default()
		handler.SetupRoutes(r)

		// Start server
		log.Printf("Web interface listening on %s", cfg.Addr)
		return r.Run(cfg.Addr)
	},
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List candidate serial devices",
	Long:  `List serial devices that look like an attached controller board.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports := serial.ListPorts()
		if len(ports) == 0 {
			fmt.Println("No serial devices found")
			return nil
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", config.DefaultAddr, "listen address for the web interface")
	serveCmd.Flags().StringP("serial-port", "p", config.DefaultSerialPort, "serial device of the controller board")
	serveCmd.Flags().IntP("baud", "b", config.DefaultBaudRate, "serial baud rate")
	serveCmd.Flags().String("config", "", "path to a config file (default ./ledtester.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(portsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
