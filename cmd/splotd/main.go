package main

import (
	"fmt"
	"os"

	"github.com/splotd/splotd/intercept"
	"github.com/splotd/splotd/ports"
	"github.com/splotd/splotd/splotd"
	"github.com/urfave/cli"
)

// fatal exits the process and prints out error information
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[splotd] %v\n", err)
	os.Exit(1)
}

// listPorts prints the available serial devices
func listPorts() error {
	available, err := ports.List()
	if err != nil {
		return err
	}
	if len(available) == 0 {
		fmt.Println("No serial ports found.")
		return nil
	}
	fmt.Println("Available serial ports:")
	for _, p := range available {
		fmt.Printf("  %s\n", p.Format())
	}
	return nil
}

// run assembles the daemon from the config file and command line and blocks
// until shutdown
func run(ctx *cli.Context) error {
	if ctx.Bool("list") {
		return listPorts()
	}
	shutdownInterceptor, err := intercept.InitInterceptor()
	if err != nil {
		return err
	}
	config, err := splotd.InitConfig()
	if err != nil {
		return err
	}
	// command line overrides the config file
	if ctx.Args().First() != "" {
		config.Port = ctx.Args().First()
	}
	if ctx.IsSet("baudrate") {
		config.BaudRate = ctx.Int64("baudrate")
	}
	if ctx.IsSet("points") {
		config.WindowSize = ctx.Int64("points")
	}
	if ctx.IsSet("export-dir") {
		config.ExportDir = ctx.String("export-dir")
	}
	if ctx.IsSet("influx-url") {
		config.InfluxURL = ctx.String("influx-url")
	}
	if ctx.Bool("console") {
		config.ConsoleOutput = true
	}
	if config.Port == "" {
		_ = listPorts()
		return cli.NewExitError("no serial port given", 1)
	}
	log, err := splotd.InitLogger(&config)
	if err != nil {
		return err
	}
	shutdownInterceptor.Logger = &log
	daemon, err := splotd.InitDaemon(&config, &log)
	if err != nil {
		return err
	}
	return splotd.Main(shutdownInterceptor, daemon)
}

// main is the entrypoint for the splotd daemon
func main() {
	app := cli.NewApp()
	app.Name = "splotd"
	app.Usage = "stream, plot and record numeric telemetry from a serial device"
	app.ArgsUsage = "[port]"
	app.Flags = []cli.Flag{
		cli.Int64Flag{
			Name:  "baudrate, b",
			Usage: "baud rate of the serial connection",
			Value: 115200,
		},
		cli.Int64Flag{
			Name:  "points, p",
			Usage: "maximum data points retained per measurement",
			Value: 100,
		},
		cli.BoolFlag{
			Name:  "list, l",
			Usage: "list available serial ports and exit",
		},
		cli.StringFlag{
			Name:  "export-dir",
			Usage: "directory CSV exports are written to",
		},
		cli.StringFlag{
			Name:  "influx-url",
			Usage: "optional InfluxDB endpoint to mirror recorded data to",
		},
		cli.BoolFlag{
			Name:  "console",
			Usage: "log to the console in addition to the logfile",
		},
	}
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
