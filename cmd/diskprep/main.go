// Command diskprep is a declarative bare-metal storage provisioner: it
// inventories local disks, plans a GPT/RAID/LVM layout, renders it to a
// disko-shaped declarative file, and drives an external formatter to
// apply it — or tears a prior layout back down.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/trbarbour/diskprep/pkg/log"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	app := App()
	if err := app.Run(args); err != nil {
		fmt.Fprintf(os.Stderr, "diskprep: %v\n", err)
		return 1
	}
	return 0
}

func App() *cli.App {
	app := cli.NewApp()
	app.Name = "diskprep"
	app.Usage = "declarative bare-metal storage provisioning"
	app.Description = "inventories disks, plans a GPT/RAID/LVM layout, renders and applies it, and tears it back down on request"

	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "path to YAML configuration file", Value: "/etc/diskprep/config.yaml"},
		cli.StringFlag{Name: "log-level", Usage: "zap log level", Value: "info"},
		cli.StringFlag{Name: "log-file", Usage: "path to a rotated log file; console JSON if empty"},
	}

	app.Before = func(c *cli.Context) error {
		lvl, err := log.ParseLogLevel(c.GlobalString("log-level"))
		if err != nil {
			return err
		}
		log.SetLogger(log.CreateLogger(lvl, c.GlobalString("log-file")))
		return nil
	}

	app.Commands = []cli.Command{
		cmdPlanCommand(),
		cmdApplyCommand(),
		cmdCleanupCommand(),
		cmdDetectCommand(),
	}

	return app
}
