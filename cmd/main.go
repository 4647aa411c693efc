package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/wetland-guardian/cienaga-classifier/internal/delivery"
	"github.com/wetland-guardian/cienaga-classifier/internal/log"
	"github.com/wetland-guardian/cienaga-classifier/internal/properties"
	"github.com/wetland-guardian/cienaga-classifier/internal/ui"
)

func printBanner() {
	figure1 := figure.NewFigure("Cienaga", "isometric1", true)
	figure2 := figure.NewFigure("CLI", "isometric1", true)
	bannercolor.Cyan(figure1.String())
	bannercolor.Cyan(figure2.String())
	fmt.Println()
}

// runMenu starts the interactive menu. A panic is reported to the error webhook before exiting.
func runMenu(svc *delivery.Service) {
	defer func() {
		if r := recover(); r != nil {
			pc, file, line, ok := runtime.Caller(3)
			location := "Unknown location"
			if ok {
				location = fmt.Sprintf("%s:%d in %s", file, line, runtime.FuncForPC(pc).Name())
			}

			fmt.Printf("\n\033[31mPANIC: %v\033[0m\n", r)
			fmt.Printf("\033[31mLocation: %s\033[0m\n", location)
			fmt.Printf("\033[31mPlease check the input and try again.\033[0m\n")
			fmt.Printf("\033[31mExiting...\033[0m\n")

			svc.Notifier.Error(fmt.Sprintf("Cienaga CLI panic:\n\n%v\n\nLocation: %s\n\nStack trace:\n%s", r, location, debug.Stack()))
			os.Exit(1)
		}
	}()
	printBanner()
	ui.ShowMenu(svc)
}

func newRootCmd() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:           "cienaga",
		Short:         "Train and run the ciénaga wetland pixel classifier",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := properties.LoadEnv(envFile, ".env", "../.env", "../../.env"); err != nil {
				return fmt.Errorf("failed to load env file: %w", err)
			}
			return log.Init(properties.LogLevel())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			runMenu(delivery.NewDefaultService())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env", "", "path of the .env file (defaults to the first .env found up to two folders above)")

	menu := &cobra.Command{
		Use:   "menu",
		Short: "Start the interactive menu",
		RunE:  root.RunE,
	}
	root.AddCommand(menu, newTrainCmd(), newPredictCmd(), newServeCmd(), newRemoteCmd())
	return root
}

func main() {
	defer log.Sync()
	if err := newRootCmd().Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
