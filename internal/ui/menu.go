package ui

import (
	"fmt"
	"strconv"

	"github.com/wetland-guardian/cienaga-classifier/internal/delivery"
)

type menuOption struct {
	title   string
	handler func()
}

var service *delivery.Service

// ShowMenu displays the main menu and handles user input until the user exits.
func ShowMenu(svc *delivery.Service) {
	service = svc
	exit := false
	menuOptions := []menuOption{
		{"Train the ciénaga model from a folder of images", TrainModel},
		{"Classify an image", ClassifyImage},
		{"Classify every image in a folder", ClassifyDirectory},
		{"Show the current model", ShowModel},
		{"Reload the model from disk", ReloadModel},
		{"Exit the application", func() { fmt.Println("Exiting..."); exit = true }},
	}

	for !exit {
		fmt.Println("\033[34m===================\033[0m")
		for i, opt := range menuOptions {
			fmt.Printf("\033[34m%d. %s\033[0m\n", i+1, opt.title)
		}

		choice, err := strconv.Atoi(ReadString("Please enter your choice: "))
		if stdinClosed {
			return
		}
		if err != nil {
			fmt.Printf("\n\033[31mInvalid input. Please enter a number.\033[0m\n")
			continue
		}

		if choice < 1 || choice > len(menuOptions) {
			fmt.Println("\033[31mInvalid choice. Please try again.\033[0m")
			continue
		}

		menuOptions[choice-1].handler()
	}
}
