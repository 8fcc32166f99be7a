package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/havel-project/havel/internal/device"
)

const defaultInventoryPath = "/proc/bus/input/devices"

var flagInventorySource string

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List and classify input devices",
	Long: `Parses the kernel's input device inventory, merges sibling event
nodes belonging to the same physical device, and classifies each as
keyboard, mouse, gamepad, joystick, or other.`,
	RunE: runDevices,
}

func init() {
	devicesCmd.Flags().StringVar(&flagInventorySource, "source", defaultInventoryPath, "path to an input device inventory file (for testing off-device)")
}

func runDevices(cmd *cobra.Command, args []string) error {
	f, err := os.Open(flagInventorySource)
	if err != nil {
		return fmt.Errorf("open device inventory: %w", err)
	}
	defer f.Close()

	devices, err := device.ParseInventory(f)
	if err != nil {
		return fmt.Errorf("parse device inventory: %w", err)
	}
	merged := device.MergeByVendorProduct(devices)

	if len(merged) == 0 {
		fmt.Println("no input devices found")
		return nil
	}

	for _, d := range merged {
		fmt.Printf("%-32s %-9s conf=%.2f  %s\n", d.Name, d.Type, d.Confidence, d.EventPath)
		if d.ClassifyReason != "" {
			fmt.Printf("    reason: %s\n", d.ClassifyReason)
		}
		fmt.Printf("    bus=%04x vendor=%04x product=%04x handlers=%v\n", d.Bus, d.Vendor, d.Product, d.Handlers)
	}
	return nil
}
