package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/havel-project/havel/internal/clipboard"
	"github.com/havel-project/havel/internal/condition"
	"github.com/havel-project/havel/internal/conditional"
	"github.com/havel-project/havel/internal/config"
	"github.com/havel-project/havel/internal/engine"
	"github.com/havel-project/havel/internal/hotkey"
	"github.com/havel-project/havel/internal/keycat"
	"github.com/havel-project/havel/internal/lang/compiler"
	"github.com/havel-project/havel/internal/lang/parser"
	"github.com/havel-project/havel/internal/lang/vm"
)

var runCmd = &cobra.Command{
	Use:   "run <script.hv>",
	Short: "Run a Havel script against a live keyboard/mouse",
	Args:  cobra.ExactArgs(1),
	RunE:  runScript,
}

func runScript(cmd *cobra.Command, args []string) error {
	scriptPath := args[0]
	src, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	if flagInterpreter {
		return fmt.Errorf("--interpreter: tree-walking execution is not implemented in this build; drop the flag to use the bytecode VM")
	}

	prog, diags := parser.Parse(string(src))
	if len(diags) != 0 {
		for _, d := range diags {
			fmt.Fprintln(os.Stderr, d.Error())
		}
		return fmt.Errorf("%s: %d parse error(s)", scriptPath, len(diags))
	}

	chunk, meta, cerr := compiler.Compile(prog)
	if cerr != nil {
		return fmt.Errorf("compile %s: %w", scriptPath, cerr)
	}

	if flagDryRun {
		fmt.Printf("%s: OK (%d hotkey binding(s), %d mode guard(s))\n", scriptPath, len(meta.Hotkeys), len(meta.ModeGuards))
		return nil
	}

	logger := newLogger()

	cfgPath := flagConfigPath
	if cfgPath == "" {
		cfgPath = config.DefaultPath()
	}
	daemonCfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	devicePaths := daemonCfg.Devices
	if len(flagDevices) > 0 {
		devicePaths = flagDevices
	}
	grab := !daemonCfg.Input.NoGrab
	if flagNoGrab {
		grab = false
	}

	engineCfg := engine.DefaultConfig()
	engineCfg.DevicePaths = devicePaths
	engineCfg.GrabDevices = grab
	engineCfg.MouseSensitivity = daemonCfg.Input.MouseSensitivity
	engineCfg.ScrollSpeed = daemonCfg.Input.ScrollSpeed
	if k, ok := keycat.Lookup(daemonCfg.Input.EmergencyKey); ok {
		engineCfg.EmergencyShutdownKey = k.Evdev
	}

	registry := hotkey.New()
	condEngine := condition.NewEngine()
	eng := engine.New(registry, engineCfg, logger)
	clip := clipboard.New()
	condLayer := conditional.New(registry, condEngine, logger)

	interp := vm.New(chunk, meta,
		vm.WithLogger(logger),
		vm.WithClipboard(clip),
		vm.WithSender(eng),
		vm.WithRegistry(registry),
		vm.WithConditionEngine(condEngine),
	)

	if _, _, err := interp.Load(); err != nil {
		return fmt.Errorf("load script: %w", err)
	}

	if err := eng.Start(); err != nil {
		interp.Unload()
		return fmt.Errorf("start input engine: %w", err)
	}
	condLayer.Start()

	stop := func() {
		condLayer.Stop()
		eng.Stop()
		interp.Unload()
	}

	if err := interp.Run(); err != nil {
		logger.Error("script raised an uncaught fault", "err", err)
		stop()
		return fmt.Errorf("run script: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	logger.Info("havel running", "script", scriptPath, "devices", devicePaths)
	<-sigCh

	logger.Info("shutting down")
	stop()
	return nil
}
