package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/havel-project/havel/internal/config"
	"github.com/havel-project/havel/internal/hotkey"
	"github.com/havel-project/havel/internal/mapmanager"
)

var flagProfileStore string

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List Map Manager profiles from the persisted profile store",
	RunE:  runProfiles,
}

func init() {
	profilesCmd.Flags().StringVar(&flagProfileStore, "store", "", "path to the profile store (default ~/.local/share/havel/profiles.json)")
}

func runProfiles(cmd *cobra.Command, args []string) error {
	store := flagProfileStore
	if store == "" {
		store = config.DefaultProfilesPath()
	}

	mgr := mapmanager.New(hotkey.New(), nil, newLogger(), nil)
	if err := mgr.LoadProfiles(store); err != nil {
		return fmt.Errorf("load profile store %s: %w", store, err)
	}

	ids := mgr.Profiles()
	if len(ids) == 0 {
		fmt.Printf("no profiles in %s\n", store)
		return nil
	}

	active := mgr.ActiveProfile()
	for _, id := range ids {
		p, _ := mgr.Profile(id)
		marker := " "
		if active != nil && active.ID == id {
			marker = "*"
		}
		state := "disabled"
		if p.Enabled {
			state = "enabled"
		}
		fmt.Printf("%s %-12s %-20s %-9s %d mapping(s)\n", marker, p.ID, p.Name, state, len(p.Mappings))
	}
	return nil
}
