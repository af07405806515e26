package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"gopkg.in/yaml.v3"
)

var configAsYAML bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the merged configuration document after applying all layers:
built-in defaults, config files, .env, environment variables.`,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configAsYAML, "yaml", false, "Print YAML instead of JSON")
}

func runConfig(cmd *cobra.Command, args []string) error {
	store, err := loadStore()
	if err != nil {
		return err
	}
	doc := store.Snapshot().Document()

	var data []byte
	if configAsYAML {
		data, err = yaml.Marshal(doc)
	} else {
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
