package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Bidon15/orbit-setup/internal/orbit"
)

func newConfigCommand(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Edit the rollup configuration",
	}

	setCmd := &cobra.Command{
		Use:   "set <key=value>...",
		Short: "Set rollup configuration values",
		Long: `Set one or more rollup configuration values. Keys use the names shown by
'orbit-setup state show'. Nested settings are addressed with a dot.

Text settings take the value verbatim. Other values are parsed as JSON.

Examples:
  orbit-setup config set chainName="My Chain"
  orbit-setup config set nativeToken=0x... baseStake=0.5
  orbit-setup config set celestiaConfig.namespace_id=000008e5f679bf7116cb`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			w, err := a.wizard(nil)
			if err != nil {
				return err
			}
			patch, err := parseConfigPatch(a.store.State().RollupConfig, args)
			if err != nil {
				return err
			}
			state, err := w.UpdateConfig(cmd.Context(), patch)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), state.RollupConfig)
		}),
	}

	configCmd.AddCommand(setCmd)
	return configCmd
}

// parseConfigPatch turns key=value pairs into a patch. A dotted key updates
// one field of a nested setting, starting from its value in current.
func parseConfigPatch(current orbit.RollupConfig, pairs []string) (orbit.RollupConfigPatch, error) {
	base, err := toMap(current)
	if err != nil {
		return orbit.RollupConfigPatch{}, err
	}

	values := make(map[string]interface{})
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return orbit.RollupConfigPatch{}, fmt.Errorf("%q is not in key=value form", pair)
		}
		parent, child, nested := strings.Cut(key, ".")
		if !nested {
			values[key] = parseValue(base[key], raw)
			continue
		}

		section, ok := values[parent].(map[string]interface{})
		if !ok {
			section, ok = base[parent].(map[string]interface{})
			if !ok {
				return orbit.RollupConfigPatch{}, fmt.Errorf("%s has no nested settings", parent)
			}
		}
		if _, known := section[child]; !known {
			return orbit.RollupConfigPatch{}, fmt.Errorf("unknown setting %s", key)
		}
		section[child] = parseValue(section[child], raw)
		values[parent] = section
	}

	data, err := json.Marshal(values)
	if err != nil {
		return orbit.RollupConfigPatch{}, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var patch orbit.RollupConfigPatch
	if err := dec.Decode(&patch); err != nil {
		return orbit.RollupConfigPatch{}, fmt.Errorf("invalid setting: %w", err)
	}
	return patch, nil
}

// parseValue keeps raw as text when the setting it replaces is text.
func parseValue(current interface{}, raw string) interface{} {
	if _, ok := current.(string); ok {
		return raw
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}
	return v
}

func toMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]interface{}
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}
