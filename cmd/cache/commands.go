package cache

import (
	"fmt"
	"github.com/ValentinKolb/dCache/lib/cache"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"strings"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, ok, err := rpcCache.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printValue(args[0], value, ok)
			return nil
		},
	}
	putCmd = &cobra.Command{
		Use:   "put [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcCache.Put(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			pterm.Success.Println("put successfully")
			return nil
		},
	}
	putIfAbsentCmd = &cobra.Command{
		Use:   "putifabsent [key] [value]",
		Short: "Sets the value for a key if the key does not exist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stored, err := rpcCache.PutIfAbsent(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, stored=%t\n", args[0], stored)
			return nil
		},
	}
	removeCmd = &cobra.Command{
		Use:   "rmv [key]",
		Short: "Removes a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := rpcCache.Remove(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, removed=%t\n", args[0], removed)
			return nil
		},
	}
	getAndRemoveCmd = &cobra.Command{
		Use:   "getandrmv [key]",
		Short: "Removes a key and prints the value it had",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, ok, err := rpcCache.GetAndRemove(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printValue(args[0], value, ok)
			return nil
		},
	}
	removeAllCmd = &cobra.Command{
		Use:   "rmvall [key...]",
		Short: "Removes all given keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcCache.RemoveAll(cmd.Context(), args...); err != nil {
				return err
			}
			pterm.Success.Printfln("removed %d keys", len(args))
			return nil
		},
	}
	putAllCmd = &cobra.Command{
		Use:   "putall [key=value...]",
		Short: "Sets all given key value pairs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := parseEntries(args)
			if err != nil {
				return err
			}
			if err := rpcCache.PutAll(cmd.Context(), entries...); err != nil {
				return err
			}
			pterm.Success.Printfln("put %d entries", len(entries))
			return nil
		},
	}
	getAllCmd = &cobra.Command{
		Use:   "getall [key...]",
		Short: "Reads the values of all given keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := rpcCache.GetAll(cmd.Context(), args...)
			if err != nil {
				return err
			}
			data := pterm.TableData{{"Key", "Value"}}
			for _, e := range entries {
				data = append(data, []string{e.Key, e.Value})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		},
	}
	containsKeyCmd = &cobra.Command{
		Use:   "containskey [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := rpcCache.ContainsKey(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%t\n", args[0], found)
			return nil
		},
	}
	containsKeysCmd = &cobra.Command{
		Use:   "containskeys [key...]",
		Short: "Checks if all given keys exist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := rpcCache.ContainsKeys(cmd.Context(), args...)
			if err != nil {
				return err
			}
			fmt.Printf("keys=%s, found=%t\n", strings.Join(args, ","), found)
			return nil
		},
	}
	getAndPutCmd = &cobra.Command{
		Use:   "getandput [key] [value]",
		Short: "Sets the value for a key and prints the value it replaced",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			old, ok, err := rpcCache.GetAndPut(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			printValue(args[0], old, ok)
			return nil
		},
	}
	getAndPutIfAbsentCmd = &cobra.Command{
		Use:   "getandputifabsent [key] [value]",
		Short: "Sets the value for a key if it does not exist, prints the current value otherwise",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			old, ok, err := rpcCache.GetAndPutIfAbsent(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			printValue(args[0], old, ok)
			return nil
		},
	}
)

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func printValue(key, value string, found bool) {
	fmt.Printf("key=%s, found=%t, value=%s\n", key, found, value)
}

// parseEntries parses key=value arguments
func parseEntries(args []string) ([]cache.Entry, error) {
	entries := make([]cache.Entry, 0, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid entry %q (expected key=value)", arg)
		}
		entries = append(entries, cache.Entry{Key: key, Value: value})
	}
	return entries, nil
}
