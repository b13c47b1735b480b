package main

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/NethermindEth/cheatnet/config"
	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/forking"
	"github.com/NethermindEth/cheatnet/utils"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var errNoForks = errors.New("no forks configured")

// ListCmd summarises the cache per fork, block and query kind.
func ListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [url]",
		Short: "Summarise the cached entries of every fork, or of the fork at url.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listEntries,
	}
}

func ClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <url> [block]",
		Short: "Remove the cached entries of the fork at url, or of one of its blocks.",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  clearEntries,
	}
}

// WarmCmd fetches the configured forks ahead of a test run.
func WarmCmd() *cobra.Command {
	warmCmd := &cobra.Command{
		Use:   "warm [fork...]",
		Short: "Fetch the block header and prefetch the contracts of the configured forks.",
		RunE:  warmForks,
	}
	warmCmd.Flags().Int(workersF, defaultWorkers, workersUsage)
	return warmCmd
}

type entryGroup struct {
	fork  string
	block string
	kind  forking.Kind
}

type groupStats struct {
	count uint
	size  utils.DataSize
}

func compareGroups(a, b entryGroup) int {
	return cmp.Or(
		strings.Compare(a.fork, b.fork),
		strings.Compare(a.block, b.block),
		cmp.Compare(a.kind, b.kind),
	)
}

func listEntries(cmd *cobra.Command, args []string) (err error) {
	_, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore(store, &err)

	var prefix []byte
	if len(args) == 1 {
		prefix = forking.Prefix(forking.SanitizeURL(args[0]), "")
	}

	stats := make(map[entryGroup]*groupStats)
	err = store.Iterate(prefix, func(e forking.Entry) error {
		group := entryGroup{fork: e.Key.Fork, block: e.Key.Block, kind: e.Key.Kind}
		s, found := stats[group]
		if !found {
			s = new(groupStats)
			stats[group] = s
		}
		s.count++
		s.size += utils.DataSize(e.Size)
		return nil
	})
	if err != nil {
		return err
	}

	if len(stats) == 0 {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "No cached entries")
		return err
	}

	var (
		totalCount uint
		totalSize  utils.DataSize
	)

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Fork", "Block", "Kind", "Count", "Size"})
	for _, group := range slices.SortedFunc(maps.Keys(stats), compareGroups) {
		s := stats[group]
		table.Append([]string{group.fork, group.block, group.kind.String(), fmt.Sprintf("%d", s.count), s.size.String()})
		totalCount += s.count
		totalSize += s.size
	}
	table.SetFooter([]string{"Total", "", "", fmt.Sprintf("%d", totalCount), totalSize.String()})
	table.Render()
	return nil
}

func clearEntries(cmd *cobra.Command, args []string) (err error) {
	_, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore(store, &err)

	fork := forking.SanitizeURL(args[0])
	var block string
	if len(args) == 2 {
		if block, err = normaliseBlock(args[1]); err != nil {
			return err
		}
	}
	prefix := forking.Prefix(fork, block)

	var removed uint
	if err = store.Iterate(prefix, func(forking.Entry) error {
		removed++
		return nil
	}); err != nil {
		return err
	}
	if err = store.DeletePrefix(prefix); err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries of %s\n", removed, fork)
	return err
}

// normaliseBlock renders block hashes the way cache keys store them
func normaliseBlock(block string) (string, error) {
	if !strings.HasPrefix(block, "0x") {
		return block, nil
	}
	hash, err := felt.NewFromString(block)
	if err != nil {
		return "", fmt.Errorf("malformed block hash %s: %w", block, err)
	}
	return hash.String(), nil
}

func warmForks(cmd *cobra.Command, args []string) (err error) {
	cfg, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore(store, &err)

	log, err := cfg.Logger()
	if err != nil {
		return err
	}

	forks := cfg.Forks
	if len(args) > 0 {
		forks = make([]config.Fork, 0, len(args))
		for _, name := range args {
			fork, found := cfg.Fork(name)
			if !found {
				return fmt.Errorf("unknown fork %q", name)
			}
			forks = append(forks, *fork)
		}
	}
	if len(forks) == 0 {
		return errNoForks
	}

	var requests atomic.Uint64
	registry := cfg.Registry(store, log).WithListener(&forking.SelectiveListener{
		OnRemoteRequestCb: func(forking.Kind, time.Duration, error) {
			requests.Add(1)
		},
	})

	for i := range forks {
		if err = warmFork(cmd, cfg, registry, &forks[i], log); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Remote requests: %d\n", requests.Load())
	return err
}

func warmFork(cmd *cobra.Command, cfg *config.Config, registry *forking.Registry, fork *config.Fork, log utils.SimpleLogger) error {
	ctx := cmd.Context()
	client, err := cfg.Dial(ctx, fork, log)
	if err != nil {
		return err
	}
	defer client.Close()

	block, err := forking.ResolveBlock(ctx, client, fork.BlockID())
	if err != nil {
		return fmt.Errorf("warm %s: %w", fork.Name, err)
	}

	cache := registry.Cache(fork.URL, block, client)
	if _, err = cache.BlockHeader(ctx); err != nil {
		return fmt.Errorf("warm %s: %w", fork.Name, err)
	}
	if err = cache.Prefetch(ctx, fork.Prefetch, cfg.PrefetchWorkers); err != nil {
		return fmt.Errorf("warm %s: %w", fork.Name, err)
	}

	log.Infow("Warmed fork", "fork", fork.Name, "block", block, "contracts", len(fork.Prefetch))
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Warmed %s at block %s\n", fork.Name, block)
	return err
}
