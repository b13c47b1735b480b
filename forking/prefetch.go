package forking

import (
	"context"
	"errors"
	"fmt"

	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/starknet/compiler"
	"github.com/NethermindEth/cheatnet/state"
	"github.com/sourcegraph/conc/pool"
)

// Prefetch loads the nonce, class hash and class of every address into the
// cache using at most workers concurrent requests. Contracts with legacy
// classes are skipped.
func (c *Cache) Prefetch(ctx context.Context, addrs []felt.Felt, workers int) error {
	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(max(workers, 1))
	for i := range addrs {
		addr := &addrs[i]
		p.Go(func(ctx context.Context) error {
			if _, err := c.Nonce(ctx, addr); err != nil {
				return fmt.Errorf("nonce of %s: %w", addr, err)
			}
			classHash, err := c.ClassHashAt(ctx, addr)
			if err != nil {
				return fmt.Errorf("class hash of %s: %w", addr, err)
			}
			if classHash.IsZero() {
				return nil
			}
			_, err = c.Class(ctx, &classHash)
			if errors.Is(err, compiler.ErrUnsupportedLegacyClass) || errors.Is(err, state.ErrUndeclaredClass) {
				c.log.Debugw("Skipping class", "address", addr, "classHash", &classHash, "err", err)
				return nil
			}
			return err
		})
	}
	return p.Wait()
}
