package crypto

import (
	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	pedersenhash "github.com/consensys/gnark-crypto/ecc/stark-curve/pedersen-hash"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const pedersenCacheSize = 1 << 16

type pedersenKey struct {
	a, b felt.Felt
}

var pedersenCache, _ = lru.New[pedersenKey, felt.Felt](pedersenCacheSize)

var pedersenLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "cheatnet",
	Name:      "pedersen_lookups_total",
	Help:      "Pedersen hash memo lookups",
}, []string{"hit"})

// Pedersen implements the [Pedersen hash].
//
// [Pedersen hash]: https://docs.starknet.io/documentation/develop/Hashing/hash-functions/#pedersen_hash
func Pedersen(a, b *felt.Felt) *felt.Felt {
	key := pedersenKey{a: *a, b: *b}
	if res, ok := pedersenCache.Get(key); ok {
		pedersenLookups.WithLabelValues("true").Inc()
		return &res
	}

	hash := pedersenhash.Pedersen(a.Impl(), b.Impl())
	result := felt.NewFelt(&hash)
	pedersenCache.Add(key, *result)
	pedersenLookups.WithLabelValues("false").Inc()
	return result
}

// PedersenArray implements [Pedersen array hashing].
//
// [Pedersen array hashing]: https://docs.starknet.io/documentation/develop/Hashing/hash-functions/#array_hashing
func PedersenArray(elems ...*felt.Felt) *felt.Felt {
	var digest PedersenDigest
	return digest.Update(elems...).Finish()
}

var _ Digest = (*PedersenDigest)(nil)

type PedersenDigest struct {
	digest fp.Element
	count  uint64
}

func (d *PedersenDigest) Update(elems ...*felt.Felt) Digest {
	for idx := range elems {
		d.digest = pedersenhash.Pedersen(&d.digest, elems[idx].Impl())
	}
	d.count += uint64(len(elems))
	return d
}

func (d *PedersenDigest) Finish() *felt.Felt {
	d.digest = pedersenhash.Pedersen(&d.digest, new(fp.Element).SetUint64(d.count))
	return felt.NewFelt(&d.digest)
}
