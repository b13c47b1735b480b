package starknet

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/NethermindEth/cheatnet/core/felt"
)

// BlockID selects a block by number, hash or the "latest" tag.
type BlockID struct {
	Latest bool
	Hash   *felt.Felt
	Number uint64
}

func BlockNumber(n uint64) BlockID {
	return BlockID{Number: n}
}

func BlockHash(h *felt.Felt) BlockID {
	return BlockID{Hash: h}
}

func LatestBlock() BlockID {
	return BlockID{Latest: true}
}

// String is a stable, human readable form used in cache keys and logs
func (b BlockID) String() string {
	switch {
	case b.Latest:
		return "latest"
	case b.Hash != nil:
		return b.Hash.String()
	default:
		return strconv.FormatUint(b.Number, 10)
	}
}

func (b BlockID) MarshalJSON() ([]byte, error) {
	switch {
	case b.Latest:
		return []byte(`"latest"`), nil
	case b.Hash != nil:
		return json.Marshal(map[string]*felt.Felt{"block_hash": b.Hash})
	default:
		return json.Marshal(map[string]uint64{"block_number": b.Number})
	}
}

func (b *BlockID) UnmarshalJSON(data []byte) error {
	if string(data) == `"latest"` {
		*b = LatestBlock()
		return nil
	}

	jsonObject := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &jsonObject); err != nil {
		return err
	}
	if hash, ok := jsonObject["block_hash"]; ok {
		*b = BlockID{Hash: new(felt.Felt)}
		return json.Unmarshal(hash, b.Hash)
	}
	if number, ok := jsonObject["block_number"]; ok {
		*b = BlockID{}
		return json.Unmarshal(number, &b.Number)
	}
	return errors.New("cannot unmarshal block id")
}

// BlockHeader is the part of a block used to seed the execution context.
type BlockHeader struct {
	Hash             *felt.Felt `json:"block_hash"`
	Number           uint64     `json:"block_number"`
	Timestamp        uint64     `json:"timestamp"`
	SequencerAddress *felt.Felt `json:"sequencer_address"`
}
