package cheatnet

import (
	"fmt"

	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/vm"
)

// Execution info layout:
//
//	exec:  [block_info_ptr, tx_info_ptr, caller_address, contract_address, selector]
//	block: [block_number, block_timestamp, sequencer_address]
//	tx:    one slot per scalar tx field, a (start, end) pair per span field,
//	       in Field order
const (
	execInfoSize   = 5
	execBlockInfo  = 0
	execTxInfo     = 1
	execCaller     = 2
	execContract   = 3
	execSelector   = 4
	blockInfoSize  = 3
	txInfoSize     = 17
	blockInfoFirst = BlockNumber
)

// txSlot returns the offset of a tx info field in the tx record
func txSlot(f Field) int {
	slot := 0
	for g := TxVersion; g < f; g++ {
		slot++
		if g.IsSpan() {
			slot++
		}
	}
	return slot
}

// executionInfo is the real context of a call.
type executionInfo struct {
	block    *BlockContext
	tx       *TxContext
	caller   felt.Felt
	contract felt.Felt
	selector felt.Felt
}

// write lays the record out in fresh segments and returns its address
func (info *executionInfo) write(mem *vm.Memory) (vm.Relocatable, error) {
	blockPtr, _, err := mem.AllocFelts([]felt.Felt{
		felt.FromUint64(info.block.Number),
		felt.FromUint64(info.block.Timestamp),
		info.block.SequencerAddress,
	})
	if err != nil {
		return vm.Relocatable{}, err
	}

	txRecord := make([]vm.MaybeRelocatable, 0, txInfoSize)
	for f := TxVersion; f < fieldCount; f++ {
		value := info.tx.value(f)
		if !f.IsSpan() {
			txRecord = append(txRecord, vm.FeltValue(value[0]))
			continue
		}
		start, end, err := mem.AllocFelts(value)
		if err != nil {
			return vm.Relocatable{}, err
		}
		txRecord = append(txRecord, vm.PtrValue(start), vm.PtrValue(end))
	}
	txPtr := mem.AddSegment()
	if _, err = mem.Write(txPtr, txRecord...); err != nil {
		return vm.Relocatable{}, err
	}

	execPtr := mem.AddSegment()
	_, err = mem.Write(execPtr,
		vm.PtrValue(blockPtr),
		vm.PtrValue(txPtr),
		vm.FeltValue(info.caller),
		vm.FeltValue(info.contract),
		vm.FeltValue(info.selector),
	)
	return execPtr, err
}

// RewriteExecutionInfo copies the record at src into new segments with the
// overrides of data applied and returns the copy's address. The block and
// tx records are copied only when one of their fields is overridden. src is
// never modified.
func RewriteExecutionInfo(mem *vm.Memory, src vm.Relocatable, data *CheatedData) (vm.Relocatable, error) {
	record, err := mem.GetRange(src, execInfoSize)
	if err != nil {
		return vm.Relocatable{}, fmt.Errorf("read execution info: %w", err)
	}

	if data.has(Field.isBlockInfo) {
		if record[execBlockInfo], err = rewriteBlockInfo(mem, record[execBlockInfo], data); err != nil {
			return vm.Relocatable{}, err
		}
	}
	if data.has(Field.isTxInfo) {
		if record[execTxInfo], err = rewriteTxInfo(mem, record[execTxInfo], data); err != nil {
			return vm.Relocatable{}, err
		}
	}
	if caller, found := data.Get(CallerAddress); found {
		record[execCaller] = vm.FeltValue(caller[0])
	}

	dst := mem.AddSegment()
	if _, err = mem.Write(dst, record...); err != nil {
		return vm.Relocatable{}, err
	}
	return dst, nil
}

func rewriteBlockInfo(mem *vm.Memory, ptr vm.MaybeRelocatable, data *CheatedData) (vm.MaybeRelocatable, error) {
	src, err := ptr.Ptr()
	if err != nil {
		return ptr, fmt.Errorf("block info pointer: %w", err)
	}
	record, err := mem.GetRange(src, blockInfoSize)
	if err != nil {
		return ptr, fmt.Errorf("read block info: %w", err)
	}
	for f := BlockNumber; f <= SequencerAddress; f++ {
		if value, found := data.Get(f); found {
			record[f-blockInfoFirst] = vm.FeltValue(value[0])
		}
	}

	dst := mem.AddSegment()
	if _, err = mem.Write(dst, record...); err != nil {
		return ptr, err
	}
	return vm.PtrValue(dst), nil
}

func rewriteTxInfo(mem *vm.Memory, ptr vm.MaybeRelocatable, data *CheatedData) (vm.MaybeRelocatable, error) {
	src, err := ptr.Ptr()
	if err != nil {
		return ptr, fmt.Errorf("tx info pointer: %w", err)
	}
	record, err := mem.GetRange(src, txInfoSize)
	if err != nil {
		return ptr, fmt.Errorf("read tx info: %w", err)
	}
	for f := TxVersion; f < fieldCount; f++ {
		value, found := data.Get(f)
		if !found {
			continue
		}
		slot := txSlot(f)
		if !f.IsSpan() {
			record[slot] = vm.FeltValue(value[0])
			continue
		}
		start, end, err := mem.AllocFelts(value)
		if err != nil {
			return ptr, err
		}
		record[slot], record[slot+1] = vm.PtrValue(start), vm.PtrValue(end)
	}

	dst := mem.AddSegment()
	if _, err = mem.Write(dst, record...); err != nil {
		return ptr, err
	}
	return vm.PtrValue(dst), nil
}
