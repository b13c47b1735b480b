package compiler

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/NethermindEth/cheatnet/core"
	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/starknet"
	"github.com/NethermindEth/cheatnet/utils"
	"github.com/NethermindEth/cheatnet/vm"
)

const Version = "cheatnet-compiler/1"

var (
	ErrUnsupportedLegacyClass = errors.New("cairo 0 classes are not supported")
	ErrInvalidProgram         = errors.New("invalid sierra program")
	ErrInvalidEntryPoint      = errors.New("invalid entry point")

	programMagic = core.MustEncodeShortString("sierra/v1")
)

// Compiler compiles Sierra classes to their executable form.
type Compiler interface {
	Compile(ctx context.Context, sierra *starknet.SierraClass) (*starknet.CasmClass, error)
}

type compiler struct {
	log utils.SimpleLogger
}

// New returns a Compiler that compiles in process
func New(log utils.SimpleLogger) Compiler {
	return &compiler{log: log}
}

func (c *compiler) Compile(ctx context.Context, sierra *starknet.SierraClass) (*starknet.CasmClass, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	casm, err := Compile(sierra)
	if err != nil {
		c.log.Debugw("Sierra compilation failed", "err", err)
		return nil, err
	}
	c.log.Debugw("Compiled sierra class", "bytecodeLen", len(casm.Bytecode))
	return casm, nil
}

// CompileDefinition compiles whichever class flavour def holds. Cairo 0
// classes are rejected.
func CompileDefinition(ctx context.Context, c Compiler, def *starknet.ClassDefinition) (*starknet.CasmClass, error) {
	switch {
	case def.Sierra != nil:
		return c.Compile(ctx, def.Sierra)
	case def.DeprecatedCairo != nil:
		return nil, ErrUnsupportedLegacyClass
	default:
		return nil, starknet.ErrUnknownClassFormat
	}
}

// EncodeProgram lays out a program as a sierra program:
// [magic, function count, function offsets..., bytecode...].
func EncodeProgram(p *vm.Program) []*felt.Felt {
	out := make([]*felt.Felt, 0, 2+len(p.Functions)+len(p.Bytecode))
	magic := programMagic
	out = append(out, &magic, new(felt.Felt).SetUint64(uint64(len(p.Functions))))
	for _, fn := range p.Functions {
		out = append(out, new(felt.Felt).SetUint64(fn.Offset))
	}
	for i := range p.Bytecode {
		word := p.Bytecode[i]
		out = append(out, &word)
	}
	return out
}

type decodedProgram struct {
	offsets  []uint64
	bytecode []felt.Felt
	// instruction boundaries
	starts map[uint64]vm.Instruction
}

// Compile validates the sierra program and produces the executable class.
func Compile(sierra *starknet.SierraClass) (*starknet.CasmClass, error) {
	if sierra == nil || len(sierra.Program) == 0 {
		return nil, fmt.Errorf("%w: empty program", ErrInvalidProgram)
	}
	program, err := decodeProgram(sierra.Program)
	if err != nil {
		return nil, err
	}

	casm := &starknet.CasmClass{CompilerVersion: Version}
	casm.Bytecode = make([]*felt.Felt, len(program.bytecode))
	for i := range program.bytecode {
		casm.Bytecode[i] = &program.bytecode[i]
	}

	if casm.EntryPoints.External, err = program.entryPoints(sierra.EntryPoints.External); err != nil {
		return nil, fmt.Errorf("external: %w", err)
	}
	if casm.EntryPoints.L1Handler, err = program.entryPoints(sierra.EntryPoints.L1Handler); err != nil {
		return nil, fmt.Errorf("l1 handler: %w", err)
	}
	if casm.EntryPoints.Constructor, err = program.entryPoints(sierra.EntryPoints.Constructor); err != nil {
		return nil, fmt.Errorf("constructor: %w", err)
	}
	if len(casm.EntryPoints.Constructor) > 1 {
		return nil, fmt.Errorf("%w: at most one constructor is allowed", ErrInvalidEntryPoint)
	}
	return casm, nil
}

func decodeProgram(words []*felt.Felt) (*decodedProgram, error) {
	if len(words) < 2 || words[0] == nil || !words[0].Equal(&programMagic) {
		return nil, fmt.Errorf("%w: bad header", ErrInvalidProgram)
	}
	count, err := words[1].Uint64()
	if err != nil || count == 0 || count > uint64(len(words)-2) {
		return nil, fmt.Errorf("%w: bad function count", ErrInvalidProgram)
	}

	header := 2 + int(count)
	p := &decodedProgram{
		offsets:  make([]uint64, count),
		bytecode: make([]felt.Felt, 0, len(words)-header),
		starts:   make(map[uint64]vm.Instruction),
	}
	for i := range p.offsets {
		if p.offsets[i], err = words[2+i].Uint64(); err != nil {
			return nil, fmt.Errorf("%w: function %d offset", ErrInvalidProgram, i)
		}
	}
	for _, w := range words[header:] {
		if w == nil {
			return nil, fmt.Errorf("%w: nil word", ErrInvalidProgram)
		}
		p.bytecode = append(p.bytecode, *w)
	}

	for pc := uint64(0); pc < uint64(len(p.bytecode)); {
		ins, err := vm.DecodeInstruction(p.bytecode, pc)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidProgram, err)
		}
		if ins.Op == vm.OpSyscall {
			sel, err := ins.Immediate.Uint64()
			if err != nil || !vm.SyscallSelector(sel).Valid() {
				return nil, fmt.Errorf("%w: %w at %d", ErrInvalidProgram, vm.ErrInvalidSyscall, pc)
			}
		}
		p.starts[pc] = ins
		pc += ins.Size()
	}

	for pc, ins := range p.starts {
		if !ins.Op.IsJump() {
			continue
		}
		target, err := ins.Immediate.Uint64()
		if _, ok := p.starts[target]; err != nil || !ok {
			return nil, fmt.Errorf("%w: jump at %d to %s", ErrInvalidProgram, pc, ins.Immediate.String())
		}
	}

	if !slices.IsSorted(p.offsets) {
		return nil, fmt.Errorf("%w: function offsets are not sorted", ErrInvalidProgram)
	}
	for i, off := range p.offsets {
		if _, ok := p.starts[off]; !ok {
			return nil, fmt.Errorf("%w: function %d does not start on an instruction", ErrInvalidProgram, i)
		}
	}
	return p, nil
}

// builtins lists the builtins used by function idx, in first-use order
func (p *decodedProgram) builtins(idx uint64) []string {
	start := p.offsets[idx]
	end := uint64(len(p.bytecode))
	if idx+1 < uint64(len(p.offsets)) {
		end = p.offsets[idx+1]
	}

	var used []string
	for pc := start; pc < end; {
		ins := p.starts[pc]
		if name, ok := ins.Op.Builtin(); ok && !slices.Contains(used, name) {
			used = append(used, name)
		}
		pc += ins.Size()
	}
	return used
}

func (p *decodedProgram) entryPoints(eps []starknet.SierraEntryPoint) ([]starknet.CompiledEntryPoint, error) {
	out := make([]starknet.CompiledEntryPoint, 0, len(eps))
	seen := make(map[felt.Felt]struct{}, len(eps))
	for _, ep := range eps {
		if ep.Selector == nil {
			return nil, fmt.Errorf("%w: missing selector", ErrInvalidEntryPoint)
		}
		if ep.Index >= uint64(len(p.offsets)) {
			return nil, fmt.Errorf("%w: function index %d out of range", ErrInvalidEntryPoint, ep.Index)
		}
		if _, dup := seen[*ep.Selector]; dup {
			return nil, fmt.Errorf("%w: duplicate selector %s", ErrInvalidEntryPoint, ep.Selector)
		}
		seen[*ep.Selector] = struct{}{}

		out = append(out, starknet.CompiledEntryPoint{
			Selector: ep.Selector,
			Offset:   p.offsets[ep.Index],
			Builtins: p.builtins(ep.Index),
		})
	}
	return out, nil
}
