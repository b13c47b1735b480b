package cheatnet

import (
	"maps"

	"github.com/NethermindEth/cheatnet/core"
	"github.com/NethermindEth/cheatnet/core/felt"
	"github.com/NethermindEth/cheatnet/vm"
)

type CallType uint8

const (
	CallTypeCall CallType = iota
	CallTypeDelegate
)

func (c CallType) String() string {
	if c == CallTypeDelegate {
		return "Delegate"
	}
	return "Call"
}

// EntryPointCall describes one invocation.
type EntryPointCall struct {
	ClassHash      felt.Felt
	StorageAddress felt.Felt
	CallerAddress  felt.Felt
	Selector       felt.Felt
	Calldata       []felt.Felt
	CallType       CallType
	EntryPointType core.EntryPointType
	InitialGas     uint64
}

// MessageToL1 is an L2 to L1 message sent by a contract.
type MessageToL1 struct {
	ToAddress felt.Felt
	Payload   []felt.Felt
}

type NodeKind uint8

const (
	NodeEntryPoint NodeKind = iota
	NodeDeployWithoutConstructor
)

// CallTraceNode is a call in the trace. Resources, SyscallCounts and
// GasConsumed include the nested calls.
type CallTraceNode struct {
	Kind          NodeKind
	EntryPoint    EntryPointCall
	Result        CallResult
	Parent        int
	Children      []int
	Resources     vm.ExecutionResources
	SyscallCounts map[vm.SyscallSelector]uint64
	GasConsumed   uint64
	Events        []Event
	Messages      []MessageToL1
}

func (n *CallTraceNode) addSyscall(selector vm.SyscallSelector) {
	n.SyscallCounts[selector]++
}

// CallTrace is an arena of nodes linked by index. Node 0 is the root, which
// stands for the test itself and accumulates the totals of top-level calls.
type CallTrace struct {
	nodes []CallTraceNode
	stack []int
}

const rootNode = 0

func NewCallTrace() *CallTrace {
	return &CallTrace{
		nodes: []CallTraceNode{newNode(NodeEntryPoint, EntryPointCall{}, -1)},
		stack: []int{rootNode},
	}
}

func newNode(kind NodeKind, call EntryPointCall, parent int) CallTraceNode {
	return CallTraceNode{
		Kind:          kind,
		EntryPoint:    call,
		Parent:        parent,
		Resources:     vm.NewExecutionResources(),
		SyscallCounts: make(map[vm.SyscallSelector]uint64),
	}
}

func (t *CallTrace) Root() *CallTraceNode {
	return &t.nodes[rootNode]
}

// Node returns the node with index i. The pointer is valid until the next
// call is entered.
func (t *CallTrace) Node(i int) *CallTraceNode {
	return &t.nodes[i]
}

func (t *CallTrace) Len() int {
	return len(t.nodes)
}

// Depth is the number of calls currently executing
func (t *CallTrace) Depth() int {
	return len(t.stack) - 1
}

func (t *CallTrace) current() *CallTraceNode {
	return &t.nodes[t.stack[len(t.stack)-1]]
}

func (t *CallTrace) add(kind NodeKind, call EntryPointCall) int {
	parent := t.stack[len(t.stack)-1]
	t.nodes = append(t.nodes, newNode(kind, call, parent))
	idx := len(t.nodes) - 1
	t.nodes[parent].Children = append(t.nodes[parent].Children, idx)
	return idx
}

// enter appends a call under the current one and makes it current
func (t *CallTrace) enter(call EntryPointCall) int {
	idx := t.add(NodeEntryPoint, call)
	t.stack = append(t.stack, idx)
	return idx
}

// exit completes the current call. resources are the call's own, the totals
// of its children are added to them.
func (t *CallTrace) exit(result CallResult, resources vm.ExecutionResources, gasConsumed uint64) {
	idx := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]

	node := &t.nodes[idx]
	node.Result = result
	node.GasConsumed = gasConsumed
	node.Resources.Add(resources)
	for _, child := range node.Children {
		node.Resources.Add(t.nodes[child].Resources)
		for selector, count := range t.nodes[child].SyscallCounts {
			node.SyscallCounts[selector] += count
		}
	}

	if parent := t.stack[len(t.stack)-1]; parent == rootNode {
		root := t.Root()
		root.Resources.Add(node.Resources)
		root.GasConsumed += gasConsumed
		for selector, count := range node.SyscallCounts {
			root.SyscallCounts[selector] += count
		}
	}
}

// pushMarker records a leaf node that does not execute code
func (t *CallTrace) pushMarker(kind NodeKind, call EntryPointCall) {
	t.add(kind, call)
}

// Calls returns the top-level calls in execution order
func (t *CallTrace) Calls() []*CallTraceNode {
	root := t.Root()
	calls := make([]*CallTraceNode, len(root.Children))
	for i, child := range root.Children {
		calls[i] = t.Node(child)
	}
	return calls
}

// SyscallCounts returns a copy of the syscall counters of node i
func (t *CallTrace) SyscallCounts(i int) map[vm.SyscallSelector]uint64 {
	return maps.Clone(t.nodes[i].SyscallCounts)
}
