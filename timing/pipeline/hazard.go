package pipeline

import "github.com/sarchlab/mipsim/insts"

// ForwardSource indicates where a forwarded value should come from.
type ForwardSource int

const (
	// ForwardNone means no forwarding needed - use register file value.
	ForwardNone ForwardSource = iota
	// ForwardFromMemory means forward from the EX/MEM pipeline register.
	ForwardFromMemory
	// ForwardFromWriteback means forward from the MEM/WB pipeline register.
	ForwardFromWriteback
)

// String returns a short name of the forwarding path.
func (f ForwardSource) String() string {
	switch f {
	case ForwardFromMemory:
		return "MEM"
	case ForwardFromWriteback:
		return "WB"
	default:
		return "-"
	}
}

// HazardResult contains the hazard decision for the instruction in decode.
type HazardResult struct {
	// Stall indicates decode must emit a bubble and hold IF/ID.
	Stall bool
	// LoadUse indicates the stall is caused by a load in execute.
	LoadUse bool
	// ForwardA and ForwardB select the bypass path for each operand.
	ForwardA ForwardSource
	ForwardB ForwardSource
}

// Forwards reports whether any operand is bypassed.
func (r HazardResult) Forwards() bool {
	return r.ForwardA != ForwardNone || r.ForwardB != ForwardNone
}

// HazardUnit detects data hazards and determines forwarding/stall signals.
type HazardUnit struct {
	forwarding bool
}

// NewHazardUnit creates a new hazard detection unit. Without forwarding,
// every dependency on an in-flight result stalls.
func NewHazardUnit(forwarding bool) *HazardUnit {
	return &HazardUnit{forwarding: forwarding}
}

// Forwarding reports whether bypassing is enabled.
func (h *HazardUnit) Forwarding() bool {
	return h.forwarding
}

// SetForwarding enables or disables bypassing.
func (h *HazardUnit) SetForwarding(enabled bool) {
	h.forwarding = enabled
}

// Detect checks the sources of the instruction being decoded against the
// destinations of the instructions currently in execute (idex) and memory
// (exmem).
func (h *HazardUnit) Detect(
	inst *insts.Instruction,
	idex *Latch,
	exmem *Latch,
) HazardResult {
	result := HazardResult{}

	var stallA, stallB, loadUseA, loadUseB bool
	result.ForwardA, stallA, loadUseA = h.detectForReg(inst.SrcA, idex, exmem)
	result.ForwardB, stallB, loadUseB = h.detectForReg(inst.SrcB, idex, exmem)

	result.Stall = stallA || stallB
	result.LoadUse = loadUseA || loadUseB
	if result.Stall {
		result.ForwardA = ForwardNone
		result.ForwardB = ForwardNone
	}

	return result
}

// detectForReg checks if a specific operand depends on an in-flight result.
func (h *HazardUnit) detectForReg(
	reg insts.Reg,
	idex *Latch,
	exmem *Latch,
) (forward ForwardSource, stall bool, loadUse bool) {
	if reg == insts.RegNone || reg == 0 {
		return ForwardNone, false, false
	}

	inExecute := !idex.IsBubble() && idex.Inst.Writes(reg)
	inMemory := !exmem.IsBubble() && exmem.Inst.Writes(reg)

	if !h.forwarding {
		return ForwardNone, inExecute || inMemory, false
	}

	// Priority: the instruction in execute is younger than the one in memory,
	// so its value wins.
	if inExecute {
		if idex.Inst.IsLoad() {
			return ForwardNone, true, true
		}
		return ForwardFromMemory, false, false
	}

	if inMemory {
		return ForwardFromWriteback, false, false
	}

	return ForwardNone, false, false
}

// GetForwardedValue returns the value to use based on forwarding decision.
// exmem and memwb are the latches as they were at the start of the tick.
func (h *HazardUnit) GetForwardedValue(
	forward ForwardSource,
	reg insts.Reg,
	originalValue uint32,
	exmem *Latch,
	memwb *Latch,
) uint32 {
	switch forward {
	case ForwardFromMemory:
		return exmem.ResultFor(reg)
	case ForwardFromWriteback:
		return memwb.ResultFor(reg)
	default:
		return originalValue
	}
}
