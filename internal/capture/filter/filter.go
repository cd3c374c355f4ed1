// Package filter compiles BPF expressions and evaluates them in userspace.
package filter

import (
	"fmt"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"golang.org/x/net/bpf"
)

// Compile compiles a tcpdump-style expression into raw BPF instructions.
func Compile(linkType layers.LinkType, snapLen int, expr string) ([]bpf.RawInstruction, error) {
	// Compile BPF filter using pcap (returns pcap.BPFInstruction slice)
	pcapInsns, err := pcap.CompileBPFFilter(linkType, snapLen, expr)
	if err != nil {
		return nil, fmt.Errorf("failed to compile BPF filter %q: %w", expr, err)
	}

	// Convert pcap.BPFInstruction to bpf.RawInstruction
	// The structures are identical: Code->Op, Jt, Jf, K
	rawInsns := make([]bpf.RawInstruction, len(pcapInsns))
	for i, insn := range pcapInsns {
		rawInsns[i] = bpf.RawInstruction{
			Op: insn.Code,
			Jt: insn.Jt,
			Jf: insn.Jf,
			K:  insn.K,
		}
	}
	return rawInsns, nil
}

// Matcher runs a BPF program against frames that never went through a
// kernel filter, such as frames replayed from a file.
type Matcher struct {
	vm *bpf.VM
}

// NewMatcher builds a Matcher from raw instructions.
func NewMatcher(raw []bpf.RawInstruction) (*Matcher, error) {
	insns, ok := bpf.Disassemble(raw)
	if !ok {
		return nil, fmt.Errorf("BPF program contains instructions the userspace VM cannot run")
	}
	vm, err := bpf.NewVM(insns)
	if err != nil {
		return nil, fmt.Errorf("failed to load BPF program: %w", err)
	}
	return &Matcher{vm: vm}, nil
}

// Match reports whether the program accepts data.
func (m *Matcher) Match(data []byte) bool {
	n, err := m.vm.Run(data)
	return err == nil && n > 0
}
