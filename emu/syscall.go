package emu

import "github.com/sirupsen/logrus"

// SyscallExit is the syscall code ($v0) that halts the simulation.
const SyscallExit uint32 = 0x0A

// SyscallResult represents the result of a syscall execution.
type SyscallResult struct {
	// Exited is true if the syscall caused program termination.
	Exited bool
}

// SyscallHandler is the interface for handling syscalls that reach the
// memory stage.
type SyscallHandler interface {
	// Handle executes the syscall with the given code (the value of $v0
	// when the SYSCALL instruction was issued).
	Handle(code uint32) SyscallResult
}

// DefaultSyscallHandler halts on SyscallExit and ignores every other code.
type DefaultSyscallHandler struct {
	log logrus.FieldLogger
}

// NewDefaultSyscallHandler creates a default syscall handler. A nil logger
// discards output.
func NewDefaultSyscallHandler(log logrus.FieldLogger) *DefaultSyscallHandler {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &DefaultSyscallHandler{log: log}
}

// Handle implements SyscallHandler.
func (h *DefaultSyscallHandler) Handle(code uint32) SyscallResult {
	if code == SyscallExit {
		h.log.WithField("code", code).Debug("exit syscall")
		return SyscallResult{Exited: true}
	}
	h.log.WithField("code", code).Debug("ignoring unsupported syscall")
	return SyscallResult{}
}
