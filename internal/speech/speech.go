// Package speech narrates status messages through an external TTS command.
// Utterances are serialized (one finishes before the next starts) but the
// Say call itself never blocks the session loop.
package speech

import (
	"os/exec"
	"sync"
)

const queueDepth = 16

// Narrator speaks status messages. Implementations must not block callers.
type Narrator interface {
	Say(text string)
	Close()
}

// CommandNarrator runs a TTS command (such as espeak) once per utterance
// from a single worker goroutine.
type CommandNarrator struct {
	command string
	queue   chan string
	done    chan struct{}
	once    sync.Once
}

// NewCommandNarrator starts the narration worker. An empty command yields a
// silent narrator.
func NewCommandNarrator(command string) Narrator {
	if command == "" {
		return noopNarrator{}
	}

	n := &CommandNarrator{
		command: command,
		queue:   make(chan string, queueDepth),
		done:    make(chan struct{}),
	}
	go n.run()
	return n
}

func (n *CommandNarrator) run() {
	defer close(n.done)
	for text := range n.queue {
		// One utterance at a time; errors are ignored, narration is
		// best-effort by contract.
		_ = exec.Command(n.command, text).Run()
	}
}

// Say enqueues an utterance. When the queue is full the utterance is
// dropped rather than blocking the caller.
func (n *CommandNarrator) Say(text string) {
	if text == "" {
		return
	}
	select {
	case n.queue <- text:
	default:
	}
}

// Close stops the worker after the queued utterances finish.
func (n *CommandNarrator) Close() {
	n.once.Do(func() {
		close(n.queue)
		<-n.done
	})
}

type noopNarrator struct{}

func (noopNarrator) Say(string) {}
func (noopNarrator) Close()     {}
