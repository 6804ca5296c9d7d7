// Package comm provides the collective operations the scheduler needs when
// several processes step one simulation together.
package comm

// A Communicator connects the processes that run one simulation. Rank 0 is
// the coordinating process.
type Communicator interface {
	// Rank returns the index of this process.
	Rank() int

	// Size returns the number of processes.
	Size() int

	// Barrier blocks until every process has reached the barrier.
	Barrier()

	// BroadcastFloat64s copies values from the root process into values on
	// every other process. Every process must call it with a slice of the
	// same length.
	BroadcastFloat64s(root int, values []float64)
}

// IsCoordinator tells if c is the coordinating process.
func IsCoordinator(c Communicator) bool {
	return c.Rank() == 0
}

type single struct{}

// Single returns the communicator of a simulation run by one process.
func Single() Communicator {
	return single{}
}

func (single) Rank() int { return 0 }

func (single) Size() int { return 1 }

func (single) Barrier() {}

func (single) BroadcastFloat64s(_ int, _ []float64) {}
