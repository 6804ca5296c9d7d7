package comm

import (
	"log"
	"sync"
)

// A LocalGroup runs several ranks inside one process, each on its own
// goroutine.
type LocalGroup struct {
	size int

	lock       sync.Mutex
	cond       *sync.Cond
	arrived    int
	generation uint64
	slot       []float64
}

// NewLocalGroup creates a group of n ranks.
func NewLocalGroup(n int) *LocalGroup {
	if n < 1 {
		log.Panicf("a local group needs at least one rank, got %d", n)
	}

	g := &LocalGroup{size: n}
	g.cond = sync.NewCond(&g.lock)

	return g
}

// Communicators returns one communicator per rank, indexed by rank.
func (g *LocalGroup) Communicators() []Communicator {
	comms := make([]Communicator, g.size)
	for i := range comms {
		comms[i] = &localComm{group: g, rank: i}
	}

	return comms
}

func (g *LocalGroup) barrier() {
	g.lock.Lock()
	defer g.lock.Unlock()

	gen := g.generation
	g.arrived++

	if g.arrived == g.size {
		g.arrived = 0
		g.generation++
		g.cond.Broadcast()

		return
	}

	for gen == g.generation {
		g.cond.Wait()
	}
}

type localComm struct {
	group *LocalGroup
	rank  int
}

func (c *localComm) Rank() int {
	return c.rank
}

func (c *localComm) Size() int {
	return c.group.size
}

func (c *localComm) Barrier() {
	c.group.barrier()
}

func (c *localComm) BroadcastFloat64s(root int, values []float64) {
	g := c.group

	if c.rank == root {
		g.lock.Lock()
		g.slot = append(g.slot[:0], values...)
		g.lock.Unlock()
	}

	g.barrier()

	if c.rank != root {
		g.lock.Lock()
		copy(values, g.slot)
		g.lock.Unlock()
	}

	g.barrier()
}
