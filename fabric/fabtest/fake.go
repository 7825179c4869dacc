// Package fabtest provides an in-process fake of fabric.Fabric for unit
// tests of packages built on top of the messaging layer (grid, topology,
// comm) that need a working multi-rank fabric but should not bind real
// sockets. It reuses the teacher's tag/channel bookkeeping shape
// (fabric.Network's tagManager) over in-memory channels instead of
// net.Conn, so the concurrency behavior under test matches production.
package fabtest

import (
	"bytes"
	"encoding/gob"
	"errors"
	"sync"

	"github.com/RJMS-Benchmark/lammps/fabric"
)

// NewMesh returns n Fabric implementations that can talk to each other as
// if they were n ranks of one run.
func NewMesh(n int) []*Fake {
	mesh := &meshState{
		ranks: make([]*Fake, n),
	}
	for i := range mesh.ranks {
		f := &Fake{
			me:     i,
			n:      n,
			mesh:   mesh,
			tags:   newTagTable(),
			acked:  newTagTable(),
		}
		mesh.ranks[i] = f
	}
	return mesh.ranks
}

type meshState struct {
	ranks []*Fake
}

// Fake implements fabric.Fabric entirely in memory.
type Fake struct {
	me   int
	n    int
	mesh *meshState

	tags  *tagTable // inbound payload per (fromRank, tag)
	acked *tagTable // ack signal per (toRank, tag)
}

type tagKey struct {
	peer, tag int
}

type tagTable struct {
	mu sync.Mutex
	ch map[tagKey]chan []byte
}

func newTagTable() *tagTable { return &tagTable{ch: make(map[tagKey]chan []byte)} }

func (t *tagTable) get(peer, tag int) chan []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := tagKey{peer, tag}
	c, ok := t.ch[k]
	if !ok {
		c = make(chan []byte, 1)
		t.ch[k] = c
	}
	return c
}

func (f *Fake) Init() error    { return nil }
func (f *Fake) Finalize()      {}
func (f *Fake) Rank() int      { return f.me }
func (f *Fake) Size() int      { return f.n }

func (f *Fake) Send(data interface{}, destination, tag int) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return err
	}
	dst := f.mesh.ranks[destination]
	dst.tags.get(f.me, tag) <- buf.Bytes()
	return nil
}

func (f *Fake) Wait(destination, tag int) error {
	<-f.acked.get(destination, tag)
	return nil
}

func (f *Fake) Receive(data interface{}, source, tag int) error {
	b := <-f.tags.get(source, tag)
	src := f.mesh.ranks[source]
	src.acked.get(f.me, tag) <- []byte{}
	return gob.NewDecoder(bytes.NewReader(b)).Decode(data)
}

func (f *Fake) Sendrecv(sendData interface{}, dest, sendTag int, recvData interface{}, source, recvTag int) error {
	if err := f.Send(sendData, dest, sendTag); err != nil {
		return err
	}
	if err := f.Receive(recvData, source, recvTag); err != nil {
		return err
	}
	return f.Wait(dest, sendTag)
}

func (f *Fake) Barrier() error {
	// Star barrier against rank 0, mirroring fabric.Network.Barrier.
	const tag = -1
	if f.n <= 1 {
		return nil
	}
	if f.me == 0 {
		for r := 1; r < f.n; r++ {
			var ignored struct{}
			if err := f.Receive(&ignored, r, tag); err != nil {
				return err
			}
		}
		for r := 1; r < f.n; r++ {
			if err := f.Send(struct{}{}, r, tag); err != nil {
				return err
			}
			if err := f.Wait(r, tag); err != nil {
				return err
			}
		}
		return nil
	}
	if err := f.Send(struct{}{}, 0, tag); err != nil {
		return err
	}
	if err := f.Wait(0, tag); err != nil {
		return err
	}
	var ignored struct{}
	return f.Receive(&ignored, 0, tag)
}

func (f *Fake) CommSplit(ranks []int) (fabric.Fabric, error) {
	local := -1
	for i, r := range ranks {
		if r == f.me {
			local = i
		}
	}
	if local < 0 {
		return nil, errors.New("fabtest: this rank is not a member of the group")
	}
	return &SubFake{parent: f, ranks: ranks, local: local}, nil
}

// SubFake is the CommSplit result; it satisfies fabric.Fabric by
// translating local ranks/tags before delegating to the parent Fake.
type SubFake struct {
	parent *Fake
	ranks  []int
	local  int
}

func (s *SubFake) Init() error { return nil }
func (s *SubFake) Finalize()   {}
func (s *SubFake) Rank() int   { return s.local }
func (s *SubFake) Size() int   { return len(s.ranks) }

func (s *SubFake) global(local int) int { return s.ranks[local] }
func (s *SubFake) offset(tag int) int   { return -100000 - tag }

func (s *SubFake) Send(data interface{}, destination, tag int) error {
	return s.parent.Send(data, s.global(destination), s.offset(tag))
}
func (s *SubFake) Wait(destination, tag int) error {
	return s.parent.Wait(s.global(destination), s.offset(tag))
}
func (s *SubFake) Receive(data interface{}, source, tag int) error {
	return s.parent.Receive(data, s.global(source), s.offset(tag))
}
func (s *SubFake) Sendrecv(sendData interface{}, dest, sendTag int, recvData interface{}, source, recvTag int) error {
	return s.parent.Sendrecv(sendData, s.global(dest), s.offset(sendTag), recvData, s.global(source), s.offset(recvTag))
}
func (s *SubFake) Barrier() error {
	if len(s.ranks) <= 1 {
		return nil
	}
	if s.local == 0 {
		for r := 1; r < len(s.ranks); r++ {
			var ignored struct{}
			if err := s.Receive(&ignored, r, 0); err != nil {
				return err
			}
		}
		for r := 1; r < len(s.ranks); r++ {
			if err := s.Send(struct{}{}, r, 0); err != nil {
				return err
			}
			if err := s.Wait(r, 0); err != nil {
				return err
			}
		}
		return nil
	}
	if err := s.Send(struct{}{}, 0, 0); err != nil {
		return err
	}
	if err := s.Wait(0, 0); err != nil {
		return err
	}
	var ignored struct{}
	return s.Receive(&ignored, 0, 0)
}
func (s *SubFake) CommSplit(ranks []int) (fabric.Fabric, error) {
	global := make([]int, len(ranks))
	for i, r := range ranks {
		global[i] = s.global(r)
	}
	return s.parent.CommSplit(global)
}
