package fabric

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// internal tags are negative so they never collide with a caller-chosen tag,
// which by convention is >= 0.
const (
	tagBarrierArrive = -1
	tagBarrierGo     = -2
	tagSplitBase     = -1000
)

// Network implements Fabric over the net package in the standard library.
// It dials and listens an all-to-all mesh among the addresses given, and
// frames every message with encoding/gob. Network does not attempt to be
// secure: the Password field is exchanged in the clear and only guards
// against accidental cross-talk between unrelated runs on the same subnet.
type Network struct {
	NetProto string        // network protocol, passed to net.Dial/net.Listen
	Addr     string        // this process's address
	Addrs    []string      // every process's address, Addr must be among them
	Timeout  time.Duration // Init fails if the mesh isn't formed within Timeout

	Password string

	myrank int
	nNodes int

	connections []*pairwiseConnection
	local       *localConnection
}

func (n *Network) Rank() int {
	if n.nNodes == 0 {
		return -1
	}
	return n.myrank
}

func (n *Network) Size() int {
	return n.nNodes
}

type localConnection struct {
	manager    *tagManager
	storedData map[int][]byte
	mux        sync.Mutex
}

func (l *localConnection) AddBytes(tag int, b []byte) error {
	if err := l.manager.Add(tag); err != nil {
		return err
	}
	l.mux.Lock()
	l.storedData[tag] = b
	l.mux.Unlock()
	return nil
}

func (l *localConnection) Bytes(tag int) ([]byte, error) {
	l.mux.Lock()
	b, ok := l.storedData[tag]
	l.mux.Unlock()
	if !ok {
		return nil, errors.New("fabric: unknown tag")
	}
	return b, nil
}

func (l *localConnection) Delete(tag int) {
	l.manager.Delete(tag)
	l.mux.Lock()
	delete(l.storedData, tag)
	l.mux.Unlock()
}

// tagManager tracks in-flight tags and the channel each one will deliver its
// payload on.
type tagManager struct {
	commMap map[int]chan []byte
	mux     sync.Mutex
}

func newTagManager() *tagManager {
	return &tagManager{commMap: make(map[int]chan []byte)}
}

func (t *tagManager) Add(tag int) error {
	t.mux.Lock()
	defer t.mux.Unlock()
	if _, ok := t.commMap[tag]; ok {
		return TagExists{Tag: tag}
	}
	t.commMap[tag] = make(chan []byte)
	return nil
}

func (t *tagManager) Delete(tag int) {
	t.mux.Lock()
	defer t.mux.Unlock()
	delete(t.commMap, tag)
}

func (t *tagManager) Channel(tag int) chan []byte {
	t.mux.Lock()
	defer t.mux.Unlock()
	return t.commMap[tag]
}

type pairwiseConnection struct {
	dial        net.Conn // send on
	listen      net.Conn // receive from
	receivetags *tagManager
	sendtags    *tagManager
}

// Init implements Fabric.
func (n *Network) Init() error {
	if n.NetProto == "" {
		n.NetProto = "tcp"
	}

	sorted := append([]string(nil), n.Addrs...)
	sort.Strings(sorted)
	for i := 0; i < len(sorted)-1; i++ {
		if sorted[i] == sorted[i+1] {
			return errors.New("fabric: addresses not unique")
		}
	}
	n.Addrs = sorted

	n.myrank = sort.SearchStrings(n.Addrs, n.Addr)
	if !(n.myrank < len(n.Addrs) && n.Addrs[n.myrank] == n.Addr) {
		return errors.New("fabric: local address not in address list")
	}
	n.nNodes = len(n.Addrs)

	return n.startConnections()
}

func (n *Network) startConnections() error {
	n.connections = make([]*pairwiseConnection, n.nNodes)
	for i := range n.connections {
		n.connections[i] = &pairwiseConnection{
			receivetags: newTagManager(),
			sendtags:    newTagManager(),
		}
	}
	n.local = &localConnection{
		manager:    newTagManager(),
		storedData: make(map[int][]byte),
	}

	g := new(errgroup.Group)
	g.Go(n.establishListenConnections)
	g.Go(n.establishDialConnections)
	return g.Wait()
}

type initialMessage struct {
	Password string
	Id       int
}

func (n *Network) establishListenConnections() error {
	listener, err := net.Listen(n.NetProto, n.Addr)
	if err != nil {
		return fmt.Errorf("fabric: listen: %w", err)
	}
	defer listener.Close()

	g := new(errgroup.Group)
	for i := 0; i < n.nNodes-1; i++ {
		g.Go(func() error {
			conn, err := n.acceptOne(listener)
			if err != nil {
				return err
			}
			var msg initialMessage
			if err := gob.NewDecoder(conn).Decode(&msg); err != nil {
				return fmt.Errorf("fabric: handshake decode: %w", err)
			}
			id, err := n.checkHandshake(msg)
			if err != nil {
				return err
			}
			n.connections[id].listen = conn
			return gob.NewEncoder(conn).Encode(initialMessage{Password: n.Password, Id: n.myrank})
		})
	}
	return g.Wait()
}

func (n *Network) acceptOne(listener net.Listener) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := listener.Accept()
		ch <- result{conn, err}
	}()
	if n.Timeout > 0 {
		select {
		case r := <-ch:
			return r.conn, r.err
		case <-time.After(n.Timeout):
			return nil, errors.New("fabric: listener timed out")
		}
	}
	r := <-ch
	return r.conn, r.err
}

func (n *Network) establishDialConnections() error {
	g := new(errgroup.Group)
	for i := 0; i < n.nNodes; i++ {
		if i == n.myrank {
			continue
		}
		i := i
		g.Go(func() error {
			deadline := time.Now().Add(n.Timeout)
			var conn net.Conn
			var err error
			for {
				conn, err = net.DialTimeout(n.NetProto, n.Addrs[i], n.Timeout)
				if err == nil || (n.Timeout > 0 && time.Now().After(deadline)) {
					break
				}
				time.Sleep(300 * time.Millisecond)
			}
			if err != nil {
				return fmt.Errorf("fabric: dial %s: %w", n.Addrs[i], err)
			}
			if err := gob.NewEncoder(conn).Encode(initialMessage{Password: n.Password, Id: n.myrank}); err != nil {
				return fmt.Errorf("fabric: handshake encode: %w", err)
			}
			var msg initialMessage
			if err := gob.NewDecoder(conn).Decode(&msg); err != nil {
				return fmt.Errorf("fabric: handshake decode: %w", err)
			}
			id, err := n.checkHandshake(msg)
			if err != nil {
				return err
			}
			n.connections[id].dial = conn
			return nil
		})
	}
	return g.Wait()
}

func (n *Network) checkHandshake(msg initialMessage) (int, error) {
	if msg.Password != n.Password {
		return -1, errors.New("fabric: bad password")
	}
	if msg.Id < 0 || msg.Id >= n.nNodes || msg.Id == n.myrank {
		return -1, fmt.Errorf("fabric: bad peer id %v", msg.Id)
	}
	return msg.Id, nil
}

// Finalize implements Fabric.
func (n *Network) Finalize() {
	for _, conn := range n.connections {
		if conn.dial != nil {
			conn.dial.Close()
		}
		if conn.listen != nil {
			conn.listen.Close()
		}
	}
}

type wireMessage struct {
	Tag   int
	Bytes []byte
}

// Send implements Fabric.
func (n *Network) Send(data interface{}, destination, tag int) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return err
	}

	if destination == n.myrank {
		return n.local.AddBytes(tag, buf.Bytes())
	}

	if err := n.connections[destination].sendtags.Add(tag); err != nil {
		return err
	}
	go n.confirmationReader(destination)

	return gob.NewEncoder(n.connections[destination].dial).Encode(wireMessage{Tag: tag, Bytes: buf.Bytes()})
}

// confirmationReader waits for the peer's acknowledgement of a send and
// wakes the corresponding Wait call.
func (n *Network) confirmationReader(destination int) {
	var m wireMessage
	if err := gob.NewDecoder(n.connections[destination].dial).Decode(&m); err != nil {
		panic(err)
	}
	n.connections[destination].sendtags.Channel(m.Tag) <- m.Bytes
}

// Wait implements Fabric.
func (n *Network) Wait(destination, tag int) error {
	if destination == n.myrank {
		<-n.local.manager.Channel(tag)
		n.local.Delete(tag)
		return nil
	}
	<-n.connections[destination].sendtags.Channel(tag)
	n.connections[destination].sendtags.Delete(tag)
	return nil
}

// Receive implements Fabric.
func (n *Network) Receive(data interface{}, source, tag int) error {
	var b []byte
	if source == n.myrank {
		var err error
		b, err = n.local.Bytes(tag)
		if err != nil {
			return err
		}
		go func() {
			n.local.manager.Channel(tag) <- []byte{}
		}()
	} else {
		manager := n.connections[source].receivetags
		if err := manager.Add(tag); err != nil {
			return err
		}
		go n.receiveReader(source)
		b = <-manager.Channel(tag)
		manager.Delete(tag)
	}

	return gob.NewDecoder(bytes.NewReader(b)).Decode(data)
}

func (n *Network) receiveReader(source int) {
	var m wireMessage
	if err := gob.NewDecoder(n.connections[source].listen).Decode(&m); err != nil {
		panic(err)
	}
	n.connections[source].receivetags.Channel(m.Tag) <- m.Bytes

	reply := wireMessage{Tag: m.Tag}
	if err := gob.NewEncoder(n.connections[source].listen).Encode(reply); err != nil {
		panic(err)
	}
}

// Sendrecv implements Fabric. It sends to dest under sendTag and, without
// waiting for that send's acknowledgement, immediately blocks on the
// matching receive from source under recvTag. Borders and exchange use this
// to ship a length header and then, once both sides have sized their
// buffers, the payload.
func (n *Network) Sendrecv(sendData interface{}, dest, sendTag int, recvData interface{}, source, recvTag int) error {
	if err := n.Send(sendData, dest, sendTag); err != nil {
		return err
	}
	if err := n.Receive(recvData, source, recvTag); err != nil {
		return err
	}
	return n.Wait(dest, sendTag)
}

// Barrier implements Fabric with a star topology: every non-zero rank
// signals rank 0 and then waits for rank 0's release.
func (n *Network) Barrier() error {
	if n.nNodes <= 1 {
		return nil
	}
	if n.myrank == 0 {
		for r := 1; r < n.nNodes; r++ {
			var ignored struct{}
			if err := n.Receive(&ignored, r, tagBarrierArrive); err != nil {
				return err
			}
		}
		for r := 1; r < n.nNodes; r++ {
			if err := n.Send(struct{}{}, r, tagBarrierGo); err != nil {
				return err
			}
			if err := n.Wait(r, tagBarrierGo); err != nil {
				return err
			}
		}
		return nil
	}
	if err := n.Send(struct{}{}, 0, tagBarrierArrive); err != nil {
		return err
	}
	if err := n.Wait(0, tagBarrierArrive); err != nil {
		return err
	}
	var ignored struct{}
	return n.Receive(&ignored, 0, tagBarrierGo)
}

// CommSplit implements Fabric. The returned sub-fabric renumbers ranks
// 0..len(ranks)-1 in the order given and multiplexes traffic over the
// parent's connections using a reserved tag band, so it must not be used
// concurrently with another active split of the same parent.
func (n *Network) CommSplit(ranks []int) (Fabric, error) {
	local := -1
	for i, r := range ranks {
		if r == n.myrank {
			local = i
		}
		if r < 0 || r >= n.nNodes {
			return nil, fmt.Errorf("fabric: CommSplit: rank %d out of range", r)
		}
	}
	if local < 0 {
		return nil, errors.New("fabric: CommSplit: this rank is not a member of the group")
	}
	return &subNetwork{parent: n, globalRanks: ranks, localRank: local}, nil
}

// subNetwork is the Fabric returned by Network.CommSplit. It forwards every
// call to the parent Network after translating local ranks to global ones
// and offsetting tags into a band the parent does not otherwise use.
type subNetwork struct {
	parent      *Network
	globalRanks []int
	localRank   int
}

func (s *subNetwork) global(local int) int { return s.globalRanks[local] }

func (s *subNetwork) offsetTag(tag int) int { return tagSplitBase - tag }

func (s *subNetwork) Init() error   { return nil }
func (s *subNetwork) Finalize()     {}
func (s *subNetwork) Rank() int     { return s.localRank }
func (s *subNetwork) Size() int     { return len(s.globalRanks) }

func (s *subNetwork) Send(data interface{}, destination, tag int) error {
	return s.parent.Send(data, s.global(destination), s.offsetTag(tag))
}

func (s *subNetwork) Wait(destination, tag int) error {
	return s.parent.Wait(s.global(destination), s.offsetTag(tag))
}

func (s *subNetwork) Receive(data interface{}, source, tag int) error {
	return s.parent.Receive(data, s.global(source), s.offsetTag(tag))
}

func (s *subNetwork) Sendrecv(sendData interface{}, dest, sendTag int, recvData interface{}, source, recvTag int) error {
	return s.parent.Sendrecv(sendData, s.global(dest), s.offsetTag(sendTag), recvData, s.global(source), s.offsetTag(recvTag))
}

func (s *subNetwork) Barrier() error {
	// star barrier scoped to the group, reusing the parent's connections
	// through the same rank/tag translation as the rest of subNetwork.
	if len(s.globalRanks) <= 1 {
		return nil
	}
	if s.localRank == 0 {
		for r := 1; r < len(s.globalRanks); r++ {
			var ignored struct{}
			if err := s.Receive(&ignored, r, tagBarrierArrive); err != nil {
				return err
			}
		}
		for r := 1; r < len(s.globalRanks); r++ {
			if err := s.Send(struct{}{}, r, tagBarrierGo); err != nil {
				return err
			}
			if err := s.Wait(r, tagBarrierGo); err != nil {
				return err
			}
		}
		return nil
	}
	if err := s.Send(struct{}{}, 0, tagBarrierArrive); err != nil {
		return err
	}
	if err := s.Wait(0, tagBarrierArrive); err != nil {
		return err
	}
	var ignored struct{}
	return s.Receive(&ignored, 0, tagBarrierGo)
}

func (s *subNetwork) CommSplit(ranks []int) (Fabric, error) {
	global := make([]int, len(ranks))
	for i, r := range ranks {
		global[i] = s.global(r)
	}
	return s.parent.CommSplit(global)
}
